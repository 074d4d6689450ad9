package model

import (
	"fmt"
	"strings"
)

// ImageFormat is the encoding of a captured screenshot.
type ImageFormat string

const (
	FormatJPEG ImageFormat = "jpeg"
	FormatPNG  ImageFormat = "png"
	FormatWebP ImageFormat = "webp"
)

// ContentType returns the MIME type for the format.
func (f ImageFormat) ContentType() string {
	return "image/" + string(f)
}

// Valid reports whether f is one of the supported formats.
func (f ImageFormat) Valid() bool {
	switch f {
	case FormatJPEG, FormatPNG, FormatWebP:
		return true
	}

	return false
}

// WaitCondition is a page load milestone navigation has to reach.
type WaitCondition string

const (
	WaitDOMContentLoaded WaitCondition = "domcontentloaded"
	WaitLoad             WaitCondition = "load"
	WaitNetworkIdle0     WaitCondition = "networkidle0" // no open connections
	WaitNetworkIdle2     WaitCondition = "networkidle2" // at most two open connections
)

// JPEGQuality is applied to every jpeg capture.
const JPEGQuality = 80

// Viewport is the logical (CSS pixel) size of the rendered page.
type Viewport struct {
	Width  int `json:"width"`
	Height int `json:"height"`
}

// CaptureRequest is a fully resolved screenshot configuration.
// It is built by the resolver and never modified afterwards.
type CaptureRequest struct {
	TargetURL   string `json:"url"`
	Size        string `json:"size"`
	AspectRatio string `json:"aspect_ratio"`
	Zoom        string `json:"zoom"`

	Format            ImageFormat     `json:"format"`
	Viewport          Viewport        `json:"viewport"`
	DeviceScaleFactor float64         `json:"device_scale_factor"`
	Wait              []WaitCondition `json:"wait"`
	WaitForFonts      bool            `json:"wait_for_fonts"`
	TimeoutMs         int             `json:"timeout_ms"`
	CacheBuster       string          `json:"cache_buster"`
	Quality           int             `json:"quality"` // 0 unless Format is jpeg
	ScriptingEnabled  bool            `json:"scripting_enabled"`
}

// Canonical returns a stable textual form of the request, suitable for cache keys.
func (r CaptureRequest) Canonical() string {
	waits := make([]string, 0, len(r.Wait))
	for _, w := range r.Wait {
		waits = append(waits, string(w))
	}

	return fmt.Sprintf(
		"%s|%s|%dx%d@%g|%s|fonts=%t|js=%t|t=%d|%s",
		r.TargetURL, r.Format, r.Viewport.Width, r.Viewport.Height, r.DeviceScaleFactor,
		strings.Join(waits, ","), r.WaitForFonts, r.ScriptingEnabled, r.TimeoutMs, r.CacheBuster,
	)
}

// CaptureResult is either a screenshot or a classified failure.
type CaptureResult struct {
	Image       []byte
	ContentType string

	// Width and Height are the logical viewport, set on success and failure alike.
	Width  int
	Height int

	// PixelWidth and PixelHeight are the dimensions of the encoded image.
	PixelWidth  int
	PixelHeight int

	// Truncated is set when the watchdog stopped the page load.
	Truncated bool
	// Cached is set when the image came from the screenshot cache.
	Cached bool

	Failure *Failure
}

// OK reports whether the result carries an image.
func (r CaptureResult) OK() bool {
	return r.Failure == nil
}

// Succeeded builds a successful result.
func Succeeded(img []byte, format ImageFormat, vp Viewport) CaptureResult {
	return CaptureResult{
		Image:       img,
		ContentType: format.ContentType(),
		Width:       vp.Width,
		Height:      vp.Height,
	}
}

// Failed wraps a failure into a result sized to the failure's fallback dimensions.
func Failed(f *Failure) CaptureResult {
	return CaptureResult{
		Width:   f.Width,
		Height:  f.Height,
		Failure: f,
	}
}
