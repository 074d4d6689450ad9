package resolver

import (
	"fmt"
	"math"
	"net/url"
	"strconv"
	"strings"

	"github.com/aliskhannn/screenshot/internal/model"
)

const (
	MinTimeoutMs     = 3000
	MaxTimeoutMs     = 8500
	DefaultTimeoutMs = MaxTimeoutMs

	cacheBusterPrefix = "_"
)

// Options holds server-side defaults that the path grammar cannot express.
type Options struct {
	Format           model.ImageFormat // defaults to jpeg
	DisableScripting bool
}

// Resolver turns screenshot paths into capture requests.
// It does no I/O and keeps no state besides its options.
type Resolver struct {
	format    model.ImageFormat
	scripting bool
}

// New creates a Resolver with the given options.
func New(opts Options) *Resolver {
	format := opts.Format
	if !format.Valid() {
		format = model.FormatJPEG
	}

	return &Resolver{format: format, scripting: !opts.DisableScripting}
}

// ResolvePath splits a raw, still escaped request path and resolves it.
func (r *Resolver) ResolvePath(rawPath string) (model.CaptureRequest, error) {
	return r.Resolve(SplitPath(rawPath))
}

// SplitPath splits the path on "/", unescapes every segment and drops empty ones.
// Segments that fail to unescape are kept as they are.
func SplitPath(rawPath string) []string {
	parts := strings.Split(rawPath, "/")
	segments := make([]string, 0, len(parts))

	for _, p := range parts {
		if p == "" {
			continue
		}
		if dec, err := url.PathUnescape(p); err == nil {
			p = dec
		}
		if p == "" {
			continue
		}
		segments = append(segments, p)
	}

	return segments
}

// parsedPath is the first parsing pass: segments partitioned by role.
type parsedPath struct {
	url         string
	cacheBuster string
	positional  []string
}

func partition(segments []string) parsedPath {
	var p parsedPath
	if len(segments) == 0 {
		return p
	}

	p.url = segments[0]
	for _, s := range segments[1:] {
		if p.cacheBuster == "" && strings.HasPrefix(s, cacheBusterPrefix) {
			p.cacheBuster = s
			continue
		}
		p.positional = append(p.positional, s)
	}

	return p
}

// Resolve builds a CaptureRequest from decoded path segments:
// url [, size] [, aspectRatio] [, zoom] [, cacheBuster].
// The cache buster may appear in any slot after the url.
// Returned errors are *model.Failure.
func (r *Resolver) Resolve(segments []string) (model.CaptureRequest, error) {
	p := partition(segments)

	if !IsFullURL(p.url) {
		return model.CaptureRequest{}, model.NewFailure(model.KindInvalidURL, fmt.Sprintf("invalid url: %q", p.url))
	}

	size := positional(p.positional, 0, SizeSmall)
	ratio := positional(p.positional, 1, RatioSquare)
	zoom := positional(p.positional, 2, ZoomStandard)
	if _, ok := deviceScaleFactors[zoom]; !ok {
		zoom = ZoomStandard
	}

	vp, err := lookupViewport(size, ratio, zoom)
	if err != nil {
		return model.CaptureRequest{}, err
	}
	if size == SizeOpenGraph {
		ratio = ""
	}

	opts := parseCacheBuster(p.cacheBuster)
	level := waitLevels[opts.wait]

	req := model.CaptureRequest{
		TargetURL:         p.url,
		Size:              size,
		AspectRatio:       ratio,
		Zoom:              zoom,
		Format:            r.format,
		Viewport:          vp,
		DeviceScaleFactor: deviceScaleFactors[zoom],
		Wait:              append([]model.WaitCondition(nil), level.conditions...),
		WaitForFonts:      level.fonts,
		TimeoutMs:         opts.timeoutMs,
		CacheBuster:       p.cacheBuster,
		ScriptingEnabled:  r.scripting,
	}
	if req.Format == model.FormatJPEG {
		req.Quality = model.JPEGQuality
	}

	return req, nil
}

func positional(values []string, i int, def string) string {
	if i < len(values) && values[i] != "" {
		return values[i]
	}

	return def
}

func lookupViewport(size, ratio, zoom string) (model.Viewport, error) {
	if size == SizeOpenGraph {
		return openGraphViewports[zoom], nil
	}

	vp, ok := viewports[dimensionKey{size, ratio}]
	if !ok {
		return model.Viewport{}, model.NewFailure(
			model.KindUnsupportedDimensions,
			fmt.Sprintf("unsupported dimensions: size %q with aspect ratio %q", size, ratio),
		)
	}

	return vp, nil
}

// IsFullURL reports whether s is an absolute URL with a scheme and a host.
func IsFullURL(s string) bool {
	if s == "" {
		return false
	}

	u, err := url.Parse(s)
	if err != nil {
		return false
	}

	return u.Scheme != "" && u.Host != ""
}

type cacheBusterOptions struct {
	wait      int
	timeoutMs int
}

// parseCacheBuster reads "_key:value_key2:value2" tokens.
// Unknown keys and malformed values are ignored.
func parseCacheBuster(token string) cacheBusterOptions {
	opts := cacheBusterOptions{wait: defaultWaitLevel, timeoutMs: DefaultTimeoutMs}

	for _, part := range strings.Split(strings.TrimPrefix(token, cacheBusterPrefix), "_") {
		key, value, ok := strings.Cut(part, ":")
		if !ok {
			continue
		}

		switch key {
		case "wait":
			n, err := strconv.Atoi(value)
			if err == nil && n >= 0 && n < len(waitLevels) {
				opts.wait = n
			}
		case "timeout":
			secs, err := strconv.ParseFloat(value, 64)
			if err != nil || math.IsNaN(secs) {
				continue
			}
			// Clamped in seconds before the int conversion.
			secs = math.Min(math.Max(secs, 0), float64(MaxTimeoutMs)/1000)
			opts.timeoutMs = ClampTimeout(int(math.Round(secs * 1000)))
		}
	}

	return opts
}

// ClampTimeout bounds a timeout in milliseconds to [MinTimeoutMs, MaxTimeoutMs].
func ClampTimeout(ms int) int {
	return min(max(ms, MinTimeoutMs), MaxTimeoutMs)
}
