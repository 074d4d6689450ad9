package placeholder

import (
	"fmt"
	"image"

	"github.com/fogleman/gg"

	"github.com/aliskhannn/screenshot/internal/model"
)

const (
	SVGContentType = "image/svg+xml"

	background = "#e9e9ea"
	foreground = "#b4b4b8"
)

// encoder encodes raster images.
type encoder interface {
	Encode(img image.Image, format model.ImageFormat) ([]byte, error)
}

// Renderer draws failure placeholders sized to a viewport.
type Renderer struct {
	encoder encoder
	raster  bool
}

// New creates a Renderer. When raster is set, placeholders are PNG instead of SVG.
func New(enc encoder, raster bool) *Renderer {
	return &Renderer{encoder: enc, raster: raster && enc != nil}
}

// Render returns the placeholder body and its content type.
func (r *Renderer) Render(width, height int) ([]byte, string, error) {
	width, height = normalize(width, height)

	if !r.raster {
		return SVG(width, height), SVGContentType, nil
	}

	img, err := r.encoder.Encode(Raster(width, height), model.FormatPNG)
	if err != nil {
		return nil, "", fmt.Errorf("failed to encode placeholder: %w", err)
	}

	return img, model.FormatPNG.ContentType(), nil
}

func normalize(width, height int) (int, int) {
	if width <= 0 || height <= 0 {
		return model.DefaultPlaceholderWidth, model.DefaultPlaceholderHeight
	}

	return width, height
}

// icon returns the centre and the size of the picture glyph.
func icon(width, height int) (cx, cy, size float64) {
	size = float64(min(width, height)) * 0.3
	return float64(width) / 2, float64(height) / 2, size
}

// SVG returns a flat placeholder with a picture glyph in the middle.
func SVG(width, height int) []byte {
	width, height = normalize(width, height)
	cx, cy, size := icon(width, height)

	x, y := cx-size/2, cy-size/2
	stroke := size / 14

	return []byte(fmt.Sprintf(`<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">`+
		`<rect width="100%%" height="100%%" fill="%s"/>`+
		`<rect x="%.1f" y="%.1f" width="%.1f" height="%.1f" rx="%.1f" fill="none" stroke="%s" stroke-width="%.1f"/>`+
		`<circle cx="%.1f" cy="%.1f" r="%.1f" fill="%s"/>`+
		`<path d="M%.1f %.1fL%.1f %.1fL%.1f %.1fL%.1f %.1fL%.1f %.1fZ" fill="%s"/>`+
		`</svg>`,
		width, height, width, height,
		background,
		x, y, size, size, stroke*2, foreground, stroke,
		x+size*0.32, y+size*0.32, size*0.1, foreground,
		x+size*0.12, y+size*0.85,
		x+size*0.4, y+size*0.5,
		x+size*0.58, y+size*0.68,
		x+size*0.7, y+size*0.58,
		x+size*0.88, y+size*0.85,
		foreground,
	))
}

// Raster draws the same placeholder as SVG into an image.
func Raster(width, height int) image.Image {
	width, height = normalize(width, height)
	cx, cy, size := icon(width, height)

	x, y := cx-size/2, cy-size/2
	stroke := size / 14

	dc := gg.NewContext(width, height)
	dc.SetHexColor(background)
	dc.Clear()

	dc.SetHexColor(foreground)
	dc.SetLineWidth(stroke)
	dc.DrawRoundedRectangle(x, y, size, size, stroke*2)
	dc.Stroke()

	dc.DrawCircle(x+size*0.32, y+size*0.32, size*0.1)
	dc.Fill()

	dc.MoveTo(x+size*0.12, y+size*0.85)
	dc.LineTo(x+size*0.4, y+size*0.5)
	dc.LineTo(x+size*0.58, y+size*0.68)
	dc.LineTo(x+size*0.7, y+size*0.58)
	dc.LineTo(x+size*0.88, y+size*0.85)
	dc.ClosePath()
	dc.Fill()

	return dc.Image()
}
