package processor

import (
	"bytes"
	"errors"
	"fmt"
	"image"
	_ "image/jpeg"
	"image/png"

	"github.com/disintegration/imaging"
	_ "golang.org/x/image/webp"

	"github.com/aliskhannn/screenshot/internal/model"
)

// ErrUnsupportedFormat is returned when an image cannot be encoded in the requested format.
var ErrUnsupportedFormat = errors.New("unsupported output format")

// Processor encodes rendered images and inspects captured ones.
type Processor struct {
	jpegQuality int
}

// New creates a new Processor that encodes jpeg with the fixed capture quality.
func New() *Processor {
	return &Processor{jpegQuality: model.JPEGQuality}
}

// Encode encodes img in the given format.
// Only jpeg and png are supported; webp has no pure Go encoder.
func (p *Processor) Encode(img image.Image, format model.ImageFormat) ([]byte, error) {
	var f imaging.Format
	var opts []imaging.EncodeOption

	switch format {
	case model.FormatJPEG:
		f = imaging.JPEG
		opts = append(opts, imaging.JPEGQuality(p.jpegQuality))
	case model.FormatPNG:
		f = imaging.PNG
		opts = append(opts, imaging.PNGCompressionLevel(png.BestCompression))
	default:
		return nil, fmt.Errorf("encode %s: %w", format, ErrUnsupportedFormat)
	}

	// Encode into buffer.
	buf := bytes.NewBuffer(nil)
	if err := imaging.Encode(buf, img, f, opts...); err != nil {
		return nil, fmt.Errorf("failed to encode image: %w", err)
	}

	return buf.Bytes(), nil
}

// Inspect decodes only the header of data and returns its pixel size and format name.
// jpeg, png and webp are recognized.
func (p *Processor) Inspect(data []byte) (int, int, string, error) {
	cfg, format, err := image.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return 0, 0, "", fmt.Errorf("failed to decode image config: %w", err)
	}

	return cfg.Width, cfg.Height, format, nil
}
