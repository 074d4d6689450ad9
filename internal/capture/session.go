package capture

import (
	"context"
	"time"

	"github.com/aliskhannn/screenshot/internal/model"
)

// Region is a capture rectangle in logical (CSS) pixels.
type Region struct {
	X, Y          int
	Width, Height int
}

// Session is one isolated page in a rendering engine.
type Session interface {
	SetScriptingEnabled(ctx context.Context, enabled bool) error
	// Navigate loads url and returns once every wait condition is met.
	Navigate(ctx context.Context, url string, wait []model.WaitCondition, timeout time.Duration) error
	StopLoading(ctx context.Context) error
	InjectStyle(ctx context.Context, css string) error
	RequestFontLoad(ctx context.Context, fontSpec string) error
	CaptureRegion(ctx context.Context, region Region, format model.ImageFormat, quality int) ([]byte, error)
	Close() error
}

// Launcher starts rendering sessions.
type Launcher interface {
	Launch(ctx context.Context, vp model.Viewport, deviceScaleFactor float64) (Session, error)
}

// inspector reports the pixel size of encoded image bytes.
type inspector interface {
	Inspect(data []byte) (width, height int, format string, err error)
}
