package screenshot

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
	"github.com/wb-go/wbf/zlog"

	"github.com/aliskhannn/screenshot/internal/api/respond"
	"github.com/aliskhannn/screenshot/internal/model"
)

// service defines the interface for screenshot operations.
type service interface {
	Screenshot(ctx context.Context, rawPath string) model.CaptureResult
}

// placeholder renders the image served in place of a failed screenshot.
type placeholder interface {
	Render(width, height int) ([]byte, string, error)
}

// Handler provides the HTTP handler for screenshot requests.
type Handler struct {
	service       service
	placeholder   placeholder
	successMaxAge time.Duration
	failureMaxAge time.Duration
}

// NewHandler creates a new Handler.
func NewHandler(s service, p placeholder, successMaxAge, failureMaxAge time.Duration) *Handler {
	return &Handler{
		service:       s,
		placeholder:   p,
		successMaxAge: successMaxAge,
		failureMaxAge: failureMaxAge,
	}
}

// Get serves GET /<url>/[size]/[aspectratio]/[zoom]/[_cachebuster]/.
// Failures are answered with a placeholder image and status 200.
func (h *Handler) Get(c *ginext.Context) {
	// The escaped path keeps "%2F" inside the url segment intact.
	rawPath := c.Request.URL.EscapedPath()

	res := h.service.Screenshot(c.Request.Context(), rawPath)
	if res.OK() {
		if res.Truncated {
			c.Header(respond.HeaderTruncated, "true")
		}

		zlog.Logger.Info().
			Str("path", rawPath).
			Int("bytes", len(res.Image)).
			Bool("truncated", res.Truncated).
			Bool("cached", res.Cached).
			Msg("screenshot served")

		respond.Image(c, res.ContentType, res.Image, h.successMaxAge)
		return
	}

	body, contentType, err := h.placeholder.Render(res.Width, res.Height)
	if err != nil {
		zlog.Logger.Error().Err(err).Msg("failed to render placeholder")
		respond.Fail(c, http.StatusInternalServerError, fmt.Errorf("failed to render placeholder"))
		return
	}

	zlog.Logger.Info().
		Str("path", rawPath).
		Str("kind", string(res.Failure.Kind)).
		Msg("placeholder served")

	respond.Placeholder(c, contentType, body, res.Failure.Message, h.failureMaxAge)
}
