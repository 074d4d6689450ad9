package respond

import (
	"fmt"
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
)

// Response headers set on screenshot responses.
const (
	HeaderErrorMessage = "x-error-message"
	HeaderTruncated    = "x-capture-truncated"
)

// Error represents a standard structure for error responses.
type Error struct {
	Message string `json:"message"`
}

// Image sends raw image bytes with a public Cache-Control header.
func Image(c *ginext.Context, contentType string, body []byte, maxAge time.Duration) {
	c.Header("Cache-Control", cacheControl(maxAge))
	c.Data(http.StatusOK, contentType, body)
}

// Placeholder sends a placeholder image with status 200 and the failure
// reason in the x-error-message header.
func Placeholder(c *ginext.Context, contentType string, body []byte, message string, maxAge time.Duration) {
	c.Header(HeaderErrorMessage, headerSafe(message))
	Image(c, contentType, body, maxAge)
}

// Fail sends an error JSON response with the specified HTTP status code.
// The error message is wrapped in an Error struct.
func Fail(c *ginext.Context, status int, err error) {
	c.JSON(status, Error{Message: err.Error()})
}

func cacheControl(maxAge time.Duration) string {
	return fmt.Sprintf("public, max-age=%d", int(maxAge.Seconds()))
}

// headerSafe drops control characters that would break the header line.
func headerSafe(s string) string {
	out := make([]rune, 0, len(s))
	for _, r := range s {
		if r < 0x20 || r == 0x7f {
			r = ' '
		}
		out = append(out, r)
	}

	return string(out)
}
