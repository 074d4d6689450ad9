package middleware

import (
	"net/http"

	"github.com/wb-go/wbf/ginext"
)

// CORSMiddleware allows cross-origin reads so screenshots can be drawn to canvases.
func CORSMiddleware() func(*ginext.Context) {
	return func(c *ginext.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, HEAD, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		c.Header("Access-Control-Expose-Headers", "x-error-message, x-capture-truncated")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
