package server

import (
	"net/http"
	"time"

	"github.com/wb-go/wbf/ginext"
)

// New builds the HTTP server. The write timeout leaves room for the longest
// capture plus placeholder rendering.
func New(addr string, router *ginext.Engine) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           router,
		ReadTimeout:       5 * time.Second,
		WriteTimeout:      20 * time.Second,
		IdleTimeout:       120 * time.Second,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
