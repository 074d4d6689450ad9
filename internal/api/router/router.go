package router

import (
	"github.com/wb-go/wbf/ginext"

	"github.com/aliskhannn/screenshot/internal/api/handlers/screenshot"
	"github.com/aliskhannn/screenshot/internal/middleware"
)

func Setup(h *screenshot.Handler) *ginext.Engine {
	r := ginext.New()

	r.Use(middleware.CORSMiddleware())
	r.Use(ginext.Logger())
	r.Use(ginext.Recovery())

	// The whole path is the request: /<url>/[size]/[aspectratio]/[zoom]/[_cachebuster]/
	r.GET("/*path", h.Get)
	r.HEAD("/*path", h.Get)

	return r
}
