package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/handler"
)

// RegisterMembers registers member management under /v1/members.
func RegisterMembers(e *echo.Echo, h *handler.MemberHandler, jwtSecret string) {
	g := e.Group("/v1/members", adminOnly(jwtSecret)...)
	g.POST("", h.Create)
	g.GET("", h.List)
	g.GET("/:id", h.Get)
	g.POST("/:id/pay", h.Pay)
}
