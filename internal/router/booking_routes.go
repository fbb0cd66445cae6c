package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/court-reservation/internal/handler"
)

// RegisterBookings registers the booking desk endpoints under /v1/bookings.
// All routes require an admin JWT.  limit is applied to the write routes
// only so availability polling is never throttled.
func RegisterBookings(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group("/v1/bookings", adminOnly(jwtSecret)...)
	g.GET("/availability", h.Availability)
	g.GET("", h.List)
	g.POST("", h.Create, limit)
	g.POST("/:id/cancel", h.Cancel, limit)
	g.POST("/:id/pay", h.Pay, limit)
	g.POST("/:id/refund", h.Refund, limit)
	g.PATCH("/:id", h.Patch, limit)
}
