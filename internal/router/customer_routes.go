package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/cinema-booking/internal/handler"
	"github.com/iliyamo/cinema-booking/internal/middleware"
)

// RegisterCustomer registers customer-scoped endpoints under /v1.  All
// routes require a valid JWT and the CUSTOMER role; the mutating ones also
// go through limit.
func RegisterCustomer(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limit echo.MiddlewareFunc) {
	g := e.Group(
		"/v1",
		middleware.JWTAuth(jwtSecret),
		middleware.RequireRole("CUSTOMER"),
	)
	g.POST("/showtimes/:id/holds", h.HoldSeats, limit)
	g.DELETE("/showtimes/:id/holds", h.ReleaseHolds)
	g.POST("/showtimes/:id/bookings", h.CreateBooking, limit)

	g.GET("/bookings", h.ListBookings)
	g.GET("/bookings/:id", h.GetBooking)
	g.POST("/bookings/:id/pay", h.PayBooking, limit)
	g.POST("/bookings/:id/cancel", h.CancelBooking)
}
