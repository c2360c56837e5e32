package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // Echo web framework

	"github.com/iliyamo/cinema-booking/internal/handler" // HTTP handlers
)

// RegisterRoutes registers routes that do not require authentication.
func RegisterRoutes(e *echo.Echo, health echo.HandlerFunc) {
	e.GET("/healthz", health)
}

// RegisterPublic registers the unauthenticated browse endpoints.  cache is
// applied to the concession menu only; seat availability is never cached.
func RegisterPublic(e *echo.Echo, p *handler.PublicHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.GET("/showtimes/:id/seats", p.SeatMap)
	g.GET("/showtimes/:id/occupied", p.OccupiedSeats)
	g.GET("/concessions", p.Concessions, cache)
}
