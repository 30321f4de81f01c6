// Package router wires HTTP routes to their handlers and middleware.
package router

import (
	"github.com/labstack/echo/v4"

	"github.com/cinereserve/booking-engine/internal/handler"
	"github.com/cinereserve/booking-engine/internal/middleware"
)

// RegisterRoutes registers routes that require no authentication:
// the health check, the public availability endpoint and the
// signature-verified payment webhook.
func RegisterRoutes(e *echo.Echo, availability *handler.AvailabilityHandler, webhook *handler.WebhookHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/schedules/:id/availability", availability.GetAvailability)
	// Authenticated by HMAC signature, not JWT.
	e.POST("/v1/payments/webhook", webhook.HandlePayment)
}

// RegisterBooking registers the authenticated booking routes. Every
// route in the group runs the JWT middleware followed by the rate
// limiter, so the limiter can key buckets by user.
func RegisterBooking(e *echo.Echo, b *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	if limiter != nil {
		g.Use(limiter)
	}
	g.POST("/reservations", b.Reserve)
	g.GET("/bookings/:id", b.GetBooking)
	g.POST("/bookings/:id/confirm", b.Confirm)
}
