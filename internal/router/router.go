// Package router wires the HTTP surface: public browse endpoints, the
// reservation lifecycle, and the ADMIN-only management group.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kiarashv/movie-ticketing/internal/handler"
	"github.com/kiarashv/movie-ticketing/internal/middleware"
)

// RegisterCore registers the health and metrics endpoints.  Both are
// unauthenticated; /metrics is expected to be firewalled off at the edge.
func RegisterCore(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
}

// RegisterBrowse registers the read-only public endpoints.  No identity is
// required: guests browse screenings and seat maps before deciding to hold.
// The cache middleware, when enabled, is applied here and nowhere else.
func RegisterBrowse(e *echo.Echo, b *handler.BrowseHandler, cache echo.MiddlewareFunc) {
	g := e.Group("/v1")
	if cache != nil {
		g.Use(cache)
	}
	g.GET("/screenings", b.ListScreenings)
	g.GET("/screenings/:id", b.GetScreening)
	g.GET("/screenings/:id/seats", b.SeatMap)
}

// RegisterBooking registers the reservation lifecycle.  The identity
// middleware runs on every route so logged-in users are attached to their
// reservations, but a missing token is fine: guests book with contact
// details in the request body.  The rate limiter, when enabled, guards the
// mutating endpoints.
func RegisterBooking(e *echo.Echo, h *handler.BookingHandler, jwtSecret string, limiter echo.MiddlewareFunc) {
	g := e.Group("/v1")
	g.Use(middleware.Identity(jwtSecret))
	if limiter != nil {
		g.Use(limiter)
	}

	g.POST("/screenings/:id/hold", h.HoldSeats)
	g.POST("/reservations/:id/payment", h.BeginPayment)
	g.POST("/reservations/:id/confirm", h.ConfirmPayment)
	g.POST("/reservations/:id/payment/fail", h.FailPayment)
	g.DELETE("/reservations/:id", h.Cancel)
	g.GET("/reservations/:id", h.GetReservation)
	g.GET("/reservations/code/:code", h.LookupByCode)
}

// RegisterAdmin registers screening management under /v1/admin.  Every
// route requires a valid token carrying the ADMIN role.
func RegisterAdmin(e *echo.Echo, a *handler.AdminHandler, jwtSecret string) {
	g := e.Group("/v1/admin")
	g.Use(middleware.Identity(jwtSecret))
	g.Use(middleware.RequireRole("ADMIN"))

	g.POST("/screenings", a.CreateScreening)
	g.POST("/screenings/:id/repair-seats", a.RepairSeats)
	g.GET("/screenings/:id/reservations", a.ListReservations)
}
