package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4" // import the Echo web framework to handle routing

	"github.com/iliyamo/study-cafe-reservation/internal/handler"    // handlers that implement request logic
	"github.com/iliyamo/study-cafe-reservation/internal/middleware" // middleware for JWT authentication
)

// RegisterRoutes registers routes that do not require authentication.
// The health check serves load balancers and the seat status board is
// public so visitors can see availability before logging in.
func RegisterRoutes(e *echo.Echo, r *handler.ReservationHandler) {
	e.GET("/healthz", handler.Health)
	e.GET("/v1/reservations/seats", r.SeatStatuses)
}

// RegisterAuth registers registration and login under /v1/auth, plus
// the protected profile endpoint.  The jwtSecret must match the one
// used when issuing tokens.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)

	auth := e.Group("/v1")
	auth.Use(middleware.JWTAuth(jwtSecret))
	auth.GET("/me", a.Me)
}

// RegisterReservations registers the seat workflow endpoints.  All of
// them require a valid access token; the token's subject is the user
// identity used for lock ownership and reservation rows.
func RegisterReservations(e *echo.Echo, r *handler.ReservationHandler, jwtSecret string) {
	g := e.Group("/v1/reservations")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.POST("/pre-occupy", r.PreOccupy)
	g.POST("/confirm", r.Confirm)
	g.POST("/cancel", r.Cancel)
	g.POST("/end-use", r.EndUse)
	g.GET("/me", r.CurrentSeat)
}
