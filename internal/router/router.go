package router // package router defines how HTTP routes are registered for the API

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/handler"
	"github.com/iliyamo/event-hub/internal/middleware"
)

// RegisterRoutes registers routes that carry no authentication at
// all. Currently it exposes only a health check, used by load
// balancers and monitoring to verify the service is up.
func RegisterRoutes(e *echo.Echo) {
	e.GET("/healthz", handler.Health)
}

// RegisterAuth registers the authentication endpoints. Register,
// login, refresh and logout live under /v1/auth and need no session;
// /v1/me requires a valid access token.
func RegisterAuth(e *echo.Echo, a *handler.AuthHandler, jwtSecret string) {
	g := e.Group("/v1/auth")
	g.POST("/register", a.Register)
	g.POST("/login", a.Login)
	g.POST("/refresh", a.Refresh)
	g.POST("/logout", a.Logout)

	me := e.Group("/v1")
	me.Use(middleware.JWTAuth(jwtSecret))
	me.GET("/me", a.Me)
}

// RegisterEvents wires the event, RSVP and review endpoints.
//
// Read endpoints take OptionalJWT: anonymous callers may browse
// public events, while a valid token unlocks the caller's private
// ones. Every write endpoint requires a token; ownership and
// visibility beyond that are the coordinator's business, so no role
// checks happen at the routing layer.
func RegisterEvents(e *echo.Echo, ev *handler.EventHandler, rs *handler.RSVPHandler, rv *handler.ReviewHandler, jwtSecret string) {
	read := e.Group("/v1")
	read.Use(middleware.OptionalJWT(jwtSecret))
	read.GET("/events", ev.List)
	read.GET("/events/:id", ev.Get)
	read.GET("/events/:id/rsvps", rs.ListByEvent)
	read.GET("/events/:id/reviews", rv.ListByEvent)

	write := e.Group("/v1")
	write.Use(middleware.JWTAuth(jwtSecret))
	write.POST("/events", ev.Create)
	write.PATCH("/events/:id", ev.Update)
	write.DELETE("/events/:id", ev.Delete)
	write.PUT("/events/:id/rsvp", rs.Upsert)
	write.DELETE("/events/:id/rsvp", rs.Delete)
	write.PUT("/events/:id/review", rv.Upsert)
	write.DELETE("/events/:id/review", rv.Delete)
}

// RegisterProfile wires the caller-scoped profile endpoints.
func RegisterProfile(e *echo.Echo, p *handler.ProfileHandler, jwtSecret string) {
	g := e.Group("/v1")
	g.Use(middleware.JWTAuth(jwtSecret))
	g.GET("/profile", p.Get)
	g.PUT("/profile", p.Update)
}
