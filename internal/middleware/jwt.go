package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-hub/internal/authz"
)

// actorKey is the context key under which the resolved actor is stored.
const actorKey = "actor"

// JWTAuth returns an Echo middleware that validates a Bearer access
// token and stores the resulting actor in the request context.
// Requests without a valid token are rejected with 401. The provided
// secret must match the one used when issuing tokens.
func JWTAuth(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			actor, ok := actorFromHeader(c, secret)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid or missing bearer token"})
			}
			c.Set(actorKey, actor)
			return next(c)
		}
	}
}

// OptionalJWT resolves the actor when a valid Bearer token is present
// and falls back to the anonymous actor otherwise. Read endpoints use
// it so public resources stay reachable without credentials while
// authenticated users get their private-event visibility.
func OptionalJWT(secret string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if actor, ok := actorFromHeader(c, secret); ok {
				c.Set(actorKey, actor)
			} else {
				c.Set(actorKey, authz.Anonymous)
			}
			return next(c)
		}
	}
}

// Actor returns the actor stored by JWTAuth or OptionalJWT, defaulting
// to anonymous when neither ran.
func Actor(c echo.Context) authz.Actor {
	if a, ok := c.Get(actorKey).(authz.Actor); ok {
		return a
	}
	return authz.Anonymous
}

// actorFromHeader parses and validates the Authorization header.
func actorFromHeader(c echo.Context, secret string) (authz.Actor, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return authz.Anonymous, false
	}
	raw := strings.TrimPrefix(auth, "Bearer ")

	// Parse the token using the HS256 signing method and our secret.
	// Tokens signed with any other algorithm are rejected.
	tok, err := jwt.Parse(raw, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, echo.ErrUnauthorized
		}
		return []byte(secret), nil
	})
	if err != nil || !tok.Valid {
		return authz.Anonymous, false
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return authz.Anonymous, false
	}
	// The sub claim round-trips through JSON as float64.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return authz.Anonymous, false
	}
	return authz.Actor{ID: uint64(sub), Authenticated: true}, true
}
