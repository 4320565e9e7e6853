package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
)

// TokenParser resolves a bearer access token to the user id it was issued
// for.
type TokenParser interface {
	Parse(raw string) (string, error)
}

func bearer(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get(echo.HeaderAuthorization)
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// JWTAuth rejects requests without a valid Bearer access token and stores
// the authenticated user id in the context (see UserID).
func JWTAuth(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := bearer(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			uid, err := tokens.Parse(raw)
			if err != nil || uid == "" {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid token"})
			}
			c.Set(userIDKey, uid)
			return next(c)
		}
	}
}

// OptionalJWT identifies the caller when a valid token is present and lets
// anonymous requests through untouched.  Public reads use it to personalise
// results such as distances.
func OptionalJWT(tokens TokenParser) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if raw, ok := bearer(c); ok {
				if uid, err := tokens.Parse(raw); err == nil && uid != "" {
					c.Set(userIDKey, uid)
				}
			}
			return next(c)
		}
	}
}
