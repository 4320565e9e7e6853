// Package router wires handlers and middleware onto the echo instance.
package router

import (
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/emprestaae/empresta-api/internal/handler"
	"github.com/emprestaae/empresta-api/internal/middleware"
)

// Handlers groups everything the routes dispatch to.
type Handlers struct {
	Auth       *handler.AuthHandler
	Users      *handler.UserHandler
	Categories *handler.CategoryHandler
	Items      *handler.ItemHandler
	Loans      *handler.LoanHandler
	Messages   *handler.MessageHandler
	Reviews    *handler.ReviewHandler
	DB         handler.Pinger
}

// Middleware carries the configured per-route middleware.  Global
// middleware is installed by the caller.
type Middleware struct {
	Tokens     middleware.TokenParser
	Cache      echo.MiddlewareFunc
	Invalidate echo.MiddlewareFunc
	RateLimit  echo.MiddlewareFunc
}

func passthrough(next echo.HandlerFunc) echo.HandlerFunc { return next }

func (m *Middleware) defaults() {
	if m.Cache == nil {
		m.Cache = passthrough
	}
	if m.Invalidate == nil {
		m.Invalidate = passthrough
	}
	if m.RateLimit == nil {
		m.RateLimit = passthrough
	}
}

// Register mounts the whole API.
func Register(e *echo.Echo, h Handlers, m Middleware) {
	m.defaults()

	e.GET("/healthz", handler.Health(h.DB))
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))

	v1 := e.Group("/v1", m.RateLimit)
	registerAuth(v1, h, m)
	registerCatalog(v1, h, m)
	registerAccount(v1, h, m)
}

// registerAuth mounts session endpoints.  Register, login, refresh and
// logout work without an access token; logout takes the refresh token in
// the body.
func registerAuth(v1 *echo.Group, h Handlers, m Middleware) {
	g := v1.Group("/auth")
	g.POST("/register", h.Auth.Register)
	g.POST("/login", h.Auth.Login)
	g.POST("/refresh", h.Auth.Refresh)
	g.POST("/logout", h.Auth.Logout)
	g.POST("/logout-all", h.Auth.LogoutAll, middleware.JWTAuth(m.Tokens))
}
