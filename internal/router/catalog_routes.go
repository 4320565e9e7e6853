package router

import (
	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/middleware"
)

// registerCatalog mounts the public reads.  A token, when sent, only
// personalises distances; anonymous item reads go through the response
// cache.
func registerCatalog(v1 *echo.Group, h Handlers, m Middleware) {
	optional := middleware.OptionalJWT(m.Tokens)

	v1.GET("/categories", h.Categories.List)
	v1.GET("/categories/:id", h.Categories.Get)
	v1.GET("/categories/:id/stats", h.Categories.Stats)

	items := v1.Group("/items", optional)
	items.GET("", h.Items.Search, m.Cache)
	items.GET("/nearby", h.Items.Nearby, m.Cache)
	items.GET("/:id", h.Items.Get, m.Cache)

	users := v1.Group("/users")
	users.GET("/nearby", h.Users.Nearby)
	users.GET("/:id", h.Users.GetUser)
	users.GET("/:id/stats", h.Users.Stats)
	users.GET("/:id/reviews", h.Reviews.ForUser)
	users.GET("/:id/rating", h.Reviews.Rating)

	v1.GET("/reviews/:id", h.Reviews.Get)
}
