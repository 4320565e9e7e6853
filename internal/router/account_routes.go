package router

import (
	"github.com/labstack/echo/v4"

	"github.com/emprestaae/empresta-api/internal/middleware"
)

// registerAccount mounts every endpoint that acts as the authenticated
// user.
func registerAccount(v1 *echo.Group, h Handlers, m Middleware) {
	jwt := middleware.JWTAuth(m.Tokens)

	me := v1.Group("/me", jwt)
	me.GET("", h.Auth.Me)
	me.PATCH("", h.Users.UpdateMe)
	me.DELETE("", h.Users.DeleteMe)
	me.PUT("/location", h.Users.UpdateLocation)
	me.PUT("/password", h.Users.ChangePassword)
	me.GET("/items", h.Items.Mine)

	items := v1.Group("/items", jwt, m.Invalidate)
	items.POST("", h.Items.Create)
	items.PATCH("/:id", h.Items.Update)
	items.DELETE("/:id", h.Items.Delete)
	items.POST("/:id/images", h.Items.AddImage)
	items.PUT("/:id/images/:imageId/primary", h.Items.SetPrimaryImage)
	items.DELETE("/:id/images/:imageId", h.Items.DeleteImage)
	items.GET("/:id/availability", h.Loans.Availability)

	loans := v1.Group("/loans", jwt)
	loans.POST("", h.Loans.Create)
	loans.GET("", h.Loans.List)
	loans.GET("/stats", h.Loans.Stats)
	loans.GET("/:id", h.Loans.Get)
	loans.PATCH("/:id/status", h.Loans.UpdateStatus)

	msgs := v1.Group("/messages", jwt)
	msgs.POST("", h.Messages.Send)
	msgs.GET("/conversations", h.Messages.Conversations)
	msgs.GET("/conversations/:userId", h.Messages.Conversation)
	msgs.PUT("/read", h.Messages.MarkRead)
	msgs.GET("/unread-count", h.Messages.UnreadCount)

	v1.POST("/reviews", h.Reviews.Create, jwt)
}
