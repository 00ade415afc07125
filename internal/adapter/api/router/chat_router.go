package router

import (
	"github.com/labstack/echo/v4"

	"uninest/internal/adapter/api/handler"
	"uninest/internal/adapter/api/middleware"
)

func SetupChatRouter(e *echo.Echo, authMiddleware *middleware.AuthMiddleware) {
	chatHandler := handler.GetChatHandler()

	conversations := e.Group("/v1/conversations")
	conversations.Use(authMiddleware.Authenticate)

	conversations.POST("", chatHandler.StartConversation)
	conversations.GET("", chatHandler.ListConversations)
	conversations.GET("/:id", chatHandler.GetConversation)
	conversations.DELETE("/:id", chatHandler.DeactivateConversation)

	conversations.GET("/:id/messages", chatHandler.ListMessages)
	conversations.POST("/:id/messages", chatHandler.PostMessage)
	conversations.PATCH("/:id/messages/:messageId", chatHandler.EditMessage)
	conversations.POST("/:id/messages/:messageId/delivered", chatHandler.MarkDelivered)
	conversations.POST("/:id/messages/:messageId/read", chatHandler.MarkRead)
}
