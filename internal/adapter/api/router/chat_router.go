package router

import (
	"github.com/labstack/echo/v4"

	"pawcare/internal/adapter/api/handler"
	"pawcare/internal/adapter/api/middleware"
)

// SetupChatRouter wires all chat endpoints (excluding the websocket stream).
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate) // every chat endpoint requires an identity

	chatGroup.POST("", chatHandler.GetOrCreateChat)        // POST /v1/chats - get or create the chat for a booking
	chatGroup.GET("", chatHandler.GetUserChats)            // GET /v1/chats - caller's chats, latest activity first
	chatGroup.DELETE("/:id", chatHandler.DeleteChat)       // DELETE /v1/chats/:id
	chatGroup.PUT("/:id/read", chatHandler.MarkChatAsRead) // PUT /v1/chats/:id/read

	chatGroup.POST("/:id/messages", chatHandler.SendMessage)    // POST /v1/chats/:id/messages
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages) // GET /v1/chats/:id/messages
}
