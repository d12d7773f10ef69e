package router

import (
	"github.com/labstack/echo/v4"

	"pawcare/internal/adapter/api/handler"
)

// SetupWebSocketRouter wires the real-time message stream. Auth happens
// inside the handler via the token query param.
func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	e.GET("/v1/ws/chats/:id", wsHandler.StreamChat)
}
