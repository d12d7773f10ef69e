package handler

import (
	"context"
	"encoding/json"
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"

	"pawcare/internal/infrastructure/firebase"
	ws "pawcare/internal/infrastructure/websocket"
	"pawcare/internal/usecase"
	"pawcare/pkg/errors"
	"pawcare/pkg/logger"
	"pawcare/pkg/response"
)

// WebSocketHandler is the transport end of the real-time sync bridge: one
// authenticated connection per viewer per chat, fed by the store's live
// message subscription.
type WebSocketHandler struct {
	wsManager   *ws.Manager
	authClient  *firebase.AuthClient
	chatUseCase *usecase.ChatUseCase
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // TODO: restrict to the marketplace origins before exposing publicly
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, authClient *firebase.AuthClient, chatUseCase *usecase.ChatUseCase) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:   wsManager,
		authClient:  authClient,
		chatUseCase: chatUseCase,
	}
}

// StreamChat upgrades the connection and pushes every message snapshot for
// the chat until the peer disconnects. Browsers cannot set headers on
// websocket dials, so the ID token arrives as a query param.
func (h *WebSocketHandler) StreamChat(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		return response.Error(c, errors.Unauthenticated("Token is required", nil))
	}

	userID, err := h.authClient.VerifyToken(c.Request().Context(), token)
	if err != nil {
		return response.Error(c, errors.Unauthenticated("Invalid or expired token", err))
	}

	chatID := c.Param("id")

	// Reject non-participants before committing to the upgrade, so they get
	// the usual error envelope rather than an upgraded-then-closed socket.
	if err := h.chatUseCase.AuthorizeStream(c.Request().Context(), userID, chatID); err != nil {
		return response.Error(c, err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return response.Error(c, errors.Internal("Failed to upgrade connection", err))
	}

	ctx, cancel := context.WithCancel(c.Request().Context())
	defer cancel()

	client := &ws.Client{
		UserID: userID,
		ChatID: chatID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
		Cancel: cancel,
	}
	h.wsManager.Register <- client

	go client.WritePump()
	go func() {
		client.ReadPump(h.wsManager)
		cancel()
	}()

	err = h.chatUseCase.StreamMessages(ctx, userID, chatID, func(snapshot *usecase.ChatSnapshot) error {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return errors.Internal("Failed to encode snapshot", err)
		}
		select {
		case client.Send <- payload:
			return nil
		case <-ctx.Done():
			return ctx.Err()
		}
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("Stream for user %s on chat %s ended: %v", userID, chatID, err)
	}

	// The stream is done and nothing can push anymore, so the sole producer
	// closes the queue. WritePump sends the close frame and shuts the
	// connection down.
	close(client.Send)
	return nil
}
