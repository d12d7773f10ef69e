package handler

import (
	"github.com/labstack/echo/v4"

	"pawcare/internal/usecase"
	"pawcare/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type getOrCreateChatRequest struct {
	BookingID        string `json:"booking_id" validate:"required"`
	ClientID         string `json:"client_id" validate:"required"`
	ClientName       string `json:"client_name" validate:"required"`
	ClientAvatar     string `json:"client_avatar_url,omitempty" validate:"omitempty,url"`
	ContractorID     string `json:"contractor_id" validate:"required"`
	ContractorName   string `json:"contractor_name" validate:"required"`
	ContractorAvatar string `json:"contractor_avatar_url,omitempty" validate:"omitempty,url"`
}

type sendMessageRequest struct {
	SenderID   string `json:"sender_id" validate:"required"`
	ReceiverID string `json:"receiver_id" validate:"required"`
	Text       string `json:"text" validate:"required"`
}

func callerID(c echo.Context) string {
	uid, _ := c.Get("uid").(string)
	return uid
}

// GetOrCreateChat returns the chat for a booking, creating it on first use.
func (h *ChatHandler) GetOrCreateChat(c echo.Context) error {
	var req getOrCreateChatRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	chat, err := h.chatUseCase.GetOrCreateChat(c.Request().Context(), callerID(c), usecase.GetOrCreateChatInput{
		BookingID:        req.BookingID,
		ClientID:         req.ClientID,
		ClientName:       req.ClientName,
		ClientAvatar:     req.ClientAvatar,
		ContractorID:     req.ContractorID,
		ContractorName:   req.ContractorName,
		ContractorAvatar: req.ContractorAvatar,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetUserChats lists the caller's chats, most recently active first.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	chats, err := h.chatUseCase.GetUserChats(c.Request().Context(), callerID(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chats)
}

// GetChatMessages lists a chat's messages ascending by send time.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	messages, err := h.chatUseCase.GetChatMessages(c.Request().Context(), callerID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// SendMessage delivers a message into a chat.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), callerID(c), usecase.SendMessageInput{
		ChatID:     c.Param("id"),
		SenderID:   req.SenderID,
		ReceiverID: req.ReceiverID,
		Text:       req.Text,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkChatAsRead clears the caller's unread state for a chat.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	if err := h.chatUseCase.MarkMessagesAsRead(c.Request().Context(), callerID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, nil)
}

// DeleteChat removes a chat and its messages.
func (h *ChatHandler) DeleteChat(c echo.Context) error {
	if err := h.chatUseCase.DeleteChat(c.Request().Context(), callerID(c), c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, nil)
}
