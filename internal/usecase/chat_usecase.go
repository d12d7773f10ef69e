package usecase

import (
	"context"
	"time"

	"pawcare/internal/domain/entity"
	"pawcare/internal/domain/repository"
	"pawcare/internal/infrastructure/ratelimit"
	"pawcare/pkg/errors"
	"pawcare/pkg/logger"
	"pawcare/pkg/metrics"
)

// ChatUseCase carries the whole messaging core: chat lifecycle keyed to a
// booking, message delivery, read tracking and the real-time stream glue.
type ChatUseCase struct {
	chatRepo      repository.ChatRepository
	bookingStatus BookingStatusProvider
	rateLimiter   *ratelimit.RateLimiter
}

// NewChatUseCase wires the messaging core. bookingStatus may be nil, in which
// case sends are not gated on booking state and the gate stays a UI concern.
func NewChatUseCase(chatRepo repository.ChatRepository, bookingStatus BookingStatusProvider) *ChatUseCase {
	rateLimiter := ratelimit.NewRateLimiter()
	rateLimiter.StartCleanupRoutine()

	return &ChatUseCase{
		chatRepo:      chatRepo,
		bookingStatus: bookingStatus,
		rateLimiter:   rateLimiter,
	}
}

type GetOrCreateChatInput struct {
	BookingID        string
	ClientID         string
	ClientName       string
	ClientAvatar     string
	ContractorID     string
	ContractorName   string
	ContractorAvatar string
}

type SendMessageInput struct {
	ChatID     string
	SenderID   string
	ReceiverID string
	Text       string
}

// LastMessageResponse mirrors the chat's preview snapshot with the timestamp
// flattened to epoch millis.
type LastMessageResponse struct {
	ID        string `json:"id"`
	SenderID  string `json:"sender_id"`
	Text      string `json:"text"`
	Timestamp int64  `json:"timestamp"`
}

type ChatResponse struct {
	*entity.Chat
	LastMessage   *LastMessageResponse `json:"last_message,omitempty"`
	CreatedAt     int64                `json:"created_at"`
	UpdatedAt     int64                `json:"updated_at"`
	LastMessageAt int64                `json:"last_message_at"`
}

type MessageResponse struct {
	*entity.Message
	Timestamp int64 `json:"timestamp"`
}

// ChatSnapshot is one push of the real-time stream: the full rebuilt message
// list for the chat, ascending by send time.
type ChatSnapshot struct {
	ChatID   string             `json:"chat_id"`
	Messages []*MessageResponse `json:"messages"`
}

// epochMillis converts a store timestamp for presentation, tolerating fields
// left unset by a partial write by defaulting to now.
func epochMillis(t time.Time) int64 {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UnixMilli()
}

func toChatResponse(chat *entity.Chat) *ChatResponse {
	resp := &ChatResponse{
		Chat:          chat,
		CreatedAt:     epochMillis(chat.CreatedAt),
		UpdatedAt:     epochMillis(chat.UpdatedAt),
		LastMessageAt: epochMillis(chat.LastMessageAt),
	}
	if chat.LastMessage != nil {
		resp.LastMessage = &LastMessageResponse{
			ID:        chat.LastMessage.ID,
			SenderID:  chat.LastMessage.SenderID,
			Text:      chat.LastMessage.Text,
			Timestamp: epochMillis(chat.LastMessage.Timestamp),
		}
	}
	return resp
}

func toMessageResponse(message *entity.Message) *MessageResponse {
	return &MessageResponse{
		Message:   message,
		Timestamp: epochMillis(message.Timestamp),
	}
}

// GetOrCreateChat returns the chat for a booking, creating it lazily on first
// call. The caller must be one of the two named participants.
func (uc *ChatUseCase) GetOrCreateChat(ctx context.Context, callerID string, input GetOrCreateChatInput) (*ChatResponse, error) {
	if callerID == "" {
		return nil, errors.Unauthenticated("Authentication required", nil)
	}
	if callerID != input.ClientID && callerID != input.ContractorID {
		logger.Warn("GetOrCreateChat: user %s is not a participant of booking %s", callerID, input.BookingID)
		return nil, errors.Forbidden("User is not a participant of this booking", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.BookingID)
	if err == nil {
		// The stored participants are authoritative for an existing chat;
		// the request naming the caller as a party is not enough.
		if !chat.IsParticipant(callerID) {
			logger.Warn("GetOrCreateChat: user %s is not a participant in chat %s", callerID, chat.ID)
			return nil, errors.Forbidden("User is not a participant in this chat", nil)
		}
		return toChatResponse(chat), nil
	}
	if !errors.Is(err, "NOT_FOUND") {
		logger.Error("GetOrCreateChat: failed to look up chat %s: %v", input.BookingID, err)
		return nil, err
	}

	if allowed, _ := uc.rateLimiter.Allow(callerID, "create_chat"); !allowed {
		logger.Warn("GetOrCreateChat rate limited: user %s", callerID)
		return nil, errors.TooManyRequests("Too many chats created, please wait")
	}

	newChat := &entity.Chat{
		ID: input.BookingID,
		Client: entity.Participant{
			ID:        input.ClientID,
			Name:      input.ClientName,
			AvatarURL: input.ClientAvatar,
		},
		Contractor: entity.Participant{
			ID:        input.ContractorID,
			Name:      input.ContractorName,
			AvatarURL: input.ContractorAvatar,
		},
	}

	if err := uc.chatRepo.Create(ctx, newChat); err != nil {
		logger.Error("GetOrCreateChat: failed to create chat %s: %v", input.BookingID, err)
		return nil, err
	}
	metrics.ChatsCreated.Inc()

	return toChatResponse(newChat), nil
}

// SendMessage appends a message and maintains the chat's denormalized state
// in one atomic batch. The chat id doubles as the booking id, so when a
// booking status provider is wired the send is refused for closed bookings.
func (uc *ChatUseCase) SendMessage(ctx context.Context, callerID string, input SendMessageInput) (*MessageResponse, error) {
	if callerID == "" {
		return nil, errors.Unauthenticated("Authentication required", nil)
	}
	if input.SenderID != callerID {
		logger.Warn("SendMessage: caller %s tried to send as %s", callerID, input.SenderID)
		return nil, errors.Forbidden("Sender must be the authenticated user", nil)
	}

	if allowed, _ := uc.rateLimiter.Allow(callerID, "send_message"); !allowed {
		logger.Warn("SendMessage rate limited: user %s", callerID)
		return nil, errors.TooManyRequests("Too many messages, please slow down")
	}

	chat, err := uc.chatRepo.GetByID(ctx, input.ChatID)
	if err != nil {
		logger.Error("SendMessage: chat %s lookup failed: %v", input.ChatID, err)
		return nil, err
	}

	if !chat.IsParticipant(callerID) {
		logger.Warn("SendMessage: user %s is not a participant in chat %s", callerID, input.ChatID)
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}
	other, ok := chat.OtherParticipant(callerID)
	if !ok || input.ReceiverID != other.ID {
		return nil, errors.Forbidden("Receiver is not the other participant of this chat", nil)
	}

	if uc.bookingStatus != nil {
		status, err := uc.bookingStatus.BookingStatus(ctx, chat.ID)
		if err != nil {
			// The gate is best-effort when the booking system is
			// unreachable; the original system never enforced it at
			// write time at all.
			logger.Warn("SendMessage: booking status lookup failed for %s: %v", chat.ID, err)
		} else if !entity.IsOpenBookingStatus(status) {
			logger.Warn("SendMessage: booking %s is closed (status %q)", chat.ID, status)
			return nil, errors.Forbidden("Booking no longer accepts messages", nil)
		}
	}

	message := &entity.Message{
		ChatID:     chat.ID,
		SenderID:   input.SenderID,
		ReceiverID: input.ReceiverID,
		Text:       input.Text,
	}

	if err := uc.chatRepo.AppendMessage(ctx, chat, message); err != nil {
		logger.Error("SendMessage: failed to deliver message in chat %s: %v", chat.ID, err)
		return nil, err
	}
	metrics.MessagesSent.Inc()

	return toMessageResponse(message), nil
}

// GetChatMessages lists a chat's messages ascending by send time. Since the
// full sub-collection is already in hand, it also recomputes both unread
// counters from the readBy maps and heals any drift on the chat document.
func (uc *ChatUseCase) GetChatMessages(ctx context.Context, callerID, chatID string) ([]*MessageResponse, error) {
	if callerID == "" {
		return nil, errors.Unauthenticated("Authentication required", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		logger.Error("GetChatMessages: chat %s lookup failed: %v", chatID, err)
		return nil, err
	}
	if !chat.IsParticipant(callerID) {
		logger.Warn("GetChatMessages: user %s is not a participant in chat %s", callerID, chatID)
		return nil, errors.Forbidden("User is not a participant in this chat", nil)
	}

	messages, err := uc.chatRepo.GetMessagesByChat(ctx, chatID)
	if err != nil {
		logger.Error("GetChatMessages: failed to get messages for chat %s: %v", chatID, err)
		return nil, err
	}

	uc.reconcileUnreadCounters(ctx, chat, messages)

	responses := make([]*MessageResponse, 0, len(messages))
	for _, message := range messages {
		responses = append(responses, toMessageResponse(message))
	}
	return responses, nil
}

// reconcileUnreadCounters recounts both participants' unread messages from
// the readBy maps and rewrites the chat counters when they drifted. Counter
// increments and sweeps are bundled only by batch atomicity, never verified
// against each other, so drift is possible and healed here. Best effort.
func (uc *ChatUseCase) reconcileUnreadCounters(ctx context.Context, chat *entity.Chat, messages []*entity.Message) {
	var clientUnread, contractorUnread int64
	for _, message := range messages {
		if message.UnreadFor(chat.Client.ID) {
			clientUnread++
		}
		if message.UnreadFor(chat.Contractor.ID) {
			contractorUnread++
		}
	}

	if clientUnread == chat.ClientUnreadMessages && contractorUnread == chat.ContractorUnreadMessages {
		return
	}

	logger.Warn("Unread counter drift on chat %s: stored %d/%d, actual %d/%d",
		chat.ID, chat.ClientUnreadMessages, chat.ContractorUnreadMessages, clientUnread, contractorUnread)
	if err := uc.chatRepo.SetUnreadCounters(ctx, chat.ID, clientUnread, contractorUnread); err != nil {
		logger.Error("Failed to heal unread counters for chat %s: %v", chat.ID, err)
		return
	}
	chat.ClientUnreadMessages = clientUnread
	chat.ContractorUnreadMessages = contractorUnread
}

// GetUserChats lists the caller's chats, most recently active first.
func (uc *ChatUseCase) GetUserChats(ctx context.Context, callerID string) ([]*ChatResponse, error) {
	if callerID == "" {
		return nil, errors.Unauthenticated("Authentication required", nil)
	}

	chats, err := uc.chatRepo.ListByUserID(ctx, callerID)
	if err != nil {
		logger.Error("GetUserChats: failed to list chats for user %s: %v", callerID, err)
		return nil, err
	}

	responses := make([]*ChatResponse, 0, len(chats))
	for _, chat := range chats {
		responses = append(responses, toChatResponse(chat))
	}
	return responses, nil
}

// MarkMessagesAsRead clears the caller's unread state: zeroes their counter
// and flips readBy on every unread incoming message, atomically. A caller
// with nothing unread is a no-op, so repeated calls are harmless.
func (uc *ChatUseCase) MarkMessagesAsRead(ctx context.Context, callerID, chatID string) error {
	if callerID == "" {
		return errors.Unauthenticated("Authentication required", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		logger.Error("MarkMessagesAsRead: chat %s lookup failed: %v", chatID, err)
		return err
	}
	if !chat.IsParticipant(callerID) {
		logger.Warn("MarkMessagesAsRead: user %s is not a participant in chat %s", callerID, chatID)
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	if chat.UnreadFor(callerID) == 0 {
		return nil
	}

	if err := uc.chatRepo.MarkMessagesAsRead(ctx, chat, callerID); err != nil {
		logger.Error("MarkMessagesAsRead: failed for user %s in chat %s: %v", callerID, chatID, err)
		return err
	}
	metrics.ReadSweeps.Inc()

	return nil
}

// DeleteChat removes the chat and its messages. Either participant may
// delete.
func (uc *ChatUseCase) DeleteChat(ctx context.Context, callerID, chatID string) error {
	if callerID == "" {
		return errors.Unauthenticated("Authentication required", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		logger.Error("DeleteChat: chat %s lookup failed: %v", chatID, err)
		return err
	}
	if !chat.IsParticipant(callerID) {
		logger.Warn("DeleteChat: user %s is not a participant in chat %s", callerID, chatID)
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	if err := uc.chatRepo.Delete(ctx, chatID); err != nil {
		logger.Error("DeleteChat: failed to delete chat %s: %v", chatID, err)
		return err
	}

	return nil
}

// AuthorizeStream verifies the caller may open a live stream on the chat.
// Used by the transport before upgrading the connection, so a rejected
// viewer gets a proper error payload instead of a silent close.
func (uc *ChatUseCase) AuthorizeStream(ctx context.Context, callerID, chatID string) error {
	if callerID == "" {
		return errors.Unauthenticated("Authentication required", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		return err
	}
	if !chat.IsParticipant(callerID) {
		logger.Warn("AuthorizeStream: user %s is not a participant in chat %s", callerID, chatID)
		return errors.Forbidden("User is not a participant in this chat", nil)
	}
	return nil
}

// StreamMessages runs the live subscription for one viewer: every store
// snapshot is pushed as a full rebuilt message list, and any snapshot that
// carries unread messages from the other participant triggers a read sweep
// on the viewer's behalf. Blocks until ctx is done or push fails.
func (uc *ChatUseCase) StreamMessages(ctx context.Context, callerID, chatID string, push func(*ChatSnapshot) error) error {
	if callerID == "" {
		return errors.Unauthenticated("Authentication required", nil)
	}

	chat, err := uc.chatRepo.GetByID(ctx, chatID)
	if err != nil {
		logger.Error("StreamMessages: chat %s lookup failed: %v", chatID, err)
		return err
	}
	if !chat.IsParticipant(callerID) {
		logger.Warn("StreamMessages: user %s is not a participant in chat %s", callerID, chatID)
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	metrics.StreamSessions.Inc()
	defer metrics.StreamSessions.Dec()

	return uc.chatRepo.ListenMessages(ctx, chatID, func(messages []*entity.Message) error {
		responses := make([]*MessageResponse, 0, len(messages))
		hasUnread := false
		for _, message := range messages {
			if message.UnreadFor(callerID) {
				hasUnread = true
			}
			responses = append(responses, toMessageResponse(message))
		}

		if err := push(&ChatSnapshot{ChatID: chatID, Messages: responses}); err != nil {
			return err
		}

		if hasUnread {
			if err := uc.MarkMessagesAsRead(ctx, callerID, chatID); err != nil {
				// The stream stays up; the next load or push retries.
				logger.Error("StreamMessages: read sweep failed for user %s in chat %s: %v", callerID, chatID, err)
			}
		}
		return nil
	})
}
