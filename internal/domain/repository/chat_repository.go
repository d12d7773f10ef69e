package repository

import (
	"context"

	"pawcare/internal/domain/entity"
)

// ChatRepository is the persistence boundary for booking chats. Every
// mutating method that touches the chat's unread counters bundles the counter
// write and the readBy writes it accounts for into one atomic batch.
type ChatRepository interface {
	Create(ctx context.Context, chat *entity.Chat) error
	GetByID(ctx context.Context, id string) (*entity.Chat, error)
	ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error)

	// Delete removes the chat document and its entire message
	// sub-collection in a single batch.
	Delete(ctx context.Context, id string) error

	// AppendMessage commits one batch: the new message (server timestamp,
	// readBy seeded with the sender), the chat summary update with the
	// receiver's counter incremented, and the sender's own read sweep over
	// previously unread incoming messages.
	AppendMessage(ctx context.Context, chat *entity.Chat, message *entity.Message) error

	GetMessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error)

	// MarkMessagesAsRead commits one batch zeroing userID's unread counter
	// and flipping readBy[userID] on every unread message not authored by
	// them.
	MarkMessagesAsRead(ctx context.Context, chat *entity.Chat, userID string) error

	// SetUnreadCounters force-writes both counters, used by the
	// reconciliation pass to heal drift detected against the readBy maps.
	SetUnreadCounters(ctx context.Context, chatID string, clientUnread, contractorUnread int64) error

	// ListenMessages subscribes to the chat's message sub-collection
	// ordered by timestamp ascending and invokes fn with the full rebuilt
	// list on every snapshot. Blocks until ctx is done or the subscription
	// fails.
	ListenMessages(ctx context.Context, chatID string, fn func(messages []*entity.Message) error) error
}
