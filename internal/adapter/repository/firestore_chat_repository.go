package repository

import (
	"context"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"pawcare/internal/domain/entity"
	"pawcare/internal/domain/repository"
	"pawcare/pkg/errors"
	"pawcare/pkg/logger"
)

// Firestore batches top out at 500 writes; message deletes are chunked to
// stay under it.
const maxBatchWrites = 500

type firestoreChatRepository struct {
	client *firestore.Client
}

func NewFirestoreChatRepository(client *firestore.Client) repository.ChatRepository {
	return &firestoreChatRepository{
		client: client,
	}
}

func (r *firestoreChatRepository) chatDoc(id string) *firestore.DocumentRef {
	return r.client.Collection("chats").Doc(id)
}

func (r *firestoreChatRepository) messages(chatID string) *firestore.CollectionRef {
	return r.chatDoc(chatID).Collection("messages")
}

func (r *firestoreChatRepository) Create(ctx context.Context, chat *entity.Chat) error {
	chat.Participants = chat.NormalizedParticipants()

	// Timestamps stay zero so the serverTimestamp tags resolve on write. No
	// conditional create: concurrent first-callers compute identical content,
	// so last-writer-wins is benign here.
	if _, err := r.chatDoc(chat.ID).Set(ctx, chat); err != nil {
		return errors.FirestoreError("Failed to create chat", err)
	}

	// The caller gets the freshly-built representation back without a
	// re-read, so approximate the server clock locally.
	now := time.Now()
	chat.CreatedAt = now
	chat.UpdatedAt = now
	chat.LastMessageAt = now

	return nil
}

func (r *firestoreChatRepository) GetByID(ctx context.Context, id string) (*entity.Chat, error) {
	doc, err := r.chatDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, errors.NotFound("Chat", err)
		}
		return nil, errors.FirestoreError("Failed to get chat", err)
	}

	var chat entity.Chat
	if err := doc.DataTo(&chat); err != nil {
		return nil, errors.FirestoreError("Failed to parse chat data", err)
	}
	chat.ID = doc.Ref.ID

	if !chat.Valid() {
		return nil, errors.InvalidChatData("Chat document is missing participant data", nil)
	}

	return &chat, nil
}

func (r *firestoreChatRepository) ListByUserID(ctx context.Context, userID string) ([]*entity.Chat, error) {
	query := r.client.Collection("chats").
		Where("participants", "array-contains", userID).
		OrderBy("lastMessageAt", firestore.Desc)

	docs, err := query.Documents(ctx).GetAll()
	if err != nil {
		logger.Error("Firestore error while fetching chats for user %s: %v", userID, err)
		return nil, errors.FirestoreError("Failed to fetch chats", err)
	}

	var chats []*entity.Chat
	for _, doc := range docs {
		var chat entity.Chat
		if err := doc.DataTo(&chat); err != nil {
			logger.Warn("Skipping malformed chat %s for user %s: %v", doc.Ref.ID, userID, err)
			continue
		}
		chat.ID = doc.Ref.ID
		chats = append(chats, &chat)
	}

	return chats, nil
}

func (r *firestoreChatRepository) Delete(ctx context.Context, id string) error {
	refs, err := r.messages(id).DocumentRefs(ctx).GetAll()
	if err != nil {
		return errors.FirestoreError("Failed to list messages for deletion", err)
	}

	// Messages go first in chunks; the chat document rides in the final
	// batch so it only disappears once its sub-collection is gone.
	for len(refs) > maxBatchWrites-1 {
		batch := r.client.Batch()
		for _, ref := range refs[:maxBatchWrites] {
			batch.Delete(ref)
		}
		if _, err := batch.Commit(ctx); err != nil {
			return errors.FirestoreError("Failed to delete chat messages", err)
		}
		refs = refs[maxBatchWrites:]
	}

	batch := r.client.Batch()
	for _, ref := range refs {
		batch.Delete(ref)
	}
	batch.Delete(r.chatDoc(id))
	if _, err := batch.Commit(ctx); err != nil {
		return errors.FirestoreError("Failed to delete chat", err)
	}

	return nil
}

func (r *firestoreChatRepository) AppendMessage(ctx context.Context, chat *entity.Chat, message *entity.Message) error {
	if message.ID == "" {
		message.ID = uuid.New().String()
	}
	message.ChatID = chat.ID
	if message.ReadBy == nil {
		message.ReadBy = make(map[string]bool)
	}
	message.ReadBy[message.SenderID] = true

	counterField, ok := chat.UnreadFieldFor(message.ReceiverID)
	if !ok {
		return errors.Forbidden("Receiver is not a participant in this chat", nil)
	}

	batch := r.client.Batch()
	batch.Set(r.messages(chat.ID).Doc(message.ID), message)
	batch.Update(r.chatDoc(chat.ID), []firestore.Update{
		{Path: "lastMessage", Value: map[string]interface{}{
			"id":        message.ID,
			"senderId":  message.SenderID,
			"text":      entity.MessagePreview(message.Text),
			"timestamp": firestore.ServerTimestamp,
		}},
		{Path: "lastMessageAt", Value: firestore.ServerTimestamp},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
		{Path: counterField, Value: firestore.Increment(1)},
	})

	// Sending also clears the sender's own backlog of unread incoming
	// messages, saving the round trip of a separate read-tracking call. The
	// receiver's counter increment above is an independent counter, so both
	// belong in the same batch without cancelling out.
	if _, err := r.addReadSweep(ctx, batch, chat.ID, message.SenderID); err != nil {
		return err
	}

	if _, err := batch.Commit(ctx); err != nil {
		return errors.FirestoreError("Failed to deliver message", err)
	}

	// Stored timestamp is server-resolved; the returned value carries a
	// local approximation.
	message.Timestamp = time.Now()

	return nil
}

func (r *firestoreChatRepository) GetMessagesByChat(ctx context.Context, chatID string) ([]*entity.Message, error) {
	iter := r.messages(chatID).OrderBy("timestamp", firestore.Asc).Documents(ctx)
	defer iter.Stop()

	var messages []*entity.Message
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			logger.Error("Firestore error while iterating messages for chat %s: %v", chatID, err)
			return nil, errors.FirestoreError("Failed to iterate messages", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s in chat %s: %v", doc.Ref.ID, chatID, err)
			continue
		}
		message.ID = doc.Ref.ID
		messages = append(messages, &message)
	}

	return messages, nil
}

func (r *firestoreChatRepository) MarkMessagesAsRead(ctx context.Context, chat *entity.Chat, userID string) error {
	counterField, ok := chat.UnreadFieldFor(userID)
	if !ok {
		return errors.Forbidden("User is not a participant in this chat", nil)
	}

	batch := r.client.Batch()
	batch.Update(r.chatDoc(chat.ID), []firestore.Update{
		{Path: counterField, Value: 0},
		{Path: "updatedAt", Value: firestore.ServerTimestamp},
	})

	if _, err := r.addReadSweep(ctx, batch, chat.ID, userID); err != nil {
		return err
	}

	if _, err := batch.Commit(ctx); err != nil {
		return errors.FirestoreError("Failed to mark messages as read", err)
	}

	return nil
}

// addReadSweep scans the chat's messages newest-first and queues a
// readBy[userID]=true update for every unread message not authored by userID.
// Full-collection scan: acceptable because chats are scoped to one booking
// and short-lived.
func (r *firestoreChatRepository) addReadSweep(ctx context.Context, batch *firestore.WriteBatch, chatID, userID string) (int, error) {
	iter := r.messages(chatID).OrderBy("timestamp", firestore.Desc).Documents(ctx)
	defer iter.Stop()

	swept := 0
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return 0, errors.FirestoreError("Failed to scan messages for read sweep", err)
		}

		var message entity.Message
		if err := doc.DataTo(&message); err != nil {
			logger.Warn("Skipping malformed message %s in chat %s: %v", doc.Ref.ID, chatID, err)
			continue
		}
		if !message.UnreadFor(userID) {
			continue
		}

		batch.Update(doc.Ref, []firestore.Update{
			{FieldPath: firestore.FieldPath{"readBy", userID}, Value: true},
		})
		swept++
	}

	return swept, nil
}

func (r *firestoreChatRepository) SetUnreadCounters(ctx context.Context, chatID string, clientUnread, contractorUnread int64) error {
	_, err := r.chatDoc(chatID).Update(ctx, []firestore.Update{
		{Path: "clientUnreadMessages", Value: clientUnread},
		{Path: "contractorUnreadMessages", Value: contractorUnread},
	})
	if err != nil {
		return errors.FirestoreError("Failed to write unread counters", err)
	}
	return nil
}

func (r *firestoreChatRepository) ListenMessages(ctx context.Context, chatID string, fn func(messages []*entity.Message) error) error {
	snaps := r.messages(chatID).OrderBy("timestamp", firestore.Asc).Snapshots(ctx)
	defer snaps.Stop()

	for {
		snap, err := snaps.Next()
		if err != nil {
			if ctx.Err() != nil || status.Code(err) == codes.Canceled {
				return nil
			}
			return errors.FirestoreError("Message subscription failed", err)
		}

		docs, err := snap.Documents.GetAll()
		if err != nil {
			return errors.FirestoreError("Failed to read message snapshot", err)
		}

		// Full rebuild per snapshot, not a diff.
		messages := make([]*entity.Message, 0, len(docs))
		for _, doc := range docs {
			var message entity.Message
			if err := doc.DataTo(&message); err != nil {
				logger.Warn("Skipping malformed message %s in chat %s: %v", doc.Ref.ID, chatID, err)
				continue
			}
			message.ID = doc.Ref.ID
			messages = append(messages, &message)
		}

		if err := fn(messages); err != nil {
			return err
		}
	}
}
