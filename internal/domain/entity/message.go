package entity

import "time"

// Message is one entry in a chat's message sub-collection. Messages are never
// edited or deleted; the only mutation ever applied is flipping a readBy key
// from absent/false to true.
type Message struct {
	ID         string          `json:"id" firestore:"id"`
	ChatID     string          `json:"chat_id" firestore:"chatId"`
	SenderID   string          `json:"sender_id" firestore:"senderId"`
	ReceiverID string          `json:"receiver_id" firestore:"receiverId"`
	Text       string          `json:"text" firestore:"text"`
	ReadBy     map[string]bool `json:"read_by" firestore:"readBy"`
	Timestamp  time.Time       `json:"timestamp" firestore:"timestamp,serverTimestamp"`
}

func (m *Message) IsReadBy(userID string) bool {
	return m.ReadBy[userID]
}

// UnreadFor reports whether the message is awaiting userID's read
// acknowledgment: authored by someone else and not yet marked read.
func (m *Message) UnreadFor(userID string) bool {
	return m.SenderID != userID && !m.ReadBy[userID]
}
