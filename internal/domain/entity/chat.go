package entity

import (
	"strings"
	"time"
)

// Participant is one of the two fixed parties on a booking chat. Set once at
// creation, never mutated afterwards.
type Participant struct {
	ID        string `json:"id" firestore:"id"`
	Name      string `json:"name" firestore:"name"`
	AvatarURL string `json:"avatar_url,omitempty" firestore:"avatarUrl,omitempty"`
}

// LastMessage is the denormalized preview snapshot stored on the chat.
type LastMessage struct {
	ID        string    `json:"id" firestore:"id"`
	SenderID  string    `json:"sender_id" firestore:"senderId"`
	Text      string    `json:"text" firestore:"text"`
	Timestamp time.Time `json:"timestamp" firestore:"timestamp"`
}

// Chat is the 1:1 conversation bound to exactly one booking; its document id
// equals the booking id. The unread counters are a derived view over the
// message sub-collection's readBy maps and are only ever changed in the same
// atomic batch as the readBy writes that justify them.
type Chat struct {
	ID                       string       `json:"id" firestore:"id"`
	Participants             []string     `json:"participants" firestore:"participants"`
	Client                   Participant  `json:"client" firestore:"client"`
	Contractor               Participant  `json:"contractor" firestore:"contractor"`
	LastMessage              *LastMessage `json:"last_message,omitempty" firestore:"lastMessage"`
	ClientUnreadMessages     int64        `json:"client_unread_messages" firestore:"clientUnreadMessages"`
	ContractorUnreadMessages int64        `json:"contractor_unread_messages" firestore:"contractorUnreadMessages"`
	CreatedAt                time.Time    `json:"created_at" firestore:"createdAt,serverTimestamp"`
	UpdatedAt                time.Time    `json:"updated_at" firestore:"updatedAt,serverTimestamp"`
	LastMessageAt            time.Time    `json:"last_message_at" firestore:"lastMessageAt,serverTimestamp"`
}

func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (userID == c.Client.ID || userID == c.Contractor.ID)
}

// OtherParticipant returns the counterpart of userID on this chat.
func (c *Chat) OtherParticipant(userID string) (Participant, bool) {
	switch userID {
	case c.Client.ID:
		return c.Contractor, true
	case c.Contractor.ID:
		return c.Client, true
	}
	return Participant{}, false
}

func (c *Chat) UnreadFor(userID string) int64 {
	switch userID {
	case c.Client.ID:
		return c.ClientUnreadMessages
	case c.Contractor.ID:
		return c.ContractorUnreadMessages
	}
	return 0
}

// UnreadFieldFor maps a participant id to the chat document field holding
// that participant's unread counter.
func (c *Chat) UnreadFieldFor(userID string) (string, bool) {
	switch userID {
	case c.Client.ID:
		return "clientUnreadMessages", true
	case c.Contractor.ID:
		return "contractorUnreadMessages", true
	}
	return "", false
}

const (
	previewLimit = 50
	previewKeep  = 47
)

// MessagePreview truncates message text for the chat's lastMessage snapshot.
// Text longer than 50 runes is cut to 47 plus an ellipsis, so the stored
// preview is never longer than 50 characters.
func MessagePreview(text string) string {
	runes := []rune(text)
	if len(runes) <= previewLimit {
		return text
	}
	return string(runes[:previewKeep]) + "..."
}

// NormalizedParticipants rebuilds the membership array from the typed
// participant records. Kept on the document so chats can be queried with a
// single array-contains filter.
func (c *Chat) NormalizedParticipants() []string {
	return []string{c.Client.ID, c.Contractor.ID}
}

// Valid reports whether the document carries both required participants.
// Anything else is a partial write and must surface as INVALID_CHAT_DATA.
func (c *Chat) Valid() bool {
	return strings.TrimSpace(c.Client.ID) != "" && strings.TrimSpace(c.Contractor.ID) != ""
}
