package entity

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func testChat() *Chat {
	return &Chat{
		ID:         "BK-1",
		Client:     Participant{ID: "c1", Name: "Alice"},
		Contractor: Participant{ID: "t1", Name: "Bob"},
	}
}

func TestChatParticipants(t *testing.T) {
	chat := testChat()

	assert.True(t, chat.IsParticipant("c1"))
	assert.True(t, chat.IsParticipant("t1"))
	assert.False(t, chat.IsParticipant("stranger"))
	assert.False(t, chat.IsParticipant(""))

	other, ok := chat.OtherParticipant("c1")
	assert.True(t, ok)
	assert.Equal(t, "t1", other.ID)

	other, ok = chat.OtherParticipant("t1")
	assert.True(t, ok)
	assert.Equal(t, "c1", other.ID)

	_, ok = chat.OtherParticipant("stranger")
	assert.False(t, ok)

	assert.Equal(t, []string{"c1", "t1"}, chat.NormalizedParticipants())
}

func TestChatUnreadFieldFor(t *testing.T) {
	chat := testChat()

	field, ok := chat.UnreadFieldFor("c1")
	assert.True(t, ok)
	assert.Equal(t, "clientUnreadMessages", field)

	field, ok = chat.UnreadFieldFor("t1")
	assert.True(t, ok)
	assert.Equal(t, "contractorUnreadMessages", field)

	_, ok = chat.UnreadFieldFor("stranger")
	assert.False(t, ok)
}

func TestChatValid(t *testing.T) {
	assert.True(t, testChat().Valid())

	assert.False(t, (&Chat{Client: Participant{ID: "c1"}}).Valid())
	assert.False(t, (&Chat{Contractor: Participant{ID: "t1"}}).Valid())
	assert.False(t, (&Chat{}).Valid())
}

func TestMessagePreview(t *testing.T) {
	assert.Equal(t, "hi", MessagePreview("hi"))

	exactly50 := strings.Repeat("a", 50)
	assert.Equal(t, exactly50, MessagePreview(exactly50))

	long := strings.Repeat("x", 60)
	preview := MessagePreview(long)
	assert.Len(t, preview, 50)
	assert.Equal(t, strings.Repeat("x", 47)+"...", preview)
}

func TestMessageUnreadFor(t *testing.T) {
	message := &Message{SenderID: "c1", ReceiverID: "t1", ReadBy: map[string]bool{"c1": true}}

	assert.False(t, message.UnreadFor("c1"), "sender never has their own message unread")
	assert.True(t, message.UnreadFor("t1"))

	message.ReadBy["t1"] = true
	assert.False(t, message.UnreadFor("t1"))
	assert.True(t, message.IsReadBy("t1"))
}
