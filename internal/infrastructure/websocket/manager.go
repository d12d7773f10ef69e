package websocket

import (
	"context"

	"github.com/gorilla/websocket"

	"pawcare/pkg/logger"
)

// Client is one viewer's live connection to a single chat. Each client owns
// exactly one store subscription for the chat it is watching.
//
// Send is owned by the handler that created the client: the handler is its
// only producer and the only one allowed to close it, after its stream has
// returned. The manager ends a session by calling Cancel, never by touching
// Send, so an in-flight push can never hit a closed channel.
type Client struct {
	UserID string
	ChatID string
	Conn   *websocket.Conn
	Send   chan []byte
	Cancel context.CancelFunc
}

func (c *Client) stop() {
	if c.Cancel != nil {
		c.Cancel()
	}
}

func (c *Client) key() string {
	return c.UserID + ":" + c.ChatID
}

// Manager tracks active chat stream connections.
type Manager struct {
	clients    map[string]*Client
	Register   chan *Client
	Unregister chan *Client
}

func NewManager() *Manager {
	return &Manager{
		clients:    make(map[string]*Client),
		Register:   make(chan *Client),
		Unregister: make(chan *Client),
	}
}

// Start runs the manager's bookkeeping loop until ctx is done.
func (m *Manager) Start(ctx context.Context) {
	go func() {
		for {
			select {
			case client := <-m.Register:
				// A reconnect replaces the previous session for the
				// same viewer and chat. The old session is cancelled;
				// its handler drains and closes its own queue.
				if old, ok := m.clients[client.key()]; ok {
					old.stop()
				}
				m.clients[client.key()] = client
				logger.Debug("Stream client registered: %s", client.key())

			case client := <-m.Unregister:
				if current, ok := m.clients[client.key()]; ok && current == client {
					delete(m.clients, client.key())
				}
				logger.Debug("Stream client unregistered: %s", client.key())

			case <-ctx.Done():
				for _, client := range m.clients {
					client.stop()
				}
				m.clients = make(map[string]*Client)
				return
			}
		}
	}()
}

// ReadPump drains the connection until the peer goes away. Inbound frames
// carry nothing the server acts on; reading just keeps close detection and
// pings working.
func (c *Client) ReadPump(m *Manager) {
	defer func() {
		m.Unregister <- c
		c.Conn.Close()
	}()

	for {
		if _, _, err := c.Conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				logger.Debug("Stream read error for %s: %v", c.key(), err)
			}
			return
		}
	}
}

// WritePump forwards queued payloads to the connection until Send is closed.
func (c *Client) WritePump() {
	defer c.Conn.Close()

	for {
		message, ok := <-c.Send
		if !ok {
			c.Conn.WriteMessage(websocket.CloseMessage, []byte{})
			return
		}

		if err := c.Conn.WriteMessage(websocket.TextMessage, message); err != nil {
			logger.Debug("Stream write error for %s: %v", c.key(), err)
			return
		}
	}
}
