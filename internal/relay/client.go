package relay

import (
	"sync"

	"github.com/gorilla/websocket"

	"codecollab/internal/wire"
)

// Client is one connected participant on the relay side.
type Client struct {
	UserID   string
	Username string

	conn *websocket.Conn
	mu   sync.Mutex
	hook func(wire.Frame)
}

func NewClient(conn *websocket.Conn, userID, username string) *Client {
	return &Client{conn: conn, UserID: userID, Username: username}
}

// SetSendHook replaces the default WebSocket sender (used in tests).
func (c *Client) SetSendHook(fn func(wire.Frame)) {
	c.mu.Lock()
	c.hook = fn
	c.mu.Unlock()
}

func (c *Client) Send(frame wire.Frame) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.hook != nil {
		c.hook(frame)
		return
	}
	if c.conn == nil {
		return
	}
	_ = c.conn.WriteJSON(frame)
}

// Participant returns the wire identity for presence events.
func (c *Client) Participant() wire.Participant {
	return wire.Participant{ID: c.UserID, Username: c.Username}
}
