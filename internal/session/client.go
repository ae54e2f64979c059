package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codecollab/internal/dispatch"
	"codecollab/internal/wire"
)

// State of the transport connection.
type State int

const (
	StateDisconnected State = iota
	StateConnecting
	StateConnected
)

func (s State) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

var (
	ErrNotConnected = errors.New("session: not connected")
	ErrNotInRoom    = errors.New("session: not in a room")
)

// Credentials authenticate one participant session: the platform bearer
// token plus the participant id it was issued to.
type Credentials struct {
	Token  string
	UserID string
}

// Client is a collaborative session client. It owns one WebSocket
// connection to the relay, tracks the single project room the local
// participant occupies, and fans inbound events out to subscribers.
//
// All exported methods are safe for concurrent use; state and writes are
// serialized on one mutex. Join/leave/send methods are fire-and-forget:
// they stamp and hand a frame to the transport without waiting for any
// server acknowledgment, and membership is recorded optimistically.
type Client struct {
	url       string
	log       *zap.Logger
	dialer    *websocket.Dialer
	reconnect bool

	dispatcher *dispatch.Dispatcher

	mu     sync.Mutex
	state  State
	conn   *websocket.Conn
	creds  Credentials
	roomID string
	gen    int // bumped on every connect/disconnect to retire old read loops
}

type Option func(*Client)

// WithLogger sets the logger; default is a nop logger.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithDialer overrides the WebSocket dialer.
func WithDialer(d *websocket.Dialer) Option {
	return func(c *Client) { c.dialer = d }
}

// WithReconnect enables automatic re-dialing with exponential backoff
// after a transport-level failure. The room is NOT rejoined: membership
// is lost with the connection, and callers should watch for the
// connected event and call JoinRoom again.
func WithReconnect() Option {
	return func(c *Client) { c.reconnect = true }
}

// New builds a client for the relay at url (ws:// or wss://).
func New(url string, opts ...Option) *Client {
	c := &Client{
		url:    url,
		log:    zap.NewNop(),
		dialer: websocket.DefaultDialer,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.dispatcher = dispatch.New(c.log)
	return c
}

// Connect establishes the transport connection, authenticating with the
// bearer token. An existing connection is torn down first; there are
// never two simultaneous connections. Blocks until the transport reports
// connected or failed.
func (c *Client) Connect(ctx context.Context, creds Credentials) error {
	c.mu.Lock()
	if c.conn != nil {
		c.teardownLocked()
	}
	c.state = StateConnecting
	c.creds = creds
	gen := c.gen
	c.mu.Unlock()

	header := http.Header{}
	header.Set("Authorization", "Bearer "+creds.Token)
	conn, resp, err := c.dialer.DialContext(ctx, c.url, header)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		c.mu.Lock()
		if c.gen == gen {
			c.state = StateDisconnected
		}
		c.mu.Unlock()
		return fmt.Errorf("session connect: %w", err)
	}

	c.mu.Lock()
	if c.gen != gen {
		// A concurrent Disconnect/Connect superseded this attempt.
		c.mu.Unlock()
		conn.Close()
		return fmt.Errorf("session connect: %w", ErrNotConnected)
	}
	c.conn = conn
	c.state = StateConnected
	readGen := c.gen
	c.mu.Unlock()

	c.log.Info("connected", zap.String("url", c.url), zap.String("userId", creds.UserID))
	go c.readLoop(conn, readGen)

	// Announce the participant to the server, then signal local
	// subscribers (the room coordinator contract: joins may be sent now).
	_ = c.writeFrame(wire.EventUserConnected, wire.UserConnected{UserID: creds.UserID})
	c.dispatchLocal(wire.KindConnected, creds.UserID)
	return nil
}

// Disconnect tears down the transport and clears session, room, and
// subscription state. Safe to call when already disconnected.
func (c *Client) Disconnect() {
	c.mu.Lock()
	c.teardownLocked()
	c.creds = Credentials{}
	c.mu.Unlock()
	c.dispatcher.Reset()
}

// teardownLocked closes the transport and abandons room state without
// waiting for outstanding sends. Caller holds c.mu.
func (c *Client) teardownLocked() {
	c.gen++
	if c.conn != nil {
		c.conn.Close()
		c.conn = nil
	}
	c.roomID = ""
	c.state = StateDisconnected
}

// IsConnected reports whether the transport is currently connected.
// Never blocks.
func (c *Client) IsConnected() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state == StateConnected
}

// State returns the current connection state.
func (c *Client) State() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// RoomID returns the project room currently joined, "" if none.
func (c *Client) RoomID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.roomID
}

// UserID returns the local participant id, "" when disconnected.
func (c *Client) UserID() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.creds.UserID
}

// JoinRoom sends a join intent for projectID and records membership
// optimistically. Joining while already in a different room leaves that
// room first; at most one room is ever occupied. Requires a connection.
func (c *Client) JoinRoom(projectID string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if c.roomID != "" && c.roomID != projectID {
		c.sendLocked(wire.EventLeaveProject, wire.LeaveProject{ProjectID: c.roomID})
	}
	c.roomID = projectID
	if err := c.sendLocked(wire.EventJoinProject, wire.JoinProject{ProjectID: projectID}); err != nil {
		return err
	}
	c.log.Debug("joined room", zap.String("projectId", projectID))
	return nil
}

// LeaveRoom sends a leave intent and clears membership. No-op when not
// in a room.
func (c *Client) LeaveRoom() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.roomID == "" || c.state != StateConnected {
		return nil
	}
	roomID := c.roomID
	c.roomID = ""
	return c.sendLocked(wire.EventLeaveProject, wire.LeaveProject{ProjectID: roomID})
}

// SendContentChange broadcasts an edited file's content to room peers.
func (c *Client) SendContentChange(filePath, content string, cursorPosition *int) error {
	return c.sendIntent(wire.EventFileContentChange, func(roomID, userID string, ts int64) any {
		return wire.FileContentChange{
			ProjectID:      roomID,
			FilePath:       filePath,
			Content:        content,
			CursorPosition: cursorPosition,
			UserID:         userID,
			Timestamp:      ts,
		}
	})
}

// SendCursorPosition broadcasts the local cursor position.
func (c *Client) SendCursorPosition(filePath string, position int) error {
	return c.sendIntent(wire.EventCursorPosition, func(roomID, userID string, ts int64) any {
		return wire.CursorPosition{
			ProjectID: roomID,
			FilePath:  filePath,
			Position:  position,
			UserID:    userID,
			Timestamp: ts,
		}
	})
}

// SendSelection broadcasts the local selection range.
func (c *Client) SendSelection(filePath string, selection wire.Selection) error {
	return c.sendIntent(wire.EventSelectionChange, func(roomID, userID string, ts int64) any {
		return wire.SelectionChange{
			ProjectID: roomID,
			FilePath:  filePath,
			Selection: selection,
			UserID:    userID,
			Timestamp: ts,
		}
	})
}

// SendTypingStatus broadcasts whether the local participant is typing.
func (c *Client) SendTypingStatus(filePath string, isTyping bool) error {
	return c.sendIntent(wire.EventTypingStatus, func(roomID, userID string, ts int64) any {
		return wire.TypingStatus{
			ProjectID: roomID,
			FilePath:  filePath,
			IsTyping:  isTyping,
			UserID:    userID,
			Timestamp: ts,
		}
	})
}

// sendIntent stamps a room-scoped outbound intent with the ambient
// room/participant identity and a timestamp, then hands it to the
// transport. Returns ErrNotConnected/ErrNotInRoom instead of silently
// dropping, so callers can tell an intent never left the process.
func (c *Client) sendIntent(event string, build func(roomID, userID string, ts int64) any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.state != StateConnected {
		return ErrNotConnected
	}
	if c.roomID == "" {
		return ErrNotInRoom
	}
	payload := build(c.roomID, c.creds.UserID, time.Now().UnixMilli())
	return c.sendLocked(event, payload)
}

// Subscribe registers fn for inbound events of the given kind. Callbacks
// run synchronously on the read-loop goroutine, in subscription order,
// and must not block.
func (c *Client) Subscribe(kind wire.Kind, fn dispatch.Callback) dispatch.Handle {
	return c.dispatcher.Subscribe(kind, fn)
}

// Unsubscribe removes a subscription by handle.
func (c *Client) Unsubscribe(h dispatch.Handle) bool {
	return c.dispatcher.Unsubscribe(h)
}

func (c *Client) writeFrame(event string, v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sendLocked(event, v)
}

// sendLocked writes one frame. Caller holds c.mu, which serializes
// writers; intents therefore reach the transport in call order.
func (c *Client) sendLocked(event string, v any) error {
	if c.conn == nil {
		return ErrNotConnected
	}
	frame, err := wire.NewFrame(event, v)
	if err != nil {
		return err
	}
	if err := c.conn.WriteJSON(frame); err != nil {
		return fmt.Errorf("send %s: %w", event, err)
	}
	return nil
}

// readLoop decodes inbound frames and dispatches them until the
// connection dies or is superseded by a newer generation.
func (c *Client) readLoop(conn *websocket.Conn, gen int) {
	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			c.handleReadError(gen, err)
			return
		}

		env, err := wire.DecodeEnvelope(frame)
		if err != nil {
			c.log.Debug("dropping inbound frame", zap.Error(err))
			continue
		}

		c.mu.Lock()
		stale := c.gen != gen
		roomID := c.roomID
		c.mu.Unlock()
		if stale {
			return
		}
		// Suppress events for rooms we are not (or no longer) in, e.g.
		// frames still in flight after a leave.
		if env.RoomID != "" && env.RoomID != roomID {
			c.log.Debug("suppressing stale event",
				zap.String("kind", string(env.Kind)),
				zap.String("projectId", env.RoomID))
			continue
		}
		c.dispatcher.Dispatch(env)
	}
}

// handleReadError marks the session disconnected after a transport-level
// failure and surfaces it as a connection_lost event. Explicit
// Disconnect/Connect calls bump the generation first, so their read
// loops exit silently here.
func (c *Client) handleReadError(gen int, err error) {
	c.mu.Lock()
	if c.gen != gen {
		c.mu.Unlock()
		return
	}
	c.teardownLocked()
	creds := c.creds
	c.mu.Unlock()

	c.log.Warn("connection lost", zap.Error(err))
	c.dispatchLocal(wire.KindConnectionLost, creds.UserID)

	if c.reconnect {
		go c.redial(creds)
	}
}

// redial re-establishes the transport with exponential backoff after an
// unexpected drop. Membership is intentionally not restored; subscribers
// react to the connected event and join again themselves.
func (c *Client) redial(creds Credentials) {
	retry := backoff.NewExponentialBackOff()
	_, err := backoff.Retry(context.Background(), func() (struct{}, error) {
		c.mu.Lock()
		superseded := c.state != StateDisconnected || c.creds.UserID != creds.UserID
		c.mu.Unlock()
		if superseded {
			// The caller reconnected or disconnected explicitly.
			return struct{}{}, nil
		}
		return struct{}{}, c.Connect(context.Background(), creds)
	},
		backoff.WithBackOff(retry),
		backoff.WithNotify(func(err error, next time.Duration) {
			c.log.Warn("reconnect failed, retrying",
				zap.Error(err),
				zap.Duration("next", next))
		}),
	)
	if err != nil {
		c.log.Error("reconnect abandoned", zap.Error(err))
	}
}

// dispatchLocal delivers a locally synthesized lifecycle event.
func (c *Client) dispatchLocal(kind wire.Kind, userID string) {
	payload, _ := json.Marshal(wire.UserConnected{UserID: userID})
	c.dispatcher.Dispatch(wire.Envelope{
		Kind:      kind,
		Payload:   payload,
		Origin:    userID,
		Timestamp: time.Now(),
	})
}
