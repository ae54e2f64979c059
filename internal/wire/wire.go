package wire

import (
	"encoding/json"
	"fmt"
	"time"
)

// Frame is the on-wire message shape shared by client and relay:
// a named event plus a JSON payload.
type Frame struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

// NewFrame marshals v into a frame for the given event name.
func NewFrame(event string, v any) (Frame, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return Frame{}, fmt.Errorf("encode %s payload: %w", event, err)
	}
	return Frame{Event: event, Data: data}, nil
}

// Outbound event names (client -> server).
const (
	EventUserConnected     = "user_connected"
	EventJoinProject       = "join_project"
	EventLeaveProject      = "leave_project"
	EventFileContentChange = "file_content_change"
	EventCursorPosition    = "cursor_position"
	EventSelectionChange   = "selection_change"
	EventTypingStatus      = "typing_status"
)

// Kind identifies an inbound event delivered to subscribers. The wire
// kinds form a closed set; Connected and ConnectionLost are synthesized
// locally by the session client and never appear on the wire.
type Kind string

const (
	KindParticipantJoined Kind = "user_joined_project"
	KindParticipantLeft   Kind = "user_left_project"
	KindContentChanged    Kind = "file_content_changed"
	KindCursorMoved       Kind = "cursor_position_changed"
	KindSelectionChanged  Kind = "selection_changed"
	KindTyping            Kind = "user_typing"
	KindVersionCreated    Kind = "version_created"
	KindRoomUpdated       Kind = "project_updated"

	KindConnected      Kind = "connected"
	KindConnectionLost Kind = "connection_lost"
)

var wireKinds = map[Kind]struct{}{
	KindParticipantJoined: {},
	KindParticipantLeft:   {},
	KindContentChanged:    {},
	KindCursorMoved:       {},
	KindSelectionChanged:  {},
	KindTyping:            {},
	KindVersionCreated:    {},
	KindRoomUpdated:       {},
}

// KnownKind reports whether k is a recognized server-sent event kind.
func KnownKind(k Kind) bool {
	_, ok := wireKinds[k]
	return ok
}

// Participant is a connected user identity within a room.
type Participant struct {
	ID       string `json:"id"`
	Username string `json:"username,omitempty"`
}

/*** Outbound payloads (client -> server) ***/

type UserConnected struct {
	UserID string `json:"userId"`
}

type JoinProject struct {
	ProjectID string `json:"projectId"`
}

type LeaveProject struct {
	ProjectID string `json:"projectId"`
}

type Selection struct {
	Start int `json:"start"`
	End   int `json:"end"`
}

type FileContentChange struct {
	ProjectID      string `json:"projectId"`
	FilePath       string `json:"filePath"`
	Content        string `json:"content"`
	CursorPosition *int   `json:"cursorPosition,omitempty"`
	UserID         string `json:"userId"`
	Timestamp      int64  `json:"timestamp"`
}

type CursorPosition struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
	Position  int    `json:"position"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

type SelectionChange struct {
	ProjectID string    `json:"projectId"`
	FilePath  string    `json:"filePath"`
	Selection Selection `json:"selection"`
	UserID    string    `json:"userId"`
	Timestamp int64     `json:"timestamp"`
}

type TypingStatus struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
	IsTyping  bool   `json:"isTyping"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp"`
}

/*** Inbound payloads (server -> client) ***/

type ParticipantJoined struct {
	ProjectID string      `json:"projectId"`
	User      Participant `json:"user"`
}

type ParticipantLeft struct {
	ProjectID string      `json:"projectId"`
	User      Participant `json:"user"`
}

type ContentChanged struct {
	ProjectID      string `json:"projectId"`
	FilePath       string `json:"filePath"`
	Content        string `json:"content"`
	CursorPosition *int   `json:"cursorPosition,omitempty"`
	UserID         string `json:"userId"`
	Timestamp      int64  `json:"timestamp,omitempty"`
}

type CursorMoved struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
	Position  int    `json:"position"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type SelectionChanged struct {
	ProjectID string    `json:"projectId"`
	FilePath  string    `json:"filePath"`
	Selection Selection `json:"selection"`
	UserID    string    `json:"userId"`
	Timestamp int64     `json:"timestamp,omitempty"`
}

type Typing struct {
	ProjectID string `json:"projectId"`
	FilePath  string `json:"filePath"`
	IsTyping  bool   `json:"isTyping"`
	UserID    string `json:"userId"`
	Timestamp int64  `json:"timestamp,omitempty"`
}

type VersionCreated struct {
	ProjectID string `json:"projectId"`
	VersionID string `json:"versionId"`
	Name      string `json:"name,omitempty"`
	CreatedBy string `json:"createdBy,omitempty"`
}

type RoomUpdated struct {
	ProjectID   string `json:"projectId"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	UpdatedBy   string `json:"updatedBy,omitempty"`
}

// Envelope wraps an inbound event for delivery to subscribers.
type Envelope struct {
	Kind      Kind
	Payload   json.RawMessage
	Origin    string // participant that produced the event, "" if unknown
	RoomID    string // project the event is scoped to, "" for unscoped
	Timestamp time.Time
}

// Decode unmarshals the envelope payload into v.
func (e Envelope) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Kind, err)
	}
	return nil
}

// probe pulls the common identity fields out of a payload without
// committing to a concrete payload type.
type probe struct {
	UserID    string       `json:"userId"`
	ProjectID string       `json:"projectId"`
	Timestamp int64        `json:"timestamp"`
	User      *Participant `json:"user"`
}

// DecodeEnvelope converts an inbound frame into an envelope. Frames with
// an event name outside the closed inbound set are rejected.
func DecodeEnvelope(f Frame) (Envelope, error) {
	kind := Kind(f.Event)
	if !KnownKind(kind) {
		return Envelope{}, fmt.Errorf("unknown event %q", f.Event)
	}

	var p probe
	_ = json.Unmarshal(f.Data, &p)

	origin := p.UserID
	if origin == "" && p.User != nil {
		origin = p.User.ID
	}

	ts := time.Now()
	if p.Timestamp > 0 {
		ts = time.UnixMilli(p.Timestamp)
	}

	return Envelope{
		Kind:      kind,
		Payload:   f.Data,
		Origin:    origin,
		RoomID:    p.ProjectID,
		Timestamp: ts,
	}, nil
}
