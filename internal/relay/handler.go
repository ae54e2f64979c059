package relay

import (
	"net/http"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"codecollab/internal/auth"
	"codecollab/internal/wire"
)

// Handler terminates participant WebSocket connections and routes their
// intents into rooms. It holds no document state and performs no
// merging: every content event is forwarded to peers as-is.
type Handler struct {
	log      *zap.Logger
	hub      *Hub
	secret   []byte
	upgrader websocket.Upgrader
}

func NewHandler(log *zap.Logger, hub *Hub, secret []byte) *Handler {
	return &Handler{
		log:    log,
		hub:    hub,
		secret: secret,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
}

// ServeWS upgrades an authenticated request and runs its event loop
// until the connection drops.
func (h *Handler) ServeWS(w http.ResponseWriter, r *http.Request) {
	claims, err := h.authenticate(r)
	if err != nil {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		return
	}
	defer conn.Close()

	connectionsOpened.Inc()
	activeConnections.Inc()
	defer activeConnections.Dec()

	client := NewClient(conn, claims.UserID, claims.Username)
	h.log.Info("participant connected", zap.String("userId", client.UserID))

	var room *Room
	defer func() {
		h.leave(client, room)
		h.log.Info("participant disconnected", zap.String("userId", client.UserID))
	}()

	for {
		var frame wire.Frame
		if err := conn.ReadJSON(&frame); err != nil {
			return
		}
		framesReceived.WithLabelValues(frame.Event).Inc()

		switch frame.Event {
		case wire.EventUserConnected:
			// Announcement only; identity already comes from the token.

		case wire.EventJoinProject:
			var req wire.JoinProject
			if err := decode(frame, &req); err != nil || req.ProjectID == "" {
				continue
			}
			room = h.join(client, room, req.ProjectID)

		case wire.EventLeaveProject:
			room = h.leave(client, room)

		case wire.EventFileContentChange:
			var p wire.FileContentChange
			if err := decode(frame, &p); err != nil {
				continue
			}
			h.forward(client, room, p.ProjectID, string(wire.KindContentChanged), wire.ContentChanged{
				ProjectID:      p.ProjectID,
				FilePath:       p.FilePath,
				Content:        p.Content,
				CursorPosition: p.CursorPosition,
				UserID:         client.UserID,
				Timestamp:      p.Timestamp,
			})

		case wire.EventCursorPosition:
			var p wire.CursorPosition
			if err := decode(frame, &p); err != nil {
				continue
			}
			h.forward(client, room, p.ProjectID, string(wire.KindCursorMoved), wire.CursorMoved{
				ProjectID: p.ProjectID,
				FilePath:  p.FilePath,
				Position:  p.Position,
				UserID:    client.UserID,
				Timestamp: p.Timestamp,
			})

		case wire.EventSelectionChange:
			var p wire.SelectionChange
			if err := decode(frame, &p); err != nil {
				continue
			}
			h.forward(client, room, p.ProjectID, string(wire.KindSelectionChanged), wire.SelectionChanged{
				ProjectID: p.ProjectID,
				FilePath:  p.FilePath,
				Selection: p.Selection,
				UserID:    client.UserID,
				Timestamp: p.Timestamp,
			})

		case wire.EventTypingStatus:
			var p wire.TypingStatus
			if err := decode(frame, &p); err != nil {
				continue
			}
			h.forward(client, room, p.ProjectID, string(wire.KindTyping), wire.Typing{
				ProjectID: p.ProjectID,
				FilePath:  p.FilePath,
				IsTyping:  p.IsTyping,
				UserID:    client.UserID,
				Timestamp: p.Timestamp,
			})

		default:
			h.log.Debug("ignoring unknown event",
				zap.String("event", frame.Event),
				zap.String("userId", client.UserID))
		}
	}
}

func (h *Handler) authenticate(r *http.Request) (*auth.ParticipantClaims, error) {
	token, err := auth.ExtractBearer(r.Header.Get("Authorization"))
	if err != nil {
		// Browsers cannot set headers on WebSocket upgrades, so the
		// token may ride in the query string instead.
		token = r.URL.Query().Get("token")
		if token == "" {
			return nil, err
		}
	}
	return auth.ValidateToken(h.secret, token)
}

// join moves client into the room for projectID, leaving any current
// room first, and announces the arrival to its peers.
func (h *Handler) join(client *Client, current *Room, projectID string) *Room {
	if current != nil {
		if current.ID == projectID {
			return current
		}
		h.leave(client, current)
	}

	room := h.hub.GetOrCreate(projectID)
	room.Join(client)
	activeRooms.Set(float64(h.hub.RoomCount()))
	h.log.Info("participant joined project",
		zap.String("userId", client.UserID),
		zap.String("projectId", projectID))

	frame, err := wire.NewFrame(string(wire.KindParticipantJoined), wire.ParticipantJoined{
		ProjectID: projectID,
		User:      client.Participant(),
	})
	if err == nil {
		room.Broadcast(client, frame)
	}
	return room
}

// leave removes client from room, announces the departure, and deletes
// the room once empty. Returns nil for reassignment convenience.
func (h *Handler) leave(client *Client, room *Room) *Room {
	if room == nil {
		return nil
	}
	left := room.Leave(client)

	frame, err := wire.NewFrame(string(wire.KindParticipantLeft), wire.ParticipantLeft{
		ProjectID: room.ID,
		User:      client.Participant(),
	})
	if err == nil {
		room.BroadcastAll(frame)
	}

	if left == 0 {
		h.hub.Delete(room.ID)
	}
	activeRooms.Set(float64(h.hub.RoomCount()))
	h.log.Info("participant left project",
		zap.String("userId", client.UserID),
		zap.String("projectId", room.ID))
	return nil
}

// forward relays a room-scoped intent to the sender's peers. Intents
// for rooms the sender does not occupy are dropped.
func (h *Handler) forward(sender *Client, room *Room, projectID, event string, payload any) {
	if room == nil || room.ID != projectID {
		h.log.Debug("dropping intent outside joined room",
			zap.String("event", event),
			zap.String("userId", sender.UserID),
			zap.String("projectId", projectID))
		return
	}
	frame, err := wire.NewFrame(event, payload)
	if err != nil {
		return
	}
	framesForwarded.WithLabelValues(event).Inc()
	room.Broadcast(sender, frame)
}

func decode(f wire.Frame, v any) error {
	env := wire.Envelope{Kind: wire.Kind(f.Event), Payload: f.Data}
	return env.Decode(v)
}
