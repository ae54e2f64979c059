package relay

import (
	"sync"

	"codecollab/internal/wire"
)

// Room holds the connected participants of one collaborative project.
// The relay keeps no document state: it only forwards events between
// peers, so an empty room carries nothing worth persisting.
type Room struct {
	ID string

	mu      sync.Mutex
	clients map[*Client]struct{}
}

func NewRoom(id string) *Room {
	return &Room{
		ID:      id,
		clients: make(map[*Client]struct{}),
	}
}

func (r *Room) Join(c *Client) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clients[c] = struct{}{}
}

// Leave removes c and returns the number of participants remaining.
func (r *Room) Leave(c *Client) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.clients, c)
	return len(r.clients)
}

func (r *Room) ParticipantCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.clients)
}

// Participants returns a snapshot of the room's member identities.
func (r *Room) Participants() []wire.Participant {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]wire.Participant, 0, len(r.clients))
	for c := range r.clients {
		out = append(out, c.Participant())
	}
	return out
}

// Broadcast sends frame to every participant except sender.
func (r *Room) Broadcast(sender *Client, frame wire.Frame) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for c := range r.clients {
		if c == sender {
			continue
		}
		c.Send(frame)
	}
}

// BroadcastAll sends frame to every participant, sender included.
func (r *Room) BroadcastAll(frame wire.Frame) {
	r.Broadcast(nil, frame)
}
