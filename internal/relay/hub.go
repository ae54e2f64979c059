package relay

import (
	"sync"

	"codecollab/internal/wire"
)

// Hub manages all active project rooms.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*Room)} }

func (h *Hub) GetOrCreate(id string) *Room {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		return r
	}
	r := NewRoom(id)
	h.rooms[id] = r
	return r
}

func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

func (h *Hub) Delete(id string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.rooms, id)
}

func (h *Hub) RoomCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// BroadcastTo delivers frame to everyone in the named room, if it
// exists. Used by the project-event bridge, which has no sender client.
func (h *Hub) BroadcastTo(id string, frame wire.Frame) bool {
	room, ok := h.Get(id)
	if !ok {
		return false
	}
	room.BroadcastAll(frame)
	return true
}
