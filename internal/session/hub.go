package session

import "sync"

// Hub is the process-wide registry of active rooms. Rooms are created lazily
// on first join and live for the rest of the process: a room whose membership
// drops to zero is kept so unsaved edits survive and rejoins need no reload.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]*Room
}

func NewHub() *Hub { return &Hub{rooms: make(map[string]*Room)} }

// GetOrCreate returns the room for id, creating it if absent. created tells
// the caller to start the one-time hydration from the document store.
func (h *Hub) GetOrCreate(id string) (room *Room, created bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[id]; ok {
		return r, false
	}
	r := NewRoom(id)
	h.rooms[id] = r
	return r, true
}

// Get returns the room for id if it exists.
func (h *Hub) Get(id string) (*Room, bool) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	r, ok := h.rooms[id]
	return r, ok
}

// Len reports the number of active rooms.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}
