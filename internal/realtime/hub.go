package realtime

import (
	"log"
	"sync"

	"github.com/gorilla/websocket"
)

// Member is one websocket connection tracked by the hub, together with
// the rooms it has joined. Writes are serialized per connection.
type Member struct {
	conn    *websocket.Conn
	writeMu sync.Mutex
	rooms   map[string]struct{}
}

// Send writes an envelope to the member's connection.
func (m *Member) Send(env Envelope) error {
	m.writeMu.Lock()
	defer m.writeMu.Unlock()
	return m.conn.WriteJSON(env)
}

// Hub groups connections into rooms and relays published messages to
// every other member of the same room. Membership is ephemeral: it
// exists only while the connection is open.
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Member]struct{}
	members map[*Member]struct{}
}

// NewHub returns an empty hub.
func NewHub() *Hub {
	return &Hub{
		rooms:   make(map[string]map[*Member]struct{}),
		members: make(map[*Member]struct{}),
	}
}

// Register tracks a freshly upgraded connection.
func (h *Hub) Register(conn *websocket.Conn) *Member {
	m := &Member{conn: conn, rooms: make(map[string]struct{})}
	h.mu.Lock()
	h.members[m] = struct{}{}
	h.mu.Unlock()
	return m
}

// Join adds the member to a room, creating the room on first join.
func (h *Hub) Join(m *Member, roomID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.members[m]; !ok {
		return
	}
	room, ok := h.rooms[roomID]
	if !ok {
		room = make(map[*Member]struct{})
		h.rooms[roomID] = room
	}
	room[m] = struct{}{}
	m.rooms[roomID] = struct{}{}
	log.Printf("[hub] member joined room=%s size=%d", roomID, len(room))
}

// Remove drops the member from the hub and from every room it joined.
// Emptied rooms are deleted.
func (h *Hub) Remove(m *Member) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if _, ok := h.members[m]; !ok {
		return
	}
	delete(h.members, m)
	for roomID := range m.rooms {
		if room, ok := h.rooms[roomID]; ok {
			delete(room, m)
			if len(room) == 0 {
				delete(h.rooms, roomID)
			}
		}
	}
}

// Broadcast relays an envelope to every member of the room except the
// sender. Delivery is best-effort; a failed write only logs.
func (h *Hub) Broadcast(roomID string, env Envelope, sender *Member) {
	h.mu.RLock()
	targets := make([]*Member, 0, len(h.rooms[roomID]))
	for m := range h.rooms[roomID] {
		if m != sender {
			targets = append(targets, m)
		}
	}
	h.mu.RUnlock()

	for _, m := range targets {
		if err := m.Send(env); err != nil {
			log.Printf("[hub] relay failed room=%s: %v", roomID, err)
		}
	}
}

// RoomSize reports the current member count of a room.
func (h *Hub) RoomSize(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}
