package websocket

import (
	"log/slog"
	"sync"
)

// Hub tracks which clients are subscribed to which conversation rooms
type Hub struct {
	mu      sync.RWMutex
	rooms   map[string]map[*Client]struct{}
	members map[*Client]map[string]struct{}
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		rooms:   make(map[string]map[*Client]struct{}),
		members: make(map[*Client]map[string]struct{}),
		logger:  logger,
	}
}

// Join subscribes c to room. Joining twice is a no-op
func (h *Hub) Join(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Client]struct{})
	}
	h.rooms[room][c] = struct{}{}
	if h.members[c] == nil {
		h.members[c] = make(map[string]struct{})
	}
	h.members[c][room] = struct{}{}
}

// Leave unsubscribes c from room
func (h *Hub) Leave(room string, c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.remove(room, c)
}

// LeaveAll drops every membership of c and returns the rooms it was in
func (h *Hub) LeaveAll(c *Client) []string {
	h.mu.Lock()
	defer h.mu.Unlock()

	var rooms []string
	for room := range h.members[c] {
		rooms = append(rooms, room)
		h.remove(room, c)
	}
	return rooms
}

func (h *Hub) remove(room string, c *Client) {
	if clients, ok := h.rooms[room]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.rooms, room)
		}
	}
	if rooms, ok := h.members[c]; ok {
		delete(rooms, room)
		if len(rooms) == 0 {
			delete(h.members, c)
		}
	}
}

// Members returns a snapshot of the clients in room
func (h *Hub) Members(room string) []*Client {
	h.mu.RLock()
	defer h.mu.RUnlock()

	clients := make([]*Client, 0, len(h.rooms[room]))
	for c := range h.rooms[room] {
		clients = append(clients, c)
	}
	return clients
}

// Broadcast emits an event to every client in room. Write failures are logged
// and do not stop delivery to the other members.
func (h *Hub) Broadcast(room, event string, data any) {
	for _, c := range h.Members(room) {
		if err := c.Emit(event, data); err != nil {
			h.logger.Warn("broadcast failed", "room", room, "event", event, "error", err)
		}
	}
}
