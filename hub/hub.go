package hub

import (
	"log/slog"
	"sync"

	"github.com/mcblakeb/retro-relay/domain"
)

type room struct {
	clients map[string]domain.Connection
	mu      sync.RWMutex
}

// Hub is the room registry: the single source of truth for which
// connections belong to which retro session. Rooms are created on first
// join and removed the moment their last member leaves.
type Hub struct {
	rooms   map[string]*room
	mu      sync.RWMutex
	metrics domain.Metrics
}

func New(m domain.Metrics) *Hub {
	if m == nil {
		m = domain.NopMetrics{}
	}
	return &Hub{
		rooms:   make(map[string]*room),
		metrics: m,
	}
}

// Register and Unregister hold the registry mutex across the whole
// mutation, including the emptiness check and map delete. A join racing
// the last member's leave must either land before the room entry is
// dropped or recreate it; it can never be added to a room that is about
// to vanish. Lock order is always registry then room; Forward never
// holds a room lock while acquiring the registry lock.
func (h *Hub) Register(conn domain.Connection) {
	h.mu.Lock()
	r, exists := h.rooms[conn.Room()]
	if !exists {
		r = &room{clients: make(map[string]domain.Connection)}
		h.rooms[conn.Room()] = r
		h.metrics.RoomOpened()
	}

	r.mu.Lock()
	r.clients[conn.ID()] = conn
	count := len(r.clients)
	r.mu.Unlock()
	h.mu.Unlock()

	h.metrics.ConnectionOpened()
	slog.Info("client connected", "session", conn.Room(), "clientId", conn.ID(), "clients", count)
}

// Unregister removes the connection from its room and drops the room
// entry when it empties. Duplicate close events make this a no-op.
func (h *Hub) Unregister(conn domain.Connection) {
	h.mu.Lock()
	r, exists := h.rooms[conn.Room()]
	if !exists {
		h.mu.Unlock()
		return
	}

	r.mu.Lock()
	if _, present := r.clients[conn.ID()]; !present {
		r.mu.Unlock()
		h.mu.Unlock()
		return
	}
	delete(r.clients, conn.ID())
	count := len(r.clients)
	r.mu.Unlock()

	if count == 0 {
		delete(h.rooms, conn.Room())
		h.metrics.RoomClosed()
	}
	h.mu.Unlock()

	h.metrics.ConnectionClosed()
	slog.Info("client disconnected", "session", conn.Room(), "clientId", conn.ID(), "clients", count)
	if count == 0 {
		slog.Info("room removed", "session", conn.Room())
	}
}

func (h *Hub) Broadcast(sender domain.Connection, data []byte, binary bool, includeSender bool) {
	h.Forward(sender.Room(), sender.ID(), data, binary, includeSender)
}

// Forward fans a payload out to a room's members, skipping the sender
// unless the message class includes it. Framing is passed through
// untouched. Delivery is fire-and-forget: a recipient that closed or
// fell behind is skipped and the loop continues.
func (h *Hub) Forward(roomID, senderID string, data []byte, binary bool, includeSender bool) {
	h.mu.RLock()
	r, exists := h.rooms[roomID]
	h.mu.RUnlock()

	if !exists {
		return
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	for id, conn := range r.clients {
		if id == senderID && !includeSender {
			continue
		}
		if err := conn.Send(data, binary); err != nil {
			h.metrics.DeliveryDropped()
			slog.Debug("delivery dropped", "session", roomID, "clientId", id, "error", err)
			continue
		}
		h.metrics.MessageDelivered()
	}
}

func (h *Hub) Stats() (rooms, clients int) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	rooms = len(h.rooms)
	for _, r := range h.rooms {
		r.mu.RLock()
		clients += len(r.clients)
		r.mu.RUnlock()
	}
	return rooms, clients
}
