package runtime

import (
	"ephemeral-chat/contract"
	"ephemeral-chat/domain/chat"
	"ephemeral-chat/domain/event"
	"ephemeral-chat/observability"
	"log/slog"
	"sync"
)

type Set map[string]struct{}

type client struct {
	sink   contract.EventSink
	userID string
	rooms  map[chat.RoomKey]struct{}
}

// Hub keeps the room membership of connected clients and queues events for
// the fanout worker. Publishing never blocks: a full queue drops the event.
// Delivery is at-most-once and there is no replay for clients joining later.
type Hub struct {
	mu      sync.RWMutex
	log     *slog.Logger
	metrics *observability.Metrics
	clients map[string]*client
	rooms   map[chat.RoomKey]Set
	queue   chan event.Envelope
}

var _ contract.IHub = (*Hub)(nil)

func NewHub(log *slog.Logger, metrics *observability.Metrics, bufferSize int) *Hub {
	return &Hub{
		log:     log,
		metrics: metrics,
		clients: make(map[string]*client),
		rooms:   make(map[chat.RoomKey]Set),
		queue:   make(chan event.Envelope, bufferSize),
	}
}

// Connect registers the sink of a new connection. Reconnecting with the same
// id replaces the sink and keeps the joined rooms.
func (h *Hub) Connect(clientID string, sink contract.EventSink) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		c.sink = sink
		return
	}
	h.clients[clientID] = &client{sink: sink, rooms: make(map[chat.RoomKey]struct{})}
	h.metrics.ConnectedClients.Inc()
}

// Disconnect forgets the client and removes it from every room it joined.
// Rooms left empty are dropped so the map does not grow forever.
func (h *Hub) Disconnect(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		return
	}
	for room := range c.rooms {
		h.removeMember(room, clientID)
	}
	delete(h.clients, clientID)
	h.metrics.ConnectedClients.Dec()
}

// Authenticate binds a user identity to the connection for attribution.
func (h *Hub) Authenticate(clientID, userID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		c.userID = userID
	}
}

// UserOf returns the identity bound to the connection, empty when anonymous.
func (h *Hub) UserOf(clientID string) string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	if c, ok := h.clients[clientID]; ok {
		return c.userID
	}
	return ""
}

func (h *Hub) Join(clientID string, room chat.RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	c, ok := h.clients[clientID]
	if !ok {
		h.log.Debug("Join ignored for unknown client", "client_id", clientID, "room", room)
		return
	}
	if _, ok = h.rooms[room]; !ok {
		h.rooms[room] = make(Set)
	}
	h.rooms[room][clientID] = struct{}{}
	c.rooms[room] = struct{}{}
}

func (h *Hub) Leave(clientID string, room chat.RoomKey) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if c, ok := h.clients[clientID]; ok {
		delete(c.rooms, room)
	}
	h.removeMember(room, clientID)
}

func (h *Hub) removeMember(room chat.RoomKey, clientID string) {
	members, ok := h.rooms[room]
	if !ok {
		return
	}
	delete(members, clientID)
	if len(members) == 0 {
		delete(h.rooms, room)
	}
}

// Publish queues evt for every client in its room.
func (h *Hub) Publish(evt event.DomainEvent) bool {
	return h.enqueue(event.Envelope{Event: evt})
}

// Relay queues evt for every client in its room except the emitter.
func (h *Hub) Relay(fromClientID string, evt event.DomainEvent) bool {
	return h.enqueue(event.Envelope{Event: evt, ExceptClient: fromClientID})
}

func (h *Hub) enqueue(envelope event.Envelope) bool {
	select {
	case h.queue <- envelope:
		h.metrics.BroadcastEvents.WithLabelValues(string(envelope.Event.EventName())).Inc()
		return true
	default:
		h.metrics.BroadcastDropped.Inc()
		h.log.Warn("Broadcast queue full, event dropped",
			"event", envelope.Event.EventName(),
			"room", envelope.Event.RoomKey())
		return false
	}
}

// Queue is drained by the fanout worker.
func (h *Hub) Queue() <-chan event.Envelope {
	return h.queue
}

// Recipients resolves the sinks currently joined to the envelope's room.
// Returns nil if the room doesn't exist or has no members.
func (h *Hub) Recipients(envelope event.Envelope) []contract.EventSink {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members, ok := h.rooms[envelope.Event.RoomKey()]
	if !ok {
		return nil
	}
	var sinks []contract.EventSink
	for clientID := range members {
		if clientID == envelope.ExceptClient {
			continue
		}
		if c, exists := h.clients[clientID]; exists {
			sinks = append(sinks, c.sink)
		}
	}
	return sinks
}

// Members lists the clients joined to room.
func (h *Hub) Members(room chat.RoomKey) []string {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := make([]string, 0, len(h.rooms[room]))
	for clientID := range h.rooms[room] {
		members = append(members, clientID)
	}
	return members
}
