package realtime

import (
	"encoding/json"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/constants"
)

// Event is one Server-Sent Event.
type Event struct {
	Type string          `json:"event"`
	Data json.RawMessage `json:"data"`
}

// Client is one open event stream. A user may hold several.
type Client struct {
	ID     string
	UserID uint64
	Events chan Event
}

// Hub fans events out to connected clients. Slow clients lose events rather
// than blocking the sender.
type Hub struct {
	mu      sync.RWMutex
	clients map[string]*Client
	log     *zap.Logger
}

// NewHub creates an empty hub.
func NewHub(log *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]*Client),
		log:     log,
	}
}

// Register creates and registers a client for userID.
func (h *Hub) Register(userID uint64) *Client {
	client := &Client{
		ID:     uuid.NewString(),
		UserID: userID,
		Events: make(chan Event, constants.SSEClientBuffer),
	}

	h.mu.Lock()
	h.clients[client.ID] = client
	total := len(h.clients)
	h.mu.Unlock()

	h.log.Debug("SSE client registered",
		zap.String("client_id", client.ID),
		zap.Uint64("user_id", userID),
		zap.Int("total", total),
	)
	return client
}

// Unregister removes a client and closes its channel.
func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if client, ok := h.clients[clientID]; ok {
		close(client.Events)
		delete(h.clients, clientID)
		h.log.Debug("SSE client unregistered", zap.String("client_id", clientID), zap.Int("total", len(h.clients)))
	}
}

// Broadcast sends an event to every connected client.
func (h *Hub) Broadcast(event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		h.deliver(client, event)
	}
}

// SendToUser sends an event to every stream of one user.
func (h *Hub) SendToUser(userID uint64, event Event) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.UserID == userID {
			h.deliver(client, event)
		}
	}
}

// NewEvent marshals payload into an event.
func NewEvent(eventType string, payload interface{}) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, err
	}
	return Event{Type: eventType, Data: data}, nil
}

// Publish marshals payload and sends it to userID.
func (h *Hub) Publish(userID uint64, eventType string, payload interface{}) error {
	event, err := NewEvent(eventType, payload)
	if err != nil {
		return err
	}
	h.SendToUser(userID, event)
	return nil
}

// ConnectedUsers returns how many streams are open.
func (h *Hub) ConnectedUsers() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// caller holds h.mu
func (h *Hub) deliver(client *Client, event Event) {
	select {
	case client.Events <- event:
	default:
		h.log.Warn("SSE client buffer full, dropping event",
			zap.String("client_id", client.ID),
			zap.String("event", event.Type),
		)
	}
}
