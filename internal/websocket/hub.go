package websocket

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/dukerupert/ems/internal/controller"
)

// Message is one frame sent to page clients.
type Message struct {
	Type  string           `json:"type"`
	State controller.State `json:"state"`
}

const TypeState = "state"

// Hub fans controller state snapshots out to connected pages. New clients
// receive the latest snapshot on registration.
type Hub struct {
	mu          sync.RWMutex
	clients     map[*Client]struct{}
	last        []byte
	lastVersion uint64
	logger      *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		logger:  logger,
	}
}

func (h *Hub) Register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	if h.last != nil {
		c.enqueue(h.last)
	}
}

// Unregister removes a client from the hub and closes its send channel.
func (h *Hub) Unregister(c *Client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
}

// Publish broadcasts s unless a newer snapshot was already sent.
func (h *Hub) Publish(s controller.State) {
	data, err := json.Marshal(Message{Type: TypeState, State: s})
	if err != nil {
		h.logger.Error("marshal state", "error", err)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if h.last != nil && s.Version <= h.lastVersion {
		h.logger.Debug("drop out-of-order state", "version", s.Version, "last", h.lastVersion)
		return
	}
	h.last = data
	h.lastVersion = s.Version

	for c := range h.clients {
		c.enqueue(data)
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
