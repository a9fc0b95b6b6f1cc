// Package ws fans engine events out to connected approvers. A user may hold
// several connections (multiple tabs); delivery is best effort.
package ws

import (
	"sync"

	"go.uber.org/zap"
)

// Conn is the write side of one websocket connection. *websocket.Conn
// satisfies it.
type Conn interface {
	WriteJSON(v interface{}) error
}

// client serializes writes to one connection; the underlying websocket
// permits at most one concurrent writer
type client struct {
	mu   sync.Mutex
	conn Conn
}

func (c *client) writeJSON(payload any) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteJSON(payload)
}

type Hub struct {
	mu      sync.RWMutex
	clients map[string]map[Conn]*client
	logger  *zap.Logger
}

func NewHub(logger *zap.Logger) *Hub {
	return &Hub{
		clients: make(map[string]map[Conn]*client),
		logger:  logger,
	}
}

func (h *Hub) Register(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.clients[userID] == nil {
		h.clients[userID] = make(map[Conn]*client)
	}
	h.clients[userID][conn] = &client{conn: conn}
}

func (h *Hub) Unregister(userID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.clients[userID], conn)
	if len(h.clients[userID]) == 0 {
		delete(h.clients, userID)
	}
}

// Send pushes a JSON payload to every live connection of a user. Writes to
// the same connection are serialized; failures are logged and the payload
// is dropped, the engine never waits.
func (h *Hub) Send(userID string, payload any) {
	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients[userID]))
	for _, c := range h.clients[userID] {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.writeJSON(payload); err != nil {
			h.logger.Debug("websocket push failed",
				zap.String("actor_id", userID),
				zap.Error(err))
		}
	}
}
