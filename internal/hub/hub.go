// Package hub tracks live client connections and fans broadcast messages out
// to all of them.
package hub

import (
	"sync"

	"github.com/taleforge/taleforge/internal/logger"
	"github.com/taleforge/taleforge/internal/wire"
)

// Hub maintains the set of active connections. Sessions register themselves
// on connect and unregister on every exit path; both operations are
// idempotent.
type Hub struct {
	mu    sync.Mutex
	conns map[*wire.Conn]bool
}

// New creates an empty hub.
func New() *Hub {
	return &Hub{conns: make(map[*wire.Conn]bool)}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *wire.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if !h.conns[c] {
		h.conns[c] = true
		logger.Debug("Connection registered (total: %d)", len(h.conns))
	}
}

// Unregister removes a connection from the hub.
func (h *Hub) Unregister(c *wire.Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.conns[c] {
		delete(h.conns, c)
		logger.Debug("Connection unregistered (total: %d)", len(h.conns))
	}
}

// Len returns the number of registered connections.
func (h *Hub) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// Broadcast sends message to every registered connection. The member set is
// snapshotted under the lock first, then sends happen outside it. A failed
// send drops that connection from the hub and closes it; remaining members
// still receive the message. There is no retry and no per-recipient
// acknowledgment.
func (h *Hub) Broadcast(message string) {
	h.mu.Lock()
	conns := make([]*wire.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.mu.Unlock()

	for _, c := range conns {
		if err := c.Send(message); err != nil {
			logger.Warn("Broadcast send failed, dropping connection: %v", err)
			h.Unregister(c)
			c.Close()
		}
	}
}

// CloseAll closes every registered connection and empties the hub. Used on
// server shutdown.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	conns := make([]*wire.Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	h.conns = make(map[*wire.Conn]bool)
	h.mu.Unlock()

	for _, c := range conns {
		c.Close()
	}
}
