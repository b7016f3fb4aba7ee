// Package server accepts client connections and runs one session goroutine
// per connection. Sessions share the hub, the auth store, the story store
// and a single action gate.
package server

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"time"

	"github.com/taleforge/taleforge/internal/auth"
	"github.com/taleforge/taleforge/internal/hub"
	"github.com/taleforge/taleforge/internal/logger"
	"github.com/taleforge/taleforge/internal/story"
	"github.com/taleforge/taleforge/internal/wire"
)

// Server owns the listener and the shared session dependencies.
type Server struct {
	addr     string
	maxConns int

	hub   *hub.Hub
	users *auth.Store
	story *story.Store
	gate  *ActionGate

	listener net.Listener

	mu       sync.Mutex
	running  bool
	stopChan chan struct{}
	stopOnce sync.Once

	connIDCounter int
	connIDMu      sync.Mutex
}

// New creates a server listening on addr once started.
func New(addr string, maxConns int, h *hub.Hub, users *auth.Store, st *story.Store) *Server {
	return &Server{
		addr:     addr,
		maxConns: maxConns,
		hub:      h,
		users:    users,
		story:    st,
		gate:     NewActionGate(),
		stopChan: make(chan struct{}),
	}
}

// Start begins listening and accepting connections.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return fmt.Errorf("server is already running")
	}
	s.running = true
	s.mu.Unlock()

	listener, err := net.Listen("tcp", s.addr)
	if err != nil {
		return fmt.Errorf("failed to listen on %s: %w", s.addr, err)
	}
	s.listener = listener

	go s.acceptLoop(ctx)

	logger.Info("Server started on %s (max connections: %d)", listener.Addr(), s.maxConns)
	return nil
}

// Addr returns the bound listener address, for tests that listen on :0.
func (s *Server) Addr() net.Addr {
	if s.listener == nil {
		return nil
	}
	return s.listener.Addr()
}

// Stop shuts the server down: no more accepts, all live connections closed.
func (s *Server) Stop() {
	s.stopOnce.Do(func() {
		logger.Info("Stopping server...")
		close(s.stopChan)

		if s.listener != nil {
			if err := s.listener.Close(); err != nil {
				logger.Error("Error closing listener: %v", err)
			}
		}

		s.hub.CloseAll()

		s.mu.Lock()
		s.running = false
		s.mu.Unlock()

		logger.Info("Server stopped")
	})
}

// acceptLoop accepts incoming connections until stopped. A failing accept on
// a live listener is logged and retried; a closed listener ends the loop.
func (s *Server) acceptLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			logger.Info("Accept loop stopped via context cancellation")
			s.Stop()
			return

		case <-s.stopChan:
			logger.Info("Accept loop stopped via stop signal")
			return

		default:
			// Accept deadline so the stop channel is checked periodically.
			if tcp, ok := s.listener.(*net.TCPListener); ok {
				tcp.SetDeadline(time.Now().Add(1 * time.Second))
			}

			conn, err := s.listener.Accept()
			if err != nil {
				var netErr net.Error
				if errors.As(err, &netErr) && netErr.Timeout() {
					continue
				}
				if errors.Is(err, net.ErrClosed) {
					logger.Info("Listener closed, exiting accept loop")
					return
				}
				logger.Error("Error accepting connection: %v", err)
				continue
			}

			if s.hub.Len() >= s.maxConns {
				logger.Warn("Connection limit reached, rejecting %s", conn.RemoteAddr())
				conn.Close()
				continue
			}

			id := s.nextSessionID()
			sess := NewSession(id, wire.NewConn(conn), s.hub, s.users, s.story, s.gate)
			go sess.Run(ctx)

			logger.Info("Connection accepted from %s as session %s", conn.RemoteAddr(), id)
		}
	}
}

// Gate exposes the action gate, for tests.
func (s *Server) Gate() *ActionGate {
	return s.gate
}

// IsRunning reports whether the server is accepting connections.
func (s *Server) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Server) nextSessionID() string {
	s.connIDMu.Lock()
	defer s.connIDMu.Unlock()
	s.connIDCounter++
	return fmt.Sprintf("conn_%d", s.connIDCounter)
}
