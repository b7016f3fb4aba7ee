package server

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/julienschmidt/httprouter"

	"github.com/taleforge/taleforge/internal/hub"
	"github.com/taleforge/taleforge/internal/logger"
	"github.com/taleforge/taleforge/internal/story"
)

// StatusServer serves a read-only HTTP view of the running game: connection
// count and narrative size. It deliberately has no mutating routes.
type StatusServer struct {
	hub    *hub.Hub
	story  *story.Store
	server *http.Server
	router *httprouter.Router
}

// StatusReport is the /status response body.
type StatusReport struct {
	Clients       int `json:"clients"`
	ProgressChars int `json:"progress_chars"`
	KeywordCount  int `json:"keyword_count"`
}

// NewStatusServer creates a status server bound to addr.
func NewStatusServer(addr string, h *hub.Hub, st *story.Store) *StatusServer {
	s := &StatusServer{
		hub:    h,
		story:  st,
		router: httprouter.New(),
	}

	s.router.GET("/healthz", s.handleHealth)
	s.router.GET("/status", s.handleStatus)

	s.server = &http.Server{
		Addr:    addr,
		Handler: s.router,
	}

	return s
}

// Start starts serving in a background goroutine.
func (s *StatusServer) Start() {
	go func() {
		logger.Info("Status server listening on %s", s.server.Addr)
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Status server failed: %v", err)
		}
	}()
}

// Stop shuts the status server down.
func (s *StatusServer) Stop() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.server.Shutdown(ctx)
}

func (s *StatusServer) handleHealth(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	w.WriteHeader(http.StatusOK)
	fmt.Fprintln(w, "ok")
}

func (s *StatusServer) handleStatus(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
	state, err := s.story.Load()
	if err != nil {
		http.Error(w, "failed to load game state", http.StatusInternalServerError)
		return
	}

	report := StatusReport{
		Clients:       s.hub.Len(),
		ProgressChars: len(state.Progress),
		KeywordCount:  len(state.Keywords),
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(report)
}
