// Package health exposes a minimal liveness endpoint for deployment probes.
package health

import (
	"context"
	"encoding/json"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/jbot-sports/goalsentry/internal/logger"
)

// Server serves /healthz with the timestamp of the last completed poll
// cycle so probes can detect a stalled loop.
type Server struct {
	lastCycle atomic.Int64
	srv       *http.Server
}

// NewServer creates a health server bound to addr.
func NewServer(addr string) *Server {
	s := &Server{}

	r := chi.NewRouter()
	r.Use(chimiddleware.Recoverer)
	r.Get("/healthz", s.handleHealthz)

	s.srv = &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
	}
	return s
}

// MarkCycle records that a poll cycle just completed.
func (s *Server) MarkCycle() {
	s.lastCycle.Store(time.Now().UnixNano())
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	resp := map[string]any{"status": "ok"}
	if last := s.lastCycle.Load(); last > 0 {
		resp["last_cycle"] = time.Unix(0, last).UTC().Format(time.RFC3339)
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(resp) //nolint:errcheck
}

// Start serves in a background goroutine until Shutdown.
func (s *Server) Start() {
	go func() {
		if err := s.srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("Health server failed: %v", err)
		}
	}()
}

// Shutdown stops the server gracefully.
func (s *Server) Shutdown(timeout time.Duration) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	if err := s.srv.Shutdown(ctx); err != nil {
		logger.Warn("Health server shutdown: %v", err)
	}
}
