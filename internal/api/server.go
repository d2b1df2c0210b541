// ABOUTME: HTTP server exposing the session store as a small JSON API
// ABOUTME: Owns route registration, health endpoints and graceful shutdown

package api

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/2389/coven-sessions/internal/dedupe"
	"github.com/2389/coven-sessions/internal/store"
)

// shutdownTimeout bounds graceful shutdown once Run's context is cancelled
const shutdownTimeout = 5 * time.Second

// Idempotency-Key cache bounds for POST /api/sessions
const (
	idempotencyTTL     = 10 * time.Minute
	idempotencyMaxKeys = 10_000
)

// Server serves the session API over HTTP
type Server struct {
	sessions   store.Sessions
	idem       *dedupe.Cache
	logger     *slog.Logger
	httpServer *http.Server
}

// NewServer creates a server for addr backed by sessions
func NewServer(addr string, sessions store.Sessions, logger *slog.Logger) (*Server, error) {
	if sessions == nil {
		return nil, errors.New("session store is required")
	}
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		sessions: sessions,
		idem:     dedupe.New(idempotencyTTL, idempotencyMaxKeys),
		logger:   logger.With("component", "api"),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/health/ready", s.handleReady)
	mux.HandleFunc("/api/sessions", s.handleSessions)
	mux.HandleFunc("/api/sessions/", s.handleSession)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s, nil
}

// Handler returns the server's HTTP handler
func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Run listens on the configured address and serves until ctx is cancelled,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.httpServer.Addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", s.httpServer.Addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is cancelled or the server fails
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("HTTP server listening", "addr", ln.Addr().String())
		if err := s.httpServer.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("HTTP server: %w", err)
		}
		close(errCh)
	}()

	var serverErr error
	select {
	case <-ctx.Done():
		s.logger.Info("context cancelled, shutting down")
	case serverErr = <-errCh:
		s.logger.Error("server error", "error", serverErr)
	}

	shutdownErr := s.gracefulShutdown()
	if serverErr != nil {
		return serverErr
	}
	return shutdownErr
}

// gracefulShutdown uses a fresh context since Run's context is already cancelled
func (s *Server) gracefulShutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return s.Shutdown(ctx)
}

// Shutdown stops accepting requests and waits for in-flight ones
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down HTTP server")
	defer s.idem.Close()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("HTTP shutdown: %w", err)
	}
	return nil
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// handleReady returns 200 OK if the session backend answers a query.
func (s *Server) handleReady(w http.ResponseWriter, r *http.Request) {
	uids, err := s.sessions.UIDs(r.Context())
	if err != nil {
		s.logger.Warn("readiness check failed", "error", err)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("session backend unavailable"))
		return
	}
	w.WriteHeader(http.StatusOK)
	_, _ = fmt.Fprintf(w, "ready (%d sessions)", len(uids))
}
