package server

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/zeusync/sweep/internal/core/observability/log"
)

// StatsFunc reports a JSON-encodable snapshot for the /stats endpoint.
type StatsFunc func() any

// HTTPServer serves the debug hub on /ws, counters on /stats and a
// liveness probe on /healthz.
type HTTPServer struct {
	mu       sync.Mutex
	server   *http.Server
	listener net.Listener
	hub      *DebugHub
	stats    StatsFunc
	logger   log.Log
}

func NewHTTPServer(hub *DebugHub, stats StatsFunc, logger log.Log) *HTTPServer {
	if logger == nil {
		logger = log.Nop()
	}
	return &HTTPServer{hub: hub, stats: stats, logger: logger}
}

// Handler returns the routing table, for embedding or tests.
func (s *HTTPServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", s.hub)
	mux.HandleFunc("/stats", s.handleStats)
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

// Start listens on addr and serves in the background.
func (s *HTTPServer) Start(addr string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.server != nil {
		return ErrServerAlreadyRunning
	}

	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	s.listener = ln
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	srv := s.server
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("debug server stopped", log.Error(err))
		}
	}()
	s.logger.Info("debug server listening", log.String("addr", ln.Addr().String()))
	return nil
}

// Addr is the bound address once started.
func (s *HTTPServer) Addr() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Stop closes the viewers, then shuts the HTTP server down.
func (s *HTTPServer) Stop(ctx context.Context) error {
	s.mu.Lock()
	srv := s.server
	s.mu.Unlock()
	if srv == nil {
		return ErrServerNotRunning
	}
	_ = s.hub.Close()
	err := srv.Shutdown(ctx)

	s.mu.Lock()
	if s.server == srv {
		s.server, s.listener = nil, nil
	}
	s.mu.Unlock()
	return err
}

func (s *HTTPServer) handleStats(w http.ResponseWriter, _ *http.Request) {
	payload := map[string]any{
		"viewers":     s.hub.Clients(),
		"frames_sent": s.hub.Sent(),
	}
	if s.stats != nil {
		payload["simulation"] = s.stats()
	}
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Warn("failed to encode stats", log.Error(err))
	}
}
