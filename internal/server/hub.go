package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/zeusync/sweep/internal/core/events/bus"
	"github.com/zeusync/sweep/internal/core/observability/log"
	"github.com/zeusync/sweep/internal/core/simulation"
)

const (
	DefaultWriteTimeout = time.Second
	DefaultMaxClients   = 64
)

// HubConfig holds debug hub settings
type HubConfig struct {
	WriteTimeout time.Duration
	MaxClients   int
}

// DefaultHubConfig returns default hub configuration
func DefaultHubConfig() HubConfig {
	return HubConfig{
		WriteTimeout: DefaultWriteTimeout,
		MaxClients:   DefaultMaxClients,
	}
}

// DebugHub streams simulation frames as JSON to websocket viewers. It is a
// read-only window on the world: nothing a client sends is interpreted.
type DebugHub struct {
	upgrader websocket.Upgrader
	config   HubConfig
	logger   log.Log

	mu      sync.Mutex
	clients map[*websocket.Conn]struct{}
	// joining counts upgrades in flight; they hold a slot under MaxClients.
	joining int
	// last is the most recent encoded frame, sent to viewers as they join.
	last   []byte
	closed bool

	sent    atomic.Uint64
	dropped atomic.Uint64
}

func NewDebugHub(config HubConfig, logger log.Log) *DebugHub {
	if config.WriteTimeout <= 0 {
		config.WriteTimeout = DefaultWriteTimeout
	}
	if config.MaxClients <= 0 {
		config.MaxClients = DefaultMaxClients
	}
	if logger == nil {
		logger = log.Nop()
	}
	return &DebugHub{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
		config:  config,
		logger:  logger.With(log.String("component", "debug_hub")),
		clients: make(map[*websocket.Conn]struct{}),
	}
}

// Attach forwards every frame published on eb to the connected viewers.
func (h *DebugHub) Attach(eb bus.EventBus) (bus.Subscription, error) {
	return eb.Subscribe(simulation.EventFrame, func(e bus.Event) error {
		frame, ok := e.Data().(simulation.Frame)
		if !ok {
			return nil
		}
		return h.Broadcast(frame)
	})
}

// ServeHTTP upgrades the request and registers the viewer.
func (h *DebugHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.mu.Lock()
	switch {
	case h.closed:
		h.mu.Unlock()
		http.Error(w, ErrServerClosed.Error(), http.StatusServiceUnavailable)
		return
	case len(h.clients)+h.joining >= h.config.MaxClients:
		h.mu.Unlock()
		http.Error(w, ErrMaxClientsReached.Error(), http.StatusServiceUnavailable)
		return
	}
	h.joining++
	h.mu.Unlock()

	conn, err := h.upgrader.Upgrade(w, r, nil)

	h.mu.Lock()
	h.joining--
	if err != nil {
		h.mu.Unlock()
		h.logger.Warn("websocket upgrade failed", log.Error(err))
		return
	}
	if h.closed || len(h.clients) >= h.config.MaxClients {
		h.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseTryAgainLater, ErrMaxClientsReached.Error()),
			time.Now().Add(h.config.WriteTimeout))
		_ = conn.Close()
		return
	}
	h.clients[conn] = struct{}{}
	last := h.last
	count := len(h.clients)
	if last != nil {
		if err := h.writeLocked(conn, last); err != nil {
			h.dropLocked(conn, err)
		}
	}
	h.mu.Unlock()
	h.logger.Info("viewer connected",
		log.String("remote", conn.RemoteAddr().String()),
		log.Int("viewers", count),
	)

	go h.readLoop(conn)
}

// readLoop drains the connection so control frames are processed, and
// unregisters the viewer once it goes away.
func (h *DebugHub) readLoop(conn *websocket.Conn) {
	for {
		if _, _, err := conn.NextReader(); err != nil {
			h.mu.Lock()
			h.dropLocked(conn, nil)
			h.mu.Unlock()
			return
		}
	}
}

// Broadcast encodes frame once and writes it to every viewer. Viewers that
// fail to keep up within the write timeout are dropped.
func (h *DebugHub) Broadcast(frame simulation.Frame) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return ErrServerClosed
	}
	h.last = payload
	for conn := range h.clients {
		if err := h.writeLocked(conn, payload); err != nil {
			h.dropLocked(conn, err)
		}
	}
	return nil
}

// Clients returns the number of connected viewers.
func (h *DebugHub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Sent returns how many frames were written, summed over viewers.
func (h *DebugHub) Sent() uint64 { return h.sent.Load() }

// Close disconnects every viewer and rejects new ones.
func (h *DebugHub) Close() error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	deadline := time.Now().Add(h.config.WriteTimeout)
	for conn := range h.clients {
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"), deadline)
		_ = conn.Close()
		delete(h.clients, conn)
	}
	return nil
}

func (h *DebugHub) writeLocked(conn *websocket.Conn, payload []byte) error {
	if err := conn.SetWriteDeadline(time.Now().Add(h.config.WriteTimeout)); err != nil {
		return err
	}
	if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
		return err
	}
	h.sent.Add(1)
	return nil
}

func (h *DebugHub) dropLocked(conn *websocket.Conn, cause error) {
	if _, ok := h.clients[conn]; !ok {
		return
	}
	delete(h.clients, conn)
	_ = conn.Close()
	if cause != nil {
		h.dropped.Add(1)
		h.logger.Warn("dropping viewer",
			log.String("remote", conn.RemoteAddr().String()),
			log.Error(cause),
		)
		return
	}
	h.logger.Info("viewer disconnected", log.String("remote", conn.RemoteAddr().String()))
}
