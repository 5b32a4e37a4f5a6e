package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeusync/sweep/internal/core/events/bus"
	"github.com/zeusync/sweep/internal/core/simulation"
)

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(url, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) simulation.Frame {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var f simulation.Frame
	require.NoError(t, conn.ReadJSON(&f))
	return f
}

func TestHubBroadcastsFrames(t *testing.T) {
	hub := NewDebugHub(DefaultHubConfig(), nil)
	s := httptest.NewServer(hub)
	defer s.Close()

	a, b := dial(t, s.URL), dial(t, s.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 2 }, time.Second, 5*time.Millisecond)

	frame := simulation.Frame{Tick: 7, Time: 0.14, Bodies: []simulation.BodyFrame{{ID: "p", Kind: "projectile", Radius: 0.1}}}
	require.NoError(t, hub.Broadcast(frame))

	for _, conn := range []*websocket.Conn{a, b} {
		got := readFrame(t, conn)
		assert.Equal(t, uint64(7), got.Tick)
		require.Len(t, got.Bodies, 1)
		assert.Equal(t, "projectile", got.Bodies[0].Kind)
	}
	assert.Equal(t, uint64(2), hub.Sent())
}

func TestHubSendsLastFrameOnJoin(t *testing.T) {
	hub := NewDebugHub(DefaultHubConfig(), nil)
	s := httptest.NewServer(hub)
	defer s.Close()

	require.NoError(t, hub.Broadcast(simulation.Frame{Tick: 3}))
	conn := dial(t, s.URL)
	assert.Equal(t, uint64(3), readFrame(t, conn).Tick)
}

func TestHubForgetsClosedViewers(t *testing.T) {
	hub := NewDebugHub(DefaultHubConfig(), nil)
	s := httptest.NewServer(hub)
	defer s.Close()

	conn := dial(t, s.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool { return hub.Clients() == 0 }, time.Second, 5*time.Millisecond)
}

func TestHubEnforcesMaxClients(t *testing.T) {
	hub := NewDebugHub(HubConfig{MaxClients: 1}, nil)
	s := httptest.NewServer(hub)
	defer s.Close()

	dial(t, s.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	_, resp, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(s.URL, "http"), nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
}

func TestHubCapHoldsUnderConcurrentJoins(t *testing.T) {
	hub := NewDebugHub(HubConfig{MaxClients: 3}, nil)
	s := httptest.NewServer(hub)
	defer s.Close()
	url := "ws" + strings.TrimPrefix(s.URL, "http")

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		conns    []*websocket.Conn
		rejected atomic.Int32
	)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			conn, resp, err := websocket.DefaultDialer.Dial(url, nil)
			if err != nil {
				if resp != nil && resp.StatusCode == http.StatusServiceUnavailable {
					rejected.Add(1)
				}
				return
			}
			mu.Lock()
			conns = append(conns, conn)
			mu.Unlock()
		}()
	}
	wg.Wait()
	defer func() {
		for _, c := range conns {
			_ = c.Close()
		}
	}()

	assert.Len(t, conns, 3)
	assert.Equal(t, int32(13), rejected.Load())
	require.Eventually(t, func() bool { return hub.Clients() == 3 }, time.Second, 5*time.Millisecond)
	assert.LessOrEqual(t, hub.Clients(), 3)
}

func TestHubAttachForwardsBusFrames(t *testing.T) {
	hub := NewDebugHub(DefaultHubConfig(), nil)
	s := httptest.NewServer(hub)
	defer s.Close()
	conn := dial(t, s.URL)
	require.Eventually(t, func() bool { return hub.Clients() == 1 }, time.Second, 5*time.Millisecond)

	eb := bus.New()
	_, err := hub.Attach(eb)
	require.NoError(t, err)
	require.NoError(t, eb.Publish(bus.NewEvent(simulation.EventFrame, "test", simulation.Frame{Tick: 42}, nil)))

	assert.Equal(t, uint64(42), readFrame(t, conn).Tick)
}

func TestHubCloseRejectsBroadcast(t *testing.T) {
	hub := NewDebugHub(DefaultHubConfig(), nil)
	require.NoError(t, hub.Close())
	assert.ErrorIs(t, hub.Broadcast(simulation.Frame{}), ErrServerClosed)
	assert.NoError(t, hub.Close())
}

func TestHTTPServerRoutes(t *testing.T) {
	hub := NewDebugHub(DefaultHubConfig(), nil)
	srv := NewHTTPServer(hub, func() any { return map[string]int{"ticks": 9} }, nil)
	require.NoError(t, srv.Start("127.0.0.1:0"))
	assert.ErrorIs(t, srv.Start("127.0.0.1:0"), ErrServerAlreadyRunning)
	base := "http://" + srv.Addr()

	resp, err := http.Get(base + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, err = http.Get(base + "/stats")
	require.NoError(t, err)
	var stats map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&stats))
	_ = resp.Body.Close()
	assert.Equal(t, float64(0), stats["viewers"])
	assert.Equal(t, map[string]any{"ticks": float64(9)}, stats["simulation"])

	conn := dial(t, base+"/ws")
	require.NoError(t, hub.Broadcast(simulation.Frame{Tick: 1}))
	assert.Equal(t, uint64(1), readFrame(t, conn).Tick)

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, srv.Stop(ctx))
	assert.Zero(t, hub.Clients())
}

func TestHTTPServerRestartsAfterStop(t *testing.T) {
	srv := NewHTTPServer(NewDebugHub(DefaultHubConfig(), nil), nil, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	assert.ErrorIs(t, srv.Stop(ctx), ErrServerNotRunning)

	require.NoError(t, srv.Start("127.0.0.1:0"))
	require.NotEmpty(t, srv.Addr())
	require.NoError(t, srv.Stop(ctx))
	assert.Empty(t, srv.Addr())
	assert.ErrorIs(t, srv.Stop(ctx), ErrServerNotRunning)

	require.NoError(t, srv.Start("127.0.0.1:0"))
	resp, err := http.Get("http://" + srv.Addr() + "/healthz")
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	require.NoError(t, srv.Stop(ctx))
}
