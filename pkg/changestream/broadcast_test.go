package changestream

import (
	"context"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morezero/gate-registration/pkg/events"
	"github.com/morezero/gate-registration/pkg/realtime"
)

const broadcastTestPrefix = "changestream:broadcast_test"

// chanSource hands the listener a stream the test feeds directly.
type chanSource struct {
	ch chan events.ChangeEvent
}

func (s *chanSource) Subscribe(context.Context) (<-chan events.ChangeEvent, error) {
	return s.ch, nil
}

// wsClient counts the update frames one websocket client receives.
type wsClient struct {
	conn     *websocket.Conn
	received atomic.Int64
	badFrame atomic.Value
}

// pipeline is Source -> Listener -> Hub -> websocket clients.
type pipeline struct {
	events   chan events.ChangeEvent
	registry *realtime.Registry
	clients  []*wsClient
}

func startPipeline(t *testing.T, clients int) *pipeline {
	t.Helper()
	p := &pipeline{events: make(chan events.ChangeEvent), registry: realtime.NewRegistry()}
	hub := realtime.NewHub(p.registry)

	srv := httptest.NewServer(realtime.NewHandler(p.registry, nil))
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go NewListener(&chanSource{ch: p.events}, hub, nil).Run(ctx)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http")
	for i := 0; i < clients; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("%s - dial: %v", broadcastTestPrefix, err)
		}
		t.Cleanup(func() { conn.Close() })
		c := &wsClient{conn: conn}
		go func() {
			for {
				_, msg, err := conn.ReadMessage()
				if err != nil {
					return
				}
				if string(msg) != `{"type":"update"}` {
					c.badFrame.Store(string(msg))
				}
				c.received.Add(1)
			}
		}()
		p.clients = append(p.clients, c)
	}
	p.waitForOpen(t, clients)
	return p
}

func (p *pipeline) publish(n int) {
	for i := 0; i < n; i++ {
		p.events <- events.ChangeEvent{Op: events.OpUpdate, RegistrationID: "r1", At: time.Now()}
	}
}

func (p *pipeline) waitForOpen(t *testing.T, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		open := 0
		conns := p.registry.Connections()
		for _, c := range conns {
			if c.State() == realtime.StateOpen {
				open++
			}
		}
		if open == n && len(conns) == n {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("%s - timeout waiting for %d open connections (have %d)", broadcastTestPrefix, n, p.registry.Count())
}

// waitForCount waits until c has received exactly want frames and no more arrive.
func waitForCount(t *testing.T, c *wsClient, want int64) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for c.received.Load() < want && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	time.Sleep(100 * time.Millisecond)
	if got := c.received.Load(); got != want {
		t.Fatalf("%s - received %d updates, want %d", broadcastTestPrefix, got, want)
	}
	if bad := c.badFrame.Load(); bad != nil {
		t.Errorf("%s - unexpected frame %v", broadcastTestPrefix, bad)
	}
}

// settle waits until c stops receiving and returns how many frames it got.
func settle(c *wsClient) int64 {
	last := c.received.Load()
	for i := 0; i < 100; i++ {
		time.Sleep(50 * time.Millisecond)
		now := c.received.Load()
		if now == last {
			return now
		}
		last = now
	}
	return last
}

func TestBroadcast_KEventsReachEveryClientOnTheWire(t *testing.T) {
	p := startPipeline(t, 3)

	// K mutations: every client receives exactly K frames.
	const k = 5
	p.publish(k)
	for _, c := range p.clients {
		waitForCount(t, c, k)
	}

	// One client disconnects; one more mutation reaches only the other two.
	p.clients[0].conn.Close()
	p.waitForOpen(t, 2)
	p.publish(1)
	for _, c := range p.clients[1:] {
		waitForCount(t, c, k+1)
	}
	if got := p.clients[0].received.Load(); got != k {
		t.Errorf("%s - closed client received %d, want %d", broadcastTestPrefix, got, k)
	}
}

func TestBroadcast_BurstKeepsClientsConnected(t *testing.T) {
	p := startPipeline(t, 3)

	const burst = 200
	p.publish(burst)

	counts := make([]int64, len(p.clients))
	for i, c := range p.clients {
		counts[i] = settle(c)
		if counts[i] < 1 || counts[i] > burst {
			t.Errorf("%s - client %d received %d updates during burst, want 1..%d", broadcastTestPrefix, i, counts[i], burst)
		}
	}
	if got := p.registry.Count(); got != 3 {
		t.Fatalf("%s - registry count after burst = %d, want 3", broadcastTestPrefix, got)
	}
	p.waitForOpen(t, 3)

	// Still subscribed: the next change arrives as exactly one more frame.
	p.publish(1)
	for i, c := range p.clients {
		waitForCount(t, c, counts[i]+1)
	}
}
