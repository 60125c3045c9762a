package realtime

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/morezero/gate-registration/pkg/metrics"
)

const (
	// writeTimeout is the deadline for a single write to a client.
	writeTimeout = 10 * time.Second

	// pongWait is how long to wait for a pong before treating the connection as dead.
	pongWait = 60 * time.Second

	// pingPeriod must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// maxInboundBytes caps client frames; inbound content is discarded.
	maxInboundBytes = 512

	// DefaultSendBuffer is the per-connection outgoing message buffer depth.
	DefaultSendBuffer = 16
)

var ErrConnNotOpen = errors.New("realtime: connection not open")

// wsConn is a Conn backed by a gorilla websocket.
type wsConn struct {
	id    string
	ws    *websocket.Conn
	state atomic.Int32
	send  chan []byte

	closeOnce sync.Once
	done      chan struct{}
}

func newWSConn(id string, ws *websocket.Conn, sendBuffer int) *wsConn {
	if sendBuffer <= 0 {
		sendBuffer = DefaultSendBuffer
	}
	c := &wsConn{
		id:   id,
		ws:   ws,
		send: make(chan []byte, sendBuffer),
		done: make(chan struct{}),
	}
	c.state.Store(int32(StateConnecting))
	return c
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) State() ConnState { return ConnState(c.state.Load()) }

func (c *wsConn) setState(s ConnState) { c.state.Store(int32(s)) }

// Send queues msg for the write pump. When the buffer is full msg is dropped:
// an update already queued reaches the client after this change. Stuck clients
// are evicted by the write and pong deadlines, not here.
func (c *wsConn) Send(msg []byte) error {
	if c.State() != StateOpen {
		return ErrConnNotOpen
	}
	select {
	case c.send <- msg:
	default:
		metrics.DroppedUpdates.Inc()
	}
	return nil
}

// Close moves the connection to closing and stops the write pump, which
// sends a close frame and releases the socket.
func (c *wsConn) Close() error {
	c.closeOnce.Do(func() {
		c.setState(StateClosing)
		close(c.done)
	})
	return nil
}

// writePump drains the send channel onto the socket and sends periodic pings.
func (c *wsConn) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.Close()
		c.ws.Close()
		c.setState(StateClosed)
	}()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-ticker.C:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			if err := c.ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}

		case <-c.done:
			c.ws.SetWriteDeadline(time.Now().Add(writeTimeout))
			c.ws.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")) //nolint:errcheck
			return
		}
	}
}

// readPump processes control frames and detects disconnects. Blocks until the
// connection closes.
func (c *wsConn) readPump() {
	c.ws.SetReadLimit(maxInboundBytes)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		c.ws.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})
	for {
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}
