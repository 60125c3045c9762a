package realtime

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const handlerLogPrefix = "realtime:handler"

// HandlerOpts configures Handler. Nil or zero values use defaults.
type HandlerOpts struct {
	// SendBuffer is the per-connection outgoing buffer depth (WS_SEND_BUFFER).
	SendBuffer int
	// CheckOrigin overrides the origin check; all origins are accepted by default.
	CheckOrigin func(r *http.Request) bool
}

// Handler upgrades HTTP requests to websockets and keeps each socket
// registered for as long as it is connected.
type Handler struct {
	registry   *Registry
	upgrader   websocket.Upgrader
	sendBuffer int
}

// NewHandler creates a Handler registering connections in reg. Pass nil for opts to use defaults.
func NewHandler(reg *Registry, opts *HandlerOpts) *Handler {
	h := &Handler{
		registry:   reg,
		sendBuffer: DefaultSendBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
	}
	if opts != nil {
		if opts.SendBuffer > 0 {
			h.sendBuffer = opts.SendBuffer
		}
		if opts.CheckOrigin != nil {
			h.upgrader.CheckOrigin = opts.CheckOrigin
		}
	}
	return h
}

// ServeHTTP blocks until the client disconnects or the connection is closed.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// upgrader has already written the error response.
		slog.Debug(fmt.Sprintf("%s - upgrade failed: %v", handlerLogPrefix, err))
		return
	}

	c := newWSConn(uuid.NewString(), ws, h.sendBuffer)
	h.registry.Register(c)
	c.setState(StateOpen)
	slog.Debug(fmt.Sprintf("%s - Client %s connected from %s (total=%d)", handlerLogPrefix, c.id, r.RemoteAddr, h.registry.Count()))

	defer func() {
		c.Close()
		h.registry.Unregister(c.id)
		slog.Debug(fmt.Sprintf("%s - Client %s disconnected (total=%d)", handlerLogPrefix, c.id, h.registry.Count()))
	}()

	go c.writePump()
	c.readPump()
}
