package realtime

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"

	"github.com/morezero/gate-registration/pkg/events"
	"github.com/morezero/gate-registration/pkg/metrics"
)

const hubLogPrefix = "realtime:hub"

// Hub fans the update notification out to every open connection in its Registry.
type Hub struct {
	registry *Registry
	message  []byte
}

// NewHub creates a Hub over reg.
func NewHub(reg *Registry) *Hub {
	msg, err := json.Marshal(events.UpdateMessage{Type: events.MessageTypeUpdate})
	if err != nil {
		panic(fmt.Sprintf("%s - failed to encode update message: %v", hubLogPrefix, err))
	}
	return &Hub{registry: reg, message: msg}
}

// Registry returns the registry the hub broadcasts to.
func (h *Hub) Registry() *Registry {
	return h.registry
}

// Notify sends {"type":"update"} to every open connection.
// Connections in any other state are skipped and stay registered.
// Send failures are logged and do not affect delivery to other connections.
func (h *Hub) Notify() {
	metrics.Broadcasts.Inc()

	var sent, skipped, failed int
	for _, c := range h.registry.Connections() {
		if c.State() != StateOpen {
			skipped++
			continue
		}
		if err := c.Send(h.message); err != nil {
			failed++
			slog.Debug(fmt.Sprintf("%s - send to %s failed: %v", hubLogPrefix, c.ID(), err))
			continue
		}
		sent++
	}

	metrics.MessagesSent.Add(float64(sent))
	metrics.SkippedConnections.Add(float64(skipped))
	metrics.SendFailures.Add(float64(failed))
	slog.Debug(fmt.Sprintf("%s - Broadcast update: sent=%d skipped=%d failed=%d", hubLogPrefix, sent, skipped, failed))
}

// Close closes every registered connection that supports closing.
func (h *Hub) Close() {
	conns := h.registry.Connections()
	for _, c := range conns {
		if closer, ok := c.(io.Closer); ok {
			if err := closer.Close(); err != nil {
				slog.Debug(fmt.Sprintf("%s - close %s: %v", hubLogPrefix, c.ID(), err))
			}
		}
	}
	slog.Info(fmt.Sprintf("%s - Closed %d realtime connections", hubLogPrefix, len(conns)))
}
