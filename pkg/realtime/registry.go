package realtime

import (
	"sync"

	"github.com/morezero/gate-registration/pkg/metrics"
)

// ConnState is the lifecycle state of a realtime connection.
type ConnState int32

const (
	StateConnecting ConnState = iota
	StateOpen
	StateClosing
	StateClosed
)

func (s ConnState) String() string {
	switch s {
	case StateConnecting:
		return "connecting"
	case StateOpen:
		return "open"
	case StateClosing:
		return "closing"
	case StateClosed:
		return "closed"
	}
	return "unknown"
}

// Conn is one client connection as seen by the Hub.
type Conn interface {
	ID() string
	State() ConnState
	// Send queues msg for delivery and returns without waiting on the network.
	Send(msg []byte) error
}

// Registry is the set of live client connections.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]Conn
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]Conn)}
}

// Register adds c, replacing any connection registered under the same ID.
func (r *Registry) Register(c Conn) {
	r.mu.Lock()
	r.conns[c.ID()] = c
	n := len(r.conns)
	r.mu.Unlock()
	metrics.Connections.Set(float64(n))
}

// Unregister removes the connection with the given ID and reports whether it was present.
func (r *Registry) Unregister(id string) bool {
	r.mu.Lock()
	_, ok := r.conns[id]
	delete(r.conns, id)
	n := len(r.conns)
	r.mu.Unlock()
	metrics.Connections.Set(float64(n))
	return ok
}

// Connections returns a snapshot of the registered connections.
func (r *Registry) Connections() []Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Conn, 0, len(r.conns))
	for _, c := range r.conns {
		out = append(out, c)
	}
	return out
}

// Count returns the number of registered connections.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}
