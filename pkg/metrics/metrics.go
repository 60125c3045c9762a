// Package metrics holds the Prometheus collectors shared by the realtime and change stream packages.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Broadcasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_realtime_broadcasts_total",
		Help: "The total number of update notifications fanned out",
	})
	MessagesSent = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_realtime_messages_sent_total",
		Help: "The total number of update messages handed to open connections",
	})
	SendFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_realtime_send_failures_total",
		Help: "The total number of per-connection send failures",
	})
	DroppedUpdates = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_realtime_dropped_updates_total",
		Help: "The total number of updates not queued because the connection already had one pending",
	})
	SkippedConnections = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_realtime_skipped_connections_total",
		Help: "The total number of connections skipped because they were not open",
	})
	Connections = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gate_realtime_connections",
		Help: "The number of registered realtime connections",
	})
	ChangeEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gate_registration_change_events_total",
		Help: "The total number of registration change events consumed, by operation",
	}, []string{"op"})
	RelayFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gate_registration_relay_failures_total",
		Help: "The total number of change events that could not be relayed",
	})
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}
