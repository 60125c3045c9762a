package changestream

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/morezero/gate-registration/pkg/events"
	"github.com/morezero/gate-registration/pkg/metrics"
)

const listenerLogPrefix = "changestream:listener"

// Notifier is told once per registration change. realtime.Hub implements it.
type Notifier interface {
	Notify()
}

// ListenerOpts configures Listener. Nil or zero values use defaults.
type ListenerOpts struct {
	// Relay, when set, republishes every consumed event (e.g. to COMMS).
	Relay events.EventPublisher
}

// Listener forwards every event from a Source to a Notifier.
type Listener struct {
	source   Source
	notifier Notifier
	relay    events.EventPublisher
}

// NewListener creates a Listener. Pass nil for opts to use defaults.
func NewListener(source Source, notifier Notifier, opts *ListenerOpts) *Listener {
	l := &Listener{source: source, notifier: notifier}
	if opts != nil {
		l.relay = opts.Relay
	}
	return l
}

// Run subscribes once and calls Notify for every event until the stream ends
// or ctx is done. A failed subscription is logged and Run returns; the caller
// keeps running without realtime updates.
func (l *Listener) Run(ctx context.Context) {
	stream, err := l.source.Subscribe(ctx)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to watch registration changes, realtime updates disabled: %v", listenerLogPrefix, err))
		return
	}
	slog.Info(fmt.Sprintf("%s - Watching registration changes", listenerLogPrefix))

	for {
		select {
		case <-ctx.Done():
			slog.Info(fmt.Sprintf("%s - Stopped watching registration changes", listenerLogPrefix))
			return
		case event, ok := <-stream:
			if !ok {
				if ctx.Err() == nil {
					slog.Warn(fmt.Sprintf("%s - change stream closed, realtime updates stopped", listenerLogPrefix))
				}
				return
			}
			l.handle(ctx, event)
		}
	}
}

func (l *Listener) handle(ctx context.Context, event events.ChangeEvent) {
	op := string(event.Op)
	if !event.Op.Valid() {
		op = "unknown"
	}
	metrics.ChangeEvents.WithLabelValues(op).Inc()
	slog.Debug(fmt.Sprintf("%s - Registration change: op=%s id=%s", listenerLogPrefix, op, event.RegistrationID))

	l.notifier.Notify()

	if l.relay != nil {
		if err := l.relay.PublishChanged(ctx, &event); err != nil {
			metrics.RelayFailures.Inc()
			slog.Warn(fmt.Sprintf("%s - failed to relay change event: %v", listenerLogPrefix, err))
		}
	}
}
