package changestream

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/gate-registration/pkg/events"
)

const pgSourceLogPrefix = "changestream:pg_source"

// DefaultPGChannel is the NOTIFY channel written by the registrations triggers.
const DefaultPGChannel = "registrations_changed"

// PGSourceOpts configures PGSource. Nil or zero values use defaults.
type PGSourceOpts struct {
	Channel string
	// Origin is stamped on every event (instance name), used when relaying.
	Origin string
}

// PGSource listens for registration change notifications on a dedicated
// PostgreSQL connection.
type PGSource struct {
	pool    *pgxpool.Pool
	channel string
	origin  string
}

// NewPGSource creates a PGSource. Pass nil for opts to use defaults.
func NewPGSource(pool *pgxpool.Pool, opts *PGSourceOpts) *PGSource {
	s := &PGSource{pool: pool, channel: DefaultPGChannel}
	if opts != nil {
		if opts.Channel != "" {
			s.channel = opts.Channel
		}
		s.origin = opts.Origin
	}
	return s
}

// Subscribe takes a connection out of the pool and issues LISTEN on it.
// The connection is closed when the stream ends; it never returns to the pool.
func (s *PGSource) Subscribe(ctx context.Context) (<-chan events.ChangeEvent, error) {
	pooled, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to acquire connection: %w", pgSourceLogPrefix, err)
	}
	conn := pooled.Hijack()

	if _, err := conn.Exec(ctx, "LISTEN "+pgx.Identifier{s.channel}.Sanitize()); err != nil {
		conn.Close(context.Background())
		return nil, fmt.Errorf("%s - failed to listen on %s: %w", pgSourceLogPrefix, s.channel, err)
	}
	slog.Info(fmt.Sprintf("%s - Listening on channel %s", pgSourceLogPrefix, s.channel))

	out := make(chan events.ChangeEvent)
	go func() {
		defer close(out)
		defer conn.Close(context.Background())

		for {
			n, err := conn.WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					slog.Error(fmt.Sprintf("%s - notification stream ended: %v", pgSourceLogPrefix, err))
				}
				return
			}

			event, err := decodeNotification(n.Payload)
			if err != nil {
				slog.Warn(fmt.Sprintf("%s - undecodable payload %q: %v", pgSourceLogPrefix, n.Payload, err))
			}
			event.Origin = s.origin

			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()

	return out, nil
}

// notificationPayload is the JSON written by the registrations triggers.
type notificationPayload struct {
	Op string `json:"op"`
	ID string `json:"id"`
	At string `json:"at"`
}

// decodeNotification maps a trigger payload to a ChangeEvent. A payload that
// cannot be decoded still yields an event, since it still signals a change.
func decodeNotification(payload string) (events.ChangeEvent, error) {
	event := events.ChangeEvent{At: time.Now().UTC()}
	if payload == "" {
		return event, errors.New("empty payload")
	}

	var p notificationPayload
	if err := json.Unmarshal([]byte(payload), &p); err != nil {
		return event, err
	}
	event.RegistrationID = p.ID
	if at, err := time.Parse(time.RFC3339Nano, p.At); err == nil {
		event.At = at.UTC()
	}

	switch strings.ToUpper(p.Op) {
	case "INSERT":
		event.Op = events.OpInsert
	case "UPDATE":
		event.Op = events.OpUpdate
	case "DELETE", "TRUNCATE":
		event.Op = events.OpDelete
	default:
		return event, fmt.Errorf("unknown op %q", p.Op)
	}
	return event, nil
}
