//go:build integration

package changestream

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/morezero/gate-registration/pkg/events"
)

func TestPGSource_ReceivesNotifications(t *testing.T) {
	dbURL := os.Getenv("DATABASE_URL")
	if dbURL == "" {
		t.Skip("changestream:pg_source_integration_test - DATABASE_URL not set")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	pool, err := pgxpool.New(ctx, dbURL)
	if err != nil {
		t.Fatalf("changestream:pg_source_integration_test - pool: %v", err)
	}
	defer pool.Close()

	channel := "registrations_changed_test"
	src := NewPGSource(pool, &PGSourceOpts{Channel: channel, Origin: "test"})
	stream, err := src.Subscribe(ctx)
	if err != nil {
		t.Fatalf("changestream:pg_source_integration_test - Subscribe: %v", err)
	}

	payloads := []string{`{"op":"INSERT","id":"a"}`, `{"op":"UPDATE","id":"a"}`, `{"op":"DELETE","id":"a"}`}
	for _, p := range payloads {
		if _, err := pool.Exec(ctx, "SELECT pg_notify($1, $2)", channel, p); err != nil {
			t.Fatalf("changestream:pg_source_integration_test - pg_notify: %v", err)
		}
	}

	want := []events.ChangeOp{events.OpInsert, events.OpUpdate, events.OpDelete}
	for i, op := range want {
		select {
		case ev := <-stream:
			if ev.Op != op || ev.RegistrationID != "a" || ev.Origin != "test" {
				t.Errorf("changestream:pg_source_integration_test - event %d = %+v, want op %s", i, ev, op)
			}
		case <-ctx.Done():
			t.Fatalf("changestream:pg_source_integration_test - timeout waiting for event %d", i)
		}
	}

	cancel()
	select {
	case _, ok := <-stream:
		if ok {
			t.Error("changestream:pg_source_integration_test - expected stream to close after cancel")
		}
	case <-time.After(5 * time.Second):
		t.Error("changestream:pg_source_integration_test - stream not closed after cancel")
	}
}
