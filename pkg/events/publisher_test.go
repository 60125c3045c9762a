package events

import (
	"context"
	"testing"
	"time"
)

func TestNoOpPublisher(t *testing.T) {
	pub := &NoOpPublisher{}
	err := pub.PublishChanged(context.Background(), &ChangeEvent{Op: OpInsert, RegistrationID: "r-1"})
	if err != nil {
		t.Errorf("expected no error, got %v", err)
	}
}

func TestCallbackPublisher(t *testing.T) {
	var captured *ChangeEvent

	pub := NewCallbackPublisher(func(_ context.Context, event *ChangeEvent) error {
		captured = event
		return nil
	})

	event := &ChangeEvent{
		Op:             OpUpdate,
		RegistrationID: "r-42",
		At:             time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
	}

	if err := pub.PublishChanged(context.Background(), event); err != nil {
		t.Errorf("expected no error, got %v", err)
	}

	if captured == nil {
		t.Fatal("expected callback to be called")
	}
	if captured.Op != OpUpdate {
		t.Errorf("expected op update, got %s", captured.Op)
	}
	if captured.RegistrationID != "r-42" {
		t.Errorf("expected registration r-42, got %s", captured.RegistrationID)
	}
}

func TestChangeOp_Valid(t *testing.T) {
	tests := []struct {
		op   ChangeOp
		want bool
	}{
		{OpInsert, true},
		{OpUpdate, true},
		{OpReplace, true},
		{OpDelete, true},
		{"INSERT", false},
		{"", false},
		{"truncate", false},
	}
	for _, tt := range tests {
		if got := tt.op.Valid(); got != tt.want {
			t.Errorf("events:publisher_test - ChangeOp(%q).Valid() = %v, want %v", tt.op, got, tt.want)
		}
	}
}
