package events

import "context"

// EventPublisher relays registration change events to other processes.
type EventPublisher interface {
	PublishChanged(ctx context.Context, event *ChangeEvent) error
}

// NoOpPublisher is an EventPublisher that does nothing (single-instance deployments).
type NoOpPublisher struct{}

// PublishChanged is a no-op.
func (p *NoOpPublisher) PublishChanged(_ context.Context, _ *ChangeEvent) error {
	return nil
}

// CallbackPublisher is an EventPublisher that calls a callback function (for testing).
type CallbackPublisher struct {
	callback func(ctx context.Context, event *ChangeEvent) error
}

// NewCallbackPublisher creates a new CallbackPublisher.
func NewCallbackPublisher(cb func(ctx context.Context, event *ChangeEvent) error) *CallbackPublisher {
	return &CallbackPublisher{callback: cb}
}

// PublishChanged calls the callback.
func (p *CallbackPublisher) PublishChanged(ctx context.Context, event *ChangeEvent) error {
	return p.callback(ctx, event)
}
