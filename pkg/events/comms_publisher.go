package events

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/gate-registration/pkg/commsutil"
)

const commsPublisherLogPrefix = "events:comms_publisher"

// CommsPublisherOpts configures CommsPublisher. Nil or zero values use defaults.
type CommsPublisherOpts struct {
	// GlobalChangeSubject overrides the global change subject (CHANGE_EVENT_SUBJECT).
	GlobalChangeSubject string
}

// CommsPublisher publishes registration change events to COMMS subjects.
type CommsPublisher struct {
	nc                  *comms.Conn
	globalChangeSubject string
}

// NewCommsPublisher creates a new CommsPublisher. Pass nil for opts to use defaults.
func NewCommsPublisher(nc *comms.Conn, opts *CommsPublisherOpts) *CommsPublisher {
	globalSubject := commsutil.SubjectRegistrationChanged
	if opts != nil && opts.GlobalChangeSubject != "" {
		globalSubject = opts.GlobalChangeSubject
	}
	return &CommsPublisher{nc: nc, globalChangeSubject: globalSubject}
}

// GlobalSubject returns the subject every change event is published to.
func (p *CommsPublisher) GlobalSubject() string {
	return p.globalChangeSubject
}

// PublishChanged publishes event to the per-operation subject and to the global subject.
func (p *CommsPublisher) PublishChanged(_ context.Context, event *ChangeEvent) error {
	data, err := commsutil.EncodePayload(event)
	if err != nil {
		return fmt.Errorf("%s - failed to encode event: %w", commsPublisherLogPrefix, err)
	}

	granularSubject := commsutil.BuildChangeSubject(string(event.Op))
	if granularSubject != p.globalChangeSubject {
		if err := p.nc.Publish(granularSubject, data); err != nil {
			slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, granularSubject, err))
			return err
		}
	}

	if err := p.nc.Publish(p.globalChangeSubject, data); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to publish to %s: %v", commsPublisherLogPrefix, p.globalChangeSubject, err))
		return err
	}

	slog.Debug(fmt.Sprintf("%s - Published %s event for registration %s", commsPublisherLogPrefix, event.Op, event.RegistrationID))
	return nil
}
