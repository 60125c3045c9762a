package changestream

import (
	"context"
	"fmt"
	"log/slog"

	comms "github.com/nats-io/nats.go"

	"github.com/morezero/gate-registration/pkg/commsutil"
	"github.com/morezero/gate-registration/pkg/events"
)

const commsSourceLogPrefix = "changestream:comms_source"

// commsBuffer is the depth of the inbound message channel.
const commsBuffer = 256

// CommsSource receives registration change events relayed over COMMS by the
// instance that owns the database listener.
type CommsSource struct {
	nc      *comms.Conn
	subject string
}

// NewCommsSource creates a CommsSource. An empty subject uses the global change subject.
func NewCommsSource(nc *comms.Conn, subject string) *CommsSource {
	if subject == "" {
		subject = commsutil.SubjectRegistrationChanged
	}
	return &CommsSource{nc: nc, subject: subject}
}

// Subscribe subscribes to the change subject. The stream ends when ctx is done.
func (s *CommsSource) Subscribe(ctx context.Context) (<-chan events.ChangeEvent, error) {
	msgs := make(chan *comms.Msg, commsBuffer)
	sub, err := s.nc.ChanSubscribe(s.subject, msgs)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", commsSourceLogPrefix, s.subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", commsSourceLogPrefix, s.subject))

	out := make(chan events.ChangeEvent)
	go func() {
		defer close(out)
		defer sub.Unsubscribe() //nolint:errcheck

		for {
			select {
			case <-ctx.Done():
				return
			case msg := <-msgs:
				var event events.ChangeEvent
				if err := commsutil.DecodePayload(msg.Data, &event); err != nil {
					slog.Warn(fmt.Sprintf("%s - undecodable change event: %v", commsSourceLogPrefix, err))
				}
				select {
				case out <- event:
				case <-ctx.Done():
					return
				}
			}
		}
	}()

	return out, nil
}
