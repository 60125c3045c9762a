// Package changestream turns mutations of the registrations table into realtime notifications.
package changestream

import (
	"context"

	"github.com/morezero/gate-registration/pkg/events"
)

// Source opens a subscription to registration changes.
//
// Subscribe returns once the subscription is established. The returned channel
// delivers one event per observed mutation and is closed when ctx is done or
// the underlying subscription ends.
type Source interface {
	Subscribe(ctx context.Context) (<-chan events.ChangeEvent, error)
}
