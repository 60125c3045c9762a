package changestream

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/morezero/gate-registration/pkg/events"
)

// sliceSource emits a fixed list of events and then closes the stream.
type sliceSource struct {
	events []events.ChangeEvent
	err    error
}

func (s *sliceSource) Subscribe(ctx context.Context) (<-chan events.ChangeEvent, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := make(chan events.ChangeEvent)
	go func() {
		defer close(out)
		for _, e := range s.events {
			select {
			case out <- e:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, nil
}

// openSource never emits and closes its stream only when ctx is done.
type openSource struct{}

func (openSource) Subscribe(ctx context.Context) (<-chan events.ChangeEvent, error) {
	out := make(chan events.ChangeEvent)
	go func() {
		<-ctx.Done()
		close(out)
	}()
	return out, nil
}

type countingNotifier struct {
	n atomic.Int64
}

func (c *countingNotifier) Notify() { c.n.Add(1) }

func runWithTimeout(t *testing.T, l *Listener, ctx context.Context) {
	t.Helper()
	done := make(chan struct{})
	go func() {
		l.Run(ctx)
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("changestream:listener_test - Run did not return")
	}
}

func TestListener_OneNotifyPerEvent(t *testing.T) {
	tests := []struct {
		name   string
		events []events.ChangeEvent
	}{
		{"none", nil},
		{"single insert", []events.ChangeEvent{{Op: events.OpInsert, RegistrationID: "r-1"}}},
		{"mixed ops", []events.ChangeEvent{
			{Op: events.OpInsert, RegistrationID: "r-1"},
			{Op: events.OpUpdate, RegistrationID: "r-1"},
			{Op: events.OpReplace, RegistrationID: "r-2"},
			{Op: events.OpDelete, RegistrationID: "r-2"},
		}},
		{"burst on same record is not coalesced", []events.ChangeEvent{
			{Op: events.OpUpdate, RegistrationID: "r-7"},
			{Op: events.OpUpdate, RegistrationID: "r-7"},
			{Op: events.OpUpdate, RegistrationID: "r-7"},
			{Op: events.OpUpdate, RegistrationID: "r-7"},
			{Op: events.OpUpdate, RegistrationID: "r-7"},
		}},
		{"undecodable marker still counts", []events.ChangeEvent{{}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			notifier := &countingNotifier{}
			l := NewListener(&sliceSource{events: tt.events}, notifier, nil)
			runWithTimeout(t, l, context.Background())

			if got := notifier.n.Load(); got != int64(len(tt.events)) {
				t.Errorf("changestream:listener_test - Notify called %d times, want %d", got, len(tt.events))
			}
		})
	}
}

func TestListener_SubscribeFailureIsNotFatal(t *testing.T) {
	notifier := &countingNotifier{}
	l := NewListener(&sliceSource{err: errors.New("connection refused")}, notifier, nil)

	runWithTimeout(t, l, context.Background())

	if got := notifier.n.Load(); got != 0 {
		t.Errorf("changestream:listener_test - Notify called %d times, want 0", got)
	}
}

func TestListener_StopsOnContextCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	l := NewListener(openSource{}, &countingNotifier{}, nil)

	go func() {
		time.Sleep(20 * time.Millisecond)
		cancel()
	}()
	runWithTimeout(t, l, ctx)
}

func TestListener_RelaysEveryEvent(t *testing.T) {
	var mu sync.Mutex
	var relayed []events.ChangeEvent
	relay := events.NewCallbackPublisher(func(_ context.Context, e *events.ChangeEvent) error {
		mu.Lock()
		relayed = append(relayed, *e)
		mu.Unlock()
		return nil
	})

	in := []events.ChangeEvent{
		{Op: events.OpInsert, RegistrationID: "r-1"},
		{Op: events.OpUpdate, RegistrationID: "r-1"},
	}
	notifier := &countingNotifier{}
	l := NewListener(&sliceSource{events: in}, notifier, &ListenerOpts{Relay: relay})
	runWithTimeout(t, l, context.Background())

	mu.Lock()
	defer mu.Unlock()
	if len(relayed) != len(in) {
		t.Fatalf("changestream:listener_test - relayed %d events, want %d", len(relayed), len(in))
	}
	for i := range in {
		if relayed[i].Op != in[i].Op || relayed[i].RegistrationID != in[i].RegistrationID {
			t.Errorf("changestream:listener_test - relayed[%d] = %+v, want %+v", i, relayed[i], in[i])
		}
	}
}

func TestListener_RelayFailureDoesNotSkipNotify(t *testing.T) {
	relay := events.NewCallbackPublisher(func(_ context.Context, _ *events.ChangeEvent) error {
		return errors.New("comms unavailable")
	})
	notifier := &countingNotifier{}
	in := []events.ChangeEvent{{Op: events.OpInsert}, {Op: events.OpDelete}, {Op: events.OpUpdate}}
	l := NewListener(&sliceSource{events: in}, notifier, &ListenerOpts{Relay: relay})

	runWithTimeout(t, l, context.Background())

	if got := notifier.n.Load(); got != int64(len(in)) {
		t.Errorf("changestream:listener_test - Notify called %d times, want %d", got, len(in))
	}
}
