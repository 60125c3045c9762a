package dispatcher

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	comms "github.com/nats-io/nats.go"
)

const subscribeLogPrefix = "dispatcher:subscribe"

// Subscribe serves gate requests on subject until the subscription is drained.
// Each request runs with timeout, shortened to the caller's deadline when it asks for less.
func (d *Dispatcher) Subscribe(ctx context.Context, nc *comms.Conn, subject string, timeout time.Duration) (*comms.Subscription, error) {
	sub, err := nc.Subscribe(subject, func(msg *comms.Msg) {
		d.serve(ctx, msg, timeout)
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to subscribe to %s: %w", subscribeLogPrefix, subject, err)
	}
	slog.Info(fmt.Sprintf("%s - Subscribed to %s", subscribeLogPrefix, subject))
	return sub, nil
}

func (d *Dispatcher) serve(ctx context.Context, msg *comms.Msg, timeout time.Duration) {
	var req Request
	if err := json.Unmarshal(msg.Data, &req); err != nil {
		slog.Error(fmt.Sprintf("%s - failed to decode request: %v", subscribeLogPrefix, err))
		respond(msg, errorResponse("", "INVALID_REQUEST", "Failed to decode request", false))
		return
	}

	reqCtx, cancel := context.WithTimeout(ctx, requestTimeout(req.Ctx, timeout))
	defer cancel()

	respond(msg, d.Dispatch(reqCtx, &req))
}

// requestTimeout returns the caller's deadline or timeout when it is shorter than def.
func requestTimeout(invCtx *InvocationContext, def time.Duration) time.Duration {
	if invCtx == nil {
		return def
	}
	ms := invCtx.DeadlineMs
	if ms <= 0 {
		ms = invCtx.TimeoutMs
	}
	if ms > 0 && time.Duration(ms)*time.Millisecond < def {
		return time.Duration(ms) * time.Millisecond
	}
	return def
}

func respond(msg *comms.Msg, resp *Response) {
	data, err := json.Marshal(resp)
	if err != nil {
		slog.Error(fmt.Sprintf("%s - failed to encode response: %v", subscribeLogPrefix, err))
		return
	}
	if err := msg.Respond(data); err != nil {
		slog.Debug(fmt.Sprintf("%s - respond failed: %v", subscribeLogPrefix, err))
	}
}
