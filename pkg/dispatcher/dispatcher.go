package dispatcher

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/gate"
)

const logPrefix = "dispatcher:dispatch"

// Method names accepted on the gate subject.
const (
	MethodListRegistrations = "listRegistrations"
	MethodGetRequest        = "getRequest"
	MethodCheckIn           = "checkIn"
	MethodCheckOut          = "checkOut"
	MethodHistory           = "history"
	MethodHealth            = "health"
)

// Service is the subset of *gate.Service exposed over COMMS.
type Service interface {
	ListRegistrations(ctx context.Context) ([]db.RegistrationView, error)
	GetRequest(ctx context.Context, id string) (*gate.GetRequestOutput, error)
	CheckIn(ctx context.Context, id string) (*gate.MessageOutput, error)
	CheckOut(ctx context.Context, id string) (*gate.MessageOutput, error)
	History(ctx context.Context, input *gate.HistoryInput) ([]db.RegistrationView, error)
	Health(ctx context.Context) *gate.HealthOutput
}

// Dispatcher routes COMMS requests to gate methods.
type Dispatcher struct {
	service Service
}

// NewDispatcher creates a new Dispatcher.
func NewDispatcher(svc Service) *Dispatcher {
	return &Dispatcher{service: svc}
}

// Dispatch routes a request to the appropriate gate method and returns a response.
func (d *Dispatcher) Dispatch(ctx context.Context, req *Request) *Response {
	userID := "system"
	if req.Ctx != nil && req.Ctx.UserID != "" {
		userID = req.Ctx.UserID
	}
	slog.Debug(fmt.Sprintf("%s - method=%s id=%s user=%s", logPrefix, req.Method, req.ID, userID))

	switch req.Method {
	case MethodListRegistrations:
		return d.handleListRegistrations(ctx, req)
	case MethodGetRequest:
		return d.handleGetRequest(ctx, req)
	case MethodCheckIn:
		return d.handleCheck(ctx, req, userID, d.service.CheckIn)
	case MethodCheckOut:
		return d.handleCheck(ctx, req, userID, d.service.CheckOut)
	case MethodHistory:
		return d.handleHistory(ctx, req)
	case MethodHealth:
		return &Response{ID: req.ID, Ok: true, Result: d.service.Health(ctx)}
	default:
		return errorResponse(req.ID, "METHOD_NOT_FOUND", fmt.Sprintf("Unknown method: %s", req.Method), false)
	}
}

func (d *Dispatcher) handleListRegistrations(ctx context.Context, req *Request) *Response {
	regs, err := d.service.ListRegistrations(ctx)
	if err != nil {
		return gateErrorToResponse(req.ID, err)
	}
	return &Response{ID: req.ID, Ok: true, Result: &gate.RegistrationsOutput{Registrations: regs}}
}

func (d *Dispatcher) handleGetRequest(ctx context.Context, req *Request) *Response {
	var input gate.IDInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, gate.CodeInvalidArgument, "Failed to parse getRequest params", false)
	}
	result, err := d.service.GetRequest(ctx, input.ID)
	if err != nil {
		return gateErrorToResponse(req.ID, err)
	}
	return &Response{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleCheck(ctx context.Context, req *Request, userID string,
	action func(context.Context, string) (*gate.MessageOutput, error)) *Response {
	var input gate.IDInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, gate.CodeInvalidArgument, fmt.Sprintf("Failed to parse %s params", req.Method), false)
	}
	result, err := action(ctx, input.ID)
	if err != nil {
		return gateErrorToResponse(req.ID, err)
	}
	slog.Info(fmt.Sprintf("%s - %s id=%s by user=%s", logPrefix, req.Method, input.ID, userID))
	return &Response{ID: req.ID, Ok: true, Result: result}
}

func (d *Dispatcher) handleHistory(ctx context.Context, req *Request) *Response {
	var input gate.HistoryInput
	if err := json.Unmarshal(req.Params, &input); err != nil {
		return errorResponse(req.ID, gate.CodeInvalidArgument, "Failed to parse history params", false)
	}
	regs, err := d.service.History(ctx, &input)
	if err != nil {
		return gateErrorToResponse(req.ID, err)
	}
	return &Response{ID: req.ID, Ok: true, Result: &gate.RegistrationsOutput{Registrations: regs}}
}

// --- helpers ---

func errorResponse(id, code, message string, retryable bool) *Response {
	return &Response{
		ID: id,
		Ok: false,
		Error: &ErrorDetail{
			Code:      code,
			Message:   message,
			Retryable: retryable,
		},
	}
}

func gateErrorToResponse(id string, err error) *Response {
	var gateErr *gate.GateError
	if errors.As(err, &gateErr) {
		retryable := gateErr.Code == gate.CodeInternal || gateErr.Code == gate.CodeUnavailable
		return &Response{
			ID: id,
			Ok: false,
			Error: &ErrorDetail{
				Code:      gateErr.Code,
				Message:   gateErr.Message,
				Details:   gateErr.Details,
				Retryable: retryable,
			},
		}
	}
	return errorResponse(id, gate.CodeInternal, err.Error(), true)
}
