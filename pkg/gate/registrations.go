package gate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/morezero/gate-registration/pkg/db"
)

const registrationsLogPrefix = "gate:registrations"

// ListRegistrations returns all registrations with employee, supplier and vehicle, newest first.
func (s *Service) ListRegistrations(ctx context.Context) ([]db.RegistrationView, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	out, err := s.repo.ListRegistrations(ctx)
	if err != nil {
		return nil, storeError("ListRegistrations", err)
	}
	return out, nil
}

// CheckIn records that the vehicle entered the gate now.
// Connected clients learn about it through the change listener, not from here.
func (s *Service) CheckIn(ctx context.Context, id string) (*MessageOutput, error) {
	return s.checkAction(ctx, id, actionCheckIn)
}

// CheckOut records that the vehicle left the gate now.
func (s *Service) CheckOut(ctx context.Context, id string) (*MessageOutput, error) {
	return s.checkAction(ctx, id, actionCheckOut)
}

const (
	actionCheckIn  = "checkin"
	actionCheckOut = "checkout"
)

func (s *Service) checkAction(ctx context.Context, id, action string) (*MessageOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	update := s.repo.CheckOut
	if action == actionCheckIn {
		update = s.repo.CheckIn
	}
	reg, err := update(ctx, id, s.now())
	if err != nil {
		return nil, storeError(action, err)
	}
	if reg == nil {
		return nil, notFound("registration")
	}
	slog.Info(fmt.Sprintf("%s - %s id=%s status=%s", registrationsLogPrefix, action, id, reg.Status))
	return &MessageOutput{Message: "updated"}, nil
}

// History returns registrations created between the start of Start and the end of End
// (whole calendar days), optionally filtered by a case-insensitive pattern over reason,
// employee name, supplier name, licence plate and driver name. Newest first.
func (s *Service) History(ctx context.Context, input *HistoryInput) ([]db.RegistrationView, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if input.Start == "" || input.End == "" {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "start and end dates are required"}
	}
	start, err := s.parseDate(input.Start)
	if err != nil {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "start must be YYYY-MM-DD or RFC 3339"}
	}
	end, err := s.parseDate(input.End)
	if err != nil {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "end must be YYYY-MM-DD or RFC 3339"}
	}
	from, to := dayBounds(start, end, s.config.Location)
	if to.Before(from) {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "end must not be before start"}
	}

	out, err := s.repo.SearchRegistrations(ctx, db.SearchRegistrationsParams{From: from, To: to, Pattern: input.Q})
	if err != nil {
		if db.IsInvalidInput(err) {
			return nil, &GateError{Code: CodeInvalidArgument, Message: "invalid search pattern"}
		}
		return nil, storeError("History", err)
	}
	return out, nil
}

// dayBounds widens start to 00:00:00.000 and end to 23:59:59.999 of their days in loc.
func dayBounds(start, end time.Time, loc *time.Location) (time.Time, time.Time) {
	start = start.In(loc)
	end = end.In(loc)
	from := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)
	to := time.Date(end.Year(), end.Month(), end.Day(), 23, 59, 59, int(999*time.Millisecond), loc)
	return from, to
}
