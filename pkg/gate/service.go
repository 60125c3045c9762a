package gate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/morezero/gate-registration/pkg/auth"
	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/upload"
)

const serviceLogPrefix = "gate:service"

// Repository is the persistence the service needs. *db.Repository implements it.
type Repository interface {
	Ping(ctx context.Context) error

	GetUserByUsername(ctx context.Context, username string) (*db.User, error)
	ListUsers(ctx context.Context) ([]db.User, error)
	CreateUser(ctx context.Context, username, passwordHash, role string) (*db.User, error)
	UpdateUserRole(ctx context.Context, id, role string) (*db.User, error)
	UpdateUserPassword(ctx context.Context, id, passwordHash string) (bool, error)
	DeleteUser(ctx context.Context, id string) (bool, error)

	ListEmployees(ctx context.Context) ([]db.Employee, error)
	CreateEmployee(ctx context.Context, name, department string) (*db.Employee, error)
	UpsertEmployee(ctx context.Context, name, department string) (*db.Employee, error)
	UpdateEmployee(ctx context.Context, id, name, department string) (*db.Employee, error)
	DeleteEmployee(ctx context.Context, id string) (bool, error)

	ListSuppliers(ctx context.Context) ([]db.Supplier, error)
	CreateSupplier(ctx context.Context, name string) (*db.Supplier, error)
	UpsertSupplier(ctx context.Context, name string) (*db.Supplier, error)
	UpdateSupplier(ctx context.Context, id, name string) (*db.Supplier, error)
	DeleteSupplier(ctx context.Context, id string) (bool, error)

	UpsertVehicle(ctx context.Context, params db.UpsertVehicleParams) (*db.Vehicle, error)
	CreateRegistration(ctx context.Context, params db.CreateRegistrationParams) (*db.Registration, error)
	GetRegistration(ctx context.Context, id string) (*db.RegistrationView, error)
	DeclareRegistration(ctx context.Context, params db.DeclareRegistrationParams) (*db.Registration, error)
	CheckIn(ctx context.Context, id string, at time.Time) (*db.Registration, error)
	CheckOut(ctx context.Context, id string, at time.Time) (*db.Registration, error)
	ListRegistrations(ctx context.Context) ([]db.RegistrationView, error)
	SearchRegistrations(ctx context.Context, params db.SearchRegistrationsParams) ([]db.RegistrationView, error)
}

var _ Repository = (*db.Repository)(nil)

// ConnectionCounter reports the number of live realtime connections.
type ConnectionCounter interface {
	Count() int
}

// Config holds service configuration.
type Config struct {
	JWTSecret string
	TokenTTL  time.Duration
	// Location is used to interpret calendar dates (history bounds, expected dates).
	Location *time.Location
}

// Service is the gate service containing all business logic methods.
type Service struct {
	repo        Repository
	uploader    upload.Uploader
	connections ConnectionCounter
	config      Config
	now         func() time.Time
}

// NewServiceParams holds parameters for NewService.
type NewServiceParams struct {
	Repo        Repository
	Uploader    upload.Uploader
	Connections ConnectionCounter
	Config      Config
}

// NewService creates a new Service instance.
func NewService(params NewServiceParams) *Service {
	cfg := params.Config
	if cfg.TokenTTL == 0 {
		cfg.TokenTTL = auth.DefaultTokenTTL
	}
	if cfg.Location == nil {
		cfg.Location = time.Local
	}

	up := params.Uploader
	if up == nil {
		up = upload.DisabledUploader{}
	}

	return &Service{
		repo:        params.Repo,
		uploader:    up,
		connections: params.Connections,
		config:      cfg,
		now:         time.Now,
	}
}

// requireRepo returns an error if the repository is not configured (e.g. in tests with nil repo).
func (s *Service) requireRepo() *GateError {
	if s.repo == nil {
		return &GateError{Code: CodeInternal, Message: "repository not configured"}
	}
	return nil
}

// storeError converts a repository error into a GateError.
func storeError(op string, err error) *GateError {
	switch {
	case db.IsUniqueViolation(err):
		return &GateError{Code: CodeConflict, Message: "duplicate data"}
	case db.IsForeignKeyViolation(err):
		return &GateError{Code: CodeConflict, Message: "record is still referenced"}
	case db.IsInvalidInput(err):
		return &GateError{Code: CodeInvalidArgument, Message: "invalid input"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return &GateError{Code: CodeUnavailable, Message: "request timed out"}
	}
	slog.Error(fmt.Sprintf("%s - %s failed: %v", serviceLogPrefix, op, err))
	return &GateError{Code: CodeInternal, Message: "internal server error"}
}

// validateID checks that id is a record identifier.
func validateID(id string) *GateError {
	if _, err := uuid.Parse(id); err != nil {
		return &GateError{Code: CodeInvalidArgument, Message: "invalid id"}
	}
	return nil
}

// checkLength returns an INVALID_ARGUMENT error when value is longer than max runes.
func checkLength(field, value string, max int) *GateError {
	if len([]rune(value)) > max {
		return &GateError{Code: CodeInvalidArgument, Message: fmt.Sprintf("%s must be at most %d characters", field, max)}
	}
	return nil
}

func notFound(what string) *GateError {
	return &GateError{Code: CodeNotFound, Message: what + " not found"}
}

// parseDate accepts YYYY-MM-DD (in the service location) or RFC 3339.
func (s *Service) parseDate(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if t, err := time.ParseInLocation("2006-01-02", value, s.config.Location); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, value)
}
