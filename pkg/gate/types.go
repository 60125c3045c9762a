// Package gate implements the gate-registration business logic: accounts,
// reference data, registration requests, declarations and gate check-in/out.
package gate

import (
	"net/http"
	"time"

	"github.com/morezero/gate-registration/pkg/db"
)

// Error codes returned in GateError.Code.
const (
	CodeInvalidArgument  = "INVALID_ARGUMENT"
	CodeUnauthenticated  = "UNAUTHENTICATED"
	CodePermissionDenied = "PERMISSION_DENIED"
	CodeNotFound         = "NOT_FOUND"
	CodeConflict         = "CONFLICT"
	CodeUnavailable      = "UNAVAILABLE"
	CodeInternal         = "INTERNAL_ERROR"
)

// GateError is a structured error from the gate service.
type GateError struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

func (e *GateError) Error() string {
	return e.Code + ": " + e.Message
}

// HTTPStatus maps the error code to an HTTP status.
func (e *GateError) HTTPStatus() int {
	switch e.Code {
	case CodeInvalidArgument:
		return http.StatusBadRequest
	case CodeUnauthenticated:
		return http.StatusUnauthorized
	case CodePermissionDenied:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	case CodeConflict:
		return http.StatusConflict
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// NewGateError creates a new GateError.
func NewGateError(code, message string) *GateError {
	return &GateError{Code: code, Message: message}
}

// MessageOutput is the body of operations that only acknowledge.
type MessageOutput struct {
	Message string `json:"message"`
}

// LoginInput holds parameters for Login.
type LoginInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// LoginOutput holds the result of Login.
type LoginOutput struct {
	Token    string `json:"token"`
	Role     string `json:"role"`
	Username string `json:"username"`
}

// CreateUserInput holds parameters for CreateUser.
type CreateUserInput struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// UpdateUserRoleInput holds parameters for UpdateUserRole.
type UpdateUserRoleInput struct {
	Role string `json:"role"`
}

// ResetPasswordInput holds parameters for ResetPassword.
type ResetPasswordInput struct {
	NewPassword string `json:"newPassword"`
}

// EmployeeInput holds parameters for creating or updating an employee.
type EmployeeInput struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// SupplierInput holds parameters for creating or updating a supplier.
type SupplierInput struct {
	Name string `json:"name"`
}

// CreateRequestInput holds parameters for CreateRequest.
type CreateRequestInput struct {
	EmployeeName       string `json:"employeeName"`
	EmployeeDepartment string `json:"employeeDepartment"`
	SupplierName       string `json:"supplierName"`
	ExpectedDate       string `json:"expectedDate"`
	Reason             string `json:"reason"`
	Priority           string `json:"priority"`
}

// CreateRequestOutput holds the result of CreateRequest.
type CreateRequestOutput struct {
	Message string `json:"message"`
	ID      string `json:"id"`
}

// GetRequestOutput is the public view of a request shown to the driver.
type GetRequestOutput struct {
	EmployeeName string    `json:"employeeName"`
	Department   string    `json:"department"`
	ExpectedDate time.Time `json:"expectedDate"`
	SupplierName string    `json:"supplierName"`
	Reason       string    `json:"reason"`
}

// IDInput identifies a single registration.
type IDInput struct {
	ID string `json:"id"`
}

// HistoryInput holds parameters for History. Start and End are dates
// (YYYY-MM-DD or RFC 3339); Q is an optional case-insensitive pattern.
type HistoryInput struct {
	Start string `json:"start"`
	End   string `json:"end"`
	Q     string `json:"q,omitempty"`
}

// RegistrationsOutput wraps a list of registrations for envelope transports.
type RegistrationsOutput struct {
	Registrations []db.RegistrationView `json:"registrations"`
}

// HealthOutput holds the result of the health method.
type HealthOutput struct {
	Status    string       `json:"status"`
	Checks    HealthChecks `json:"checks"`
	Timestamp string       `json:"timestamp"`
}

// HealthChecks holds individual health check results.
type HealthChecks struct {
	Database    bool `json:"database"`
	Connections int  `json:"connections"`
}
