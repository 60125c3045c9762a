package gate

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/morezero/gate-registration/pkg/db"
)

const (
	requestsLogPrefix = "gate:requests"
	maxReasonLen      = 200
)

// priorityAliases accepts the codes and the labels shown in the staff UI.
var priorityAliases = map[string]string{
	"low":        db.PriorityLow,
	"medium":     db.PriorityMedium,
	"high":       db.PriorityHigh,
	"thấp":       db.PriorityLow,
	"trung bình": db.PriorityMedium,
	"cao":        db.PriorityHigh,
}

// NormalizePriority maps a priority code or label to its code.
func NormalizePriority(p string) (string, bool) {
	code, ok := priorityAliases[strings.ToLower(strings.TrimSpace(p))]
	return code, ok
}

// CreateRequest records a new gate registration for an employee expecting a supplier.
// The employee and supplier are created on first use.
func (s *Service) CreateRequest(ctx context.Context, input *CreateRequestInput) (*CreateRequestOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}

	employee := EmployeeInput{Name: input.EmployeeName, Department: input.EmployeeDepartment}
	supplier := SupplierInput{Name: input.SupplierName}
	reason := strings.TrimSpace(input.Reason)
	if strings.TrimSpace(employee.Name) == "" || strings.TrimSpace(employee.Department) == "" ||
		strings.TrimSpace(supplier.Name) == "" || strings.TrimSpace(input.ExpectedDate) == "" ||
		reason == "" || strings.TrimSpace(input.Priority) == "" {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "all fields are required"}
	}

	empName, dept, gerr := validateEmployee(&employee)
	if gerr != nil {
		return nil, gerr
	}
	supName, gerr := validateSupplier(&supplier)
	if gerr != nil {
		return nil, gerr
	}
	if gerr := checkLength("reason", reason, maxReasonLen); gerr != nil {
		return nil, gerr
	}
	priority, ok := NormalizePriority(input.Priority)
	if !ok {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "priority must be low, medium or high"}
	}
	expected, err := s.parseDate(input.ExpectedDate)
	if err != nil {
		return nil, &GateError{Code: CodeInvalidArgument, Message: "expectedDate must be YYYY-MM-DD or RFC 3339"}
	}

	emp, err := s.repo.UpsertEmployee(ctx, empName, dept)
	if err != nil {
		return nil, storeError("UpsertEmployee", err)
	}
	sup, err := s.repo.UpsertSupplier(ctx, supName)
	if err != nil {
		return nil, storeError("UpsertSupplier", err)
	}
	reg, err := s.repo.CreateRegistration(ctx, db.CreateRegistrationParams{
		EmployeeID:   emp.ID,
		SupplierID:   sup.ID,
		Reason:       reason,
		Priority:     priority,
		ExpectedDate: expected,
	})
	if err != nil {
		return nil, storeError("CreateRegistration", err)
	}

	slog.Info(fmt.Sprintf("%s - created id=%s employee=%s supplier=%s", requestsLogPrefix, reg.ID, empName, supName))
	return &CreateRequestOutput{Message: "request created", ID: reg.ID}, nil
}

// GetRequest returns the public view of a request, used by drivers before declaring.
func (s *Service) GetRequest(ctx context.Context, id string) (*GetRequestOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	view, err := s.repo.GetRegistration(ctx, id)
	if err != nil {
		return nil, storeError("GetRequest", err)
	}
	if view == nil {
		return nil, notFound("request")
	}

	out := &GetRequestOutput{ExpectedDate: view.ExpectedDate, Reason: view.Reason}
	if view.Employee != nil {
		out.EmployeeName = view.Employee.Name
		out.Department = view.Employee.Department
	}
	if view.Supplier != nil {
		out.SupplierName = view.Supplier.Name
	}
	return out, nil
}
