package gate

import (
	"context"
	"strings"

	"github.com/morezero/gate-registration/pkg/bootstrap"
	"github.com/morezero/gate-registration/pkg/db"
)

func validateEmployee(input *EmployeeInput) (string, string, *GateError) {
	name := strings.TrimSpace(input.Name)
	department := strings.TrimSpace(input.Department)
	if name == "" || department == "" {
		return "", "", &GateError{Code: CodeInvalidArgument, Message: "name and department are required"}
	}
	if gerr := checkLength("name", name, bootstrap.MaxEmployeeNameLen); gerr != nil {
		return "", "", gerr
	}
	if gerr := checkLength("department", department, bootstrap.MaxDepartmentLen); gerr != nil {
		return "", "", gerr
	}
	return name, department, nil
}

func validateSupplier(input *SupplierInput) (string, *GateError) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return "", &GateError{Code: CodeInvalidArgument, Message: "name is required"}
	}
	if gerr := checkLength("name", name, bootstrap.MaxSupplierNameLen); gerr != nil {
		return "", gerr
	}
	return name, nil
}

// ListEmployees returns all employees.
func (s *Service) ListEmployees(ctx context.Context) ([]db.Employee, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	out, err := s.repo.ListEmployees(ctx)
	if err != nil {
		return nil, storeError("ListEmployees", err)
	}
	return out, nil
}

// CreateEmployee adds an employee. The same name in the same department is a conflict.
func (s *Service) CreateEmployee(ctx context.Context, input *EmployeeInput) (*db.Employee, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	name, dept, gerr := validateEmployee(input)
	if gerr != nil {
		return nil, gerr
	}
	e, err := s.repo.CreateEmployee(ctx, name, dept)
	if err != nil {
		return nil, storeError("CreateEmployee", err)
	}
	return e, nil
}

// UpdateEmployee renames or moves an employee.
func (s *Service) UpdateEmployee(ctx context.Context, id string, input *EmployeeInput) (*db.Employee, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	name, dept, gerr := validateEmployee(input)
	if gerr != nil {
		return nil, gerr
	}
	e, err := s.repo.UpdateEmployee(ctx, id, name, dept)
	if err != nil {
		return nil, storeError("UpdateEmployee", err)
	}
	if e == nil {
		return nil, notFound("employee")
	}
	return e, nil
}

// DeleteEmployee removes an employee that no registration references.
func (s *Service) DeleteEmployee(ctx context.Context, id string) (*MessageOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	ok, err := s.repo.DeleteEmployee(ctx, id)
	if err != nil {
		return nil, storeError("DeleteEmployee", err)
	}
	if !ok {
		return nil, notFound("employee")
	}
	return &MessageOutput{Message: "employee deleted"}, nil
}

// ListSuppliers returns all suppliers.
func (s *Service) ListSuppliers(ctx context.Context) ([]db.Supplier, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	out, err := s.repo.ListSuppliers(ctx)
	if err != nil {
		return nil, storeError("ListSuppliers", err)
	}
	return out, nil
}

// CreateSupplier adds a supplier. Names are unique.
func (s *Service) CreateSupplier(ctx context.Context, input *SupplierInput) (*db.Supplier, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	name, gerr := validateSupplier(input)
	if gerr != nil {
		return nil, gerr
	}
	sup, err := s.repo.CreateSupplier(ctx, name)
	if err != nil {
		return nil, storeError("CreateSupplier", err)
	}
	return sup, nil
}

// UpdateSupplier renames a supplier.
func (s *Service) UpdateSupplier(ctx context.Context, id string, input *SupplierInput) (*db.Supplier, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	name, gerr := validateSupplier(input)
	if gerr != nil {
		return nil, gerr
	}
	sup, err := s.repo.UpdateSupplier(ctx, id, name)
	if err != nil {
		return nil, storeError("UpdateSupplier", err)
	}
	if sup == nil {
		return nil, notFound("supplier")
	}
	return sup, nil
}

// DeleteSupplier removes a supplier that no registration references.
func (s *Service) DeleteSupplier(ctx context.Context, id string) (*MessageOutput, error) {
	if err := s.requireRepo(); err != nil {
		return nil, err
	}
	if err := validateID(id); err != nil {
		return nil, err
	}
	ok, err := s.repo.DeleteSupplier(ctx, id)
	if err != nil {
		return nil, storeError("DeleteSupplier", err)
	}
	if !ok {
		return nil, notFound("supplier")
	}
	return &MessageOutput{Message: "supplier deleted"}, nil
}
