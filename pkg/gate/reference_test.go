package gate

import (
	"context"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/morezero/gate-registration/pkg/gate/gatetest"
)

const referenceTestPrefix = "gate:reference_test"

func TestEmployeeCRUD(t *testing.T) {
	s := newTestService(gatetest.NewMemoryRepo(), nil)
	ctx := context.Background()

	e, err := s.CreateEmployee(ctx, &EmployeeInput{Name: " Le Thi C ", Department: "QA"})
	if err != nil {
		t.Fatalf("%s - CreateEmployee: %v", referenceTestPrefix, err)
	}
	if e.Name != "Le Thi C" {
		t.Errorf("%s - name not trimmed: %q", referenceTestPrefix, e.Name)
	}
	if _, err := s.CreateEmployee(ctx, &EmployeeInput{Name: "Le Thi C", Department: "QA"}); gateCode(err) != CodeConflict {
		t.Errorf("%s - duplicate employee err = %v, want CONFLICT", referenceTestPrefix, err)
	}
	if _, err := s.CreateEmployee(ctx, &EmployeeInput{Name: "X"}); gateCode(err) != CodeInvalidArgument {
		t.Errorf("%s - missing department err = %v", referenceTestPrefix, err)
	}
	if _, err := s.CreateEmployee(ctx, &EmployeeInput{Name: strings.Repeat("x", 101), Department: "QA"}); gateCode(err) != CodeInvalidArgument {
		t.Errorf("%s - long name err = %v", referenceTestPrefix, err)
	}

	updated, err := s.UpdateEmployee(ctx, e.ID, &EmployeeInput{Name: "Le Thi C", Department: "Logistics"})
	if err != nil || updated.Department != "Logistics" {
		t.Errorf("%s - UpdateEmployee = %+v, %v", referenceTestPrefix, updated, err)
	}
	if _, err := s.UpdateEmployee(ctx, uuid.NewString(), &EmployeeInput{Name: "a", Department: "b"}); gateCode(err) != CodeNotFound {
		t.Errorf("%s - UpdateEmployee missing err = %v", referenceTestPrefix, err)
	}

	list, _ := s.ListEmployees(ctx)
	if len(list) != 1 {
		t.Errorf("%s - ListEmployees len = %d, want 1", referenceTestPrefix, len(list))
	}
	if _, err := s.DeleteEmployee(ctx, e.ID); err != nil {
		t.Errorf("%s - DeleteEmployee: %v", referenceTestPrefix, err)
	}
	if _, err := s.DeleteEmployee(ctx, e.ID); gateCode(err) != CodeNotFound {
		t.Errorf("%s - second DeleteEmployee err = %v", referenceTestPrefix, err)
	}
}

func TestSupplierCRUD(t *testing.T) {
	s := newTestService(gatetest.NewMemoryRepo(), nil)
	ctx := context.Background()

	sup, err := s.CreateSupplier(ctx, &SupplierInput{Name: "Fast Freight"})
	if err != nil {
		t.Fatalf("%s - CreateSupplier: %v", referenceTestPrefix, err)
	}
	if _, err := s.CreateSupplier(ctx, &SupplierInput{Name: "Fast Freight"}); gateCode(err) != CodeConflict {
		t.Errorf("%s - duplicate supplier err = %v, want CONFLICT", referenceTestPrefix, err)
	}
	if _, err := s.CreateSupplier(ctx, &SupplierInput{Name: "  "}); gateCode(err) != CodeInvalidArgument {
		t.Errorf("%s - blank supplier err = %v", referenceTestPrefix, err)
	}

	renamed, err := s.UpdateSupplier(ctx, sup.ID, &SupplierInput{Name: "Fast Freight Co"})
	if err != nil || renamed.Name != "Fast Freight Co" {
		t.Errorf("%s - UpdateSupplier = %+v, %v", referenceTestPrefix, renamed, err)
	}
	if _, err := s.UpdateSupplier(ctx, "bad", &SupplierInput{Name: "x"}); gateCode(err) != CodeInvalidArgument {
		t.Errorf("%s - UpdateSupplier bad id err = %v", referenceTestPrefix, err)
	}

	list, _ := s.ListSuppliers(ctx)
	if len(list) != 1 {
		t.Errorf("%s - ListSuppliers len = %d, want 1", referenceTestPrefix, len(list))
	}
	if _, err := s.DeleteSupplier(ctx, sup.ID); err != nil {
		t.Errorf("%s - DeleteSupplier: %v", referenceTestPrefix, err)
	}
	if _, err := s.DeleteSupplier(ctx, uuid.NewString()); gateCode(err) != CodeNotFound {
		t.Errorf("%s - DeleteSupplier missing err = %v", referenceTestPrefix, err)
	}
}
