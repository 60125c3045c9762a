// Package gatetest provides in-memory doubles of the gate service dependencies for tests.
package gatetest

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/morezero/gate-registration/pkg/db"
	"github.com/morezero/gate-registration/pkg/upload"
)

// ErrUniqueViolation is what the memory repository returns for duplicates.
var ErrUniqueViolation = &pgconn.PgError{Code: "23505"}

// MemoryRepo is an in-memory gate.Repository. FailWith, when set, is returned by most calls.
type MemoryRepo struct {
	mu sync.Mutex

	// Rows by ID, except Vehicles which is keyed by plate.
	Users         map[string]*db.User
	Employees     map[string]*db.Employee
	Suppliers     map[string]*db.Supplier
	Vehicles      map[string]*db.Vehicle
	Registrations map[string]*db.Registration
	FailWith      error
	Searches      []db.SearchRegistrationsParams
}

// NewMemoryRepo returns an empty MemoryRepo.
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		Users:         map[string]*db.User{},
		Employees:     map[string]*db.Employee{},
		Suppliers:     map[string]*db.Supplier{},
		Vehicles:      map[string]*db.Vehicle{},
		Registrations: map[string]*db.Registration{},
	}
}

func (f *MemoryRepo) Ping(context.Context) error { return f.FailWith }

func (f *MemoryRepo) GetUserByUsername(_ context.Context, username string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	for _, u := range f.Users {
		if u.Username == username {
			cp := *u
			return &cp, nil
		}
	}
	return nil, nil
}

func (f *MemoryRepo) ListUsers(context.Context) ([]db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.User{}
	for _, u := range f.Users {
		out = append(out, *u)
	}
	return out, f.FailWith
}

func (f *MemoryRepo) CreateUser(_ context.Context, username, hash, role string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	for _, u := range f.Users {
		if u.Username == username {
			return nil, fmt.Errorf("db:repository - CreateUser failed: %w", ErrUniqueViolation)
		}
	}
	u := &db.User{ID: uuid.NewString(), Username: username, Password: hash, Role: role}
	f.Users[u.ID] = u
	return u, nil
}

func (f *MemoryRepo) UpdateUserRole(_ context.Context, id, role string) (*db.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if !ok {
		return nil, f.FailWith
	}
	u.Role = role
	return u, nil
}

func (f *MemoryRepo) UpdateUserPassword(_ context.Context, id, hash string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	u, ok := f.Users[id]
	if ok {
		u.Password = hash
	}
	return ok, f.FailWith
}

func (f *MemoryRepo) DeleteUser(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Users[id]
	delete(f.Users, id)
	return ok, f.FailWith
}

func (f *MemoryRepo) ListEmployees(context.Context) ([]db.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.Employee{}
	for _, e := range f.Employees {
		out = append(out, *e)
	}
	return out, f.FailWith
}

func (f *MemoryRepo) CreateEmployee(_ context.Context, name, dept string) (*db.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, e := range f.Employees {
		if e.Name == name && e.Department == dept {
			return nil, ErrUniqueViolation
		}
	}
	e := &db.Employee{ID: uuid.NewString(), Name: name, Department: dept}
	f.Employees[e.ID] = e
	return e, f.FailWith
}

func (f *MemoryRepo) UpsertEmployee(_ context.Context, name, dept string) (*db.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	for _, e := range f.Employees {
		if e.Name == name && e.Department == dept {
			return e, nil
		}
	}
	e := &db.Employee{ID: uuid.NewString(), Name: name, Department: dept}
	f.Employees[e.ID] = e
	return e, nil
}

func (f *MemoryRepo) UpdateEmployee(_ context.Context, id, name, dept string) (*db.Employee, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	e, ok := f.Employees[id]
	if !ok {
		return nil, nil
	}
	e.Name, e.Department = name, dept
	return e, nil
}

func (f *MemoryRepo) DeleteEmployee(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Employees[id]
	delete(f.Employees, id)
	return ok, nil
}

func (f *MemoryRepo) ListSuppliers(context.Context) ([]db.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.Supplier{}
	for _, s := range f.Suppliers {
		out = append(out, *s)
	}
	return out, f.FailWith
}

func (f *MemoryRepo) CreateSupplier(_ context.Context, name string) (*db.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, s := range f.Suppliers {
		if s.Name == name {
			return nil, ErrUniqueViolation
		}
	}
	s := &db.Supplier{ID: uuid.NewString(), Name: name}
	f.Suppliers[s.ID] = s
	return s, nil
}

func (f *MemoryRepo) UpsertSupplier(_ context.Context, name string) (*db.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	for _, s := range f.Suppliers {
		if s.Name == name {
			return s, nil
		}
	}
	s := &db.Supplier{ID: uuid.NewString(), Name: name}
	f.Suppliers[s.ID] = s
	return s, nil
}

func (f *MemoryRepo) UpdateSupplier(_ context.Context, id, name string) (*db.Supplier, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	s, ok := f.Suppliers[id]
	if !ok {
		return nil, nil
	}
	s.Name = name
	return s, nil
}

func (f *MemoryRepo) DeleteSupplier(_ context.Context, id string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.Suppliers[id]
	delete(f.Suppliers, id)
	return ok, nil
}

func (f *MemoryRepo) UpsertVehicle(_ context.Context, p db.UpsertVehicleParams) (*db.Vehicle, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	if p.DriverIDCard != nil {
		for plate, other := range f.Vehicles {
			if plate != p.LicensePlate && other.DriverIDCard != nil && *other.DriverIDCard == *p.DriverIDCard {
				return nil, ErrUniqueViolation
			}
		}
	}
	v, ok := f.Vehicles[p.LicensePlate]
	if !ok {
		v = &db.Vehicle{ID: uuid.NewString(), LicensePlate: p.LicensePlate}
		f.Vehicles[p.LicensePlate] = v
	}
	v.DriverName, v.DriverIDCard, v.VehicleType = p.DriverName, p.DriverIDCard, p.VehicleType
	v.LastRegistered = time.Now()
	return v, nil
}

func (f *MemoryRepo) CreateRegistration(_ context.Context, p db.CreateRegistrationParams) (*db.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	r := &db.Registration{
		ID: uuid.NewString(), EmployeeID: p.EmployeeID, SupplierID: p.SupplierID,
		Reason: p.Reason, Priority: p.Priority, ExpectedDate: p.ExpectedDate,
		Status: db.StatusAwaitingDeclaration, CreatedAt: time.Now(),
	}
	f.Registrations[r.ID] = r
	return r, nil
}

func (f *MemoryRepo) view(r *db.Registration) db.RegistrationView {
	v := db.RegistrationView{Registration: *r, Employee: f.Employees[r.EmployeeID], Supplier: f.Suppliers[r.SupplierID]}
	if r.VehicleID != nil {
		for _, veh := range f.Vehicles {
			if veh.ID == *r.VehicleID {
				v.Vehicle = veh
			}
		}
	}
	return v
}

func (f *MemoryRepo) GetRegistration(_ context.Context, id string) (*db.RegistrationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	r, ok := f.Registrations[id]
	if !ok {
		return nil, nil
	}
	v := f.view(r)
	return &v, nil
}

func (f *MemoryRepo) DeclareRegistration(_ context.Context, p db.DeclareRegistrationParams) (*db.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.Registrations[p.ID]
	if !ok {
		return nil, nil
	}
	vid := p.VehicleID
	r.VehicleID = &vid
	r.ImageURLs = p.ImageURLs
	r.Status = db.StatusDeclared
	return r, nil
}

func (f *MemoryRepo) CheckIn(_ context.Context, id string, at time.Time) (*db.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	r, ok := f.Registrations[id]
	if !ok {
		return nil, nil
	}
	r.Status, r.CheckInTime = db.StatusCheckedIn, &at
	return r, nil
}

func (f *MemoryRepo) CheckOut(_ context.Context, id string, at time.Time) (*db.Registration, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	r, ok := f.Registrations[id]
	if !ok {
		return nil, nil
	}
	r.Status, r.CheckOutTime = db.StatusCheckedOut, &at
	return r, nil
}

func (f *MemoryRepo) ListRegistrations(context.Context) ([]db.RegistrationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := []db.RegistrationView{}
	for _, r := range f.Registrations {
		out = append(out, f.view(r))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, f.FailWith
}

func (f *MemoryRepo) SearchRegistrations(_ context.Context, p db.SearchRegistrationsParams) ([]db.RegistrationView, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Searches = append(f.Searches, p)
	if f.FailWith != nil {
		return nil, f.FailWith
	}
	out := []db.RegistrationView{}
	for _, r := range f.Registrations {
		if r.CreatedAt.Before(p.From) || r.CreatedAt.After(p.To) {
			continue
		}
		if p.Pattern != "" && !strings.Contains(strings.ToLower(r.Reason), strings.ToLower(p.Pattern)) {
			continue
		}
		out = append(out, f.view(r))
	}
	return out, nil
}

// Uploader returns "https://cdn.test/<name>" for every upload and tracks concurrency.
// When Release is set each upload blocks until it is closed.
type Uploader struct {
	Err      error
	Calls    atomic.Int32
	InFlight atomic.Int32
	Peak     atomic.Int32
	Release  chan struct{}
}

var _ upload.Uploader = (*Uploader)(nil)

func (u *Uploader) Upload(ctx context.Context, name string, r io.Reader) (string, error) {
	u.Calls.Add(1)
	n := u.InFlight.Add(1)
	defer u.InFlight.Add(-1)
	for {
		p := u.Peak.Load()
		if n <= p || u.Peak.CompareAndSwap(p, n) {
			break
		}
	}
	if u.Release != nil {
		select {
		case <-u.Release:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	if u.Err != nil {
		return "", u.Err
	}
	if _, err := io.ReadAll(r); err != nil {
		return "", err
	}
	return "https://cdn.test/" + name, nil
}

