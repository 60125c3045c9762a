package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5"
)

const registrationsLogPrefix = "db:registrations"

const registrationColumns = `r.id, r.employee_id, r.supplier_id, r.reason, r.priority, r.expected_date,
	r.vehicle_id, r.status, r.id_card_photo_url, r.license_plate_photo_url, r.vehicle_photo_url,
	r.check_in_time, r.check_out_time, r.created, r.modified`

const registrationViewQuery = `SELECT ` + registrationColumns + `,
	e.id, e.name, e.department, e.created, e.modified,
	s.id, s.name, s.created, s.modified,
	v.id, v.license_plate, v.driver_name, v.driver_id_card, v.vehicle_type, v.last_registered
	FROM registrations r
	JOIN employees e ON e.id = r.employee_id
	JOIN suppliers s ON s.id = r.supplier_id
	LEFT JOIN vehicles v ON v.id = r.vehicle_id`

// UpsertVehicleParams holds parameters for UpsertVehicle.
type UpsertVehicleParams struct {
	LicensePlate string
	DriverName   *string
	DriverIDCard *string
	VehicleType  *string
}

// UpsertVehicle creates or refreshes the vehicle with the given (normalized) plate.
func (r *Repository) UpsertVehicle(ctx context.Context, params UpsertVehicleParams) (*Vehicle, error) {
	slog.Debug(fmt.Sprintf("%s - UpsertVehicle plate=%s", registrationsLogPrefix, params.LicensePlate))

	var v Vehicle
	err := r.pool.QueryRow(ctx,
		`INSERT INTO vehicles (license_plate, driver_name, driver_id_card, vehicle_type, last_registered)
		 VALUES ($1, $2, $3, $4, now())
		 ON CONFLICT (license_plate) DO UPDATE SET
		   driver_name = EXCLUDED.driver_name,
		   driver_id_card = EXCLUDED.driver_id_card,
		   vehicle_type = EXCLUDED.vehicle_type,
		   last_registered = now(),
		   modified = now()
		 RETURNING id, license_plate, driver_name, driver_id_card, vehicle_type, last_registered`,
		params.LicensePlate, params.DriverName, params.DriverIDCard, params.VehicleType,
	).Scan(&v.ID, &v.LicensePlate, &v.DriverName, &v.DriverIDCard, &v.VehicleType, &v.LastRegistered)
	if err != nil {
		return nil, fmt.Errorf("%s - UpsertVehicle failed: %w", registrationsLogPrefix, err)
	}
	return &v, nil
}

// CreateRegistrationParams holds parameters for CreateRegistration.
type CreateRegistrationParams struct {
	EmployeeID   string
	SupplierID   string
	Reason       string
	Priority     string
	ExpectedDate time.Time
}

// CreateRegistration inserts a registration awaiting declaration.
func (r *Repository) CreateRegistration(ctx context.Context, params CreateRegistrationParams) (*Registration, error) {
	slog.Info(fmt.Sprintf("%s - CreateRegistration employee=%s supplier=%s", registrationsLogPrefix, params.EmployeeID, params.SupplierID))

	row := r.pool.QueryRow(ctx,
		`INSERT INTO registrations AS r (employee_id, supplier_id, reason, priority, expected_date, status)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 RETURNING `+registrationColumns,
		params.EmployeeID, params.SupplierID, params.Reason, params.Priority, params.ExpectedDate, StatusAwaitingDeclaration)
	reg, err := scanRegistration(row)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateRegistration failed: %w", registrationsLogPrefix, err)
	}
	return reg, nil
}

// GetRegistration finds a registration with its employee, supplier and vehicle.
func (r *Repository) GetRegistration(ctx context.Context, id string) (*RegistrationView, error) {
	row := r.pool.QueryRow(ctx, registrationViewQuery+` WHERE r.id = $1`, id)
	return scanRegistrationView(row)
}

// DeclareRegistrationParams holds parameters for DeclareRegistration.
type DeclareRegistrationParams struct {
	ID        string
	VehicleID string
	ImageURLs ImageURLs
}

// DeclareRegistration attaches the vehicle and photos and marks the registration declared.
func (r *Repository) DeclareRegistration(ctx context.Context, params DeclareRegistrationParams) (*Registration, error) {
	slog.Info(fmt.Sprintf("%s - DeclareRegistration id=%s vehicle=%s", registrationsLogPrefix, params.ID, params.VehicleID))

	row := r.pool.QueryRow(ctx,
		`UPDATE registrations AS r SET
		   status = $2,
		   vehicle_id = $3,
		   id_card_photo_url = $4,
		   license_plate_photo_url = $5,
		   vehicle_photo_url = $6,
		   modified = now()
		 WHERE r.id = $1
		 RETURNING `+registrationColumns,
		params.ID, StatusDeclared, params.VehicleID,
		params.ImageURLs.IDCardPhoto, params.ImageURLs.LicensePlatePhoto, params.ImageURLs.VehiclePhoto)
	return scanRegistration(row)
}

// CheckIn marks the registration as inside the gate at the given time.
func (r *Repository) CheckIn(ctx context.Context, id string, at time.Time) (*Registration, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE registrations AS r SET status = $2, check_in_time = $3, modified = now()
		 WHERE r.id = $1
		 RETURNING `+registrationColumns, id, StatusCheckedIn, at)
	return scanRegistration(row)
}

// CheckOut marks the registration as having left the gate at the given time.
func (r *Repository) CheckOut(ctx context.Context, id string, at time.Time) (*Registration, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE registrations AS r SET status = $2, check_out_time = $3, modified = now()
		 WHERE r.id = $1
		 RETURNING `+registrationColumns, id, StatusCheckedOut, at)
	return scanRegistration(row)
}

// ListRegistrations returns every registration, newest first.
func (r *Repository) ListRegistrations(ctx context.Context) ([]RegistrationView, error) {
	rows, err := r.pool.Query(ctx, registrationViewQuery+` ORDER BY r.created DESC`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListRegistrations failed: %w", registrationsLogPrefix, err)
	}
	defer rows.Close()
	return scanRegistrationViews(rows)
}

// SearchRegistrationsParams holds parameters for SearchRegistrations.
type SearchRegistrationsParams struct {
	From time.Time
	To   time.Time
	// Pattern is a case-insensitive regular expression; empty matches everything.
	Pattern string
}

// SearchRegistrations returns registrations created in [From, To] whose reason,
// employee name, supplier name, plate or driver name match Pattern, newest first.
func (r *Repository) SearchRegistrations(ctx context.Context, params SearchRegistrationsParams) ([]RegistrationView, error) {
	query := registrationViewQuery + ` WHERE r.created >= $1 AND r.created <= $2`
	args := []interface{}{params.From, params.To}
	if params.Pattern != "" {
		query += ` AND (r.reason ~* $3 OR e.name ~* $3 OR s.name ~* $3
		            OR v.license_plate ~* $3 OR v.driver_name ~* $3)`
		args = append(args, params.Pattern)
	}
	query += ` ORDER BY r.created DESC`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s - SearchRegistrations failed: %w", registrationsLogPrefix, err)
	}
	defer rows.Close()
	return scanRegistrationViews(rows)
}

func scanRegistration(row pgx.Row) (*Registration, error) {
	var reg Registration
	err := row.Scan(registrationDest(&reg)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan registration failed: %w", registrationsLogPrefix, err)
	}
	return &reg, nil
}

func registrationDest(reg *Registration) []interface{} {
	return []interface{}{
		&reg.ID, &reg.EmployeeID, &reg.SupplierID, &reg.Reason, &reg.Priority, &reg.ExpectedDate,
		&reg.VehicleID, &reg.Status, &reg.ImageURLs.IDCardPhoto, &reg.ImageURLs.LicensePlatePhoto, &reg.ImageURLs.VehiclePhoto,
		&reg.CheckInTime, &reg.CheckOutTime, &reg.CreatedAt, &reg.UpdatedAt,
	}
}

// vehicleCols receives the LEFT JOINed vehicle columns, all nullable.
type vehicleCols struct {
	id, plate, driverName, driverIDCard, vehicleType *string
	lastRegistered                                    *time.Time
}

func (c *vehicleCols) vehicle() *Vehicle {
	if c.id == nil {
		return nil
	}
	v := &Vehicle{
		ID:           *c.id,
		DriverName:   c.driverName,
		DriverIDCard: c.driverIDCard,
		VehicleType:  c.vehicleType,
	}
	if c.plate != nil {
		v.LicensePlate = *c.plate
	}
	if c.lastRegistered != nil {
		v.LastRegistered = *c.lastRegistered
	}
	return v
}

func scanRegistrationView(row pgx.Row) (*RegistrationView, error) {
	var view RegistrationView
	var e Employee
	var s Supplier
	var vc vehicleCols

	dest := registrationDest(&view.Registration)
	dest = append(dest,
		&e.ID, &e.Name, &e.Department, &e.CreatedAt, &e.UpdatedAt,
		&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt,
		&vc.id, &vc.plate, &vc.driverName, &vc.driverIDCard, &vc.vehicleType, &vc.lastRegistered,
	)
	err := row.Scan(dest...)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan registration view failed: %w", registrationsLogPrefix, err)
	}
	view.Employee = &e
	view.Supplier = &s
	view.Vehicle = vc.vehicle()
	return &view, nil
}

func scanRegistrationViews(rows pgx.Rows) ([]RegistrationView, error) {
	out := []RegistrationView{}
	for rows.Next() {
		view, err := scanRegistrationView(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *view)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("%s - iterate registrations failed: %w", registrationsLogPrefix, err)
	}
	return out, nil
}
