package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides database access for gate registration operations.
// Lookups return (nil, nil) when the row does not exist.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// Ping checks database connectivity.
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// =========================================================================
// USER OPERATIONS
// =========================================================================

const userColumns = `id, username, password, role, created, modified`

// GetUserByUsername finds a user by username.
func (r *Repository) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	slog.Debug(fmt.Sprintf("%s - GetUserByUsername username=%s", repoLogPrefix, username))
	row := r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = $1 LIMIT 1`, username)
	return scanUser(row)
}

// ListUsers returns all users ordered by username.
func (r *Repository) ListUsers(ctx context.Context) ([]User, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+userColumns+` FROM users ORDER BY username ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListUsers failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	users := []User{}
	for rows.Next() {
		var u User
		if err := rows.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s - ListUsers scan failed: %w", repoLogPrefix, err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// CreateUser inserts a user. passwordHash must already be hashed.
func (r *Repository) CreateUser(ctx context.Context, username, passwordHash, role string) (*User, error) {
	slog.Info(fmt.Sprintf("%s - CreateUser username=%s role=%s", repoLogPrefix, username, role))
	row := r.pool.QueryRow(ctx,
		`INSERT INTO users (username, password, role) VALUES ($1, $2, $3)
		 RETURNING `+userColumns, username, passwordHash, role)
	u, err := scanUser(row)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateUser failed: %w", repoLogPrefix, err)
	}
	return u, nil
}

// UpdateUserRole sets the role of a user.
func (r *Repository) UpdateUserRole(ctx context.Context, id, role string) (*User, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE users SET role = $2, modified = now() WHERE id = $1
		 RETURNING `+userColumns, id, role)
	return scanUser(row)
}

// UpdateUserPassword sets the password hash of a user.
func (r *Repository) UpdateUserPassword(ctx context.Context, id, passwordHash string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE users SET password = $2, modified = now() WHERE id = $1`, id, passwordHash)
	if err != nil {
		return false, fmt.Errorf("%s - UpdateUserPassword failed: %w", repoLogPrefix, err)
	}
	return tag.RowsAffected() > 0, nil
}

// DeleteUser removes a user.
func (r *Repository) DeleteUser(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "users", id)
}

// =========================================================================
// EMPLOYEE OPERATIONS
// =========================================================================

const employeeColumns = `id, name, department, created, modified`

// ListEmployees returns all employees ordered by department and name.
func (r *Repository) ListEmployees(ctx context.Context) ([]Employee, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+employeeColumns+` FROM employees ORDER BY department ASC, name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListEmployees failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	out := []Employee{}
	for rows.Next() {
		var e Employee
		if err := rows.Scan(&e.ID, &e.Name, &e.Department, &e.CreatedAt, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s - ListEmployees scan failed: %w", repoLogPrefix, err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// CreateEmployee inserts an employee.
func (r *Repository) CreateEmployee(ctx context.Context, name, department string) (*Employee, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO employees (name, department) VALUES ($1, $2) RETURNING `+employeeColumns,
		name, department)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateEmployee failed: %w", repoLogPrefix, err)
	}
	return e, nil
}

// UpsertEmployee returns the employee with the given name and department, creating it if needed.
func (r *Repository) UpsertEmployee(ctx context.Context, name, department string) (*Employee, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO employees (name, department) VALUES ($1, $2)
		 ON CONFLICT (name, department) DO UPDATE SET modified = now()
		 RETURNING `+employeeColumns, name, department)
	e, err := scanEmployee(row)
	if err != nil {
		return nil, fmt.Errorf("%s - UpsertEmployee failed: %w", repoLogPrefix, err)
	}
	return e, nil
}

// UpdateEmployee renames an employee or moves it to another department.
func (r *Repository) UpdateEmployee(ctx context.Context, id, name, department string) (*Employee, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE employees SET name = $2, department = $3, modified = now() WHERE id = $1
		 RETURNING `+employeeColumns, id, name, department)
	return scanEmployee(row)
}

// DeleteEmployee removes an employee. Fails with a foreign key violation while registrations reference it.
func (r *Repository) DeleteEmployee(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "employees", id)
}

// =========================================================================
// SUPPLIER OPERATIONS
// =========================================================================

const supplierColumns = `id, name, created, modified`

// ListSuppliers returns all suppliers ordered by name.
func (r *Repository) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+supplierColumns+` FROM suppliers ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("%s - ListSuppliers failed: %w", repoLogPrefix, err)
	}
	defer rows.Close()

	out := []Supplier{}
	for rows.Next() {
		var s Supplier
		if err := rows.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt); err != nil {
			return nil, fmt.Errorf("%s - ListSuppliers scan failed: %w", repoLogPrefix, err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CreateSupplier inserts a supplier.
func (r *Repository) CreateSupplier(ctx context.Context, name string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (name) VALUES ($1) RETURNING `+supplierColumns, name)
	s, err := scanSupplier(row)
	if err != nil {
		return nil, fmt.Errorf("%s - CreateSupplier failed: %w", repoLogPrefix, err)
	}
	return s, nil
}

// UpsertSupplier returns the supplier with the given name, creating it if needed.
func (r *Repository) UpsertSupplier(ctx context.Context, name string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`INSERT INTO suppliers (name) VALUES ($1)
		 ON CONFLICT (name) DO UPDATE SET modified = now()
		 RETURNING `+supplierColumns, name)
	s, err := scanSupplier(row)
	if err != nil {
		return nil, fmt.Errorf("%s - UpsertSupplier failed: %w", repoLogPrefix, err)
	}
	return s, nil
}

// UpdateSupplier renames a supplier.
func (r *Repository) UpdateSupplier(ctx context.Context, id, name string) (*Supplier, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE suppliers SET name = $2, modified = now() WHERE id = $1
		 RETURNING `+supplierColumns, id, name)
	return scanSupplier(row)
}

// DeleteSupplier removes a supplier. Fails with a foreign key violation while registrations reference it.
func (r *Repository) DeleteSupplier(ctx context.Context, id string) (bool, error) {
	return r.deleteByID(ctx, "suppliers", id)
}

// =========================================================================
// HELPERS
// =========================================================================

// deleteByID deletes one row by primary key. table is never user input.
func (r *Repository) deleteByID(ctx context.Context, table, id string) (bool, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM `+pgx.Identifier{table}.Sanitize()+` WHERE id = $1`, id)
	if err != nil {
		return false, fmt.Errorf("%s - delete from %s failed: %w", repoLogPrefix, table, err)
	}
	return tag.RowsAffected() > 0, nil
}

func scanUser(row pgx.Row) (*User, error) {
	var u User
	err := row.Scan(&u.ID, &u.Username, &u.Password, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan user failed: %w", repoLogPrefix, err)
	}
	return &u, nil
}

func scanEmployee(row pgx.Row) (*Employee, error) {
	var e Employee
	err := row.Scan(&e.ID, &e.Name, &e.Department, &e.CreatedAt, &e.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan employee failed: %w", repoLogPrefix, err)
	}
	return &e, nil
}

func scanSupplier(row pgx.Row) (*Supplier, error) {
	var s Supplier
	err := row.Scan(&s.ID, &s.Name, &s.CreatedAt, &s.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - scan supplier failed: %w", repoLogPrefix, err)
	}
	return &s, nil
}
