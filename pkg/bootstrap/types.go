// Package bootstrap loads the seed file used to provision users and reference data.
package bootstrap

import "fmt"

// SeedUser is a user account in the seed file. Password is plaintext and is
// hashed before it is stored.
type SeedUser struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// SeedEmployee is an employee in the seed file.
type SeedEmployee struct {
	Name       string `json:"name"`
	Department string `json:"department"`
}

// SeedSupplier is a supplier in the seed file.
type SeedSupplier struct {
	Name string `json:"name"`
}

// SeedConfig is the root of the seed file.
type SeedConfig struct {
	Users     []SeedUser     `json:"users,omitempty"`
	Employees []SeedEmployee `json:"employees,omitempty"`
	Suppliers []SeedSupplier `json:"suppliers,omitempty"`
}

// Column limits shared with the schema.
const (
	MaxEmployeeNameLen = 100
	MaxDepartmentLen   = 100
	MaxSupplierNameLen = 150
)

// Validate checks required fields and limits, and defaults empty roles to staff.
func (c *SeedConfig) Validate() error {
	for i := range c.Users {
		u := &c.Users[i]
		if u.Username == "" || u.Password == "" {
			return fmt.Errorf("users[%d]: username and password are required", i)
		}
		switch u.Role {
		case "":
			u.Role = "staff"
		case "admin", "staff":
		default:
			return fmt.Errorf("users[%d]: role %q must be admin or staff", i, u.Role)
		}
	}
	for i, e := range c.Employees {
		if e.Name == "" || e.Department == "" {
			return fmt.Errorf("employees[%d]: name and department are required", i)
		}
		if len([]rune(e.Name)) > MaxEmployeeNameLen || len([]rune(e.Department)) > MaxDepartmentLen {
			return fmt.Errorf("employees[%d]: name or department too long", i)
		}
	}
	for i, s := range c.Suppliers {
		if s.Name == "" {
			return fmt.Errorf("suppliers[%d]: name is required", i)
		}
		if len([]rune(s.Name)) > MaxSupplierNameLen {
			return fmt.Errorf("suppliers[%d]: name too long", i)
		}
	}
	return nil
}

// Empty reports whether the seed has nothing to insert.
func (c *SeedConfig) Empty() bool {
	return len(c.Users) == 0 && len(c.Employees) == 0 && len(c.Suppliers) == 0
}
