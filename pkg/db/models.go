package db

import "time"

// Registration statuses, in lifecycle order.
const (
	StatusAwaitingDeclaration = "awaiting_declaration"
	StatusDeclared            = "declared"
	StatusCheckedIn           = "checked_in"
	StatusCheckedOut          = "checked_out"
)

// Registration priorities.
const (
	PriorityLow    = "low"
	PriorityMedium = "medium"
	PriorityHigh   = "high"
)

// User represents a row in the users table. Password holds the bcrypt hash.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Password  string    `json:"-"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Employee represents a row in the employees table.
type Employee struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Department string    `json:"department"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Supplier represents a row in the suppliers table.
type Supplier struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Vehicle represents a row in the vehicles table.
type Vehicle struct {
	ID             string    `json:"id"`
	LicensePlate   string    `json:"licensePlate"`
	DriverName     *string   `json:"driverName,omitempty"`
	DriverIDCard   *string   `json:"driverIdCard,omitempty"`
	VehicleType    *string   `json:"vehicleType,omitempty"`
	LastRegistered time.Time `json:"lastRegistered"`
}

// ImageURLs are the three declaration photos.
type ImageURLs struct {
	IDCardPhoto       *string `json:"idCardPhoto,omitempty"`
	LicensePlatePhoto *string `json:"licensePlatePhoto,omitempty"`
	VehiclePhoto      *string `json:"vehiclePhoto,omitempty"`
}

// Registration represents a row in the registrations table.
type Registration struct {
	ID           string     `json:"id"`
	EmployeeID   string     `json:"employeeId"`
	SupplierID   string     `json:"supplierId"`
	Reason       string     `json:"reason"`
	Priority     string     `json:"priority"`
	ExpectedDate time.Time  `json:"expectedDate"`
	VehicleID    *string    `json:"vehicleId,omitempty"`
	Status       string     `json:"status"`
	ImageURLs    ImageURLs  `json:"imageUrls"`
	CheckInTime  *time.Time `json:"checkInTime,omitempty"`
	CheckOutTime *time.Time `json:"checkOutTime,omitempty"`
	CreatedAt    time.Time  `json:"createdAt"`
	UpdatedAt    time.Time  `json:"updatedAt"`
}

// RegistrationView is a registration joined with its employee, supplier and vehicle.
type RegistrationView struct {
	Registration
	Employee *Employee `json:"employee,omitempty"`
	Supplier *Supplier `json:"supplier,omitempty"`
	Vehicle  *Vehicle  `json:"vehicle,omitempty"`
}
