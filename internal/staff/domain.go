// Package staff manages employment records for teaching and support staff.
package staff

import (
	"errors"
	"time"
)

// Employment terms. TSC staff are employed by the national commission,
// BOM staff by the school's board of management.
type EmploymentType string

const (
	EmploymentTSC EmploymentType = "tsc"
	EmploymentBOM EmploymentType = "bom"
)

// Employment lifecycle statuses.
type Status string

const (
	StatusActive     Status = "active"
	StatusOnLeave    Status = "on_leave"
	StatusSuspended  Status = "suspended"
	StatusTerminated Status = "terminated"
)

// Member is a staff employment record.
type Member struct {
	ID             int64
	UserID         *int64
	StaffNumber    string
	TSCNumber      string
	NationalID     string
	Phone          string
	Department     string
	Designation    string
	EmploymentType EmploymentType
	BasicSalary    int64
	HireDate       time.Time
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

var (
	// ErrNotFound indicates the staff member does not exist.
	ErrNotFound = errors.New("staff: not found")
	// ErrDuplicateStaffNumber indicates the staff number is taken.
	ErrDuplicateStaffNumber = errors.New("staff: staff number already in use")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("staff: invalid input")
)
