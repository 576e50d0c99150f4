// Package payroll generates and settles monthly staff pay runs.
//
// A run moves draft -> approved -> paid, each step stamped with the acting
// user. Transitions are conditional updates, so two principals racing on the
// same run cannot both win, and a draft can never jump straight to paid.
package payroll

import (
	"errors"
	"time"
)

// Run statuses.
type Status string

const (
	StatusDraft    Status = "draft"
	StatusApproved Status = "approved"
	StatusPaid     Status = "paid"
)

// Run is one staff member's pay for one month. Amounts are in cents. Month is
// the first day of the month. One run exists per (staff, month).
type Run struct {
	ID          int64
	StaffID     int64
	Month       time.Time
	BasicSalary int64
	Allowances  int64
	Deductions  int64
	Status      Status
	GeneratedBy int64
	ApprovedBy  *int64
	ApprovedAt  *time.Time
	PaidAt      *time.Time
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Gross returns salary plus allowances in cents.
func (r Run) Gross() int64 {
	return r.BasicSalary + r.Allowances
}

// Net returns gross minus deductions in cents.
func (r Run) Net() int64 {
	return r.Gross() - r.Deductions
}

var (
	// ErrNotFound indicates the run does not exist.
	ErrNotFound = errors.New("payroll: not found")
	// ErrDuplicateRun indicates a run already exists for the staff and month.
	ErrDuplicateRun = errors.New("payroll: run already exists for this month")
	// ErrInvalidTransition indicates the run is not in the required state.
	ErrInvalidTransition = errors.New("payroll: invalid status transition")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("payroll: invalid input")
)
