// Package reports generates downloadable CSV summaries in the background.
package reports

import (
	"errors"
	"time"
)

// Report types. Each maps to a permission, so a bursar can pull financial
// reports without seeing academic ones.
type Type string

const (
	TypeEnrollment Type = "enrollment"
	TypeAttendance Type = "attendance"
	TypeFinancial  Type = "financial"
	TypePayroll    Type = "payroll"
	TypeAcademic   Type = "academic"
)

// Valid reports whether the type is a known value.
func (t Type) Valid() bool {
	switch t {
	case TypeEnrollment, TypeAttendance, TypeFinancial, TypePayroll, TypeAcademic:
		return true
	}
	return false
}

// Generation statuses.
type Status string

const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusCompleted Status = "completed"
	StatusFailed    Status = "failed"
)

// Params narrow what a report covers. Zero values mean no filter.
type Params struct {
	From         time.Time `json:"from,omitempty"`
	To           time.Time `json:"to,omitempty"`
	ClassLevelID int64     `json:"class_level_id,omitempty"`
	Term         int       `json:"term,omitempty"`
	Year         int       `json:"year,omitempty"`
}

// Report is one generation request and its artifact.
type Report struct {
	ID           string
	Type         Type
	Status       Status
	Params       Params
	ArtifactPath string
	Error        string
	RequestedBy  int64
	CreatedAt    time.Time
	CompletedAt  *time.Time
}

var (
	// ErrNotFound indicates the report does not exist.
	ErrNotFound = errors.New("reports: not found")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("reports: invalid input")
)
