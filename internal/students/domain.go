// Package students manages student records, enrollment and guardians.
package students

import (
	"errors"
	"time"
)

// Enrollment lifecycle statuses.
type Status string

const (
	StatusActive      Status = "active"
	StatusSuspended   Status = "suspended"
	StatusGraduated   Status = "graduated"
	StatusTransferred Status = "transferred"
)

// Guardian contact priorities.
type ContactPriority string

const (
	PriorityPrimary   ContactPriority = "primary"
	PrioritySecondary ContactPriority = "secondary"
	PriorityEmergency ContactPriority = "emergency"
)

// Student domain model. IsApproved mirrors the linked account's approval and
// is flipped by the approval ledger, never directly by this module.
type Student struct {
	ID              int64
	UserID          *int64
	AdmissionNumber string
	NationalID      string
	ClassLevelID    int64
	Stream          string
	DateOfBirth     time.Time
	Gender          string
	Phone           string
	AdmissionDate   time.Time
	Status          Status
	IsApproved      bool
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// Guardian is a student's contact person. At most one guardian per student
// holds the primary priority.
type Guardian struct {
	ID              int64
	StudentID       int64
	Name            string
	Relationship    string
	Phone           string
	Email           string
	IDNumber        string
	Occupation      string
	Address         string
	ContactPriority ContactPriority
	CreatedAt       time.Time
}

// ClassLevel orders the school's class structure.
type ClassLevel struct {
	ID          int64
	Name        string
	Level       int
	Description string
}

var (
	// ErrNotFound indicates the student or guardian does not exist.
	ErrNotFound = errors.New("students: not found")
	// ErrDuplicateAdmission indicates the admission number is taken.
	ErrDuplicateAdmission = errors.New("students: admission number already in use")
	// ErrValidation indicates invalid input.
	ErrValidation = errors.New("students: invalid input")
)
