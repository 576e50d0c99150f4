// Package approvals implements the approval ledger: one durable record per
// approvable entity, moving pending -> approved | rejected exactly once.
package approvals

import (
	"errors"
	"time"
)

// Status enumerates the approval lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

// ApprovableType tags the entity table a record points at.
type ApprovableType string

const (
	// ApprovableUser marks account-registration approvals.
	ApprovableUser ApprovableType = "user"
)

// Record is a single ledger entry. Terminal states are immutable and records
// are never deleted.
type Record struct {
	ID             int64
	ApprovableType ApprovableType
	ApprovableID   int64
	UserID         int64
	Status         Status
	ReviewedBy     *int64
	ReviewRemarks  string
	ReviewedAt     *time.Time
	CreatedAt      time.Time
}

var (
	// ErrNotFound indicates the record does not exist.
	ErrNotFound = errors.New("approvals: record not found")
	// ErrDuplicateApproval indicates a record already exists for the entity.
	ErrDuplicateApproval = errors.New("approvals: record already open for entity")
	// ErrInvalidTransition indicates the record left pending already.
	ErrInvalidTransition = errors.New("approvals: record already reviewed")
	// ErrRemarksRequired indicates a rejection without remarks.
	ErrRemarksRequired = errors.New("approvals: remarks required on rejection")
)
