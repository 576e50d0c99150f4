package auth

import (
	"errors"
	"time"

	"github.com/elimucore/elimucore/internal/authz"
)

// User represents an account able to authenticate against the system.
type User struct {
	ID           int64
	Name         string
	Email        string
	Phone        string
	PasswordHash string
	Role         authz.Role
	IsApproved   bool
	IsActive     bool
	LastLoginAt  *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Principal projects the account into the authorization guard's view.
func (u User) Principal() authz.Principal {
	return authz.Principal{
		ID:         u.ID,
		Role:       u.Role,
		IsApproved: u.IsApproved,
		IsActive:   u.IsActive,
	}
}

var (
	// ErrEmailTaken indicates the email already belongs to an account.
	ErrEmailTaken = errors.New("auth: email already registered")
	// ErrPhoneTaken indicates the phone number already belongs to an account.
	ErrPhoneTaken = errors.New("auth: phone already registered")
	// ErrInvalidRole indicates the role is not open for self-registration.
	ErrInvalidRole = errors.New("auth: role not allowed for registration")
	// ErrPasswordMismatch indicates the current password check failed.
	ErrPasswordMismatch = errors.New("auth: current password is incorrect")
)
