package shared

import "errors"

// Sentinel errors shared across modules. Domain packages define their own
// typed sentinels; these cover cross-cutting concerns only.
var (
	// ErrNotFound indicates the resource does not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidCredentials indicates an email/password login failure. It
	// deliberately does not say which of the two was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrCSRFTokenMissing indicates the request carried no CSRF token.
	ErrCSRFTokenMissing = errors.New("csrf token missing")
	// ErrCSRFTokenMismatch indicates the CSRF token failed verification.
	ErrCSRFTokenMismatch = errors.New("csrf token mismatch")
)
