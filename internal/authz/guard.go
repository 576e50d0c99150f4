package authz

import "fmt"

// Principal is the authenticated actor a decision is made about.
type Principal struct {
	ID         int64
	Role       Role
	IsApproved bool
	IsActive   bool
}

// DenyReason discriminates why access was refused. The frontend branches on
// "pending_approval" and "inactive", so they must stay distinct from the
// generic permission denial.
type DenyReason string

const (
	DenyInactive        DenyReason = "inactive"
	DenyPendingApproval DenyReason = "pending_approval"
	DenyForbidden       DenyReason = "forbidden"
)

// DenyError is returned by Authorize when access is refused.
type DenyError struct {
	Reason DenyReason
}

func (e *DenyError) Error() string {
	switch e.Reason {
	case DenyInactive:
		return "account has been deactivated"
	case DenyPendingApproval:
		return "account is pending approval"
	default:
		return "missing required permission"
	}
}

// Deny constructs a DenyError for the reason.
func Deny(reason DenyReason) *DenyError {
	return &DenyError{Reason: reason}
}

// Requirement describes what a protected operation demands: one of a set of
// permissions, or membership in a set of roles.
type Requirement struct {
	permissions []string
	roles       []Role
}

// Permission builds a requirement satisfied by principals whose role grants
// the named permission.
func Permission(name string) Requirement {
	return Requirement{permissions: []string{name}}
}

// AnyPermission builds a requirement satisfied by principals whose role
// grants at least one of the named permissions.
func AnyPermission(names ...string) Requirement {
	return Requirement{permissions: names}
}

// AnyRole builds a requirement satisfied by principals holding one of the
// given roles.
func AnyRole(roles ...Role) Requirement {
	return Requirement{roles: roles}
}

func (r Requirement) String() string {
	if len(r.permissions) == 1 {
		return fmt.Sprintf("permission %q", r.permissions[0])
	}
	if len(r.permissions) > 0 {
		return fmt.Sprintf("any permission of %v", r.permissions)
	}
	return fmt.Sprintf("roles %v", r.roles)
}

// Authorize decides whether the principal may perform an action. It is a pure
// function over principal state and the static permission table: inactive and
// unapproved principals are refused before any permission check, and there is
// no permission inheritance across roles.
func Authorize(p Principal, req Requirement) error {
	if !p.IsActive {
		return Deny(DenyInactive)
	}
	if !p.IsApproved {
		return Deny(DenyPendingApproval)
	}
	if len(req.permissions) > 0 {
		for _, perm := range req.permissions {
			if HasPermission(p.Role, perm) {
				return nil
			}
		}
		return Deny(DenyForbidden)
	}
	for _, role := range req.roles {
		if p.Role == role {
			return nil
		}
	}
	return Deny(DenyForbidden)
}
