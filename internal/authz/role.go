// Package authz implements role-permission authorization: a static permission
// table loaded at process start and a pure decision guard over principal state.
package authz

// Role enumerates the fixed set of account roles.
type Role string

const (
	RoleSuperAdmin     Role = "super_admin"
	RolePrincipal      Role = "principal"
	RoleDeputyAcademic Role = "deputy_academic"
	RoleDeputyAdmin    Role = "deputy_admin"
	RoleTeacher        Role = "teacher"
	RoleBursar         Role = "bursar"
	RoleStudent        Role = "student"
	RoleParent         Role = "parent"
)

// Valid reports whether the role is part of the fixed enumeration.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RolePrincipal, RoleDeputyAcademic, RoleDeputyAdmin,
		RoleTeacher, RoleBursar, RoleStudent, RoleParent:
		return true
	}
	return false
}

// SelfRegisterable reports whether the role may be chosen at public
// registration. Administrative roles are assigned by a super admin.
func (r Role) SelfRegisterable() bool {
	switch r {
	case RoleStudent, RoleParent, RoleTeacher:
		return true
	}
	return false
}

// Permission names grouped by concern.
const (
	PermUsersManage     = "users.manage"
	PermRolesManage     = "roles.manage"
	PermSettingsManage  = "settings.manage"
	PermApprovalsManage = "approvals.manage"
	PermApprovalsReview = "approvals.review"
	PermAuditView       = "audit.view"

	PermStaffManage  = "staff.manage"
	PermStaffView    = "staff.view"
	PermStaffApprove = "staff.approve"

	PermStudentsManage     = "students.manage"
	PermStudentsView       = "students.view"
	PermStudentsApprove    = "students.approve"
	PermStudentsViewOwn    = "students.view_own_children"
	PermAcademicsManage    = "academics.manage"
	PermCurriculumManage   = "curriculum.manage"
	PermOperationsManage   = "operations.manage"
	PermDisciplineManage   = "discipline.manage"
	PermAttendanceManage   = "attendance.manage"
	PermAttendanceRecord   = "attendance.record"
	PermAttendanceView     = "attendance.view"
	PermAttendanceOwn      = "attendance.own"
	PermGradesManage       = "grades.manage"
	PermGradesRecord       = "grades.record"
	PermGradesView         = "grades.view"
	PermGradesOwn          = "grades.own"
	PermFeesManage         = "fees.manage"
	PermFeesView           = "fees.view"
	PermFeesOwn            = "fees.own"
	PermPaymentsVerify     = "payments.verify"
	PermPayrollManage      = "payroll.manage"
	PermReportsView        = "reports.view"
	PermReportsAcademic    = "reports.academic"
	PermReportsOperational = "reports.operational"
	PermReportsFinancial   = "reports.financial"
	PermSelfView           = "self.view"
)

// rolePermissions is the static role to permission-set mapping. It is
// read-only after process start; changing it requires a redeploy.
var rolePermissions = map[Role][]string{
	RoleSuperAdmin: {
		PermUsersManage,
		PermRolesManage,
		PermSettingsManage,
		PermApprovalsManage,
		PermReportsView,
		PermAuditView,
		PermStaffManage,
		PermStudentsManage,
		PermAttendanceManage,
		PermFeesManage,
		PermPayrollManage,
	},
	RolePrincipal: {
		PermStaffManage,
		PermStudentsApprove,
		PermStaffApprove,
		PermAcademicsManage,
		PermAttendanceView,
		PermReportsView,
		PermApprovalsReview,
		PermStudentsView,
		PermGradesView,
	},
	RoleDeputyAcademic: {
		PermAcademicsManage,
		PermAttendanceRecord,
		PermGradesManage,
		PermReportsAcademic,
		PermCurriculumManage,
		PermStudentsView,
		PermAttendanceView,
	},
	RoleDeputyAdmin: {
		PermOperationsManage,
		PermDisciplineManage,
		PermStaffView,
		PermStudentsView,
		PermReportsOperational,
		PermAttendanceView,
	},
	RoleTeacher: {
		PermAttendanceRecord,
		PermGradesRecord,
		PermStudentsView,
		PermAttendanceView,
	},
	RoleBursar: {
		PermFeesManage,
		PermPaymentsVerify,
		PermPayrollManage,
		PermReportsFinancial,
		PermAuditView,
		PermStaffView,
	},
	RoleStudent: {
		PermSelfView,
		PermGradesOwn,
		PermAttendanceOwn,
		PermFeesOwn,
	},
	RoleParent: {
		PermStudentsViewOwn,
		PermGradesView,
		PermAttendanceView,
		PermFeesView,
	},
}

// permissionSets holds the precomputed membership sets.
var permissionSets = func() map[Role]map[string]struct{} {
	sets := make(map[Role]map[string]struct{}, len(rolePermissions))
	for role, perms := range rolePermissions {
		set := make(map[string]struct{}, len(perms))
		for _, p := range perms {
			set[p] = struct{}{}
		}
		sets[role] = set
	}
	return sets
}()

// PermissionsFor returns the permission set for a role. Unknown roles yield
// an empty set, never an error.
func PermissionsFor(role Role) map[string]struct{} {
	if set, ok := permissionSets[role]; ok {
		return set
	}
	return map[string]struct{}{}
}

// HasPermission reports whether the role grants the permission.
func HasPermission(role Role, permission string) bool {
	_, ok := permissionSets[role][permission]
	return ok
}
