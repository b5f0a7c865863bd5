// Package auth maps actor roles to capability sets. The calling layer
// resolves identity and roles; this package turns the role list into a
// PermissionSet once per request, and every engine operation declares the
// single permission it requires. No call site tests role strings directly.
package auth

// Permission names. Operations declare exactly one of these.
const (
	PermLeaveSubmit         = "leave.request.submit"
	PermLeaveSubmitOnBehalf = "leave.request.submit_on_behalf"
	PermLeaveApprove        = "leave.request.approve"
	PermLeaveCancelOwn      = "leave.request.cancel_own"
	PermLeaveCancelAny      = "leave.request.cancel_any"
	PermLeaveFinalize       = "leave.request.finalize"
	PermLeaveOverride       = "leave.request.override"
	PermLeaveFlag           = "leave.request.flag"
	PermBalanceReadOwn      = "leave.balance.read_own"
	PermBalanceReadAny      = "leave.balance.read_any"
	PermBalanceAdjust       = "leave.balance.adjust"
	PermPolicyRead          = "leave.policy.read"
	PermPolicyWrite         = "leave.policy.write"
	PermAuditRead           = "leave.audit.read"
	PermHolidayWrite        = "leave.calendar.write"
	PermSweepRun            = "leave.sweep.run"
)

// Role names as supplied by the identity layer.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
	RoleHR       = "hr"
)

// RolePermissions is the single place roles grant capabilities.
var RolePermissions = map[string][]string{
	RoleEmployee: {
		PermLeaveSubmit,
		PermLeaveCancelOwn,
		PermBalanceReadOwn,
		PermPolicyRead,
	},
	RoleManager: {
		PermLeaveSubmit,
		PermLeaveCancelOwn,
		PermLeaveApprove,
		PermBalanceReadOwn,
		PermPolicyRead,
	},
	RoleHR: {
		PermLeaveSubmit,
		PermLeaveSubmitOnBehalf,
		PermLeaveCancelOwn,
		PermLeaveCancelAny,
		PermLeaveApprove,
		PermLeaveFinalize,
		PermLeaveOverride,
		PermLeaveFlag,
		PermBalanceReadOwn,
		PermBalanceReadAny,
		PermBalanceAdjust,
		PermPolicyRead,
		PermPolicyWrite,
		PermAuditRead,
		PermHolidayWrite,
		PermSweepRun,
	},
}

// PermissionSet is an actor's resolved capability set.
type PermissionSet map[string]struct{}

// FromRoles builds a PermissionSet from a role list. Unknown roles grant
// nothing.
func FromRoles(roles []string) PermissionSet {
	set := make(PermissionSet)
	for _, role := range roles {
		for _, perm := range RolePermissions[role] {
			set[perm] = struct{}{}
		}
	}
	return set
}

// Has reports whether the set includes a permission.
func (s PermissionSet) Has(perm string) bool {
	_, ok := s[perm]
	return ok
}

// Actor is an authenticated caller: an id plus a resolved permission set.
// Identity and role resolution happen in the calling layer.
type Actor struct {
	ID    string
	Perms PermissionSet
}

// Can reports whether the actor holds a permission.
func (a Actor) Can(perm string) bool { return a.Perms.Has(perm) }
