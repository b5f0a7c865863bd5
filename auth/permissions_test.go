package auth_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/auth"
)

func TestFromRoles_UnionOfRolePermissions(t *testing.T) {
	// GIVEN: An actor holding both employee and manager roles
	// WHEN: Resolving the permission set
	// THEN: It is the union; manager adds approve on top of the employee set

	set := auth.FromRoles([]string{auth.RoleEmployee, auth.RoleManager})

	assert.True(t, set.Has(auth.PermLeaveSubmit))
	assert.True(t, set.Has(auth.PermLeaveCancelOwn))
	assert.True(t, set.Has(auth.PermLeaveApprove))
	assert.False(t, set.Has(auth.PermLeaveFinalize))
	assert.False(t, set.Has(auth.PermBalanceAdjust))
}

func TestFromRoles_UnknownRoleGrantsNothing(t *testing.T) {
	set := auth.FromRoles([]string{"superuser", ""})
	assert.Empty(t, set)
}

func TestFromRoles_HRHoldsAdministrativePermissions(t *testing.T) {
	set := auth.FromRoles([]string{auth.RoleHR})

	for _, perm := range []string{
		auth.PermLeaveSubmitOnBehalf,
		auth.PermLeaveCancelAny,
		auth.PermLeaveFinalize,
		auth.PermLeaveOverride,
		auth.PermLeaveFlag,
		auth.PermBalanceReadAny,
		auth.PermBalanceAdjust,
		auth.PermPolicyWrite,
		auth.PermAuditRead,
		auth.PermHolidayWrite,
		auth.PermSweepRun,
	} {
		assert.True(t, set.Has(perm), perm)
	}
}

func TestEmployeeCannotApprove(t *testing.T) {
	set := auth.FromRoles([]string{auth.RoleEmployee})
	assert.False(t, set.Has(auth.PermLeaveApprove))
	assert.False(t, set.Has(auth.PermLeaveOverride))
}

func TestActor_Can(t *testing.T) {
	actor := auth.Actor{ID: "mgr-1", Perms: auth.FromRoles([]string{auth.RoleManager})}

	assert.True(t, actor.Can(auth.PermLeaveApprove))
	assert.False(t, actor.Can(auth.PermSweepRun))

	empty := auth.Actor{ID: "nobody", Perms: auth.FromRoles(nil)}
	assert.False(t, empty.Can(auth.PermLeaveSubmit))
}
