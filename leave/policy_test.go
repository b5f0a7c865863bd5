package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// ROUNDING RULES
// =============================================================================

func TestRoundingRule_Apply(t *testing.T) {
	cases := []struct {
		rule leave.RoundingRule
		in   string
		want string
	}{
		{leave.RoundNone, "12.34", "12.34"},
		{leave.RoundUp, "12.01", "13"},
		{leave.RoundUp, "12", "12"},
		{leave.RoundDown, "12.99", "12"},
		{leave.RoundAlwaysUp, "12.01", "13"},
		{leave.RoundAlwaysDown, "12.99", "12"},
		{leave.RoundNearestHalf, "1.24", "1"},
		{leave.RoundNearestHalf, "1.25", "1.5"},
		{leave.RoundNearestHalf, "1.74", "1.5"},
		{leave.RoundNearestHalf, "1.75", "2"},
		{leave.RoundArithmetic, "12.49", "12"},
		{leave.RoundArithmetic, "12.5", "13"},
		{leave.RoundingRule(""), "3.7", "3.7"}, // unset behaves like NONE
	}

	for _, tc := range cases {
		in := decimal.RequireFromString(tc.in)
		got := tc.rule.Apply(in)
		assert.Equal(t, tc.want, got.String(), "%s(%s)", tc.rule, tc.in)
	}
}

// =============================================================================
// POLICY RESOLUTION
// =============================================================================

func policyAt(code leave.LeaveTypeCode, effective string, seq int64) *leave.LeavePolicy {
	d, _ := time.Parse("2006-01-02", effective)
	return &leave.LeavePolicy{
		ID:            "pol-" + effective,
		LeaveTypeCode: code,
		EffectiveDate: d,
		CreatedSeq:    seq,
		AccrualMethod: leave.AccrualYearly,
		YearlyRate:    decimal.NewFromInt(20),
	}
}

func TestResolvePolicy_LatestEffectiveWins(t *testing.T) {
	// GIVEN: Two policy versions for the same type
	// WHEN: Resolving at a date after both
	// THEN: The one with the later effective date wins

	policies := []*leave.LeavePolicy{
		policyAt("annual", "2024-01-01", 1),
		policyAt("annual", "2025-01-01", 2),
	}

	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, err := leave.ResolvePolicy(policies, "annual", at)
	require.NoError(t, err)
	assert.Equal(t, "pol-2025-01-01", got.ID)
}

func TestResolvePolicy_FutureVersionIgnored(t *testing.T) {
	// GIVEN: One active version and one not yet effective
	// WHEN: Resolving before the future version's effective date
	// THEN: The active version wins

	policies := []*leave.LeavePolicy{
		policyAt("annual", "2024-01-01", 1),
		policyAt("annual", "2026-01-01", 2),
	}

	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, err := leave.ResolvePolicy(policies, "annual", at)
	require.NoError(t, err)
	assert.Equal(t, "pol-2024-01-01", got.ID)
}

func TestResolvePolicy_SameEffectiveDate_LatestCreatedWins(t *testing.T) {
	// GIVEN: Two versions sharing an effective date
	// WHEN: Resolving
	// THEN: The later-created one (higher CreatedSeq) wins

	a := policyAt("annual", "2025-01-01", 1)
	b := policyAt("annual", "2025-01-01", 2)
	b.ID = "pol-correction"

	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	got, err := leave.ResolvePolicy([]*leave.LeavePolicy{a, b}, "annual", at)
	require.NoError(t, err)
	assert.Equal(t, "pol-correction", got.ID)
}

func TestResolvePolicy_NoneApplicable(t *testing.T) {
	// GIVEN: Only a future policy version
	// WHEN: Resolving before it takes effect
	// THEN: ErrNoApplicablePolicy

	policies := []*leave.LeavePolicy{policyAt("annual", "2026-01-01", 1)}

	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err := leave.ResolvePolicy(policies, "annual", at)
	assert.ErrorIs(t, err, leave.ErrNoApplicablePolicy)
}

func TestResolvePolicy_OtherTypeIgnored(t *testing.T) {
	policies := []*leave.LeavePolicy{policyAt("sick", "2024-01-01", 1)}

	at := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	_, err := leave.ResolvePolicy(policies, "annual", at)
	assert.ErrorIs(t, err, leave.ErrNoApplicablePolicy)
}

// =============================================================================
// ELIGIBILITY
// =============================================================================

func TestCheckEligibility_TenureBelowMinimum(t *testing.T) {
	// GIVEN: A policy requiring 6 months tenure and an employee with 3
	// WHEN: Checking eligibility
	// THEN: Denied with tenure_below_minimum

	emp := leave.Employee{
		ID:           "emp-1",
		HireDate:     time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractPermanent,
	}
	lt := leave.LeaveType{Code: "annual"}
	policy := policyAt("annual", "2024-01-01", 1)
	policy.Eligibility.MinTenureMonths = 6

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	err := leave.CheckEligibility(emp, lt, policy, asOf)

	require.Error(t, err)
	var ne *leave.NotEligibleError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, leave.TenureBelowMinimum, ne.Reason)
	assert.ErrorIs(t, err, leave.ErrNotEligible)
}

func TestCheckEligibility_LeaveTypeMinimumIsStricter(t *testing.T) {
	// GIVEN: Policy requires 0 months but the leave type requires 12
	// WHEN: Checking an employee with 8 months tenure
	// THEN: The stricter leave-type minimum denies

	emp := leave.Employee{
		ID:           "emp-1",
		HireDate:     time.Date(2024, time.October, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractPermanent,
	}
	lt := leave.LeaveType{Code: "sabbatical", MinTenureMonths: 12}
	policy := policyAt("sabbatical", "2024-01-01", 1)

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	err := leave.CheckEligibility(emp, lt, policy, asOf)
	assert.ErrorIs(t, err, leave.ErrNotEligible)
}

func TestCheckEligibility_ContractTypeNotAllowed(t *testing.T) {
	// GIVEN: A policy restricted to permanent employees
	// WHEN: An intern checks eligibility
	// THEN: Denied with contract_type_not_allowed

	emp := leave.Employee{
		ID:           "emp-1",
		HireDate:     time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractIntern,
	}
	lt := leave.LeaveType{Code: "annual"}
	policy := policyAt("annual", "2024-01-01", 1)
	policy.Eligibility.ContractTypesAllowed = []leave.ContractType{leave.ContractPermanent}

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	err := leave.CheckEligibility(emp, lt, policy, asOf)

	var ne *leave.NotEligibleError
	require.ErrorAs(t, err, &ne)
	assert.Equal(t, leave.ContractTypeNotAllowed, ne.Reason)
}

func TestCheckEligibility_EmptyContractListAllowsAll(t *testing.T) {
	emp := leave.Employee{
		ID:           "emp-1",
		HireDate:     time.Date(2020, time.January, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractContractor,
	}
	lt := leave.LeaveType{Code: "annual"}
	policy := policyAt("annual", "2024-01-01", 1)

	asOf := time.Date(2025, time.June, 1, 0, 0, 0, 0, time.UTC)
	assert.NoError(t, leave.CheckEligibility(emp, lt, policy, asOf))
}

// =============================================================================
// TENURE
// =============================================================================

func TestEmployee_TenureMonths(t *testing.T) {
	emp := leave.Employee{HireDate: time.Date(2024, time.March, 15, 0, 0, 0, 0, time.UTC)}

	cases := []struct {
		asOf string
		want int
	}{
		{"2024-03-14", 0},  // before hire
		{"2024-04-14", 0},  // day before the month completes
		{"2024-04-15", 1},  // exactly one month
		{"2025-03-15", 12}, // one year
		{"2025-06-01", 14},
	}
	for _, tc := range cases {
		asOf, _ := time.Parse("2006-01-02", tc.asOf)
		assert.Equal(t, tc.want, emp.TenureMonths(asOf), "as of %s", tc.asOf)
	}
}
