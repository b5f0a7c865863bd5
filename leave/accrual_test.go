package leave_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/warp/leave-engine/leave"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func yearlyPolicy(rate int64) *leave.LeavePolicy {
	return &leave.LeavePolicy{
		ID:            "pol-yearly",
		LeaveTypeCode: "annual",
		EffectiveDate: date(2024, time.January, 1),
		AccrualMethod: leave.AccrualYearly,
		YearlyRate:    decimal.NewFromInt(rate),
	}
}

// =============================================================================
// YEARLY ACCRUAL
// =============================================================================

func TestEntitledToDate_Yearly_FullGrantAtPeriodStart(t *testing.T) {
	// GIVEN: A 24-day yearly policy and an employee hired before the period
	// WHEN: Computing the target on Jan 1 and mid-year
	// THEN: The full rate is deposited from day one

	p := yearlyPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2023, time.May, 10)}

	assert.Equal(t, "24", leave.EntitledToDate(p, emp, 2025, date(2025, time.January, 1)).String())
	assert.Equal(t, "24", leave.EntitledToDate(p, emp, 2025, date(2025, time.August, 15)).String())
}

func TestEntitledToDate_Yearly_NothingBeforePeriod(t *testing.T) {
	p := yearlyPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2023, time.May, 10)}

	got := leave.EntitledToDate(p, emp, 2025, date(2024, time.December, 31))
	assert.True(t, got.IsZero())
}

func TestEntitledToDate_Yearly_MidYearHireProRated(t *testing.T) {
	// GIVEN: A 24-day yearly policy and a hire on April 1
	// WHEN: Computing the target after the hire date
	// THEN: April through December (9 whole months) pro-rates to 24*9/12 = 18

	p := yearlyPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.April, 1)}

	got := leave.EntitledToDate(p, emp, 2025, date(2025, time.June, 1))
	assert.Equal(t, "18", got.String())
}

func TestEntitledToDate_Yearly_MidMonthHireDropsPartialMonth(t *testing.T) {
	// GIVEN: A hire on April 15 (April is not a whole month of service)
	// WHEN: Computing the yearly pro-rate
	// THEN: Only May-December count: 24*8/12 = 16

	p := yearlyPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.April, 15)}

	got := leave.EntitledToDate(p, emp, 2025, date(2025, time.June, 1))
	assert.Equal(t, "16", got.String())
}

func TestEntitledToDate_Yearly_NothingBeforeHire(t *testing.T) {
	p := yearlyPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.April, 1)}

	got := leave.EntitledToDate(p, emp, 2025, date(2025, time.March, 31))
	assert.True(t, got.IsZero())
}

func TestEntitledToDate_Yearly_ProRateRounded(t *testing.T) {
	// GIVEN: A 25-day policy with NEAREST_HALF rounding and a May 1 hire
	// WHEN: 25*8/12 = 16.666...
	// THEN: Rounds to 16.5

	p := yearlyPolicy(25)
	p.Rounding = leave.RoundNearestHalf
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.May, 1)}

	got := leave.EntitledToDate(p, emp, 2025, date(2025, time.December, 1))
	assert.Equal(t, "16.5", got.String())
}

// =============================================================================
// MONTHLY ACCRUAL
// =============================================================================

func monthlyPolicy(rate string) *leave.LeavePolicy {
	return &leave.LeavePolicy{
		ID:            "pol-monthly",
		LeaveTypeCode: "annual",
		EffectiveDate: date(2024, time.January, 1),
		AccrualMethod: leave.AccrualMonthly,
		MonthlyRate:   decimal.RequireFromString(rate),
	}
}

func TestEntitledToDate_Monthly_CountsMonthBoundaries(t *testing.T) {
	// GIVEN: A 2-days-per-month policy and a long-tenured employee
	// WHEN: Computing the target on various dates in the year
	// THEN: Each 1st-of-month on or before asOf deposits once

	p := monthlyPolicy("2")
	emp := leave.Employee{ID: "emp-1", HireDate: date(2023, time.February, 10)}

	cases := []struct {
		asOf time.Time
		want string
	}{
		{date(2025, time.January, 1), "2"},
		{date(2025, time.January, 31), "2"},
		{date(2025, time.February, 1), "4"},
		{date(2025, time.June, 15), "12"},
		{date(2025, time.December, 31), "24"},
	}
	for _, tc := range cases {
		got := leave.EntitledToDate(p, emp, 2025, tc.asOf)
		assert.Equal(t, tc.want, got.String(), "as of %s", tc.asOf.Format("2006-01-02"))
	}
}

func TestEntitledToDate_Monthly_MidMonthHireStartsNextBoundary(t *testing.T) {
	// GIVEN: A hire on March 15
	// WHEN: Computing the target before and after April 1
	// THEN: The first deposit lands on April 1

	p := monthlyPolicy("2")
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.March, 15)}

	assert.True(t, leave.EntitledToDate(p, emp, 2025, date(2025, time.March, 31)).IsZero())
	assert.Equal(t, "2", leave.EntitledToDate(p, emp, 2025, date(2025, time.April, 1)).String())
}

func TestEntitledToDate_Monthly_RoundsCumulativeNotPerDeposit(t *testing.T) {
	// GIVEN: 1.25 days/month with ROUND_DOWN
	// WHEN: Three boundaries have passed (cumulative 3.75)
	// THEN: The cumulative total rounds to 3, not 1*3 from per-deposit rounding

	p := monthlyPolicy("1.25")
	p.Rounding = leave.RoundDown
	emp := leave.Employee{ID: "emp-1", HireDate: date(2023, time.January, 1)}

	got := leave.EntitledToDate(p, emp, 2025, date(2025, time.March, 10))
	assert.Equal(t, "3", got.String())
}

// =============================================================================
// PER-TERM ACCRUAL
// =============================================================================

func perTermPolicy(rate int64) *leave.LeavePolicy {
	return &leave.LeavePolicy{
		ID:            "pol-term",
		LeaveTypeCode: "annual",
		EffectiveDate: date(2024, time.January, 1),
		AccrualMethod: leave.AccrualPerTerm,
		YearlyRate:    decimal.NewFromInt(rate),
	}
}

func TestEntitledToDate_PerTerm_HalfAtEachTermStart(t *testing.T) {
	// GIVEN: A 24-day per-term policy and a long-tenured employee
	// WHEN: Computing before and after the Jul 1 term boundary
	// THEN: 12 days deposit on Jan 1 and another 12 on Jul 1

	p := perTermPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2023, time.January, 1)}

	assert.Equal(t, "12", leave.EntitledToDate(p, emp, 2025, date(2025, time.June, 30)).String())
	assert.Equal(t, "24", leave.EntitledToDate(p, emp, 2025, date(2025, time.July, 1)).String())
}

func TestEntitledToDate_PerTerm_HireInsideTermProRated(t *testing.T) {
	// GIVEN: A hire on March 1 (4 whole months left in the Jan-Jun term)
	// WHEN: Computing within and after the hire term
	// THEN: The hire term gives 12*4/6 = 8, the second term the full 12

	p := perTermPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.March, 1)}

	assert.Equal(t, "8", leave.EntitledToDate(p, emp, 2025, date(2025, time.April, 1)).String())
	assert.Equal(t, "20", leave.EntitledToDate(p, emp, 2025, date(2025, time.August, 1)).String())
}

func TestEntitledToDate_PerTerm_HireInSecondTerm(t *testing.T) {
	// GIVEN: A hire on October 15 (Oct is partial; Nov+Dec = 2 whole months)
	// THEN: Only the second term deposits, pro-rated 12*2/6 = 4

	p := perTermPolicy(24)
	emp := leave.Employee{ID: "emp-1", HireDate: date(2025, time.October, 15)}

	got := leave.EntitledToDate(p, emp, 2025, date(2025, time.December, 31))
	assert.Equal(t, "4", got.String())
}

// =============================================================================
// CARRY-FORWARD
// =============================================================================

func TestCarryForwardOnRollover_CappedAtMaxDays(t *testing.T) {
	// GIVEN: 8 unused days and a 5-day carry cap expiring after 3 months
	// WHEN: Rolling over on Jan 1
	// THEN: 5 days carry with expiry Apr 1

	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{
		Allowed:      true,
		MaxDays:      decimal.NewFromInt(5),
		ExpiryMonths: 3,
	}

	carry, expiry := leave.CarryForwardOnRollover(p, decimal.NewFromInt(8), date(2026, time.January, 1))
	assert.Equal(t, "5", carry.String())
	assert.True(t, expiry.Equal(date(2026, time.April, 1)), "expiry = %s", expiry)
}

func TestCarryForwardOnRollover_UnderCapCarriesAll(t *testing.T) {
	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5)}

	carry, expiry := leave.CarryForwardOnRollover(p, decimal.NewFromInt(3), date(2026, time.January, 1))
	assert.Equal(t, "3", carry.String())
	assert.True(t, expiry.IsZero(), "no expiry months means carry never expires")
}

func TestCarryForwardOnRollover_DisallowedCarriesNothing(t *testing.T) {
	p := yearlyPolicy(24)

	carry, _ := leave.CarryForwardOnRollover(p, decimal.NewFromInt(8), date(2026, time.January, 1))
	assert.True(t, carry.IsZero())
}

func TestCarryForwardOnRollover_NothingUnused(t *testing.T) {
	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5)}

	carry, _ := leave.CarryForwardOnRollover(p, decimal.Zero, date(2026, time.January, 1))
	assert.True(t, carry.IsZero())
}
