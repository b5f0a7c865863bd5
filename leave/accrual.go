/*
accrual.go - Entitlement accrual calculation

PURPOSE:
  Computes how much entitlement a policy has deposited for an employee in a
  period year, up to a given date. The ledger stores what was actually
  deposited; the calculator produces the target value, and Ledger.Accrue
  deposits the difference. Because the target is a pure function of
  (policy, hire date, date), accrual is idempotent: running the sweep twice
  deposits nothing the second time.

ACCRUAL METHODS:
  yearly:   full YearlyRate at period start (Jan 1). Mid-year hires get the
            grant at their hire date, pro-rated by remaining whole months/12,
            rounding applied at the end.
  monthly:  MonthlyRate at each month boundary (1st). For mid-month hires the
            first deposit is the first boundary on or after the hire date.
            The rounding rule is applied to the CUMULATIVE amount at
            computation time, not per deposit, so the running total never
            drifts from rate*months by more than one rounding step.
  per-term: two half-year terms starting Jan 1 and Jul 1, YearlyRate/2 each.
            A hire inside a term pro-rates that term by remaining whole
            months/6.

CARRY-FORWARD:
  At year-end rollover, min(unused, MaxDays) moves to the next year's
  CarriedForward with expiry = rollover date + ExpiryMonths. Expired carry
  is zeroed (and audited) before new accrual is applied; see sweep.go.

SEE ALSO:
  - policy.go: RoundingRule.Apply
  - sweep.go: drives accrual and rollover across all employees
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

var (
	six    = decimal.NewFromInt(6)
	twelve = decimal.NewFromInt(12)
)

// EntitledToDate returns the cumulative entitlement the policy should have
// deposited for the employee in periodYear, as of asOf. Returns zero when
// asOf falls before any deposit or before the hire date.
func EntitledToDate(p *LeavePolicy, emp Employee, periodYear int, asOf time.Time) decimal.Decimal {
	asOf = Day(asOf)
	periodStart := time.Date(periodYear, time.January, 1, 0, 0, 0, 0, time.UTC)
	periodEnd := time.Date(periodYear, time.December, 31, 0, 0, 0, 0, time.UTC)

	if asOf.Before(periodStart) {
		return decimal.Zero
	}
	if asOf.After(periodEnd) {
		asOf = periodEnd
	}

	hire := Day(emp.HireDate)
	if hire.After(asOf) {
		return decimal.Zero
	}

	switch p.AccrualMethod {
	case AccrualMonthly:
		return monthlyEntitled(p, hire, periodYear, asOf)
	case AccrualPerTerm:
		return perTermEntitled(p, hire, periodYear, asOf)
	default:
		return yearlyEntitled(p, hire, periodYear, asOf)
	}
}

// yearlyEntitled deposits the full rate once, at period start or at the hire
// date for a mid-period hire (pro-rated by remaining whole months / 12).
func yearlyEntitled(p *LeavePolicy, hire time.Time, year int, asOf time.Time) decimal.Decimal {
	grantDate := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	amount := p.YearlyRate

	if hire.Year() == year && hire.After(grantDate) {
		grantDate = hire
		rem := remainingWholeMonths(hire, 12)
		amount = p.YearlyRate.Mul(decimal.NewFromInt(int64(rem))).Div(twelve)
	}

	if asOf.Before(grantDate) {
		return decimal.Zero
	}
	return p.Rounding.Apply(amount)
}

// monthlyEntitled counts month boundaries deposited so far and rounds the
// cumulative total.
func monthlyEntitled(p *LeavePolicy, hire time.Time, year int, asOf time.Time) decimal.Decimal {
	deposits := 0
	for m := time.January; m <= time.December; m++ {
		boundary := time.Date(year, m, 1, 0, 0, 0, 0, time.UTC)
		if boundary.Before(hire) || boundary.After(asOf) {
			continue
		}
		deposits++
	}
	raw := p.MonthlyRate.Mul(decimal.NewFromInt(int64(deposits)))
	return p.Rounding.Apply(raw)
}

// perTermEntitled deposits half the yearly rate at each term start (Jan 1,
// Jul 1), pro-rating the hire term by remaining whole months / 6.
func perTermEntitled(p *LeavePolicy, hire time.Time, year int, asOf time.Time) decimal.Decimal {
	termRate := p.YearlyRate.Div(two)
	total := decimal.Zero

	termStarts := []time.Time{
		time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC),
		time.Date(year, time.July, 1, 0, 0, 0, 0, time.UTC),
	}
	for i, start := range termStarts {
		end := start.AddDate(0, 6, -1)
		depositAt := start
		amount := termRate

		if hire.After(end) {
			continue
		}
		if hire.After(start) {
			depositAt = hire
			rem := remainingWholeMonthsInTerm(hire, i)
			amount = termRate.Mul(decimal.NewFromInt(int64(rem))).Div(six)
		}
		if asOf.Before(depositAt) {
			continue
		}
		total = total.Add(amount)
	}
	return p.Rounding.Apply(total)
}

// remainingWholeMonths counts months in the year whose full span falls on or
// after the hire date. Hired on the 1st counts that month.
func remainingWholeMonths(hire time.Time, monthsInPeriod int) int {
	rem := monthsInPeriod - int(hire.Month()) + 1
	if hire.Day() > 1 {
		rem--
	}
	if rem < 0 {
		return 0
	}
	return rem
}

// remainingWholeMonthsInTerm is remainingWholeMonths relative to a half-year
// term (term 0 = Jan-Jun, term 1 = Jul-Dec).
func remainingWholeMonthsInTerm(hire time.Time, term int) int {
	lastMonth := 6 + term*6
	rem := lastMonth - int(hire.Month()) + 1
	if hire.Day() > 1 {
		rem--
	}
	if rem < 0 {
		return 0
	}
	return rem
}

// CarryForwardOnRollover computes the days that roll into the next year and
// their expiry date. Returns zero days when the policy disallows carry or
// nothing is unused.
func CarryForwardOnRollover(p *LeavePolicy, unused decimal.Decimal, rolloverDate time.Time) (decimal.Decimal, time.Time) {
	if !p.CarryForward.Allowed || !unused.IsPositive() {
		return decimal.Zero, time.Time{}
	}
	carry := unused
	if p.CarryForward.MaxDays.IsPositive() && carry.GreaterThan(p.CarryForward.MaxDays) {
		carry = p.CarryForward.MaxDays
	}
	var expiry time.Time
	if p.CarryForward.ExpiryMonths > 0 {
		expiry = Day(rolloverDate).AddDate(0, p.CarryForward.ExpiryMonths, 0)
	}
	return carry, expiry
}
