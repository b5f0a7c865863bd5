/*
sweep.go - Periodic accrual and carry-forward sweep

PURPOSE:
  The batch half of the engine: walk every employee and leave type, roll
  unused balance across the year boundary, expire stale carried days, and
  bring deposited entitlement up to the accrual calculator's target. The
  sweep is single-threaded per run; each row mutation still goes through the
  ledger's CAS path, so a concurrent request-driven mutation on the same row
  is detected, not overwritten.

ORDERING (per row):
  1. rollover previous year -> current year (anchored at Jan 1, so expiry
     dates don't drift when the sweep runs late)
  2. expire carried days whose expiry has passed
  3. deposit new accrual

  Expiry strictly precedes new accrual; a sweep running three months after
  a two-month expiry zeroes the carry first and logs it.

IDEMPOTENCY:
  Every step deposits deltas against computed targets or skips when already
  applied, so running the sweep twice is harmless.

SEE ALSO:
  - ledger.go: Rollover, ExpireCarry, Accrue
  - api/scheduler.go: the ticker goroutine driving this
*/
package leave

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Sweeper runs the periodic accrual/carry-forward batch.
type Sweeper struct {
	Ledger    *Ledger
	Policies  PolicyStore
	Employees EmployeeDirectory

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewSweeper(ledger *Ledger, policies PolicyStore, employees EmployeeDirectory) *Sweeper {
	return &Sweeper{Ledger: ledger, Policies: policies, Employees: employees, Now: time.Now}
}

func (s *Sweeper) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// SweepResult summarizes one sweep run.
type SweepResult struct {
	Employees   int
	RowsTouched int
	CarriedOver decimal.Decimal
	Expired     decimal.Decimal
	Errors      []error
}

// Run sweeps all employees and leave types. Per-row failures are collected,
// not fatal: one employee's conflict must not starve the rest of the run.
func (s *Sweeper) Run(ctx context.Context) (SweepResult, error) {
	result := SweepResult{CarriedOver: decimal.Zero, Expired: decimal.Zero}

	employees, err := s.Employees.ListEmployees(ctx)
	if err != nil {
		return result, err
	}
	types, err := s.Policies.ListLeaveTypes(ctx)
	if err != nil {
		return result, err
	}

	now := s.now()
	year := now.Year()
	rolloverDate := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)

	for _, emp := range employees {
		result.Employees++
		for _, lt := range types {
			if err := s.sweepRow(ctx, emp, lt, year, rolloverDate, now, &result); err != nil {
				result.Errors = append(result.Errors, fmt.Errorf("%s/%s: %w", emp.ID, lt.Code, err))
			}
		}
	}
	return result, nil
}

func (s *Sweeper) sweepRow(ctx context.Context, emp Employee, lt LeaveType, year int, rolloverDate, now time.Time, result *SweepResult) error {
	policies, err := s.Policies.ListPolicies(ctx, lt.Code)
	if err != nil {
		return err
	}
	policy, err := ResolvePolicy(policies, lt.Code, now)
	if err != nil {
		return nil // leave type not yet usable, nothing to sweep
	}

	carried, err := s.Ledger.Rollover(ctx, policy, emp.ID, year-1, rolloverDate)
	if err != nil {
		return err
	}
	result.CarriedOver = result.CarriedOver.Add(carried)

	expired, err := s.Ledger.ExpireCarry(ctx, emp.ID, lt.Code, year, now)
	if err != nil {
		return err
	}
	result.Expired = result.Expired.Add(expired)

	target := EntitledToDate(policy, emp, year, now)
	if _, err := s.Ledger.Accrue(ctx, emp.ID, lt.Code, year, target, SystemActor); err != nil {
		return err
	}

	if carried.IsPositive() || expired.IsPositive() {
		result.RowsTouched++
	}
	return nil
}
