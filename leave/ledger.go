/*
ledger.go - The authoritative balance ledger

PURPOSE:
  The Ledger is the single source of truth for per-employee, per-leave-type,
  per-year balances. Every other component reads and writes through it:
  accrual deposits entitlement, the request workflow places and resolves
  holds, HR makes manual adjustments.

CONCURRENCY:
  Every mutation is a read-modify-write on one Entitlement row, applied as a
  compare-and-set on the row's Version. A conflicting write is retried once
  automatically; if it still conflicts, ErrConcurrentUpdateConflict surfaces
  to the caller, who may retry the whole operation. Rows for different
  employees are fully independent; there is no cross-employee locking.

ATOMICITY:
  Reserve, release, commit, accrue, and adjust are each a single CAS step.
  A failed mutation leaves the row untouched and appends no audit record;
  a successful one appends exactly one.

OPERATIONS:
  Available  what can still be requested
  Accrue     bring deposited entitlement up to the calculator's target
  Reserve    place a hold for a pending request (fails on shortage)
  Release    return a hold (reject/cancel/override)
  Commit     convert a hold to used days (finalize)
  Adjust     manual HR correction, always audited
  Rollover   carry unused days into the next year
  ExpireCarry zero carried days past their expiry

SEE ALSO:
  - store.go: EntitlementStore CAS contract
  - audit.go: the record appended per mutation
*/
package leave

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// casAttempts bounds the optimistic retry loop: the initial try plus one
// automatic retry, per the concurrency contract.
const casAttempts = 2

// minAdjustReasonLen is the compliance floor for manual adjustment reasons.
const minAdjustReasonLen = 20

// SystemActor marks mutations originated by the batch sweep.
const SystemActor = "system"

// Hold is a provisional reservation against a ledger row, created by Reserve
// and resolved by Release or Commit.
type Hold struct {
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode
	PeriodYear    int
	Days          decimal.Decimal
	RequestID     RequestID
}

// Ledger applies atomic mutations to Entitlement rows and records each one
// in the audit log.
type Ledger struct {
	Rows  EntitlementStore
	Audit AuditLog

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewLedger(rows EntitlementStore, audit AuditLog) *Ledger {
	return &Ledger{Rows: rows, Audit: audit, Now: time.Now}
}

func (l *Ledger) now() time.Time {
	if l.Now != nil {
		return l.Now()
	}
	return time.Now()
}

// =============================================================================
// READS
// =============================================================================

// Available returns the requestable balance for a row. A missing row reads
// as zero; lazy creation happens on the first mutation.
func (l *Ledger) Available(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int) (decimal.Decimal, error) {
	row, err := l.Rows.GetEntitlement(ctx, emp, code, year)
	if err != nil {
		return decimal.Zero, err
	}
	if row == nil {
		return decimal.Zero, nil
	}
	return row.Available(), nil
}

// Snapshot returns the full row, or a zero row when none exists yet.
func (l *Ledger) Snapshot(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int) (Entitlement, error) {
	row, err := l.Rows.GetEntitlement(ctx, emp, code, year)
	if err != nil {
		return Entitlement{}, err
	}
	if row == nil {
		return Entitlement{EmployeeID: emp, LeaveTypeCode: code, PeriodYear: year}, nil
	}
	return *row, nil
}

// =============================================================================
// CAS MUTATION CORE
// =============================================================================

// errSkipWrite is returned by a mutate closure to signal the operation is a
// no-op for the current row state; the row is left untouched.
var errSkipWrite = errors.New("skip write")

// mutate runs fn against the current row (lazily creating a zero row) and
// writes it back under the optimistic version check, retrying once.
func (l *Ledger) mutate(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int, fn func(*Entitlement) error) (Entitlement, error) {
	var lastErr error
	for attempt := 0; attempt < casAttempts; attempt++ {
		stored, err := l.Rows.GetEntitlement(ctx, emp, code, year)
		if err != nil {
			return Entitlement{}, err
		}

		var row Entitlement
		var expected int64
		if stored == nil {
			row = Entitlement{EmployeeID: emp, LeaveTypeCode: code, PeriodYear: year}
		} else {
			row = *stored
			expected = stored.Version
		}

		if err := fn(&row); err != nil {
			if errors.Is(err, errSkipWrite) {
				return row, nil
			}
			return Entitlement{}, err
		}

		row.UpdatedAt = l.now()
		err = l.Rows.PutEntitlement(ctx, row, expected)
		if err == nil {
			row.Version = expected + 1
			return row, nil
		}
		if !errors.Is(err, ErrConcurrentUpdateConflict) {
			return Entitlement{}, err
		}
		lastErr = err
	}
	return Entitlement{}, lastErr
}

// audit appends one record for a successful mutation.
func (l *Ledger) audit(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int, action AuditAction, amount decimal.Decimal, reason, actor string, reqID RequestID) error {
	return l.Audit.Append(ctx, AuditEntry{
		ID:            uuid.NewString(),
		EmployeeID:    emp,
		LeaveTypeCode: code,
		PeriodYear:    year,
		Action:        action,
		Amount:        amount,
		Reason:        reason,
		ActorID:       actor,
		RequestID:     reqID,
		At:            l.now(),
	})
}

// =============================================================================
// ACCRUAL
// =============================================================================

// Accrue raises the row's deposited entitlement to target. Deposits are
// deltas against the calculator's cumulative target, so Accrue is idempotent:
// calling it twice with the same target deposits nothing the second time.
func (l *Ledger) Accrue(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int, target decimal.Decimal, actor string) (Entitlement, error) {
	var delta decimal.Decimal
	row, err := l.mutate(ctx, emp, code, year, func(r *Entitlement) error {
		delta = target.Sub(r.Entitled)
		if !delta.IsPositive() {
			return errSkipWrite
		}
		r.Entitled = target
		return nil
	})
	if err != nil {
		return Entitlement{}, err
	}
	if delta.IsPositive() {
		if err := l.audit(ctx, emp, code, year, AuditAccrual, delta, "entitlement accrual", actor, ""); err != nil {
			return Entitlement{}, err
		}
	}
	return row, nil
}

// =============================================================================
// HOLDS
// =============================================================================

// Reserve places a hold of days against the row, failing with
// InsufficientBalanceError when available < days.
func (l *Ledger) Reserve(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int, days decimal.Decimal, reqID RequestID, actor string) (Hold, error) {
	if !days.IsPositive() {
		return Hold{}, fmt.Errorf("reserve amount must be positive, got %s", days)
	}
	_, err := l.mutate(ctx, emp, code, year, func(r *Entitlement) error {
		if r.Available().LessThan(days) {
			return &InsufficientBalanceError{
				EmployeeID:    emp,
				LeaveTypeCode: code,
				Available:     r.Available(),
				Requested:     days,
			}
		}
		r.Held = r.Held.Add(days)
		return nil
	})
	if err != nil {
		return Hold{}, err
	}
	if err := l.audit(ctx, emp, code, year, AuditReserve, days.Neg(), "hold for request", actor, reqID); err != nil {
		return Hold{}, err
	}
	return Hold{EmployeeID: emp, LeaveTypeCode: code, PeriodYear: year, Days: days, RequestID: reqID}, nil
}

// Release returns a hold to the available balance (reject/cancel paths).
func (l *Ledger) Release(ctx context.Context, hold Hold, actor string, action AuditAction, reason string) error {
	_, err := l.mutate(ctx, hold.EmployeeID, hold.LeaveTypeCode, hold.PeriodYear, func(r *Entitlement) error {
		if r.Held.LessThan(hold.Days) {
			return fmt.Errorf("%w: release of %s exceeds held %s", ErrInvalidTransition, hold.Days, r.Held)
		}
		r.Held = r.Held.Sub(hold.Days)
		return nil
	})
	if err != nil {
		return err
	}
	if action == "" {
		action = AuditRelease
	}
	return l.audit(ctx, hold.EmployeeID, hold.LeaveTypeCode, hold.PeriodYear, action, hold.Days, reason, actor, hold.RequestID)
}

// Commit converts a hold into used days (finalize path). Available is
// unchanged: the days were already excluded by the hold.
func (l *Ledger) Commit(ctx context.Context, hold Hold, actor string) error {
	_, err := l.mutate(ctx, hold.EmployeeID, hold.LeaveTypeCode, hold.PeriodYear, func(r *Entitlement) error {
		if r.Held.LessThan(hold.Days) {
			return fmt.Errorf("%w: commit of %s exceeds held %s", ErrInvalidTransition, hold.Days, r.Held)
		}
		r.Held = r.Held.Sub(hold.Days)
		r.Used = r.Used.Add(hold.Days)
		return nil
	})
	if err != nil {
		return err
	}
	return l.audit(ctx, hold.EmployeeID, hold.LeaveTypeCode, hold.PeriodYear, AuditCommit, hold.Days.Neg(), "finalized consumption", actor, hold.RequestID)
}

// =============================================================================
// MANUAL ADJUSTMENT
// =============================================================================

// Adjust applies a manual HR correction. The amount must be positive and the
// reason at least 20 characters; a deduct that would drive available
// negative fails with InsufficientBalanceError and appends no audit record.
func (l *Ledger) Adjust(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int, amount decimal.Decimal, typ AdjustmentType, reason, actorID string) (Entitlement, error) {
	if !amount.IsPositive() {
		return Entitlement{}, fmt.Errorf("adjustment amount must be positive, got %s", amount)
	}
	if len(strings.TrimSpace(reason)) < minAdjustReasonLen {
		return Entitlement{}, fmt.Errorf("%w: adjustment reason needs at least %d characters", ErrReasonTooShort, minAdjustReasonLen)
	}

	signed := amount
	action := AuditAdjustAdd
	if typ == AdjustDeduct {
		signed = amount.Neg()
		action = AuditAdjustDeduct
	}

	row, err := l.mutate(ctx, emp, code, year, func(r *Entitlement) error {
		next := r.ManualAdjustment.Add(signed)
		if typ == AdjustDeduct {
			projected := r.Entitled.Add(r.CarriedForward).Add(next).Sub(r.CarriedOut).Sub(r.Used).Sub(r.Held)
			if projected.IsNegative() {
				return &InsufficientBalanceError{
					EmployeeID:    emp,
					LeaveTypeCode: code,
					Available:     r.Available(),
					Requested:     amount,
				}
			}
		}
		r.ManualAdjustment = next
		return nil
	})
	if err != nil {
		return Entitlement{}, err
	}
	if err := l.audit(ctx, emp, code, year, action, signed, reason, actorID, ""); err != nil {
		return Entitlement{}, err
	}
	return row, nil
}

// =============================================================================
// YEAR-END ROLLOVER
// =============================================================================

// Rollover moves the unused balance of fromYear into fromYear+1 under the
// policy's carry-forward rules: the carried days are credited to the next
// year's row and deducted from the source row, so a backdated request cannot
// spend them a second time. It is idempotent per row: once the next year's
// row has carried days, a repeat run deposits nothing (and the source row's
// deduction has already shrunk its available balance to match).
func (l *Ledger) Rollover(ctx context.Context, p *LeavePolicy, emp EmployeeID, fromYear int, rolloverDate time.Time) (decimal.Decimal, error) {
	prev, err := l.Rows.GetEntitlement(ctx, emp, p.LeaveTypeCode, fromYear)
	if err != nil {
		return decimal.Zero, err
	}
	if prev == nil {
		return decimal.Zero, nil
	}

	carry, expiry := CarryForwardOnRollover(p, prev.Available(), rolloverDate)
	if !carry.IsPositive() {
		return decimal.Zero, nil
	}

	applied := false
	_, err = l.mutate(ctx, emp, p.LeaveTypeCode, fromYear+1, func(r *Entitlement) error {
		if r.CarriedForward.IsPositive() {
			return errSkipWrite // already rolled over
		}
		r.CarriedForward = carry
		r.CarryForwardExpiresOn = expiry
		applied = true
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if !applied {
		return decimal.Zero, nil
	}

	_, err = l.mutate(ctx, emp, p.LeaveTypeCode, fromYear, func(r *Entitlement) error {
		r.CarriedOut = r.CarriedOut.Add(carry)
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	if err := l.audit(ctx, emp, p.LeaveTypeCode, fromYear+1, AuditCarryForward, carry,
		fmt.Sprintf("carry-forward from %d", fromYear), SystemActor, ""); err != nil {
		return decimal.Zero, err
	}
	return carry, nil
}

// ExpireCarry zeroes carried-forward days whose expiry has passed, logging
// an automatic adjustment. Runs before new accrual in the sweep.
func (l *Ledger) ExpireCarry(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int, asOf time.Time) (decimal.Decimal, error) {
	var expired decimal.Decimal
	_, err := l.mutate(ctx, emp, code, year, func(r *Entitlement) error {
		if r.CarryForwardExpiresOn.IsZero() || !Day(asOf).After(r.CarryForwardExpiresOn) || !r.CarriedForward.IsPositive() {
			return errSkipWrite
		}
		expired = r.CarriedForward
		r.CarriedForward = decimal.Zero
		r.CarryForwardExpiresOn = time.Time{}
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}
	if expired.IsPositive() {
		if err := l.audit(ctx, emp, code, year, AuditCarryExpired, expired.Neg(),
			"carry-forward expired", SystemActor, ""); err != nil {
			return decimal.Zero, err
		}
	}
	return expired, nil
}
