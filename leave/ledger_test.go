package leave_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/leave-engine/leave"
	"github.com/warp/leave-engine/store/memory"
)

func newTestLedger(t *testing.T) (*leave.Ledger, *memory.Store) {
	t.Helper()
	store := memory.New()
	ledger := leave.NewLedger(store, store)
	ledger.Now = func() time.Time { return date(2025, time.June, 1) }
	return ledger, store
}

func auditEntries(t *testing.T, store *memory.Store, emp leave.EmployeeID) []leave.AuditEntry {
	t.Helper()
	entries, err := store.Query(context.Background(), leave.AuditFilter{EmployeeID: &emp})
	require.NoError(t, err)
	return entries
}

// =============================================================================
// ACCRUAL DEPOSITS
// =============================================================================

func TestLedger_Accrue_DepositsDeltaToTarget(t *testing.T) {
	// GIVEN: An empty ledger row
	// WHEN: Accruing to a target of 12, then to 24
	// THEN: Each call deposits only the difference

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	row, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(12), leave.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, "12", row.Entitled.String())

	row, err = ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, "24", row.Entitled.String())

	entries := auditEntries(t, store, "emp-1")
	require.Len(t, entries, 2)
	assert.Equal(t, leave.AuditAccrual, entries[0].Action)
	assert.Equal(t, "12", entries[0].Amount.String())
	assert.Equal(t, "12", entries[1].Amount.String())
}

func TestLedger_Accrue_Idempotent(t *testing.T) {
	// GIVEN: A row already at the target
	// WHEN: Accruing to the same target again
	// THEN: Nothing is deposited and no audit record appends

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)

	row, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, "24", row.Entitled.String())

	assert.Len(t, auditEntries(t, store, "emp-1"), 1)
}

func TestLedger_Accrue_NeverClawsBack(t *testing.T) {
	// GIVEN: A row at 24
	// WHEN: Accruing to a lower target (policy changed mid-year)
	// THEN: The deposited amount stands

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)

	row, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(20), leave.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, "24", row.Entitled.String())
}

// =============================================================================
// HOLDS
// =============================================================================

func TestLedger_Reserve_ExcludesHeldFromAvailable(t *testing.T) {
	// GIVEN: 24 entitled days
	// WHEN: Reserving 5 for a pending request
	// THEN: Available drops to 19; entitled is untouched

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)

	hold, err := ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5), "req-1", "emp-1")
	require.NoError(t, err)
	assert.Equal(t, "5", hold.Days.String())

	avail, err := ledger.Available(ctx, "emp-1", "annual", 2025)
	require.NoError(t, err)
	assert.Equal(t, "19", avail.String())

	snap, err := ledger.Snapshot(ctx, "emp-1", "annual", 2025)
	require.NoError(t, err)
	assert.Equal(t, "24", snap.Entitled.String())
	assert.Equal(t, "5", snap.Held.String())
}

func TestLedger_Reserve_InsufficientBalance(t *testing.T) {
	// GIVEN: 3 available days
	// WHEN: Reserving 5
	// THEN: InsufficientBalanceError, row untouched, no audit record

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(3), leave.SystemActor)
	require.NoError(t, err)
	before := auditEntries(t, store, "emp-1")

	_, err = ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5), "req-1", "emp-1")

	var ibe *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Equal(t, "3", ibe.Available.String())
	assert.Equal(t, "5", ibe.Requested.String())

	avail, _ := ledger.Available(ctx, "emp-1", "annual", 2025)
	assert.Equal(t, "3", avail.String())
	assert.Len(t, auditEntries(t, store, "emp-1"), len(before))
}

func TestLedger_Release_RestoresAvailable(t *testing.T) {
	// GIVEN: A hold of 5 on a 24-day row
	// WHEN: Releasing it
	// THEN: Available returns to 24 exactly

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)
	hold, err := ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5), "req-1", "emp-1")
	require.NoError(t, err)

	require.NoError(t, ledger.Release(ctx, hold, "mgr-1", leave.AuditRelease, "request rejected"))

	avail, _ := ledger.Available(ctx, "emp-1", "annual", 2025)
	assert.Equal(t, "24", avail.String())
}

func TestLedger_Commit_MovesHeldToUsed(t *testing.T) {
	// GIVEN: A hold of 5 on a 24-day row
	// WHEN: Committing it
	// THEN: Used becomes 5, held 0, available stays at 19

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)
	hold, err := ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5), "req-1", "emp-1")
	require.NoError(t, err)

	require.NoError(t, ledger.Commit(ctx, hold, "hr-1"))

	snap, err := ledger.Snapshot(ctx, "emp-1", "annual", 2025)
	require.NoError(t, err)
	assert.Equal(t, "5", snap.Used.String())
	assert.True(t, snap.Held.IsZero())
	assert.Equal(t, "19", snap.Available().String())
}

func TestLedger_Commit_ExceedingHeldFails(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)

	err = ledger.Commit(ctx, leave.Hold{
		EmployeeID:    "emp-1",
		LeaveTypeCode: "annual",
		PeriodYear:    2025,
		Days:          decimal.NewFromInt(5),
		RequestID:     "req-ghost",
	}, "hr-1")
	assert.ErrorIs(t, err, leave.ErrInvalidTransition)
}

// =============================================================================
// MANUAL ADJUSTMENTS
// =============================================================================

func TestLedger_Adjust_AddIncreasesAvailable(t *testing.T) {
	ledger, store := newTestLedger(t)
	ctx := context.Background()

	row, err := ledger.Adjust(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(2),
		leave.AdjustAdd, "compensation for cancelled public holiday", "hr-1")
	require.NoError(t, err)
	assert.Equal(t, "2", row.Available().String())

	entries := auditEntries(t, store, "emp-1")
	require.Len(t, entries, 1)
	assert.Equal(t, leave.AuditAdjustAdd, entries[0].Action)
	assert.Equal(t, "2", entries[0].Amount.String())
	assert.Equal(t, "hr-1", entries[0].ActorID)
}

func TestLedger_Adjust_ReasonTooShort(t *testing.T) {
	// GIVEN: A reason under the 20-character compliance floor
	// WHEN: Adjusting
	// THEN: ErrReasonTooShort, nothing written

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Adjust(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(2),
		leave.AdjustAdd, "bonus", "hr-1")
	assert.ErrorIs(t, err, leave.ErrReasonTooShort)
	assert.Empty(t, auditEntries(t, store, "emp-1"))
}

func TestLedger_Adjust_DeductCannotDriveNegative(t *testing.T) {
	// GIVEN: 3 available days
	// WHEN: Deducting 5
	// THEN: InsufficientBalanceError and NO audit record for the failure

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(3), leave.SystemActor)
	require.NoError(t, err)
	before := len(auditEntries(t, store, "emp-1"))

	_, err = ledger.Adjust(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5),
		leave.AdjustDeduct, "correction of erroneous accrual deposit", "hr-1")

	var ibe *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &ibe)
	assert.Len(t, auditEntries(t, store, "emp-1"), before)

	avail, _ := ledger.Available(ctx, "emp-1", "annual", 2025)
	assert.Equal(t, "3", avail.String())
}

func TestLedger_Adjust_DeductFloorCountsHeld(t *testing.T) {
	// GIVEN: 10 entitled with 4 held (available 6)
	// WHEN: Deducting 8, then 6
	// THEN: The floor protects held days too: 8 fails, 6 lands exactly on zero

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(10), leave.SystemActor)
	require.NoError(t, err)
	_, err = ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(4), "req-1", "emp-1")
	require.NoError(t, err)

	_, err = ledger.Adjust(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(8),
		leave.AdjustDeduct, "correction of erroneous accrual deposit", "hr-1")
	var ibe *leave.InsufficientBalanceError
	assert.ErrorAs(t, err, &ibe, "deduct below used+held must fail")

	row, err := ledger.Adjust(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(6),
		leave.AdjustDeduct, "correction of erroneous accrual deposit", "hr-1")
	require.NoError(t, err)
	assert.True(t, row.Available().IsZero())
}

func TestLedger_Adjust_NegativeAmountRejected(t *testing.T) {
	ledger, _ := newTestLedger(t)

	_, err := ledger.Adjust(context.Background(), "emp-1", "annual", 2025,
		decimal.NewFromInt(-2), leave.AdjustAdd, "compensation for cancelled public holiday", "hr-1")
	assert.Error(t, err)
}

// =============================================================================
// ROLLOVER AND CARRY EXPIRY
// =============================================================================

func TestLedger_Rollover_CarriesUnusedUnderCap(t *testing.T) {
	// GIVEN: 2025 ends with 8 unused days; carry cap 5, expiry 3 months
	// WHEN: Rolling into 2026
	// THEN: 2026 starts with 5 carried days expiring Apr 1

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5), ExpiryMonths: 3}

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)
	hold, err := ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(16), "req-1", "emp-1")
	require.NoError(t, err)
	require.NoError(t, ledger.Commit(ctx, hold, "hr-1"))

	carried, err := ledger.Rollover(ctx, p, "emp-1", 2025, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, "5", carried.String())

	next, err := ledger.Snapshot(ctx, "emp-1", "annual", 2026)
	require.NoError(t, err)
	assert.Equal(t, "5", next.CarriedForward.String())
	assert.True(t, next.CarryForwardExpiresOn.Equal(date(2026, time.April, 1)))

	// The carried days left the 2025 row: only the over-cap remainder stays
	prev, err := ledger.Snapshot(ctx, "emp-1", "annual", 2025)
	require.NoError(t, err)
	assert.Equal(t, "5", prev.CarriedOut.String())
	assert.Equal(t, "3", prev.Available().String())

	entries, err := store.Query(ctx, leave.AuditFilter{Actions: []leave.AuditAction{leave.AuditCarryForward}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, leave.SystemActor, entries[0].ActorID)
}

func TestLedger_Rollover_Idempotent(t *testing.T) {
	// GIVEN: A rollover already applied
	// WHEN: Running it again
	// THEN: Nothing more is carried

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5)}

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)

	first, err := ledger.Rollover(ctx, p, "emp-1", 2025, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, "5", first.String())

	second, err := ledger.Rollover(ctx, p, "emp-1", 2025, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.True(t, second.IsZero())

	next, _ := ledger.Snapshot(ctx, "emp-1", "annual", 2026)
	assert.Equal(t, "5", next.CarriedForward.String())
}

func TestLedger_Rollover_CarriedDaysNotSpendableInSourceYear(t *testing.T) {
	// GIVEN: 5 unused days fully carried from 2025 into 2026
	// WHEN: A backdated request tries to reserve against the 2025 row
	// THEN: It fails; the days are only spendable in 2026

	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(10)}

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5), leave.SystemActor)
	require.NoError(t, err)
	carried, err := ledger.Rollover(ctx, p, "emp-1", 2025, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.Equal(t, "5", carried.String())

	_, err = ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(5), "req-late", "emp-1")
	var insufficient *leave.InsufficientBalanceError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.IsZero())

	_, err = ledger.Reserve(ctx, "emp-1", "annual", 2026, decimal.NewFromInt(5), "req-next", "emp-1")
	require.NoError(t, err)
}

func TestLedger_Rollover_NoPreviousRow(t *testing.T) {
	ledger, _ := newTestLedger(t)

	carried, err := ledger.Rollover(context.Background(), yearlyPolicy(24), "emp-ghost", 2025, date(2026, time.January, 1))
	require.NoError(t, err)
	assert.True(t, carried.IsZero())
}

func TestLedger_ExpireCarry_ZeroesAfterExpiry(t *testing.T) {
	// GIVEN: 3 carried days expiring Mar 1
	// WHEN: Expiring as of Mar 2
	// THEN: Carry zeroes and a carry_expired record appends

	ledger, store := newTestLedger(t)
	ctx := context.Background()

	p := yearlyPolicy(24)
	p.CarryForward = leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5), ExpiryMonths: 2}

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(3), leave.SystemActor)
	require.NoError(t, err)
	_, err = ledger.Rollover(ctx, p, "emp-1", 2025, date(2026, time.January, 1))
	require.NoError(t, err)

	// Still inside the window: nothing expires
	expired, err := ledger.ExpireCarry(ctx, "emp-1", "annual", 2026, date(2026, time.March, 1))
	require.NoError(t, err)
	assert.True(t, expired.IsZero())

	expired, err = ledger.ExpireCarry(ctx, "emp-1", "annual", 2026, date(2026, time.March, 2))
	require.NoError(t, err)
	assert.Equal(t, "3", expired.String())

	snap, _ := ledger.Snapshot(ctx, "emp-1", "annual", 2026)
	assert.True(t, snap.CarriedForward.IsZero())
	assert.True(t, snap.CarryForwardExpiresOn.IsZero())

	entries, err := store.Query(ctx, leave.AuditFilter{Actions: []leave.AuditAction{leave.AuditCarryExpired}})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "-3", entries[0].Amount.String())
}

// =============================================================================
// OPTIMISTIC CONCURRENCY
// =============================================================================

// conflictStore fails PutEntitlement with a version conflict a fixed number of
// times before delegating, to exercise the retry contract.
type conflictStore struct {
	*memory.Store
	failures int
}

func (c *conflictStore) PutEntitlement(ctx context.Context, row leave.Entitlement, expectedVersion int64) error {
	if c.failures > 0 {
		c.failures--
		return leave.ErrConcurrentUpdateConflict
	}
	return c.Store.PutEntitlement(ctx, row, expectedVersion)
}

func TestLedger_CAS_RetriesOnceThenSucceeds(t *testing.T) {
	// GIVEN: A store that conflicts on the first write
	// WHEN: Accruing
	// THEN: The automatic retry lands the write

	store := memory.New()
	ledger := leave.NewLedger(&conflictStore{Store: store, failures: 1}, store)

	row, err := ledger.Accrue(context.Background(), "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	require.NoError(t, err)
	assert.Equal(t, "24", row.Entitled.String())
}

func TestLedger_CAS_SecondConflictSurfaces(t *testing.T) {
	// GIVEN: A store that conflicts on every write
	// WHEN: Accruing
	// THEN: After the single retry the conflict reaches the caller

	store := memory.New()
	ledger := leave.NewLedger(&conflictStore{Store: store, failures: 2}, store)

	_, err := ledger.Accrue(context.Background(), "emp-1", "annual", 2025, decimal.NewFromInt(24), leave.SystemActor)
	assert.ErrorIs(t, err, leave.ErrConcurrentUpdateConflict)
}

func TestLedger_VersionIncrementsPerWrite(t *testing.T) {
	ledger, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := ledger.Accrue(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(12), leave.SystemActor)
	require.NoError(t, err)
	snap, _ := ledger.Snapshot(ctx, "emp-1", "annual", 2025)
	assert.Equal(t, int64(1), snap.Version)

	_, err = ledger.Reserve(ctx, "emp-1", "annual", 2025, decimal.NewFromInt(2), "req-1", "emp-1")
	require.NoError(t, err)
	snap, _ = ledger.Snapshot(ctx, "emp-1", "annual", 2025)
	assert.Equal(t, int64(2), snap.Version)
}
