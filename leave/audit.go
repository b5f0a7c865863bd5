/*
audit.go - Append-only audit log of ledger mutations

PURPOSE:
  Every ledger mutation, regardless of origin (accrual sweep, request
  workflow, manual adjustment), appends exactly one immutable audit record
  with actor, timestamp, amount, and reason. The log is never used for
  control flow, only for compliance and history queries.

CRITICAL INVARIANTS:
  1. APPEND-ONLY: no update, no delete
  2. ONE RECORD PER MUTATION: a failed mutation appends nothing
  3. DISTINCT OVERRIDE ACTIONS: HR overrides are distinguishable from
     normal decisions in the log

SEE ALSO:
  - ledger.go: appends records after each successful mutation
  - store/sqlite: persistent implementation
*/
package leave

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AUDIT ACTIONS
// =============================================================================

type AuditAction string

const (
	AuditAccrual         AuditAction = "accrual"
	AuditReserve         AuditAction = "reserve"
	AuditRelease         AuditAction = "release"
	AuditCommit          AuditAction = "commit"
	AuditAdjustAdd       AuditAction = "adjust_add"
	AuditAdjustDeduct    AuditAction = "adjust_deduct"
	AuditCarryForward    AuditAction = "carry_forward"
	AuditCarryExpired    AuditAction = "carry_expired"
	AuditOverrideRelease AuditAction = "override_release"
	AuditOverrideApprove AuditAction = "override_approve"
)

// AdjustmentType classifies a manual adjustment.
type AdjustmentType string

const (
	AdjustAdd    AdjustmentType = "add"
	AdjustDeduct AdjustmentType = "deduct"
)

// =============================================================================
// AUDIT ENTRY
// =============================================================================

// AuditEntry is one immutable record of a ledger mutation.
type AuditEntry struct {
	ID            string
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode
	PeriodYear    int

	Action AuditAction
	Amount decimal.Decimal // signed: positive grants, negative deductions
	Reason string

	ActorID   string // "system" for sweep-originated mutations
	RequestID RequestID
	At        time.Time
}

// AuditFilter narrows an audit query. Nil/zero fields match everything.
type AuditFilter struct {
	EmployeeID    *EmployeeID
	LeaveTypeCode *LeaveTypeCode
	Actions       []AuditAction
	From          *time.Time
	To            *time.Time
}

// AuditLog stores audit entries. Append-only.
type AuditLog interface {
	Append(ctx context.Context, entry AuditEntry) error
	Query(ctx context.Context, filter AuditFilter) ([]AuditEntry, error)
}
