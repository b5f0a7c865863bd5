/*
Package leave implements the leave entitlement and request lifecycle engine.

PURPOSE:
  This package contains the domain types and algorithms for turning a
  declarative leave policy (accrual method, rounding, carry-forward,
  eligibility) into a per-employee running balance, and for governing the
  multi-actor approval workflow (employee submit, manager decision, HR
  finalize/override) that consumes and mutates that balance.

KEY CONCEPTS IN THIS FILE (types.go):
  - LeaveType: the kind of leave (annual, sick, ...) with its base rules
  - ContractType: employment contract class used by eligibility
  - Entitlement: the per-employee, per-type, per-year balance ledger row
  - Request: a leave request moving through the approval workflow

DESIGN PRINCIPLES:
  1. Precision: day quantities are decimal.Decimal, never float
  2. Single source of truth: all balance reads/writes go through the Ledger
  3. Auditability: every ledger mutation appends one immutable audit record
  4. Optimistic concurrency: Entitlement rows carry a Version for CAS updates

SEE ALSO:
  - policy.go: LeavePolicy, rounding rules, policy resolution
  - ledger.go: the authoritative balance store and its operations
  - request.go: the request state machine
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// IDENTIFIERS
// =============================================================================

type EmployeeID string
type LeaveTypeCode string
type RequestID string

// =============================================================================
// LEAVE TYPE - Identity and base rules for a kind of leave
// =============================================================================

// LeaveType defines a kind of leave. The Code is immutable identity once a
// policy references it.
type LeaveType struct {
	Code               LeaveTypeCode
	Name               string
	Paid               bool
	Deductible         bool
	RequiresAttachment bool
	AttachmentType     string
	MinTenureMonths    int
	MaxDurationDays    int
	CreatedAt          time.Time
}

// ContractType classifies an employment contract for eligibility checks.
type ContractType string

const (
	ContractPermanent  ContractType = "permanent"
	ContractFixedTerm  ContractType = "fixed_term"
	ContractIntern     ContractType = "intern"
	ContractContractor ContractType = "contractor"
)

// Employee carries the master-data fields the engine needs. The full employee
// record lives in an external system; this is the engine's view of it.
type Employee struct {
	ID           EmployeeID
	Name         string
	HireDate     time.Time
	ContractType ContractType
}

// TenureMonths returns whole months of service as of the given date.
func (e Employee) TenureMonths(asOf time.Time) int {
	if asOf.Before(e.HireDate) {
		return 0
	}
	months := (asOf.Year()-e.HireDate.Year())*12 + int(asOf.Month()) - int(e.HireDate.Month())
	if asOf.Day() < e.HireDate.Day() {
		months--
	}
	if months < 0 {
		return 0
	}
	return months
}

// =============================================================================
// ENTITLEMENT - The balance ledger row
// =============================================================================

// Entitlement is the authoritative balance row for one employee, one leave
// type, one period year. All mutations are compare-and-set on Version.
type Entitlement struct {
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode
	PeriodYear    int

	Entitled         decimal.Decimal // deposited by accrual
	CarriedForward   decimal.Decimal // rolled over from previous year
	CarriedOut       decimal.Decimal // rolled into the next year's row
	Used             decimal.Decimal // committed consumption
	Held             decimal.Decimal // reservations for pending/approved requests
	ManualAdjustment decimal.Decimal // net of add/deduct adjustments

	// CarryForwardExpiresOn is the date after which CarriedForward is zeroed.
	// Zero time means the carried days never expire.
	CarryForwardExpiresOn time.Time

	// Version increments on every successful write. Writers must present the
	// version they read; a mismatch fails with ErrConcurrentUpdateConflict.
	Version int64

	UpdatedAt time.Time
}

// Available returns what can still be requested:
// entitled + carried in + adjustment - carried out - used - held.
// Days rolled into the next year are spendable there, not here.
func (e Entitlement) Available() decimal.Decimal {
	return e.Entitled.
		Add(e.CarriedForward).
		Add(e.ManualAdjustment).
		Sub(e.CarriedOut).
		Sub(e.Used).
		Sub(e.Held)
}

// =============================================================================
// REQUEST - A leave request moving through the workflow
// =============================================================================

type RequestStatus string

const (
	StatusPending   RequestStatus = "pending"
	StatusApproved  RequestStatus = "approved"
	StatusRejected  RequestStatus = "rejected"
	StatusCancelled RequestStatus = "cancelled"
	StatusFinalized RequestStatus = "finalized"
)

// Terminal reports whether no normal transition leaves this status.
// HR override can still force approved<->rejected until finalization.
func (s RequestStatus) Terminal() bool {
	return s == StatusRejected || s == StatusCancelled || s == StatusFinalized
}

// DecisionAction names an entry in a request's decision history.
type DecisionAction string

const (
	ActionSubmit   DecisionAction = "submit"
	ActionApprove  DecisionAction = "approve"
	ActionReject   DecisionAction = "reject"
	ActionCancel   DecisionAction = "cancel"
	ActionFinalize DecisionAction = "finalize"
	ActionOverride DecisionAction = "override"
)

// Decision is one entry in a request's decision history.
type Decision struct {
	Actor   string
	Action  DecisionAction
	Comment string
	At      time.Time
}

// Request is a leave request. It is mutated only through state-machine
// transitions and is terminal at cancelled/rejected/finalized.
type Request struct {
	ID            RequestID
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode

	From time.Time
	To   time.Time

	// DurationDays is computed at submit time from the working-day calendar
	// (weekends and holidays excluded) and equals the reserved hold.
	DurationDays decimal.Decimal

	Status           RequestStatus
	IrregularPattern bool
	AttachmentRef    string

	// Set on finalize: how the consumed days split for payroll.
	PaidDays   decimal.Decimal
	UnpaidDays decimal.Decimal

	Decisions []Decision

	CreatedAt time.Time
	UpdatedAt time.Time
}

// LastDecision returns the most recent decision, or nil for a fresh request.
func (r *Request) LastDecision() *Decision {
	if len(r.Decisions) == 0 {
		return nil
	}
	return &r.Decisions[len(r.Decisions)-1]
}
