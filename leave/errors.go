/*
errors.go - Centralized error types for the leave engine

PURPOSE:
  All error kinds in one place. Callers classify with errors.Is against the
  sentinels; structured types carry the detail and Unwrap to them.

ERROR CATEGORIES:
  1. Policy/eligibility errors - the request may not even be created
  2. Ledger errors - balance shortages and concurrency conflicts
  3. Workflow errors - state machine guard failures

USAGE:
    if errors.Is(err, leave.ErrInsufficientBalance) { ... }

    var ne *leave.NotEligibleError
    if errors.As(err, &ne) { log.Println(ne.Reason) }

SEE ALSO:
  - ledger.go: produces balance and conflict errors
  - request.go: produces workflow errors
*/
package leave

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrNoApplicablePolicy is returned when no policy with an effective date
	// at or before the evaluation date exists for a leave type. Callers must
	// treat this as "leave type not yet usable".
	ErrNoApplicablePolicy = errors.New("no applicable policy")

	// ErrNotEligible is returned when the employee may not use the leave type
	// (tenure below minimum or contract type not allowed).
	ErrNotEligible = errors.New("not eligible for leave type")

	// ErrPolicyViolation is returned when a request violates a policy limit
	// (notice period, consecutive days, maximum duration, attachment).
	ErrPolicyViolation = errors.New("policy violation")

	// ErrInsufficientBalance is returned when a reservation or deduction
	// would drive the available balance negative.
	ErrInsufficientBalance = errors.New("insufficient balance")

	// ErrReasonTooShort is returned for a reject comment under 10 characters
	// or a manual adjustment reason under 20 characters.
	ErrReasonTooShort = errors.New("reason too short")

	// ErrInvalidTransition is returned when a state machine guard fails,
	// e.g. finalizing a request that is not approved.
	ErrInvalidTransition = errors.New("invalid transition")

	// ErrAlreadyFinalized is returned when finalizing a finalized request.
	ErrAlreadyFinalized = errors.New("request already finalized")

	// ErrConcurrentUpdateConflict is returned when the optimistic version
	// check on a ledger row keeps failing after the bounded retry.
	ErrConcurrentUpdateConflict = errors.New("concurrent update conflict")

	// ErrRequestNotFound is returned when a referenced request doesn't exist.
	ErrRequestNotFound = errors.New("request not found")

	// ErrLeaveTypeNotFound is returned when a referenced leave type doesn't exist.
	ErrLeaveTypeNotFound = errors.New("leave type not found")

	// ErrPermissionDenied is returned when the actor's permission set does
	// not include the capability an operation requires.
	ErrPermissionDenied = errors.New("permission denied")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientBalanceError reports a balance shortage.
type InsufficientBalanceError struct {
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode
	Available     decimal.Decimal
	Requested     decimal.Decimal
}

func (e *InsufficientBalanceError) Error() string {
	return fmt.Sprintf("insufficient balance for %s/%s: available %s, requested %s",
		e.EmployeeID, e.LeaveTypeCode, e.Available, e.Requested)
}

func (e *InsufficientBalanceError) Unwrap() error { return ErrInsufficientBalance }

// EligibilityReason names why eligibility was denied.
type EligibilityReason string

const (
	TenureBelowMinimum     EligibilityReason = "tenure_below_minimum"
	ContractTypeNotAllowed EligibilityReason = "contract_type_not_allowed"
)

// NotEligibleError reports an eligibility denial with its reason.
type NotEligibleError struct {
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode
	Reason        EligibilityReason
}

func (e *NotEligibleError) Error() string {
	return fmt.Sprintf("employee %s not eligible for %s: %s", e.EmployeeID, e.LeaveTypeCode, e.Reason)
}

func (e *NotEligibleError) Unwrap() error { return ErrNotEligible }

// PolicyViolationError reports which policy limit a request violates.
type PolicyViolationError struct {
	Rule   string // "min_notice_days", "max_consecutive_days", "max_duration_days", "attachment_required"
	Detail string
}

func (e *PolicyViolationError) Error() string {
	return fmt.Sprintf("policy violation (%s): %s", e.Rule, e.Detail)
}

func (e *PolicyViolationError) Unwrap() error { return ErrPolicyViolation }

// InvalidTransitionError reports a rejected state machine transition.
type InvalidTransitionError struct {
	RequestID RequestID
	From      RequestStatus
	Action    DecisionAction
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s request %s in status %s", e.Action, e.RequestID, e.From)
}

func (e *InvalidTransitionError) Unwrap() error { return ErrInvalidTransition }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsRetryable returns true if the operation might succeed if replayed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrentUpdateConflict)
}

// IsClientError returns true if the error is caused by the request itself
// rather than by engine state.
func IsClientError(err error) bool {
	return errors.Is(err, ErrNotEligible) ||
		errors.Is(err, ErrPolicyViolation) ||
		errors.Is(err, ErrReasonTooShort) ||
		errors.Is(err, ErrInvalidTransition) ||
		errors.Is(err, ErrAlreadyFinalized)
}

// IsNotFound returns true if the error indicates a missing record.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrRequestNotFound) ||
		errors.Is(err, ErrLeaveTypeNotFound) ||
		errors.Is(err, ErrNoApplicablePolicy)
}
