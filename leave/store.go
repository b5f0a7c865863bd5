/*
store.go - Persistence interfaces for the leave engine

PURPOSE:
  Defines the contracts between the engine and its storage. Implementations
  live in store/memory (tests/dev) and store/sqlite (production path).

OPTIMISTIC CONCURRENCY:
  EntitlementStore.Put is a compare-and-set: the caller presents the Version
  it read (0 for a new row) and the store rejects the write with
  ErrConcurrentUpdateConflict if the stored version differs. Every ledger
  mutation goes through this path; there are no blind overwrites.

SEE ALSO:
  - ledger.go: drives EntitlementStore and AuditLog
  - request.go: drives RequestStore
*/
package leave

import "context"

// =============================================================================
// ENTITLEMENT STORE - CAS-versioned balance rows
// =============================================================================

// EntitlementStore persists Entitlement rows keyed by
// (employee, leave type, period year).
type EntitlementStore interface {
	// GetEntitlement returns the row, or nil when it doesn't exist yet.
	GetEntitlement(ctx context.Context, emp EmployeeID, code LeaveTypeCode, year int) (*Entitlement, error)

	// PutEntitlement writes the row if the stored version equals
	// expectedVersion (0 means the row must not exist yet). The stored row's
	// Version becomes expectedVersion+1. A mismatch fails with
	// ErrConcurrentUpdateConflict.
	PutEntitlement(ctx context.Context, row Entitlement, expectedVersion int64) error

	// ListEntitlements returns all rows for one employee.
	ListEntitlements(ctx context.Context, emp EmployeeID) ([]Entitlement, error)
}

// =============================================================================
// REQUEST STORE
// =============================================================================

// RequestFilter narrows a request listing.
type RequestFilter struct {
	EmployeeID *EmployeeID
	Status     *RequestStatus
}

// RequestStore persists leave requests.
type RequestStore interface {
	SaveRequest(ctx context.Context, req *Request) error
	GetRequest(ctx context.Context, id RequestID) (*Request, error) // nil when absent
	ListRequests(ctx context.Context, filter RequestFilter) ([]*Request, error)
}

// =============================================================================
// POLICY STORE
// =============================================================================

// PolicyStore persists leave types and versioned policies. Policies are
// never hard-deleted while referenced by history.
type PolicyStore interface {
	SaveLeaveType(ctx context.Context, lt LeaveType) error
	GetLeaveType(ctx context.Context, code LeaveTypeCode) (*LeaveType, error) // nil when absent
	ListLeaveTypes(ctx context.Context) ([]LeaveType, error)

	// SavePolicy assigns CreatedSeq and persists the policy version.
	SavePolicy(ctx context.Context, p *LeavePolicy) error
	ListPolicies(ctx context.Context, code LeaveTypeCode) ([]*LeavePolicy, error)
	ListAllPolicies(ctx context.Context) ([]*LeavePolicy, error)
}

// =============================================================================
// EMPLOYEE DIRECTORY - External master data, read-only view
// =============================================================================

// EmployeeDirectory supplies the engine's view of employee master data.
// The authoritative record lives in an external system.
type EmployeeDirectory interface {
	GetEmployee(ctx context.Context, id EmployeeID) (*Employee, error) // nil when absent
	ListEmployees(ctx context.Context) ([]Employee, error)
}
