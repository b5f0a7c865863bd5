// Package memory provides in-memory store implementations for tests and dev.
// The CAS semantics on entitlement rows match the SQLite store exactly, so
// concurrency behavior is testable without a database.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Store implements leave.EntitlementStore, leave.RequestStore,
// leave.PolicyStore, leave.EmployeeDirectory, leave.AuditLog, and
// leave.HolidayCalendar.
type Store struct {
	mu sync.RWMutex

	entitlements map[entKey]leave.Entitlement
	requests     map[leave.RequestID]leave.Request
	leaveTypes   map[leave.LeaveTypeCode]leave.LeaveType
	policies     []*leave.LeavePolicy
	policySeq    int64
	employees    map[leave.EmployeeID]leave.Employee
	audit        []leave.AuditEntry
	holidays     map[string]leave.Holiday
}

type entKey struct {
	Emp  leave.EmployeeID
	Code leave.LeaveTypeCode
	Year int
}

func New() *Store {
	return &Store{
		entitlements: make(map[entKey]leave.Entitlement),
		requests:     make(map[leave.RequestID]leave.Request),
		leaveTypes:   make(map[leave.LeaveTypeCode]leave.LeaveType),
		employees:    make(map[leave.EmployeeID]leave.Employee),
		holidays:     make(map[string]leave.Holiday),
	}
}

// Reset clears all data, mirroring the SQLite store's demo-reset behavior.
func (s *Store) Reset(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entitlements = make(map[entKey]leave.Entitlement)
	s.requests = make(map[leave.RequestID]leave.Request)
	s.leaveTypes = make(map[leave.LeaveTypeCode]leave.LeaveType)
	s.policies = nil
	s.policySeq = 0
	s.employees = make(map[leave.EmployeeID]leave.Employee)
	s.audit = nil
	s.holidays = make(map[string]leave.Holiday)
	return nil
}

// =============================================================================
// ENTITLEMENT STORE (CAS)
// =============================================================================

func (s *Store) GetEntitlement(_ context.Context, emp leave.EmployeeID, code leave.LeaveTypeCode, year int) (*leave.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row, ok := s.entitlements[entKey{emp, code, year}]
	if !ok {
		return nil, nil
	}
	out := row
	return &out, nil
}

func (s *Store) PutEntitlement(_ context.Context, row leave.Entitlement, expectedVersion int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	k := entKey{row.EmployeeID, row.LeaveTypeCode, row.PeriodYear}
	stored, exists := s.entitlements[k]

	if !exists {
		if expectedVersion != 0 {
			return leave.ErrConcurrentUpdateConflict
		}
	} else if stored.Version != expectedVersion {
		return leave.ErrConcurrentUpdateConflict
	}

	row.Version = expectedVersion + 1
	s.entitlements[k] = row
	return nil
}

func (s *Store) ListEntitlements(_ context.Context, emp leave.EmployeeID) ([]leave.Entitlement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leave.Entitlement
	for k, row := range s.entitlements {
		if k.Emp == emp {
			out = append(out, row)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PeriodYear != out[j].PeriodYear {
			return out[i].PeriodYear < out[j].PeriodYear
		}
		return out[i].LeaveTypeCode < out[j].LeaveTypeCode
	})
	return out, nil
}

// =============================================================================
// REQUEST STORE
// =============================================================================

func (s *Store) SaveRequest(_ context.Context, req *leave.Request) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := *req
	cp.Decisions = append([]leave.Decision(nil), req.Decisions...)
	s.requests[req.ID] = cp
	return nil
}

func (s *Store) GetRequest(_ context.Context, id leave.RequestID) (*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, nil
	}
	cp := req
	cp.Decisions = append([]leave.Decision(nil), req.Decisions...)
	return &cp, nil
}

func (s *Store) ListRequests(_ context.Context, filter leave.RequestFilter) ([]*leave.Request, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*leave.Request
	for _, req := range s.requests {
		if filter.EmployeeID != nil && req.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.Status != nil && req.Status != *filter.Status {
			continue
		}
		cp := req
		cp.Decisions = append([]leave.Decision(nil), req.Decisions...)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

// =============================================================================
// POLICY STORE
// =============================================================================

func (s *Store) SaveLeaveType(_ context.Context, lt leave.LeaveType) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.leaveTypes[lt.Code] = lt
	return nil
}

func (s *Store) GetLeaveType(_ context.Context, code leave.LeaveTypeCode) (*leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	lt, ok := s.leaveTypes[code]
	if !ok {
		return nil, nil
	}
	return &lt, nil
}

func (s *Store) ListLeaveTypes(_ context.Context) ([]leave.LeaveType, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.LeaveType, 0, len(s.leaveTypes))
	for _, lt := range s.leaveTypes {
		out = append(out, lt)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out, nil
}

func (s *Store) SavePolicy(_ context.Context, p *leave.LeavePolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.policySeq++
	p.CreatedSeq = s.policySeq
	cp := *p
	s.policies = append(s.policies, &cp)
	return nil
}

func (s *Store) ListPolicies(_ context.Context, code leave.LeaveTypeCode) ([]*leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*leave.LeavePolicy
	for _, p := range s.policies {
		if p.LeaveTypeCode == code {
			cp := *p
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (s *Store) ListAllPolicies(_ context.Context) ([]*leave.LeavePolicy, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*leave.LeavePolicy, 0, len(s.policies))
	for _, p := range s.policies {
		cp := *p
		out = append(out, &cp)
	}
	return out, nil
}

// =============================================================================
// EMPLOYEE DIRECTORY
// =============================================================================

func (s *Store) SaveEmployee(_ context.Context, emp leave.Employee) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.employees[emp.ID] = emp
	return nil
}

func (s *Store) GetEmployee(_ context.Context, id leave.EmployeeID) (*leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	emp, ok := s.employees[id]
	if !ok {
		return nil, nil
	}
	return &emp, nil
}

func (s *Store) ListEmployees(_ context.Context) ([]leave.Employee, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]leave.Employee, 0, len(s.employees))
	for _, emp := range s.employees {
		out = append(out, emp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// =============================================================================
// AUDIT LOG (append-only)
// =============================================================================

func (s *Store) Append(_ context.Context, entry leave.AuditEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.audit = append(s.audit, entry)
	return nil
}

func (s *Store) Query(_ context.Context, filter leave.AuditFilter) ([]leave.AuditEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leave.AuditEntry
	for _, e := range s.audit {
		if filter.EmployeeID != nil && e.EmployeeID != *filter.EmployeeID {
			continue
		}
		if filter.LeaveTypeCode != nil && e.LeaveTypeCode != *filter.LeaveTypeCode {
			continue
		}
		if len(filter.Actions) > 0 && !containsAction(filter.Actions, e.Action) {
			continue
		}
		if filter.From != nil && e.At.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.At.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	return out, nil
}

func containsAction(actions []leave.AuditAction, a leave.AuditAction) bool {
	for _, x := range actions {
		if x == a {
			return true
		}
	}
	return false
}

// =============================================================================
// HOLIDAY CALENDAR
// =============================================================================

func (s *Store) SaveHoliday(_ context.Context, h leave.Holiday) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.holidays[h.ID] = h
	return nil
}

func (s *Store) DeleteHoliday(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.holidays, id)
	return nil
}

func (s *Store) IsHoliday(date time.Time) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d := leave.Day(date)
	for _, h := range s.holidays {
		hd := leave.Day(h.Date)
		if hd.Equal(d) {
			return true
		}
		if h.Recurring && hd.Month() == d.Month() && hd.Day() == d.Day() {
			return true
		}
	}
	return false
}

func (s *Store) Holidays(year int) []leave.Holiday {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []leave.Holiday
	for _, h := range s.holidays {
		switch {
		case h.Recurring:
			// Project recurring holidays into the requested year, matching
			// the SQLite store.
			cp := h
			cp.Date = time.Date(year, h.Date.Month(), h.Date.Day(), 0, 0, 0, 0, time.UTC)
			out = append(out, cp)
		case h.Date.Year() == year:
			out = append(out, h)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}
