/*
handlers.go - HTTP API handlers for the leave engine

PURPOSE:
  Exposes the leave entitlement and request lifecycle engine via REST API.
  Handles HTTP request/response, JSON serialization, and delegates to the
  domain layer.

ENDPOINTS:
  Requests:
    POST   /api/leave-requests                     Submit request
    GET    /api/leave-requests                     List (filter: employee, status)
    GET    /api/leave-requests/{id}                Get request
    POST   /api/leave-requests/{id}/approve        Manager approve
    POST   /api/leave-requests/{id}/reject         Manager reject
    POST   /api/leave-requests/{id}/cancel         Cancel
    POST   /api/leave-requests/{id}/finalize       HR finalize
    POST   /api/leave-requests/{id}/override       HR override
    POST   /api/leave-requests/{id}/flag-irregular, /unflag-irregular

  Entitlements:
    GET    /api/leave-entitlements/my-balances     Balance summary
    POST   /api/leave-entitlements/manual-adjustment

  Administration:
    GET    /api/audit                              Audit query (HR)
    GET/POST /api/leave-types, /api/policies       Policy administration
    GET/POST /api/employees, /api/holidays         Master data
    POST   /api/admin/sweep                        Manual sweep trigger

ACTOR IDENTITY:
  Identity and role resolution live in the surrounding platform. The engine
  trusts X-Actor-ID and X-Actor-Roles headers and builds the actor's
  capability set once per request; handlers and domain operations check
  capabilities, never role strings.

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, policy violations, eligibility denials
  - 401: Missing actor identity
  - 403: Capability missing
  - 404: Resource not found
  - 409: Concurrency conflict, insufficient balance, invalid transition
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - leave/request.go: The workflow these handlers delegate to
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// EmployeeAdmin is the directory plus the write side used by master-data sync.
type EmployeeAdmin interface {
	leave.EmployeeDirectory
	SaveEmployee(ctx context.Context, emp leave.Employee) error
}

// HolidayAdmin is the calendar plus its write side.
type HolidayAdmin interface {
	leave.HolidayCalendar
	SaveHoliday(ctx context.Context, h leave.Holiday) error
	DeleteHoliday(ctx context.Context, id string) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Workflow  *leave.Workflow
	Ledger    *leave.Ledger
	Sweeper   *leave.Sweeper
	Policies  leave.PolicyStore
	Audit     leave.AuditLog
	Employees EmployeeAdmin
	Holidays  HolidayAdmin

	// Reset enables the demo scenario loader; leave nil in production.
	Reset Resetter

	currentScenario string
}

// Resetter wipes all stored data before a scenario load.
type Resetter interface {
	Reset(ctx context.Context) error
}

// NewHandler creates a new handler.
func NewHandler(wf *leave.Workflow, ledger *leave.Ledger, sweeper *leave.Sweeper, policies leave.PolicyStore, audit leave.AuditLog, employees EmployeeAdmin, holidays HolidayAdmin) *Handler {
	return &Handler{
		Workflow:  wf,
		Ledger:    ledger,
		Sweeper:   sweeper,
		Policies:  policies,
		Audit:     audit,
		Employees: employees,
		Holidays:  holidays,
	}
}

// actorFrom builds the actor's capability set from the identity headers.
func actorFrom(r *http.Request) (auth.Actor, error) {
	id := strings.TrimSpace(r.Header.Get("X-Actor-ID"))
	if id == "" {
		return auth.Actor{}, fmt.Errorf("missing X-Actor-ID header")
	}
	var roles []string
	for _, role := range strings.Split(r.Header.Get("X-Actor-Roles"), ",") {
		if role = strings.TrimSpace(role); role != "" {
			roles = append(roles, role)
		}
	}
	return auth.Actor{ID: id, Perms: auth.FromRoles(roles)}, nil
}

// =============================================================================
// REQUEST ENDPOINTS
// =============================================================================

// SubmitRequest creates a leave request.
// POST /api/leave-requests
func (h *Handler) SubmitRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}

	var dto SubmitRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	employeeID := dto.EmployeeID
	if employeeID == "" {
		employeeID = actor.ID
	}
	from, err := parseDate(dto.From)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid from date", err)
		return
	}
	to, err := parseDate(dto.To)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid to date", err)
		return
	}

	req, err := h.Workflow.Submit(r.Context(), actor, leave.SubmitInput{
		EmployeeID:    leave.EmployeeID(employeeID),
		LeaveTypeCode: leave.LeaveTypeCode(dto.LeaveTypeCode),
		From:          from,
		To:            to,
		Comment:       dto.Comment,
		AttachmentRef: dto.AttachmentRef,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toRequestDTO(req))
}

// GetRequest returns one request.
// GET /api/leave-requests/{id}
func (h *Handler) GetRequest(w http.ResponseWriter, r *http.Request) {
	id := leave.RequestID(chi.URLParam(r, "id"))
	req, err := h.Workflow.Requests.GetRequest(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load request", err)
		return
	}
	if req == nil {
		writeError(w, http.StatusNotFound, "request not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ListRequests lists requests, filtered by employee and/or status.
// GET /api/leave-requests?employee=&status=
func (h *Handler) ListRequests(w http.ResponseWriter, r *http.Request) {
	var filter leave.RequestFilter
	if emp := r.URL.Query().Get("employee"); emp != "" {
		id := leave.EmployeeID(emp)
		filter.EmployeeID = &id
	}
	if st := r.URL.Query().Get("status"); st != "" {
		status := leave.RequestStatus(st)
		filter.Status = &status
	}

	reqs, err := h.Workflow.Requests.ListRequests(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list requests", err)
		return
	}
	dtos := make([]RequestDTO, 0, len(reqs))
	for _, req := range reqs {
		dtos = append(dtos, toRequestDTO(req))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// transition is the shared shape of the simple decision endpoints.
func (h *Handler) transition(w http.ResponseWriter, r *http.Request, fn func(context.Context, auth.Actor, leave.RequestID, string) (*leave.Request, error)) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	var body DecisionRequest
	if r.Body != nil {
		_ = json.NewDecoder(r.Body).Decode(&body) // empty body is fine
	}

	req, err := fn(r.Context(), actor, leave.RequestID(chi.URLParam(r, "id")), body.Comment)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// ApproveRequest moves pending to approved.
// POST /api/leave-requests/{id}/approve
func (h *Handler) ApproveRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.ManagerApprove)
}

// RejectRequest moves pending to rejected. Comment required.
// POST /api/leave-requests/{id}/reject
func (h *Handler) RejectRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.ManagerReject)
}

// CancelRequest cancels a request.
// POST /api/leave-requests/{id}/cancel
func (h *Handler) CancelRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.Cancel)
}

// FinalizeRequest commits an approved request for payroll.
// POST /api/leave-requests/{id}/finalize
func (h *Handler) FinalizeRequest(w http.ResponseWriter, r *http.Request) {
	h.transition(w, r, h.Workflow.HRFinalize)
}

// OverrideRequest forces the opposite decision on a non-finalized request.
// POST /api/leave-requests/{id}/override
func (h *Handler) OverrideRequest(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	var body OverrideRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}

	req, err := h.Workflow.HROverride(r.Context(), actor, leave.RequestID(chi.URLParam(r, "id")), body.Comment, body.OverrideReason)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// FlagIrregular marks a request for HR review.
// POST /api/leave-requests/{id}/flag-irregular
func (h *Handler) FlagIrregular(w http.ResponseWriter, r *http.Request) {
	h.setIrregular(w, r, true)
}

// UnflagIrregular clears the HR review flag.
// POST /api/leave-requests/{id}/unflag-irregular
func (h *Handler) UnflagIrregular(w http.ResponseWriter, r *http.Request) {
	h.setIrregular(w, r, false)
}

func (h *Handler) setIrregular(w http.ResponseWriter, r *http.Request, flagged bool) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	req, err := h.Workflow.SetIrregularFlag(r.Context(), actor, leave.RequestID(chi.URLParam(r, "id")), flagged)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toRequestDTO(req))
}

// =============================================================================
// ENTITLEMENT ENDPOINTS
// =============================================================================

// MyBalances returns the balance summary for the actor, or for ?employee=
// when the actor may read other balances.
// GET /api/leave-entitlements/my-balances?employee=&as_of=
func (h *Handler) MyBalances(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}

	employeeID := actor.ID
	if emp := r.URL.Query().Get("employee"); emp != "" {
		employeeID = emp
	}
	asOf := time.Now()
	if s := r.URL.Query().Get("as_of"); s != "" {
		if asOf, err = parseDate(s); err != nil {
			writeError(w, http.StatusBadRequest, "invalid as_of date", err)
			return
		}
	}

	balances, err := h.Workflow.Balances(r.Context(), actor, leave.EmployeeID(employeeID), asOf)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	dtos := make([]BalanceSummaryDTO, 0, len(balances))
	for _, b := range balances {
		dtos = append(dtos, toBalanceDTO(b))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// ManualAdjustment applies an HR balance correction.
// POST /api/leave-entitlements/manual-adjustment
func (h *Handler) ManualAdjustment(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermBalanceAdjust) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	var body AdjustmentRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(body.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid amount", err)
		return
	}
	typ := leave.AdjustmentType(body.Type)
	if typ != leave.AdjustAdd && typ != leave.AdjustDeduct {
		writeError(w, http.StatusBadRequest, "type must be add or deduct", nil)
		return
	}
	year := body.PeriodYear
	if year == 0 {
		year = time.Now().Year()
	}

	row, err := h.Ledger.Adjust(r.Context(), leave.EmployeeID(body.EmployeeID), leave.LeaveTypeCode(body.LeaveTypeCode), year, amount, typ, body.Reason, actor.ID)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, BalanceSummaryDTO{
		LeaveTypeCode:  string(row.LeaveTypeCode),
		PeriodYear:     row.PeriodYear,
		Entitled:       row.Entitled.String(),
		CarriedForward: row.CarriedForward.String(),
		Used:           row.Used.String(),
		Held:           row.Held.String(),
		Adjustment:     row.ManualAdjustment.String(),
		Available:      row.Available().String(),
	})
}

// =============================================================================
// AUDIT ENDPOINT
// =============================================================================

// QueryAudit returns audit records matching the query.
// GET /api/audit?employee=&leave_type=&from=&to=
func (h *Handler) QueryAudit(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermAuditRead) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	var filter leave.AuditFilter
	q := r.URL.Query()
	if emp := q.Get("employee"); emp != "" {
		id := leave.EmployeeID(emp)
		filter.EmployeeID = &id
	}
	if lt := q.Get("leave_type"); lt != "" {
		code := leave.LeaveTypeCode(lt)
		filter.LeaveTypeCode = &code
	}
	if s := q.Get("from"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid from date", err)
			return
		}
		filter.From = &t
	}
	if s := q.Get("to"); s != "" {
		t, err := parseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid to date", err)
			return
		}
		filter.To = &t
	}

	entries, err := h.Audit.Query(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to query audit log", err)
		return
	}
	dtos := make([]AuditEntryDTO, 0, len(entries))
	for _, e := range entries {
		dtos = append(dtos, toAuditDTO(e))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// POLICY ADMINISTRATION
// =============================================================================

// ListLeaveTypes returns all leave types.
// GET /api/leave-types
func (h *Handler) ListLeaveTypes(w http.ResponseWriter, r *http.Request) {
	types, err := h.Policies.ListLeaveTypes(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list leave types", err)
		return
	}
	dtos := make([]LeaveTypeDTO, 0, len(types))
	for _, lt := range types {
		dtos = append(dtos, toLeaveTypeDTO(lt))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateLeaveType creates or updates a leave type.
// POST /api/leave-types
func (h *Handler) CreateLeaveType(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermPolicyWrite) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	var dto LeaveTypeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if dto.Code == "" || dto.Name == "" {
		writeError(w, http.StatusBadRequest, "code and name are required", nil)
		return
	}

	lt := leave.LeaveType{
		Code:               leave.LeaveTypeCode(dto.Code),
		Name:               dto.Name,
		Paid:               dto.Paid,
		Deductible:         dto.Deductible,
		RequiresAttachment: dto.RequiresAttachment,
		AttachmentType:     dto.AttachmentType,
		MinTenureMonths:    dto.MinTenureMonths,
		MaxDurationDays:    dto.MaxDurationDays,
		CreatedAt:          time.Now().UTC(),
	}
	if err := h.Policies.SaveLeaveType(r.Context(), lt); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save leave type", err)
		return
	}
	writeJSON(w, http.StatusCreated, toLeaveTypeDTO(lt))
}

// ListPolicies returns policy versions, optionally for one leave type.
// GET /api/policies?leave_type=
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	var (
		policies []*leave.LeavePolicy
		err      error
	)
	if lt := r.URL.Query().Get("leave_type"); lt != "" {
		policies, err = h.Policies.ListPolicies(r.Context(), leave.LeaveTypeCode(lt))
	} else {
		policies, err = h.Policies.ListAllPolicies(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list policies", err)
		return
	}
	dtos := make([]PolicyDTO, 0, len(policies))
	for _, p := range policies {
		dtos = append(dtos, toPolicyDTO(p))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy creates a new policy version. Existing versions are never
// modified; a correction is a new version with a later creation order.
// POST /api/policies
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermPolicyWrite) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	var dto PolicyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	policy, err := policyFromDTO(r.Context(), h.Policies, dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid policy", err)
		return
	}
	if err := h.Policies.SavePolicy(r.Context(), policy); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save policy", err)
		return
	}
	writeJSON(w, http.StatusCreated, toPolicyDTO(policy))
}

func policyFromDTO(ctx context.Context, store leave.PolicyStore, dto PolicyDTO) (*leave.LeavePolicy, error) {
	if dto.LeaveTypeCode == "" {
		return nil, fmt.Errorf("leave_type_code is required")
	}
	lt, err := store.GetLeaveType(ctx, leave.LeaveTypeCode(dto.LeaveTypeCode))
	if err != nil {
		return nil, err
	}
	if lt == nil {
		return nil, leave.ErrLeaveTypeNotFound
	}

	effective, err := parseDate(dto.EffectiveDate)
	if err != nil {
		return nil, fmt.Errorf("invalid effective_date: %w", err)
	}
	method := leave.AccrualMethod(dto.AccrualMethod)
	switch method {
	case leave.AccrualYearly, leave.AccrualPerTerm:
		if dto.YearlyRate == "" {
			return nil, fmt.Errorf("yearly_rate is required for accrual method %q", dto.AccrualMethod)
		}
		if dto.MonthlyRate != "" {
			return nil, fmt.Errorf("monthly_rate does not apply to accrual method %q", dto.AccrualMethod)
		}
	case leave.AccrualMonthly:
		if dto.MonthlyRate == "" {
			return nil, fmt.Errorf("monthly_rate is required for accrual method %q", dto.AccrualMethod)
		}
		if dto.YearlyRate != "" {
			return nil, fmt.Errorf("yearly_rate does not apply to accrual method %q", dto.AccrualMethod)
		}
	default:
		return nil, fmt.Errorf("unknown accrual method %q", dto.AccrualMethod)
	}

	p := &leave.LeavePolicy{
		ID:            dto.ID,
		LeaveTypeCode: leave.LeaveTypeCode(dto.LeaveTypeCode),
		EffectiveDate: effective,
		AccrualMethod: method,
		Rounding:      leave.RoundingRule(dto.Rounding),
		CarryForward: leave.CarryForwardRules{
			Allowed:      dto.CarryAllowed,
			ExpiryMonths: dto.CarryExpiryMonths,
		},
		MinNoticeDays:      dto.MinNoticeDays,
		MaxConsecutiveDays: dto.MaxConsecutiveDays,
		Eligibility: leave.EligibilityRules{
			MinTenureMonths: dto.MinTenureMonths,
		},
		CreatedAt: time.Now().UTC(),
	}
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if dto.YearlyRate != "" {
		if p.YearlyRate, err = decimal.NewFromString(dto.YearlyRate); err != nil {
			return nil, fmt.Errorf("invalid yearly_rate: %w", err)
		}
	}
	if dto.MonthlyRate != "" {
		if p.MonthlyRate, err = decimal.NewFromString(dto.MonthlyRate); err != nil {
			return nil, fmt.Errorf("invalid monthly_rate: %w", err)
		}
	}
	if dto.CarryAllowed && dto.CarryMaxDays != "" {
		if p.CarryForward.MaxDays, err = decimal.NewFromString(dto.CarryMaxDays); err != nil {
			return nil, fmt.Errorf("invalid carry_max_days: %w", err)
		}
	}
	for _, ct := range dto.ContractTypes {
		p.Eligibility.ContractTypesAllowed = append(p.Eligibility.ContractTypesAllowed, leave.ContractType(ct))
	}
	return p, nil
}

// =============================================================================
// EMPLOYEE ENDPOINTS
// =============================================================================

// ListEmployees returns all employees.
// GET /api/employees
func (h *Handler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	employees, err := h.Employees.ListEmployees(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to list employees", err)
		return
	}
	dtos := make([]EmployeeDTO, 0, len(employees))
	for _, emp := range employees {
		dtos = append(dtos, toEmployeeDTO(emp))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetEmployee returns one employee.
// GET /api/employees/{id}
func (h *Handler) GetEmployee(w http.ResponseWriter, r *http.Request) {
	emp, err := h.Employees.GetEmployee(r.Context(), leave.EmployeeID(chi.URLParam(r, "id")))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load employee", err)
		return
	}
	if emp == nil {
		writeError(w, http.StatusNotFound, "employee not found", nil)
		return
	}
	writeJSON(w, http.StatusOK, toEmployeeDTO(*emp))
}

// CreateEmployee syncs an employee record from the master system.
// POST /api/employees
func (h *Handler) CreateEmployee(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermPolicyWrite) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	var dto EmployeeDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	if dto.ID == "" || dto.Name == "" {
		writeError(w, http.StatusBadRequest, "id and name are required", nil)
		return
	}
	hireDate, err := parseDate(dto.HireDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid hire_date", err)
		return
	}

	emp := leave.Employee{
		ID:           leave.EmployeeID(dto.ID),
		Name:         dto.Name,
		HireDate:     hireDate,
		ContractType: leave.ContractType(dto.ContractType),
	}
	if emp.ContractType == "" {
		emp.ContractType = leave.ContractPermanent
	}
	if err := h.Employees.SaveEmployee(r.Context(), emp); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save employee", err)
		return
	}
	writeJSON(w, http.StatusCreated, toEmployeeDTO(emp))
}

// =============================================================================
// HOLIDAY ENDPOINTS
// =============================================================================

// ListHolidays returns the holidays of a year (default: current year).
// GET /api/holidays?year=
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	year := time.Now().Year()
	if s := r.URL.Query().Get("year"); s != "" {
		y, err := strconv.Atoi(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid year", err)
			return
		}
		year = y
	}

	holidays := h.Holidays.Holidays(year)
	dtos := make([]HolidayDTO, 0, len(holidays))
	for _, hol := range holidays {
		dtos = append(dtos, toHolidayDTO(hol))
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateHoliday adds a holiday.
// POST /api/holidays
func (h *Handler) CreateHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermHolidayWrite) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	var dto HolidayDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body", err)
		return
	}
	date, err := parseDate(dto.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid date", err)
		return
	}

	hol := leave.Holiday{
		ID:        dto.ID,
		Date:      date,
		Name:      dto.Name,
		Recurring: dto.Recurring,
	}
	if hol.ID == "" {
		hol.ID = uuid.NewString()
	}
	if err := h.Holidays.SaveHoliday(r.Context(), hol); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save holiday", err)
		return
	}
	writeJSON(w, http.StatusCreated, toHolidayDTO(hol))
}

// DeleteHoliday removes a holiday.
// DELETE /api/holidays/{id}
func (h *Handler) DeleteHoliday(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermHolidayWrite) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	if err := h.Holidays.DeleteHoliday(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to delete holiday", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// ADMIN ENDPOINTS
// =============================================================================

// TriggerSweep runs the accrual/carry-forward sweep immediately.
// POST /api/admin/sweep
func (h *Handler) TriggerSweep(w http.ResponseWriter, r *http.Request) {
	actor, err := actorFrom(r)
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthenticated", err)
		return
	}
	if !actor.Can(auth.PermSweepRun) {
		writeError(w, http.StatusForbidden, "permission denied", nil)
		return
	}

	result, err := h.Sweeper.Run(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "sweep failed", err)
		return
	}
	dto := SweepResultDTO{
		Employees:   result.Employees,
		CarriedOver: result.CarriedOver.String(),
		Expired:     result.Expired.String(),
	}
	for _, e := range result.Errors {
		dto.Errors = append(dto.Errors, e.Error())
	}
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// HELPERS
// =============================================================================

func parseDate(s string) (time.Time, error) {
	if t, err := time.Parse(dateLayout, s); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, s)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}

// writeDomainError maps domain errors to HTTP statuses.
func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, leave.ErrPermissionDenied):
		writeError(w, http.StatusForbidden, "permission denied", err)
	case leave.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not found", err)
	case errors.Is(err, leave.ErrInsufficientBalance),
		errors.Is(err, leave.ErrConcurrentUpdateConflict),
		errors.Is(err, leave.ErrInvalidTransition),
		errors.Is(err, leave.ErrAlreadyFinalized):
		writeError(w, http.StatusConflict, "conflict", err)
	case leave.IsClientError(err),
		errors.Is(err, leave.ErrNotEligible),
		errors.Is(err, leave.ErrPolicyViolation),
		errors.Is(err, leave.ErrReasonTooShort):
		writeError(w, http.StatusBadRequest, "invalid request", err)
	default:
		writeError(w, http.StatusInternalServerError, "internal error", err)
	}
}
