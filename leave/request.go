/*
request.go - The leave request state machine

PURPOSE:
  Governs a request's lifecycle and the ledger side effects of each
  transition. Each operation validates actor capability, current status, and
  business rules before touching the ledger; ledger effects are single atomic
  steps (reserve, release, commit).

STATE DIAGRAM:
  pending  --approve-->  approved  --finalize-->  finalized
  pending  --reject---->  rejected
  pending  --cancel---->  cancelled            (employee or HR)
  approved --cancel---->  cancelled            (HR only)
  HR override flips approved<->rejected, revives cancelled to approved,
  and may force a stuck pending request to approved. Finalized is terminal
  for everything, override included.

LEDGER EFFECTS:
  submit    reserve(durationDays)    hold placed
  approve   (none)                   hold stays in place
  reject    release                  hold returned
  cancel    release                  hold returned
  finalize  commit                   hold becomes used days
  override  release or re-reserve, depending on direction

SEE ALSO:
  - ledger.go: the hold operations
  - auth: the permission each operation declares
*/
package leave

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/auth"
)

// minRejectCommentLen is the floor for manager reject comments.
const minRejectCommentLen = 10

// Workflow orchestrates request transitions against the ledger.
type Workflow struct {
	Ledger    *Ledger
	Requests  RequestStore
	Policies  PolicyStore
	Employees EmployeeDirectory
	Calendar  HolidayCalendar

	// Now is injectable for tests; defaults to time.Now.
	Now func() time.Time
}

func NewWorkflow(ledger *Ledger, requests RequestStore, policies PolicyStore, employees EmployeeDirectory, cal HolidayCalendar) *Workflow {
	return &Workflow{
		Ledger:    ledger,
		Requests:  requests,
		Policies:  policies,
		Employees: employees,
		Calendar:  cal,
		Now:       time.Now,
	}
}

func (w *Workflow) now() time.Time {
	if w.Now != nil {
		return w.Now()
	}
	return time.Now()
}

// hold reconstructs the ledger hold a request placed at submit time.
func requestHold(req *Request) Hold {
	return Hold{
		EmployeeID:    req.EmployeeID,
		LeaveTypeCode: req.LeaveTypeCode,
		PeriodYear:    req.From.Year(),
		Days:          req.DurationDays,
		RequestID:     req.ID,
	}
}

// =============================================================================
// SUBMIT
// =============================================================================

// SubmitInput carries a new request's fields.
type SubmitInput struct {
	EmployeeID    EmployeeID
	LeaveTypeCode LeaveTypeCode
	From          time.Time
	To            time.Time
	Comment       string
	AttachmentRef string
}

// Submit validates a new request end to end and, on success, places a ledger
// hold and creates the request in pending. Validation order matters: input
// shape, then policy/eligibility, then policy limits, and only then the
// ledger - a rejected request never touches the balance.
func (w *Workflow) Submit(ctx context.Context, actor auth.Actor, in SubmitInput) (*Request, error) {
	if string(in.EmployeeID) != actor.ID {
		if !actor.Can(auth.PermLeaveSubmitOnBehalf) {
			return nil, fmt.Errorf("%w: submit on behalf of %s", ErrPermissionDenied, in.EmployeeID)
		}
	} else if !actor.Can(auth.PermLeaveSubmit) {
		return nil, fmt.Errorf("%w: submit", ErrPermissionDenied)
	}

	if in.From.IsZero() || in.To.IsZero() {
		return nil, fmt.Errorf("from and to dates are required")
	}
	from, to := Day(in.From), Day(in.To)
	if to.Before(from) {
		return nil, fmt.Errorf("to date %s before from date %s", to.Format("2006-01-02"), from.Format("2006-01-02"))
	}

	emp, err := w.Employees.GetEmployee(ctx, in.EmployeeID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s not found", in.EmployeeID)
	}

	lt, err := w.Policies.GetLeaveType(ctx, in.LeaveTypeCode)
	if err != nil {
		return nil, err
	}
	if lt == nil {
		return nil, ErrLeaveTypeNotFound
	}

	now := w.now()
	policies, err := w.Policies.ListPolicies(ctx, in.LeaveTypeCode)
	if err != nil {
		return nil, err
	}
	policy, err := ResolvePolicy(policies, in.LeaveTypeCode, now)
	if err != nil {
		return nil, err
	}

	// Eligibility is evaluated at submission time, never cached.
	if err := CheckEligibility(*emp, *lt, policy, now); err != nil {
		return nil, err
	}

	if err := checkPolicyLimits(*lt, policy, from, to, now, in.AttachmentRef); err != nil {
		return nil, err
	}

	duration := WorkingDays(from, to, w.Calendar)
	if duration.IsZero() {
		return nil, &PolicyViolationError{Rule: "empty_duration", Detail: "range contains no working days"}
	}

	// Lazy accrual: bring the row current before reserving so a first-ever
	// request sees the entitlement the policy has deposited by now.
	year := from.Year()
	target := EntitledToDate(policy, *emp, year, now)
	if _, err := w.Ledger.Accrue(ctx, in.EmployeeID, in.LeaveTypeCode, year, target, SystemActor); err != nil {
		return nil, err
	}

	req := &Request{
		ID:            RequestID(uuid.NewString()),
		EmployeeID:    in.EmployeeID,
		LeaveTypeCode: in.LeaveTypeCode,
		From:          from,
		To:            to,
		DurationDays:  duration,
		Status:        StatusPending,
		AttachmentRef: in.AttachmentRef,
		Decisions: []Decision{{
			Actor:   actor.ID,
			Action:  ActionSubmit,
			Comment: in.Comment,
			At:      now,
		}},
		CreatedAt: now,
		UpdatedAt: now,
	}

	hold, err := w.Ledger.Reserve(ctx, in.EmployeeID, in.LeaveTypeCode, year, duration, req.ID, actor.ID)
	if err != nil {
		return nil, err
	}

	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		// Compensate: the request never existed, so the hold must not either.
		_ = w.Ledger.Release(ctx, hold, SystemActor, AuditRelease, "request creation failed")
		return nil, err
	}
	return req, nil
}

// checkPolicyLimits enforces notice, consecutive-day, duration, and
// attachment rules. All failures wrap ErrPolicyViolation.
func checkPolicyLimits(lt LeaveType, p *LeavePolicy, from, to, now time.Time, attachmentRef string) error {
	if p.MinNoticeDays > 0 {
		notice := int(from.Sub(Day(now)).Hours() / 24)
		if notice < p.MinNoticeDays {
			return &PolicyViolationError{
				Rule:   "min_notice_days",
				Detail: fmt.Sprintf("needs %d days notice, got %d", p.MinNoticeDays, notice),
			}
		}
	}
	span := CalendarDays(from, to)
	if p.MaxConsecutiveDays > 0 && span > p.MaxConsecutiveDays {
		return &PolicyViolationError{
			Rule:   "max_consecutive_days",
			Detail: fmt.Sprintf("span of %d days exceeds limit %d", span, p.MaxConsecutiveDays),
		}
	}
	if lt.MaxDurationDays > 0 && span > lt.MaxDurationDays {
		return &PolicyViolationError{
			Rule:   "max_duration_days",
			Detail: fmt.Sprintf("span of %d days exceeds leave type limit %d", span, lt.MaxDurationDays),
		}
	}
	if lt.RequiresAttachment && strings.TrimSpace(attachmentRef) == "" {
		return &PolicyViolationError{
			Rule:   "attachment_required",
			Detail: fmt.Sprintf("leave type %s requires a %s attachment", lt.Code, lt.AttachmentType),
		}
	}
	return nil
}

// =============================================================================
// MANAGER DECISIONS
// =============================================================================

// ManagerApprove moves pending to approved. The hold stays in place; days
// are only committed at finalization.
func (w *Workflow) ManagerApprove(ctx context.Context, actor auth.Actor, id RequestID, comment string) (*Request, error) {
	if !actor.Can(auth.PermLeaveApprove) {
		return nil, fmt.Errorf("%w: approve", ErrPermissionDenied)
	}
	req, err := w.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, Action: ActionApprove}
	}

	w.record(req, actor.ID, ActionApprove, comment)
	req.Status = StatusApproved
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// ManagerReject moves pending to rejected and releases the hold. The comment
// must be at least 10 characters.
func (w *Workflow) ManagerReject(ctx context.Context, actor auth.Actor, id RequestID, comment string) (*Request, error) {
	if !actor.Can(auth.PermLeaveApprove) {
		return nil, fmt.Errorf("%w: reject", ErrPermissionDenied)
	}
	if len(strings.TrimSpace(comment)) < minRejectCommentLen {
		return nil, fmt.Errorf("%w: reject comment needs at least %d characters", ErrReasonTooShort, minRejectCommentLen)
	}
	req, err := w.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status != StatusPending {
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, Action: ActionReject}
	}

	if err := w.Ledger.Release(ctx, requestHold(req), actor.ID, AuditRelease, "request rejected"); err != nil {
		return nil, err
	}
	w.record(req, actor.ID, ActionReject, comment)
	req.Status = StatusRejected
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// CANCEL
// =============================================================================

// Cancel releases the hold and moves to cancelled. Employees may cancel
// their own pending requests; HR may also cancel approved ones.
func (w *Workflow) Cancel(ctx context.Context, actor auth.Actor, id RequestID, comment string) (*Request, error) {
	req, err := w.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	own := string(req.EmployeeID) == actor.ID
	switch {
	case actor.Can(auth.PermLeaveCancelAny):
		if req.Status != StatusPending && req.Status != StatusApproved {
			return nil, &InvalidTransitionError{RequestID: id, From: req.Status, Action: ActionCancel}
		}
	case own && actor.Can(auth.PermLeaveCancelOwn):
		if req.Status != StatusPending {
			return nil, &InvalidTransitionError{RequestID: id, From: req.Status, Action: ActionCancel}
		}
	default:
		return nil, fmt.Errorf("%w: cancel request %s", ErrPermissionDenied, id)
	}

	if err := w.Ledger.Release(ctx, requestHold(req), actor.ID, AuditRelease, "request cancelled"); err != nil {
		return nil, err
	}
	w.record(req, actor.ID, ActionCancel, comment)
	req.Status = StatusCancelled
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// HR FINALIZE
// =============================================================================

// HRFinalize commits an approved request's hold to used days and records the
// paid/unpaid split for payroll. Available balance does not change: the days
// were already excluded by the hold.
func (w *Workflow) HRFinalize(ctx context.Context, actor auth.Actor, id RequestID, comment string) (*Request, error) {
	if !actor.Can(auth.PermLeaveFinalize) {
		return nil, fmt.Errorf("%w: finalize", ErrPermissionDenied)
	}
	req, err := w.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req.Status == StatusFinalized {
		return nil, ErrAlreadyFinalized
	}
	if req.Status != StatusApproved {
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, Action: ActionFinalize}
	}

	lt, err := w.Policies.GetLeaveType(ctx, req.LeaveTypeCode)
	if err != nil {
		return nil, err
	}
	if lt == nil {
		return nil, ErrLeaveTypeNotFound
	}

	paid, unpaid, err := w.paidSplit(ctx, req, *lt)
	if err != nil {
		return nil, err
	}

	if err := w.Ledger.Commit(ctx, requestHold(req), actor.ID); err != nil {
		return nil, err
	}
	req.PaidDays = paid
	req.UnpaidDays = unpaid
	w.record(req, actor.ID, ActionFinalize, comment)
	req.Status = StatusFinalized
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// paidSplit computes the paid/unpaid day split. Paid leave types contribute
// to paid days up to the remaining entitlement (entitled + carried +
// adjustment - used, the hold itself excluded); overflow becomes unpaid.
func (w *Workflow) paidSplit(ctx context.Context, req *Request, lt LeaveType) (paid, unpaid decimal.Decimal, err error) {
	if !lt.Paid {
		return decimal.Zero, req.DurationDays, nil
	}
	row, err := w.Ledger.Snapshot(ctx, req.EmployeeID, req.LeaveTypeCode, req.From.Year())
	if err != nil {
		return decimal.Zero, decimal.Zero, err
	}
	capacity := row.Entitled.Add(row.CarriedForward).Add(row.ManualAdjustment).Sub(row.CarriedOut).Sub(row.Used)
	if capacity.IsNegative() {
		capacity = decimal.Zero
	}
	paid = req.DurationDays
	if paid.GreaterThan(capacity) {
		paid = capacity
	}
	return paid, req.DurationDays.Sub(paid), nil
}

// =============================================================================
// HR OVERRIDE
// =============================================================================

// HROverride forces the opposite decision on a non-finalized request:
// approved becomes rejected (hold released), rejected or cancelled becomes
// approved (hold re-reserved, since it was released on the way out), and a
// stuck pending request is forced to approved (hold left in place). The
// override reason must be non-empty and is always audited distinctly from
// normal decisions.
func (w *Workflow) HROverride(ctx context.Context, actor auth.Actor, id RequestID, comment, overrideReason string) (*Request, error) {
	if !actor.Can(auth.PermLeaveOverride) {
		return nil, fmt.Errorf("%w: override", ErrPermissionDenied)
	}
	if strings.TrimSpace(overrideReason) == "" {
		return nil, fmt.Errorf("%w: override reason is required", ErrReasonTooShort)
	}
	req, err := w.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}

	switch req.Status {
	case StatusFinalized:
		return nil, ErrAlreadyFinalized

	case StatusApproved:
		if err := w.Ledger.Release(ctx, requestHold(req), actor.ID, AuditOverrideRelease, overrideReason); err != nil {
			return nil, err
		}
		req.Status = StatusRejected

	case StatusRejected, StatusCancelled:
		// The hold was released when the request left pending; take it again.
		hold := requestHold(req)
		if _, err := w.Ledger.Reserve(ctx, hold.EmployeeID, hold.LeaveTypeCode, hold.PeriodYear, hold.Days, req.ID, actor.ID); err != nil {
			return nil, err
		}
		if err := w.Ledger.Audit.Append(ctx, AuditEntry{
			ID:            uuid.NewString(),
			EmployeeID:    req.EmployeeID,
			LeaveTypeCode: req.LeaveTypeCode,
			PeriodYear:    hold.PeriodYear,
			Action:        AuditOverrideApprove,
			Amount:        decimal.Zero,
			Reason:        overrideReason,
			ActorID:       actor.ID,
			RequestID:     req.ID,
			At:            w.now(),
		}); err != nil {
			return nil, err
		}
		req.Status = StatusApproved

	case StatusPending:
		// Forcing a stuck pending request through: hold is already in place.
		if err := w.Ledger.Audit.Append(ctx, AuditEntry{
			ID:            uuid.NewString(),
			EmployeeID:    req.EmployeeID,
			LeaveTypeCode: req.LeaveTypeCode,
			PeriodYear:    req.From.Year(),
			Action:        AuditOverrideApprove,
			Amount:        decimal.Zero,
			Reason:        overrideReason,
			ActorID:       actor.ID,
			RequestID:     req.ID,
			At:            w.now(),
		}); err != nil {
			return nil, err
		}
		req.Status = StatusApproved

	default:
		return nil, &InvalidTransitionError{RequestID: id, From: req.Status, Action: ActionOverride}
	}

	w.record(req, actor.ID, ActionOverride, fmt.Sprintf("%s (override: %s)", comment, overrideReason))
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// IRREGULAR PATTERN FLAG
// =============================================================================

// SetIrregularFlag toggles the HR review flag. It never changes status and
// never touches the ledger.
func (w *Workflow) SetIrregularFlag(ctx context.Context, actor auth.Actor, id RequestID, flagged bool) (*Request, error) {
	if !actor.Can(auth.PermLeaveFlag) {
		return nil, fmt.Errorf("%w: flag irregular", ErrPermissionDenied)
	}
	req, err := w.getRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	req.IrregularPattern = flagged
	req.UpdatedAt = w.now()
	if err := w.Requests.SaveRequest(ctx, req); err != nil {
		return nil, err
	}
	return req, nil
}

// =============================================================================
// BALANCE VIEW
// =============================================================================

// BalanceSummary is the per-leave-type view an employee sees.
type BalanceSummary struct {
	LeaveTypeCode  LeaveTypeCode
	LeaveTypeName  string
	PeriodYear     int
	Entitled       decimal.Decimal
	CarriedForward decimal.Decimal
	Used           decimal.Decimal
	Held           decimal.Decimal
	Adjustment     decimal.Decimal
	Available      decimal.Decimal
	CarryExpiresOn time.Time
}

// Balances returns the employee's balance across all leave types they have a
// resolvable policy for, bringing accrual current first (lazy accrual on
// read). Reading your own balances needs PermBalanceReadOwn; anyone else's
// needs PermBalanceReadAny.
func (w *Workflow) Balances(ctx context.Context, actor auth.Actor, empID EmployeeID, asOf time.Time) ([]BalanceSummary, error) {
	if string(empID) == actor.ID {
		if !actor.Can(auth.PermBalanceReadOwn) {
			return nil, fmt.Errorf("%w: read balances", ErrPermissionDenied)
		}
	} else if !actor.Can(auth.PermBalanceReadAny) {
		return nil, fmt.Errorf("%w: read balances of %s", ErrPermissionDenied, empID)
	}

	emp, err := w.Employees.GetEmployee(ctx, empID)
	if err != nil {
		return nil, err
	}
	if emp == nil {
		return nil, fmt.Errorf("employee %s not found", empID)
	}

	types, err := w.Policies.ListLeaveTypes(ctx)
	if err != nil {
		return nil, err
	}

	year := asOf.Year()
	var out []BalanceSummary
	for _, lt := range types {
		policies, err := w.Policies.ListPolicies(ctx, lt.Code)
		if err != nil {
			return nil, err
		}
		policy, err := ResolvePolicy(policies, lt.Code, asOf)
		if err != nil {
			continue // leave type not yet usable
		}

		target := EntitledToDate(policy, *emp, year, asOf)
		row, err := w.Ledger.Accrue(ctx, empID, lt.Code, year, target, SystemActor)
		if err != nil {
			return nil, err
		}

		out = append(out, BalanceSummary{
			LeaveTypeCode:  lt.Code,
			LeaveTypeName:  lt.Name,
			PeriodYear:     year,
			Entitled:       row.Entitled,
			CarriedForward: row.CarriedForward,
			Used:           row.Used,
			Held:           row.Held,
			Adjustment:     row.ManualAdjustment,
			Available:      row.Available(),
			CarryExpiresOn: row.CarryForwardExpiresOn,
		})
	}
	return out, nil
}

// =============================================================================
// HELPERS
// =============================================================================

func (w *Workflow) getRequest(ctx context.Context, id RequestID) (*Request, error) {
	req, err := w.Requests.GetRequest(ctx, id)
	if err != nil {
		return nil, err
	}
	if req == nil {
		return nil, ErrRequestNotFound
	}
	return req, nil
}

func (w *Workflow) record(req *Request, actor string, action DecisionAction, comment string) {
	now := w.now()
	req.Decisions = append(req.Decisions, Decision{Actor: actor, Action: action, Comment: comment, At: now})
	req.UpdatedAt = now
}
