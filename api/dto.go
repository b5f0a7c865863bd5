/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

DAY AMOUNTS:
  All day quantities cross the wire as strings ("12.5") to keep decimal
  precision; clients must not parse them as floats for arithmetic.

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs. DTOs are
  pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
  - leave/types.go: The domain types these mirror
*/
package api

import (
	"time"

	"github.com/warp/leave-engine/leave"
)

// =============================================================================
// REQUEST/RESPONSE TYPES
// =============================================================================

// SubmitRequestDTO is the body for submitting a leave request.
type SubmitRequestDTO struct {
	EmployeeID    string `json:"employee_id"`
	LeaveTypeCode string `json:"leave_type_code"`
	From          string `json:"from"` // YYYY-MM-DD
	To            string `json:"to"`   // YYYY-MM-DD
	Comment       string `json:"comment,omitempty"`
	AttachmentRef string `json:"attachment_ref,omitempty"`
}

// DecisionRequest is the body for approve/reject/cancel/finalize.
type DecisionRequest struct {
	Comment string `json:"comment,omitempty"`
}

// OverrideRequest is the body for an HR override.
type OverrideRequest struct {
	Comment        string `json:"comment,omitempty"`
	OverrideReason string `json:"override_reason"`
}

// DecisionDTO is one entry of a request's decision history.
type DecisionDTO struct {
	Actor   string `json:"actor"`
	Action  string `json:"action"`
	Comment string `json:"comment,omitempty"`
	At      string `json:"at"`
}

// RequestDTO represents a leave request in API responses.
type RequestDTO struct {
	ID               string        `json:"id"`
	EmployeeID       string        `json:"employee_id"`
	LeaveTypeCode    string        `json:"leave_type_code"`
	From             string        `json:"from"`
	To               string        `json:"to"`
	DurationDays     string        `json:"duration_days"`
	Status           string        `json:"status"`
	IrregularPattern bool          `json:"irregular_pattern"`
	AttachmentRef    string        `json:"attachment_ref,omitempty"`
	PaidDays         string        `json:"paid_days,omitempty"`
	UnpaidDays       string        `json:"unpaid_days,omitempty"`
	Decisions        []DecisionDTO `json:"decisions"`
	CreatedAt        string        `json:"created_at"`
	UpdatedAt        string        `json:"updated_at"`
}

// BalanceSummaryDTO is the per-leave-type balance view.
type BalanceSummaryDTO struct {
	LeaveTypeCode  string `json:"leave_type_code"`
	LeaveTypeName  string `json:"leave_type_name"`
	PeriodYear     int    `json:"period_year"`
	Entitled       string `json:"entitled"`
	CarriedForward string `json:"carried_forward"`
	Used           string `json:"used"`
	Held           string `json:"held"`
	Adjustment     string `json:"adjustment"`
	Available      string `json:"available"`
	CarryExpiresOn string `json:"carry_expires_on,omitempty"`
}

// AdjustmentRequest is the body for a manual balance adjustment.
type AdjustmentRequest struct {
	EmployeeID    string `json:"employee_id"`
	LeaveTypeCode string `json:"leave_type_code"`
	PeriodYear    int    `json:"period_year"`
	Type          string `json:"type"` // "add" or "deduct"
	Amount        string `json:"amount"`
	Reason        string `json:"reason"`
}

// AuditEntryDTO is one audit record in API responses.
type AuditEntryDTO struct {
	ID            string `json:"id"`
	EmployeeID    string `json:"employee_id"`
	LeaveTypeCode string `json:"leave_type_code"`
	PeriodYear    int    `json:"period_year"`
	Action        string `json:"action"`
	Amount        string `json:"amount"`
	Reason        string `json:"reason,omitempty"`
	ActorID       string `json:"actor_id"`
	RequestID     string `json:"request_id,omitempty"`
	At            string `json:"at"`
}

// LeaveTypeDTO represents a leave type.
type LeaveTypeDTO struct {
	Code               string `json:"code"`
	Name               string `json:"name"`
	Paid               bool   `json:"paid"`
	Deductible         bool   `json:"deductible"`
	RequiresAttachment bool   `json:"requires_attachment"`
	AttachmentType     string `json:"attachment_type,omitempty"`
	MinTenureMonths    int    `json:"min_tenure_months"`
	MaxDurationDays    int    `json:"max_duration_days"`
}

// PolicyDTO represents a policy version.
type PolicyDTO struct {
	ID                 string   `json:"id"`
	LeaveTypeCode      string   `json:"leave_type_code"`
	EffectiveDate      string   `json:"effective_date"`
	AccrualMethod      string   `json:"accrual_method"`
	YearlyRate         string   `json:"yearly_rate,omitempty"`
	MonthlyRate        string   `json:"monthly_rate,omitempty"`
	Rounding           string   `json:"rounding,omitempty"`
	CarryAllowed       bool     `json:"carry_allowed"`
	CarryMaxDays       string   `json:"carry_max_days,omitempty"`
	CarryExpiryMonths  int      `json:"carry_expiry_months,omitempty"`
	MinNoticeDays      int      `json:"min_notice_days,omitempty"`
	MaxConsecutiveDays int      `json:"max_consecutive_days,omitempty"`
	MinTenureMonths    int      `json:"min_tenure_months,omitempty"`
	ContractTypes      []string `json:"contract_types,omitempty"`
}

// EmployeeDTO represents an employee record.
type EmployeeDTO struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	HireDate     string `json:"hire_date"`
	ContractType string `json:"contract_type"`
}

// HolidayDTO represents a holiday.
type HolidayDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Name      string `json:"name"`
	Recurring bool   `json:"recurring"`
}

// SweepResultDTO summarizes a manual sweep run.
type SweepResultDTO struct {
	Employees   int      `json:"employees"`
	CarriedOver string   `json:"carried_over"`
	Expired     string   `json:"expired"`
	Errors      []string `json:"errors,omitempty"`
}

// ErrorResponse is the uniform error body.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// =============================================================================
// CONVERTERS
// =============================================================================

const dateLayout = "2006-01-02"

func toRequestDTO(req *leave.Request) RequestDTO {
	dto := RequestDTO{
		ID:               string(req.ID),
		EmployeeID:       string(req.EmployeeID),
		LeaveTypeCode:    string(req.LeaveTypeCode),
		From:             req.From.Format(dateLayout),
		To:               req.To.Format(dateLayout),
		DurationDays:     req.DurationDays.String(),
		Status:           string(req.Status),
		IrregularPattern: req.IrregularPattern,
		AttachmentRef:    req.AttachmentRef,
		CreatedAt:        req.CreatedAt.Format(time.RFC3339),
		UpdatedAt:        req.UpdatedAt.Format(time.RFC3339),
	}
	if req.Status == leave.StatusFinalized {
		dto.PaidDays = req.PaidDays.String()
		dto.UnpaidDays = req.UnpaidDays.String()
	}
	dto.Decisions = make([]DecisionDTO, 0, len(req.Decisions))
	for _, d := range req.Decisions {
		dto.Decisions = append(dto.Decisions, DecisionDTO{
			Actor:   d.Actor,
			Action:  string(d.Action),
			Comment: d.Comment,
			At:      d.At.Format(time.RFC3339),
		})
	}
	return dto
}

func toBalanceDTO(b leave.BalanceSummary) BalanceSummaryDTO {
	dto := BalanceSummaryDTO{
		LeaveTypeCode:  string(b.LeaveTypeCode),
		LeaveTypeName:  b.LeaveTypeName,
		PeriodYear:     b.PeriodYear,
		Entitled:       b.Entitled.String(),
		CarriedForward: b.CarriedForward.String(),
		Used:           b.Used.String(),
		Held:           b.Held.String(),
		Adjustment:     b.Adjustment.String(),
		Available:      b.Available.String(),
	}
	if !b.CarryExpiresOn.IsZero() {
		dto.CarryExpiresOn = b.CarryExpiresOn.Format(dateLayout)
	}
	return dto
}

func toAuditDTO(e leave.AuditEntry) AuditEntryDTO {
	return AuditEntryDTO{
		ID:            e.ID,
		EmployeeID:    string(e.EmployeeID),
		LeaveTypeCode: string(e.LeaveTypeCode),
		PeriodYear:    e.PeriodYear,
		Action:        string(e.Action),
		Amount:        e.Amount.String(),
		Reason:        e.Reason,
		ActorID:       e.ActorID,
		RequestID:     string(e.RequestID),
		At:            e.At.Format(time.RFC3339),
	}
}

func toLeaveTypeDTO(lt leave.LeaveType) LeaveTypeDTO {
	return LeaveTypeDTO{
		Code:               string(lt.Code),
		Name:               lt.Name,
		Paid:               lt.Paid,
		Deductible:         lt.Deductible,
		RequiresAttachment: lt.RequiresAttachment,
		AttachmentType:     lt.AttachmentType,
		MinTenureMonths:    lt.MinTenureMonths,
		MaxDurationDays:    lt.MaxDurationDays,
	}
}

func toPolicyDTO(p *leave.LeavePolicy) PolicyDTO {
	dto := PolicyDTO{
		ID:                 p.ID,
		LeaveTypeCode:      string(p.LeaveTypeCode),
		EffectiveDate:      p.EffectiveDate.Format(dateLayout),
		AccrualMethod:      string(p.AccrualMethod),
		Rounding:           string(p.Rounding),
		CarryAllowed:       p.CarryForward.Allowed,
		CarryExpiryMonths:  p.CarryForward.ExpiryMonths,
		MinNoticeDays:      p.MinNoticeDays,
		MaxConsecutiveDays: p.MaxConsecutiveDays,
		MinTenureMonths:    p.Eligibility.MinTenureMonths,
	}
	if !p.YearlyRate.IsZero() {
		dto.YearlyRate = p.YearlyRate.String()
	}
	if !p.MonthlyRate.IsZero() {
		dto.MonthlyRate = p.MonthlyRate.String()
	}
	if p.CarryForward.Allowed {
		dto.CarryMaxDays = p.CarryForward.MaxDays.String()
	}
	for _, ct := range p.Eligibility.ContractTypesAllowed {
		dto.ContractTypes = append(dto.ContractTypes, string(ct))
	}
	return dto
}

func toEmployeeDTO(e leave.Employee) EmployeeDTO {
	return EmployeeDTO{
		ID:           string(e.ID),
		Name:         e.Name,
		HireDate:     e.HireDate.Format(dateLayout),
		ContractType: string(e.ContractType),
	}
}

func toHolidayDTO(h leave.Holiday) HolidayDTO {
	return HolidayDTO{
		ID:        h.ID,
		Date:      h.Date.Format(dateLayout),
		Name:      h.Name,
		Recurring: h.Recurring,
	}
}
