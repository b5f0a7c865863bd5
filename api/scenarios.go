/*
scenarios.go - Demo scenario loaders for testing and demonstrations

PURPOSE:
  Provides pre-built scenarios that populate the store with realistic data
  for testing and demos. Each scenario creates employees, leave types,
  policies, and requests that demonstrate specific engine features.

AVAILABLE SCENARIOS:
  new-employee:      Monthly accrual for a recent hire, one pending request
  mid-year-hire:     Prorated yearly grant for an April hire
  year-end-rollover: Carry-forward with a two-month expiry window
  sick-attachment:   Sick leave gated on a medical certificate
  override-audit:    Manager decisions reversed by HR, rich audit trail

HOW SCENARIOS WORK:
  1. Reset the store (clear all data)
  2. Create leave types and policies
  3. Create employees
  4. Drive real workflow operations (submit/approve/...) so the ledger and
     audit log end up exactly as production traffic would leave them

USAGE VIA API:
  POST /api/scenarios/load
  {"scenario_id": "year-end-rollover"}

NOTE:
  Scenarios reset the store. The loader is only wired when the server runs
  with -demo; without it the endpoint refuses.

SEE ALSO:
  - handlers.go: the Resetter hook
  - cmd/server/main.go: the -demo flag
*/
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/leave-engine/auth"
	"github.com/warp/leave-engine/leave"
)

// ScenarioDTO describes one loadable demo scenario.
type ScenarioDTO struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// =============================================================================
// SCENARIO DEFINITIONS
// =============================================================================

var scenarios = []ScenarioDTO{
	{
		ID:          "new-employee",
		Name:        "New Employee",
		Description: "Monthly accrual for a recent hire with one pending request",
	},
	{
		ID:          "mid-year-hire",
		Name:        "Mid-Year Hire",
		Description: "Prorated yearly grant for an employee hired in April",
	},
	{
		ID:          "year-end-rollover",
		Name:        "Year-End Rollover",
		Description: "Unused days carried into the new year with a two-month expiry",
	},
	{
		ID:          "sick-attachment",
		Name:        "Sick Leave Attachment",
		Description: "Sick leave requiring a medical certificate at submission",
	},
	{
		ID:          "override-audit",
		Name:        "Override & Audit",
		Description: "HR overrides of manager decisions and the audit trail they leave",
	},
}

// ListScenarios returns available scenarios.
func (h *Handler) ListScenarios(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, scenarios)
}

// GetCurrentScenario returns the currently loaded scenario, if any.
func (h *Handler) GetCurrentScenario(w http.ResponseWriter, r *http.Request) {
	if h.currentScenario == "" {
		writeJSON(w, http.StatusOK, nil)
		return
	}
	for _, s := range scenarios {
		if s.ID == h.currentScenario {
			writeJSON(w, http.StatusOK, s)
			return
		}
	}
	writeJSON(w, http.StatusOK, ScenarioDTO{ID: h.currentScenario, Name: h.currentScenario})
}

// LoadScenario resets the store and loads a predefined scenario.
func (h *Handler) LoadScenario(w http.ResponseWriter, r *http.Request) {
	if h.Reset == nil {
		writeError(w, http.StatusForbidden, "Scenario loading is disabled; run the server with -demo", nil)
		return
	}

	var req struct {
		ScenarioID string `json:"scenario_id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	ctx := r.Context()
	if err := h.Reset.Reset(ctx); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to reset store", err)
		return
	}

	var err error
	switch req.ScenarioID {
	case "new-employee":
		err = h.loadNewEmployeeScenario(ctx)
	case "mid-year-hire":
		err = h.loadMidYearHireScenario(ctx)
	case "year-end-rollover":
		err = h.loadYearEndRolloverScenario(ctx)
	case "sick-attachment":
		err = h.loadSickAttachmentScenario(ctx)
	case "override-audit":
		err = h.loadOverrideAuditScenario(ctx)
	default:
		writeError(w, http.StatusBadRequest, fmt.Sprintf("Unknown scenario: %s", req.ScenarioID), nil)
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load scenario", err)
		return
	}

	h.currentScenario = req.ScenarioID
	writeJSON(w, http.StatusOK, map[string]string{
		"status":   "loaded",
		"scenario": req.ScenarioID,
	})
}

// =============================================================================
// SHARED BUILDING BLOCKS
// =============================================================================

func demoHR() auth.Actor {
	return auth.Actor{ID: "hr-demo", Perms: auth.FromRoles([]string{auth.RoleHR})}
}

func demoEmployee(id string) auth.Actor {
	return auth.Actor{ID: id, Perms: auth.FromRoles([]string{auth.RoleEmployee})}
}

func demoManager(id string) auth.Actor {
	return auth.Actor{ID: id, Perms: auth.FromRoles([]string{auth.RoleManager})}
}

func (h *Handler) seedAnnualLeave(ctx context.Context, p *leave.LeavePolicy) error {
	if err := h.Policies.SaveLeaveType(ctx, leave.LeaveType{
		Code:      "annual",
		Name:      "Annual Leave",
		Paid:      true,
		CreatedAt: time.Now(),
	}); err != nil {
		return err
	}
	return h.Policies.SavePolicy(ctx, p)
}

// nextWeekday returns the first weekday at least daysAhead days from now.
func nextWeekday(daysAhead int) time.Time {
	d := leave.Day(time.Now()).AddDate(0, 0, daysAhead)
	for leave.IsWeekend(d) {
		d = d.AddDate(0, 0, 1)
	}
	return d
}

// =============================================================================
// SCENARIO LOADERS
// =============================================================================

// loadNewEmployeeScenario: one employee hired three months ago on a monthly
// 1.75-day accrual, with a pending one-week request.
func (h *Handler) loadNewEmployeeScenario(ctx context.Context) error {
	policy := &leave.LeavePolicy{
		ID:            "pol-annual-monthly",
		LeaveTypeCode: "annual",
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		AccrualMethod: leave.AccrualMonthly,
		MonthlyRate:   decimal.RequireFromString("1.75"),
		Rounding:      leave.RoundNearestHalf,
		CarryForward:  leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5), ExpiryMonths: 3},
		CreatedAt:     time.Now(),
	}
	if err := h.seedAnnualLeave(ctx, policy); err != nil {
		return err
	}

	if err := h.Employees.SaveEmployee(ctx, leave.Employee{
		ID:           "emp-ada",
		Name:         "Ada Brook",
		HireDate:     leave.Day(time.Now()).AddDate(0, -3, 0),
		ContractType: leave.ContractPermanent,
	}); err != nil {
		return err
	}

	// Keep the request short: early in the year the monthly accrual has only
	// deposited a couple of days.
	from := nextWeekday(14)
	_, err := h.Workflow.Submit(ctx, demoEmployee("emp-ada"), leave.SubmitInput{
		EmployeeID:    "emp-ada",
		LeaveTypeCode: "annual",
		From:          from,
		To:            from.AddDate(0, 0, 1),
		Comment:       "long weekend",
	})
	return err
}

// loadMidYearHireScenario: an April 1 hire on a 24-day yearly policy, showing
// the 18-day prorated grant next to a January hire's full 24.
func (h *Handler) loadMidYearHireScenario(ctx context.Context) error {
	year := time.Now().Year()
	policy := &leave.LeavePolicy{
		ID:            "pol-annual-yearly",
		LeaveTypeCode: "annual",
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		AccrualMethod: leave.AccrualYearly,
		YearlyRate:    decimal.NewFromInt(24),
		CreatedAt:     time.Now(),
	}
	if err := h.seedAnnualLeave(ctx, policy); err != nil {
		return err
	}

	employees := []leave.Employee{
		{ID: "emp-jan", Name: "Janet Orr", HireDate: time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC), ContractType: leave.ContractPermanent},
		{ID: "emp-apr", Name: "April Lund", HireDate: time.Date(year, time.April, 1, 0, 0, 0, 0, time.UTC), ContractType: leave.ContractPermanent},
	}
	for _, emp := range employees {
		if err := h.Employees.SaveEmployee(ctx, emp); err != nil {
			return err
		}
		// Bring both rows current so the balances view shows the contrast.
		if _, err := h.Workflow.Balances(ctx, demoHR(), emp.ID, time.Now()); err != nil {
			return err
		}
	}
	return nil
}

// loadYearEndRolloverScenario: last year ended with unused days; the sweep
// carries them (capped, expiring) and deposits the new year's grant.
func (h *Handler) loadYearEndRolloverScenario(ctx context.Context) error {
	year := time.Now().Year()
	policy := &leave.LeavePolicy{
		ID:            "pol-annual-carry",
		LeaveTypeCode: "annual",
		EffectiveDate: time.Date(year-2, time.January, 1, 0, 0, 0, 0, time.UTC),
		AccrualMethod: leave.AccrualYearly,
		YearlyRate:    decimal.NewFromInt(24),
		CarryForward:  leave.CarryForwardRules{Allowed: true, MaxDays: decimal.NewFromInt(5), ExpiryMonths: 2},
		CreatedAt:     time.Now(),
	}
	if err := h.seedAnnualLeave(ctx, policy); err != nil {
		return err
	}

	if err := h.Employees.SaveEmployee(ctx, leave.Employee{
		ID:           "emp-rollo",
		Name:         "Rollo Verne",
		HireDate:     time.Date(year-2, time.March, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractPermanent,
	}); err != nil {
		return err
	}

	// Last year: 24 entitled, 16 used, 8 left on the table.
	if _, err := h.Ledger.Accrue(ctx, "emp-rollo", "annual", year-1, decimal.NewFromInt(24), leave.SystemActor); err != nil {
		return err
	}
	hold, err := h.Ledger.Reserve(ctx, "emp-rollo", "annual", year-1, decimal.NewFromInt(16), "req-history", "emp-rollo")
	if err != nil {
		return err
	}
	if err := h.Ledger.Commit(ctx, hold, "hr-demo"); err != nil {
		return err
	}

	// The sweep rolls 5 of the 8 into the current year and accrues the grant.
	_, err = h.Sweeper.Run(ctx)
	return err
}

// loadSickAttachmentScenario: sick leave gated on a certificate, one request
// already approved.
func (h *Handler) loadSickAttachmentScenario(ctx context.Context) error {
	if err := h.Policies.SaveLeaveType(ctx, leave.LeaveType{
		Code:               "sick",
		Name:               "Sick Leave",
		Paid:               true,
		RequiresAttachment: true,
		AttachmentType:     "medical_certificate",
		CreatedAt:          time.Now(),
	}); err != nil {
		return err
	}
	if err := h.Policies.SavePolicy(ctx, &leave.LeavePolicy{
		ID:            "pol-sick",
		LeaveTypeCode: "sick",
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		AccrualMethod: leave.AccrualYearly,
		YearlyRate:    decimal.NewFromInt(10),
		CreatedAt:     time.Now(),
	}); err != nil {
		return err
	}

	if err := h.Employees.SaveEmployee(ctx, leave.Employee{
		ID:           "emp-sal",
		Name:         "Sal Moro",
		HireDate:     time.Date(2023, time.June, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractPermanent,
	}); err != nil {
		return err
	}

	from := nextWeekday(1)
	req, err := h.Workflow.Submit(ctx, demoEmployee("emp-sal"), leave.SubmitInput{
		EmployeeID:    "emp-sal",
		LeaveTypeCode: "sick",
		From:          from,
		To:            from.AddDate(0, 0, 2),
		Comment:       "flu",
		AttachmentRef: "doc://certificates/demo-001",
	})
	if err != nil {
		return err
	}
	_, err = h.Workflow.ManagerApprove(ctx, demoManager("mgr-demo"), req.ID, "get well soon")
	return err
}

// loadOverrideAuditScenario: a rejection overturned by HR and a manual
// adjustment, so the audit endpoint has distinct override records to show.
func (h *Handler) loadOverrideAuditScenario(ctx context.Context) error {
	policy := &leave.LeavePolicy{
		ID:            "pol-annual-audit",
		LeaveTypeCode: "annual",
		EffectiveDate: time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
		AccrualMethod: leave.AccrualYearly,
		YearlyRate:    decimal.NewFromInt(24),
		CreatedAt:     time.Now(),
	}
	if err := h.seedAnnualLeave(ctx, policy); err != nil {
		return err
	}
	if err := h.Employees.SaveEmployee(ctx, leave.Employee{
		ID:           "emp-ovr",
		Name:         "Ove Rydell",
		HireDate:     time.Date(2022, time.September, 1, 0, 0, 0, 0, time.UTC),
		ContractType: leave.ContractPermanent,
	}); err != nil {
		return err
	}

	from := nextWeekday(21)
	req, err := h.Workflow.Submit(ctx, demoEmployee("emp-ovr"), leave.SubmitInput{
		EmployeeID:    "emp-ovr",
		LeaveTypeCode: "annual",
		From:          from,
		To:            from.AddDate(0, 0, 4),
		Comment:       "conference week",
	})
	if err != nil {
		return err
	}
	if _, err := h.Workflow.ManagerReject(ctx, demoManager("mgr-demo"), req.ID,
		"clashes with the quarterly release"); err != nil {
		return err
	}
	if _, err := h.Workflow.HROverride(ctx, demoHR(), req.ID,
		"approved on appeal", "release was rescheduled, no clash remains"); err != nil {
		return err
	}

	_, err = h.Ledger.Adjust(ctx, "emp-ovr", "annual", time.Now().Year(),
		decimal.NewFromInt(2), leave.AdjustAdd,
		"compensation for weekend incident response", "hr-demo")
	return err
}
