/*
policy.go - Leave policies, rounding rules, and policy resolution

PURPOSE:
  A LeavePolicy is the contract between the organization and employees for
  one leave type: how entitlement accrues, how fractions round, what carries
  forward, who may use it, and who approves it. Policies are versioned by
  effective date and never hard-deleted while referenced by history.

POLICY RESOLUTION:
  Multiple policies may exist per leave type. The authoritative one for an
  evaluation date is the policy with the latest EffectiveDate <= that date.
  When two share an EffectiveDate the highest CreatedSeq (creation order)
  wins; the observed behavior left this ambiguous, so we fix a deterministic
  rule here.

ROUNDING:
  Rounding rules operate on the computed fractional day value:
    NONE          leave as-is
    ROUND_UP      to next whole day (ceil)
    ROUND_DOWN    to previous whole day (floor)
    ALWAYS_UP     alias of ROUND_UP kept for policy data compatibility
    ALWAYS_DOWN   alias of ROUND_DOWN
    NEAREST_HALF  to the nearest 0.5
    ARITHMETIC    to nearest whole, half-up

SEE ALSO:
  - accrual.go: applies rounding to accrual results
  - eligibility.go: evaluates the policy's eligibility block
*/
package leave

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// ACCRUAL METHOD
// =============================================================================

type AccrualMethod string

const (
	AccrualYearly  AccrualMethod = "yearly"
	AccrualMonthly AccrualMethod = "monthly"
	AccrualPerTerm AccrualMethod = "per-term"
)

// =============================================================================
// ROUNDING RULES
// =============================================================================

type RoundingRule string

const (
	RoundNone        RoundingRule = "NONE"
	RoundUp          RoundingRule = "ROUND_UP"
	RoundDown        RoundingRule = "ROUND_DOWN"
	RoundNearestHalf RoundingRule = "NEAREST_HALF"
	RoundArithmetic  RoundingRule = "ARITHMETIC"
	RoundAlwaysUp    RoundingRule = "ALWAYS_UP"
	RoundAlwaysDown  RoundingRule = "ALWAYS_DOWN"
)

// Apply rounds a fractional day value per the rule.
func (r RoundingRule) Apply(v decimal.Decimal) decimal.Decimal {
	switch r {
	case RoundUp, RoundAlwaysUp:
		return v.Ceil()
	case RoundDown, RoundAlwaysDown:
		return v.Floor()
	case RoundNearestHalf:
		// Round v*2 half-up, then halve: 1.24 -> 1.0, 1.25 -> 1.5, 1.74 -> 1.5
		return v.Mul(two).Round(0).Div(two)
	case RoundArithmetic:
		return v.Round(0)
	default: // RoundNone or unset
		return v
	}
}

var two = decimal.NewFromInt(2)

// =============================================================================
// LEAVE POLICY
// =============================================================================

// ApprovalStep is one level of a policy's ordered approval chain.
type ApprovalStep struct {
	Role  string
	Level int
}

// EligibilityRules gate whether an employee may use the leave type at all.
type EligibilityRules struct {
	MinTenureMonths      int
	ContractTypesAllowed []ContractType // empty = all contract types
}

// CarryForwardRules govern year-end rollover of unused days.
type CarryForwardRules struct {
	Allowed      bool
	MaxDays      decimal.Decimal
	ExpiryMonths int // 0 = carried days never expire
}

// LeavePolicy is the versioned ruleset for one leave type.
type LeavePolicy struct {
	ID            string
	LeaveTypeCode LeaveTypeCode
	EffectiveDate time.Time

	// CreatedSeq is the monotonically increasing creation order, used as the
	// tie-break when two policies share an effective date.
	CreatedSeq int64

	AccrualMethod AccrualMethod
	YearlyRate    decimal.Decimal // used by yearly and per-term
	MonthlyRate   decimal.Decimal // used by monthly

	CarryForward CarryForwardRules
	Rounding     RoundingRule

	MinNoticeDays      int
	MaxConsecutiveDays int

	Eligibility   EligibilityRules
	ApprovalChain []ApprovalStep

	CreatedAt time.Time
}

// AnnualRate returns the nominal full-year entitlement for the policy.
func (p *LeavePolicy) AnnualRate() decimal.Decimal {
	if p.AccrualMethod == AccrualMonthly {
		return p.MonthlyRate.Mul(decimal.NewFromInt(12))
	}
	return p.YearlyRate
}

// =============================================================================
// POLICY RESOLVER
// =============================================================================

// ResolvePolicy picks the authoritative policy for a leave type at an
// evaluation date: latest EffectiveDate <= date, tie-break highest CreatedSeq.
// Returns ErrNoApplicablePolicy when none qualifies.
func ResolvePolicy(policies []*LeavePolicy, code LeaveTypeCode, at time.Time) (*LeavePolicy, error) {
	var best *LeavePolicy
	for _, p := range policies {
		if p.LeaveTypeCode != code || p.EffectiveDate.After(at) {
			continue
		}
		if best == nil ||
			p.EffectiveDate.After(best.EffectiveDate) ||
			(p.EffectiveDate.Equal(best.EffectiveDate) && p.CreatedSeq > best.CreatedSeq) {
			best = p
		}
	}
	if best == nil {
		return nil, ErrNoApplicablePolicy
	}
	return best, nil
}
