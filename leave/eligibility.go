/*
eligibility.go - Eligibility evaluation

PURPOSE:
  Decides whether an employee may use a leave type at all, given their tenure
  and contract type and the resolved policy's eligibility block. Evaluated at
  request-submission time, never cached: a policy change must immediately
  affect new requests.

SEE ALSO:
  - policy.go: EligibilityRules
  - request.go: calls CheckEligibility during submit
*/
package leave

import "time"

// CheckEligibility evaluates the policy's eligibility block for an employee
// as of the given submission date. Returns a NotEligibleError naming the
// denial reason, or nil when allowed.
//
// The leave type's own MinTenureMonths applies alongside the policy's: the
// stricter of the two wins.
func CheckEligibility(emp Employee, lt LeaveType, policy *LeavePolicy, asOf time.Time) error {
	minTenure := policy.Eligibility.MinTenureMonths
	if lt.MinTenureMonths > minTenure {
		minTenure = lt.MinTenureMonths
	}
	if emp.TenureMonths(asOf) < minTenure {
		return &NotEligibleError{
			EmployeeID:    emp.ID,
			LeaveTypeCode: lt.Code,
			Reason:        TenureBelowMinimum,
		}
	}

	if allowed := policy.Eligibility.ContractTypesAllowed; len(allowed) > 0 {
		found := false
		for _, ct := range allowed {
			if ct == emp.ContractType {
				found = true
				break
			}
		}
		if !found {
			return &NotEligibleError{
				EmployeeID:    emp.ID,
				LeaveTypeCode: lt.Code,
				Reason:        ContractTypeNotAllowed,
			}
		}
	}

	return nil
}
