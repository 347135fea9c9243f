package models

import (
	dErrors "doccenter/pkg/domain-errors"
)

// CancellationReason is the coded reason recorded on cancelled and rejected
// loans.
type CancellationReason string

const (
	ReasonMemberRequest   CancellationReason = "member_request"
	ReasonStaffDecision   CancellationReason = "staff_decision"
	ReasonUnavailable     CancellationReason = "unavailable"
	ReasonDuplicate       CancellationReason = "duplicate"
	ReasonPolicyViolation CancellationReason = "policy_violation"
	ReasonOther           CancellationReason = "other"
)

// ParseCancellationReason validates a caller-supplied reason code.
func ParseCancellationReason(s string) (CancellationReason, error) {
	r := CancellationReason(s)
	switch r {
	case ReasonMemberRequest, ReasonStaffDecision, ReasonUnavailable,
		ReasonDuplicate, ReasonPolicyViolation, ReasonOther:
		return r, nil
	case "":
		return "", dErrors.NewField(dErrors.CodeValidation, "reason", "reason is required")
	}
	return "", dErrors.NewField(dErrors.CodeValidation, "reason", "unknown reason: "+s)
}
