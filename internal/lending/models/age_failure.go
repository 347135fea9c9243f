package models

import (
	"time"

	id "doccenter/pkg/domain"
)

// AgeVerificationFailure records a loan attempt refused on age grounds.
// MemberAge is nil when the member's date of birth is unknown.
type AgeVerificationFailure struct {
	ID          id.AgeFailureID `json:"id"`
	TenantID    id.TenantID     `json:"tenant_id"`
	MemberID    id.MemberID     `json:"member_id"`
	TitleID     id.TitleID      `json:"title_id"`
	AttemptedAt time.Time       `json:"attempted_at"`
	MemberAge   *int            `json:"member_age"`
	RequiredAge int             `json:"required_age"`
}
