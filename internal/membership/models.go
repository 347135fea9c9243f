// Package membership reads the member facts the lending engine needs:
// identity, age and suspension state.
package membership

import (
	"time"

	id "doccenter/pkg/domain"
)

// Suspension records why and since when a member may not borrow.
type Suspension struct {
	Suspended bool       `json:"suspended"`
	Reason    string     `json:"reason,omitempty"`
	Since     *time.Time `json:"since,omitempty"`
}

// Member is a registered borrower of a center.
type Member struct {
	ID          id.MemberID `json:"id"`
	TenantID    id.TenantID `json:"tenant_id"`
	Name        string      `json:"name"`
	Email       string      `json:"email,omitempty"`
	UserID      *id.UserID  `json:"user_id,omitempty"`
	DateOfBirth *time.Time  `json:"date_of_birth,omitempty"`
	Active      bool        `json:"active"`
	Suspension  Suspension  `json:"suspension"`
}

// CanBorrow reports whether the member is active and not suspended.
func (m *Member) CanBorrow() bool {
	return m.Active && !m.Suspension.Suspended
}

// AgeOn returns the member's age on ref. known is false when no date of
// birth was recorded.
func (m *Member) AgeOn(ref time.Time) (age int, known bool) {
	if m.DateOfBirth == nil {
		return 0, false
	}
	return AgeOn(*m.DateOfBirth, ref), true
}

// IsIdentity reports whether the member is associated with the given user.
func (m *Member) IsIdentity(userID id.UserID) bool {
	return m.UserID != nil && !userID.IsNil() && *m.UserID == userID
}

// AgeOn computes whole years between dob and ref, subtracting one when the
// birthday has not yet come around in ref's year.
func AgeOn(dob, ref time.Time) int {
	age := ref.Year() - dob.Year()
	if ref.Month() < dob.Month() || (ref.Month() == dob.Month() && ref.Day() < dob.Day()) {
		age--
	}
	return age
}
