// Package domain holds the typed identifiers shared across modules.
//
// Each identifier is a distinct named type over uuid.UUID so a LoanID can
// never be passed where a MemberID is expected. Construct them via the Parse
// functions at trust boundaries; the zero value is the nil UUID.
package domain

import (
	"github.com/google/uuid"

	dErrors "doccenter/pkg/domain-errors"
)

type (
	TenantID       uuid.UUID
	UserID         uuid.UUID
	TitleID        uuid.UUID
	VolumeID       uuid.UUID
	MemberID       uuid.UUID
	LoanID         uuid.UUID
	NotificationID uuid.UUID
	AuditEntryID   uuid.UUID
	AgeFailureID   uuid.UUID
)

func parseUUID(s, label string) (uuid.UUID, error) {
	if s == "" {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" is required")
	}
	u, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, "invalid "+label)
	}
	if u == uuid.Nil {
		return uuid.Nil, dErrors.New(dErrors.CodeInvalidInput, label+" cannot be nil")
	}
	return u, nil
}

func ParseTenantID(s string) (TenantID, error) {
	u, err := parseUUID(s, "tenant id")
	return TenantID(u), err
}

func ParseUserID(s string) (UserID, error) {
	u, err := parseUUID(s, "user id")
	return UserID(u), err
}

func ParseTitleID(s string) (TitleID, error) {
	u, err := parseUUID(s, "title id")
	return TitleID(u), err
}

func ParseVolumeID(s string) (VolumeID, error) {
	u, err := parseUUID(s, "volume id")
	return VolumeID(u), err
}

func ParseMemberID(s string) (MemberID, error) {
	u, err := parseUUID(s, "member id")
	return MemberID(u), err
}

func ParseLoanID(s string) (LoanID, error) {
	u, err := parseUUID(s, "loan id")
	return LoanID(u), err
}

func ParseNotificationID(s string) (NotificationID, error) {
	u, err := parseUUID(s, "notification id")
	return NotificationID(u), err
}

func (id TenantID) String() string       { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id TitleID) String() string        { return uuid.UUID(id).String() }
func (id VolumeID) String() string       { return uuid.UUID(id).String() }
func (id MemberID) String() string       { return uuid.UUID(id).String() }
func (id LoanID) String() string         { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id AuditEntryID) String() string   { return uuid.UUID(id).String() }
func (id AgeFailureID) String() string   { return uuid.UUID(id).String() }

func (id TenantID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }
func (id VolumeID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id LoanID) IsNil() bool   { return uuid.UUID(id) == uuid.Nil }

// Identifiers travel as canonical UUID strings in JSON.
func (id TenantID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id UserID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id TitleID) MarshalText() ([]byte, error)        { return uuid.UUID(id).MarshalText() }
func (id VolumeID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id MemberID) MarshalText() ([]byte, error)       { return uuid.UUID(id).MarshalText() }
func (id LoanID) MarshalText() ([]byte, error)         { return uuid.UUID(id).MarshalText() }
func (id NotificationID) MarshalText() ([]byte, error) { return uuid.UUID(id).MarshalText() }
func (id AuditEntryID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }
func (id AgeFailureID) MarshalText() ([]byte, error)   { return uuid.UUID(id).MarshalText() }

func (id *TenantID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *UserID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *TitleID) UnmarshalText(b []byte) error        { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *VolumeID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *MemberID) UnmarshalText(b []byte) error       { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *LoanID) UnmarshalText(b []byte) error         { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *NotificationID) UnmarshalText(b []byte) error { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AuditEntryID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
func (id *AgeFailureID) UnmarshalText(b []byte) error   { return (*uuid.UUID)(id).UnmarshalText(b) }
