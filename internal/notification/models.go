// Package notification turns loan lifecycle events into per-recipient
// notifications and best-effort emails.
package notification

import (
	"time"

	"doccenter/internal/lending/models"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
)

// RecipientKind tags the Recipient variant.
type RecipientKind string

const (
	RecipientCenter   RecipientKind = "center"
	RecipientIdentity RecipientKind = "identity"
)

// Recipient is either the whole center (every staff account of the tenant)
// or a single user identity.
type Recipient struct {
	Kind   RecipientKind `json:"kind"`
	UserID id.UserID     `json:"user_id,omitzero"`
}

// CenterRecipient addresses the center's staff.
func CenterRecipient() Recipient {
	return Recipient{Kind: RecipientCenter}
}

// IdentityRecipient addresses one user.
func IdentityRecipient(userID id.UserID) Recipient {
	return Recipient{Kind: RecipientIdentity, UserID: userID}
}

// Key is the stable string form used in storage and dedup keys.
func (r Recipient) Key() string {
	if r.Kind == RecipientCenter {
		return string(RecipientCenter)
	}
	return "user:" + r.UserID.String()
}

// ParseRecipientKey is the inverse of Key.
func ParseRecipientKey(key string) (Recipient, error) {
	if key == string(RecipientCenter) {
		return CenterRecipient(), nil
	}
	const prefix = "user:"
	if len(key) > len(prefix) && key[:len(prefix)] == prefix {
		userID, err := id.ParseUserID(key[len(prefix):])
		if err != nil {
			return Recipient{}, err
		}
		return IdentityRecipient(userID), nil
	}
	return Recipient{}, dErrors.New(dErrors.CodeInvalidInput, "invalid recipient key")
}

// Kind is the display category of a notification.
type Kind string

const (
	KindSystem  Kind = "system"
	KindAlert   Kind = "alert"
	KindInfo    Kind = "info"
	KindMessage Kind = "message"
)

// Notification is retained after creation; only Read ever changes.
type Notification struct {
	ID        id.NotificationID `json:"id"`
	TenantID  id.TenantID       `json:"tenant_id"`
	Recipient Recipient         `json:"recipient"`
	LoanID    *id.LoanID        `json:"loan_id,omitempty"`
	Event     models.EventKind  `json:"event"`
	Message   string            `json:"message"`
	Kind      Kind              `json:"kind"`
	Read      bool              `json:"read"`
	CreatedAt time.Time         `json:"created_at"`
	DedupKey  string            `json:"-"`
}

// Outgoing pairs a stored notification with the address its email goes
// to. Email is empty when the recipient has no known address.
type Outgoing struct {
	Notification *Notification
	Email        string
}
