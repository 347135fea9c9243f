package models

import (
	"strings"
	"time"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
)

// CreateLoanRequest describes a loan request before admission.
type CreateLoanRequest struct {
	TenantID id.TenantID
	MemberID id.MemberID
	TitleID  id.TitleID
	VolumeID *id.VolumeID
	Quantity int
	DueDate  time.Time
}

// TransitionRequest is a caller-driven state change.
type TransitionRequest struct {
	Verb   Verb
	Reason CancellationReason
	Notes  string
}

// DeleteRequest removes a loan. Justification is mandatory.
type DeleteRequest struct {
	Justification string
}

// Normalize trims free-text fields.
func (r *DeleteRequest) Normalize() {
	r.Justification = strings.TrimSpace(r.Justification)
}

func (r *DeleteRequest) Validate() error {
	if r.Justification == "" {
		return dErrors.NewField(dErrors.CodeValidation, "justification", "une justification est requise pour supprimer un prêt")
	}
	return nil
}
