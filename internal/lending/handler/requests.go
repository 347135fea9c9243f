package handler

import (
	"strings"
	"time"

	"doccenter/internal/lending/models"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
)

const maxIdempotencyKeyLength = 128

// CreateLoanRequest is the HTTP request body for POST /loans.
type CreateLoanRequest struct {
	MemberID       string  `json:"member_id"`
	TitleID        string  `json:"title_id"`
	VolumeID       *string `json:"volume_id,omitempty"`
	Quantity       int     `json:"quantity"`
	DueDate        string  `json:"due_date"`
	IdempotencyKey string  `json:"idempotency_key,omitempty"`

	memberID id.MemberID
	titleID  id.TitleID
	volumeID *id.VolumeID
	dueDate  time.Time
}

// Validate parses identifiers and the due date. Quantity and date ranges
// are admission rules and are checked by the service.
func (r *CreateLoanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.IdempotencyKey = strings.TrimSpace(r.IdempotencyKey)
	if len(r.IdempotencyKey) > maxIdempotencyKeyLength {
		return dErrors.NewField(dErrors.CodeValidation, "idempotency_key", "idempotency_key must be at most 128 characters")
	}

	var err error
	if r.memberID, err = id.ParseMemberID(strings.TrimSpace(r.MemberID)); err != nil {
		return err
	}
	if r.titleID, err = id.ParseTitleID(strings.TrimSpace(r.TitleID)); err != nil {
		return err
	}
	if r.VolumeID != nil && strings.TrimSpace(*r.VolumeID) != "" {
		volumeID, err := id.ParseVolumeID(strings.TrimSpace(*r.VolumeID))
		if err != nil {
			return err
		}
		r.volumeID = &volumeID
	}

	r.DueDate = strings.TrimSpace(r.DueDate)
	if r.DueDate == "" {
		return dErrors.NewField(dErrors.CodeValidation, "due_date", "due_date is required")
	}
	if r.dueDate, err = id.ParseDate(r.DueDate); err != nil {
		return dErrors.NewField(dErrors.CodeValidation, "due_date", "due_date must be formatted YYYY-MM-DD")
	}
	return nil
}

func (r *CreateLoanRequest) ToDomain(tenantID id.TenantID) models.CreateLoanRequest {
	return models.CreateLoanRequest{
		TenantID: tenantID,
		MemberID: r.memberID,
		TitleID:  r.titleID,
		VolumeID: r.volumeID,
		Quantity: r.Quantity,
		DueDate:  r.dueDate,
	}
}

// TransitionRequest is the HTTP request body for POST /loans/{loanID}/transitions.
type TransitionRequest struct {
	Verb   string `json:"verb"`
	Reason string `json:"reason,omitempty"`
	Notes  string `json:"notes,omitempty"`

	verb   models.Verb
	reason models.CancellationReason
}

func (r *TransitionRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	r.Verb = strings.ToLower(strings.TrimSpace(r.Verb))
	if r.Verb == "" {
		return dErrors.NewField(dErrors.CodeValidation, "verb", "verb is required")
	}
	verb, err := models.ParseVerb(r.Verb)
	if err != nil {
		return err
	}
	r.verb = verb

	r.Notes = strings.TrimSpace(r.Notes)
	if len(r.Notes) > 2000 {
		return dErrors.NewField(dErrors.CodeValidation, "notes", "notes must be at most 2000 characters")
	}
	r.Reason = strings.TrimSpace(r.Reason)
	if r.Reason != "" {
		if r.reason, err = models.ParseCancellationReason(r.Reason); err != nil {
			return err
		}
	}
	return nil
}

func (r *TransitionRequest) ToDomain() models.TransitionRequest {
	return models.TransitionRequest{Verb: r.verb, Reason: r.reason, Notes: r.Notes}
}

// AdjustQuantityRequest is the HTTP request body for POST /loans/{loanID}/quantity.
type AdjustQuantityRequest struct {
	Quantity *int `json:"quantity"`
}

func (r *AdjustQuantityRequest) Validate() error {
	if r == nil || r.Quantity == nil {
		return dErrors.NewField(dErrors.CodeValidation, "quantity", "quantity is required")
	}
	return nil
}

// DeleteLoanRequest is the HTTP request body for DELETE /loans/{loanID}.
type DeleteLoanRequest struct {
	Justification string `json:"justification"`
}

func (r *DeleteLoanRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	req := r.ToDomain()
	return req.Validate()
}

func (r *DeleteLoanRequest) ToDomain() models.DeleteRequest {
	req := models.DeleteRequest{Justification: r.Justification}
	req.Normalize()
	return req
}
