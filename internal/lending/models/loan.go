// Package models holds the loan aggregate, its state machine and the
// lifecycle events it emits.
package models

import (
	"strings"
	"time"

	"doccenter/internal/catalog"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
)

// Loan is the aggregate root for a lending request.
//
// Invariants:
//   - Quantity is at least 1
//   - DueDate is on or after LoanDate
//   - ReturnDate is set iff Status is returned or lost, and never precedes LoanDate
//   - Cancellation fields are set iff Status is cancelled or rejected
//   - VolumeID is set iff the title has volumes (enforced at admission)
//   - Held loans reserve exactly Quantity units on the counter Ref points at
//
// Loans only change state through Transition; inventory effects are applied
// by the lending service, never by the entity.
type Loan struct {
	ID                 id.LoanID          `json:"id"`
	TenantID           id.TenantID        `json:"tenant_id"`
	TitleID            id.TitleID         `json:"title_id"`
	VolumeID           *id.VolumeID       `json:"volume_id,omitempty"`
	MemberID           id.MemberID        `json:"member_id"`
	Quantity           int                `json:"quantity"`
	LoanDate           time.Time          `json:"loan_date"`
	DueDate            time.Time          `json:"due_date"`
	ReturnDate         *time.Time         `json:"return_date,omitempty"`
	Status             Status             `json:"status"`
	CancellationReason CancellationReason `json:"cancellation_reason,omitempty"`
	CancellationNotes  string             `json:"cancellation_notes,omitempty"`
	CancellationDate   *time.Time         `json:"cancellation_date,omitempty"`
	AgeVerified        bool               `json:"age_verified"`
	MemberAge          *int               `json:"member_age,omitempty"`
	ProcessedBy        string             `json:"processed_by"`
	CreatedAt          time.Time          `json:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at"`
}

// NewLoanParams carries the admitted facts a loan is built from.
type NewLoanParams struct {
	TenantID    id.TenantID
	TitleID     id.TitleID
	VolumeID    *id.VolumeID
	MemberID    id.MemberID
	Quantity    int
	DueDate     time.Time
	MemberAge   *int
	AgeVerified bool
	ProcessedBy string
}

// NewLoan creates a pending loan dated today.
func NewLoan(loanID id.LoanID, p NewLoanParams, now time.Time) (*Loan, error) {
	today := id.DateOf(now)
	due := id.DateOf(p.DueDate)
	if p.Quantity < 1 {
		return nil, dErrors.NewField(dErrors.CodeBadQuantity, "quantity", "quantity must be at least 1")
	}
	if due.Before(today) {
		return nil, dErrors.NewField(dErrors.CodeDueDateInvalid, "due_date", "due date precedes loan date")
	}
	return &Loan{
		ID:          loanID,
		TenantID:    p.TenantID,
		TitleID:     p.TitleID,
		VolumeID:    p.VolumeID,
		MemberID:    p.MemberID,
		Quantity:    p.Quantity,
		LoanDate:    today,
		DueDate:     due,
		Status:      StatusPending,
		AgeVerified: p.AgeVerified,
		MemberAge:   p.MemberAge,
		ProcessedBy: p.ProcessedBy,
		CreatedAt:   now,
		UpdatedAt:   now,
	}, nil
}

// Ref is the inventory counter this loan holds.
func (l *Loan) Ref() catalog.Ref {
	return catalog.Ref{TitleID: l.TitleID, VolumeID: l.VolumeID}
}

// IsHeld reports whether the loan currently reserves inventory.
func (l *Loan) IsHeld() bool {
	return l.Status.IsHeld()
}

// IsOverdue is the derived overdue flag: either already marked overdue, or
// still out (approved or borrowed) past its due date.
func (l *Loan) IsOverdue(today time.Time) bool {
	if l.ReturnDate != nil {
		return false
	}
	switch l.Status {
	case StatusOverdue:
		return true
	case StatusApproved, StatusBorrowed:
		return id.DateOf(today).After(l.DueDate)
	}
	return false
}

// DaysUntilDue is negative once the due date has passed.
func (l *Loan) DaysUntilDue(today time.Time) int {
	return id.DaysBetween(today, l.DueDate)
}

// TransitionInput carries the optional data some verbs require.
type TransitionInput struct {
	Reason CancellationReason
	Notes  string
	Actor  string
	Now    time.Time
}

// Change describes an applied transition.
type Change struct {
	From Status
	To   Status
	// Release is true when the move leaves the held set and returns units.
	Release bool
}

// CanTransition validates verb against the table and the verb's own input
// requirements without mutating the loan.
func (l *Loan) CanTransition(verb Verb, in TransitionInput) (Status, error) {
	to, err := l.Status.Next(verb)
	if err != nil {
		return "", err
	}
	if to.HasCancellation() && in.Reason == "" {
		return "", dErrors.NewField(dErrors.CodeValidation, "reason", "reason is required")
	}
	return to, nil
}

// ApplyTransition moves the loan to `to` and maintains the field invariants
// tied to the target state. Call CanTransition first.
func (l *Loan) ApplyTransition(to Status, in TransitionInput) Change {
	change := Change{From: l.Status, To: to, Release: l.Status.IsHeld() && to.ReleasesOnEntry()}
	today := id.DateOf(in.Now)

	l.Status = to
	l.UpdatedAt = in.Now
	if in.Actor != "" {
		l.ProcessedBy = in.Actor
	}
	if to.HasReturnDate() {
		l.ReturnDate = &today
	}
	if to.HasCancellation() {
		l.CancellationReason = in.Reason
		l.CancellationNotes = strings.TrimSpace(in.Notes)
		l.CancellationDate = &today
	}
	return change
}

// Transition validates and applies verb in one call.
func (l *Loan) Transition(verb Verb, in TransitionInput) (Change, error) {
	to, err := l.CanTransition(verb, in)
	if err != nil {
		return Change{}, err
	}
	return l.ApplyTransition(to, in), nil
}

// CanAdjustQuantity reports whether the loan has not left the desk yet.
func (l *Loan) CanAdjustQuantity(qty int) error {
	if l.Status != StatusPending && l.Status != StatusApproved {
		return dErrors.New(dErrors.CodeIllegalTransition,
			"quantity can only change on pending or approved loans")
	}
	if qty < 1 {
		return dErrors.NewField(dErrors.CodeBadQuantity, "quantity", "quantity must be at least 1")
	}
	return nil
}

// ApplyQuantity sets the new quantity. Inventory is rebalanced by the caller.
func (l *Loan) ApplyQuantity(qty int, now time.Time) {
	l.Quantity = qty
	l.UpdatedAt = now
}

// LoanView is a loan with its derived flags, as returned to callers.
type LoanView struct {
	*Loan
	IsOverdue bool `json:"is_overdue"`
}

// View derives the caller-facing flags as of today.
func (l *Loan) View(today time.Time) LoanView {
	return LoanView{Loan: l, IsOverdue: l.IsOverdue(today)}
}
