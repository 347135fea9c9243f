package models

import (
	"time"

	id "doccenter/pkg/domain"
)

// EventKind names a loan lifecycle event.
type EventKind string

const (
	EventLoanCreated   EventKind = "LoanCreated"
	EventLoanApproved  EventKind = "LoanApproved"
	EventLoanRejected  EventKind = "LoanRejected"
	EventLoanReturned  EventKind = "LoanReturned"
	EventLoanCancelled EventKind = "LoanCancelled"
	EventLoanDueSoon   EventKind = "LoanDueSoon"
	EventLoanOverdue   EventKind = "LoanOverdue"
)

// EventForVerb returns the event published after verb, if any. Hand-out and
// mark-lost are silent.
func EventForVerb(verb Verb) (EventKind, bool) {
	switch verb {
	case VerbApprove:
		return EventLoanApproved, true
	case VerbReject:
		return EventLoanRejected, true
	case VerbReturn:
		return EventLoanReturned, true
	case VerbCancel:
		return EventLoanCancelled, true
	case VerbTick:
		return EventLoanOverdue, true
	}
	return "", false
}

// Event is a denormalised lifecycle event. It carries the member and title
// facts recipients need so the dispatcher never reads back into lending.
type Event struct {
	Kind         EventKind
	TenantID     id.TenantID
	LoanID       id.LoanID
	MemberID     id.MemberID
	MemberName   string
	MemberEmail  string
	MemberUserID *id.UserID
	TitleName    string
	DueDate      time.Time
	Reason       CancellationReason
	OccurredAt   time.Time
}
