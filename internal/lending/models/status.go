package models

import (
	dErrors "doccenter/pkg/domain-errors"
)

// Status is the lifecycle state of a loan.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusBorrowed  Status = "borrowed"
	StatusOverdue   Status = "overdue"
	StatusReturned  Status = "returned"
	StatusLost      Status = "lost"
	StatusCancelled Status = "cancelled"
	StatusRejected  Status = "rejected"
)

// HeldStatuses are the states in which a loan reserves inventory.
var HeldStatuses = []Status{StatusPending, StatusApproved, StatusBorrowed, StatusOverdue}

// IsValid reports whether s is a known status.
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusApproved, StatusBorrowed, StatusOverdue,
		StatusReturned, StatusLost, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// IsHeld reports whether the loan currently reserves inventory.
func (s Status) IsHeld() bool {
	switch s {
	case StatusPending, StatusApproved, StatusBorrowed, StatusOverdue:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s Status) IsTerminal() bool {
	return !s.IsHeld()
}

// ReleasesOnEntry reports whether entering s from a held state gives the
// reserved units back. Lost loans are written off and keep their units out.
func (s Status) ReleasesOnEntry() bool {
	switch s {
	case StatusReturned, StatusCancelled, StatusRejected:
		return true
	}
	return false
}

// HasReturnDate reports whether loans in s carry a return date.
func (s Status) HasReturnDate() bool {
	return s == StatusReturned || s == StatusLost
}

// HasCancellation reports whether loans in s carry cancellation fields.
func (s Status) HasCancellation() bool {
	return s == StatusCancelled || s == StatusRejected
}

// Verb names a caller-visible transition.
type Verb string

const (
	VerbApprove  Verb = "approve"
	VerbReject   Verb = "reject"
	VerbHandOut  Verb = "hand_out"
	VerbReturn   Verb = "return"
	VerbCancel   Verb = "cancel"
	VerbMarkLost Verb = "mark_lost"
	// VerbTick is the sweeper's automatic move to overdue. It is not
	// accepted from callers.
	VerbTick Verb = "tick"
)

// ParseVerb validates a caller-supplied verb.
func ParseVerb(s string) (Verb, error) {
	v := Verb(s)
	switch v {
	case VerbApprove, VerbReject, VerbHandOut, VerbReturn, VerbCancel, VerbMarkLost:
		return v, nil
	}
	return "", dErrors.NewField(dErrors.CodeValidation, "verb", "unknown transition verb: "+s)
}

// transitions is the complete table of legal moves.
var transitions = map[Status]map[Verb]Status{
	StatusPending: {
		VerbApprove: StatusApproved,
		VerbReject:  StatusRejected,
		VerbCancel:  StatusCancelled,
	},
	StatusApproved: {
		VerbHandOut: StatusBorrowed,
		VerbCancel:  StatusCancelled,
		VerbTick:    StatusOverdue,
	},
	StatusBorrowed: {
		VerbReturn:   StatusReturned,
		VerbMarkLost: StatusLost,
		VerbCancel:   StatusCancelled,
		VerbTick:     StatusOverdue,
	},
	StatusOverdue: {
		VerbReturn:   StatusReturned,
		VerbMarkLost: StatusLost,
	},
}

// Next returns the state reached by applying verb to s.
func (s Status) Next(verb Verb) (Status, error) {
	if to, ok := transitions[s][verb]; ok {
		return to, nil
	}
	return "", dErrors.New(dErrors.CodeIllegalTransition,
		"transition "+string(verb)+" is not allowed from "+string(s))
}

// ListFilter selects a member's loans.
type ListFilter string

const (
	FilterAll      ListFilter = "all"
	FilterActive   ListFilter = "active"
	FilterReturned ListFilter = "returned"
	FilterOverdue  ListFilter = "overdue"
)

// ParseListFilter defaults the empty string to FilterAll.
func ParseListFilter(s string) (ListFilter, error) {
	switch f := ListFilter(s); f {
	case "":
		return FilterAll, nil
	case FilterAll, FilterActive, FilterReturned, FilterOverdue:
		return f, nil
	}
	return "", dErrors.NewField(dErrors.CodeValidation, "filter", "unknown filter: "+s)
}

// Statuses narrows the store query for the filter. Nil means every status.
func (f ListFilter) Statuses() []Status {
	switch f {
	case FilterActive:
		return HeldStatuses
	case FilterReturned:
		return []Status{StatusReturned}
	case FilterOverdue:
		return []Status{StatusApproved, StatusBorrowed, StatusOverdue}
	}
	return nil
}
