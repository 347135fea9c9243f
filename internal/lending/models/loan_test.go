package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
)

var now = time.Date(2026, time.March, 10, 9, 30, 0, 0, time.UTC)

func pendingLoan(t *testing.T) *Loan {
	t.Helper()
	loan, err := NewLoan(id.LoanID(uuid.New()), NewLoanParams{
		TenantID: id.TenantID(uuid.New()),
		TitleID:  id.TitleID(uuid.New()),
		MemberID: id.MemberID(uuid.New()),
		Quantity: 1,
		DueDate:  now.AddDate(0, 0, 14),
	}, now)
	require.NoError(t, err)
	return loan
}

func TestNewLoan(t *testing.T) {
	t.Run("starts pending and dated today", func(t *testing.T) {
		loan := pendingLoan(t)
		assert.Equal(t, StatusPending, loan.Status)
		assert.Equal(t, id.DateOf(now), loan.LoanDate)
		assert.Nil(t, loan.ReturnDate)
	})

	t.Run("due date equal to loan date is accepted", func(t *testing.T) {
		_, err := NewLoan(id.LoanID(uuid.New()), NewLoanParams{Quantity: 1, DueDate: now}, now)
		require.NoError(t, err)
	})

	t.Run("due date before loan date is rejected", func(t *testing.T) {
		_, err := NewLoan(id.LoanID(uuid.New()), NewLoanParams{Quantity: 1, DueDate: now.AddDate(0, 0, -1)}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeDueDateInvalid))
	})

	t.Run("zero quantity is rejected", func(t *testing.T) {
		_, err := NewLoan(id.LoanID(uuid.New()), NewLoanParams{Quantity: 0, DueDate: now}, now)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeBadQuantity))
	})
}

func TestTransitionTable(t *testing.T) {
	legal := map[Status]map[Verb]Status{
		StatusPending:  {VerbApprove: StatusApproved, VerbReject: StatusRejected, VerbCancel: StatusCancelled},
		StatusApproved: {VerbHandOut: StatusBorrowed, VerbCancel: StatusCancelled, VerbTick: StatusOverdue},
		StatusBorrowed: {VerbReturn: StatusReturned, VerbMarkLost: StatusLost, VerbCancel: StatusCancelled, VerbTick: StatusOverdue},
		StatusOverdue:  {VerbReturn: StatusReturned, VerbMarkLost: StatusLost},
	}
	verbs := []Verb{VerbApprove, VerbReject, VerbHandOut, VerbReturn, VerbCancel, VerbMarkLost, VerbTick}
	statuses := []Status{StatusPending, StatusApproved, StatusBorrowed, StatusOverdue,
		StatusReturned, StatusLost, StatusCancelled, StatusRejected}

	for _, from := range statuses {
		for _, verb := range verbs {
			to, err := from.Next(verb)
			want, ok := legal[from][verb]
			if ok {
				require.NoError(t, err, "%s --%s-->", from, verb)
				assert.Equal(t, want, to)
			} else {
				assert.True(t, dErrors.HasCode(err, dErrors.CodeIllegalTransition), "%s --%s--> should be illegal", from, verb)
			}
		}
	}
}

func TestApplyTransition(t *testing.T) {
	later := now.Add(48 * time.Hour)

	t.Run("return sets return date and releases", func(t *testing.T) {
		loan := pendingLoan(t)
		loan.Status = StatusBorrowed
		change, err := loan.Transition(VerbReturn, TransitionInput{Now: later, Actor: "desk"})
		require.NoError(t, err)
		assert.True(t, change.Release)
		require.NotNil(t, loan.ReturnDate)
		assert.Equal(t, id.DateOf(later), *loan.ReturnDate)
		assert.Equal(t, "desk", loan.ProcessedBy)
	})

	t.Run("mark lost sets return date without releasing", func(t *testing.T) {
		loan := pendingLoan(t)
		loan.Status = StatusOverdue
		change, err := loan.Transition(VerbMarkLost, TransitionInput{Now: later})
		require.NoError(t, err)
		assert.False(t, change.Release)
		assert.Equal(t, StatusLost, loan.Status)
		assert.NotNil(t, loan.ReturnDate)
	})

	t.Run("reject requires a reason", func(t *testing.T) {
		loan := pendingLoan(t)
		_, err := loan.Transition(VerbReject, TransitionInput{Now: later})
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Equal(t, StatusPending, loan.Status)
	})

	t.Run("cancel records reason notes and date", func(t *testing.T) {
		loan := pendingLoan(t)
		change, err := loan.Transition(VerbCancel, TransitionInput{Now: later, Reason: ReasonMemberRequest, Notes: "  plus besoin  "})
		require.NoError(t, err)
		assert.True(t, change.Release)
		assert.Equal(t, ReasonMemberRequest, loan.CancellationReason)
		assert.Equal(t, "plus besoin", loan.CancellationNotes)
		assert.NotNil(t, loan.CancellationDate)
		assert.Nil(t, loan.ReturnDate)
	})

	t.Run("approve keeps inventory held", func(t *testing.T) {
		loan := pendingLoan(t)
		change, err := loan.Transition(VerbApprove, TransitionInput{Now: later})
		require.NoError(t, err)
		assert.False(t, change.Release)
		assert.True(t, loan.IsHeld())
	})
}

func TestIsOverdue(t *testing.T) {
	loan := pendingLoan(t)
	afterDue := loan.DueDate.AddDate(0, 0, 1)

	loan.Status = StatusPending
	assert.False(t, loan.IsOverdue(afterDue), "pending loans are never overdue")

	loan.Status = StatusBorrowed
	assert.False(t, loan.IsOverdue(loan.DueDate), "due today is not overdue")
	assert.True(t, loan.IsOverdue(afterDue))

	loan.Status = StatusApproved
	assert.True(t, loan.IsOverdue(afterDue))

	loan.Status = StatusOverdue
	assert.True(t, loan.IsOverdue(loan.DueDate))

	returned := id.DateOf(afterDue)
	loan.Status = StatusReturned
	loan.ReturnDate = &returned
	assert.False(t, loan.IsOverdue(afterDue.AddDate(0, 0, 5)))
}

func TestCanAdjustQuantity(t *testing.T) {
	loan := pendingLoan(t)
	require.NoError(t, loan.CanAdjustQuantity(2))
	assert.True(t, dErrors.HasCode(loan.CanAdjustQuantity(0), dErrors.CodeBadQuantity))

	loan.Status = StatusBorrowed
	assert.True(t, dErrors.HasCode(loan.CanAdjustQuantity(2), dErrors.CodeIllegalTransition))
}

func TestParseListFilter(t *testing.T) {
	f, err := ParseListFilter("")
	require.NoError(t, err)
	assert.Equal(t, FilterAll, f)
	assert.Nil(t, f.Statuses())

	_, err = ParseListFilter("late")
	assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
}
