// Package ports declares the persistence contracts of the lending engine.
// Both the in-memory and the SQL store implement them; services depend only
// on these interfaces.
package ports

import (
	"context"
	"time"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
)

// LoanStore persists loans. Missing rows are reported as sentinel.ErrNotFound.
type LoanStore interface {
	Create(ctx context.Context, loan *models.Loan) error
	FindByID(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) (*models.Loan, error)
	Update(ctx context.Context, loan *models.Loan) error
	Delete(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) error
	// ListByMember returns the member's loans in the given statuses, newest
	// first. Nil statuses means all.
	ListByMember(ctx context.Context, tenantID id.TenantID, memberID id.MemberID, statuses []models.Status) ([]*models.Loan, error)
	// ListOutDueBy returns approved, borrowed and overdue loans of every
	// tenant whose due date is on or before cutoff.
	ListOutDueBy(ctx context.Context, cutoff time.Time) ([]*models.Loan, error)
}

// AgeFailureStore persists age-verification denials.
type AgeFailureStore interface {
	Create(ctx context.Context, f *models.AgeVerificationFailure) error
	ListByMember(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) ([]*models.AgeVerificationFailure, error)
}

// Stores is the transaction-scoped view handed to RunInTx callbacks.
type Stores interface {
	Loans() LoanStore
	Catalog() catalog.Store
	Members() membership.Store
	AgeFailures() AgeFailureStore
	Audit() audit.Store
	Notifications() notification.Store
}

// TxRunner runs fn inside one transaction. A non-nil error from fn rolls
// back every write; context expiry surfaces as a Timeout error.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, st Stores) error) error
}

type notificationTx struct {
	tx TxRunner
}

// NotificationTx narrows a TxRunner to the notification store.
func NotificationTx(tx TxRunner) notification.TxRunner {
	return notificationTx{tx: tx}
}

func (n notificationTx) RunInTx(ctx context.Context, fn func(ctx context.Context, store notification.Store) error) error {
	return n.tx.RunInTx(ctx, func(ctx context.Context, st Stores) error {
		return fn(ctx, st.Notifications())
	})
}
