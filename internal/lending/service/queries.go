package service

import (
	"context"

	"doccenter/internal/audit"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/membership"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
)

// GetLoan returns a loan with its derived overdue flag.
func (s *Service) GetLoan(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) (*models.LoanView, error) {
	var loan *models.Loan
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		var err error
		loan, err = loadLoan(ctx, st, tenantID, loanID)
		return err
	})
	if err != nil {
		return nil, err
	}
	view := loan.View(requestcontext.Now(ctx))
	return &view, nil
}

// ListMemberLoans lists a member's loans, newest first. The overdue filter is
// derived: it keeps loans already marked overdue and loans still out past
// their due date that the sweeper has not reached yet.
func (s *Service) ListMemberLoans(ctx context.Context, tenantID id.TenantID, memberID id.MemberID, filter models.ListFilter) ([]models.LoanView, error) {
	var loans []*models.Loan
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		if _, err := membership.NewRegistry(st.Members()).Lookup(ctx, tenantID, memberID); err != nil {
			return err
		}
		var err error
		loans, err = st.Loans().ListByMember(ctx, tenantID, memberID, filter.Statuses())
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list loans")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	today := requestcontext.Now(ctx)
	views := make([]models.LoanView, 0, len(loans))
	for _, loan := range loans {
		view := loan.View(today)
		if filter == models.FilterOverdue && !view.IsOverdue {
			continue
		}
		views = append(views, view)
	}
	return views, nil
}

// ListAgeFailures returns the age-verification denials recorded for a member.
func (s *Service) ListAgeFailures(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) ([]*models.AgeVerificationFailure, error) {
	var failures []*models.AgeVerificationFailure
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		var err error
		failures, err = st.AgeFailures().ListByMember(ctx, tenantID, memberID)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list age verification failures")
		}
		return nil
	})
	return failures, err
}

// LoanHistory returns the audit trail of a loan, oldest first. Deleted loans
// keep their history.
func (s *Service) LoanHistory(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) ([]*audit.Entry, error) {
	var entries []*audit.Entry
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		var err error
		entries, err = audit.NewPublisher(st.Audit()).List(ctx, tenantID, loanID.String())
		return err
	})
	return entries, err
}
