package service

import (
	"context"
	"errors"
	"strconv"

	"go.opentelemetry.io/otel/attribute"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
	"doccenter/pkg/requestcontext"
)

// AdjustQuantity changes the quantity of a loan that has not been handed out.
// The original quantity is released and the new one reserved in the same
// transaction, so a failed reservation leaves both the loan and the counter
// untouched.
func (s *Service) AdjustQuantity(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, qty int, actor id.Actor) (_ *models.Loan, err error) {
	ctx, end := s.span(ctx, "AdjustQuantity", tenantID,
		attribute.String("loan_id", loanID.String()),
		attribute.Int("quantity", qty),
	)
	defer func() { end(err) }()

	if !actor.IsStaff() {
		return nil, dErrors.New(dErrors.CodeForbidden, "seul le personnel peut modifier la quantité d'un prêt")
	}

	now := requestcontext.Now(ctx)
	var (
		updated  *models.Loan
		previous int
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		updated = nil

		loan, err := loadLoan(ctx, st, tenantID, loanID)
		if err != nil {
			return err
		}
		if err := loan.CanAdjustQuantity(qty); err != nil {
			return err
		}
		previous = loan.Quantity
		if previous == qty {
			updated = loan
			return nil
		}

		inv := catalog.NewInventory(st.Catalog())
		if err := inv.Release(ctx, tenantID, loan.Ref(), previous); err != nil {
			return err
		}
		if err := inv.Reserve(ctx, tenantID, loan.Ref(), qty); err != nil {
			return err
		}
		loan.ApplyQuantity(qty, now)
		loan.ProcessedBy = actor.Label()
		if err := saveLoan(ctx, st, loan); err != nil {
			return err
		}

		snapshot, err := inv.Snapshot(ctx, tenantID, loan.Ref())
		if err != nil {
			return err
		}
		if err := audit.NewPublisher(st.Audit()).Emit(ctx, audit.Entry{
			TenantID:    tenantID,
			SubjectKind: audit.SubjectInventory,
			SubjectID:   loan.ID.String(),
			Actor:       actor.Label(),
			Action:      audit.ActionQuantityAdjusted,
			FromState:   strconv.Itoa(previous),
			ToState:     strconv.Itoa(qty),
			Timestamp:   now,
		}, snapshot); err != nil {
			return err
		}
		updated = loan
		return nil
	})
	if err != nil {
		s.logDenial(ctx, "adjust_quantity", tenantID, err)
		return nil, err
	}

	s.logger.InfoContext(ctx, "loan quantity adjusted",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"loan_id", loanID.String(),
		"from", previous,
		"to", qty,
	)
	return updated, nil
}

// Delete removes a loan record. Held units are returned to the counter and a
// deletion entry carrying the justification and the final snapshot is kept
// in the audit log.
func (s *Service) Delete(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, req models.DeleteRequest, actor id.Actor) (err error) {
	ctx, end := s.span(ctx, "Delete", tenantID, attribute.String("loan_id", loanID.String()))
	defer func() { end(err) }()

	req.Normalize()
	if err := req.Validate(); err != nil {
		return err
	}
	if !actor.CanApprove() {
		return dErrors.New(dErrors.CodeForbidden, "seuls les responsables peuvent supprimer un prêt")
	}

	now := requestcontext.Now(ctx)
	var released bool
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		released = false

		loan, err := loadLoan(ctx, st, tenantID, loanID)
		if err != nil {
			return err
		}
		if loan.IsHeld() {
			if err := catalog.NewInventory(st.Catalog()).Release(ctx, tenantID, loan.Ref(), loan.Quantity); err != nil {
				return err
			}
			released = true
		}
		if err := st.Loans().Delete(ctx, tenantID, loanID); err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "loan not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to delete loan")
		}
		return audit.NewPublisher(st.Audit()).Emit(ctx, audit.Entry{
			TenantID:      tenantID,
			SubjectKind:   audit.SubjectDeletion,
			SubjectID:     loan.ID.String(),
			Actor:         actor.Label(),
			Action:        audit.ActionLoanDeleted,
			FromState:     string(loan.Status),
			Justification: req.Justification,
			Timestamp:     now,
		}, loan)
	})
	if err != nil {
		s.logDenial(ctx, "delete_loan", tenantID, err)
		return err
	}

	s.logger.InfoContext(ctx, "loan deleted",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"loan_id", loanID.String(),
		"released", released,
	)
	return nil
}
