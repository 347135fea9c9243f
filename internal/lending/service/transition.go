package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
)

func (s *Service) Approve(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, actor id.Actor) (*models.Loan, error) {
	return s.Transition(ctx, tenantID, loanID, models.TransitionRequest{Verb: models.VerbApprove}, actor)
}

func (s *Service) Reject(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, reason models.CancellationReason, notes string, actor id.Actor) (*models.Loan, error) {
	return s.Transition(ctx, tenantID, loanID, models.TransitionRequest{Verb: models.VerbReject, Reason: reason, Notes: notes}, actor)
}

func (s *Service) HandOut(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, actor id.Actor) (*models.Loan, error) {
	return s.Transition(ctx, tenantID, loanID, models.TransitionRequest{Verb: models.VerbHandOut}, actor)
}

func (s *Service) Return(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, actor id.Actor) (*models.Loan, error) {
	return s.Transition(ctx, tenantID, loanID, models.TransitionRequest{Verb: models.VerbReturn}, actor)
}

func (s *Service) Cancel(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, reason models.CancellationReason, notes string, actor id.Actor) (*models.Loan, error) {
	return s.Transition(ctx, tenantID, loanID, models.TransitionRequest{Verb: models.VerbCancel, Reason: reason, Notes: notes}, actor)
}

func (s *Service) MarkLost(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, actor id.Actor) (*models.Loan, error) {
	return s.Transition(ctx, tenantID, loanID, models.TransitionRequest{Verb: models.VerbMarkLost}, actor)
}

// Transition applies a caller verb to a loan: guard, state move, inventory
// release when the loan leaves the held set, audit entry and event, all in
// one transaction.
func (s *Service) Transition(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, req models.TransitionRequest, actor id.Actor) (_ *models.Loan, err error) {
	ctx, end := s.span(ctx, "Transition", tenantID,
		attribute.String("loan_id", loanID.String()),
		attribute.String("verb", string(req.Verb)),
	)
	defer func() { end(err) }()

	if req.Verb == models.VerbTick {
		return nil, dErrors.NewField(dErrors.CodeValidation, "verb", "unknown transition verb: "+string(req.Verb))
	}

	now := requestcontext.Now(ctx)
	var (
		updated  *models.Loan
		change   models.Change
		outgoing []notification.Outgoing
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		updated, outgoing = nil, nil

		loan, err := loadLoan(ctx, st, tenantID, loanID)
		if err != nil {
			return err
		}
		in := models.TransitionInput{Reason: req.Reason, Notes: req.Notes, Actor: actor.Label(), Now: now}
		to, err := loan.CanTransition(req.Verb, in)
		if err != nil {
			return err
		}
		if err := s.authorize(ctx, st, loan, req.Verb, actor); err != nil {
			return err
		}
		if req.Verb == models.VerbApprove {
			if err := ensureAgeVerified(ctx, st, loan, now); err != nil {
				return err
			}
		}

		change = loan.ApplyTransition(to, in)
		if change.Release {
			if err := catalog.NewInventory(st.Catalog()).Release(ctx, tenantID, loan.Ref(), loan.Quantity); err != nil {
				return err
			}
		}
		if err := saveLoan(ctx, st, loan); err != nil {
			return err
		}
		if err := auditTransition(ctx, st, loan, actor.Label(), audit.ActionLoanTransitioned, change.From, change.To, string(req.Reason)); err != nil {
			return err
		}
		if kind, ok := models.EventForVerb(req.Verb); ok {
			out, err := Publish(ctx, s.dispatcher, st, kind, loan, now)
			if err != nil {
				return err
			}
			outgoing = out
		}
		updated = loan
		return nil
	})
	if err != nil {
		s.logDenial(ctx, "transition", tenantID, err)
		return nil, err
	}

	s.dispatcher.Deliver(ctx, outgoing)
	s.metrics.IncTransition(string(req.Verb))
	s.logger.InfoContext(ctx, "loan transitioned",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"loan_id", loanID.String(),
		"from", string(change.From),
		"to", string(change.To),
		"released", change.Release,
	)
	return updated, nil
}

// authorize enforces the per-verb actor guards. Approve and reject need
// approval rights. Desk operations (hand out, return, mark lost) are staff
// only. Cancelling is open to staff and to the requesting member, except
// once the loan was handed out.
func (s *Service) authorize(ctx context.Context, st ports.Stores, loan *models.Loan, verb models.Verb, actor id.Actor) error {
	switch verb {
	case models.VerbApprove, models.VerbReject:
		if !actor.CanApprove() {
			return dErrors.New(dErrors.CodeForbidden, "seuls les responsables peuvent valider ou refuser un prêt")
		}
	case models.VerbHandOut, models.VerbReturn, models.VerbMarkLost:
		if !actor.IsStaff() {
			return dErrors.New(dErrors.CodeForbidden, "seul le personnel peut remettre, reprendre ou déclarer perdu un prêt")
		}
	case models.VerbCancel:
		if actor.IsStaff() {
			return nil
		}
		if loan.Status == models.StatusBorrowed {
			return dErrors.New(dErrors.CodeForbidden, "seul le personnel peut annuler un prêt en cours")
		}
		member, err := membership.NewRegistry(st.Members()).Lookup(ctx, loan.TenantID, loan.MemberID)
		if err != nil {
			return err
		}
		if !member.IsIdentity(actor.ID) {
			return dErrors.New(dErrors.CodeForbidden, "seul le demandeur ou le personnel peut annuler cette demande")
		}
	}
	return nil
}

// ensureAgeVerified re-checks the age gate when a loan leaves pending so an
// approved loan on a restricted title always carries age_verified.
func ensureAgeVerified(ctx context.Context, st ports.Stores, loan *models.Loan, now time.Time) error {
	if loan.AgeVerified {
		return nil
	}
	title, err := catalog.NewInventory(st.Catalog()).Title(ctx, loan.TenantID, loan.TitleID)
	if err != nil {
		return err
	}
	if !title.IsAgeRestricted() {
		loan.AgeVerified = true
		return nil
	}
	age, known, err := membership.NewRegistry(st.Members()).AgeOn(ctx, loan.TenantID, loan.MemberID, id.DateOf(now))
	if err != nil {
		return err
	}
	if !known || age < title.MinimumAgeRequired {
		return dErrors.NewField(dErrors.CodeAgeRestricted, "member_id", "l'âge du membre ne permet pas ce prêt")
	}
	loan.AgeVerified = true
	loan.MemberAge = &age
	return nil
}
