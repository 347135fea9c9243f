package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/admission"
	"doccenter/internal/lending/idempotency"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
)

const opCreateLoan = "create_loan"

func newLoanID() id.LoanID {
	return id.LoanID(uuid.New())
}

// CreateLoan admits a loan request and records it as pending.
//
// Staff may file for any member, anyone else only for the member linked to
// their own identity. Admission checks then run in order and the first
// failure is returned. An age denial still commits its
// AgeVerificationFailure record before the error is returned. The
// idempotency key, when given, is claimed only after every other check
// passed and is released again if the transaction fails.
func (s *Service) CreateLoan(ctx context.Context, req models.CreateLoanRequest, actor id.Actor, idempotencyKey string) (_ *models.Loan, err error) {
	ctx, end := s.span(ctx, "CreateLoan", req.TenantID,
		attribute.String("member_id", req.MemberID.String()),
		attribute.String("title_id", req.TitleID.String()),
	)
	defer func() { end(err) }()

	now := requestcontext.Now(ctx)
	scope := ""
	if idempotencyKey != "" {
		scope = idempotency.Scope(req.TenantID.String(), actor.Label(), opCreateLoan, idempotencyKey)
	}
	claimed := false

	var (
		denial   error
		created  *models.Loan
		outgoing []notification.Outgoing
	)
	err = s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		denial, created, outgoing = nil, nil, nil

		in, err := gatherAdmission(ctx, st, req, now)
		if err != nil {
			return err
		}
		if !actor.IsStaff() && (in.Member == nil || !in.Member.IsIdentity(actor.ID)) {
			return dErrors.New(dErrors.CodeForbidden, "un membre ne peut demander un prêt qu'à son propre nom")
		}
		decision := admission.Evaluate(in)
		if !decision.Allowed {
			if decision.AgeFailure == nil {
				return decision.Err()
			}
			if err := recordAgeFailure(ctx, st, decision.AgeFailure); err != nil {
				return err
			}
			denial = decision.Err()
			return nil
		}

		if scope != "" && !claimed {
			ok, err := s.guard.Claim(ctx, scope, s.idempotencyWindow)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to check idempotency key")
			}
			if !ok {
				return admission.Duplicate().Err()
			}
			claimed = true
		}

		loan, err := models.NewLoan(s.newID(), models.NewLoanParams{
			TenantID:    req.TenantID,
			TitleID:     req.TitleID,
			VolumeID:    req.VolumeID,
			MemberID:    req.MemberID,
			Quantity:    req.Quantity,
			DueDate:     req.DueDate,
			MemberAge:   decision.MemberAge,
			AgeVerified: decision.AgeVerified,
			ProcessedBy: actor.Label(),
		}, now)
		if err != nil {
			return err
		}

		if err := catalog.NewInventory(st.Catalog()).Reserve(ctx, req.TenantID, loan.Ref(), loan.Quantity); err != nil {
			return err
		}
		if err := st.Loans().Create(ctx, loan); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to create loan")
		}
		if err := audit.NewPublisher(st.Audit()).Emit(ctx, audit.Entry{
			TenantID:    loan.TenantID,
			SubjectKind: audit.SubjectLoan,
			SubjectID:   loan.ID.String(),
			Actor:       actor.Label(),
			Action:      audit.ActionLoanCreated,
			ToState:     string(loan.Status),
			Timestamp:   now,
		}, loan); err != nil {
			return err
		}

		out, err := Publish(ctx, s.dispatcher, st, models.EventLoanCreated, loan, now)
		if err != nil {
			return err
		}
		created, outgoing = loan, out
		return nil
	})
	if err != nil {
		if claimed {
			if ferr := s.guard.Forget(context.WithoutCancel(ctx), scope); ferr != nil {
				s.logger.WarnContext(ctx, "failed to release idempotency key", "error", ferr)
			}
		}
		s.logDenial(ctx, opCreateLoan, req.TenantID, err)
		return nil, err
	}
	if denial != nil {
		s.logDenial(ctx, opCreateLoan, req.TenantID, denial)
		return nil, denial
	}

	s.dispatcher.Deliver(ctx, outgoing)
	s.metrics.IncLoanCreated()
	s.logger.InfoContext(ctx, "loan created",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", req.TenantID.String(),
		"loan_id", created.ID.String(),
		"quantity", created.Quantity,
	)
	return created, nil
}

// gatherAdmission collects the facts the evaluator needs. Missing members,
// titles and volumes are left nil for the evaluator to judge in order.
func gatherAdmission(ctx context.Context, st ports.Stores, req models.CreateLoanRequest, now time.Time) (admission.Input, error) {
	in := admission.Input{
		TenantID:    req.TenantID,
		MemberID:    req.MemberID,
		VolumeID:    req.VolumeID,
		Quantity:    req.Quantity,
		DueDate:     req.DueDate,
		AttemptedAt: now,
	}

	member, err := membership.NewRegistry(st.Members()).Lookup(ctx, req.TenantID, req.MemberID)
	switch {
	case err == nil:
		in.Member = member
	case !dErrors.HasCode(err, dErrors.CodeUnknownMember):
		return in, err
	}

	inv := catalog.NewInventory(st.Catalog())
	title, err := inv.Title(ctx, req.TenantID, req.TitleID)
	switch {
	case err == nil:
		in.Title = title
	case !dErrors.HasCode(err, dErrors.CodeNotFound):
		return in, err
	}

	if req.VolumeID != nil && !req.VolumeID.IsNil() {
		volume, err := inv.Volume(ctx, req.TenantID, *req.VolumeID)
		switch {
		case err == nil:
			in.Volume = volume
		case !dErrors.HasCode(err, dErrors.CodeNotFound):
			return in, err
		}
	}
	return in, nil
}

func recordAgeFailure(ctx context.Context, st ports.Stores, f *models.AgeVerificationFailure) error {
	f.ID = id.AgeFailureID(uuid.New())
	if err := st.AgeFailures().Create(ctx, f); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to record age verification failure")
	}
	return nil
}
