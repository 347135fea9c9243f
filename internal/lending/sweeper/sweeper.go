// Package sweeper periodically marks overdue loans and emits due-soon and
// overdue reminders.
package sweeper

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"doccenter/internal/audit"
	"doccenter/internal/lending/metrics"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/lending/service"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
	"doccenter/pkg/requestcontext"
)

const (
	DefaultInterval    = time.Hour
	DefaultDueSoonDays = 2
)

// Result summarises one sweep.
type Result struct {
	Scanned       int
	MarkedOverdue int
	Reminded      int
	DueSoon       int
	Failed        int
}

// Sweeper walks loans that are out and due soon or past due. Each loan is
// handled in its own transaction so one bad record never halts the batch.
type Sweeper struct {
	tx          ports.TxRunner
	dispatcher  service.Dispatcher
	logger      *slog.Logger
	metrics     *metrics.Metrics
	interval    time.Duration
	dueSoonDays int
	now         func() time.Time
}

type Option func(*Sweeper)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Sweeper) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Sweeper) {
		s.metrics = m
	}
}

func WithInterval(d time.Duration) Option {
	return func(s *Sweeper) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithDueSoonDays sets how many days ahead of the due date reminders start.
func WithDueSoonDays(days int) Option {
	return func(s *Sweeper) {
		if days >= 0 {
			s.dueSoonDays = days
		}
	}
}

// WithClock replaces the wall clock used by Run.
func WithClock(now func() time.Time) Option {
	return func(s *Sweeper) {
		s.now = now
	}
}

func New(tx ports.TxRunner, dispatcher service.Dispatcher, opts ...Option) *Sweeper {
	s := &Sweeper{
		tx:          tx,
		dispatcher:  dispatcher,
		logger:      slog.Default(),
		interval:    DefaultInterval,
		dueSoonDays: DefaultDueSoonDays,
		now:         time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run sweeps once immediately and then on every tick until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()
	for {
		if _, err := s.RunOverdueSweep(ctx, s.now()); err != nil && ctx.Err() == nil {
			s.logger.ErrorContext(ctx, "overdue sweep failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

// RunOverdueSweep processes every loan due on or before today plus the
// due-soon horizon, as of now. Running it twice in a row is harmless: the
// second pass finds nothing left to transition and the dispatcher suppresses
// repeated reminders.
func (s *Sweeper) RunOverdueSweep(ctx context.Context, now time.Time) (Result, error) {
	start := time.Now()
	defer s.metrics.ObserveSweep(start)

	ctx = requestcontext.WithTime(ctx, now)
	today := id.DateOf(now)
	cutoff := today.AddDate(0, 0, s.dueSoonDays)

	var candidates []*models.Loan
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		var err error
		candidates, err = st.Loans().ListOutDueBy(ctx, cutoff)
		return err
	})
	if err != nil {
		return Result{}, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list loans due")
	}

	res := Result{Scanned: len(candidates)}
	for _, c := range candidates {
		if ctx.Err() != nil {
			return res, ctx.Err()
		}
		outcome, err := s.sweepLoan(ctx, c.TenantID, c.ID, today)
		if err != nil {
			res.Failed++
			s.metrics.IncSweepFailure()
			s.logger.ErrorContext(ctx, "failed to sweep loan",
				"tenant_id", c.TenantID.String(),
				"loan_id", c.ID.String(),
				"error", err,
			)
			continue
		}
		switch outcome {
		case outcomeMarkedOverdue:
			res.MarkedOverdue++
			s.metrics.IncOverdueTransition()
		case outcomeReminded:
			res.Reminded++
		case outcomeDueSoon:
			res.DueSoon++
		}
	}

	s.logger.InfoContext(ctx, "overdue sweep completed",
		"scanned", res.Scanned,
		"marked_overdue", res.MarkedOverdue,
		"reminded", res.Reminded,
		"due_soon", res.DueSoon,
		"failed", res.Failed,
	)
	return res, nil
}

type outcome int

const (
	outcomeNone outcome = iota
	outcomeMarkedOverdue
	outcomeReminded
	outcomeDueSoon
)

// sweepLoan re-reads the loan inside its own transaction so a concurrent
// return or cancellation since the listing is respected.
func (s *Sweeper) sweepLoan(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, today time.Time) (outcome, error) {
	now := requestcontext.Now(ctx)
	var (
		result   outcome
		outgoing []notification.Outgoing
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		result, outgoing = outcomeNone, nil

		loan, err := st.Loans().FindByID(ctx, tenantID, loanID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return nil
			}
			return err
		}

		kind := models.EventKind("")
		switch {
		case loan.Status == models.StatusOverdue:
			kind, result = models.EventLoanOverdue, outcomeReminded
		case loan.IsOverdue(today):
			change, err := loan.Transition(models.VerbTick, models.TransitionInput{Actor: id.SystemActor.Label(), Now: now})
			if err != nil {
				return err
			}
			if err := st.Loans().Update(ctx, loan); err != nil {
				return err
			}
			if err := audit.NewPublisher(st.Audit()).Emit(ctx, audit.Entry{
				TenantID:    loan.TenantID,
				SubjectKind: audit.SubjectLoan,
				SubjectID:   loan.ID.String(),
				Actor:       id.SystemActor.Label(),
				Action:      audit.ActionLoanTransitioned,
				FromState:   string(change.From),
				ToState:     string(change.To),
				Reason:      "due date passed",
				Timestamp:   now,
			}, loan); err != nil {
				return err
			}
			kind, result = models.EventLoanOverdue, outcomeMarkedOverdue
		case loan.ReturnDate == nil && loan.Status.IsHeld() && loan.Status != models.StatusPending:
			days := loan.DaysUntilDue(today)
			if days < 0 || days > s.dueSoonDays {
				return nil
			}
			kind, result = models.EventLoanDueSoon, outcomeDueSoon
		default:
			return nil
		}

		out, err := service.Publish(ctx, s.dispatcher, st, kind, loan, now)
		if err != nil {
			return err
		}
		outgoing = out
		return nil
	})
	if err != nil {
		return outcomeNone, err
	}
	s.dispatcher.Deliver(ctx, outgoing)
	return result, nil
}
