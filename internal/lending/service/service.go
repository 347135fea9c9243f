package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/idempotency"
	"doccenter/internal/lending/metrics"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
	"doccenter/pkg/requestcontext"
)

// Dispatcher materialises lifecycle events inside a transaction and
// delivers emails once it committed.
type Dispatcher interface {
	Publish(ctx context.Context, store notification.Store, ev models.Event) ([]notification.Outgoing, error)
	Deliver(ctx context.Context, out []notification.Outgoing)
}

// Service is the lending coordinator. Every mutating operation runs in one
// transaction covering the inventory counter, the loan row, the audit entry
// and the notifications it produces.
type Service struct {
	tx                ports.TxRunner
	guard             idempotency.Guard
	dispatcher        Dispatcher
	logger            *slog.Logger
	metrics           *metrics.Metrics
	tracer            trace.Tracer
	idempotencyWindow time.Duration
	newID             func() id.LoanID
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithTracer sets the tracer coordinator spans are started on.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = t
	}
}

// WithIdempotencyWindow sets how long a submitted key blocks repeats.
func WithIdempotencyWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.idempotencyWindow = d
		}
	}
}

// New constructs a Service.
func New(tx ports.TxRunner, guard idempotency.Guard, dispatcher Dispatcher, opts ...Option) *Service {
	s := &Service{
		tx:                tx,
		guard:             guard,
		dispatcher:        dispatcher,
		logger:            slog.Default(),
		tracer:            otel.Tracer("doccenter/lending"),
		idempotencyWindow: idempotency.DefaultWindow,
		newID:             newLoanID,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// span starts a traced coordinator operation. The returned func ends it,
// recording err and the duration metric.
func (s *Service) span(ctx context.Context, op string, tenantID id.TenantID, attrs ...attribute.KeyValue) (context.Context, func(err error)) {
	start := time.Now()
	attrs = append(attrs, attribute.String("tenant_id", tenantID.String()))
	ctx, span := s.tracer.Start(ctx, "lending."+op, trace.WithAttributes(attrs...))
	return ctx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
		}
		span.End()
		s.metrics.ObserveOperation(op, start)
	}
}

// loadLoan reads a loan and translates a missing row.
func loadLoan(ctx context.Context, st ports.Stores, tenantID id.TenantID, loanID id.LoanID) (*models.Loan, error) {
	loan, err := st.Loans().FindByID(ctx, tenantID, loanID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeNotFound, "loan not found")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan")
	}
	return loan, nil
}

func saveLoan(ctx context.Context, st ports.Stores, loan *models.Loan) error {
	if err := st.Loans().Update(ctx, loan); err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return dErrors.New(dErrors.CodeNotFound, "loan not found")
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to save loan")
	}
	return nil
}

// event builds a lifecycle event with the member and title facts recipients
// need. Missing member or title rows do not block the event.
func event(ctx context.Context, st ports.Stores, kind models.EventKind, loan *models.Loan, now time.Time) models.Event {
	ev := models.Event{
		Kind:       kind,
		TenantID:   loan.TenantID,
		LoanID:     loan.ID,
		MemberID:   loan.MemberID,
		DueDate:    loan.DueDate,
		Reason:     loan.CancellationReason,
		OccurredAt: now,
	}
	if m, err := membership.NewRegistry(st.Members()).Lookup(ctx, loan.TenantID, loan.MemberID); err == nil {
		ev.MemberName = m.Name
		ev.MemberEmail = m.Email
		ev.MemberUserID = m.UserID
	}
	if t, err := catalog.NewInventory(st.Catalog()).Title(ctx, loan.TenantID, loan.TitleID); err == nil {
		ev.TitleName = t.Name
	}
	return ev
}

// Publish emits a lifecycle event through the dispatcher inside st's
// transaction. The sweeper shares it.
func Publish(ctx context.Context, d Dispatcher, st ports.Stores, kind models.EventKind, loan *models.Loan, now time.Time) ([]notification.Outgoing, error) {
	return d.Publish(ctx, st.Notifications(), event(ctx, st, kind, loan, now))
}

// auditTransition appends the audit entry for a state change.
func auditTransition(ctx context.Context, st ports.Stores, loan *models.Loan, actor string, action audit.Action, from, to models.Status, reason string) error {
	return audit.NewPublisher(st.Audit()).Emit(ctx, audit.Entry{
		TenantID:    loan.TenantID,
		SubjectKind: audit.SubjectLoan,
		SubjectID:   loan.ID.String(),
		Actor:       actor,
		Action:      action,
		FromState:   string(from),
		ToState:     string(to),
		Reason:      reason,
		Timestamp:   requestcontext.Now(ctx),
	}, loan)
}

func (s *Service) logDenial(ctx context.Context, op string, tenantID id.TenantID, err error) {
	code := dErrors.CodeOf(err)
	if code == dErrors.CodeInternal {
		s.logger.ErrorContext(ctx, op+" failed",
			"request_id", requestcontext.RequestID(ctx),
			"tenant_id", tenantID.String(),
			"error", err,
		)
		return
	}
	s.metrics.IncDenial(string(code))
	s.logger.InfoContext(ctx, op+" refused",
		"request_id", requestcontext.RequestID(ctx),
		"tenant_id", tenantID.String(),
		"code", string(code),
		"kind", string(code.Kind()),
	)
}
