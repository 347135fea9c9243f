package notification

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"doccenter/internal/lending/models"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
	"doccenter/pkg/requestcontext"
)

// Store persists notifications. Create must not abort the surrounding
// transaction on a dedup key collision; it reports sentinel.ErrConflict
// instead.
type Store interface {
	Create(ctx context.Context, n *Notification) error
	// LastCreated returns when the most recent notification for the
	// (recipient, loan, event) triple was created.
	LastCreated(ctx context.Context, tenantID id.TenantID, recipient Recipient, loanID id.LoanID, event models.EventKind) (time.Time, bool, error)
	ListForRecipient(ctx context.Context, tenantID id.TenantID, recipient Recipient, unreadOnly bool, limit int) ([]*Notification, error)
	FindByID(ctx context.Context, tenantID id.TenantID, notificationID id.NotificationID) (*Notification, error)
	MarkRead(ctx context.Context, tenantID id.TenantID, notificationID id.NotificationID) error
}

// Config holds the dedup windows and the center's mailbox.
type Config struct {
	DueSoonWindow time.Duration
	OverdueWindow time.Duration
	CenterEmail   string
}

// DefaultConfig matches the reminder cadence of the lending desk.
func DefaultConfig() Config {
	return Config{
		DueSoonWindow: 24 * time.Hour,
		OverdueWindow: 72 * time.Hour,
	}
}

// Dispatcher materialises lifecycle events as notifications. Publish runs
// inside the caller's transaction; Deliver sends emails after commit.
type Dispatcher struct {
	cfg     Config
	mailer  Mailer
	logger  *slog.Logger
	metrics *Metrics
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

func WithMailer(mailer Mailer) Option {
	return func(d *Dispatcher) {
		d.mailer = mailer
	}
}

func WithMetrics(m *Metrics) Option {
	return func(d *Dispatcher) {
		d.metrics = m
	}
}

func NewDispatcher(cfg Config, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		cfg:    cfg,
		mailer: NopMailer{},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

func (d *Dispatcher) window(kind models.EventKind) time.Duration {
	switch kind {
	case models.EventLoanDueSoon:
		return d.cfg.DueSoonWindow
	case models.EventLoanOverdue:
		return d.cfg.OverdueWindow
	}
	return 0
}

// Publish writes one notification per routed recipient, skipping recipients
// that already got the same reminder for the loan inside the event's window.
// It returns what was written so the caller can Deliver after commit.
func (d *Dispatcher) Publish(ctx context.Context, store Store, ev models.Event) ([]Outgoing, error) {
	now := ev.OccurredAt
	if now.IsZero() {
		now = requestcontext.Now(ctx)
	}
	window := d.window(ev.Kind)

	var out []Outgoing
	for _, r := range d.routes(ev) {
		dedupKey := ""
		if window > 0 {
			suppressed, err := d.recentlySent(ctx, store, ev, r.recipient, now, window)
			if err != nil {
				return nil, err
			}
			if suppressed {
				d.metrics.IncSuppressed(ev.Kind)
				continue
			}
			dedupKey = fmt.Sprintf("%s|%s|%s|%d", r.recipient.Key(), ev.LoanID, ev.Kind, now.Truncate(window).Unix())
		}

		loanID := ev.LoanID
		n := &Notification{
			ID:        id.NotificationID(uuid.New()),
			TenantID:  ev.TenantID,
			Recipient: r.recipient,
			LoanID:    &loanID,
			Event:     ev.Kind,
			Message:   r.message,
			Kind:      r.kind,
			CreatedAt: now,
			DedupKey:  dedupKey,
		}
		if err := store.Create(ctx, n); err != nil {
			if errors.Is(err, sentinel.ErrConflict) {
				d.metrics.IncSuppressed(ev.Kind)
				continue
			}
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to store notification")
		}
		d.metrics.IncDispatched(ev.Kind)
		out = append(out, Outgoing{Notification: n, Email: r.email})
	}
	return out, nil
}

func (d *Dispatcher) recentlySent(ctx context.Context, store Store, ev models.Event, r Recipient, now time.Time, window time.Duration) (bool, error) {
	last, ok, err := store.LastCreated(ctx, ev.TenantID, r, ev.LoanID, ev.Kind)
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodeInternal, "failed to check notification history")
	}
	return ok && now.Sub(last) < window, nil
}

// Deliver emails each outgoing notification. Failures are logged and
// swallowed: the stored notification is the record of truth.
func (d *Dispatcher) Deliver(ctx context.Context, out []Outgoing) {
	for _, o := range out {
		if o.Email == "" {
			continue
		}
		subject := "Centre de documentation: notification"
		if o.Notification.Kind == KindAlert {
			subject = "Centre de documentation: alerte"
		}
		if err := d.mailer.Send(ctx, o.Email, subject, o.Notification.Message); err != nil {
			d.metrics.IncEmailFailed()
			d.logger.WarnContext(ctx, "notification email failed",
				"notification_id", o.Notification.ID.String(),
				"event", string(o.Notification.Event),
				"error", err,
			)
		}
	}
}
