package notification

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
)

const (
	defaultListLimit = 50
	maxListLimit     = 200
)

// TxRunner scopes notification reads and writes to one transaction.
type TxRunner interface {
	RunInTx(ctx context.Context, fn func(ctx context.Context, store Store) error) error
}

// Service serves the inbox: listing and the read toggle.
type Service struct {
	tx     TxRunner
	logger *slog.Logger
}

func NewService(tx TxRunner, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{tx: tx, logger: logger}
}

// visibleTo lists the recipients whose notifications actor may read.
func visibleTo(actor id.Actor) []Recipient {
	var out []Recipient
	if !actor.ID.IsNil() {
		out = append(out, IdentityRecipient(actor.ID))
	}
	if actor.IsStaff() {
		out = append(out, CenterRecipient())
	}
	return out
}

func canSee(actor id.Actor, r Recipient) bool {
	for _, v := range visibleTo(actor) {
		if v == r {
			return true
		}
	}
	return false
}

// List returns the actor's own notifications and, for staff, the center's,
// newest first.
func (s *Service) List(ctx context.Context, tenantID id.TenantID, actor id.Actor, unreadOnly bool, limit int) ([]*Notification, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	limit = min(limit, maxListLimit)

	var out []*Notification
	err := s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		out = nil
		for _, r := range visibleTo(actor) {
			list, err := store.ListForRecipient(ctx, tenantID, r, unreadOnly, limit)
			if err != nil {
				return dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
			}
			out = append(out, list...)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// MarkRead sets the read flag. Notifications the actor cannot see are
// reported as not found.
func (s *Service) MarkRead(ctx context.Context, tenantID id.TenantID, actor id.Actor, notificationID id.NotificationID) error {
	return s.tx.RunInTx(ctx, func(ctx context.Context, store Store) error {
		n, err := store.FindByID(ctx, tenantID, notificationID)
		if err != nil {
			if errors.Is(err, sentinel.ErrNotFound) {
				return dErrors.New(dErrors.CodeNotFound, "notification not found")
			}
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load notification")
		}
		if !canSee(actor, n.Recipient) {
			return dErrors.New(dErrors.CodeNotFound, "notification not found")
		}
		if n.Read {
			return nil
		}
		if err := store.MarkRead(ctx, tenantID, notificationID); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notification read")
		}
		return nil
	})
}
