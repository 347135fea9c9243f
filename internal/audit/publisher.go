package audit

import (
	"context"
	"strings"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Store persists entries. Implementations never update or delete rows.
type Store interface {
	Append(ctx context.Context, entry *Entry) error
	ListBySubject(ctx context.Context, tenantID id.TenantID, subjectID string) ([]*Entry, error)
}

// Publisher stamps entries with request metadata and appends them. It is
// bound to the store of the surrounding transaction.
type Publisher struct {
	store Store
}

func NewPublisher(store Store) *Publisher {
	return &Publisher{store: store}
}

// Emit appends the entry. snapshot, when non-nil, is serialised into the
// payload. Deletions without a justification are refused.
func (p *Publisher) Emit(ctx context.Context, entry Entry, snapshot any) error {
	if entry.SubjectKind == SubjectDeletion && strings.TrimSpace(entry.Justification) == "" {
		return dErrors.NewField(dErrors.CodeValidation, "justification", "deletion requires a justification")
	}
	if entry.ID == (id.AuditEntryID{}) {
		entry.ID = id.AuditEntryID(uuid.New())
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = requestcontext.Now(ctx)
	}
	if entry.RequestID == "" {
		entry.RequestID = requestcontext.RequestID(ctx)
	}
	if entry.ClientIP == "" {
		entry.ClientIP = requestcontext.ClientIP(ctx)
	}
	if entry.UserAgent == "" {
		entry.UserAgent = requestcontext.UserAgent(ctx)
	}
	if snapshot != nil {
		payload, err := json.Marshal(snapshot)
		if err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to encode audit payload")
		}
		entry.Payload = payload
	}
	if err := p.store.Append(ctx, &entry); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to append audit entry")
	}
	return nil
}

// List returns the entries recorded for a subject, oldest first.
func (p *Publisher) List(ctx context.Context, tenantID id.TenantID, subjectID string) ([]*Entry, error) {
	entries, err := p.store.ListBySubject(ctx, tenantID, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list audit entries")
	}
	return entries, nil
}
