package membership

import (
	"context"
	"errors"
	"time"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
)

// Store reads members. Member CRUD lives outside the lending engine.
type Store interface {
	FindMember(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) (*Member, error)
}

// Registry resolves members for a tenant.
type Registry struct {
	store Store
}

func NewRegistry(store Store) *Registry {
	return &Registry{store: store}
}

// Lookup returns the member or an UnknownMember error.
func (r *Registry) Lookup(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) (*Member, error) {
	m, err := r.store.FindMember(ctx, tenantID, memberID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnknownMember, "membre introuvable")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load member")
	}
	return m, nil
}

// AgeOn returns the member's age on ref; known is false when the date of
// birth is missing.
func (r *Registry) AgeOn(ctx context.Context, tenantID id.TenantID, memberID id.MemberID, ref time.Time) (int, bool, error) {
	m, err := r.Lookup(ctx, tenantID, memberID)
	if err != nil {
		return 0, false, err
	}
	age, known := m.AgeOn(ref)
	return age, known, nil
}
