package audit

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
)

type sliceStore struct {
	entries []*Entry
	err     error
}

func (s *sliceStore) Append(_ context.Context, e *Entry) error {
	if s.err != nil {
		return s.err
	}
	s.entries = append(s.entries, e)
	return nil
}

func (s *sliceStore) ListBySubject(_ context.Context, tenantID id.TenantID, subjectID string) ([]*Entry, error) {
	var out []*Entry
	for _, e := range s.entries {
		if e.TenantID == tenantID && e.SubjectID == subjectID {
			out = append(out, e)
		}
	}
	return out, nil
}

func TestEmit(t *testing.T) {
	fixed := time.Date(2026, time.April, 1, 8, 0, 0, 0, time.UTC)
	ctx := requestcontext.WithTime(context.Background(), fixed)
	ctx = requestcontext.WithRequestID(ctx, "req-42")
	ctx = requestcontext.WithClientMetadata(ctx, "10.0.0.7", "Firefox 128 / Linux")
	tenantID := id.TenantID(uuid.New())

	t.Run("stamps request metadata and payload", func(t *testing.T) {
		store := &sliceStore{}
		pub := NewPublisher(store)

		err := pub.Emit(ctx, Entry{
			TenantID:    tenantID,
			SubjectKind: SubjectLoan,
			SubjectID:   "loan-1",
			Actor:       "librarian-1",
			Action:      ActionLoanTransitioned,
			FromState:   "pending",
			ToState:     "approved",
		}, map[string]int{"quantity": 2})
		require.NoError(t, err)
		require.Len(t, store.entries, 1)

		e := store.entries[0]
		assert.Equal(t, fixed, e.Timestamp)
		assert.Equal(t, "req-42", e.RequestID)
		assert.Equal(t, "10.0.0.7", e.ClientIP)
		assert.Equal(t, "Firefox 128 / Linux", e.UserAgent)
		assert.JSONEq(t, `{"quantity":2}`, string(e.Payload))
		assert.NotEqual(t, id.AuditEntryID{}, e.ID)

		listed, err := pub.List(ctx, tenantID, "loan-1")
		require.NoError(t, err)
		assert.Len(t, listed, 1)
	})

	t.Run("deletion without justification is refused", func(t *testing.T) {
		store := &sliceStore{}
		err := NewPublisher(store).Emit(ctx, Entry{
			TenantID:      tenantID,
			SubjectKind:   SubjectDeletion,
			SubjectID:     "loan-2",
			Action:        ActionLoanDeleted,
			Justification: "   ",
		}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeValidation))
		assert.Empty(t, store.entries)
	})

	t.Run("store failures surface as internal", func(t *testing.T) {
		store := &sliceStore{err: errors.New("disk full")}
		err := NewPublisher(store).Emit(ctx, Entry{TenantID: tenantID, SubjectKind: SubjectLoan}, nil)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))
	})
}
