// Package memory is the in-process store used for development and tests.
//
// Every transaction works on a private copy of the state and swaps it in on
// success, so a failed callback leaves nothing behind. A single lock
// serialises transactions; the engine assumes one coordinating process.
package memory

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/outbox"
)

const defaultTxTimeout = 5 * time.Second

type state struct {
	titles        map[id.TitleID]catalog.Title
	volumes       map[id.VolumeID]catalog.Volume
	members       map[id.MemberID]membership.Member
	loans         map[id.LoanID]models.Loan
	failures      []models.AgeVerificationFailure
	audit         []audit.Entry
	notifications []notification.Notification
	dedupKeys     map[string]struct{}
	outbox        []outbox.Message
}

func newState() *state {
	return &state{
		titles:    make(map[id.TitleID]catalog.Title),
		volumes:   make(map[id.VolumeID]catalog.Volume),
		members:   make(map[id.MemberID]membership.Member),
		loans:     make(map[id.LoanID]models.Loan),
		dedupKeys: make(map[string]struct{}),
	}
}

// clone copies every table. Rows are values, so mutating the copy never
// touches the committed state.
func (s *state) clone() *state {
	return &state{
		titles:        maps.Clone(s.titles),
		volumes:       maps.Clone(s.volumes),
		members:       maps.Clone(s.members),
		loans:         maps.Clone(s.loans),
		failures:      slices.Clone(s.failures),
		audit:         slices.Clone(s.audit),
		notifications: slices.Clone(s.notifications),
		dedupKeys:     maps.Clone(s.dedupKeys),
		outbox:        slices.Clone(s.outbox),
	}
}

// DB holds the committed state.
type DB struct {
	mu      sync.Mutex
	state   *state
	timeout time.Duration
}

// Option configures a DB.
type Option func(*DB)

// WithTxTimeout bounds transactions whose context has no deadline.
func WithTxTimeout(d time.Duration) Option {
	return func(db *DB) {
		db.timeout = d
	}
}

func New(opts ...Option) *DB {
	db := &DB{state: newState(), timeout: defaultTxTimeout}
	for _, opt := range opts {
		opt(db)
	}
	return db
}

// Health always succeeds; the state lives in process.
func (db *DB) Health(context.Context) error { return nil }

func (db *DB) Close() error { return nil }

// RunInTx implements ports.TxRunner.
func (db *DB) RunInTx(ctx context.Context, fn func(ctx context.Context, st ports.Stores) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline && db.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, db.timeout)
		defer cancel()
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	working := db.state.clone()
	if err := fn(ctx, &stores{st: working}); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return dErrors.Wrap(ctxErr, dErrors.CodeTimeout, "transaction aborted: deadline exceeded")
		}
		return err
	}
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: deadline exceeded before commit")
	}
	db.state = working
	return nil
}

type stores struct {
	st *state
}

func (s *stores) Loans() ports.LoanStore             { return &loanStore{st: s.st} }
func (s *stores) Catalog() catalog.Store             { return &catalogStore{st: s.st} }
func (s *stores) Members() membership.Store          { return &memberStore{st: s.st} }
func (s *stores) AgeFailures() ports.AgeFailureStore { return &ageFailureStore{st: s.st} }
func (s *stores) Audit() audit.Store                 { return &auditStore{st: s.st} }
func (s *stores) Notifications() notification.Store  { return &notificationStore{st: s.st} }

// PutTitle seeds or replaces a title. Catalog CRUD is outside the engine;
// this is how tests and the seed command populate it.
func (db *DB) PutTitle(t catalog.Title) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.titles[t.ID] = t
}

// PutVolume seeds or replaces a volume.
func (db *DB) PutVolume(v catalog.Volume) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.volumes[v.ID] = v
}

// PutMember seeds or replaces a member.
func (db *DB) PutMember(m membership.Member) {
	db.mu.Lock()
	defer db.mu.Unlock()
	db.state.members[m.ID] = m
}

// FetchUnpublished implements outbox.Source.
func (db *DB) FetchUnpublished(_ context.Context, limit int) ([]outbox.Message, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	var out []outbox.Message
	for _, m := range db.state.outbox {
		if m.PublishedAt != nil {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// MarkPublished implements outbox.Source.
func (db *DB) MarkPublished(_ context.Context, ids []string, at time.Time) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	for i := range db.state.outbox {
		if slices.Contains(ids, db.state.outbox[i].ID) {
			db.state.outbox[i].PublishedAt = &at
		}
	}
	return nil
}
