package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/models"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	"doccenter/pkg/platform/outbox"
	"doccenter/pkg/platform/sentinel"
)

type catalogStore struct{ st *state }

func (s *catalogStore) FindTitle(_ context.Context, tenantID id.TenantID, titleID id.TitleID) (*catalog.Title, error) {
	t, ok := s.st.titles[titleID]
	if !ok || t.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return &t, nil
}

func (s *catalogStore) FindVolume(_ context.Context, tenantID id.TenantID, volumeID id.VolumeID) (*catalog.Volume, error) {
	v, ok := s.st.volumes[volumeID]
	if !ok || v.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return &v, nil
}

func (s *catalogStore) AdjustTitle(_ context.Context, tenantID id.TenantID, titleID id.TitleID, delta int) error {
	t, ok := s.st.titles[titleID]
	if !ok || t.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	next, err := adjusted(t.AvailableQuantity, t.TotalQuantity, delta)
	if err != nil {
		return err
	}
	t.AvailableQuantity = next
	s.st.titles[titleID] = t
	return nil
}

func (s *catalogStore) AdjustVolume(_ context.Context, tenantID id.TenantID, volumeID id.VolumeID, delta int) error {
	v, ok := s.st.volumes[volumeID]
	if !ok || v.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	next, err := adjusted(v.AvailableQuantity, v.TotalQuantity, delta)
	if err != nil {
		return err
	}
	v.AvailableQuantity = next
	s.st.volumes[volumeID] = v
	return nil
}

func adjusted(available, total, delta int) (int, error) {
	next := available + delta
	switch {
	case next < 0:
		return 0, sentinel.ErrInsufficient
	case next > total:
		return 0, sentinel.ErrInvalidState
	}
	return next, nil
}

type memberStore struct{ st *state }

func (s *memberStore) FindMember(_ context.Context, tenantID id.TenantID, memberID id.MemberID) (*membership.Member, error) {
	m, ok := s.st.members[memberID]
	if !ok || m.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return &m, nil
}

type loanStore struct{ st *state }

func (s *loanStore) Create(_ context.Context, loan *models.Loan) error {
	if _, exists := s.st.loans[loan.ID]; exists {
		return sentinel.ErrConflict
	}
	s.st.loans[loan.ID] = *loan
	return nil
}

func (s *loanStore) FindByID(_ context.Context, tenantID id.TenantID, loanID id.LoanID) (*models.Loan, error) {
	l, ok := s.st.loans[loanID]
	if !ok || l.TenantID != tenantID {
		return nil, sentinel.ErrNotFound
	}
	return &l, nil
}

func (s *loanStore) Update(_ context.Context, loan *models.Loan) error {
	existing, ok := s.st.loans[loan.ID]
	if !ok || existing.TenantID != loan.TenantID {
		return sentinel.ErrNotFound
	}
	s.st.loans[loan.ID] = *loan
	return nil
}

func (s *loanStore) Delete(_ context.Context, tenantID id.TenantID, loanID id.LoanID) error {
	l, ok := s.st.loans[loanID]
	if !ok || l.TenantID != tenantID {
		return sentinel.ErrNotFound
	}
	delete(s.st.loans, loanID)
	return nil
}

func (s *loanStore) ListByMember(_ context.Context, tenantID id.TenantID, memberID id.MemberID, statuses []models.Status) ([]*models.Loan, error) {
	var out []*models.Loan
	for _, l := range s.st.loans {
		if l.TenantID != tenantID || l.MemberID != memberID {
			continue
		}
		if statuses != nil && !slices.Contains(statuses, l.Status) {
			continue
		}
		out = append(out, &l)
	}
	sortLoans(out)
	return out, nil
}

func (s *loanStore) ListOutDueBy(_ context.Context, cutoff time.Time) ([]*models.Loan, error) {
	out := []*models.Loan{}
	for _, l := range s.st.loans {
		switch l.Status {
		case models.StatusApproved, models.StatusBorrowed, models.StatusOverdue:
		default:
			continue
		}
		if l.DueDate.After(cutoff) {
			continue
		}
		out = append(out, &l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].DueDate.Before(out[j].DueDate) })
	return out, nil
}

func sortLoans(loans []*models.Loan) {
	sort.Slice(loans, func(i, j int) bool {
		return loans[i].CreatedAt.After(loans[j].CreatedAt)
	})
}

type ageFailureStore struct{ st *state }

func (s *ageFailureStore) Create(_ context.Context, f *models.AgeVerificationFailure) error {
	s.st.failures = append(s.st.failures, *f)
	return nil
}

func (s *ageFailureStore) ListByMember(_ context.Context, tenantID id.TenantID, memberID id.MemberID) ([]*models.AgeVerificationFailure, error) {
	var out []*models.AgeVerificationFailure
	for _, f := range s.st.failures {
		if f.TenantID == tenantID && f.MemberID == memberID {
			out = append(out, &f)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AttemptedAt.After(out[j].AttemptedAt) })
	return out, nil
}

type auditStore struct{ st *state }

// Append records the entry and its outbox row together.
func (s *auditStore) Append(_ context.Context, e *audit.Entry) error {
	msg, err := outbox.NewMessage(string(e.SubjectKind), e.SubjectID, string(e.Action), e, e.Timestamp)
	if err != nil {
		return err
	}
	s.st.audit = append(s.st.audit, *e)
	s.st.outbox = append(s.st.outbox, msg)
	return nil
}

func (s *auditStore) ListBySubject(_ context.Context, tenantID id.TenantID, subjectID string) ([]*audit.Entry, error) {
	var out []*audit.Entry
	for _, e := range s.st.audit {
		if e.TenantID == tenantID && e.SubjectID == subjectID {
			out = append(out, &e)
		}
	}
	return out, nil
}

type notificationStore struct{ st *state }

func (s *notificationStore) Create(_ context.Context, n *notification.Notification) error {
	if n.DedupKey != "" {
		if _, dup := s.st.dedupKeys[n.DedupKey]; dup {
			return sentinel.ErrConflict
		}
		s.st.dedupKeys[n.DedupKey] = struct{}{}
	}
	s.st.notifications = append(s.st.notifications, *n)
	return nil
}

func (s *notificationStore) LastCreated(_ context.Context, tenantID id.TenantID, recipient notification.Recipient, loanID id.LoanID, event models.EventKind) (time.Time, bool, error) {
	var last time.Time
	found := false
	for _, n := range s.st.notifications {
		if n.TenantID != tenantID || n.Recipient != recipient || n.Event != event {
			continue
		}
		if n.LoanID == nil || *n.LoanID != loanID {
			continue
		}
		if !found || n.CreatedAt.After(last) {
			last, found = n.CreatedAt, true
		}
	}
	return last, found, nil
}

func (s *notificationStore) ListForRecipient(_ context.Context, tenantID id.TenantID, recipient notification.Recipient, unreadOnly bool, limit int) ([]*notification.Notification, error) {
	var out []*notification.Notification
	for i := len(s.st.notifications) - 1; i >= 0; i-- {
		n := s.st.notifications[i]
		if n.TenantID != tenantID || n.Recipient != recipient || (unreadOnly && n.Read) {
			continue
		}
		out = append(out, &n)
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *notificationStore) FindByID(_ context.Context, tenantID id.TenantID, notificationID id.NotificationID) (*notification.Notification, error) {
	for _, n := range s.st.notifications {
		if n.ID == notificationID && n.TenantID == tenantID {
			return &n, nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *notificationStore) MarkRead(_ context.Context, tenantID id.TenantID, notificationID id.NotificationID) error {
	for i := range s.st.notifications {
		n := &s.st.notifications[i]
		if n.ID == notificationID && n.TenantID == tenantID {
			n.Read = true
			return nil
		}
	}
	return sentinel.ErrNotFound
}
