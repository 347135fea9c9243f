package sqlstore

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"doccenter/internal/audit"
	"doccenter/internal/catalog"
	"doccenter/internal/lending/idempotency"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/ports"
	"doccenter/internal/lending/service"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/sentinel"
	"doccenter/pkg/requestcontext"
)

// StoreSuite runs against any dialect; open supplies a migrated, empty DB.
type StoreSuite struct {
	suite.Suite
	open     func() *DB
	db       *DB
	ctx      context.Context
	now      time.Time
	today    time.Time
	tenantID id.TenantID
	service  *service.Service
	manager  id.Actor
	desk     id.Actor
}

func (s *StoreSuite) SetupTest() {
	s.db = s.open()
	s.now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	s.today = id.DateOf(s.now)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
	s.tenantID = id.TenantID(uuid.New())
	s.service = service.New(s.db, idempotency.NewMemoryGuard(), notification.NewDispatcher(notification.DefaultConfig()))
	s.manager = id.Actor{ID: id.UserID(uuid.New()), Groups: []string{id.GroupLibraryManager}}
	s.desk = id.Actor{ID: id.UserID(uuid.New()), Groups: []string{id.GroupLibrarian}}
}

func (s *StoreSuite) seedTitle(total, minAge int) catalog.Title {
	t := catalog.Title{
		ID:                 id.TitleID(uuid.New()),
		TenantID:           s.tenantID,
		Name:               "Une si longue lettre",
		MinimumAgeRequired: minAge,
		TotalQuantity:      total,
		AvailableQuantity:  total,
		Status:             catalog.TitleAvailable,
	}
	s.Require().NoError(s.db.PutTitle(s.ctx, t))
	return t
}

func (s *StoreSuite) seedMember(dob *time.Time) membership.Member {
	userID := id.UserID(uuid.New())
	m := membership.Member{
		ID:          id.MemberID(uuid.New()),
		TenantID:    s.tenantID,
		Name:        "Moussa Diop",
		Email:       "moussa.diop@example.org",
		UserID:      &userID,
		DateOfBirth: dob,
		Active:      true,
	}
	s.Require().NoError(s.db.PutMember(s.ctx, m))
	return m
}

func (s *StoreSuite) request(memberID id.MemberID, titleID id.TitleID, qty int) models.CreateLoanRequest {
	return models.CreateLoanRequest{
		TenantID: s.tenantID,
		MemberID: memberID,
		TitleID:  titleID,
		Quantity: qty,
		DueDate:  s.today.AddDate(0, 0, 14),
	}
}

func (s *StoreSuite) title(titleID id.TitleID) *catalog.Title {
	var out *catalog.Title
	err := s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		var err error
		out, err = st.Catalog().FindTitle(ctx, s.tenantID, titleID)
		return err
	})
	s.Require().NoError(err)
	return out
}

func (s *StoreSuite) TestMigrateIsIdempotent() {
	s.NoError(s.db.Migrate(s.ctx))
}

func (s *StoreSuite) TestSeedRoundTrip() {
	dob := time.Date(1990, 7, 14, 0, 0, 0, 0, time.UTC)
	member := s.seedMember(&dob)
	title := s.seedTitle(4, 12)
	volume := catalog.Volume{
		ID:                id.VolumeID(uuid.New()),
		TenantID:          s.tenantID,
		TitleID:           title.ID,
		Number:            2,
		TotalQuantity:     3,
		AvailableQuantity: 3,
	}
	s.Require().NoError(s.db.PutVolume(s.ctx, volume))

	member.Suspension = membership.Suspension{Suspended: true, Reason: "retards répétés"}
	s.Require().NoError(s.db.PutMember(s.ctx, member))

	err := s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		gotMember, err := st.Members().FindMember(ctx, s.tenantID, member.ID)
		s.Require().NoError(err)
		s.Equal(member.Name, gotMember.Name)
		s.Equal(*member.UserID, *gotMember.UserID)
		s.Require().NotNil(gotMember.DateOfBirth)
		s.True(dob.Equal(*gotMember.DateOfBirth))
		s.True(gotMember.Suspension.Suspended)
		s.Equal("retards répétés", gotMember.Suspension.Reason)

		gotVolume, err := st.Catalog().FindVolume(ctx, s.tenantID, volume.ID)
		s.Require().NoError(err)
		s.Equal(volume, *gotVolume)

		gotTitle, err := st.Catalog().FindTitle(ctx, s.tenantID, title.ID)
		s.Require().NoError(err)
		s.Equal(title, *gotTitle)

		_, err = st.Catalog().FindTitle(ctx, id.TenantID(uuid.New()), title.ID)
		s.ErrorIs(err, sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestAdjustClassifiesRejectedDeltas() {
	title := s.seedTitle(2, 0)

	err := s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		cat := st.Catalog()
		s.ErrorIs(cat.AdjustTitle(ctx, s.tenantID, title.ID, -3), sentinel.ErrInsufficient)
		s.ErrorIs(cat.AdjustTitle(ctx, s.tenantID, title.ID, 1), sentinel.ErrInvalidState)
		s.ErrorIs(cat.AdjustTitle(ctx, s.tenantID, id.TitleID(uuid.New()), -1), sentinel.ErrNotFound)
		s.ErrorIs(cat.AdjustVolume(ctx, s.tenantID, id.VolumeID(uuid.New()), 1), sentinel.ErrNotFound)
		return cat.AdjustTitle(ctx, s.tenantID, title.ID, -2)
	})
	s.Require().NoError(err)
	s.Equal(0, s.title(title.ID).AvailableQuantity)
}

func (s *StoreSuite) TestFailedCallbackRollsBack() {
	title := s.seedTitle(2, 0)
	boom := errors.New("boom")

	err := s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		s.Require().NoError(st.Catalog().AdjustTitle(ctx, s.tenantID, title.ID, -1))
		return boom
	})
	s.ErrorIs(err, boom)
	s.Equal(2, s.title(title.ID).AvailableQuantity)
}

func (s *StoreSuite) TestCancelledContextIsTimeout() {
	ctx, cancel := context.WithCancel(s.ctx)
	cancel()
	err := s.db.RunInTx(ctx, func(context.Context, ports.Stores) error {
		s.Fail("callback must not run")
		return nil
	})
	s.True(dErrors.HasCode(err, dErrors.CodeTimeout))
}

func (s *StoreSuite) TestDeadlineDuringCallbackIsTimeout() {
	title := s.seedTitle(2, 0)
	ctx, cancel := context.WithTimeout(s.ctx, 50*time.Millisecond)
	defer cancel()

	err := s.db.RunInTx(ctx, func(ctx context.Context, st ports.Stores) error {
		s.Require().NoError(st.Catalog().AdjustTitle(ctx, s.tenantID, title.ID, -1))
		time.Sleep(100 * time.Millisecond)
		if _, err := st.Loans().FindByID(ctx, s.tenantID, id.LoanID(uuid.New())); err != nil {
			return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load loan")
		}
		return nil
	})

	s.True(dErrors.HasCode(err, dErrors.CodeTimeout), "got %v", err)
	s.Equal(2, s.title(title.ID).AvailableQuantity)
}

func (s *StoreSuite) TestStoresRequireTransactionContext() {
	title := s.seedTitle(1, 0)
	var leaked ports.Stores
	s.Require().NoError(s.db.RunInTx(s.ctx, func(_ context.Context, st ports.Stores) error {
		leaked = st
		return nil
	}))

	_, err := leaked.Catalog().FindTitle(s.ctx, s.tenantID, title.ID)
	s.ErrorIs(err, errNoTx)
}

func (s *StoreSuite) TestLifecyclePersistsLoanAuditAndOutbox() {
	title := s.seedTitle(2, 0)
	member := s.seedMember(nil)

	loan, err := s.service.CreateLoan(s.ctx, s.request(member.ID, title.ID, 2), s.desk, "")
	s.Require().NoError(err)
	s.Equal(0, s.title(title.ID).AvailableQuantity)

	_, err = s.service.Approve(s.ctx, s.tenantID, loan.ID, s.manager)
	s.Require().NoError(err)
	_, err = s.service.HandOut(s.ctx, s.tenantID, loan.ID, s.desk)
	s.Require().NoError(err)
	returned, err := s.service.Return(requestcontext.WithTime(s.ctx, s.now.AddDate(0, 0, 3)), s.tenantID, loan.ID, s.desk)
	s.Require().NoError(err)
	s.Require().NotNil(returned.ReturnDate)

	view, err := s.service.GetLoan(s.ctx, s.tenantID, loan.ID)
	s.Require().NoError(err)
	s.Equal(models.StatusReturned, view.Status)
	s.Equal(s.today, view.LoanDate)
	s.Equal(s.today.AddDate(0, 0, 14), view.DueDate)
	s.Equal(s.today.AddDate(0, 0, 3), *view.ReturnDate)
	s.Equal(2, s.title(title.ID).AvailableQuantity)

	history, err := s.service.LoanHistory(s.ctx, s.tenantID, loan.ID)
	s.Require().NoError(err)
	s.Require().Len(history, 4)
	s.Equal(audit.ActionLoanCreated, history[0].Action)
	s.Equal(string(models.StatusReturned), history[3].ToState)

	pending, err := s.db.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Require().Len(pending, 4)
	s.Equal(loan.ID.String(), pending[0].AggregateID)
	s.Equal(string(audit.ActionLoanCreated), pending[0].EventType)

	ids := []string{pending[0].ID, pending[1].ID}
	s.Require().NoError(s.db.MarkPublished(s.ctx, ids, s.now))
	pending, err = s.db.FetchUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 2)
}

func (s *StoreSuite) TestLastCopyContention() {
	title := s.seedTitle(1, 0)
	members := []membership.Member{s.seedMember(nil), s.seedMember(nil), s.seedMember(nil), s.seedMember(nil)}

	var (
		wg   sync.WaitGroup
		errs = make([]error, len(members))
	)
	for i, m := range members {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = s.service.CreateLoan(s.ctx, s.request(m.ID, title.ID, 1), s.desk, "")
		}()
	}
	wg.Wait()

	allowed := 0
	for _, err := range errs {
		switch {
		case err == nil:
			allowed++
		case dErrors.HasCode(err, dErrors.CodeInsufficientInventory):
		default:
			s.Failf("unexpected error", "%v", err)
		}
	}
	s.Equal(1, allowed)
	s.Equal(0, s.title(title.ID).AvailableQuantity)
}

func (s *StoreSuite) TestAgeDenialIsCommitted() {
	title := s.seedTitle(1, 18)
	dob := s.today.AddDate(-17, 0, 0)
	member := s.seedMember(&dob)

	_, err := s.service.CreateLoan(s.ctx, s.request(member.ID, title.ID, 1), s.desk, "")
	s.True(dErrors.HasCode(err, dErrors.CodeAgeRestricted))

	failures, err := s.service.ListAgeFailures(s.ctx, s.tenantID, member.ID)
	s.Require().NoError(err)
	s.Require().Len(failures, 1)
	s.Equal(18, failures[0].RequiredAge)
	s.Require().NotNil(failures[0].MemberAge)
	s.Equal(17, *failures[0].MemberAge)
	s.Equal(1, s.title(title.ID).AvailableQuantity)
}

func (s *StoreSuite) TestListQueries() {
	title := s.seedTitle(5, 0)
	member := s.seedMember(nil)

	first, err := s.service.CreateLoan(s.ctx, s.request(member.ID, title.ID, 1), s.desk, "")
	s.Require().NoError(err)
	later := requestcontext.WithTime(s.ctx, s.now.Add(time.Minute))
	second, err := s.service.CreateLoan(later, s.request(member.ID, title.ID, 1), s.desk, "")
	s.Require().NoError(err)
	_, err = s.service.Approve(s.ctx, s.tenantID, first.ID, s.manager)
	s.Require().NoError(err)

	err = s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		all, err := st.Loans().ListByMember(ctx, s.tenantID, member.ID, nil)
		s.Require().NoError(err)
		s.Require().Len(all, 2)
		s.Equal(second.ID, all[0].ID, "newest first")

		pending, err := st.Loans().ListByMember(ctx, s.tenantID, member.ID, []models.Status{models.StatusPending})
		s.Require().NoError(err)
		s.Require().Len(pending, 1)
		s.Equal(second.ID, pending[0].ID)

		due, err := st.Loans().ListOutDueBy(ctx, s.today.AddDate(0, 0, 14))
		s.Require().NoError(err)
		s.Require().Len(due, 1, "pending loans are not out")
		s.Equal(first.ID, due[0].ID)

		none, err := st.Loans().ListOutDueBy(ctx, s.today.AddDate(0, 0, 13))
		s.Require().NoError(err)
		s.Empty(none)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestDeleteAndConflicts() {
	title := s.seedTitle(2, 0)
	member := s.seedMember(nil)
	loan, err := s.service.CreateLoan(s.ctx, s.request(member.ID, title.ID, 1), s.desk, "")
	s.Require().NoError(err)

	err = s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		stored, err := st.Loans().FindByID(ctx, s.tenantID, loan.ID)
		s.Require().NoError(err)
		s.ErrorIs(st.Loans().Create(ctx, stored), sentinel.ErrConflict)
		s.Require().NoError(st.Loans().Delete(ctx, s.tenantID, loan.ID))
		s.ErrorIs(st.Loans().Delete(ctx, s.tenantID, loan.ID), sentinel.ErrNotFound)
		s.ErrorIs(st.Loans().Update(ctx, stored), sentinel.ErrNotFound)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestNotificationDedupAndReadState() {
	loanID := id.LoanID(uuid.New())
	recipient := notification.IdentityRecipient(id.UserID(uuid.New()))
	newNotification := func(at time.Time, key string) *notification.Notification {
		return &notification.Notification{
			ID:        id.NotificationID(uuid.New()),
			TenantID:  s.tenantID,
			Recipient: recipient,
			LoanID:    &loanID,
			Event:     models.EventLoanOverdue,
			Message:   "Votre emprunt est en retard.",
			Kind:      notification.KindAlert,
			CreatedAt: at,
			DedupKey:  key,
		}
	}

	first := newNotification(s.now, "k1")
	err := s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		store := st.Notifications()
		s.Require().NoError(store.Create(ctx, first))
		s.ErrorIs(store.Create(ctx, newNotification(s.now, "k1")), sentinel.ErrConflict)
		s.Require().NoError(store.Create(ctx, newNotification(s.now.Add(time.Hour), "k2")))
		s.Require().NoError(store.Create(ctx, newNotification(s.now.Add(2*time.Hour), "")))

		last, ok, err := store.LastCreated(ctx, s.tenantID, recipient, loanID, models.EventLoanOverdue)
		s.Require().NoError(err)
		s.True(ok)
		s.True(s.now.Add(2 * time.Hour).Equal(last))

		_, ok, err = store.LastCreated(ctx, s.tenantID, notification.CenterRecipient(), loanID, models.EventLoanOverdue)
		s.Require().NoError(err)
		s.False(ok)

		s.Require().NoError(store.MarkRead(ctx, s.tenantID, first.ID))
		s.ErrorIs(store.MarkRead(ctx, s.tenantID, id.NotificationID(uuid.New())), sentinel.ErrNotFound)

		unread, err := store.ListForRecipient(ctx, s.tenantID, recipient, true, 0)
		s.Require().NoError(err)
		s.Len(unread, 2)

		recent, err := store.ListForRecipient(ctx, s.tenantID, recipient, false, 1)
		s.Require().NoError(err)
		s.Require().Len(recent, 1)
		s.Empty(recent[0].DedupKey)

		got, err := store.FindByID(ctx, s.tenantID, first.ID)
		s.Require().NoError(err)
		s.True(got.Read)
		s.Equal(recipient, got.Recipient)
		s.Equal(loanID, *got.LoanID)
		return nil
	})
	s.Require().NoError(err)
}

func (s *StoreSuite) TestResetEmptiesTables() {
	title := s.seedTitle(1, 0)
	s.Require().NoError(s.db.Reset(s.ctx))

	err := s.db.RunInTx(s.ctx, func(ctx context.Context, st ports.Stores) error {
		_, err := st.Catalog().FindTitle(ctx, s.tenantID, title.ID)
		return err
	})
	s.ErrorIs(err, sentinel.ErrNotFound)
}
