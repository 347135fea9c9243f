package sweeper

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"doccenter/internal/catalog"
	"doccenter/internal/lending/idempotency"
	"doccenter/internal/lending/models"
	"doccenter/internal/lending/service"
	"doccenter/internal/membership"
	"doccenter/internal/notification"
	"doccenter/internal/store/memory"
	id "doccenter/pkg/domain"
	"doccenter/pkg/requestcontext"
)

type SweeperSuite struct {
	suite.Suite
	now      time.Time
	tenantID id.TenantID
	db       *memory.DB
	lending  *service.Service
	sweeper  *Sweeper
	title    catalog.Title
	member   membership.Member
	manager  id.Actor
}

func TestSweeperSuite(t *testing.T) {
	suite.Run(t, new(SweeperSuite))
}

func (s *SweeperSuite) SetupTest() {
	s.now = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)
	s.tenantID = id.TenantID(uuid.New())
	s.db = memory.New()
	dispatcher := notification.NewDispatcher(notification.DefaultConfig())
	s.lending = service.New(s.db, idempotency.NewMemoryGuard(), dispatcher)
	s.sweeper = New(s.db, dispatcher)
	s.manager = id.Actor{ID: id.UserID(uuid.New()), Groups: []string{id.GroupCenterAdmin}}

	s.title = catalog.Title{ID: id.TitleID(uuid.New()), TenantID: s.tenantID, Name: "Sous l'orage",
		TotalQuantity: 5, AvailableQuantity: 5, Status: catalog.TitleAvailable}
	s.db.PutTitle(s.title)
	userID := id.UserID(uuid.New())
	s.member = membership.Member{ID: id.MemberID(uuid.New()), TenantID: s.tenantID, Name: "Kadia",
		UserID: &userID, Active: true}
	s.db.PutMember(s.member)
}

// borrow creates and hands out a loan dated `created` days from now, due
// `due` days from now.
func (s *SweeperSuite) borrow(created, due int) *models.Loan {
	ctx := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, created))
	loan, err := s.lending.CreateLoan(ctx, models.CreateLoanRequest{
		TenantID: s.tenantID,
		MemberID: s.member.ID,
		TitleID:  s.title.ID,
		Quantity: 1,
		DueDate:  id.DateOf(s.now).AddDate(0, 0, due),
	}, s.manager, "")
	s.Require().NoError(err)
	_, err = s.lending.Approve(ctx, s.tenantID, loan.ID, s.manager)
	s.Require().NoError(err)
	_, err = s.lending.HandOut(ctx, s.tenantID, loan.ID, s.manager)
	s.Require().NoError(err)
	return loan
}

func (s *SweeperSuite) notifications(kind models.EventKind, loanID id.LoanID) []notification.Notification {
	var out []notification.Notification
	for _, n := range s.db.AllNotifications() {
		if n.Event == kind && n.LoanID != nil && *n.LoanID == loanID {
			out = append(out, n)
		}
	}
	return out
}

func (s *SweeperSuite) status(loanID id.LoanID) models.Status {
	loan, ok := s.db.Loan(loanID)
	s.Require().True(ok)
	return loan.Status
}

func (s *SweeperSuite) TestMarksOverdueOnceAndDeduplicates() {
	loan := s.borrow(-10, -1)

	res, err := s.sweeper.RunOverdueSweep(context.Background(), s.now)
	s.Require().NoError(err)
	s.Equal(1, res.MarkedOverdue)
	s.Equal(models.StatusOverdue, s.status(loan.ID))

	overdue := s.notifications(models.EventLoanOverdue, loan.ID)
	s.Require().Len(overdue, 2)
	recipients := []notification.Recipient{overdue[0].Recipient, overdue[1].Recipient}
	s.Contains(recipients, notification.CenterRecipient())
	s.Contains(recipients, notification.IdentityRecipient(*s.member.UserID))

	res, err = s.sweeper.RunOverdueSweep(context.Background(), s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Equal(0, res.MarkedOverdue)
	s.Equal(1, res.Reminded)
	s.Equal(models.StatusOverdue, s.status(loan.ID))
	s.Len(s.notifications(models.EventLoanOverdue, loan.ID), 2)

	stored, _ := s.db.Loan(loan.ID)
	s.Nil(stored.ReturnDate)
	got, _ := s.db.Title(s.title.ID)
	s.Equal(4, got.AvailableQuantity)
}

func (s *SweeperSuite) TestRemindersRepeatAfterWindow() {
	loan := s.borrow(-10, -1)

	_, err := s.sweeper.RunOverdueSweep(context.Background(), s.now)
	s.Require().NoError(err)
	_, err = s.sweeper.RunOverdueSweep(context.Background(), s.now.Add(73*time.Hour))
	s.Require().NoError(err)

	s.Len(s.notifications(models.EventLoanOverdue, loan.ID), 4)
}

func (s *SweeperSuite) TestDueSoon() {
	soon := s.borrow(-5, 2)
	later := s.borrow(-5, 3)
	today := s.borrow(-5, 0)

	res, err := s.sweeper.RunOverdueSweep(context.Background(), s.now)
	s.Require().NoError(err)
	s.Equal(2, res.DueSoon)
	s.Equal(0, res.MarkedOverdue)

	s.Len(s.notifications(models.EventLoanDueSoon, soon.ID), 1)
	s.Len(s.notifications(models.EventLoanDueSoon, today.ID), 1)
	s.Empty(s.notifications(models.EventLoanDueSoon, later.ID))
	s.Equal(models.StatusBorrowed, s.status(today.ID))

	_, err = s.sweeper.RunOverdueSweep(context.Background(), s.now.Add(6*time.Hour))
	s.Require().NoError(err)
	s.Len(s.notifications(models.EventLoanDueSoon, soon.ID), 1)
}

func (s *SweeperSuite) TestSkipsReturnedAndPendingLoans() {
	returned := s.borrow(-10, -1)
	_, err := s.lending.Return(requestcontext.WithTime(context.Background(), s.now), s.tenantID, returned.ID, s.manager)
	s.Require().NoError(err)

	pending, err := s.lending.CreateLoan(requestcontext.WithTime(context.Background(), s.now), models.CreateLoanRequest{
		TenantID: s.tenantID, MemberID: s.member.ID, TitleID: s.title.ID, Quantity: 1, DueDate: id.DateOf(s.now).AddDate(0, 0, 1),
	}, s.manager, "")
	s.Require().NoError(err)

	res, err := s.sweeper.RunOverdueSweep(context.Background(), s.now)
	s.Require().NoError(err)
	s.Zero(res.MarkedOverdue)
	s.Zero(res.DueSoon)
	s.Equal(models.StatusReturned, s.status(returned.ID))
	s.Empty(s.notifications(models.EventLoanDueSoon, pending.ID))
}

func (s *SweeperSuite) TestApprovedLoansAlsoTickOverdue() {
	ctx := requestcontext.WithTime(context.Background(), s.now.AddDate(0, 0, -3))
	loan, err := s.lending.CreateLoan(ctx, models.CreateLoanRequest{
		TenantID: s.tenantID, MemberID: s.member.ID, TitleID: s.title.ID, Quantity: 1, DueDate: id.DateOf(s.now).AddDate(0, 0, -1),
	}, s.manager, "")
	s.Require().NoError(err)
	_, err = s.lending.Approve(ctx, s.tenantID, loan.ID, s.manager)
	s.Require().NoError(err)

	res, err := s.sweeper.RunOverdueSweep(context.Background(), s.now)
	s.Require().NoError(err)
	s.Equal(1, res.MarkedOverdue)
	s.Equal(models.StatusOverdue, s.status(loan.ID))
}

func (s *SweeperSuite) TestRunStopsOnCancel() {
	ctx, cancel := context.WithCancel(context.Background())
	sw := New(s.db, notification.NewDispatcher(notification.DefaultConfig()),
		WithInterval(time.Millisecond), WithClock(func() time.Time { return s.now }))
	done := make(chan error, 1)
	go func() { done <- sw.Run(ctx) }()
	cancel()
	select {
	case err := <-done:
		s.NoError(err)
	case <-time.After(2 * time.Second):
		s.Fail("sweeper did not stop")
	}
}
