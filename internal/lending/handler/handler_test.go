package handler

import (
	"bytes"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"doccenter/internal/audit"
	"doccenter/internal/lending/handler/mocks"
	"doccenter/internal/lending/models"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service
type LendingHandlerSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	service  *mocks.MockService
	router   chi.Router
	now      time.Time
	tenantID id.TenantID
	memberID id.MemberID
	titleID  id.TitleID
	loanID   id.LoanID
	manager  id.Actor
	member   id.Actor
}

func TestLendingHandlerSuite(t *testing.T) {
	suite.Run(t, new(LendingHandlerSuite))
}

func (s *LendingHandlerSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.service = mocks.NewMockService(s.ctrl)
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	h := New(s.service, logger)
	s.router = chi.NewRouter()
	s.router.Route("/tenants/{tenantID}", h.Register)

	s.now = time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)
	s.tenantID = id.TenantID(uuid.New())
	s.memberID = id.MemberID(uuid.New())
	s.titleID = id.TitleID(uuid.New())
	s.loanID = id.LoanID(uuid.New())
	s.manager = id.Actor{ID: id.UserID(uuid.New()), Groups: []string{id.GroupLibraryManager}}
	s.member = id.Actor{ID: id.UserID(uuid.New())}
}

func (s *LendingHandlerSuite) TearDownTest() {
	s.ctrl.Finish()
}

func (s *LendingHandlerSuite) path(suffix string) string {
	return "/tenants/" + s.tenantID.String() + suffix
}

func (s *LendingHandlerSuite) do(method, target string, actor *id.Actor, body any) *httptest.ResponseRecorder {
	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		s.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, target, reader)
	ctx := requestcontext.WithTime(req.Context(), s.now)
	ctx = requestcontext.WithRequestID(ctx, "req-1")
	if actor != nil {
		ctx = requestcontext.WithActor(ctx, *actor)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req.WithContext(ctx))
	return w
}

func (s *LendingHandlerSuite) decode(w *httptest.ResponseRecorder) map[string]any {
	var out map[string]any
	s.Require().NoError(json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func (s *LendingHandlerSuite) loan(status models.Status) *models.Loan {
	today := id.DateOf(s.now)
	return &models.Loan{
		ID:          s.loanID,
		TenantID:    s.tenantID,
		TitleID:     s.titleID,
		MemberID:    s.memberID,
		Quantity:    1,
		LoanDate:    today.AddDate(0, 0, -10),
		DueDate:     today.AddDate(0, 0, -1),
		Status:      status,
		ProcessedBy: s.manager.Label(),
		CreatedAt:   s.now,
		UpdatedAt:   s.now,
	}
}

func (s *LendingHandlerSuite) TestCreateLoan() {
	s.Run("creates loan and returns its id", func() {
		s.service.EXPECT().
			CreateLoan(gomock.Any(), models.CreateLoanRequest{
				TenantID: s.tenantID,
				MemberID: s.memberID,
				TitleID:  s.titleID,
				Quantity: 2,
				DueDate:  time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
			}, s.member, "key-1").
			Return(s.loan(models.StatusPending), nil)

		w := s.do(http.MethodPost, s.path("/loans"), &s.member, map[string]any{
			"member_id":       s.memberID.String(),
			"title_id":        s.titleID.String(),
			"quantity":        2,
			"due_date":        "2026-03-20",
			"idempotency_key": "key-1",
		})

		s.Equal(http.StatusCreated, w.Code)
		resp := s.decode(w)
		s.Equal(s.loanID.String(), resp["loan_id"])
		loan := resp["loan"].(map[string]any)
		s.Equal("pending", loan["status"])
		s.Equal(false, loan["is_overdue"])
	})

	s.Run("falls back to the idempotency header", func() {
		s.service.EXPECT().
			CreateLoan(gomock.Any(), gomock.Any(), s.member, "from-header").
			Return(s.loan(models.StatusPending), nil)

		raw, _ := json.Marshal(map[string]any{
			"member_id": s.memberID.String(),
			"title_id":  s.titleID.String(),
			"quantity":  1,
			"due_date":  "2026-03-20",
		})
		req := httptest.NewRequest(http.MethodPost, s.path("/loans"), bytes.NewReader(raw))
		req.Header.Set(HeaderIdempotencyKey, "from-header")
		ctx := requestcontext.WithActor(requestcontext.WithTime(req.Context(), s.now), s.member)
		w := httptest.NewRecorder()
		s.router.ServeHTTP(w, req.WithContext(ctx))

		s.Equal(http.StatusCreated, w.Code)
	})

	s.Run("rejects malformed due date before calling the service", func() {
		w := s.do(http.MethodPost, s.path("/loans"), &s.member, map[string]any{
			"member_id": s.memberID.String(),
			"title_id":  s.titleID.String(),
			"quantity":  1,
			"due_date":  "20/03/2026",
		})

		s.Equal(http.StatusBadRequest, w.Code)
		resp := s.decode(w)
		s.Equal("due_date", resp["field"])
	})

	s.Run("maps insufficient inventory to 409", func() {
		s.service.EXPECT().
			CreateLoan(gomock.Any(), gomock.Any(), s.member, "").
			Return(nil, dErrors.New(dErrors.CodeInsufficientInventory, "only 0 available"))

		w := s.do(http.MethodPost, s.path("/loans"), &s.member, map[string]any{
			"member_id": s.memberID.String(),
			"title_id":  s.titleID.String(),
			"quantity":  1,
			"due_date":  "2026-03-20",
		})

		s.Equal(http.StatusConflict, w.Code)
		resp := s.decode(w)
		s.Equal(string(dErrors.CodeInsufficientInventory), resp["error"])
		s.Equal(string(dErrors.KindResourceContention), resp["kind"])
	})

	s.Run("requires an authenticated actor", func() {
		w := s.do(http.MethodPost, s.path("/loans"), nil, map[string]any{})
		s.Equal(http.StatusUnauthorized, w.Code)
	})

	s.Run("rejects malformed tenant", func() {
		w := s.do(http.MethodPost, "/tenants/not-a-uuid/loans", &s.member, map[string]any{})
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *LendingHandlerSuite) TestGetLoanReportsOverdue() {
	view := s.loan(models.StatusBorrowed).View(s.now)
	s.service.EXPECT().GetLoan(gomock.Any(), s.tenantID, s.loanID).Return(&view, nil)

	w := s.do(http.MethodGet, s.path("/loans/"+s.loanID.String()), &s.member, nil)

	s.Equal(http.StatusOK, w.Code)
	resp := s.decode(w)
	s.Equal(true, resp["is_overdue"])
	s.Equal("2026-03-09", resp["due_date"])
	s.NotContains(resp, "return_date")
}

func (s *LendingHandlerSuite) TestGetLoanNotFound() {
	s.service.EXPECT().GetLoan(gomock.Any(), s.tenantID, s.loanID).
		Return(nil, dErrors.New(dErrors.CodeNotFound, "loan not found"))

	w := s.do(http.MethodGet, s.path("/loans/"+s.loanID.String()), &s.member, nil)

	s.Equal(http.StatusNotFound, w.Code)
}

func (s *LendingHandlerSuite) TestTransition() {
	s.Run("passes verb and reason to the service", func() {
		cancelled := s.loan(models.StatusCancelled)
		cancelled.CancellationReason = models.ReasonMemberRequest
		s.service.EXPECT().
			Transition(gomock.Any(), s.tenantID, s.loanID, models.TransitionRequest{
				Verb:   models.VerbCancel,
				Reason: models.ReasonMemberRequest,
				Notes:  "changed plans",
			}, s.manager).
			Return(cancelled, nil)

		w := s.do(http.MethodPost, s.path("/loans/"+s.loanID.String()+"/transitions"), &s.manager, map[string]any{
			"verb":   " Cancel ",
			"reason": "member_request",
			"notes":  " changed plans ",
		})

		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal("cancelled", resp["status"])
		s.Equal("member_request", resp["cancellation_reason"])
	})

	s.Run("refuses the sweeper verb", func() {
		w := s.do(http.MethodPost, s.path("/loans/"+s.loanID.String()+"/transitions"), &s.manager, map[string]any{
			"verb": "tick",
		})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("maps illegal transitions to 409", func() {
		s.service.EXPECT().
			Transition(gomock.Any(), s.tenantID, s.loanID, gomock.Any(), s.manager).
			Return(nil, dErrors.New(dErrors.CodeIllegalTransition, "transition return is not allowed from pending"))

		w := s.do(http.MethodPost, s.path("/loans/"+s.loanID.String()+"/transitions"), &s.manager, map[string]any{
			"verb": "return",
		})

		s.Equal(http.StatusConflict, w.Code)
		s.Equal(string(dErrors.KindStateError), s.decode(w)["kind"])
	})
}

func (s *LendingHandlerSuite) TestAdjustQuantity() {
	s.Run("requires quantity", func() {
		w := s.do(http.MethodPost, s.path("/loans/"+s.loanID.String()+"/quantity"), &s.manager, map[string]any{})
		s.Equal(http.StatusBadRequest, w.Code)
	})

	s.Run("returns the adjusted loan", func() {
		adjusted := s.loan(models.StatusApproved)
		adjusted.Quantity = 3
		s.service.EXPECT().AdjustQuantity(gomock.Any(), s.tenantID, s.loanID, 3, s.manager).Return(adjusted, nil)

		w := s.do(http.MethodPost, s.path("/loans/"+s.loanID.String()+"/quantity"), &s.manager, map[string]any{"quantity": 3})

		s.Equal(http.StatusOK, w.Code)
		s.InDelta(3, s.decode(w)["quantity"], 0)
	})
}

func (s *LendingHandlerSuite) TestDeleteLoan() {
	s.Run("requires a justification", func() {
		w := s.do(http.MethodDelete, s.path("/loans/"+s.loanID.String()), &s.manager, map[string]any{"justification": "  "})
		s.Equal(http.StatusBadRequest, w.Code)
		s.Equal("justification", s.decode(w)["field"])
	})

	s.Run("deletes with trimmed justification", func() {
		s.service.EXPECT().
			Delete(gomock.Any(), s.tenantID, s.loanID, models.DeleteRequest{Justification: "saisie en double"}, s.manager).
			Return(nil)

		w := s.do(http.MethodDelete, s.path("/loans/"+s.loanID.String()), &s.manager, map[string]any{"justification": " saisie en double "})

		s.Equal(http.StatusNoContent, w.Code)
		s.Empty(w.Body.Bytes())
	})

	s.Run("surfaces unexpected errors as internal without detail", func() {
		s.service.EXPECT().
			Delete(gomock.Any(), s.tenantID, s.loanID, gomock.Any(), s.manager).
			Return(errors.New("disk on fire"))

		w := s.do(http.MethodDelete, s.path("/loans/"+s.loanID.String()), &s.manager, map[string]any{"justification": "x"})

		s.Equal(http.StatusInternalServerError, w.Code)
		resp := s.decode(w)
		s.NotContains(resp, "error_description")
	})
}

func (s *LendingHandlerSuite) TestListMemberLoans() {
	s.Run("applies the filter", func() {
		views := []models.LoanView{s.loan(models.StatusOverdue).View(s.now)}
		s.service.EXPECT().ListMemberLoans(gomock.Any(), s.tenantID, s.memberID, models.FilterOverdue).Return(views, nil)

		w := s.do(http.MethodGet, s.path("/members/"+s.memberID.String()+"/loans?filter=overdue"), &s.member, nil)

		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal("overdue", resp["filter"])
		s.InDelta(1, resp["total"], 0)
	})

	s.Run("defaults to all", func() {
		s.service.EXPECT().ListMemberLoans(gomock.Any(), s.tenantID, s.memberID, models.FilterAll).Return(nil, nil)

		w := s.do(http.MethodGet, s.path("/members/"+s.memberID.String()+"/loans"), &s.member, nil)

		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.Equal([]any{}, resp["loans"])
	})

	s.Run("rejects unknown filters", func() {
		w := s.do(http.MethodGet, s.path("/members/"+s.memberID.String()+"/loans?filter=lost"), &s.member, nil)
		s.Equal(http.StatusBadRequest, w.Code)
	})
}

func (s *LendingHandlerSuite) TestStaffOnlyViews() {
	s.Run("members cannot read loan history", func() {
		w := s.do(http.MethodGet, s.path("/loans/"+s.loanID.String()+"/audit"), &s.member, nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("staff read loan history", func() {
		s.service.EXPECT().LoanHistory(gomock.Any(), s.tenantID, s.loanID).Return([]*audit.Entry{{
			ID:          id.AuditEntryID(uuid.New()),
			TenantID:    s.tenantID,
			SubjectKind: audit.SubjectLoan,
			SubjectID:   s.loanID.String(),
			Actor:       s.manager.Label(),
			Action:      audit.ActionLoanCreated,
			ToState:     "pending",
			Timestamp:   s.now,
		}}, nil)

		w := s.do(http.MethodGet, s.path("/loans/"+s.loanID.String()+"/audit"), &s.manager, nil)

		s.Equal(http.StatusOK, w.Code)
		entries := s.decode(w)["entries"].([]any)
		s.Require().Len(entries, 1)
		s.Equal("loan_created", entries[0].(map[string]any)["action"])
	})

	s.Run("members cannot read age failures", func() {
		w := s.do(http.MethodGet, s.path("/members/"+s.memberID.String()+"/age-verification-failures"), &s.member, nil)
		s.Equal(http.StatusForbidden, w.Code)
	})

	s.Run("staff read age failures", func() {
		age := 15
		s.service.EXPECT().ListAgeFailures(gomock.Any(), s.tenantID, s.memberID).Return([]*models.AgeVerificationFailure{{
			ID:          id.AgeFailureID(uuid.New()),
			TenantID:    s.tenantID,
			MemberID:    s.memberID,
			TitleID:     s.titleID,
			AttemptedAt: s.now,
			MemberAge:   &age,
			RequiredAge: 18,
		}}, nil)

		w := s.do(http.MethodGet, s.path("/members/"+s.memberID.String()+"/age-verification-failures"), &s.manager, nil)

		s.Equal(http.StatusOK, w.Code)
		resp := s.decode(w)
		s.InDelta(1, resp["total"], 0)
	})
}
