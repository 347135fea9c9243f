package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"doccenter/internal/audit"
	"doccenter/internal/lending/models"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/httputil"
	"doccenter/pkg/requestcontext"
)

// HeaderIdempotencyKey may carry the idempotency key instead of the body.
const HeaderIdempotencyKey = "Idempotency-Key"

// Service defines the lending operations exposed over HTTP.
type Service interface {
	CreateLoan(ctx context.Context, req models.CreateLoanRequest, actor id.Actor, idempotencyKey string) (*models.Loan, error)
	Transition(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, req models.TransitionRequest, actor id.Actor) (*models.Loan, error)
	AdjustQuantity(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, qty int, actor id.Actor) (*models.Loan, error)
	Delete(ctx context.Context, tenantID id.TenantID, loanID id.LoanID, req models.DeleteRequest, actor id.Actor) error
	GetLoan(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) (*models.LoanView, error)
	ListMemberLoans(ctx context.Context, tenantID id.TenantID, memberID id.MemberID, filter models.ListFilter) ([]models.LoanView, error)
	ListAgeFailures(ctx context.Context, tenantID id.TenantID, memberID id.MemberID) ([]*models.AgeVerificationFailure, error)
	LoanHistory(ctx context.Context, tenantID id.TenantID, loanID id.LoanID) ([]*audit.Entry, error)
}

// Handler wires lending endpoints to the lending service.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a lending handler with its dependencies.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// Register mounts lending endpoints on a router already scoped to
// /tenants/{tenantID} and behind authentication.
func (h *Handler) Register(r chi.Router) {
	r.Post("/loans", h.HandleCreateLoan)
	r.Get("/loans/{loanID}", h.HandleGetLoan)
	r.Delete("/loans/{loanID}", h.HandleDeleteLoan)
	r.Post("/loans/{loanID}/transitions", h.HandleTransition)
	r.Post("/loans/{loanID}/quantity", h.HandleAdjustQuantity)
	r.Get("/loans/{loanID}/audit", h.HandleLoanHistory)
	r.Get("/members/{memberID}/loans", h.HandleListMemberLoans)
	r.Get("/members/{memberID}/age-verification-failures", h.HandleListAgeFailures)
}

// scope resolves the authenticated actor and the route tenant. On failure
// it writes the error and returns ok=false.
func (h *Handler) scope(w http.ResponseWriter, r *http.Request) (id.Actor, id.TenantID, bool) {
	actor, ok := requestcontext.Actor(r.Context())
	if !ok || actor.ID.IsNil() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.Actor{}, id.TenantID{}, false
	}
	tenantID, err := id.ParseTenantID(chi.URLParam(r, "tenantID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.Actor{}, id.TenantID{}, false
	}
	return actor, tenantID, true
}

func loanIDParam(w http.ResponseWriter, r *http.Request) (id.LoanID, bool) {
	loanID, err := id.ParseLoanID(chi.URLParam(r, "loanID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.LoanID{}, false
	}
	return loanID, true
}

func memberIDParam(w http.ResponseWriter, r *http.Request) (id.MemberID, bool) {
	memberID, err := id.ParseMemberID(chi.URLParam(r, "memberID"))
	if err != nil {
		httputil.WriteError(w, err)
		return id.MemberID{}, false
	}
	return memberID, true
}

// fail logs at warn for caller mistakes and denials, at error otherwise.
func (h *Handler) fail(ctx context.Context, w http.ResponseWriter, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "code", dErrors.CodeOf(err), "error", err)
	if dErrors.CodeOf(err).Kind() == dErrors.KindInternal {
		h.logger.ErrorContext(ctx, msg, attrs...)
	} else {
		h.logger.WarnContext(ctx, msg, attrs...)
	}
	httputil.WriteError(w, err)
}

// HandleCreateLoan handles POST /loans.
func (h *Handler) HandleCreateLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[CreateLoanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	key := req.IdempotencyKey
	if key == "" {
		key = r.Header.Get(HeaderIdempotencyKey)
	}

	loan, err := h.service.CreateLoan(ctx, req.ToDomain(tenantID), actor, key)
	if err != nil {
		h.fail(ctx, w, "loan request refused", err,
			"member_id", req.MemberID,
			"title_id", req.TitleID,
		)
		return
	}

	h.logger.InfoContext(ctx, "loan created",
		"request_id", requestID,
		"loan_id", loan.ID.String(),
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateLoanResponse{
		LoanID: loan.ID.String(),
		Loan:   FromView(loan.View(requestcontext.Now(ctx))),
	})
}

// HandleGetLoan handles GET /loans/{loanID}.
func (h *Handler) HandleGetLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	view, err := h.service.GetLoan(ctx, tenantID, loanID)
	if err != nil {
		h.fail(ctx, w, "failed to get loan", err, "loan_id", loanID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(*view))
}

// HandleTransition handles POST /loans/{loanID}/transitions.
func (h *Handler) HandleTransition(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[TransitionRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	loan, err := h.service.Transition(ctx, tenantID, loanID, req.ToDomain(), actor)
	if err != nil {
		h.fail(ctx, w, "loan transition refused", err,
			"loan_id", loanID.String(),
			"verb", req.Verb,
		)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(loan.View(requestcontext.Now(ctx))))
}

// HandleAdjustQuantity handles POST /loans/{loanID}/quantity.
func (h *Handler) HandleAdjustQuantity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AdjustQuantityRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	loan, err := h.service.AdjustQuantity(ctx, tenantID, loanID, *req.Quantity, actor)
	if err != nil {
		h.fail(ctx, w, "quantity adjustment refused", err,
			"loan_id", loanID.String(),
			"quantity", *req.Quantity,
		)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromView(loan.View(requestcontext.Now(ctx))))
}

// HandleDeleteLoan handles DELETE /loans/{loanID}.
func (h *Handler) HandleDeleteLoan(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[DeleteLoanRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.Delete(ctx, tenantID, loanID, req.ToDomain(), actor); err != nil {
		h.fail(ctx, w, "loan deletion refused", err, "loan_id", loanID.String())
		return
	}
	h.logger.InfoContext(ctx, "loan deleted",
		"request_id", requestID,
		"loan_id", loanID.String(),
		"actor", actor.Label(),
	)
	w.WriteHeader(http.StatusNoContent)
}

// HandleLoanHistory handles GET /loans/{loanID}/audit.
func (h *Handler) HandleLoanHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if !actor.IsStaff() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "l'historique est réservé au personnel"))
		return
	}
	loanID, ok := loanIDParam(w, r)
	if !ok {
		return
	}

	entries, err := h.service.LoanHistory(ctx, tenantID, loanID)
	if err != nil {
		h.fail(ctx, w, "failed to load loan history", err, "loan_id", loanID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAuditEntries(entries))
}

// HandleListMemberLoans handles GET /members/{memberID}/loans?filter=.
func (h *Handler) HandleListMemberLoans(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	memberID, ok := memberIDParam(w, r)
	if !ok {
		return
	}
	filter, err := models.ParseListFilter(r.URL.Query().Get("filter"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	views, err := h.service.ListMemberLoans(ctx, tenantID, memberID, filter)
	if err != nil {
		h.fail(ctx, w, "failed to list member loans", err, "member_id", memberID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromViews(filter, views))
}

// HandleListAgeFailures handles GET /members/{memberID}/age-verification-failures.
func (h *Handler) HandleListAgeFailures(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	actor, tenantID, ok := h.scope(w, r)
	if !ok {
		return
	}
	if !actor.IsStaff() {
		httputil.WriteError(w, dErrors.New(dErrors.CodeForbidden, "consultation réservée au personnel"))
		return
	}
	memberID, ok := memberIDParam(w, r)
	if !ok {
		return
	}

	failures, err := h.service.ListAgeFailures(ctx, tenantID, memberID)
	if err != nil {
		h.fail(ctx, w, "failed to list age verification failures", err, "member_id", memberID.String())
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromAgeFailures(failures))
}
