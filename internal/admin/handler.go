// Package admin exposes operator endpoints. Routes are mounted behind the
// admin token middleware.
package admin

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"doccenter/internal/lending/sweeper"
	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/httputil"
	"doccenter/pkg/requestcontext"
)

// Sweeper runs one overdue sweep.
type Sweeper interface {
	RunOverdueSweep(ctx context.Context, now time.Time) (sweeper.Result, error)
}

type Handler struct {
	sweeper Sweeper
	logger  *slog.Logger
}

func New(s Sweeper, logger *slog.Logger) *Handler {
	return &Handler{sweeper: s, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/sweep", h.HandleSweep)
}

// HandleSweep handles POST /admin/sweep?as_of=YYYY-MM-DD. Without as_of the
// sweep runs as of the request time.
func (h *Handler) HandleSweep(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	now := requestcontext.Now(ctx)
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		asOf, err := id.ParseDate(raw)
		if err != nil {
			httputil.WriteError(w, dErrors.NewField(dErrors.CodeValidation, "as_of", "as_of must be formatted YYYY-MM-DD"))
			return
		}
		now = asOf
	}

	start := time.Now()
	res, err := h.sweeper.RunOverdueSweep(ctx, now)
	if err != nil {
		h.logger.ErrorContext(ctx, "manual sweep failed",
			"request_id", requestID,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "manual sweep completed",
		"request_id", requestID,
		"scanned", res.Scanned,
		"marked_overdue", res.MarkedOverdue,
		"failed", res.Failed,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromResult(now, res))
}
