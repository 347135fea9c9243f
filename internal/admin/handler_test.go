package admin

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"doccenter/internal/lending/sweeper"
	"doccenter/pkg/requestcontext"
)

type stubSweeper struct {
	at  time.Time
	res sweeper.Result
	err error
}

func (s *stubSweeper) RunOverdueSweep(_ context.Context, now time.Time) (sweeper.Result, error) {
	s.at = now
	return s.res, s.err
}

func sweep(h *Handler, target string, now time.Time) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, target, http.NoBody)
	req = req.WithContext(requestcontext.WithTime(req.Context(), now))
	w := httptest.NewRecorder()
	h.HandleSweep(w, req)
	return w
}

func TestHandleSweep(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	t.Run("runs as of request time", func(t *testing.T) {
		s := &stubSweeper{res: sweeper.Result{Scanned: 3, MarkedOverdue: 1, Reminded: 1, DueSoon: 1}}
		w := sweep(New(s, logger), "/admin/sweep", now)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, now, s.at)
		assert.JSONEq(t, `{"ran_at":"2026-03-10T10:00:00Z","scanned":3,"marked_overdue":1,"reminded":1,"due_soon":1,"failed":0}`, w.Body.String())
	})

	t.Run("honours as_of", func(t *testing.T) {
		s := &stubSweeper{}
		w := sweep(New(s, logger), "/admin/sweep?as_of=2026-04-01", now)

		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), s.at)
	})

	t.Run("rejects malformed as_of", func(t *testing.T) {
		w := sweep(New(&stubSweeper{}, logger), "/admin/sweep?as_of=tomorrow", now)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("surfaces sweep errors", func(t *testing.T) {
		w := sweep(New(&stubSweeper{err: errors.New("boom")}, logger), "/admin/sweep", now)
		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
