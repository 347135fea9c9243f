package middleware

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	id "doccenter/pkg/domain"
	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/requestcontext"
	"doccenter/pkg/testutil"
)

func newTestLimiter(burst int) (*ActorRateLimiter, *time.Time) {
	now := time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)
	l := NewActorRateLimiter(1, burst, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.now = func() time.Time { return now }
	return l, &now
}

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func post(t *testing.T, h http.Handler, actor *id.Actor, clientIP string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/tenants/x/loans", http.NoBody)
	ctx := requestcontext.WithClientMetadata(req.Context(), clientIP, "")
	if actor != nil {
		ctx = requestcontext.WithActor(ctx, *actor)
	}
	return testutil.DoRequest(h, req.WithContext(ctx))
}

func TestActorRateLimiter(t *testing.T) {
	alice := id.Actor{ID: id.UserID(uuid.New())}
	bob := id.Actor{ID: id.UserID(uuid.New())}

	t.Run("denies once the burst is spent", func(t *testing.T) {
		l, _ := newTestLimiter(2)
		h := l.Middleware(okHandler())

		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)
		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)

		rr := post(t, h, &alice, "10.0.0.1")
		testutil.AssertStatusAndError(t, rr, http.StatusTooManyRequests, string(dErrors.CodeRateLimited))
		assert.Equal(t, "1", rr.Header().Get("Retry-After"))
	})

	t.Run("buckets are per actor", func(t *testing.T) {
		l, _ := newTestLimiter(1)
		h := l.Middleware(okHandler())

		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)
		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusTooManyRequests)
		testutil.AssertStatus(t, post(t, h, &bob, "10.0.0.1"), http.StatusOK)
	})

	t.Run("anonymous callers are keyed by client IP", func(t *testing.T) {
		l, _ := newTestLimiter(1)
		h := l.Middleware(okHandler())

		testutil.AssertStatus(t, post(t, h, nil, "10.0.0.1"), http.StatusOK)
		testutil.AssertStatus(t, post(t, h, nil, "10.0.0.1"), http.StatusTooManyRequests)
		testutil.AssertStatus(t, post(t, h, nil, "10.0.0.2"), http.StatusOK)
	})

	t.Run("reads are not limited", func(t *testing.T) {
		l, _ := newTestLimiter(1)
		h := l.Middleware(okHandler())
		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)

		req := httptest.NewRequest(http.MethodGet, "/tenants/x/loans/1", http.NoBody)
		req = req.WithContext(requestcontext.WithActor(req.Context(), alice))
		testutil.AssertStatus(t, testutil.DoRequest(h, req), http.StatusOK)
	})

	t.Run("tokens refill over time", func(t *testing.T) {
		l, now := newTestLimiter(1)
		h := l.Middleware(okHandler())
		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)
		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusTooManyRequests)

		*now = now.Add(time.Second)
		testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)
	})
}

func TestActorRateLimiterEvictsIdleBuckets(t *testing.T) {
	alice := id.Actor{ID: id.UserID(uuid.New())}
	bob := id.Actor{ID: id.UserID(uuid.New())}
	l, now := newTestLimiter(1)
	h := l.Middleware(okHandler())

	testutil.AssertStatus(t, post(t, h, &alice, "10.0.0.1"), http.StatusOK)
	*now = now.Add(2 * time.Minute)
	testutil.AssertStatus(t, post(t, h, &bob, "10.0.0.1"), http.StatusOK)

	*now = now.Add(90 * time.Second)
	l.evictIdle()

	l.mu.Lock()
	_, aliceKept := l.buckets["actor:"+alice.Label()]
	_, bobKept := l.buckets["actor:"+bob.Label()]
	l.mu.Unlock()
	assert.False(t, aliceKept)
	assert.True(t, bobKept)
}

func TestActorRateLimiterCleanupStopsWithContext(t *testing.T) {
	l, _ := newTestLimiter(1)
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Cleanup(ctx, time.Millisecond) }()

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("cleanup did not stop after cancel")
	}
}
