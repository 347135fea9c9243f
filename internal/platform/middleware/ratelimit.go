package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	dErrors "doccenter/pkg/domain-errors"
	"doccenter/pkg/platform/httputil"
	"doccenter/pkg/requestcontext"
)

const limiterIdleTTL = 3 * time.Minute

type actorLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// ActorRateLimiter keeps one token bucket per authenticated actor, falling
// back to the client IP for anonymous requests.
type ActorRateLimiter struct {
	mu      sync.Mutex
	every   rate.Limit
	burst   int
	buckets map[string]*actorLimiter
	now     func() time.Time
	logger  *slog.Logger
}

func NewActorRateLimiter(perSecond float64, burst int, logger *slog.Logger) *ActorRateLimiter {
	return &ActorRateLimiter{
		every:   rate.Limit(perSecond),
		burst:   burst,
		buckets: make(map[string]*actorLimiter),
		now:     time.Now,
		logger:  logger,
	}
}

func (l *ActorRateLimiter) allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	b, ok := l.buckets[key]
	if !ok {
		b = &actorLimiter{limiter: rate.NewLimiter(l.every, l.burst)}
		l.buckets[key] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// Cleanup evicts idle buckets every interval until ctx is cancelled.
func (l *ActorRateLimiter) Cleanup(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			l.evictIdle()
		case <-ctx.Done():
			return nil
		}
	}
}

func (l *ActorRateLimiter) evictIdle() {
	l.mu.Lock()
	defer l.mu.Unlock()
	cutoff := l.now().Add(-limiterIdleTTL)
	for key, b := range l.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(l.buckets, key)
		}
	}
}

// Middleware limits mutating requests. Reads pass through.
func (l *ActorRateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet || r.Method == http.MethodHead {
			next.ServeHTTP(w, r)
			return
		}
		ctx := r.Context()
		key := "ip:" + requestcontext.ClientIP(ctx)
		if actor, ok := requestcontext.Actor(ctx); ok {
			key = "actor:" + actor.Label()
		}
		if !l.allow(key) {
			l.logger.WarnContext(ctx, "rate limit exceeded",
				"request_id", requestcontext.RequestID(ctx),
				"key", key,
			)
			w.Header().Set("Retry-After", "1")
			httputil.WriteError(w, dErrors.New(dErrors.CodeRateLimited, "trop de requêtes, réessayez dans un instant"))
			return
		}
		next.ServeHTTP(w, r)
	})
}
