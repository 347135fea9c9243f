package idempotency

import (
	"context"
	"sync"
	"time"
)

// MemoryGuard is the single-process guard used when Redis is not configured.
type MemoryGuard struct {
	mu     sync.Mutex
	claims map[string]time.Time
	now    func() time.Time
}

// MemoryOption configures a MemoryGuard.
type MemoryOption func(*MemoryGuard)

// WithClock overrides the guard's clock.
func WithClock(now func() time.Time) MemoryOption {
	return func(g *MemoryGuard) {
		g.now = now
	}
}

func NewMemoryGuard(opts ...MemoryOption) *MemoryGuard {
	g := &MemoryGuard{
		claims: make(map[string]time.Time),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *MemoryGuard) Claim(_ context.Context, scope string, window time.Duration) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now()
	if expires, ok := g.claims[scope]; ok && now.Before(expires) {
		return false, nil
	}
	g.claims[scope] = now.Add(window)
	g.sweep(now)
	return true, nil
}

func (g *MemoryGuard) Forget(_ context.Context, scope string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.claims, scope)
	return nil
}

// sweep drops expired claims; caller holds mu.
func (g *MemoryGuard) sweep(now time.Time) {
	for k, expires := range g.claims {
		if !now.Before(expires) {
			delete(g.claims, k)
		}
	}
}
