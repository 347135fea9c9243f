// Package idempotency suppresses repeated submissions of the same request
// within a short window.
package idempotency

import (
	"context"
	"strings"
	"time"
)

// DefaultWindow is how long a claimed key blocks repeats.
const DefaultWindow = 10 * time.Second

// Guard records claimed keys. Claim is atomic: of two concurrent claims for
// the same scope exactly one returns true.
type Guard interface {
	Claim(ctx context.Context, scope string, window time.Duration) (bool, error)
	// Forget drops a claim whose operation did not commit, so a retry is not
	// reported as a duplicate.
	Forget(ctx context.Context, scope string) error
}

// Scope builds the key a claim is recorded under. Keys from different
// tenants, actors or operations never collide.
func Scope(tenant, actor, operation, key string) string {
	return strings.Join([]string{tenant, actor, operation, key}, ":")
}
