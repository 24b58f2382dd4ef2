// Package ratelimit implements fixed-window admission control per
// (tenant, operation) pair over a pluggable counter backend.
package ratelimit

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"quote-orchestrator/internal/domain/ports/adapter"
)

// CounterStore is the shared counter backend. The redis client satisfies it
// in production; MemoryCounter serves dev mode and tests.
type CounterStore interface {
	// Incr atomically increments the counter and returns the new value.
	Incr(ctx context.Context, key string) (int64, error)
	// Expire sets the counter's time to live.
	Expire(ctx context.Context, key string, ttl time.Duration) error
	// TTL reports the counter's remaining time to live.
	TTL(ctx context.Context, key string) (time.Duration, error)
}

// Quota is one operation's window configuration.
type Quota struct {
	Capacity int
	Window   time.Duration
}

var _ adapter.RateLimiter = (*Limiter)(nil)

// Limiter is a fixed-window rate limiter. Ties between concurrent callers
// are broken by arrival order at the counter backend: the first Capacity
// increments of a window win.
type Limiter struct {
	store  CounterStore
	quotas map[string]Quota
	log    *zerolog.Logger
}

func NewLimiter(store CounterStore, quotas map[string]Quota, log *zerolog.Logger) *Limiter {
	return &Limiter{store: store, quotas: quotas, log: log}
}

func (l *Limiter) Allow(ctx context.Context, tenantID, operation string) (adapter.Decision, error) {
	quota, ok := l.quotas[operation]
	if !ok || quota.Capacity <= 0 {
		// Operations without a configured quota are not limited.
		return adapter.Decision{Allowed: true}, nil
	}

	key := windowKey(tenantID, operation)
	count, err := l.store.Incr(ctx, key)
	if err != nil {
		return adapter.Decision{}, err
	}
	if count == 1 {
		if err := l.store.Expire(ctx, key, quota.Window); err != nil {
			return adapter.Decision{}, err
		}
	}
	if count <= int64(quota.Capacity) {
		return adapter.Decision{Allowed: true}, nil
	}

	retryAfter, err := l.store.TTL(ctx, key)
	if err != nil || retryAfter <= 0 {
		retryAfter = quota.Window
	}
	l.log.Debug().
		Str("tenant_id", tenantID).
		Str("operation", operation).
		Int64("count", count).
		Msg("admission denied")
	return adapter.Decision{Allowed: false, RetryAfter: retryAfter}, nil
}

func windowKey(tenantID, operation string) string {
	return fmt.Sprintf("rate_limit:%s:%s", tenantID, operation)
}
