package adapter

import (
	"context"
	"time"
)

// Rate-limited operations. Quotas are configured per operation.
const (
	OpJobCreate = "job-create"
	OpPredict   = "signal-extract"
)

// Decision is the outcome of an admission check. RetryAfter is only
// meaningful when Allowed is false and equals the remaining window time.
type Decision struct {
	Allowed    bool
	RetryAfter time.Duration
}

// RateLimiter performs per-tenant, per-operation admission control. Safe for
// concurrent use; under contention at most the configured capacity of calls
// is admitted per window, ties broken by arrival order at the counter
// backend.
type RateLimiter interface {
	Allow(ctx context.Context, tenantID, operation string) (Decision, error)
}
