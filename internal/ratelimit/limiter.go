package ratelimit

import (
	"context"
	"time"
)

// Result describes the outcome of one fixed-window check.
type Result struct {
	Allowed   bool
	Remaining int
	ResetAt   time.Time
}

// RetryAfter returns how long the caller must wait before the window
// resets. Zero when the check was allowed.
func (r Result) RetryAfter(now time.Time) time.Duration {
	if r.Allowed || r.ResetAt.Before(now) {
		return 0
	}
	return r.ResetAt.Sub(now)
}

// Limiter counts hits per key inside a fixed window. Implementations
// must be safe for concurrent use; they are injected into the services
// that need throttling rather than reached for as process globals.
type Limiter interface {
	Check(ctx context.Context, key string, maxAttempts int, window time.Duration) (Result, error)
}
