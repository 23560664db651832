package ratelimit

import (
	"context"
	"sync"
	"time"
)

// MemoryLimiter is a process-local fixed-window counter. Each key owns
// its entry and its entry's lock, so unrelated keys never contend.
// It gives no cross-process guarantee; multi-instance deployments use
// the Redis limiter instead.
type MemoryLimiter struct {
	entries sync.Map // key -> *windowEntry

	now  func() time.Time
	stop chan struct{}
	once sync.Once
}

type windowEntry struct {
	mu      sync.Mutex
	count   int
	resetAt time.Time
}

var _ Limiter = (*MemoryLimiter)(nil)

// NewMemoryLimiter returns a limiter ready for use.
func NewMemoryLimiter() *MemoryLimiter {
	return &MemoryLimiter{
		now:  time.Now,
		stop: make(chan struct{}),
	}
}

// Check counts a hit against key's current window. The first hit after
// a window lapses starts a fresh one.
func (l *MemoryLimiter) Check(_ context.Context, key string, maxAttempts int, window time.Duration) (Result, error) {
	now := l.now()

	v, _ := l.entries.LoadOrStore(key, &windowEntry{})
	entry := v.(*windowEntry)

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.resetAt.Before(now) || entry.resetAt.IsZero() {
		entry.count = 1
		entry.resetAt = now.Add(window)
		return Result{
			Allowed:   true,
			Remaining: maxAttempts - 1,
			ResetAt:   entry.resetAt,
		}, nil
	}

	if entry.count >= maxAttempts {
		return Result{
			Allowed:   false,
			Remaining: 0,
			ResetAt:   entry.resetAt,
		}, nil
	}

	entry.count++
	return Result{
		Allowed:   true,
		Remaining: maxAttempts - entry.count,
		ResetAt:   entry.resetAt,
	}, nil
}

// Reset forgets the window for key.
func (l *MemoryLimiter) Reset(key string) {
	l.entries.Delete(key)
}

// StartPruning launches a background sweep that drops lapsed windows.
func (l *MemoryLimiter) StartPruning(interval time.Duration) {
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				l.prune(l.now())
			case <-l.stop:
				return
			}
		}
	}()
}

// Close stops the background pruning goroutine.
func (l *MemoryLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *MemoryLimiter) prune(now time.Time) {
	l.entries.Range(func(key, v interface{}) bool {
		entry := v.(*windowEntry)
		entry.mu.Lock()
		expired := entry.resetAt.Before(now)
		entry.mu.Unlock()
		if expired {
			l.entries.Delete(key)
		}
		return true
	})
}
