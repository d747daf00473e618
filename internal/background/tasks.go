package background

import (
	"context"
	"time"
)

// RateLimitSweeper drops expired rate-limit windows.
type RateLimitSweeper interface {
	Sweep(ctx context.Context) (int, error)
}

// SessionCompactor deletes sessions that have been dead for longer than retention.
type SessionCompactor interface {
	CompactSessions(ctx context.Context, retention time.Duration) (int64, error)
}

// SweepRateLimits adapts a limiter to a Task.
func SweepRateLimits(sweeper RateLimitSweeper) Task {
	return func(ctx context.Context) (int64, error) {
		n, err := sweeper.Sweep(ctx)
		return int64(n), err
	}
}

// CompactSessions adapts a session compactor to a Task.
func CompactSessions(compactor SessionCompactor, retention time.Duration) Task {
	return func(ctx context.Context) (int64, error) {
		return compactor.CompactSessions(ctx, retention)
	}
}
