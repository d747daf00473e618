package ratelimit

import (
	"context"
	"time"
)

// Store holds fixed-window counters. Implementations must be safe for
// concurrent use.
type Store interface {
	// Increment counts one hit against key. When the key has no live window
	// at now, a new window ending at now+window is opened before counting.
	Increment(ctx context.Context, key string, window time.Duration, now time.Time) (count int, resetAt time.Time, err error)

	// Decrement takes back one hit from a live window. Missing keys are ignored.
	Decrement(ctx context.Context, key string, now time.Time) error

	// Sweep drops windows that have elapsed at now and reports how many.
	Sweep(ctx context.Context, now time.Time) (int, error)
}
