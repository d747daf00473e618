package ratelimit

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	t time.Time
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestLimiter(store Store) (*Limiter, *fakeClock) {
	clock := &fakeClock{t: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
	l := NewLimiter(store, slog.New(slog.NewTextHandler(io.Discard, nil)))
	l.SetClock(clock.Now)
	return l, clock
}

type failingStore struct{}

func (failingStore) Increment(context.Context, string, time.Duration, time.Time) (int, time.Time, error) {
	return 0, time.Time{}, errors.New("boom")
}

func (failingStore) Decrement(context.Context, string, time.Time) error { return errors.New("boom") }

func (failingStore) Sweep(context.Context, time.Time) (int, error) { return 0, errors.New("boom") }

func TestLimiter_Boundary(t *testing.T) {
	policy := Policy{Name: "test", Limit: 5, Window: 10 * time.Second}
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	for i := 1; i <= policy.Limit; i++ {
		d := l.Check(ctx, "10.0.0.1", policy)
		require.True(t, d.Allowed, "request %d should be allowed", i)
		assert.Equal(t, policy.Limit-i, d.Remaining)
	}

	d := l.Check(ctx, "10.0.0.1", policy)
	assert.False(t, d.Allowed)
	assert.Equal(t, 0, d.Remaining)
	assert.GreaterOrEqual(t, d.RetryAfter, 1)
	assert.LessOrEqual(t, d.RetryAfter, int(policy.Window.Seconds()))
}

func TestLimiter_RetryAfterRoundsUp(t *testing.T) {
	policy := Policy{Name: "test", Limit: 1, Window: 10 * time.Second}
	l, clock := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	l.Check(ctx, "ip", policy)
	clock.Advance(2500 * time.Millisecond)

	d := l.Check(ctx, "ip", policy)
	require.False(t, d.Allowed)
	assert.Equal(t, 8, d.RetryAfter)
}

func TestLimiter_ResetsAfterWindow(t *testing.T) {
	policy := Policy{Name: "test", Limit: 2, Window: time.Minute}
	l, clock := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	l.Check(ctx, "ip", policy)
	l.Check(ctx, "ip", policy)
	require.False(t, l.Check(ctx, "ip", policy).Allowed)

	// Still inside the window at exactly resetAt.
	clock.Advance(time.Minute)
	assert.False(t, l.Check(ctx, "ip", policy).Allowed)

	clock.Advance(time.Millisecond)
	d := l.Check(ctx, "ip", policy)
	assert.True(t, d.Allowed)
	assert.Equal(t, 1, d.Remaining)
	assert.Equal(t, clock.Now().Add(time.Minute), d.ResetAt)
}

func TestLimiter_KeysArePerPolicyAndIP(t *testing.T) {
	policy := Policy{Name: "a", Limit: 1, Window: time.Minute}
	other := Policy{Name: "b", Limit: 1, Window: time.Minute}
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	require.True(t, l.Check(ctx, "1.1.1.1", policy).Allowed)
	assert.False(t, l.Check(ctx, "1.1.1.1", policy).Allowed)
	assert.True(t, l.Check(ctx, "2.2.2.2", policy).Allowed)
	assert.True(t, l.Check(ctx, "1.1.1.1", other).Allowed)
}

func TestLimiter_UnknownIPSharesOneBucket(t *testing.T) {
	policy := Policy{Name: "test", Limit: 2, Window: time.Minute}
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	// Every client without resolvable headers lands on the same key.
	assert.True(t, l.Check(ctx, "unknown", policy).Allowed)
	assert.True(t, l.Check(ctx, "unknown", policy).Allowed)
	assert.False(t, l.Check(ctx, "unknown", policy).Allowed)
}

func TestLimiter_FailsOpen(t *testing.T) {
	policy := Policy{Name: "test", Limit: 1, Window: time.Minute}
	l, _ := newTestLimiter(failingStore{})
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		d := l.Check(ctx, "ip", policy)
		assert.True(t, d.Allowed)
		assert.Equal(t, policy.Limit, d.Remaining)
	}

	// Refund failures are swallowed too.
	l.Refund(ctx, "ip", policy)
}

func TestLimiter_Refund(t *testing.T) {
	policy := Policy{Name: "test", Limit: 1, Window: time.Minute}
	l, _ := newTestLimiter(NewMemoryStore())
	ctx := context.Background()

	require.True(t, l.Check(ctx, "ip", policy).Allowed)
	l.Refund(ctx, "ip", policy)
	assert.True(t, l.Check(ctx, "ip", policy).Allowed)
	assert.False(t, l.Check(ctx, "ip", policy).Allowed)
}

func TestLimiter_Sweep(t *testing.T) {
	store := NewMemoryStore()
	l, clock := newTestLimiter(store)
	ctx := context.Background()

	l.Check(ctx, "a", Policy{Name: "short", Limit: 5, Window: time.Second})
	l.Check(ctx, "b", Policy{Name: "long", Limit: 5, Window: time.Hour})
	require.Equal(t, 2, store.Len())

	clock.Advance(2 * time.Second)
	removed, err := l.Sweep(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, removed)
	assert.Equal(t, 1, store.Len())
}

func TestDecision_WriteHeaders(t *testing.T) {
	resetAt := time.Unix(1700000000, 0)

	t.Run("allowed", func(t *testing.T) {
		w := httptest.NewRecorder()
		Decision{Allowed: true, Limit: 50, Remaining: 49, ResetAt: resetAt}.WriteHeaders(w)

		assert.Equal(t, "50", w.Header().Get("X-RateLimit-Limit"))
		assert.Equal(t, "49", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, strconv.FormatInt(resetAt.Unix(), 10), w.Header().Get("X-RateLimit-Reset"))
		assert.Empty(t, w.Header().Get("Retry-After"))
	})

	t.Run("rejected", func(t *testing.T) {
		w := httptest.NewRecorder()
		Decision{Allowed: false, Limit: 10, Remaining: 0, ResetAt: resetAt, RetryAfter: 42}.WriteHeaders(w)

		assert.Equal(t, "0", w.Header().Get("X-RateLimit-Remaining"))
		assert.Equal(t, "42", w.Header().Get("Retry-After"))
	})
}
