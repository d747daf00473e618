package ratelimit

import (
	"context"
	"log/slog"
	"math"
	"net/http"
	"strconv"
	"time"
)

// Decision is the outcome of one Check.
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAt    time.Time
	RetryAfter int // seconds, set only when rejected
}

// WriteHeaders sets the X-RateLimit-* headers, plus Retry-After on rejection.
func (d Decision) WriteHeaders(w http.ResponseWriter) {
	h := w.Header()
	h.Set("X-RateLimit-Limit", strconv.Itoa(d.Limit))
	h.Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
	h.Set("X-RateLimit-Reset", strconv.FormatInt(d.ResetAt.Unix(), 10))
	if !d.Allowed {
		h.Set("Retry-After", strconv.Itoa(d.RetryAfter))
	}
}

type Limiter struct {
	store  Store
	logger *slog.Logger
	now    func() time.Time
}

func NewLimiter(store Store, logger *slog.Logger) *Limiter {
	return &Limiter{store: store, logger: logger, now: time.Now}
}

// SetClock replaces the time source. Tests only.
func (l *Limiter) SetClock(now func() time.Time) {
	l.now = now
}

// Check counts one request from clientIP against the policy. Store failures
// are logged and the request is allowed.
func (l *Limiter) Check(ctx context.Context, clientIP string, p Policy) Decision {
	now := l.now()
	key := Key(p.Name, clientIP)

	count, resetAt, err := l.store.Increment(ctx, key, p.Window, now)
	if err != nil {
		l.logger.Error("rate limit store failed, allowing request",
			slog.String("policy", p.Name),
			slog.Any("error", err),
		)
		return Decision{Allowed: true, Limit: p.Limit, Remaining: p.Limit, ResetAt: now.Add(p.Window)}
	}

	if count > p.Limit {
		return Decision{
			Allowed:    false,
			Limit:      p.Limit,
			Remaining:  0,
			ResetAt:    resetAt,
			RetryAfter: retryAfterSeconds(resetAt.Sub(now)),
		}
	}

	return Decision{
		Allowed:   true,
		Limit:     p.Limit,
		Remaining: p.Limit - count,
		ResetAt:   resetAt,
	}
}

// Refund takes back a request counted by Check.
func (l *Limiter) Refund(ctx context.Context, clientIP string, p Policy) {
	if err := l.store.Decrement(ctx, Key(p.Name, clientIP), l.now()); err != nil {
		l.logger.Warn("rate limit refund failed",
			slog.String("policy", p.Name),
			slog.Any("error", err),
		)
	}
}

// Sweep drops elapsed windows from the store.
func (l *Limiter) Sweep(ctx context.Context) (int, error) {
	return l.store.Sweep(ctx, l.now())
}

func retryAfterSeconds(d time.Duration) int {
	secs := int(math.Ceil(d.Seconds()))
	if secs < 1 {
		return 1
	}
	return secs
}
