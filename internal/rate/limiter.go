package rate

import (
	"context"
	"time"

	"github.com/MrEthical07/goOTP/internal/stores"
)

// Limiter enforces sliding-window request budgets and exposes the scalar
// counter facility used by lockout tracking.
type Limiter struct {
	store stores.CounterStore
	now   func() time.Time
}

// New creates a rate [Limiter] on top of a counter store. A nil clock
// falls back to time.Now.
func New(store stores.CounterStore, now func() time.Time) *Limiter {
	if now == nil {
		now = time.Now
	}
	return &Limiter{
		store: store,
		now:   now,
	}
}

// IsRateLimited reports whether key has already used maxRequests hits in
// the trailing window. When it has not, the current hit is recorded in the
// same atomic step. Rejected hits are never recorded.
func (l *Limiter) IsRateLimited(ctx context.Context, key string, maxRequests int, window time.Duration) (bool, error) {
	if maxRequests <= 0 || window <= 0 {
		return false, ErrInvalidRule
	}

	allowed, _, err := l.store.WindowAcquire(ctx, key, l.now(), window, maxRequests)
	if err != nil {
		return false, err
	}
	return !allowed, nil
}

// Remaining returns how many hits key may still make in the current window.
// It never records a hit.
func (l *Limiter) Remaining(ctx context.Context, key string, maxRequests int, window time.Duration) (int, error) {
	count, err := l.store.WindowCount(ctx, key, l.now(), window)
	if err != nil {
		return 0, err
	}
	if count >= maxRequests {
		return 0, nil
	}
	return maxRequests - count, nil
}

// ResetAfter returns the time until the oldest surviving hit leaves the
// window, rounded up to whole seconds. An empty window resets immediately.
func (l *Limiter) ResetAfter(ctx context.Context, key string, window time.Duration) (time.Duration, error) {
	oldest, ok, err := l.store.WindowOldest(ctx, key)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	return CeilSeconds(oldest.Add(window).Sub(l.now())), nil
}

// IncrementCounter increments key and anchors its expiry to the first hit.
func (l *Limiter) IncrementCounter(ctx context.Context, key string, ttl time.Duration) (int64, error) {
	return l.store.IncrWithExpiry(ctx, key, ttl)
}

// GetCounter returns the counter value, zero when absent.
func (l *Limiter) GetCounter(ctx context.Context, key string) (int64, error) {
	return l.store.GetInt(ctx, key)
}

// GetValue returns a raw value written by SetWithExpiry.
func (l *Limiter) GetValue(ctx context.Context, key string) (string, bool, error) {
	return l.store.Get(ctx, key)
}

// ResetCounter deletes the given counters.
func (l *Limiter) ResetCounter(ctx context.Context, keys ...string) error {
	return l.store.Delete(ctx, keys...)
}

// SetWithExpiry overwrites key with value and a fresh TTL.
func (l *Limiter) SetWithExpiry(ctx context.Context, key, value string, ttl time.Duration) error {
	return l.store.SetWithExpiry(ctx, key, value, ttl)
}

// Now returns the limiter clock reading.
func (l *Limiter) Now() time.Time {
	return l.now()
}

// CeilSeconds rounds d up to a whole number of seconds and floors it at zero.
func CeilSeconds(d time.Duration) time.Duration {
	if d <= 0 {
		return 0
	}
	if rem := d % time.Second; rem != 0 {
		d += time.Second - rem
	}
	return d
}
