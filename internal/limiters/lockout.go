package limiters

import (
	"context"
	"strconv"
	"time"

	"github.com/MrEthical07/goOTP/internal/rate"
)

// LockoutConfig holds the failed-verification policy.
type LockoutConfig struct {
	Threshold     int
	FailureWindow time.Duration
	Duration      time.Duration
}

// Failure describes the state after one recorded failed verification.
type Failure struct {
	Count    int
	Locked   bool
	UnlockIn time.Duration
}

// LockoutLimiter counts failed OTP verifications per email and writes a
// lockout record once the threshold is reached.
type LockoutLimiter struct {
	counters *rate.Limiter
	config   LockoutConfig
}

// NewLockoutLimiter creates a new lockout limiter.
func NewLockoutLimiter(counters *rate.Limiter, cfg LockoutConfig) *LockoutLimiter {
	return &LockoutLimiter{counters: counters, config: cfg}
}

// FailedKey is the failure counter key for an email. The braces are a
// cluster hash tag shared with the challenge and lockout keys.
func FailedKey(email string) string {
	return "otp_failed:{" + email + "}"
}

// LockoutKey is the lockout record key for an email.
func LockoutKey(email string) string {
	return "otp_lockout:{" + email + "}"
}

// Status returns the time left on an active lockout, or zero when the
// email is not locked. An unreadable record counts as a full lockout.
func (l *LockoutLimiter) Status(ctx context.Context, email string) (time.Duration, error) {
	raw, ok, err := l.counters.GetValue(ctx, LockoutKey(email))
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}

	unlockAtMs, parseErr := strconv.ParseInt(raw, 10, 64)
	if parseErr != nil {
		return l.config.Duration, nil
	}

	return rate.CeilSeconds(time.UnixMilli(unlockAtMs).Sub(l.counters.Now())), nil
}

// RecordFailure increments the failure counter and, when the threshold is
// reached, writes the lockout record. The counter is left in place so a
// failure after the lockout expires relocks immediately until the failure
// window itself lapses.
func (l *LockoutLimiter) RecordFailure(ctx context.Context, email string) (Failure, error) {
	count, err := l.counters.IncrementCounter(ctx, FailedKey(email), l.config.FailureWindow)
	if err != nil {
		return Failure{}, err
	}

	failure := Failure{Count: int(count)}
	if failure.Count < l.config.Threshold {
		return failure, nil
	}

	unlockAt := l.counters.Now().Add(l.config.Duration)
	value := strconv.FormatInt(unlockAt.UnixMilli(), 10)
	if err := l.counters.SetWithExpiry(ctx, LockoutKey(email), value, l.config.Duration); err != nil {
		return Failure{}, err
	}

	failure.Locked = true
	failure.UnlockIn = l.config.Duration
	return failure, nil
}

// RemainingAttempts converts a failure count into attempts left before lockout.
func (l *LockoutLimiter) RemainingAttempts(count int) int {
	if remaining := l.config.Threshold - count; remaining > 0 {
		return remaining
	}
	return 0
}

// Reset clears the failure counter and the lockout record.
func (l *LockoutLimiter) Reset(ctx context.Context, email string) error {
	return l.counters.ResetCounter(ctx, FailedKey(email), LockoutKey(email))
}

// GetFailureCount returns the current failure count for an email.
func (l *LockoutLimiter) GetFailureCount(ctx context.Context, email string) (int, error) {
	count, err := l.counters.GetCounter(ctx, FailedKey(email))
	if err != nil {
		return 0, err
	}
	return int(count), nil
}
