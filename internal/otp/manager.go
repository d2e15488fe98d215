package otp

import (
	"context"
	"errors"
	"time"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/MrEthical07/goOTP/internal/limiters"
	"github.com/MrEthical07/goOTP/internal/stores"
)

// Status is the outcome of a verification attempt.
type Status int

const (
	StatusVerified Status = iota + 1
	StatusInvalid
	StatusLocked
)

func (s Status) String() string {
	switch s {
	case StatusVerified:
		return "verified"
	case StatusInvalid:
		return "invalid"
	case StatusLocked:
		return "locked"
	default:
		return "unknown"
	}
}

// Result carries the verification outcome. RemainingAttempts is set for
// StatusInvalid, UnlockIn for StatusLocked.
type Result struct {
	Status            Status
	RemainingAttempts int
	UnlockIn          time.Duration
	FailedAttempts    int
}

// Config holds code shape and lifetime.
type Config struct {
	Length int
	TTL    time.Duration
}

// Manager issues and verifies one outstanding code per email.
type Manager struct {
	store    stores.CounterStore
	lockout  *limiters.LockoutLimiter
	config   Config
	generate func(digits int) (string, error)
}

// NewManager creates an OTP manager.
func NewManager(store stores.CounterStore, lockout *limiters.LockoutLimiter, cfg Config) *Manager {
	return &Manager{
		store:    store,
		lockout:  lockout,
		config:   cfg,
		generate: internal.NewOTP,
	}
}

// Key is the challenge key for an email. It shares the {email} hash tag
// with the lockout keys so verification's multi-key script stays in one
// cluster slot.
func Key(email string) string {
	return "otp:{" + email + "}"
}

// Request generates a fresh code and stores it, replacing any outstanding
// code for the same email.
func (m *Manager) Request(ctx context.Context, email string) (string, error) {
	code, err := m.generate(m.config.Length)
	if err != nil {
		return "", err
	}

	if err := m.store.SetWithExpiry(ctx, Key(email), code, m.config.TTL); err != nil {
		return "", err
	}

	return code, nil
}

// Lockout returns the time left on an active lockout, zero when unlocked.
func (m *Manager) Lockout(ctx context.Context, email string) (time.Duration, error) {
	return m.lockout.Status(ctx, email)
}

// Verify runs the full check: an active lockout short-circuits without
// touching any counter, otherwise the candidate is compared.
func (m *Manager) Verify(ctx context.Context, email, candidate string) (Result, error) {
	remaining, err := m.lockout.Status(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if remaining > 0 {
		return Result{Status: StatusLocked, UnlockIn: remaining}, nil
	}

	return m.Compare(ctx, email, candidate)
}

// Compare consumes the stored code when it equals candidate. On success
// the failure counter and lockout record are removed in the same atomic
// step. A missing code and a wrong code are both recorded as failures.
// Callers that need the lockout check first use Verify or Lockout.
func (m *Manager) Compare(ctx context.Context, email, candidate string) (Result, error) {
	err := m.store.CompareAndDelete(ctx, Key(email), candidate,
		limiters.FailedKey(email),
		limiters.LockoutKey(email),
	)
	if err == nil {
		return Result{Status: StatusVerified}, nil
	}
	if !errors.Is(err, stores.ErrChallengeMismatch) && !errors.Is(err, stores.ErrChallengeNotFound) {
		return Result{}, err
	}

	failure, err := m.lockout.RecordFailure(ctx, email)
	if err != nil {
		return Result{}, err
	}
	if failure.Locked {
		return Result{
			Status:         StatusLocked,
			UnlockIn:       failure.UnlockIn,
			FailedAttempts: failure.Count,
		}, nil
	}

	return Result{
		Status:            StatusInvalid,
		RemainingAttempts: m.lockout.RemainingAttempts(failure.Count),
		FailedAttempts:    failure.Count,
	}, nil
}
