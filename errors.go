package goOTP

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidEmail is returned before any shared state is touched when the email is malformed.
	ErrInvalidEmail = errors.New("invalid email format")
	// ErrInvalidOTPFormat is returned when the submitted code is not the configured number of digits.
	ErrInvalidOTPFormat = errors.New("invalid otp format")
	// ErrInvalidOTP is the sentinel behind *InvalidOTPError.
	ErrInvalidOTP = errors.New("invalid otp")
	// ErrOTPLocked is the sentinel behind *LockedError.
	ErrOTPLocked = errors.New("otp verification locked")
	// ErrRateLimited is the sentinel behind *RateLimitError.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidCredentials covers every password login failure so callers cannot tell which part was wrong.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrPasswordMismatch is returned by Register when the confirmation differs.
	ErrPasswordMismatch = errors.New("passwords do not match")
	// ErrInvalidRequest is returned for structurally invalid input that has no more specific error.
	ErrInvalidRequest = errors.New("invalid request")
	// ErrAccountExists is returned by Register for an email that is already registered.
	ErrAccountExists = errors.New("account already exists")
	// ErrUserNotFound is returned by UserDirectory lookups.
	ErrUserNotFound = errors.New("user not found")
	// ErrInvalidToken is returned when a refresh or access token cannot be used.
	ErrInvalidToken = errors.New("invalid token")
	// ErrStoreUnavailable is returned when the shared counter store cannot be reached.
	// Enforcement fails closed on this error.
	ErrStoreUnavailable = errors.New("counter store unavailable")
	// ErrUnknownScope is returned for a scope that has no configured rule.
	ErrUnknownScope = errors.New("unknown rate limit scope")
	// ErrEngineNotReady is returned when a required collaborator is missing.
	ErrEngineNotReady = errors.New("engine not ready")
)

// RateLimitError reports a rejected request and when it may be retried.
type RateLimitError struct {
	Scope      Scope
	LimitType  string
	Limit      int
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited: %s (%s), retry after %s", e.Scope, e.LimitType, FormatDuration(e.RetryAfter))
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// LockedError reports an active verification lockout.
type LockedError struct {
	UnlockIn time.Duration
}

func (e *LockedError) Error() string {
	return "otp locked, try again in " + FormatDuration(e.UnlockIn)
}

func (e *LockedError) Unwrap() error { return ErrOTPLocked }

// InvalidOTPError reports a wrong, expired or missing code.
type InvalidOTPError struct {
	RemainingAttempts int
}

func (e *InvalidOTPError) Error() string {
	return fmt.Sprintf("invalid otp, %d attempts remaining", e.RemainingAttempts)
}

func (e *InvalidOTPError) Unwrap() error { return ErrInvalidOTP }
