package rate

import "errors"

var (
	// ErrRateLimited is returned by callers that turn a limited decision into an error.
	ErrRateLimited = errors.New("rate limited")
	// ErrInvalidRule rejects non-positive budgets or windows.
	ErrInvalidRule = errors.New("invalid rate limit rule")
)
