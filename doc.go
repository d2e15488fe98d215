// Package goOTP provides passwordless email authentication with one-time codes,
// sliding-window rate limits, and per-email verification lockouts shared across
// any number of server instances through Redis.
//
// Engine methods are safe to call from multiple goroutines after initialization
// through [Builder.Build].
//
// # Architecture boundaries
//
// goOTP is the public surface. It exposes [Engine], [Builder], [Config], the
// [Scope] table and the typed errors ([RateLimitError], [LockedError],
// [InvalidOTPError]). Counter storage, challenge storage, lockout accounting and
// the audit and mail queues live under internal/ and are never exported.
//
// User records and token minting are collaborators: callers supply a
// [UserDirectory] and a [TokenIssuer]. The directory, postgres and jwt
// sub-packages provide ready implementations.
//
// # What this package must NOT do
//
//   - Expose Redis clients or key layouts in its public API.
//   - Let a failed email send or audit write change the outcome of a request.
//   - Admit a request when the counter store cannot be reached.
//   - Import any sub-package that re-imports goOTP (no import cycles).
//
// # Consistency contract
//
// Every check-and-record step is a single Redis script: a window admission, a
// failure count with its first-hit expiry, and a challenge compare-and-delete.
// Concurrent callers on different instances therefore never exceed a budget and
// a code is consumed at most once.
package goOTP
