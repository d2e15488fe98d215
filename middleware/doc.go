// Package middleware adapts goOTP to net/http.
//
// # Guards
//
//   - [RequireJWTOnly] verifies the bearer access token only.
//   - [RequireStrict] also loads the subject through the engine and rejects
//     inactive or missing accounts.
//
// # Request plumbing
//
//   - [IPResolver] picks the client IP, honoring X-Forwarded-For only
//     from trusted proxies.
//   - [RequestContext] stores the client IP and user agent for throttling
//     and audit.
//   - [RequestLogger] writes one structured zap entry per request.
//
// This package translates HTTP semantics into engine and token calls. It
// makes no rate limit or credential decisions of its own.
package middleware
