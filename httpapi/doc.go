// Package httpapi exposes a goOTP Engine over JSON HTTP.
//
// Routes live under /auth. Every rate limit, lockout and validation rule
// is enforced by the engine; this package only decodes requests, stores
// the client IP and user agent on the request context, and maps engine
// errors onto the response envelopes:
//
//	{"success": true, "message": ..., ...}
//	{"success": false, "error": "<CODE>", "message": ..., ...}
//
// Rate-limited responses carry Retry-After and X-RateLimit-* headers.
// Store outages map to 500 SERVER_ERROR; the request fails closed.
package httpapi
