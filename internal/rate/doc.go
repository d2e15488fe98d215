// Package rate provides the sliding-window limiter and scalar counters that
// every authentication budget in goOTP is built on.
//
// # Window semantics
//
// Sliding window over a sorted set scored by Unix milliseconds. A hit is
// admitted when fewer than N hits survive in (now-window, now]; admitted
// hits are recorded, rejected hits are not. Keys live for twice the window
// after the last admitted hit. Key layout:
//   - ratelimit:{scope}:{dimension}:{identity}
//
// Scalar counters (INCR with expiry on the first hit) back failure tracking.
//
// # What this package must NOT do
//
//   - Decide lockout consequences (those live in internal/limiters).
//   - Swallow store errors: callers fail closed.
//   - Be imported outside the goOTP module.
package rate
