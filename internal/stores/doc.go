// Package stores provides the Redis-backed counter store shared by every
// limiter and the OTP challenge lifecycle.
//
// # Design
//
// Each compound operation (sliding-window acquire, first-hit expiry,
// compare-and-delete) runs as a single Lua script so concurrent callers
// across processes observe one serial order. Sliding windows are sorted
// sets scored by Unix milliseconds; every member carries a uuid so
// simultaneous hits never collapse into one entry.
//
// # Architecture boundaries
//
// This package owns persistence and atomicity. It does NOT choose limits,
// generate codes, or decide whether a caller is authenticated.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package.
//   - Cache counter values in process.
//   - Log stored values.
package stores
