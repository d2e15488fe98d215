// Package internal contains helpers that are private to goOTP, currently
// secure numeric code generation.
//
// # Sub-packages
//
//   - audit: async event dispatch (Dispatcher + Sink implementations)
//   - limiters: failed-verification lockout policy
//   - mail: async email dispatch
//   - otp: OTP issue/verify lifecycle
//   - rate: sliding-window limiter and scalar counters
//   - security: posture report derived from engine policy
//   - stores: Redis counter store with Lua-scripted atomic operations
//
// # What this package must NOT do
//
//   - Export types that appear in the public goOTP API.
//   - Be imported by any package outside the goOTP module.
package internal
