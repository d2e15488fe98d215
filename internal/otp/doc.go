// Package otp implements the one-time code lifecycle for email sign-in.
//
// Each email has at most one outstanding code at otp:{email}. A new request
// overwrites the previous code and restarts its TTL. Verification consumes
// the code with a Lua compare-and-delete, so two concurrent correct
// submissions yield exactly one success. Failed comparisons feed the
// lockout limiter; the failure that reaches the threshold reports the
// lockout directly instead of an invalid code.
//
// # What this package must NOT do
//
//   - Send email or write audit records.
//   - Apply request rate limits.
//   - Log code values.
package otp
