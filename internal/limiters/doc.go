// Package limiters provides the OTP lockout policy built on top of the
// internal/rate counter facility.
//
// # Limiters
//
//   - [LockoutLimiter]: per-email failed verification counter
//     (otp_failed:{email}, expiry anchored to the first failure) and lockout
//     record (otp_lockout:{email}, value = unlock time in Unix ms).
//
// # Architecture boundaries
//
// The limiter owns its Redis key namespace. Threshold, failure window and
// lockout duration come from [LockoutConfig] supplied at construction time.
//
// # What this package must NOT do
//
//   - Import goOTP or any sibling internal package except internal/rate.
//   - Compare OTP codes; internal/otp decides what counts as a failure.
package limiters
