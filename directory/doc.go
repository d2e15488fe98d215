// Package directory provides an in-memory goOTP.UserDirectory with Argon2id
// password hashing.
//
// OTP logins create password-less records on first contact; Register creates
// records with a password. Both kinds share one email index, so an address
// has at most one record.
package directory
