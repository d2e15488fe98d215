package middleware

import (
	"net/http"
)

// RequireJWTOnly verifies the token signature and claims without any
// directory lookup.
func RequireJWTOnly(verifier AccessVerifier) func(http.Handler) http.Handler {
	return Guard(verifier)
}
