package middleware

import (
	"context"
	"net/http"

	goOTP "github.com/MrEthical07/goOTP"
)

// IdentityLookup resolves a token subject to a current user record.
// *goOTP.Engine satisfies it.
type IdentityLookup interface {
	Identity(ctx context.Context, userID string) (goOTP.Identity, error)
}

type identityContextKey struct{}

// IdentityFromContext returns the user record stored by RequireStrict.
func IdentityFromContext(ctx context.Context) (goOTP.Identity, bool) {
	user, ok := ctx.Value(identityContextKey{}).(goOTP.Identity)
	return user, ok
}

// RequireStrict verifies the token and then loads the subject from the
// directory, rejecting deleted or deactivated accounts whose tokens have
// not yet expired.
func RequireStrict(verifier AccessVerifier, users IdentityLookup) func(http.Handler) http.Handler {
	guard := Guard(verifier)
	return func(next http.Handler) http.Handler {
		return guard(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims, _ := ClaimsFromContext(r.Context())
			if users == nil || claims == nil {
				unauthorized(w)
				return
			}

			user, err := users.Identity(r.Context(), claims.Subject)
			if err != nil || !user.Active {
				unauthorized(w)
				return
			}

			ctx := context.WithValue(r.Context(), identityContextKey{}, user)
			next.ServeHTTP(w, r.WithContext(ctx))
		}))
	}
}
