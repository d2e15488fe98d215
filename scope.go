package goOTP

import (
	"fmt"
	"time"
)

// Scope names one rate-limited operation. The set is closed: every scope
// must have a rule in Config.RateLimits.
type Scope uint8

const (
	// ScopeOTPRequestEmail limits OTP requests per email.
	ScopeOTPRequestEmail Scope = iota + 1
	// ScopeOTPRequestIP limits OTP requests per client IP.
	ScopeOTPRequestIP
	// ScopeOTPVerify limits verification attempts per email.
	ScopeOTPVerify
	// ScopeLogin limits password logins per email.
	ScopeLogin
	// ScopeRegister limits registrations per email.
	ScopeRegister
	// ScopeTokenRefresh limits token refreshes per client.
	ScopeTokenRefresh
)

var allScopes = [...]Scope{
	ScopeOTPRequestEmail,
	ScopeOTPRequestIP,
	ScopeOTPVerify,
	ScopeLogin,
	ScopeRegister,
	ScopeTokenRefresh,
}

// Scopes returns every defined scope in declaration order.
func Scopes() []Scope {
	out := make([]Scope, len(allScopes))
	copy(out, allScopes[:])
	return out
}

func (s Scope) String() string {
	switch s {
	case ScopeOTPRequestEmail:
		return "otp_request_email"
	case ScopeOTPRequestIP:
		return "otp_request_ip"
	case ScopeOTPVerify:
		return "otp_verify"
	case ScopeLogin:
		return "login"
	case ScopeRegister:
		return "register"
	case ScopeTokenRefresh:
		return "token_refresh"
	default:
		return fmt.Sprintf("scope(%d)", uint8(s))
	}
}

// endpoint is the key segment shared by the email and IP budgets of one operation.
func (s Scope) endpoint() string {
	switch s {
	case ScopeOTPRequestEmail, ScopeOTPRequestIP:
		return "otp_request"
	default:
		return s.String()
	}
}

// Valid reports whether s is one of the defined scopes.
func (s Scope) Valid() bool {
	return s >= ScopeOTPRequestEmail && s <= ScopeTokenRefresh
}

// ParseScope maps a configuration name such as "otp_verify" to its Scope.
func ParseScope(name string) (Scope, error) {
	for _, s := range allScopes {
		if s.String() == name {
			return s, nil
		}
	}
	return 0, fmt.Errorf("%w: %q", ErrUnknownScope, name)
}

// RateLimitRule is a sliding-window budget: at most Requests admitted hits
// in any trailing Window.
type RateLimitRule struct {
	Requests int
	Window   time.Duration
}

// DefaultRateLimits returns the stock budget table.
func DefaultRateLimits() map[Scope]RateLimitRule {
	return map[Scope]RateLimitRule{
		ScopeOTPRequestEmail: {Requests: 3, Window: 10 * time.Minute},
		ScopeOTPRequestIP:    {Requests: 10, Window: time.Hour},
		ScopeOTPVerify:       {Requests: 10, Window: 5 * time.Minute},
		ScopeLogin:           {Requests: 10, Window: 5 * time.Minute},
		ScopeRegister:        {Requests: 3, Window: time.Hour},
		ScopeTokenRefresh:    {Requests: 20, Window: 5 * time.Minute},
	}
}
