package goOTP

import (
	"errors"
	"fmt"
	"time"
)

// Config defines the engine policy. Build clones it, so later changes by
// the caller have no effect on a built Engine.
type Config struct {
	OTP        OTPConfig
	RateLimits map[Scope]RateLimitRule
	Security   SecurityConfig
	Audit      AuditConfig
	Mail       MailConfig
	Metrics    MetricsConfig
}

/*
====================================
OTP CONFIG
====================================
*/

// OTPConfig controls code shape, lifetime and the lockout policy.
type OTPConfig struct {
	Length int
	TTL    time.Duration

	// MaxFailedAttempts failures within FailureWindow lock verification
	// for LockoutDuration.
	MaxFailedAttempts int
	FailureWindow     time.Duration
	LockoutDuration   time.Duration

	// DebugExposeCode writes plaintext codes to debug logs and audit
	// metadata. Never enable outside local development.
	DebugExposeCode bool
}

/*
====================================
SECURITY CONFIG
====================================
*/

// SecurityConfig toggles optional enforcement layers.
type SecurityConfig struct {
	// EnableIPThrottle applies ScopeOTPRequestIP when the context carries a client IP.
	EnableIPThrottle bool
	// MinPasswordLength applies to Register.
	MinPasswordLength int
}

/*
====================================
AUDIT CONFIG
====================================
*/

// AuditConfig controls the async audit dispatcher.
type AuditConfig struct {
	Enabled     bool
	BufferSize  int
	DropIfFull  bool
	SinkTimeout time.Duration
}

/*
====================================
MAIL CONFIG
====================================
*/

// MailConfig controls the async email dispatcher and message text.
type MailConfig struct {
	BufferSize     int
	Workers        int
	SendTimeout    time.Duration
	OTPSubject     string
	WelcomeSubject string
}

/*
====================================
METRICS CONFIG
====================================
*/

// MetricsConfig controls in-process counters.
type MetricsConfig struct {
	Enabled                 bool
	EnableLatencyHistograms bool
}

// DefaultConfig returns the stock policy: 6 digit codes valid for five
// minutes, lockout after five failures for fifteen minutes.
func DefaultConfig() Config {
	return Config{
		OTP: OTPConfig{
			Length:            6,
			TTL:               5 * time.Minute,
			MaxFailedAttempts: 5,
			FailureWindow:     15 * time.Minute,
			LockoutDuration:   15 * time.Minute,
		},
		RateLimits: DefaultRateLimits(),
		Security: SecurityConfig{
			EnableIPThrottle:  true,
			MinPasswordLength: 8,
		},
		Audit: AuditConfig{
			Enabled:     true,
			BufferSize:  1024,
			DropIfFull:  true,
			SinkTimeout: 5 * time.Second,
		},
		Mail: MailConfig{
			BufferSize:     256,
			Workers:        2,
			SendTimeout:    10 * time.Second,
			OTPSubject:     "Your login code",
			WelcomeSubject: "Welcome",
		},
		Metrics: MetricsConfig{
			Enabled: true,
		},
	}
}

func cloneConfig(cfg Config) Config {
	out := cfg
	if cfg.RateLimits != nil {
		out.RateLimits = make(map[Scope]RateLimitRule, len(cfg.RateLimits))
		for k, v := range cfg.RateLimits {
			out.RateLimits[k] = v
		}
	}
	return out
}

// Validate checks the configuration for values the engine cannot enforce.
// Every defined scope must have a positive rule; unknown scopes are rejected.
func (c *Config) Validate() error {
	// OTP
	if c.OTP.Length < 6 || c.OTP.Length > 10 {
		return errors.New("OTP Length must be between 6 and 10")
	}
	if c.OTP.TTL <= 0 {
		return errors.New("OTP TTL must be > 0")
	}
	if c.OTP.MaxFailedAttempts < 1 {
		return errors.New("OTP MaxFailedAttempts must be >= 1")
	}
	if c.OTP.FailureWindow <= 0 {
		return errors.New("OTP FailureWindow must be > 0")
	}
	if c.OTP.LockoutDuration <= 0 {
		return errors.New("OTP LockoutDuration must be > 0")
	}

	// Rate limits
	for scope := range c.RateLimits {
		if !scope.Valid() {
			return fmt.Errorf("%w: %s", ErrUnknownScope, scope)
		}
	}
	for _, scope := range allScopes {
		rule, ok := c.RateLimits[scope]
		if !ok {
			return fmt.Errorf("RateLimits missing rule for %s", scope)
		}
		if rule.Requests < 1 {
			return fmt.Errorf("RateLimits %s Requests must be >= 1", scope)
		}
		if rule.Window < time.Second {
			return fmt.Errorf("RateLimits %s Window must be >= 1s", scope)
		}
	}

	// Security
	if c.Security.MinPasswordLength < 1 {
		return errors.New("Security MinPasswordLength must be >= 1")
	}

	// Audit
	if c.Audit.Enabled && c.Audit.BufferSize <= 0 {
		return errors.New("Audit BufferSize must be > 0 when enabled")
	}

	// Mail
	if c.Mail.BufferSize <= 0 {
		return errors.New("Mail BufferSize must be > 0")
	}
	if c.Mail.Workers <= 0 {
		return errors.New("Mail Workers must be > 0")
	}

	return nil
}
