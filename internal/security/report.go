package security

import (
	"sort"
	"time"
)

// Report summarizes the protective settings an engine runs with.
type Report struct {
	OTPLength         int
	OTPTTL            time.Duration
	MaxFailedAttempts int
	FailureWindow     time.Duration
	LockoutDuration   time.Duration
	IPThrottle        bool
	DebugExposeCode   bool
	MinPasswordLength int
	AuditEnabled      bool
	LimitedScopes     []string
	Warnings          []string
}

// ReportInput is the raw policy a Report is derived from. Limits maps a
// scope name to its request budget.
type ReportInput struct {
	OTPLength         int
	OTPTTL            time.Duration
	MaxFailedAttempts int
	FailureWindow     time.Duration
	LockoutDuration   time.Duration
	IPThrottle        bool
	DebugExposeCode   bool
	MinPasswordLength int
	AuditEnabled      bool
	Limits            map[string]int
}

const (
	minSafeOTPLength      = 6
	maxSafeOTPTTL         = 15 * time.Minute
	minSafePasswordLength = 8
)

func BuildReport(input ReportInput) Report {
	scopes := make([]string, 0, len(input.Limits))
	for name, requests := range input.Limits {
		if requests > 0 {
			scopes = append(scopes, name)
		}
	}
	sort.Strings(scopes)

	var warnings []string
	if input.DebugExposeCode {
		warnings = append(warnings, "otp codes are written to logs and audit metadata")
	}
	if input.OTPLength < minSafeOTPLength {
		warnings = append(warnings, "otp length below 6 digits")
	}
	if input.OTPTTL > maxSafeOTPTTL {
		warnings = append(warnings, "otp ttl above 15 minutes")
	}
	if input.LockoutDuration < input.FailureWindow {
		warnings = append(warnings, "lockout shorter than the failure window")
	}
	if !input.IPThrottle {
		warnings = append(warnings, "per-ip otp request throttle disabled")
	}
	if input.MinPasswordLength < minSafePasswordLength {
		warnings = append(warnings, "minimum password length below 8")
	}
	if !input.AuditEnabled {
		warnings = append(warnings, "audit events disabled")
	}

	return Report{
		OTPLength:         input.OTPLength,
		OTPTTL:            input.OTPTTL,
		MaxFailedAttempts: input.MaxFailedAttempts,
		FailureWindow:     input.FailureWindow,
		LockoutDuration:   input.LockoutDuration,
		IPThrottle:        input.IPThrottle,
		DebugExposeCode:   input.DebugExposeCode,
		MinPasswordLength: input.MinPasswordLength,
		AuditEnabled:      input.AuditEnabled,
		LimitedScopes:     scopes,
		Warnings:          warnings,
	}
}
