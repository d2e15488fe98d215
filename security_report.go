package goOTP

import "github.com/MrEthical07/goOTP/internal/security"

// SecurityReport is a read-only snapshot of the engine's protective
// settings, returned by [Engine.SecurityReport]. Warnings lists settings
// weaker than the stock policy.
type SecurityReport = security.Report

// SecurityReport describes the policy this Engine was built with.
func (e *Engine) SecurityReport() SecurityReport {
	if e == nil {
		return SecurityReport{}
	}

	limits := make(map[string]int, len(e.config.RateLimits))
	for scope, rule := range e.config.RateLimits {
		limits[scope.String()] = rule.Requests
	}

	return security.BuildReport(security.ReportInput{
		OTPLength:         e.config.OTP.Length,
		OTPTTL:            e.config.OTP.TTL,
		MaxFailedAttempts: e.config.OTP.MaxFailedAttempts,
		FailureWindow:     e.config.OTP.FailureWindow,
		LockoutDuration:   e.config.OTP.LockoutDuration,
		IPThrottle:        e.config.Security.EnableIPThrottle,
		DebugExposeCode:   e.config.OTP.DebugExposeCode,
		MinPasswordLength: e.config.Security.MinPasswordLength,
		AuditEnabled:      e.config.Audit.Enabled,
		Limits:            limits,
	})
}
