package goOTP

import "testing"

func TestSecurityReportReflectsPolicy(t *testing.T) {
	cfg := testConfig()
	cfg.Security.EnableIPThrottle = false
	cfg.OTP.DebugExposeCode = true

	te := newTestEngine(t, cfg)
	report := te.SecurityReport()

	if report.OTPLength != cfg.OTP.Length || report.MaxFailedAttempts != cfg.OTP.MaxFailedAttempts {
		t.Fatalf("report does not mirror otp policy: %+v", report)
	}
	if report.IPThrottle {
		t.Fatal("expected ip throttle reported off")
	}
	if len(report.LimitedScopes) != len(cfg.RateLimits) {
		t.Fatalf("expected %d limited scopes, got %v", len(cfg.RateLimits), report.LimitedScopes)
	}
	if len(report.Warnings) < 2 {
		t.Fatalf("expected debug and throttle warnings, got %v", report.Warnings)
	}
}

func TestSecurityReportNilEngine(t *testing.T) {
	var e *Engine
	if r := e.SecurityReport(); r.OTPLength != 0 || len(r.Warnings) != 0 {
		t.Fatalf("expected zero report, got %+v", r)
	}
}
