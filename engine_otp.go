package goOTP

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/goOTP/internal/otp"
	"go.uber.org/zap"
)

// RequestOTP issues a one-time code for email and queues it for delivery.
//
// The email budget is checked first, then the client IP budget when the
// context carries an IP. A new request replaces any outstanding code.
// Mail and audit failures are logged and never change the result.
func (e *Engine) RequestOTP(ctx context.Context, rawEmail string) (*OTPRequestResult, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}

	if err := e.enforce(ctx, ScopeOTPRequestEmail, LimitTypeEmail, email, email); err != nil {
		return nil, err
	}
	if ip := ClientIPFromContext(ctx); ip != "" && e.config.Security.EnableIPThrottle {
		if err := e.enforce(ctx, ScopeOTPRequestIP, LimitTypeIP, ip, email); err != nil {
			return nil, err
		}
	}

	code, err := e.otp.Request(ctx, email)
	if err != nil {
		return nil, e.storeFailure("otp_request", email, err)
	}

	user, created, err := e.users.GetOrCreate(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user directory: %w", err)
	}
	if created {
		e.metricInc(MetricUserCreated)
	}

	if e.config.OTP.DebugExposeCode {
		e.logger.Debug("otp issued", zap.String("email", email), zap.String("code", code))
	}

	e.sendMail(EmailMessage{
		To:      email,
		Subject: e.config.Mail.OTPSubject,
		Body:    otpEmailBody(code, e.config.OTP.TTL),
		Kind:    "otp",
	})

	e.metricInc(MetricOTPRequested)
	e.emitAudit(ctx, AuditOTPRequested, email, user.ID, true, nil, func() map[string]string {
		meta := map[string]string{
			"created":    strconv.FormatBool(created),
			"expires_in": formatSeconds(e.config.OTP.TTL),
		}
		if e.config.OTP.DebugExposeCode {
			meta["otp_code"] = code
		}
		return meta
	})

	return &OTPRequestResult{
		Email:     email,
		ExpiresIn: e.config.OTP.TTL,
		Created:   created,
	}, nil
}

// VerifyOTP checks a submitted code and issues tokens on success.
//
// Order: format validation, lockout check, verify budget, code comparison.
// An active lockout returns *LockedError without touching any counter.
// A wrong, expired or missing code returns *InvalidOTPError with the
// attempts left; the failure that reaches the threshold returns
// *LockedError instead.
func (e *Engine) VerifyOTP(ctx context.Context, rawEmail, code string) (*VerifyResult, error) {
	start := time.Now()
	defer func() {
		e.metrics.Observe(MetricVerifyLatency, time.Since(start))
	}()

	email, err := NormalizeEmail(rawEmail)
	if err != nil {
		return nil, err
	}
	if !e.validOTPFormat(code) {
		return nil, ErrInvalidOTPFormat
	}

	unlockIn, err := e.otp.Lockout(ctx, email)
	if err != nil {
		return nil, e.storeFailure("otp_lockout", email, err)
	}
	if unlockIn > 0 {
		e.metricInc(MetricOTPLockoutRejected)
		return nil, &LockedError{UnlockIn: unlockIn}
	}

	if err := e.enforce(ctx, ScopeOTPVerify, LimitTypeEmail, email, email); err != nil {
		return nil, err
	}

	result, err := e.otp.Compare(ctx, email, code)
	if err != nil {
		return nil, e.storeFailure("otp_verify", email, err)
	}

	switch result.Status {
	case otp.StatusLocked:
		lockErr := &LockedError{UnlockIn: result.UnlockIn}
		e.metricInc(MetricOTPLocked)
		e.emitAudit(ctx, AuditOTPLocked, email, "", false, lockErr, func() map[string]string {
			return map[string]string{"failed_attempts": strconv.Itoa(result.FailedAttempts)}
		})
		return nil, lockErr
	case otp.StatusInvalid:
		invalidErr := &InvalidOTPError{RemainingAttempts: result.RemainingAttempts}
		e.metricInc(MetricOTPFailed)
		e.emitAudit(ctx, AuditOTPFailed, email, "", false, invalidErr, func() map[string]string {
			return map[string]string{"failed_attempts": strconv.Itoa(result.FailedAttempts)}
		})
		return nil, invalidErr
	}

	user, created, err := e.users.GetOrCreate(ctx, email)
	if err != nil {
		return nil, fmt.Errorf("user directory: %w", err)
	}
	if created {
		e.metricInc(MetricUserCreated)
	}
	if !user.EmailVerified {
		if err := e.users.MarkVerified(ctx, user.ID); err != nil {
			e.metricInc(MetricSideEffectFailure)
			e.logger.Warn("mark email verified failed",
				zap.String("email", email),
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		} else {
			user.EmailVerified = true
		}
	}

	tokens, err := e.tokens.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	e.metricInc(MetricOTPVerified)
	e.emitAudit(ctx, AuditOTPVerified, email, user.ID, true, nil, func() map[string]string {
		return map[string]string{"user_created": strconv.FormatBool(created)}
	})

	return &VerifyResult{
		Tokens:  tokens,
		User:    user,
		Created: created,
	}, nil
}

func otpEmailBody(code string, ttl time.Duration) string {
	return "Your login code is " + code + ".\n\n" +
		"It expires in " + FormatDuration(ttl) + ". If you did not request it, ignore this email.\n"
}
