package goOTP

import (
	"context"
	"io"
	"strconv"
	"time"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	"go.uber.org/zap"
)

// Audit event types.
const (
	AuditOTPRequested   = "OTP_REQUESTED"
	AuditOTPVerified    = "OTP_VERIFIED"
	AuditOTPFailed      = "OTP_FAILED"
	AuditOTPLocked      = "OTP_LOCKED"
	AuditLoginSuccess   = "LOGIN_SUCCESS"
	AuditLoginFailed    = "LOGIN_FAILED"
	AuditUserRegistered = "USER_REGISTERED"
	AuditRateLimited    = "RATE_LIMITED"
	AuditTokenRefreshed = "TOKEN_REFRESHED"
)

// NoOpSink drops audit events.
type NoOpSink = internalaudit.NoOpSink

// NewChannelSink returns a sink that buffers events in a channel.
func NewChannelSink(buffer int) *internalaudit.ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a sink that writes one JSON object per line.
func NewJSONWriterSink(w io.Writer) *internalaudit.JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewLogSink returns a sink that writes events as structured log entries.
func NewLogSink(logger *zap.Logger) *internalaudit.LogSink {
	return internalaudit.NewLogSink(logger)
}

func (e *Engine) emitAudit(ctx context.Context, eventType, email, userID string, success bool, err error, metadata func() map[string]string) {
	if e == nil || e.audit == nil {
		return
	}

	event := AuditEvent{
		Timestamp: e.now().UTC(),
		EventType: eventType,
		Email:     email,
		UserID:    userID,
		IP:        ClientIPFromContext(ctx),
		UserAgent: userAgentFromContext(ctx),
		Success:   success,
	}
	if err != nil {
		event.Error = auditErrorCode(err)
	}
	if metadata != nil {
		event.Metadata = metadata()
	}

	e.audit.Emit(ctx, event)
}

// auditErrorCode maps errors onto stable codes so raw error text never
// reaches the audit trail.
func auditErrorCode(err error) string {
	switch err.(type) {
	case *RateLimitError:
		return "rate_limited"
	case *LockedError:
		return "otp_locked"
	case *InvalidOTPError:
		return "invalid_otp"
	}
	switch err {
	case ErrInvalidCredentials:
		return "invalid_credentials"
	case ErrInvalidToken:
		return "invalid_token"
	case ErrAccountExists:
		return "account_exists"
	default:
		return "error"
	}
}

func formatSeconds(d time.Duration) string {
	return strconv.FormatInt(ceilSeconds(d), 10)
}
