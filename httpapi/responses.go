package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"go.uber.org/zap"
)

// Error codes carried in the "error" field of failure envelopes.
const (
	CodeInvalidRequest     = "INVALID_REQUEST"
	CodeServerError        = "SERVER_ERROR"
	CodeInvalidCredentials = "INVALID_CREDENTIALS"
	CodeInvalidOTP         = "INVALID_OTP"
	CodeOTPLocked          = "OTP_LOCKED"
	CodeRateLimitExceeded  = "RATE_LIMIT_EXCEEDED"
	CodeInvalidEmailFormat = "INVALID_EMAIL_FORMAT"
	CodeInvalidOTPFormat   = "INVALID_OTP_FORMAT"
	CodePasswordsMismatch  = "PASSWORDS_DO_NOT_MATCH"
	CodeUnauthorized       = "UNAUTHORIZED"
)

type envelope map[string]any

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	// Headers are already sent; an encode failure cannot change the status.
	_ = json.NewEncoder(w).Encode(body)
}

func writeFailure(w http.ResponseWriter, status int, code, message string, extra envelope) {
	body := envelope{
		"success": false,
		"error":   code,
		"message": message,
	}
	for k, v := range extra {
		body[k] = v
	}
	writeJSON(w, status, body)
}

// writeRateLimitHeaders sets the X-RateLimit-* triple; reset is a unix timestamp.
func writeRateLimitHeaders(w http.ResponseWriter, limit, remaining int, reset time.Time) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))
}

func rateLimitMessage(rl *goOTP.RateLimitError, retrySeconds int64) string {
	switch rl.Scope {
	case goOTP.ScopeOTPRequestEmail:
		return "Too many OTP requests for this email. Try again later."
	case goOTP.ScopeOTPRequestIP:
		return "Too many OTP requests from this IP. Try again later."
	default:
		return fmt.Sprintf("Too many requests. Try again in %d seconds.", retrySeconds)
	}
}

// writeError maps an engine error onto its response. Anything not in the
// taxonomy is logged and reported as SERVER_ERROR.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	var (
		rl      *goOTP.RateLimitError
		locked  *goOTP.LockedError
		invalid *goOTP.InvalidOTPError
	)

	switch {
	case errors.As(err, &rl):
		retry := retrySeconds(rl.RetryAfter)
		w.Header().Set("Retry-After", strconv.FormatInt(retry, 10))
		writeRateLimitHeaders(w, rl.Limit, 0, h.now().Add(time.Duration(retry)*time.Second))
		writeFailure(w, http.StatusTooManyRequests, CodeRateLimitExceeded, rateLimitMessage(rl, retry), envelope{
			"retry_after": goOTP.FormatDuration(rl.RetryAfter),
			"limit_type":  rl.LimitType,
		})

	case errors.As(err, &locked):
		unlockIn := goOTP.FormatDuration(locked.UnlockIn)
		writeFailure(w, http.StatusLocked, CodeOTPLocked,
			"Account locked due to too many failed attempts. Try again in "+unlockIn+".",
			envelope{"unlock_in": unlockIn})

	case errors.As(err, &invalid):
		writeFailure(w, http.StatusBadRequest, CodeInvalidOTP, "Invalid OTP code", envelope{
			"remaining_attempts": invalid.RemainingAttempts,
		})

	case errors.Is(err, goOTP.ErrInvalidEmail):
		writeFailure(w, http.StatusBadRequest, CodeInvalidEmailFormat, "Invalid email format", nil)

	case errors.Is(err, goOTP.ErrInvalidOTPFormat):
		writeFailure(w, http.StatusBadRequest, CodeInvalidOTPFormat,
			fmt.Sprintf("OTP must be %d digits", h.otpLength), nil)

	case errors.Is(err, goOTP.ErrInvalidCredentials):
		writeFailure(w, http.StatusBadRequest, CodeInvalidCredentials, "Invalid email or password", nil)

	case errors.Is(err, goOTP.ErrPasswordMismatch):
		writeFailure(w, http.StatusBadRequest, CodePasswordsMismatch, "Passwords do not match", nil)

	case errors.Is(err, goOTP.ErrAccountExists):
		writeFailure(w, http.StatusBadRequest, CodeInvalidRequest, "A user with this email already exists", nil)

	case errors.Is(err, goOTP.ErrInvalidRequest):
		msg := strings.TrimPrefix(err.Error(), goOTP.ErrInvalidRequest.Error()+": ")
		if msg == err.Error() {
			msg = "Invalid request data"
		}
		writeFailure(w, http.StatusBadRequest, CodeInvalidRequest, msg, nil)

	case errors.Is(err, goOTP.ErrInvalidToken):
		writeFailure(w, http.StatusUnauthorized, CodeUnauthorized, "Token is invalid or expired", nil)

	default:
		h.logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Bool("store_unavailable", errors.Is(err, goOTP.ErrStoreUnavailable)),
			zap.Error(err),
		)
		writeFailure(w, http.StatusInternalServerError, CodeServerError, "Internal server error", nil)
	}
}

func retrySeconds(d time.Duration) int64 {
	s := int64((d + time.Second - 1) / time.Second)
	if s < 1 {
		return 1
	}
	return s
}

type userView struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	FirstName     string    `json:"first_name"`
	LastName      string    `json:"last_name"`
	EmailVerified bool      `json:"is_email_verified"`
	DateJoined    time.Time `json:"date_joined"`
}

func newUserView(u goOTP.Identity) userView {
	return userView{
		ID:            u.ID,
		Email:         u.Email,
		FirstName:     u.FirstName,
		LastName:      u.LastName,
		EmailVerified: u.EmailVerified,
		DateJoined:    u.CreatedAt.UTC(),
	}
}

type tokensView struct {
	Access  string    `json:"access"`
	Refresh string    `json:"refresh"`
	User    *userView `json:"user,omitempty"`
}

func newTokensView(pair goOTP.TokenPair, user *goOTP.Identity) tokensView {
	out := tokensView{Access: pair.Access, Refresh: pair.Refresh}
	if user != nil {
		v := newUserView(*user)
		out.User = &v
	}
	return out
}
