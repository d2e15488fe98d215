package goOTP

import (
	"strings"

	"github.com/MrEthical07/goOTP/internal"
	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// NormalizeEmail trims and lower-cases an address and checks its shape.
// Every budget, lockout and challenge key is derived from the normalized
// form, so "Alice@X.io" and "alice@x.io" share state.
func NormalizeEmail(raw string) (string, error) {
	email := strings.ToLower(strings.TrimSpace(raw))
	if err := validate.Var(email, "required,email,max=254"); err != nil {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func (e *Engine) validOTPFormat(code string) bool {
	return len(code) == e.config.OTP.Length && internal.IsNumeric(code)
}
