package httpapi

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("notblank", func(fl validator.FieldLevel) bool {
		return strings.TrimSpace(fl.Field().String()) != ""
	})
	return v
}

// fieldError names the first request field that failed validation.
type fieldError struct {
	Field   string
	Message string
}

func (e *fieldError) Error() string { return e.Message }

func validateRequest(req any) *fieldError {
	err := validate.Struct(req)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &fieldError{Message: "invalid request body"}
	}

	fe := verrs[0]
	field := fe.Field()
	switch fe.ActualTag() {
	case "required", "notblank":
		return &fieldError{Field: field, Message: fmt.Sprintf("%s is required", field)}
	case "max":
		return &fieldError{Field: field, Message: fmt.Sprintf("%s must be at most %s characters", field, fe.Param())}
	default:
		return &fieldError{Field: field, Message: fmt.Sprintf("%s is invalid", field)}
	}
}

type otpRequestBody struct {
	Email string `json:"email" validate:"notblank,max=254"`
}

type otpVerifyBody struct {
	Email string `json:"email" validate:"notblank,max=254"`
	OTP   string `json:"otp" validate:"required,max=10"`
}

type loginBody struct {
	Email    string `json:"email" validate:"notblank,max=254"`
	Password string `json:"password" validate:"required,max=1024"`
}

type registerBody struct {
	Email           string `json:"email" validate:"notblank,max=254"`
	Password        string `json:"password" validate:"required,max=1024"`
	PasswordConfirm string `json:"password_confirm" validate:"required,max=1024"`
	FirstName       string `json:"first_name" validate:"max=150"`
	LastName        string `json:"last_name" validate:"max=150"`
}

type refreshBody struct {
	Refresh string `json:"refresh" validate:"notblank"`
}
