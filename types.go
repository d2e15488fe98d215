package goOTP

import (
	"context"
	"time"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	internalmail "github.com/MrEthical07/goOTP/internal/mail"
)

// Identity is a user record as seen by the engine.
type Identity struct {
	ID            string
	Email         string
	FirstName     string
	LastName      string
	EmailVerified bool
	Active        bool
	CreatedAt     time.Time
}

// NewUser is the input to UserDirectory.Create. Password is plaintext and
// is hashed by the directory.
type NewUser struct {
	Email     string
	Password  string
	FirstName string
	LastName  string
}

// RegisterInput is the input to Engine.Register.
type RegisterInput struct {
	Email           string
	Password        string
	PasswordConfirm string
	FirstName       string
	LastName        string
}

// TokenPair is an issued access/refresh token pair.
type TokenPair struct {
	Access           string
	Refresh          string
	AccessExpiresAt  time.Time
	RefreshExpiresAt time.Time
}

// UserDirectory owns durable user records.
//
// GetOrCreate must be idempotent: concurrent calls for the same email yield
// one record and report created=true to at most one caller.
type UserDirectory interface {
	GetOrCreate(ctx context.Context, email string) (Identity, bool, error)
	GetByID(ctx context.Context, id string) (Identity, error)
	MarkVerified(ctx context.Context, id string) error
	// Authenticate returns ErrInvalidCredentials for unknown emails, wrong
	// passwords and inactive accounts alike.
	Authenticate(ctx context.Context, email, password string) (Identity, error)
	// Create returns ErrAccountExists when the email is taken.
	Create(ctx context.Context, user NewUser) (Identity, error)
}

// TokenIssuer mints session tokens for a verified identity.
type TokenIssuer interface {
	Issue(ctx context.Context, user Identity) (TokenPair, error)
	// Refresh exchanges a refresh token for a new pair. Unusable tokens
	// yield ErrInvalidToken.
	Refresh(ctx context.Context, refreshToken string) (TokenPair, error)
}

// AuditEvent is the audit record handed to an AuditSink.
type AuditEvent = internalaudit.Event

// AuditSink receives audit events on a background goroutine.
type AuditSink = internalaudit.Sink

// EmailMessage is one outbound email.
type EmailMessage = internalmail.Message

// EmailSender delivers outbound email on a background goroutine.
type EmailSender = internalmail.Sender

// OTPRequestResult is returned by Engine.RequestOTP.
type OTPRequestResult struct {
	Email     string
	ExpiresIn time.Duration
	Created   bool
}

// VerifyResult is returned by Engine.VerifyOTP.
type VerifyResult struct {
	Tokens  TokenPair
	User    Identity
	Created bool
}

// LoginResult is returned by Engine.Login.
type LoginResult struct {
	Tokens TokenPair
	User   Identity
}

// RateLimitStatus describes a budget without consuming it.
type RateLimitStatus struct {
	Scope     Scope
	Limit     int
	Remaining int
	ResetIn   time.Duration
}
