package goOTP

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"

	"go.uber.org/zap"
)

// Login authenticates with email and password.
//
// Unknown emails, wrong passwords, disabled accounts and malformed emails
// all return ErrInvalidCredentials.
func (e *Engine) Login(ctx context.Context, rawEmail, password string) (*LoginResult, error) {
	email, err := NormalizeEmail(rawEmail)
	if err != nil || password == "" {
		e.metricInc(MetricLoginFailure)
		return nil, ErrInvalidCredentials
	}

	if err := e.enforce(ctx, ScopeLogin, LimitTypeEmail, email, email); err != nil {
		return nil, err
	}

	user, err := e.users.Authenticate(ctx, email, password)
	if err != nil {
		if !errors.Is(err, ErrInvalidCredentials) && !errors.Is(err, ErrUserNotFound) {
			e.logger.Error("user directory authenticate failed", zap.String("email", email), zap.Error(err))
		}
		e.metricInc(MetricLoginFailure)
		e.emitAudit(ctx, AuditLoginFailed, email, "", false, ErrInvalidCredentials, nil)
		return nil, ErrInvalidCredentials
	}

	tokens, err := e.tokens.Issue(ctx, user)
	if err != nil {
		return nil, fmt.Errorf("token issuer: %w", err)
	}

	e.metricInc(MetricLoginSuccess)
	e.emitAudit(ctx, AuditLoginSuccess, email, user.ID, true, nil, nil)

	return &LoginResult{Tokens: tokens, User: user}, nil
}

// Register creates a password account and queues a welcome email.
func (e *Engine) Register(ctx context.Context, in RegisterInput) (Identity, error) {
	email, err := NormalizeEmail(in.Email)
	if err != nil {
		return Identity{}, err
	}

	if err := e.enforce(ctx, ScopeRegister, LimitTypeEmail, email, email); err != nil {
		return Identity{}, err
	}

	if in.Password != in.PasswordConfirm {
		return Identity{}, ErrPasswordMismatch
	}
	if len(in.Password) < e.config.Security.MinPasswordLength {
		return Identity{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalidRequest, e.config.Security.MinPasswordLength)
	}

	user, err := e.users.Create(ctx, NewUser{
		Email:     email,
		Password:  in.Password,
		FirstName: in.FirstName,
		LastName:  in.LastName,
	})
	if err != nil {
		if errors.Is(err, ErrAccountExists) {
			e.metricInc(MetricRegisterDuplicate)
			return Identity{}, ErrAccountExists
		}
		return Identity{}, fmt.Errorf("user directory: %w", err)
	}

	e.sendMail(EmailMessage{
		To:      email,
		Subject: e.config.Mail.WelcomeSubject,
		Body:    welcomeEmailBody(user),
		Kind:    "welcome",
	})

	e.metricInc(MetricRegisterSuccess)
	e.emitAudit(ctx, AuditUserRegistered, email, user.ID, true, nil, nil)

	return user, nil
}

// RefreshTokens exchanges a refresh token for a new pair. The budget is
// keyed by client IP when known, otherwise by a digest of the token.
func (e *Engine) RefreshTokens(ctx context.Context, refreshToken string) (TokenPair, error) {
	if refreshToken == "" {
		return TokenPair{}, ErrInvalidToken
	}

	limitType, identity := LimitTypeIP, ClientIPFromContext(ctx)
	if identity == "" {
		sum := sha256.Sum256([]byte(refreshToken))
		limitType, identity = LimitTypeToken, hex.EncodeToString(sum[:16])
	}
	if err := e.enforce(ctx, ScopeTokenRefresh, limitType, identity, ""); err != nil {
		return TokenPair{}, err
	}

	pair, err := e.tokens.Refresh(ctx, refreshToken)
	if err != nil {
		e.metricInc(MetricTokenRefreshFailure)
		if errors.Is(err, ErrInvalidToken) {
			return TokenPair{}, ErrInvalidToken
		}
		return TokenPair{}, fmt.Errorf("token issuer: %w", err)
	}

	e.metricInc(MetricTokenRefreshSuccess)
	e.emitAudit(ctx, AuditTokenRefreshed, "", "", true, nil, nil)

	return pair, nil
}

func welcomeEmailBody(user Identity) string {
	name := user.FirstName
	if name == "" {
		name = user.Email
	}
	return "Hi " + name + ",\n\nYour account has been created. You can sign in with your password or a one-time code sent to this address.\n"
}
