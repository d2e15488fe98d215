package goOTP

import (
	"context"
	"fmt"

	"github.com/MrEthical07/goOTP/internal/rate"
	"go.uber.org/zap"
)

// Limit types name the identity a budget is keyed by. They are reported
// to clients as limit_type.
const (
	LimitTypeEmail = rate.DimensionEmail
	LimitTypeIP    = rate.DimensionIP
	LimitTypeToken = rate.DimensionToken
)

func rateKey(scope Scope, limitType, identity string) string {
	return rate.Key(scope.endpoint(), limitType, identity)
}

func (e *Engine) rule(scope Scope) (RateLimitRule, error) {
	rule, ok := e.config.RateLimits[scope]
	if !ok {
		return RateLimitRule{}, fmt.Errorf("%w: %s", ErrUnknownScope, scope)
	}
	return rule, nil
}

// CheckRateLimit consumes one hit from the scope's budget for identity.
// A rejected hit returns *RateLimitError and is not recorded. Store
// outages return ErrStoreUnavailable.
func (e *Engine) CheckRateLimit(ctx context.Context, scope Scope, limitType, identity string) error {
	return e.enforce(ctx, scope, limitType, identity, "")
}

// RateLimitStatus reports the budget for identity without consuming it.
func (e *Engine) RateLimitStatus(ctx context.Context, scope Scope, limitType, identity string) (RateLimitStatus, error) {
	rule, err := e.rule(scope)
	if err != nil {
		return RateLimitStatus{}, err
	}
	key := rateKey(scope, limitType, identity)

	remaining, err := e.limiter.Remaining(ctx, key, rule.Requests, rule.Window)
	if err != nil {
		return RateLimitStatus{}, e.storeFailure("rate_status", "", err)
	}
	resetIn, err := e.limiter.ResetAfter(ctx, key, rule.Window)
	if err != nil {
		return RateLimitStatus{}, e.storeFailure("rate_status", "", err)
	}

	return RateLimitStatus{
		Scope:     scope,
		Limit:     rule.Requests,
		Remaining: remaining,
		ResetIn:   resetIn,
	}, nil
}

func (e *Engine) enforce(ctx context.Context, scope Scope, limitType, identity, email string) error {
	rule, err := e.rule(scope)
	if err != nil {
		return err
	}
	key := rateKey(scope, limitType, identity)

	limited, err := e.limiter.IsRateLimited(ctx, key, rule.Requests, rule.Window)
	if err != nil {
		return e.storeFailure("rate_limit", email, err)
	}
	if !limited {
		return nil
	}

	retryAfter, err := e.limiter.ResetAfter(ctx, key, rule.Window)
	if err != nil {
		e.logger.Warn("rate limit reset lookup failed",
			zap.Stringer("scope", scope),
			zap.Error(err),
		)
		retryAfter = rule.Window
	}

	rlErr := &RateLimitError{
		Scope:      scope,
		LimitType:  limitType,
		Limit:      rule.Requests,
		RetryAfter: retryAfter,
	}

	e.metricInc(MetricRateLimitHit)
	e.emitAudit(ctx, AuditRateLimited, email, "", false, rlErr, func() map[string]string {
		return map[string]string{
			"scope":       scope.String(),
			"limit_type":  limitType,
			"retry_after": formatSeconds(retryAfter),
		}
	})

	return rlErr
}
