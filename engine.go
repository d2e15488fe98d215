package goOTP

import (
	"context"
	"fmt"
	"time"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	internalmail "github.com/MrEthical07/goOTP/internal/mail"
	"github.com/MrEthical07/goOTP/internal/otp"
	"github.com/MrEthical07/goOTP/internal/rate"
	"github.com/MrEthical07/goOTP/internal/stores"
	"go.uber.org/zap"
)

// Engine defines a public type used by goOTP APIs.
//
// Engine instances are safe for concurrent use. All coordination state
// lives in Redis, so any number of Engines may share one deployment.
type Engine struct {
	config  Config
	store   stores.CounterStore
	limiter *rate.Limiter
	otp     *otp.Manager
	users   UserDirectory
	tokens  TokenIssuer
	audit   *internalaudit.Dispatcher
	mail    *internalmail.Dispatcher
	metrics *Metrics
	logger  *zap.Logger
	now     func() time.Time
}

// Close describes the close operation and its observable behavior.
//
// Close drains the audit and mail queues. It is safe to call more than once.
func (e *Engine) Close() {
	if e == nil {
		return
	}
	e.audit.Close()
	e.mail.Close()
}

// Ping reports whether the counter store is reachable.
func (e *Engine) Ping(ctx context.Context) error {
	if err := e.store.Ping(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
	return nil
}

// Config returns a copy of the active configuration.
func (e *Engine) Config() Config {
	return cloneConfig(e.config)
}

// AuditDropped describes the auditdropped operation and its observable behavior.
func (e *Engine) AuditDropped() uint64 {
	if e == nil {
		return 0
	}
	return e.audit.Dropped()
}

// MailStats returns sent, failed and dropped message counts.
func (e *Engine) MailStats() (sent, failed, dropped uint64) {
	if e == nil {
		return 0, 0, 0
	}
	return e.mail.Sent(), e.mail.Failed(), e.mail.Dropped()
}

// MetricsSnapshot describes the metricssnapshot operation and its observable behavior.
func (e *Engine) MetricsSnapshot() MetricsSnapshot {
	if e == nil || e.metrics == nil {
		return MetricsSnapshot{
			Counters:   map[MetricID]uint64{},
			Histograms: map[MetricID][]uint64{},
		}
	}
	return e.metrics.Snapshot()
}

// Identity returns the user record for an authenticated subject.
func (e *Engine) Identity(ctx context.Context, userID string) (Identity, error) {
	return e.users.GetByID(ctx, userID)
}

func (e *Engine) metricInc(id MetricID) {
	if e == nil || e.metrics == nil {
		return
	}
	e.metrics.Inc(id)
}

// storeFailure logs a counter store outage and converts it to the public
// sentinel. Callers return the result unchanged: enforcement fails closed.
func (e *Engine) storeFailure(op, email string, err error) error {
	e.metricInc(MetricStoreUnavailable)
	e.logger.Error("counter store unavailable",
		zap.String("op", op),
		zap.String("email", email),
		zap.Error(err),
	)
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}

// sendMail queues a message without blocking. A full or closed queue is
// logged, never returned.
func (e *Engine) sendMail(msg EmailMessage) {
	if !e.mail.Enqueue(msg) {
		e.metricInc(MetricSideEffectFailure)
		e.logger.Warn("email not queued",
			zap.String("to", msg.To),
			zap.String("kind", msg.Kind),
		)
	}
}
