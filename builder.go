package goOTP

import (
	"errors"
	"time"

	internalaudit "github.com/MrEthical07/goOTP/internal/audit"
	"github.com/MrEthical07/goOTP/internal/limiters"
	internalmail "github.com/MrEthical07/goOTP/internal/mail"
	"github.com/MrEthical07/goOTP/internal/otp"
	"github.com/MrEthical07/goOTP/internal/rate"
	"github.com/MrEthical07/goOTP/internal/stores"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Builder defines a public type used by goOTP APIs.
//
// Builder instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Builder struct {
	config Config
	redis  redis.UniversalClient

	users       UserDirectory
	tokens      TokenIssuer
	emailSender EmailSender
	auditSink   AuditSink
	logger      *zap.Logger
	clock       func() time.Time

	built bool
}

// New describes the new operation and its observable behavior.
//
// New starts from DefaultConfig.
func New() *Builder {
	return &Builder{
		config: DefaultConfig(),
	}
}

// WithConfig describes the withconfig operation and its observable behavior.
//
// WithConfig replaces the whole configuration with a copy of cfg.
func (b *Builder) WithConfig(cfg Config) *Builder {
	b.config = cloneConfig(cfg)
	return b
}

// WithRedis describes the withredis operation and its observable behavior.
//
// WithRedis accepts any go-redis client (single node, cluster, sentinel).
// Per-email keys share an {email} hash tag, so multi-key scripts stay in one
// cluster slot. The Engine never closes it.
func (b *Builder) WithRedis(client redis.UniversalClient) *Builder {
	b.redis = client
	return b
}

// WithUserDirectory describes the withuserdirectory operation and its observable behavior.
func (b *Builder) WithUserDirectory(users UserDirectory) *Builder {
	b.users = users
	return b
}

// WithTokenIssuer describes the withtokenissuer operation and its observable behavior.
func (b *Builder) WithTokenIssuer(tokens TokenIssuer) *Builder {
	b.tokens = tokens
	return b
}

// WithEmailSender describes the withemailsender operation and its observable behavior.
//
// WithEmailSender sets the sender used by the background mail workers.
func (b *Builder) WithEmailSender(sender EmailSender) *Builder {
	b.emailSender = sender
	return b
}

// WithAuditSink describes the withauditsink operation and its observable behavior.
func (b *Builder) WithAuditSink(sink AuditSink) *Builder {
	b.auditSink = sink
	return b
}

// WithLogger sets the structured logger. The default discards everything.
func (b *Builder) WithLogger(logger *zap.Logger) *Builder {
	b.logger = logger
	return b
}

// WithClock overrides the time source used for windows and lockouts.
func (b *Builder) WithClock(now func() time.Time) *Builder {
	b.clock = now
	return b
}

// WithMetricsEnabled describes the withmetricsenabled operation and its observable behavior.
func (b *Builder) WithMetricsEnabled(enabled bool) *Builder {
	b.config.Metrics.Enabled = enabled
	return b
}

// WithLatencyHistograms describes the withlatencyhistograms operation and its observable behavior.
func (b *Builder) WithLatencyHistograms(enabled bool) *Builder {
	b.config.Metrics.EnableLatencyHistograms = enabled
	return b
}

// Build describes the build operation and its observable behavior.
//
// Build may return an error when a required collaborator is missing or the configuration is invalid.
// A Builder can be used once.
func (b *Builder) Build() (*Engine, error) {
	if b.built {
		return nil, errors.New("builder already used")
	}

	cfg := cloneConfig(b.config)

	if b.redis == nil {
		return nil, errors.New("redis client required")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if b.users == nil {
		return nil, errors.New("user directory required")
	}
	if b.tokens == nil {
		return nil, errors.New("token issuer required")
	}
	if b.emailSender == nil {
		return nil, errors.New("email sender required")
	}

	logger := b.logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := b.clock
	if now == nil {
		now = time.Now
	}

	// -------- SHARED STATE --------
	store := stores.NewRedisCounterStore(b.redis)
	limiter := rate.New(store, now)
	lockout := limiters.NewLockoutLimiter(limiter, limiters.LockoutConfig{
		Threshold:     cfg.OTP.MaxFailedAttempts,
		FailureWindow: cfg.OTP.FailureWindow,
		Duration:      cfg.OTP.LockoutDuration,
	})

	engine := &Engine{
		config:  cloneConfig(cfg),
		store:   store,
		limiter: limiter,
		otp: otp.NewManager(store, lockout, otp.Config{
			Length: cfg.OTP.Length,
			TTL:    cfg.OTP.TTL,
		}),
		users:   b.users,
		tokens:  b.tokens,
		metrics: NewMetrics(cfg.Metrics),
		logger:  logger.Named("goOTP"),
		now:     now,
	}

	// -------- SIDE EFFECTS --------
	engine.audit = internalaudit.NewDispatcher(internalaudit.Config{
		Enabled:     cfg.Audit.Enabled,
		BufferSize:  cfg.Audit.BufferSize,
		DropIfFull:  cfg.Audit.DropIfFull,
		SinkTimeout: cfg.Audit.SinkTimeout,
	}, b.auditSink, engine.logger)
	engine.mail = internalmail.NewDispatcher(internalmail.Config{
		BufferSize:  cfg.Mail.BufferSize,
		Workers:     cfg.Mail.Workers,
		SendTimeout: cfg.Mail.SendTimeout,
	}, b.emailSender, engine.logger)

	b.built = true

	return engine, nil
}
