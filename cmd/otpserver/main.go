// Command otpserver serves the goOTP HTTP API.
//
// Settings come from an optional config file (--config) and GOOTP_*
// environment variables, e.g. GOOTP_JWT_SECRET, GOOTP_REDIS_ADDR,
// GOOTP_POSTGRES_DSN, GOOTP_SMTP_HOST. Without a Postgres DSN users live in
// memory and audit events go to the log; without an SMTP host emails are
// logged instead of sent. X-Forwarded-For is honored only from
// GOOTP_TRUSTED_PROXIES.
//
// Run locally without Redis:
//
//	GOOTP_JWT_SECRET=dev go run ./cmd/otpserver --embedded-redis
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/httpapi"
	"github.com/MrEthical07/goOTP/jwt"
	promexport "github.com/MrEthical07/goOTP/metrics/export/prometheus"
	"github.com/MrEthical07/goOTP/middleware"
	"github.com/MrEthical07/goOTP/password"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"
)

func main() {
	var (
		configPath = flag.String("config", "", "config file (yaml, json or toml)")
		embedded   = flag.Bool("embedded-redis", false, "use an in-process miniredis instead of redis.addr")
	)
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	if *embedded {
		cfg.EmbeddedRedis = true
	}

	logger, err := newLogger(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
}

func newLogger(level, format string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log_level: %w", err)
	}

	zcfg := zap.NewProductionConfig()
	if format == "console" {
		zcfg = zap.NewDevelopmentConfig()
	}
	zcfg.Level = zap.NewAtomicLevelAt(lvl)
	return zcfg.Build()
}

func run(ctx context.Context, cfg serverConfig, logger *zap.Logger) error {
	engineCfg, err := cfg.engineConfig()
	if err != nil {
		return fmt.Errorf("engine config: %w", err)
	}

	rdb, closeRedis, err := openRedis(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeRedis()

	hasher, err := password.NewArgon2(password.DefaultConfig())
	if err != nil {
		return fmt.Errorf("password hasher: %w", err)
	}

	backend, err := openUserBackend(ctx, cfg.Postgres, hasher, logger)
	if err != nil {
		return err
	}
	defer backend.close()

	jwtCfg, err := cfg.JWT.managerConfig()
	if err != nil {
		return err
	}
	tokens, err := jwt.NewManager(jwtCfg)
	if err != nil {
		return fmt.Errorf("jwt manager: %w", err)
	}
	if cfg.JWT.SingleUse {
		tokens.WithRefreshStore(rdb)
	}

	sender, err := newSender(cfg.SMTP, logger)
	if err != nil {
		return err
	}

	engine, err := goOTP.New().
		WithConfig(engineCfg).
		WithRedis(rdb).
		WithUserDirectory(backend.users).
		WithTokenIssuer(tokens).
		WithEmailSender(sender).
		WithAuditSink(backend.audit).
		WithLogger(logger).
		Build()
	if err != nil {
		return fmt.Errorf("engine build: %w", err)
	}
	defer engine.Close()

	report := engine.SecurityReport()
	logger.Info("security posture",
		zap.Int("otp_length", report.OTPLength),
		zap.Duration("otp_ttl", report.OTPTTL),
		zap.Int("max_failed_attempts", report.MaxFailedAttempts),
		zap.Duration("lockout", report.LockoutDuration),
		zap.Strings("limited_scopes", report.LimitedScopes),
	)
	for _, w := range report.Warnings {
		logger.Warn("weak setting", zap.String("detail", w))
	}

	proxies, err := middleware.NewIPResolver(cfg.TrustedProxies)
	if err != nil {
		return fmt.Errorf("trusted_proxies: %w", err)
	}
	if len(cfg.TrustedProxies) == 0 {
		logger.Info("no trusted proxies; X-Forwarded-For is ignored")
	}

	router := httpapi.NewRouter(engine, httpapi.Options{
		Verifier: tokens,
		Metrics:  promexport.NewCollector(engine).Handler(),
		ClientIP: proxies,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("listening", zap.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}
