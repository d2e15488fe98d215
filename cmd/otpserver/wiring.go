package main

import (
	"context"
	"fmt"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/directory"
	"github.com/MrEthical07/goOTP/mail"
	"github.com/MrEthical07/goOTP/password"
	"github.com/MrEthical07/goOTP/postgres"
	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func openRedis(ctx context.Context, cfg serverConfig, logger *zap.Logger) (*redis.Client, func(), error) {
	if cfg.EmbeddedRedis {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, nil, fmt.Errorf("start miniredis: %w", err)
		}
		client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
		logger.Warn("using embedded redis; state is lost on exit and not shared between instances",
			zap.String("addr", mr.Addr()))
		return client, func() {
			_ = client.Close()
			mr.Close()
		}, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
	}
	logger.Info("connected to redis", zap.String("addr", cfg.Redis.Addr))
	return client, func() { _ = client.Close() }, nil
}

type userBackend struct {
	users goOTP.UserDirectory
	audit goOTP.AuditSink
	close func()
}

// openUserBackend uses Postgres for users and audit rows when a DSN is
// set, otherwise an in-memory directory and log-based audit.
func openUserBackend(ctx context.Context, cfg postgresConfig, hasher *password.Argon2, logger *zap.Logger) (*userBackend, error) {
	if cfg.DSN == "" {
		users, err := directory.NewMemory(hasher)
		if err != nil {
			return nil, err
		}
		logger.Warn("no postgres dsn; users are kept in memory")
		return &userBackend{
			users: users,
			audit: goOTP.NewLogSink(logger),
			close: func() {},
		}, nil
	}

	pool, err := pgxpool.New(ctx, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("postgres pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("postgres ping: %w", err)
	}
	if cfg.Migrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
	}

	users, err := postgres.NewDirectory(pool, hasher)
	if err != nil {
		pool.Close()
		return nil, err
	}
	logger.Info("using postgres user directory")
	return &userBackend{
		users: users,
		audit: postgres.NewAuditSink(pool),
		close: pool.Close,
	}, nil
}

func newSender(cfg smtpConfig, logger *zap.Logger) (goOTP.EmailSender, error) {
	if cfg.Host == "" {
		logger.Warn("no smtp host; emails are logged, not sent")
		return mail.NewLogSender(logger), nil
	}
	sender, err := mail.NewSMTPSender(mail.SMTPConfig{
		Host:        cfg.Host,
		Port:        cfg.Port,
		Username:    cfg.Username,
		Password:    cfg.Password,
		FromAddress: cfg.FromAddress,
		FromName:    cfg.FromName,
	})
	if err != nil {
		return nil, fmt.Errorf("smtp sender: %w", err)
	}
	return sender, nil
}
