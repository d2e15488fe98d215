package main

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	goOTP "github.com/MrEthical07/goOTP"
	"github.com/MrEthical07/goOTP/jwt"
	"github.com/spf13/viper"
)

type serverConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
	LogLevel        string        `mapstructure:"log_level"`
	LogFormat       string        `mapstructure:"log_format"`
	EmbeddedRedis   bool          `mapstructure:"embedded_redis"`

	// TrustedProxies lists CIDRs or addresses whose X-Forwarded-For is
	// honored. Comma separated in GOOTP_TRUSTED_PROXIES.
	TrustedProxies []string `mapstructure:"trusted_proxies"`

	Redis    redisConfig            `mapstructure:"redis"`
	Postgres postgresConfig         `mapstructure:"postgres"`
	JWT      jwtConfig              `mapstructure:"jwt"`
	SMTP     smtpConfig             `mapstructure:"smtp"`
	OTP      otpConfig              `mapstructure:"otp"`
	Limits   map[string]limitConfig `mapstructure:"limits"`
}

type redisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type postgresConfig struct {
	DSN     string `mapstructure:"dsn"`
	Migrate bool   `mapstructure:"migrate"`
}

type jwtConfig struct {
	SigningMethod  string        `mapstructure:"signing_method"`
	Secret         string        `mapstructure:"secret"`
	PrivateKeyFile string        `mapstructure:"private_key_file"`
	PublicKeyFile  string        `mapstructure:"public_key_file"`
	Issuer         string        `mapstructure:"issuer"`
	AccessTTL      time.Duration `mapstructure:"access_ttl"`
	RefreshTTL     time.Duration `mapstructure:"refresh_ttl"`
	SingleUse      bool          `mapstructure:"single_use_refresh"`
}

type smtpConfig struct {
	Host        string `mapstructure:"host"`
	Port        int    `mapstructure:"port"`
	Username    string `mapstructure:"username"`
	Password    string `mapstructure:"password"`
	FromAddress string `mapstructure:"from_address"`
	FromName    string `mapstructure:"from_name"`
}

type otpConfig struct {
	TTL              time.Duration `mapstructure:"ttl"`
	IPThrottle       bool          `mapstructure:"ip_throttle"`
	DebugExposeCode  bool          `mapstructure:"debug_expose_code"`
	LatencyHistogram bool          `mapstructure:"latency_histogram"`
}

type limitConfig struct {
	Requests int           `mapstructure:"requests"`
	Window   time.Duration `mapstructure:"window"`
}

// loadConfig reads defaults, then the optional file at path, then GOOTP_*
// environment variables. GOOTP_JWT_SECRET sets jwt.secret.
func loadConfig(path string) (serverConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("GOOTP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("addr", ":8080")
	v.SetDefault("shutdown_timeout", 15*time.Second)
	v.SetDefault("log_level", "info")
	v.SetDefault("log_format", "json")
	v.SetDefault("embedded_redis", false)
	v.SetDefault("trusted_proxies", []string{})

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("postgres.dsn", "")
	v.SetDefault("postgres.migrate", true)

	v.SetDefault("jwt.signing_method", string(jwt.MethodHS256))
	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.private_key_file", "")
	v.SetDefault("jwt.public_key_file", "")
	v.SetDefault("jwt.issuer", "gootp")
	v.SetDefault("jwt.access_ttl", 15*time.Minute)
	v.SetDefault("jwt.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("jwt.single_use_refresh", true)

	v.SetDefault("smtp.host", "")
	v.SetDefault("smtp.port", 587)
	v.SetDefault("smtp.username", "")
	v.SetDefault("smtp.password", "")
	v.SetDefault("smtp.from_address", "")
	v.SetDefault("smtp.from_name", "goOTP")

	defaults := goOTP.DefaultConfig()
	v.SetDefault("otp.ttl", defaults.OTP.TTL)
	v.SetDefault("otp.ip_throttle", defaults.Security.EnableIPThrottle)
	v.SetDefault("otp.debug_expose_code", false)
	v.SetDefault("otp.latency_histogram", true)
	for scope, rule := range defaults.RateLimits {
		v.SetDefault("limits."+scope.String()+".requests", rule.Requests)
		v.SetDefault("limits."+scope.String()+".window", rule.Window)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return serverConfig{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg serverConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return serverConfig{}, fmt.Errorf("decode config: %w", err)
	}
	return cfg, nil
}

// engineConfig maps the server settings onto the engine policy.
func (c serverConfig) engineConfig() (goOTP.Config, error) {
	cfg := goOTP.DefaultConfig()
	cfg.OTP.TTL = c.OTP.TTL
	cfg.OTP.DebugExposeCode = c.OTP.DebugExposeCode
	cfg.Security.EnableIPThrottle = c.OTP.IPThrottle
	cfg.Metrics.EnableLatencyHistograms = c.OTP.LatencyHistogram

	for name, lc := range c.Limits {
		scope, err := goOTP.ParseScope(name)
		if err != nil {
			return goOTP.Config{}, err
		}
		cfg.RateLimits[scope] = goOTP.RateLimitRule{Requests: lc.Requests, Window: lc.Window}
	}

	if err := cfg.Validate(); err != nil {
		return goOTP.Config{}, err
	}
	return cfg, nil
}

func (c jwtConfig) managerConfig() (jwt.Config, error) {
	out := jwt.Config{
		AccessTTL:     c.AccessTTL,
		RefreshTTL:    c.RefreshTTL,
		SigningMethod: jwt.SigningMethod(strings.ToLower(c.SigningMethod)),
		Issuer:        c.Issuer,
		RequireIAT:    true,
	}

	switch out.SigningMethod {
	case jwt.MethodHS256:
		if c.Secret == "" {
			return jwt.Config{}, errors.New("jwt.secret is required for hs256")
		}
		out.PrivateKey = []byte(c.Secret)
	case jwt.MethodEd25519:
		if c.PrivateKeyFile == "" || c.PublicKeyFile == "" {
			return jwt.Config{}, errors.New("jwt.private_key_file and jwt.public_key_file are required for ed25519")
		}
		priv, err := os.ReadFile(c.PrivateKeyFile)
		if err != nil {
			return jwt.Config{}, fmt.Errorf("read jwt private key: %w", err)
		}
		pub, err := os.ReadFile(c.PublicKeyFile)
		if err != nil {
			return jwt.Config{}, fmt.Errorf("read jwt public key: %w", err)
		}
		out.PrivateKey, out.PublicKey = priv, pub
	default:
		return jwt.Config{}, fmt.Errorf("unsupported jwt.signing_method %q", c.SigningMethod)
	}
	return out, nil
}
