package config

import (
	"context"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"
)

type Config struct {
	Environment string `env:"ENVIRONMENT,default=development"`
	Port        int    `env:"PORT,default=8080"`
	DatabaseURL string `env:"DATABASE_URL,required"`
	LogLevel    string `env:"LOG_LEVEL,default=info"`

	// Identity provider (session validation for bearer tokens).
	IdentityURL        string        `env:"IDENTITY_URL"`
	IdentityServiceKey string        `env:"IDENTITY_SERVICE_KEY"`
	IdentityTimeout    time.Duration `env:"IDENTITY_TIMEOUT,default=5s"`

	// JWTSecret enables local HS256 verification instead of the remote
	// session-validation call. At least one of the two must be configured.
	JWTSecret string `env:"JWT_SECRET"`

	// APIKeySecret is the server-held HMAC pepper for secret-key hashing.
	APIKeySecret string `env:"API_KEY_SECRET,required"`

	// StripeWebhookSecret signs provider webhook payloads. The webhook
	// route responds with a configuration error while it is unset.
	StripeWebhookSecret string `env:"STRIPE_WEBHOOK_SECRET"`

	CORSOrigins []string `env:"CORS_ORIGINS"`

	// Per-account rate limit on authenticated routes.
	RateLimitMax    int `env:"RATE_LIMIT_MAX,default=120"`
	RateLimitWindow int `env:"RATE_LIMIT_WINDOW,default=60"`

	// HTTP server timeouts
	ReadTimeout  time.Duration `env:"HTTP_READ_TIMEOUT,default=15s"`
	WriteTimeout time.Duration `env:"HTTP_WRITE_TIMEOUT,default=30s"`
	IdleTimeout  time.Duration `env:"HTTP_IDLE_TIMEOUT,default=60s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(context.Background(), &cfg); err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Environment != "development" && c.Environment != "production" {
		return fmt.Errorf("ENVIRONMENT must be 'development' or 'production', got %q", c.Environment)
	}

	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("PORT must be between 1 and 65535, got %d", c.Port)
	}

	if len(c.APIKeySecret) < 16 {
		return fmt.Errorf("API_KEY_SECRET must be at least 16 bytes")
	}

	if c.JWTSecret == "" && c.IdentityURL == "" {
		return fmt.Errorf("either JWT_SECRET or IDENTITY_URL must be configured")
	}
	if c.IdentityURL != "" && c.IdentityServiceKey == "" {
		return fmt.Errorf("IDENTITY_SERVICE_KEY is required when IDENTITY_URL is set")
	}

	if c.RateLimitMax < 1 || c.RateLimitWindow < 1 {
		return fmt.Errorf("RATE_LIMIT_MAX and RATE_LIMIT_WINDOW must be positive")
	}

	return nil
}

// Production reports whether the service runs in production mode. It selects
// the JSON log format and disables the console writer.
func (c *Config) Production() bool {
	return c.Environment == "production"
}
