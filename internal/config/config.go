// internal/config/config.go
//
// Typed runtime configuration for the Palabra server.
// Values come from environment variables (a .env file is loaded by main
// before parsing). The admin registration code is deliberately config-only:
// there is no compiled-in fallback.

package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every tunable the server reads at startup.
type Config struct {
	Port         string `env:"PORT" envDefault:"8080"`
	DatabaseDSN  string `env:"DATABASE_DSN" envDefault:"./data/palabra.db"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	LogLevel     string `env:"LOG_LEVEL" envDefault:"info"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`

	// AdminCode gates POST /admin/register. Required: the server refuses to
	// start without one so a default can never leak into production.
	AdminCode string `env:"ADMIN_CODE,required"`

	MaxAttempts   int `env:"WORDLE_MAX_ATTEMPTS" envDefault:"5"`
	WordMinLength int `env:"WORDLE_MIN_LENGTH" envDefault:"4"`
	WordMaxLength int `env:"WORDLE_MAX_LENGTH" envDefault:"8"`

	// WordAPIURL is an optional external random-word service. When empty the
	// local generator is used exclusively.
	WordAPIURL string `env:"WORD_API_URL"`

	// Messaging provider (WhatsApp-style). Empty SID disables real sends,
	// which keeps local development working without provider credentials.
	MessagingBaseURL string `env:"MESSAGING_API_URL" envDefault:"https://api.twilio.com/2010-04-01"`
	MessagingSID     string `env:"MESSAGING_ACCOUNT_SID"`
	MessagingToken   string `env:"MESSAGING_AUTH_TOKEN"`
	MessagingFrom    string `env:"MESSAGING_FROM_NUMBER"`

	// ChatWebhookURL receives game summaries. Empty disables summaries.
	ChatWebhookURL string `env:"CHAT_WEBHOOK_URL"`

	CodeTTL time.Duration `env:"VERIFICATION_CODE_TTL" envDefault:"10m"`
}

// Load parses the environment into a Config.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env config: %w", err)
	}
	if cfg.WordMinLength < 1 || cfg.WordMaxLength < cfg.WordMinLength {
		return nil, fmt.Errorf("invalid word length bounds: min=%d max=%d", cfg.WordMinLength, cfg.WordMaxLength)
	}
	if cfg.MaxAttempts < 1 {
		return nil, fmt.Errorf("invalid attempt budget: %d", cfg.MaxAttempts)
	}
	return cfg, nil
}
