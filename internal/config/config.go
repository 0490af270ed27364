// Package config loads application configuration from the environment.
package config

import (
	"fmt"
	"log/slog"
	"net/mail"
	"time"

	"github.com/joho/godotenv"
	"go-simpler.org/env"
)

type Config struct {
	AppEnv    string `env:"APP_ENV" default:"development"`
	Port      string `env:"PORT" default:"8080"`
	LogLevel  string `env:"LOG_LEVEL" default:"info"`
	LogFormat string `env:"LOG_FORMAT" default:"text"`

	DatabaseURL string `env:"DATABASE_URL"`
	RedisURL    string `env:"REDIS_URL"`

	SessionSecret string `env:"SESSION_SECRET"`

	// Admin login via GitHub OAuth. AdminGitHubLogin is the only GitHub
	// account allowed into the CMS.
	GitHubClientID     string `env:"GITHUB_CLIENT_ID"`
	GitHubClientSecret string `env:"GITHUB_CLIENT_SECRET"`
	GitHubRedirectURI  string `env:"GITHUB_REDIRECT_URI"`
	AdminGitHubLogin   string `env:"ADMIN_GITHUB_LOGIN"`

	// Contact form mail delivery. Leaving SMTPHost empty disables outgoing
	// mail; submissions are still persisted.
	SMTPHost       string        `env:"SMTP_HOST"`
	SMTPPort       int           `env:"SMTP_PORT" default:"587"`
	SMTPUsername   string        `env:"SMTP_USERNAME"`
	SMTPPassword   string        `env:"SMTP_PASSWORD"`
	ContactFrom    string        `env:"CONTACT_FROM_EMAIL"`
	ContactTo      string        `env:"CONTACT_TO_EMAIL"`
	ContactCooloff time.Duration `env:"CONTACT_COOLOFF" default:"1m"`

	// Demo engine capacity and timing.
	DemoMaxSessions        int           `env:"DEMO_MAX_SESSIONS" default:"100"`
	DemoSessionTTL         time.Duration `env:"DEMO_SESSION_TTL" default:"1h"`
	DemoMaxConnections     int           `env:"DEMO_MAX_CONNECTIONS" default:"200"`
	DemoMaxConnsPerSession int           `env:"DEMO_MAX_CONNECTIONS_PER_SESSION" default:"5"`
	DemoTickInterval       time.Duration `env:"DEMO_TICK_INTERVAL" default:"2s"`
	DemoReaperInterval     time.Duration `env:"DEMO_REAPER_INTERVAL" default:"60s"`
	DemoConnRatePerSecond  float64       `env:"DEMO_CONN_RATE_PER_SECOND" default:"5"`
	DemoConnRateBurst      int           `env:"DEMO_CONN_RATE_BURST" default:"10"`
}

func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	var cfg Config
	if err := env.Load(&cfg, nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func validate(cfg *Config) error {
	required := map[string]string{
		"DATABASE_URL":         cfg.DatabaseURL,
		"REDIS_URL":            cfg.RedisURL,
		"SESSION_SECRET":       cfg.SessionSecret,
		"GITHUB_CLIENT_ID":     cfg.GitHubClientID,
		"GITHUB_CLIENT_SECRET": cfg.GitHubClientSecret,
		"GITHUB_REDIRECT_URI":  cfg.GitHubRedirectURI,
		"ADMIN_GITHUB_LOGIN":   cfg.AdminGitHubLogin,
	}
	for name, value := range required {
		if value == "" {
			return fmt.Errorf("%s is required", name)
		}
	}

	if len(cfg.SessionSecret) < 32 {
		return fmt.Errorf("SESSION_SECRET must be at least 32 characters")
	}

	if cfg.SMTPHost != "" {
		if cfg.ContactFrom == "" || cfg.ContactTo == "" {
			return fmt.Errorf("CONTACT_FROM_EMAIL and CONTACT_TO_EMAIL are required when SMTP_HOST is set")
		}
		for name, addr := range map[string]string{
			"CONTACT_FROM_EMAIL": cfg.ContactFrom,
			"CONTACT_TO_EMAIL":   cfg.ContactTo,
		} {
			if _, err := mail.ParseAddress(addr); err != nil {
				return fmt.Errorf("%s must be a valid email address: %w", name, err)
			}
		}
	}

	if cfg.DemoMaxSessions <= 0 {
		return fmt.Errorf("DEMO_MAX_SESSIONS must be positive")
	}
	if cfg.DemoMaxConnections <= 0 {
		return fmt.Errorf("DEMO_MAX_CONNECTIONS must be positive")
	}
	if cfg.DemoMaxConnsPerSession <= 0 || cfg.DemoMaxConnsPerSession > cfg.DemoMaxConnections {
		return fmt.Errorf("DEMO_MAX_CONNECTIONS_PER_SESSION must be positive and at most DEMO_MAX_CONNECTIONS")
	}
	if cfg.DemoTickInterval <= 0 || cfg.DemoReaperInterval <= 0 {
		return fmt.Errorf("demo intervals must be positive")
	}
	if cfg.DemoSessionTTL <= 0 {
		return fmt.Errorf("DEMO_SESSION_TTL must be positive")
	}

	return nil
}
