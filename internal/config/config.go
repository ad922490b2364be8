package config

import (
	"fmt"
	"time"

	pkgconfig "github.com/linguahub/linguahub/pkg/config"
)

// Config holds all configuration for the linguahub server.
type Config struct {
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	// HTTP server
	HTTPPort int `env:"HTTP_PORT" envDefault:"8080"`

	// PostgreSQL
	PostgresHost string `env:"POSTGRES_HOST" envDefault:"localhost"`
	PostgresPort int    `env:"POSTGRES_PORT" envDefault:"5432"`
	PostgresUser string `env:"POSTGRES_USER" envDefault:"linguahub"`
	PostgresPass string `env:"POSTGRES_PASSWORD" envDefault:"linguahub_secret"`
	PostgresDB   string `env:"POSTGRES_DB_NAME" envDefault:"linguahub_db"`
	PostgresSSL  string `env:"POSTGRES_SSL_MODE" envDefault:"disable"`

	// Kafka
	KafkaBrokers []string `env:"KAFKA_BROKERS" envDefault:"localhost:9092" envSeparator:","`

	// JWT session
	JWTSecret     string `env:"JWT_SECRET" envDefault:"change-this-to-a-secure-secret"`
	SessionExpiry string `env:"SESSION_EXPIRY" envDefault:"168h"`

	// One-time codes
	OTPExpiry string `env:"OTP_EXPIRY" envDefault:"10m"`

	// CORS
	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envDefault:"http://localhost:5173" envSeparator:","`

	// Outbound mail delivery API
	MailAPIURL  string `env:"MAIL_API_URL" envDefault:""`
	MailAPIKey  string `env:"MAIL_API_KEY" envDefault:""`
	MailSender  string `env:"MAIL_SENDER" envDefault:"no-reply@linguahub.dev"`
	MailAppName string `env:"MAIL_APP_NAME" envDefault:"LinguaHub"`

	// Chat provider (identity sync + client token minting)
	ChatAPIURL    string `env:"CHAT_API_URL" envDefault:""`
	ChatAPIKey    string `env:"CHAT_API_KEY" envDefault:""`
	ChatAPISecret string `env:"CHAT_API_SECRET" envDefault:""`

	// Google OAuth token verification
	GoogleTokenInfoURL string `env:"GOOGLE_TOKENINFO_URL" envDefault:"https://oauth2.googleapis.com/tokeninfo"`
	GoogleClientID     string `env:"GOOGLE_CLIENT_ID" envDefault:""`

	// Avatar image storage API
	MediaAPIURL string `env:"MEDIA_API_URL" envDefault:""`
	MediaAPIKey string `env:"MEDIA_API_KEY" envDefault:""`
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := pkgconfig.Load(cfg); err != nil {
		return nil, fmt.Errorf("load linguahub config: %w", err)
	}
	if cfg.HTTPPort < 1 || cfg.HTTPPort > 65535 {
		return nil, fmt.Errorf("invalid HTTP port: %d", cfg.HTTPPort)
	}
	if _, err := time.ParseDuration(cfg.SessionExpiry); err != nil {
		return nil, fmt.Errorf("invalid SESSION_EXPIRY: %w", err)
	}
	if _, err := time.ParseDuration(cfg.OTPExpiry); err != nil {
		return nil, fmt.Errorf("invalid OTP_EXPIRY: %w", err)
	}

	// In non-development environments, require an explicitly set, strong JWT secret.
	if cfg.Environment != "development" {
		if cfg.JWTSecret == "change-this-to-a-secure-secret" {
			return nil, fmt.Errorf("JWT_SECRET must be explicitly set via environment variable in %q mode", cfg.Environment)
		}
		if len(cfg.JWTSecret) < 32 {
			return nil, fmt.Errorf("JWT_SECRET must be at least 32 characters long, got %d", len(cfg.JWTSecret))
		}
	}

	return cfg, nil
}

// PostgresDSN returns the PostgreSQL connection string.
func (c *Config) PostgresDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.PostgresUser, c.PostgresPass, c.PostgresHost, c.PostgresPort, c.PostgresDB, c.PostgresSSL,
	)
}

// SessionTTL returns the parsed session lifetime. Load validates the value,
// so the zero duration is returned only on an unparsed Config.
func (c *Config) SessionTTL() time.Duration {
	d, _ := time.ParseDuration(c.SessionExpiry)
	return d
}

// OTPTTL returns the parsed one-time code lifetime.
func (c *Config) OTPTTL() time.Duration {
	d, _ := time.ParseDuration(c.OTPExpiry)
	return d
}
