package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/nextgendevs/ng-backend/pkg/utils"
)

type Config struct {
	Environment    string // ENV: production, development, etc.
	Port           string
	BaseURL        string   // Public URL used in verification links
	AllowedOrigins []string // CORS: from ALLOWED_ORIGINS or FRONTEND_URL
	TrustProxy     bool     // Honour X-Forwarded-For when resolving client IPs

	PostgresURI string
	RedisURI    string

	JWTSecret     string
	EncryptionKey string // base64 of 32 bytes; encrypts device access keys at rest

	LogLevel  string // error, warn, info, debug
	LogFormat string // json or text

	SessionTTL time.Duration // Lifetime of the session cookie and token
	SignupTTL  time.Duration // Lifetime of temporary users and verification tokens

	RateLimitWindow time.Duration
	RateLimitTokens int

	PurgeInterval   time.Duration // How often deactivated accounts are swept
	RetentionWindow time.Duration // How long a deactivated account is kept

	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	MailFrom     string
}

func Load() *Config {
	allowedOrigins := parseOrigins(getEnv("ALLOWED_ORIGINS", ""))
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{getEnv("FRONTEND_URL", "http://localhost:3000")}
	}

	return &Config{
		Environment:     strings.ToLower(strings.TrimSpace(getEnv("ENV", "development"))),
		Port:            getEnv("HTTP_PORT", "8080"),
		BaseURL:         strings.TrimRight(getEnv("BASE_URL", "http://localhost:8080"), "/"),
		AllowedOrigins:  allowedOrigins,
		TrustProxy:      getBool("TRUST_PROXY", false),
		PostgresURI:     getEnv("DB_CONNECTION_URL", "postgres://localhost:5432/nextgen?sslmode=disable"),
		RedisURI:        getEnv("CACHE_CONNECTION_URL", "redis://localhost:6379/0"),
		JWTSecret:       getEnv("JWT_SECRET", ""),
		EncryptionKey:   getEnv("ENCRYPTION_KEY", ""),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:       strings.ToLower(getEnv("LOG_FORMAT", "json")),
		SessionTTL:      getDuration("AUTH_EXPIRES_IN", 24*time.Hour),
		SignupTTL:       getDuration("SIGNUP_EXPIRES_IN", 10*time.Minute),
		RateLimitWindow: getDuration("RATE_LIMIT_INTERVAL", 2*time.Minute),
		RateLimitTokens: getInt("RATE_LIMIT_TOKENS", 100),
		PurgeInterval:   getDuration("PURGE_INTERVAL", 24*time.Hour),
		RetentionWindow: getDuration("PURGE_RETENTION", 30*24*time.Hour),
		SMTPHost:        getEnv("MAIL_HOST", ""),
		SMTPPort:        getInt("MAIL_PORT", 587),
		SMTPUser:        getEnv("MAIL_USER", ""),
		SMTPPassword:    getEnv("MAIL_PASSWORD", ""),
		MailFrom:        getEnv("MAIL_FROM", "NextGen 🌊 <no.reply.nextgendevs@gmail.com>"),
	}
}

// Validate reports every setting that would make the server misbehave at runtime.
func (c *Config) Validate() error {
	var errs []error

	if c.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET must be set"))
	}
	if _, err := utils.ParseEncryptionKey(c.EncryptionKey); err != nil {
		errs = append(errs, fmt.Errorf("ENCRYPTION_KEY: %w", err))
	}
	switch c.LogLevel {
	case "error", "warn", "info", "debug":
	default:
		errs = append(errs, fmt.Errorf("LOG_LEVEL %q is not one of error, warn, info, debug", c.LogLevel))
	}
	if c.SessionTTL <= 0 || c.SignupTTL <= 0 {
		errs = append(errs, errors.New("token lifetimes must be positive"))
	}
	if c.RateLimitWindow <= 0 || c.RateLimitTokens <= 0 {
		errs = append(errs, errors.New("rate limit window and tokens must be positive"))
	}
	if c.PurgeInterval <= 0 || c.RetentionWindow <= 0 {
		errs = append(errs, errors.New("purge interval and retention must be positive"))
	}

	return errors.Join(errs...)
}

// IsProduction returns true when ENV is set to "production".
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// MailEnabled reports whether SMTP delivery is configured
func (c *Config) MailEnabled() bool {
	return c.SMTPHost != ""
}

func parseOrigins(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getDuration accepts Go durations ("10m") or plain milliseconds ("600000")
func getDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	if ms, err := strconv.ParseInt(value, 10, 64); err == nil {
		return time.Duration(ms) * time.Millisecond
	}
	if d, err := time.ParseDuration(value); err == nil {
		return d
	}
	return defaultValue
}

func getInt(key string, defaultValue int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return defaultValue
}
