// Package config loads runtime configuration from the environment and holds
// the domain tunables shared by the services.
package config

import (
	"complaintdesk/backend/internal/logging"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store drivers accepted by STORE_DRIVER.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Config holds the application configuration.
type Config struct {
	AppEnv    string
	Port      string
	LogLevel  string
	LogFormat string

	StoreDriver     string
	MongoDBURI      string
	MongoDBDatabase string
	PostgresDSN     string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	JWTSecret      string
	StaffTokenTTL  time.Duration
	OwnerTokenTTL  time.Duration
	InviteTokenTTL time.Duration

	// StaffAuthRequired turns on server-side checks for the staff paths
	// (status update, admin replies, feedback update/delete).
	StaffAuthRequired bool
	AllowedOrigins    []string

	SubmitRatePerMinute int
	SubmitBurst         int

	SentryDSN string

	TelegramBotToken string
	TelegramChatID   int64
	NotifyLanguage   string
}

// LoadConfig loads configuration from environment variables.
// A .env file is read first when present; variables already set in the
// process environment win.
func LoadConfig() (*Config, error) {
	if err := godotenv.Load(); err != nil {
		logging.Debug().Msg("no .env file found, relying on environment variables")
	}

	redisDB, err := getEnvInt("REDIS_DB", 0)
	if err != nil {
		return nil, err
	}
	staffTTL, err := getEnvDuration("STAFF_TOKEN_TTL", 12*time.Hour)
	if err != nil {
		return nil, err
	}
	ownerTTL, err := getEnvDuration("OWNER_TOKEN_TTL", 90*24*time.Hour)
	if err != nil {
		return nil, err
	}
	inviteTTL, err := getEnvDuration("INVITE_TOKEN_TTL", 7*24*time.Hour)
	if err != nil {
		return nil, err
	}
	rate, err := getEnvInt("SUBMIT_RATE_PER_MINUTE", 30)
	if err != nil {
		return nil, err
	}
	burst, err := getEnvInt("SUBMIT_BURST", 10)
	if err != nil {
		return nil, err
	}

	chatIDStr := getEnv("TELEGRAM_CHAT_ID", "")
	var chatID int64
	if chatIDStr != "" {
		chatID, err = strconv.ParseInt(chatIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid TELEGRAM_CHAT_ID: %w", err)
		}
	}

	staffAuth, err := getEnvBool("STAFF_AUTH_REQUIRED", false)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		AppEnv:              getEnv("APP_ENV", "development"),
		Port:                getEnv("PORT", "5000"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "json"),
		StoreDriver:         strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoDBURI:          getEnv("MONGODB_URI", ""),
		MongoDBDatabase:     getEnv("MONGODB_DATABASE", "complaintdesk"),
		PostgresDSN:         getEnv("POSTGRES_DSN", ""),
		RedisAddr:           getEnv("REDIS_ADDR", ""),
		RedisPassword:       getEnv("REDIS_PASSWORD", ""),
		RedisDB:             redisDB,
		JWTSecret:           getEnv("JWT_SECRET", ""),
		StaffTokenTTL:       staffTTL,
		OwnerTokenTTL:       ownerTTL,
		InviteTokenTTL:      inviteTTL,
		StaffAuthRequired:   staffAuth,
		AllowedOrigins:      splitList(getEnv("ALLOWED_ORIGINS", "*")),
		SubmitRatePerMinute: rate,
		SubmitBurst:         burst,
		SentryDSN:           getEnv("SENTRY_DSN", ""),
		TelegramBotToken:    getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:      chatID,
		NotifyLanguage:      getEnv("NOTIFY_LANGUAGE", "en"),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the selected driver has what it needs and fills in
// development-only defaults.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoDBURI == "" {
			return fmt.Errorf("MONGODB_URI is required for the %s driver", DriverMongo)
		}
	case DriverPostgres:
		if c.PostgresDSN == "" {
			return fmt.Errorf("POSTGRES_DSN is required for the %s driver", DriverPostgres)
		}
	case DriverMemory:
	default:
		return fmt.Errorf("unknown STORE_DRIVER %q", c.StoreDriver)
	}

	if c.JWTSecret == "" {
		if !c.IsDevelopment() {
			return fmt.Errorf("JWT_SECRET is required outside development")
		}
		logging.Warn().Msg("JWT_SECRET is not set, using an insecure development secret")
		c.JWTSecret = "development-only-secret"
	}
	if c.TelegramBotToken != "" && c.TelegramChatID == 0 {
		return fmt.Errorf("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set")
	}
	if c.SentryDSN == "" {
		logging.Info().Msg("SENTRY_DSN is not set, error tracking disabled")
	}
	if c.SubmitRatePerMinute <= 0 {
		return fmt.Errorf("SUBMIT_RATE_PER_MINUTE must be positive")
	}
	if c.SubmitBurst <= 0 {
		c.SubmitBurst = 1
	}
	return nil
}

// IsDevelopment reports whether the service runs in the development environment.
func (c *Config) IsDevelopment() bool {
	return c.AppEnv == "development"
}

// getEnv retrieves an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value, exists := os.LookupEnv(key); exists {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) (int, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvBool(key string, defaultValue bool) (bool, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func getEnvDuration(key string, defaultValue time.Duration) (time.Duration, error) {
	raw, exists := os.LookupEnv(key)
	if !exists || raw == "" {
		return defaultValue, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return v, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
