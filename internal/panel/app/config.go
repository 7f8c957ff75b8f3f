package app

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

type Config struct {
	SecretKey string // Required: HMAC secret for session tokens

	TokenTTL     time.Duration // Optional: session token lifetime (default: 720h / 30 days)
	DatabaseFile string        // Optional: path to SQLite database file (default: ./panel.db)
	Issuer       string        // Optional: TOTP issuer shown in authenticator apps (default: solidhost-panel)

	RedisAddr     string // Optional: Redis address for event publishing; empty disables it
	RedisPassword string // Optional
	RedisDB       int    // Optional

	TrustProxyHeaders bool // Optional: honor X-Forwarded-For / X-Real-IP (default: true)
	SecureCookie      bool // Optional: set the Secure flag on the session cookie (default: true)

	LogRetention         time.Duration // Optional: audit row retention (default: 720h / 30 days)
	HousekeepingInterval time.Duration // Optional: pruning interval (default: 1h)

	Env                 string        // Environment (dev, staging, prod) (default: dev)
	LogLevel            string        // Log level (debug, info, warn, error) (default: info)
	LogFormat           string        // Log format (json, text) (default: json)
	Port                int           // HTTP server port (default: 8080)
	ShutdownGracePeriod time.Duration // Graceful shutdown timeout (default: 10s)
}

func LoadConfig() (Config, error) {
	cfg := Config{
		SecretKey:            os.Getenv("PANEL_SECRET_KEY"),
		TokenTTL:             getEnvDurationOrDefault("PANEL_TOKEN_TTL", 720*time.Hour),
		DatabaseFile:         getEnvOrDefault("PANEL_DATABASE_FILE", "panel.db"),
		Issuer:               getEnvOrDefault("PANEL_TOTP_ISSUER", "solidhost-panel"),
		RedisAddr:            os.Getenv("REDIS_ADDR"),
		RedisPassword:        os.Getenv("REDIS_PASSWORD"),
		RedisDB:              getEnvIntOrDefault("REDIS_DB", 0),
		TrustProxyHeaders:    getEnvBoolOrDefault("TRUST_PROXY_HEADERS", true),
		SecureCookie:         getEnvBoolOrDefault("SECURE_COOKIE", true),
		LogRetention:         getEnvDurationOrDefault("LOG_RETENTION", 720*time.Hour),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
	}

	if cfg.SecretKey == "" {
		return Config{}, fmt.Errorf("PANEL_SECRET_KEY is required")
	}

	return cfg, nil
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if boolValue, err := strconv.ParseBool(value); err == nil {
		return boolValue
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
