package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int
	LogLevel string

	// LedgerOS API
	LedgerAPIURL string // backend origin; the gateway appends /api

	// HTTP client
	HTTPTimeout time.Duration

	// Resilience
	MaxConcurrency int

	// View snapshots
	SnapshotTTL time.Duration

	// Observability
	OTLPEndpoint string

	// Session token persistence
	TokenStore string // "file" or "redis"
	TokenFile  string
	RedisURL   string

	// Console access (browser → gateway)
	ConsoleJWTSecret string
	ConsoleJWTTTL    time.Duration
	ConsoleOrigins   []string

	// Pages
	RecentTransactionsLimit int
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		LedgerAPIURL: strings.TrimRight(getEnv("LEDGEROS_API_URL", "http://localhost:8001"), "/"),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 30*time.Second),

		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 16),

		SnapshotTTL: getEnvDuration("SNAPSHOT_TTL", 10*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		TokenStore: getEnv("TOKEN_STORE", "file"),
		TokenFile:  getEnv("TOKEN_FILE", defaultTokenFile()),
		RedisURL:   getEnv("REDIS_URL", "redis://localhost:6379/0"),

		ConsoleJWTSecret: getEnv("CONSOLE_JWT_SECRET", "ledgeros-console-dev-secret-change-me"),
		ConsoleJWTTTL:    getEnvDuration("CONSOLE_JWT_TTL", 12*time.Hour),
		ConsoleOrigins:   getEnvList("CONSOLE_ORIGINS", []string{"http://localhost:3000"}),

		RecentTransactionsLimit: getEnvInt("RECENT_TRANSACTIONS_LIMIT", 100),
	}
}

func defaultTokenFile() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return dir + "/ledgeros/token"
	}
	return ".ledgeros_token"
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func getEnvList(key string, fallback []string) []string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
