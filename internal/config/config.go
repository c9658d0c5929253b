package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	ServerPort  string
	GinMode     string
	LogLevel    string
	LogFormat   string
	DatabaseURL string
	MaxDBConns  int32
	RedisURL    string
	JWTSecret   string
	// AllowedOrigins controls HTTP CORS and WebSocket origin validation.
	// Empty slice means all origins are permitted (dev default).
	AllowedOrigins []string

	// PlatformBaseURL is the origin of the test, coding, passcode and results collaborators.
	PlatformBaseURL string
	PlatformTimeout time.Duration

	ResultCacheTTL      time.Duration
	NavigateDelay       time.Duration
	MaxOverrideAttempts int
	RateLimitPerMinute  int
}

// Load reads configuration from environment variables with sensible defaults.
// It loads .env file if present but does not fail if missing.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		GinMode:             getEnv("GIN_MODE", "debug"),
		LogLevel:            getEnv("LOG_LEVEL", "info"),
		LogFormat:           getEnv("LOG_FORMAT", "pretty"),
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		MaxDBConns:          int32(getEnvInt("MAX_DB_CONNS", 8)),
		RedisURL:            getEnv("REDIS_URL", "redis://localhost:6379/0"),
		JWTSecret:           getEnv("JWT_SECRET", "change-this-to-a-secure-random-string"),
		AllowedOrigins:      parseOrigins(getEnv("ALLOWED_ORIGINS", "")),
		PlatformBaseURL:     strings.TrimRight(getEnv("PLATFORM_BASE_URL", "http://localhost:5000"), "/"),
		PlatformTimeout:     time.Duration(getEnvInt("PLATFORM_TIMEOUT_MS", 15000)) * time.Millisecond,
		ResultCacheTTL:      time.Duration(getEnvInt("RESULT_CACHE_TTL_HOURS", 72)) * time.Hour,
		NavigateDelay:       time.Duration(getEnvInt("NAVIGATE_DELAY_MS", 3000)) * time.Millisecond,
		MaxOverrideAttempts: getEnvInt("MAX_OVERRIDE_ATTEMPTS", 5),
		RateLimitPerMinute:  getEnvInt("RATE_LIMIT_PER_MINUTE", 120),
	}
}

// ArchiveEnabled reports whether results are also archived in PostgreSQL.
func (c *Config) ArchiveEnabled() bool {
	return c.DatabaseURL != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

// parseOrigins splits a comma-separated origins string into a trimmed slice.
// Returns nil (allow-all) if the input is empty.
func parseOrigins(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	origins := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			origins = append(origins, trimmed)
		}
	}
	return origins
}
