package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// EnvConfig holds all environment variable configurations
type EnvConfig struct {
	// Server Configuration
	Port string

	// Security
	JWTSecret  string
	CheckToken bool

	// Environment
	Environment string

	// CORS
	CORSAllowedOrigins string

	// Rate Limiting
	RateLimitEnabled bool
	RateLimitRPS     float64
	RateLimitBurst   int

	// Logging
	LogLevel string

	// Storage backend selection: "postgres" or "sqlite"
	StorageBackend string
	SQLiteDSN      string

	// Postgres
	PostgresUser     string
	PostgresPassword string
	PostgresHost     string
	PostgresPort     string
	PostgresDB       string

	// Connection pool policy, owned here and injected into the store
	DBMaxConnections    int
	DBConnectionTimeout int
	DBIdleTimeout       int

	// Rollup table selection thresholds. Raw readings are only scanned for
	// spans up to RollupRawSpanMax; the minute rollup covers spans up to
	// RollupMinuteSpanMax; anything longer goes to the hour rollup.
	RollupRawSpanMax    time.Duration
	RollupMinuteSpanMax time.Duration

	// Time Configuration
	DisableUTCEnforcement bool
	DefaultTimezone       string
}

var envConfig *EnvConfig

// InitEnvConfig initializes the environment configuration
func InitEnvConfig() {
	envConfig = &EnvConfig{
		// Server Configuration
		Port: getEnvString("PORT", "3001"),

		// Security
		JWTSecret:  getEnvString("JWT_SECRET", ""),
		CheckToken: getEnvBool("CHECK_TOKEN", false),

		// Environment
		Environment: getEnvironment(),

		// CORS
		CORSAllowedOrigins: getEnvString("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000"),

		// Rate Limiting
		RateLimitEnabled: getEnvBool("RATE_LIMIT_ENABLED", true),
		RateLimitRPS:     getEnvFloat("RATE_LIMIT_RPS", 10.0),
		RateLimitBurst:   getEnvInt("RATE_LIMIT_BURST", 20),

		// Logging
		LogLevel: getEnvString("LOG_LEVEL", "INFO"),

		// Storage
		StorageBackend: sanitizeStorageBackend(getEnvString("STORAGE_BACKEND", "postgres")),
		SQLiteDSN:      getEnvString("SQLITE_DSN", "./noisedash.db"),

		// Postgres
		PostgresUser:     getEnvString("POSTGRES_USER", "noisedash"),
		PostgresPassword: getEnvString("POSTGRES_PASSWORD", "noisedash"),
		PostgresHost:     getEnvString("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnvString("POSTGRES_PORT", "5432"),
		PostgresDB:       getEnvString("POSTGRES_DB", "noisedash"),

		// Pool policy
		DBMaxConnections:    getEnvInt("DB_MAX_CONNECTIONS", 10),
		DBConnectionTimeout: getEnvInt("DB_CONNECTION_TIMEOUT", 30),
		DBIdleTimeout:       getEnvInt("DB_IDLE_TIMEOUT", 300),

		// Rollup thresholds. Defaults match existing dashboard behavior and
		// must not be lowered casually: the raw table is only safe to scan
		// for short windows.
		RollupRawSpanMax:    getEnvDuration("ROLLUP_RAW_SPAN_MAX", 24*time.Hour),
		RollupMinuteSpanMax: getEnvDuration("ROLLUP_MINUTE_SPAN_MAX", 7*24*time.Hour),

		// Time Configuration
		DisableUTCEnforcement: getEnvBool("DISABLE_UTC_ENFORCEMENT", false),
		DefaultTimezone:       getEnvString("DEFAULT_TIMEZONE", "UTC"),
	}
}

// GetEnvConfig returns the current environment configuration
func GetEnvConfig() *EnvConfig {
	if envConfig == nil {
		InitEnvConfig()
	}
	return envConfig
}

// Helper functions for reading environment variables with defaults

func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1"
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil && parsed > 0 {
			return parsed
		}
	}
	return defaultValue
}

func getEnvironment() string {
	// Check multiple possible environment variable names
	env := os.Getenv("GO_ENV")
	if env == "" {
		env = os.Getenv("ENVIRONMENT")
	}
	if env == "" {
		env = os.Getenv("APP_ENV")
	}
	if env == "" {
		env = "development" // Default
	}
	return env
}

func sanitizeStorageBackend(value string) string {
	trimmed := strings.ToLower(strings.TrimSpace(value))
	switch trimmed {
	case "postgres", "sqlite":
		return trimmed
	}
	return "postgres"
}

// Convenience methods for common checks

// IsProduction returns true if the environment is production
func (c *EnvConfig) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// ShouldCheckToken returns true if bearer-token validation is enabled
func (c *EnvConfig) ShouldCheckToken() bool {
	return c.CheckToken
}

// IsRateLimitEnabled returns true if rate limiting is enabled
func (c *EnvConfig) IsRateLimitEnabled() bool {
	return c.RateLimitEnabled
}

// GetPostgresDSN synthesizes a DSN from POSTGRES_* vars.
func (c *EnvConfig) GetPostgresDSN() string {
	user := strings.TrimSpace(c.PostgresUser)
	pass := strings.TrimSpace(c.PostgresPassword)
	host := strings.TrimSpace(c.PostgresHost)
	port := strings.TrimSpace(c.PostgresPort)
	db := strings.TrimSpace(c.PostgresDB)
	if user == "" || host == "" || port == "" || db == "" {
		return ""
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable", user, pass, host, port, db)
}
