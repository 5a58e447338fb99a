package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port     string
	Env      string
	LogLevel string

	// Clinic calendar
	ClinicTimezone         string
	CalendarBackend        string
	DefaultCalendarID      string
	GoogleCredentialsFile  string
	GoogleCalendarEndpoint string
	SlotMatchMode          string

	// Patient directory and audit trail
	DatabaseURL  string
	AuditEnabled bool

	// Optional single-writer booking lock
	RedisAddr          string
	RedisPassword      string
	RedisTLS           bool
	BookingLockEnabled bool
	BookingLockTTL     time.Duration

	// HTTP surface
	AdminJWTSecret     string
	ToolsRateLimit     float64
	ToolsRateBurst     int
	CORSAllowedOrigins []string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		ClinicTimezone:         getEnv("CLINIC_TIMEZONE", "Europe/Paris"),
		CalendarBackend:        strings.ToLower(strings.TrimSpace(getEnv("CALENDAR_BACKEND", "google"))),
		DefaultCalendarID:      getEnv("DEFAULT_CALENDAR_ID", "primary"),
		GoogleCredentialsFile:  getEnv("GOOGLE_CREDENTIALS_FILE", "credentials.json"),
		GoogleCalendarEndpoint: getEnv("GOOGLE_CALENDAR_ENDPOINT", ""),
		SlotMatchMode:          strings.ToLower(strings.TrimSpace(getEnv("SLOT_MATCH_MODE", "start"))),

		DatabaseURL:  getEnv("DATABASE_URL", ""),
		AuditEnabled: getEnvAsBool("AUDIT_ENABLED", true),

		RedisAddr:          getEnv("REDIS_ADDR", "redis:6379"),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		BookingLockEnabled: getEnvAsBool("BOOKING_LOCK_ENABLED", false),
		BookingLockTTL:     getEnvAsDuration("BOOKING_LOCK_TTL", 15*time.Second),

		AdminJWTSecret:     getEnv("ADMIN_JWT_SECRET", ""),
		ToolsRateLimit:     getEnvAsFloat("TOOLS_RATE_LIMIT", 5),
		ToolsRateBurst:     getEnvAsInt("TOOLS_RATE_BURST", 20),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
