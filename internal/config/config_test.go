package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "CLINIC_TIMEZONE", "CALENDAR_BACKEND", "SLOT_MATCH_MODE", "BOOKING_LOCK_ENABLED", "CORS_ALLOWED_ORIGINS"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.ClinicTimezone != "Europe/Paris" {
		t.Fatalf("expected Paris timezone, got %s", cfg.ClinicTimezone)
	}
	if cfg.CalendarBackend != "google" {
		t.Fatalf("expected google backend, got %s", cfg.CalendarBackend)
	}
	if cfg.DefaultCalendarID != "primary" {
		t.Fatalf("expected primary calendar, got %s", cfg.DefaultCalendarID)
	}
	if cfg.SlotMatchMode != "start" {
		t.Fatalf("expected start match mode, got %s", cfg.SlotMatchMode)
	}
	if cfg.BookingLockEnabled {
		t.Fatalf("expected booking lock disabled by default")
	}
	if cfg.BookingLockTTL != 15*time.Second {
		t.Fatalf("expected default lock ttl, got %s", cfg.BookingLockTTL)
	}
	if cfg.ToolsRateBurst != 20 {
		t.Fatalf("expected default burst, got %d", cfg.ToolsRateBurst)
	}
	if len(cfg.CORSAllowedOrigins) != 0 {
		t.Fatalf("expected no CORS origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("CALENDAR_BACKEND", " Memory ")
	t.Setenv("SLOT_MATCH_MODE", "OVERLAP")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("BOOKING_LOCK_ENABLED", "true")
	t.Setenv("BOOKING_LOCK_TTL", "45s")
	t.Setenv("TOOLS_RATE_LIMIT", "2.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://a.example, https://b.example,")
	cfg := Load()
	if cfg.Port != "9090" {
		t.Fatalf("expected override port, got %s", cfg.Port)
	}
	if cfg.Env != "production" {
		t.Fatalf("expected env override, got %s", cfg.Env)
	}
	if cfg.CalendarBackend != "memory" {
		t.Fatalf("expected normalized backend, got %q", cfg.CalendarBackend)
	}
	if cfg.SlotMatchMode != "overlap" {
		t.Fatalf("expected normalized match mode, got %q", cfg.SlotMatchMode)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("expected db override, got %s", cfg.DatabaseURL)
	}
	if !cfg.BookingLockEnabled || cfg.BookingLockTTL != 45*time.Second {
		t.Fatalf("expected lock overrides, got %v %s", cfg.BookingLockEnabled, cfg.BookingLockTTL)
	}
	if cfg.ToolsRateLimit != 2.5 {
		t.Fatalf("expected rate override, got %v", cfg.ToolsRateLimit)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://b.example" {
		t.Fatalf("unexpected origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadInvalidNumbersFallBack(t *testing.T) {
	t.Setenv("TOOLS_RATE_BURST", "lots")
	t.Setenv("BOOKING_LOCK_TTL", "soon")
	cfg := Load()
	if cfg.ToolsRateBurst != 20 {
		t.Fatalf("expected fallback burst, got %d", cfg.ToolsRateBurst)
	}
	if cfg.BookingLockTTL != 15*time.Second {
		t.Fatalf("expected fallback ttl, got %s", cfg.BookingLockTTL)
	}
}
