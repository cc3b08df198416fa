package config

import (
	"strings"
	"testing"
	"time"
)

const testSecret = "0123456789abcdef0123456789abcdef"

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":8080" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTTL() != 15*time.Minute {
		t.Fatalf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.RefreshTTL() != 7*24*time.Hour {
		t.Fatalf("RefreshTTL = %v", cfg.RefreshTTL())
	}
	if cfg.BcryptCost != 10 {
		t.Fatalf("BcryptCost = %d", cfg.BcryptCost)
	}
	if cfg.ReplayCascade {
		t.Fatal("ReplayCascade should default off")
	}
}

func TestLoadOverridesFromEnv(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("HTTP_ADDR", ":9090")
	t.Setenv("ACCESS_TOKEN_TTL", "30m")
	t.Setenv("BCRYPT_COST", "12")
	t.Setenv("REPLAY_CASCADE", "true")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.HTTPAddr != ":9090" {
		t.Fatalf("HTTPAddr = %q", cfg.HTTPAddr)
	}
	if cfg.AccessTTL() != 30*time.Minute {
		t.Fatalf("AccessTTL = %v", cfg.AccessTTL())
	}
	if cfg.BcryptCost != 12 {
		t.Fatalf("BcryptCost = %d", cfg.BcryptCost)
	}
	if !cfg.ReplayCascade {
		t.Fatal("ReplayCascade should be enabled")
	}
}

func TestLoadRejectsShortSecret(t *testing.T) {
	t.Setenv("JWT_SECRET", "too-short")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "JWT_SECRET") {
		t.Fatalf("got %v, want JWT_SECRET error", err)
	}
}

func TestLoadRejectsBadTTL(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("REFRESH_TOKEN_TTL", "7 days")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "REFRESH_TOKEN_TTL") {
		t.Fatalf("got %v, want REFRESH_TOKEN_TTL error", err)
	}
}

func TestLoadRejectsBadBcryptCost(t *testing.T) {
	t.Setenv("JWT_SECRET", testSecret)
	t.Setenv("BCRYPT_COST", "4")
	if _, err := Load(); err == nil || !strings.Contains(err.Error(), "BCRYPT_COST") {
		t.Fatalf("got %v, want BCRYPT_COST error", err)
	}
}
