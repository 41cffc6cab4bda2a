package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8080" {
		t.Fatalf("expected default port 8080, got %q", cfg.Port)
	}
	if cfg.DB.MaxOpenConns != 10 || cfg.DB.MaxIdleConns != 5 {
		t.Fatalf("unexpected default pool sizing %+v", cfg.DB)
	}
	if cfg.DB.ConnectWait != 15*time.Second {
		t.Fatalf("expected 15s connect wait, got %v", cfg.DB.ConnectWait)
	}
}

func TestLoadPoolOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "25")
	t.Setenv("DB_MAX_IDLE_CONNS", "8")
	t.Setenv("DB_CONNECT_WAIT", "90s")

	cfg := Load()
	if cfg.DB.MaxOpenConns != 25 || cfg.DB.MaxIdleConns != 8 {
		t.Fatalf("overrides not applied: %+v", cfg.DB)
	}
	if cfg.DB.ConnectWait != 90*time.Second {
		t.Fatalf("expected 90s connect wait, got %v", cfg.DB.ConnectWait)
	}
}

func TestLoadIgnoresMalformedOverrides(t *testing.T) {
	t.Setenv("DB_MAX_OPEN_CONNS", "lots")
	t.Setenv("DB_CONNECT_WAIT", "-5s")

	cfg := Load()
	if cfg.DB.MaxOpenConns != 10 {
		t.Fatalf("malformed int should fall back to default, got %d", cfg.DB.MaxOpenConns)
	}
	if cfg.DB.ConnectWait != 15*time.Second {
		t.Fatalf("non-positive duration should fall back to default, got %v", cfg.DB.ConnectWait)
	}
}
