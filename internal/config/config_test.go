package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("REDIS_URL", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.DataDir != "./data" || cfg.Store.FileMode != 0o644 || !cfg.Store.Fsync {
		t.Errorf("unexpected store defaults: %+v", cfg.Store)
	}
	if cfg.Redis.URL != "" {
		t.Errorf("redis must be disabled by default, got %q", cfg.Redis.URL)
	}
	if cfg.Notify.Driver != "log" {
		t.Errorf("unexpected notify driver %q", cfg.Notify.Driver)
	}
	if cfg.Address() != "0.0.0.0:8080" {
		t.Errorf("unexpected address %q", cfg.Address())
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("DATA_DIR", "/var/lib/storefront")
	t.Setenv("DATA_FILE_MODE", "0600")
	t.Setenv("OUTBOX_SYNC_INTERVAL", "45")
	t.Setenv("REQUEST_TIMEOUT_SECONDS", "2s")
	t.Setenv("NOTIFY_DRIVER", "amqp")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if cfg.Store.DataDir != "/var/lib/storefront" || cfg.Store.FileMode != os.FileMode(0o600) {
		t.Errorf("unexpected store config: %+v", cfg.Store)
	}
	if cfg.Buffer.SyncInterval != 45*time.Second || cfg.Context.RequestTimeout != 2*time.Second {
		t.Errorf("unexpected durations: %v %v", cfg.Buffer.SyncInterval, cfg.Context.RequestTimeout)
	}
	if cfg.Notify.Driver != "amqp" {
		t.Errorf("unexpected notify driver %q", cfg.Notify.Driver)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	t.Setenv("JWT_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("expected error without JWT secret")
	}

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WEBHOOK_SECRET", "")
	if _, err := Load(); err == nil {
		t.Error("expected error without webhook secret")
	}

	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("WEBHOOK_SECRET", "whsec")
	t.Setenv("NOTIFY_DRIVER", "carrier-pigeon")
	if _, err := Load(); err == nil {
		t.Error("expected error for unknown notify driver")
	}
}
