package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/playgrid/puzzlesync/internal/schema"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "remote:\n  url: libsql://example.turso.io\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.User.Tier != "free" {
		t.Errorf("expected default tier free, got %s", cfg.User.Tier)
	}
	if cfg.Daemon.LightSyncInterval != 5*time.Minute {
		t.Errorf("unexpected light sync interval: %v", cfg.Daemon.LightSyncInterval)
	}
	if cfg.Window.FreeDays != 7 || cfg.Window.ProDays != 90 {
		t.Errorf("unexpected window defaults: %+v", cfg.Window)
	}
	if cfg.Local.DBPath == "" {
		t.Error("expected a default local db path")
	}
}

func TestLoadOverrides(t *testing.T) {
	path := writeConfig(t, `
remote:
  url: libsql://example.turso.io
  auth_token: secret
user:
  id: user-42
  tier: pro
window:
  free_days: 3
daemon:
  light_sync_interval: 30s
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.User.ID != "user-42" {
		t.Errorf("unexpected user id: %s", cfg.User.ID)
	}
	tier, err := cfg.Tier()
	if err != nil || tier != schema.TierPro {
		t.Errorf("unexpected tier: %v (%v)", tier, err)
	}
	if cfg.Window.FreeDays != 3 {
		t.Errorf("override not applied: %d", cfg.Window.FreeDays)
	}
	if cfg.Window.PlusDays != 30 {
		t.Errorf("untouched default lost: %d", cfg.Window.PlusDays)
	}
	if cfg.Daemon.LightSyncInterval != 30*time.Second {
		t.Errorf("unexpected interval: %v", cfg.Daemon.LightSyncInterval)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	cfg := &Config{
		Remote: RemoteConfig{URL: "libsql://example.turso.io"},
		User:   UserConfig{ID: "u1", Tier: "free"},
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("expected valid config, got %v", err)
	}

	cfg.User.ID = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing user id")
	}

	cfg.User.ID = "u1"
	cfg.User.Tier = "platinum"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for unknown tier")
	}

	cfg.User.Tier = "free"
	cfg.Remote.URL = ""
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for missing remote url")
	}
}
