package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

const sampleYAML = `env: local
server:
  port: "9000"
redis:
  addr: ""
catalog:
  path: assets/songs.json
  ttl: 5m
session:
  idle_ttl: 30m
  sweep: "@every 1m"
`

func writeConfig(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(sampleYAML), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadReadsYAML(t *testing.T) {
	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "9000" || cfg.Catalog.Path != "assets/songs.json" {
		t.Fatalf("unexpected config %+v", cfg)
	}
	if got := TTLDuration(cfg.Session.IdleTTL, time.Minute); got != 30*time.Minute {
		t.Fatalf("expected idle ttl 30m, got %v", got)
	}
}

func TestLoadAppliesEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "7000")
	t.Setenv("APP_ENV", "production")
	t.Setenv("DATABASE_URL", "postgres://quiz@localhost/quizdb")

	cfg, err := Load(writeConfig(t))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != "7000" || cfg.Env != "production" || cfg.Postgres.URL == "" {
		t.Fatalf("expected env overrides applied, got %+v", cfg)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "missing.yaml")); err == nil {
		t.Fatalf("expected error for missing config")
	}
}

func TestTTLDurationFallback(t *testing.T) {
	if got := TTLDuration("", time.Second); got != time.Second {
		t.Fatalf("expected fallback for empty, got %v", got)
	}
	if got := TTLDuration("soon", time.Second); got != time.Second {
		t.Fatalf("expected fallback for garbage, got %v", got)
	}
}
