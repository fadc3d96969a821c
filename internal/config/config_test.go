package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Incident.FailThreshold != 3 {
		t.Errorf("expected default fail threshold 3, got %d", cfg.Incident.FailThreshold)
	}
	if cfg.Incident.RecoverThreshold != 2 {
		t.Errorf("expected default recover threshold 2, got %d", cfg.Incident.RecoverThreshold)
	}
	if cfg.Scheduler.DefaultIntervalSec != 60 {
		t.Errorf("expected default interval 60s, got %d", cfg.Scheduler.DefaultIntervalSec)
	}
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlContent := `
database:
  host: db.internal
  dbname: upwatch_prod
incident:
  fail_threshold: 5
  recover_threshold: 4
scheduler:
  probe_workers: 50
`
	if err := os.WriteFile(path, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Database.Host != "db.internal" {
		t.Errorf("expected host override, got %q", cfg.Database.Host)
	}
	if cfg.Incident.FailThreshold != 5 {
		t.Errorf("expected fail threshold override 5, got %d", cfg.Incident.FailThreshold)
	}
	if cfg.Scheduler.ProbeWorkers != 50 {
		t.Errorf("expected probe workers override 50, got %d", cfg.Scheduler.ProbeWorkers)
	}
}

func TestLoad_EnvOverridesWin(t *testing.T) {
	t.Setenv("FAIL_THRESHOLD", "7")
	t.Setenv("DATABASE_URL", "postgres://u:p@host:5432/db")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Incident.FailThreshold != 7 {
		t.Errorf("expected env override fail threshold 7, got %d", cfg.Incident.FailThreshold)
	}
	if cfg.Database.GetDSN() != "postgres://u:p@host:5432/db" {
		t.Errorf("expected DSN env override, got %q", cfg.Database.GetDSN())
	}
}

func TestValidate_RejectsShortJWTSecret(t *testing.T) {
	cfg := defaults()
	cfg.Auth.JWTSecret = "too-short"
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for short JWT secret")
	}
}

func TestValidate_RejectsZeroThresholds(t *testing.T) {
	cfg := defaults()
	cfg.Incident.FailThreshold = 0
	if err := cfg.Validate(); err == nil {
		t.Error("expected error for zero fail threshold")
	}
}
