package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoad_DefaultsWithoutFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 3000 {
		t.Errorf("Expected default port 3000, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "sqlite3" {
		t.Errorf("Expected sqlite3 driver, got %s", cfg.Database.Driver)
	}
	if cfg.Push.DefaultIcon != "/icons/icon-192x192.png" {
		t.Errorf("Unexpected default icon %s", cfg.Push.DefaultIcon)
	}
	if cfg.Events.ResetPhrase == "" {
		t.Error("Expected a default reset phrase")
	}
	if cfg.Analytics.Timeout != time.Minute {
		t.Errorf("Expected default analytics timeout 1m, got %v", cfg.Analytics.Timeout)
	}
}

func TestLoad_FileAndEnv(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 8080
database:
  driver: postgres
  url: postgres://localhost/pushr
analytics:
  timeout: 5s
scheduler:
  broadcasts:
    - template_id: tpl_1
      at: "09:30"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("PORT", "9000")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("Expected PORT env to win, got %d", cfg.Server.Port)
	}
	if cfg.Database.Driver != "postgres" {
		t.Errorf("Expected postgres driver, got %s", cfg.Database.Driver)
	}
	if cfg.Analytics.Timeout != 5*time.Second {
		t.Errorf("Expected analytics timeout 5s, got %v", cfg.Analytics.Timeout)
	}
	if len(cfg.Scheduler.Broadcasts) != 1 || cfg.Scheduler.Broadcasts[0].At != "09:30" {
		t.Errorf("Unexpected broadcasts %+v", cfg.Scheduler.Broadcasts)
	}
}

func TestAnalyticsLocation(t *testing.T) {
	if loc := (AnalyticsConfig{Timezone: "Not/AZone"}).Location(); loc != time.UTC {
		t.Errorf("Expected UTC fallback, got %v", loc)
	}
	if loc := (AnalyticsConfig{}).Location(); loc != time.UTC {
		t.Errorf("Expected UTC for empty timezone, got %v", loc)
	}
}
