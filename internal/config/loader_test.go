package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func TestLoadFromDefaultsWithoutFiles(t *testing.T) {
	t.Setenv("APP_ENV", "test")

	cfg, err := LoadFrom(t.TempDir())
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.DataDir != "data" {
		t.Fatalf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Generation.Timeout != 120*time.Second {
		t.Fatalf("timeout = %s", cfg.Generation.Timeout)
	}
	if cfg.Generation.LockHoldBudget() != 240*time.Second {
		t.Fatalf("lock hold budget = %s", cfg.Generation.LockHoldBudget())
	}
	if cfg.Server.HTTP.WriteTimeout < cfg.Generation.LockHoldBudget() || cfg.Locking.TTL < cfg.Generation.LockHoldBudget() {
		t.Fatalf("defaults inconsistent: write_timeout=%s ttl=%s", cfg.Server.HTTP.WriteTimeout, cfg.Locking.TTL)
	}
	if got := cfg.LLM.Provider("anthropic").BaseURL; got != "" {
		t.Fatalf("anthropic base url = %q, want SDK default", got)
	}
	if cfg.Generation.PreviousTailRunes != 500 || cfg.Generation.NextPreviewRunes != 200 {
		t.Fatalf("context windows = %d/%d", cfg.Generation.PreviousTailRunes, cfg.Generation.NextPreviewRunes)
	}
	if cfg.Locking.Backend != "local" {
		t.Fatalf("lock backend = %q", cfg.Locking.Backend)
	}
	if got := cfg.LLM.Provider("nvidia").BaseURL; got != "https://integrate.api.nvidia.com/v1" {
		t.Fatalf("nvidia base url = %q", got)
	}
}

func TestLoadFromExpandsEnvAndMergesEnvFile(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("APP_ENV", "staging")
	t.Setenv("BOOK_TEST_DATA", "/srv/books")

	writeFile(t, filepath.Join(dir, "config.yaml"), `
storage:
  data_dir: ${BOOK_TEST_DATA:unused}
generation:
  timeout: 30s
  previous_tail_runes: ${BOOK_TEST_TAIL:300}
`)
	writeFile(t, filepath.Join(dir, "config.staging.yaml"), `
generation:
  timeout: 45s
`)

	cfg, err := LoadFrom(dir)
	if err != nil {
		t.Fatalf("LoadFrom: %v", err)
	}
	if cfg.Storage.DataDir != "/srv/books" {
		t.Fatalf("data dir = %q", cfg.Storage.DataDir)
	}
	if cfg.Generation.PreviousTailRunes != 300 {
		t.Fatalf("tail runes = %d", cfg.Generation.PreviousTailRunes)
	}
	if cfg.Generation.Timeout != 45*time.Second {
		t.Fatalf("timeout = %s, want env file override", cfg.Generation.Timeout)
	}
}

func TestValidate(t *testing.T) {
	base := func() Config {
		return Config{
			Storage:    StorageConfig{DataDir: "data"},
			Generation: GenerationConfig{Timeout: time.Second},
			Locking:    LockingConfig{Backend: "local"},
		}
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{"ok", func(*Config) {}, false},
		{"empty data dir", func(c *Config) { c.Storage.DataDir = "" }, true},
		{"zero timeout", func(c *Config) { c.Generation.Timeout = 0 }, true},
		{"redis lock without redis", func(c *Config) { c.Locking.Backend = "redis" }, true},
		{"redis lock with redis", func(c *Config) {
			c.Locking.Backend = "redis"
			c.Cache.Redis.Enabled = true
		}, false},
		{"unknown backend", func(c *Config) { c.Locking.Backend = "etcd" }, true},
		{"negative reconcile timeout", func(c *Config) { c.Generation.ReconcileTimeout = -time.Second }, true},
		{"write timeout covers budget", func(c *Config) {
			c.Generation.ReconcileTimeout = 2 * time.Second
			c.Server.HTTP.WriteTimeout = 3 * time.Second
		}, false},
		{"write timeout shorter than budget", func(c *Config) {
			c.Server.HTTP.WriteTimeout = 1500 * time.Millisecond
		}, true},
		{"redis ttl shorter than budget", func(c *Config) {
			c.Generation.Timeout = 2 * time.Minute
			c.Locking.Backend = "redis"
			c.Locking.TTL = 3 * time.Minute
			c.Cache.Redis.Enabled = true
		}, true},
		{"redis default ttl shorter than budget", func(c *Config) {
			c.Generation.Timeout = 3 * time.Minute
			c.Locking.Backend = "redis"
			c.Cache.Redis.Enabled = true
		}, true},
		{"redis ttl covers budget", func(c *Config) {
			c.Generation.Timeout = 2 * time.Minute
			c.Generation.ReconcileTimeout = time.Minute
			c.Locking.Backend = "redis"
			c.Locking.TTL = 3 * time.Minute
			c.Cache.Redis.Enabled = true
		}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := base()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestLockHoldBudgetFallsBackToTimeout(t *testing.T) {
	g := GenerationConfig{Timeout: 90 * time.Second}
	if got := g.LockHoldBudget(); got != 180*time.Second {
		t.Fatalf("budget = %s", got)
	}
	g.ReconcileTimeout = 30 * time.Second
	if got := g.LockHoldBudget(); got != 120*time.Second {
		t.Fatalf("budget = %s", got)
	}
}

func TestExpandEnvKeepsUndefinedPlaceholder(t *testing.T) {
	got := expandEnv("a: ${BOOK_ENGINE_SURELY_UNSET_VAR}")
	if got != "a: ${BOOK_ENGINE_SURELY_UNSET_VAR}" {
		t.Fatalf("expandEnv = %q", got)
	}
}
