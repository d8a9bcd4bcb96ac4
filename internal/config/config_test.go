package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.DatasourcesFile != "datasources.json" {
		t.Errorf("DatasourcesFile = %q", cfg.DatasourcesFile)
	}
	if cfg.History.Driver != "file" || cfg.History.Path != "scan_history.json" {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.Scan.ConnectTimeout != "5s" {
		t.Errorf("ConnectTimeout = %q, want 5s", cfg.Scan.ConnectTimeout)
	}
	if cfg.Scan.SSLMode != "require" {
		t.Errorf("SSLMode = %q, want require", cfg.Scan.SSLMode)
	}
	if cfg.Server.ListenAddr != ":8000" {
		t.Errorf("ListenAddr = %q", cfg.Server.ListenAddr)
	}
	if cfg.Log.Format != "text" {
		t.Errorf("Log.Format = %q, want text", cfg.Log.Format)
	}
}

func TestLoad_NoFile(t *testing.T) {
	t.Setenv("HOME", t.TempDir())
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Scan.SSLMode != "require" {
		t.Errorf("expected default sslmode, got %q", cfg.Scan.SSLMode)
	}
}

func TestLoad_FromDir(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
datasources_file: /var/lib/piispectre/datasources.json
history:
  driver: sqlite
  path: /var/lib/piispectre/history.db
scan:
  connect_timeout: 10s
  sslmode: verify-full
  include_schemas:
    - public
    - billing
  exclude_schemas:
    - scratch
server:
  listen_addr: "127.0.0.1:9000"
  api_key: k3y
  rate_limit_per_minute: 30
log:
  format: json
`)
	if err := os.WriteFile(filepath.Join(dir, FileName), content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.DatasourcesFile != "/var/lib/piispectre/datasources.json" {
		t.Errorf("DatasourcesFile = %q", cfg.DatasourcesFile)
	}
	if cfg.History.Driver != "sqlite" || cfg.History.Path != "/var/lib/piispectre/history.db" {
		t.Errorf("History = %+v", cfg.History)
	}
	if cfg.ConnectTimeout() != 10*time.Second {
		t.Errorf("ConnectTimeout() = %v", cfg.ConnectTimeout())
	}
	if cfg.Scan.SSLMode != "verify-full" {
		t.Errorf("SSLMode = %q", cfg.Scan.SSLMode)
	}
	if len(cfg.Scan.IncludeSchemas) != 2 || len(cfg.Scan.ExcludeSchemas) != 1 {
		t.Errorf("schemas = %v / %v", cfg.Scan.IncludeSchemas, cfg.Scan.ExcludeSchemas)
	}
	if cfg.Server.ListenAddr != "127.0.0.1:9000" || cfg.Server.APIKey != "k3y" {
		t.Errorf("Server = %+v", cfg.Server)
	}
	if cfg.Server.RateLimitPerMinute != 30 {
		t.Errorf("RateLimitPerMinute = %v", cfg.Server.RateLimitPerMinute)
	}
	if cfg.Log.Format != "json" {
		t.Errorf("Log.Format = %q", cfg.Log.Format)
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("{{invalid"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(dir)
	if err == nil {
		t.Error("expected error for invalid YAML")
	}
}

func TestLoadFile_Missing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "nope.yml"))
	if err == nil {
		t.Error("expected error for missing explicit config file")
	}
}

func TestLoad_PartialOverride(t *testing.T) {
	dir := t.TempDir()
	content := []byte(`
scan:
  connect_timeout: 3s
`)
	if err := os.WriteFile(filepath.Join(dir, FileName), content, 0644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.ConnectTimeout() != 3*time.Second {
		t.Errorf("ConnectTimeout() = %v, want 3s", cfg.ConnectTimeout())
	}
	// sibling fields keep their defaults
	if cfg.Scan.SSLMode != "require" {
		t.Errorf("SSLMode = %q, want default require", cfg.Scan.SSLMode)
	}
	if cfg.History.Path != "scan_history.json" {
		t.Errorf("History.Path = %q, want default", cfg.History.Path)
	}
}

func TestDurations(t *testing.T) {
	tests := []struct {
		name  string
		value string
		want  time.Duration
	}{
		{"valid 60s", "60s", 60 * time.Second},
		{"valid 2m", "2m", 2 * time.Minute},
		{"empty", "", 5 * time.Second},
		{"invalid", "notaduration", 5 * time.Second},
		{"negative", "-1s", 5 * time.Second},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Config{Scan: Scan{ConnectTimeout: tt.value}}
			if got := cfg.ConnectTimeout(); got != tt.want {
				t.Errorf("ConnectTimeout() = %v, want %v", got, tt.want)
			}
		})
	}

	cfg := Config{}
	if cfg.ReadHeaderTimeout() != 10*time.Second || cfg.ShutdownTimeout() != 15*time.Second {
		t.Errorf("server duration defaults = %v / %v", cfg.ReadHeaderTimeout(), cfg.ShutdownTimeout())
	}
}

func TestExists(t *testing.T) {
	dir := t.TempDir()
	if Exists(dir) {
		t.Error("Exists() = true before file written")
	}
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("log:\n  format: json\n"), 0644); err != nil {
		t.Fatal(err)
	}
	if !Exists(dir) {
		t.Error("Exists() = false, want true")
	}
}
