package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"go.yaml.in/yaml/v3"
)

// FileName is the per-project configuration file.
const FileName = ".piispectre.yml"

// Config holds all piispectre configuration.
type Config struct {
	DatasourcesFile string  `yaml:"datasources_file"`
	History         History `yaml:"history"`
	Scan            Scan    `yaml:"scan"`
	Server          Server  `yaml:"server"`
	Log             Log     `yaml:"log"`
}

// History selects where scan results are recorded.
type History struct {
	Driver string `yaml:"driver"` // file or sqlite
	Path   string `yaml:"path"`
}

// Scan controls how target databases are reached and what is read.
type Scan struct {
	ConnectTimeout string   `yaml:"connect_timeout"` // parsed as time.Duration
	SSLMode        string   `yaml:"sslmode"`         // default for datasources that do not set one
	IncludeSchemas []string `yaml:"include_schemas"`
	ExcludeSchemas []string `yaml:"exclude_schemas"`
}

// Server configures the HTTP API.
type Server struct {
	ListenAddr         string  `yaml:"listen_addr"`
	APIKey             string  `yaml:"api_key"`
	RateLimitPerMinute float64 `yaml:"rate_limit_per_minute"`
	ReadHeaderTimeout  string  `yaml:"read_header_timeout"`
	ShutdownTimeout    string  `yaml:"shutdown_timeout"`
}

// Log configures structured logging.
type Log struct {
	Format string `yaml:"format"` // text or json
}

// DefaultConfig returns the built-in defaults.
func DefaultConfig() Config {
	return Config{
		DatasourcesFile: "datasources.json",
		History: History{
			Driver: "file",
			Path:   "scan_history.json",
		},
		Scan: Scan{
			ConnectTimeout: "5s",
			SSLMode:        "require",
		},
		Server: Server{
			ListenAddr:         ":8000",
			RateLimitPerMinute: 120,
			ReadHeaderTimeout:  "10s",
			ShutdownTimeout:    "15s",
		},
		Log: Log{Format: "text"},
	}
}

// Load reads configuration from .piispectre.yml in the given directory,
// falling back to ~/.piispectre.yml. Returns DefaultConfig if no file found.
func Load(dir string) (Config, error) {
	paths := []string{filepath.Join(dir, FileName)}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			continue
		}
		return LoadFile(path)
	}
	return DefaultConfig(), nil
}

// LoadFile reads configuration from an explicit path over the defaults.
func LoadFile(path string) (Config, error) {
	cfg := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("parse %s: %w", path, err)
	}
	return cfg, nil
}

// Exists reports whether a config file is present in dir.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, FileName))
	return err == nil
}

// ConnectTimeout parses Scan.ConnectTimeout. Returns 5s if unset or invalid.
func (c *Config) ConnectTimeout() time.Duration {
	return parseDuration(c.Scan.ConnectTimeout, 5*time.Second)
}

// ReadHeaderTimeout parses Server.ReadHeaderTimeout. Returns 10s if unset or invalid.
func (c *Config) ReadHeaderTimeout() time.Duration {
	return parseDuration(c.Server.ReadHeaderTimeout, 10*time.Second)
}

// ShutdownTimeout parses Server.ShutdownTimeout. Returns 15s if unset or invalid.
func (c *Config) ShutdownTimeout() time.Duration {
	return parseDuration(c.Server.ShutdownTimeout, 15*time.Second)
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	if s == "" {
		return fallback
	}
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
