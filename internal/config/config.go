// Package config provides configuration loading and management.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

// Config represents the quadflow configuration.
type Config struct {
	Transport TransportConfig   `toml:"transport"` // Runtime event/intent transport
	Storage   StorageConfig     `toml:"storage"`   // Persistent run storage
	Models    map[string]string `toml:"models"`    // Per-role model selection (PLAN/BUILD/REVIEW/DEPLOY)
	Policy    PolicyConfig      `toml:"policy"`    // Permission policy
	Snapshot  SnapshotConfig    `toml:"snapshot"`  // Snapshot persistence tuning
	Logging   LoggingConfig     `toml:"logging"`
	Telemetry TelemetryConfig   `toml:"telemetry"`
}

// TransportConfig contains NATS transport settings.
type TransportConfig struct {
	URL           string `toml:"url"`            // NATS server URL
	SubjectPrefix string `toml:"subject_prefix"` // Subject prefix, default "quadflow"
}

// StorageConfig contains persistent storage settings.
type StorageConfig struct {
	Path string `toml:"path"` // Base directory for run database and logs
}

// PolicyConfig points at the permission policy file.
type PolicyConfig struct {
	Path string `toml:"path"` // YAML policy file, empty = permissive defaults
}

// SnapshotConfig tunes the debounced snapshot writer.
type SnapshotConfig struct {
	DebounceMs int `toml:"debounce_ms"` // Coalescing window for snapshot writes
}

// LoggingConfig contains log destination settings.
type LoggingConfig struct {
	Level string `toml:"level"` // debug|info|warn|error
}

// TelemetryConfig contains tracing settings.
type TelemetryConfig struct {
	Enabled  bool   `toml:"enabled"`
	Endpoint string `toml:"endpoint"` // OTLP endpoint (e.g. localhost:4317)
}

// New creates a new config with defaults.
func New() *Config {
	return &Config{
		Transport: TransportConfig{
			URL:           "nats://127.0.0.1:4222",
			SubjectPrefix: "quadflow",
		},
		Storage: StorageConfig{
			Path: "~/.local/quadflow",
		},
		Models: map[string]string{},
		Snapshot: SnapshotConfig{
			DebounceMs: 500,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// LoadFile loads configuration from a TOML file.
func LoadFile(path string) (*Config, error) {
	cfg := New()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	return cfg, nil
}

// DefaultPath returns the path of quadflow.toml in the current directory
// and whether the file exists.
func DefaultPath() (string, bool) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false
	}
	path := filepath.Join(cwd, "quadflow.toml")
	if _, err := os.Stat(path); err != nil {
		return path, false
	}
	return path, true
}

// LoadDefault loads configuration from quadflow.toml in the current
// directory, falling back to defaults when the file is absent.
func LoadDefault() (*Config, error) {
	path, ok := DefaultPath()
	if !ok {
		return New(), nil
	}
	return LoadFile(path)
}

// SnapshotDebounce returns the snapshot coalescing window.
func (c *Config) SnapshotDebounce() time.Duration {
	if c.Snapshot.DebounceMs <= 0 {
		return 500 * time.Millisecond
	}
	return time.Duration(c.Snapshot.DebounceMs) * time.Millisecond
}

// StoragePath expands the configured storage path.
func (c *Config) StoragePath() string {
	p := c.Storage.Path
	if len(p) >= 2 && p[:2] == "~/" {
		if home, err := os.UserHomeDir(); err == nil {
			p = filepath.Join(home, p[2:])
		}
	}
	return p
}
