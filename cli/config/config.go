// Package config loads reel.yaml, the optional defaults file for reel transcode.
package config

import (
	"fmt"
	"time"
)

// Config represents a reel.yaml configuration file.
// All values are optional and act as defaults for reel transcode flags.
// CLI flags always override config values.
type Config struct {
	Columns          int           `yaml:"columns"`
	Rows             int           `yaml:"rows"`
	FPS              float64       `yaml:"fps"`
	KeyframeInterval int           `yaml:"keyframe_interval"`
	Encoding         string        `yaml:"encoding"`
	Format           string        `yaml:"format"`
	Gzip             bool          `yaml:"gzip"`
	Report           string        `yaml:"report"`
	Progress         bool          `yaml:"progress"`
	LogLevel         string        `yaml:"log_level"`
	Storage          StorageConfig `yaml:"storage"`
	Adapter          AdapterConfig `yaml:"adapter"`
}

// StorageConfig holds storage defaults from the config file.
type StorageConfig struct {
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Region      string `yaml:"region"`
	Endpoint    string `yaml:"endpoint"`
	S3PathStyle bool   `yaml:"s3_path_style"`
}

// AdapterConfig holds adapter defaults from the config file.
type AdapterConfig struct {
	Type    string            `yaml:"type"`
	URL     string            `yaml:"url"`
	Channel string            `yaml:"channel,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
	Timeout Duration          `yaml:"timeout,omitempty"`
	Retries *int              `yaml:"retries,omitempty"`
}

// Duration wraps time.Duration for YAML string parsing (e.g. "10s", "5m").
type Duration struct {
	time.Duration
}

// UnmarshalYAML parses a duration string like "10s" or "5m30s".
func (d *Duration) UnmarshalYAML(unmarshal func(any) error) error {
	var s string
	if err := unmarshal(&s); err != nil {
		return err
	}
	if s == "" {
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	d.Duration = parsed
	return nil
}

// Validate checks value ranges that YAML typing alone cannot express.
// Enumerated strings (format, backend, adapter type) are checked where
// they are consumed, so that flags and file values share one error path.
func (c *Config) Validate() error {
	if c.Columns < 0 {
		return fmt.Errorf("columns must be >= 0, got %d", c.Columns)
	}
	if c.Rows < 0 {
		return fmt.Errorf("rows must be >= 0, got %d", c.Rows)
	}
	if c.FPS < 0 {
		return fmt.Errorf("fps must be >= 0, got %g", c.FPS)
	}
	if c.KeyframeInterval < 0 {
		return fmt.Errorf("keyframe_interval must be >= 0, got %d", c.KeyframeInterval)
	}
	if c.Adapter.Retries != nil && *c.Adapter.Retries < 0 {
		return fmt.Errorf("adapter.retries must be >= 0, got %d", *c.Adapter.Retries)
	}
	if c.Adapter.Timeout.Duration < 0 {
		return fmt.Errorf("adapter.timeout must be >= 0, got %s", c.Adapter.Timeout.Duration)
	}
	return nil
}
