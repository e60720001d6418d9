package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete client configuration
type Config struct {
	Backend BackendConfig `yaml:"backend"`
	Audio   AudioConfig   `yaml:"audio"`
	Logging LoggingConfig `yaml:"logging"`
}

// BackendConfig contains minutes backend connection parameters
type BackendConfig struct {
	BaseURL               string `yaml:"base_url"`
	DirectLimitMB         int    `yaml:"direct_limit_mb"`
	ProcessTimeoutMinutes int    `yaml:"process_timeout_minutes"`
	UserAgent             string `yaml:"user_agent"`
}

// AudioConfig contains segmentation parameters
type AudioConfig struct {
	SegmentDuration float64 `yaml:"segment_duration"` // seconds
	UploadMode      string  `yaml:"upload_mode"`      // "signed" or "segmented"
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads and parses the configuration file
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var config Config
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return &config, nil
}

// Validate performs validation of the complete configuration
func (c *Config) Validate() error {
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates backend configuration
func (b *BackendConfig) Validate() error {
	if b.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if b.DirectLimitMB < 1 {
		return fmt.Errorf("direct_limit_mb must be at least 1, got %d", b.DirectLimitMB)
	}

	if b.ProcessTimeoutMinutes < 1 {
		return fmt.Errorf("process_timeout_minutes must be at least 1, got %d", b.ProcessTimeoutMinutes)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.SegmentDuration <= 0 {
		return fmt.Errorf("segment_duration must be positive, got %f", a.SegmentDuration)
	}

	validModes := map[string]bool{"signed": true, "segmented": true}
	if !validModes[a.UploadMode] {
		return fmt.Errorf("upload_mode must be 'signed' or 'segmented', got '%s'", a.UploadMode)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// GetDirectLimitBytes returns the direct-request ceiling in bytes
func (b *BackendConfig) GetDirectLimitBytes() int64 {
	return int64(b.DirectLimitMB) * 1024 * 1024
}

// GetProcessTimeout returns the processing-notification timeout as a time.Duration
func (b *BackendConfig) GetProcessTimeout() time.Duration {
	return time.Duration(b.ProcessTimeoutMinutes) * time.Minute
}

// IsSegmentedMode reports whether large files are decomposed locally instead
// of offloaded to storage
func (a *AudioConfig) IsSegmentedMode() bool {
	return a.UploadMode == "segmented"
}
