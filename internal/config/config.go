package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the reporter configuration
type Config struct {
	Reporter ReporterConfig `yaml:"reporter"`
	Sauce    SauceConfig    `yaml:"sauce"`
	Video    VideoConfig    `yaml:"video"`
	Ledger   LedgerConfig   `yaml:"ledger"`
	Log      LogConfig      `yaml:"log,omitempty"`
}

// ReporterConfig contains report generation settings
type ReporterConfig struct {
	BuildName  string   `yaml:"build_name"`
	Tags       []string `yaml:"tags"`
	OutputFile string   `yaml:"output_file"` // Local copy of the combined Sauce JSON report
	Upload     *bool    `yaml:"upload"`      // Defaults to true

	// WebAssetsDir receives copies of web-displayable attachments, prefixed
	// with their test name so that files from different tests don't collide.
	WebAssetsDir string `yaml:"web_assets_dir"`

	MergeVideos bool   `yaml:"merge_videos"`
	TempDir     string `yaml:"temp_dir"` // Parent directory for video merge work, defaults to the OS temp dir
}

// SauceConfig contains Sauce Labs API settings
type SauceConfig struct {
	Region    string        `yaml:"region"`
	TLD       string        `yaml:"tld"`
	Username  string        `yaml:"username"`
	AccessKey string        `yaml:"access_key"` // Never logged
	Timeout   time.Duration `yaml:"timeout"`
}

// VideoConfig contains video synchronization settings
type VideoConfig struct {
	// StartTime is the wall-clock start of an externally recorded display
	// video (RFC 3339 or Unix milliseconds). When set, tests are synced
	// against it and segments are not merged.
	StartTime    string        `yaml:"start_time"`
	FFmpegPath   string        `yaml:"ffmpeg_path"`
	MergeTimeout time.Duration `yaml:"merge_timeout"`
}

// LedgerConfig contains the local job ledger settings
type LedgerConfig struct {
	Path string `yaml:"path"` // SQLite file; empty disables the ledger
}

// LogConfig contains logging configuration
type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ShouldUpload reports whether results are sent to Sauce Labs.
func (c *ReporterConfig) ShouldUpload() bool {
	return c.Upload == nil || *c.Upload
}

// HasCredentials reports whether both Sauce credentials are present.
func (c *SauceConfig) HasCredentials() bool {
	return c.Username != "" && c.AccessKey != ""
}

// Load reads and parses the configuration file. An empty path searches the
// default locations and falls back to built-in defaults when none exists.
func Load(configPath string) (*Config, error) {
	var cfg Config

	if configPath == "" {
		configPath = findDefaultConfigPath()
	} else if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return nil, fmt.Errorf("configuration file not found: %s", configPath)
	}

	if configPath != "" {
		data, err := os.ReadFile(configPath)
		if err != nil {
			return nil, fmt.Errorf("failed to read configuration file: %w", err)
		}
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse configuration: %w", err)
		}
	}

	cfg.setDefaults()

	return &cfg, nil
}

// LoadAndValidate loads the configuration file, applies environment
// overrides and validates the result.
func LoadAndValidate(configPath string) (*Config, error) {
	cfg, err := Load(configPath)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// findDefaultConfigPath returns the first existing default configuration
// file, or "" if there is none.
func findDefaultConfigPath() string {
	paths := []string{
		"./sauce-reporter.yaml",
		"./sauce-reporter.yml",
		"./.sauce/reporter.yaml",
	}

	for _, path := range paths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// setDefaults sets default values for configuration
func (c *Config) setDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
	if c.Log.Output == "" {
		c.Log.Output = "stderr"
	}

	if c.Reporter.Tags == nil {
		c.Reporter.Tags = []string{}
	}

	if c.Sauce.Region == "" {
		c.Sauce.Region = "us-west-1"
	}
	if c.Sauce.Timeout == 0 {
		c.Sauce.Timeout = 60 * time.Second
	}

	if c.Video.FFmpegPath == "" {
		c.Video.FFmpegPath = "ffmpeg"
	}
	if c.Video.MergeTimeout == 0 {
		c.Video.MergeTimeout = 2 * time.Minute
	}
}
