package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// LoadEnvFile loads KEY=VALUE pairs from a dotenv file into the process
// environment without overriding variables that are already set. A missing
// file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		path = ".env"
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to configuration.
// Credentials, region and logging from the environment replace file values;
// the output file and web assets directory only fill in when the file
// leaves them empty.
func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("SAUCE_USERNAME"); val != "" {
		cfg.Sauce.Username = val
	}
	if val := os.Getenv("SAUCE_ACCESS_KEY"); val != "" {
		cfg.Sauce.AccessKey = val
	}
	if val := os.Getenv("SAUCE_REGION"); val != "" {
		cfg.Sauce.Region = val
	}

	if val := os.Getenv("SAUCE_VIDEO_START_TIME"); val != "" {
		cfg.Video.StartTime = val
	}
	cfg.Reporter.MergeVideos = GetEnvBool("SAUCE_MERGE_VIDEOS", cfg.Reporter.MergeVideos)
	cfg.Video.MergeTimeout = GetEnvDuration("SAUCE_MERGE_TIMEOUT", cfg.Video.MergeTimeout)
	if val := os.Getenv("SAUCE_FFMPEG_PATH"); val != "" {
		cfg.Video.FFmpegPath = val
	}

	if cfg.Reporter.OutputFile == "" {
		cfg.Reporter.OutputFile = os.Getenv("SAUCE_REPORT_OUTPUT_NAME")
	}
	if cfg.Reporter.WebAssetsDir == "" {
		cfg.Reporter.WebAssetsDir = os.Getenv("SAUCE_WEB_ASSETS_DIR")
	}

	if val := os.Getenv("LOG_LEVEL"); val != "" {
		cfg.Log.Level = val
	}
	if val := os.Getenv("LOG_FORMAT"); val != "" {
		cfg.Log.Format = val
	}
	if val := os.Getenv("LOG_OUTPUT"); val != "" {
		cfg.Log.Output = val
	}
}

// GetEnvBool gets a boolean environment variable
func GetEnvBool(key string, defaultValue bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	switch strings.ToLower(val) {
	case "true", "1", "yes", "on":
		return true
	case "false", "0", "no", "off":
		return false
	}
	return defaultValue
}

// GetEnvDuration gets a duration environment variable
func GetEnvDuration(key string, defaultValue time.Duration) time.Duration {
	val := os.Getenv(key)
	if val == "" {
		return defaultValue
	}
	if duration, err := time.ParseDuration(val); err == nil {
		return duration
	}
	return defaultValue
}
