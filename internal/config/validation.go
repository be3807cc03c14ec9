package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

var regionAliases = map[string]string{
	"us":   "us-west-1",
	"eu":   "eu-central-1",
	"apac": "apac-southeast-1",
}

var validRegions = map[string]bool{
	"us-west-1":        true,
	"us-east-4":        true,
	"eu-central-1":     true,
	"apac-southeast-1": true,
	"staging":          true,
}

// Validate validates the configuration with detailed error messages.
// Region aliases are normalized in place.
func (c *Config) Validate() error {
	var errors []string

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Log.Level)] {
		errors = append(errors, fmt.Sprintf("invalid log.level: %s (must be: debug, info, warn, error)", c.Log.Level))
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		errors = append(errors, fmt.Sprintf("invalid log.format: %s (must be: text or json)", c.Log.Format))
	}

	region := strings.ToLower(strings.TrimSpace(c.Sauce.Region))
	if alias, ok := regionAliases[region]; ok {
		region = alias
	}
	if !validRegions[region] {
		errors = append(errors, fmt.Sprintf("invalid sauce.region: %s", c.Sauce.Region))
	} else {
		c.Sauce.Region = region
	}

	if c.Sauce.Timeout <= 0 {
		errors = append(errors, fmt.Sprintf("sauce.timeout must be > 0, got: %v", c.Sauce.Timeout))
	}

	if (c.Sauce.Username == "") != (c.Sauce.AccessKey == "") {
		errors = append(errors, "sauce.username and sauce.access_key must be set together")
	}

	if c.Video.StartTime != "" {
		if _, err := ParseVideoStartTime(c.Video.StartTime); err != nil {
			errors = append(errors, fmt.Sprintf("invalid video.start_time: %v", err))
		}
	}

	if c.Video.MergeTimeout <= 0 {
		errors = append(errors, fmt.Sprintf("video.merge_timeout must be > 0, got: %v", c.Video.MergeTimeout))
	}

	if c.Video.FFmpegPath == "" {
		errors = append(errors, "video.ffmpeg_path is required")
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n  - %s", strings.Join(errors, "\n  - "))
	}

	return nil
}

// VideoStart returns the configured display video start time, if any.
func (c *VideoConfig) VideoStart() (time.Time, bool) {
	if c.StartTime == "" {
		return time.Time{}, false
	}
	t, err := ParseVideoStartTime(c.StartTime)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// ParseVideoStartTime accepts an RFC 3339 timestamp (with or without
// fractional seconds) or a Unix timestamp in milliseconds.
func ParseVideoStartTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if ms, err := strconv.ParseInt(s, 10, 64); err == nil {
		return time.UnixMilli(ms), nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%q is neither RFC 3339 nor Unix milliseconds", s)
	}
	return t, nil
}
