package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendJSON   = "json"
)

// Duration is a time.Duration written as a Go duration string ("336h").
type Duration time.Duration

// MarshalJSON implements json.Marshaler.
func (d Duration) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Duration(d).String())
}

// UnmarshalJSON accepts a duration string or a number of nanoseconds.
func (d *Duration) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		parsed, err := time.ParseDuration(s)
		if err != nil {
			return fmt.Errorf("invalid duration %q: %w", s, err)
		}
		*d = Duration(parsed)
		return nil
	}

	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("invalid duration %s", b)
	}
	*d = Duration(n)
	return nil
}

// Config holds application configuration.
type Config struct {
	Backend       string   `json:"backend"`
	CacheTTL      Duration `json:"cacheTTL"`
	GraceWindow   Duration `json:"graceWindow"`
	MaxEntries    int      `json:"maxEntries"`
	ProbeTimeout  Duration `json:"probeTimeout"`
	MaxConcurrent int      `json:"maxConcurrent"`
	FlushDelay    Duration `json:"flushDelay"`
	LookupHost    string   `json:"lookupHost"`
	UserAgent     string   `json:"userAgent"`
	LogLevel      string   `json:"logLevel"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		Backend:       BackendSQLite,
		CacheTTL:      Duration(14 * 24 * time.Hour),
		GraceWindow:   Duration(time.Hour),
		MaxEntries:    2000,
		ProbeTimeout:  Duration(3 * time.Second),
		MaxConcurrent: 8,
		FlushDelay:    Duration(time.Second),
		LookupHost:    "icons.duckduckgo.com",
		UserAgent:     "bmicon/1.0",
		LogLevel:      "warn",
	}
}

// LoadConfig reads config from the JSON file.
// Creates the file with defaults if it doesn't exist.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			config := DefaultConfig()
			// Non-fatal: return defaults even if save fails
			_ = SaveConfig(path, &config)
			return &config, nil
		}
		return nil, err
	}

	var config Config
	if err := json.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	config.applyDefaults()
	return &config, nil
}

// applyDefaults fills zero fields from DefaultConfig.
func (c *Config) applyDefaults() {
	defaults := DefaultConfig()
	if c.Backend == "" {
		c.Backend = defaults.Backend
	}
	if c.CacheTTL <= 0 {
		c.CacheTTL = defaults.CacheTTL
	}
	if c.GraceWindow <= 0 {
		c.GraceWindow = defaults.GraceWindow
	}
	if c.MaxEntries <= 0 {
		c.MaxEntries = defaults.MaxEntries
	}
	if c.ProbeTimeout <= 0 {
		c.ProbeTimeout = defaults.ProbeTimeout
	}
	if c.MaxConcurrent <= 0 {
		c.MaxConcurrent = defaults.MaxConcurrent
	}
	if c.FlushDelay <= 0 {
		c.FlushDelay = defaults.FlushDelay
	}
	if c.LookupHost == "" {
		c.LookupHost = defaults.LookupHost
	}
	if c.UserAgent == "" {
		c.UserAgent = defaults.UserAgent
	}
	if c.LogLevel == "" {
		c.LogLevel = defaults.LogLevel
	}
}

// SaveConfig writes config to the JSON file.
// Creates the directory if it doesn't exist.
func SaveConfig(path string, config *Config) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(config, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

// DefaultDir returns the default data directory: ~/.config/bmicon
func DefaultDir() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(homeDir, ".config", "bmicon"), nil
}

// DefaultConfigFilePath returns the default config path: ~/.config/bmicon/config.json
func DefaultConfigFilePath() (string, error) {
	dir, err := DefaultDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}
