// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for rigchat.
//
// Configuration is TOML with sensible defaults, environment variable
// overrides, and validation. Default location: ~/.rigchat/config.toml.
package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/rigchat-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete rigchat configuration.
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Stream  StreamConfig  `toml:"stream"`
	History HistoryConfig `toml:"history"`
	UI      UIConfig      `toml:"ui"`
}

// ServerConfig contains chat server connection configuration.
type ServerConfig struct {
	// BaseURL is the chat server base URL
	BaseURL string `toml:"base_url"`
	// DefaultModel is the model ID used for new chats
	DefaultModel string `toml:"default_model"`
	// TimeoutSecs is the request timeout for non-streaming calls
	TimeoutSecs int `toml:"timeout_secs"`
	// MaxRetries is the retry budget for transient server errors
	MaxRetries int `toml:"max_retries"`
}

// StreamConfig contains streaming behavior configuration.
type StreamConfig struct {
	// ThrottleMs is the minimum interval between content publications
	// while a response streams, in milliseconds
	ThrottleMs int `toml:"throttle_ms"`
	// QueueSize is the streaming event queue depth
	QueueSize int `toml:"queue_size"`
}

// HistoryConfig contains local transcript cache configuration.
type HistoryConfig struct {
	// Enabled controls whether transcripts are written locally
	Enabled bool `toml:"enabled"`
	// DatabasePath is the SQLite database location (empty = default
	// ~/.rigchat/history.db)
	DatabasePath string `toml:"database_path"`
}

// UIConfig contains UI configuration.
type UIConfig struct {
	// Theme is the UI theme: "dark", "light", "auto"
	Theme string `toml:"theme"`
	// Markdown enables markdown rendering of assistant messages
	Markdown bool `toml:"markdown"`
	// CompactMode uses a more compact UI layout
	CompactMode bool `toml:"compact_mode"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			BaseURL:      "",
			DefaultModel: "default",
			TimeoutSecs:  60,
			MaxRetries:   3,
		},
		Stream: StreamConfig{
			ThrottleMs: 50,
			QueueSize:  64,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			Markdown: true,
		},
	}
}

// Throttle returns the stream throttle as a duration.
func (c *Config) Throttle() time.Duration {
	return time.Duration(c.Stream.ThrottleMs) * time.Millisecond
}

// Timeout returns the request timeout as a duration.
func (c *Config) Timeout() time.Duration {
	return time.Duration(c.Server.TimeoutSecs) * time.Second
}

// =============================================================================
// PATH HELPERS
// =============================================================================

// ConfigDir returns the rigchat configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".rigchat"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// HistoryPath resolves the transcript database path, falling back to the
// default location when unconfigured.
func (c *Config) HistoryPath() (string, error) {
	if c.History.DatabasePath != "" {
		return c.History.DatabasePath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "history.db"), nil
}

// =============================================================================
// LOAD / SAVE
// =============================================================================

// Load loads configuration from the default config file, falling back to
// defaults if it does not exist. Environment overrides apply last.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		cfg := Default()
		cfg.ApplyEnvOverrides()
		return cfg, nil
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific file path with full
// validation. A missing file is not an error; defaults are used.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if _, err := os.Stat(path); err == nil {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode config file: %w", err)
		}
	}

	cfg.ApplyEnvOverrides()
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// Save writes the configuration to the default TOML file atomically.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveToPath(cfg, path)
}

// SaveToPath writes the configuration to a TOML file atomically with
// owner-only permissions.
func SaveToPath(cfg *Config, path string) error {
	var buf strings.Builder
	buf.WriteString("# rigchat configuration file\n")
	buf.WriteString("# Generated by rigchat - edit with care\n\n")

	if err := toml.NewEncoder(&buf).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, []byte(buf.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError represents a configuration validation error.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	if c.Server.BaseURL != "" {
		u, err := url.Parse(c.Server.BaseURL)
		if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
			return ValidationError{
				Field:   "server.base_url",
				Message: fmt.Sprintf("invalid URL %q, must be http or https", c.Server.BaseURL),
			}
		}
	}

	if c.Server.TimeoutSecs < 0 {
		return ValidationError{Field: "server.timeout_secs", Message: "must be non-negative"}
	}
	if c.Server.MaxRetries < 0 || c.Server.MaxRetries > 10 {
		return ValidationError{
			Field:   "server.max_retries",
			Message: fmt.Sprintf("must be 0-10, got %d", c.Server.MaxRetries),
		}
	}

	if c.Stream.ThrottleMs < 0 || c.Stream.ThrottleMs > 1000 {
		return ValidationError{
			Field:   "stream.throttle_ms",
			Message: fmt.Sprintf("must be 0-1000, got %d", c.Stream.ThrottleMs),
		}
	}
	if c.Stream.QueueSize < 1 || c.Stream.QueueSize > 4096 {
		return ValidationError{
			Field:   "stream.queue_size",
			Message: fmt.Sprintf("must be 1-4096, got %d", c.Stream.QueueSize),
		}
	}

	validThemes := map[string]bool{"dark": true, "light": true, "auto": true}
	if !validThemes[strings.ToLower(c.UI.Theme)] {
		return ValidationError{
			Field:   "ui.theme",
			Message: fmt.Sprintf("invalid theme %q, must be one of: dark, light, auto", c.UI.Theme),
		}
	}

	return nil
}

// SetDefaults fills in defaults for any zero-value fields.
func (c *Config) SetDefaults() {
	defaults := Default()

	if c.Server.DefaultModel == "" {
		c.Server.DefaultModel = defaults.Server.DefaultModel
	}
	if c.Server.TimeoutSecs == 0 {
		c.Server.TimeoutSecs = defaults.Server.TimeoutSecs
	}
	if c.Server.MaxRetries == 0 {
		c.Server.MaxRetries = defaults.Server.MaxRetries
	}
	if c.Stream.ThrottleMs == 0 {
		c.Stream.ThrottleMs = defaults.Stream.ThrottleMs
	}
	if c.Stream.QueueSize == 0 {
		c.Stream.QueueSize = defaults.Stream.QueueSize
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies environment variable overrides to the config.
//
// Supported environment variables:
//   - RIGCHAT_SERVER: overrides server.base_url
//   - RIGCHAT_MODEL: overrides server.default_model
//   - RIGCHAT_THROTTLE_MS: overrides stream.throttle_ms
//   - RIGCHAT_NO_HISTORY: set to "1" or "true" to disable the local cache
//   - RIGCHAT_THEME: overrides ui.theme
func (c *Config) ApplyEnvOverrides() {
	if server := os.Getenv("RIGCHAT_SERVER"); server != "" {
		c.Server.BaseURL = server
	}

	if model := os.Getenv("RIGCHAT_MODEL"); model != "" {
		c.Server.DefaultModel = model
	}

	if throttle := os.Getenv("RIGCHAT_THROTTLE_MS"); throttle != "" {
		if ms, err := strconv.Atoi(throttle); err == nil {
			c.Stream.ThrottleMs = ms
		}
	}

	if noHistory := os.Getenv("RIGCHAT_NO_HISTORY"); noHistory != "" {
		if noHistory == "1" || strings.ToLower(noHistory) == "true" {
			c.History.Enabled = false
		}
	}

	if theme := os.Getenv("RIGCHAT_THEME"); theme != "" {
		c.UI.Theme = theme
	}
}
