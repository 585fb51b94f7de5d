// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

// =============================================================================
// DEFAULTS TESTS
// =============================================================================

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.DefaultModel != "default" {
		t.Errorf("DefaultModel = %q", cfg.Server.DefaultModel)
	}
	if cfg.Stream.ThrottleMs != 50 {
		t.Errorf("ThrottleMs = %d, want 50", cfg.Stream.ThrottleMs)
	}
	if cfg.Stream.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want 64", cfg.Stream.QueueSize)
	}
	if !cfg.History.Enabled {
		t.Error("history disabled by default")
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("default config invalid: %v", err)
	}
}

func TestDurationHelpers(t *testing.T) {
	cfg := Default()
	if cfg.Throttle() != 50*time.Millisecond {
		t.Errorf("Throttle() = %v", cfg.Throttle())
	}
	if cfg.Timeout() != 60*time.Second {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
}

// =============================================================================
// LOAD / SAVE TESTS
// =============================================================================

func TestLoadFromPath_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Stream.ThrottleMs != 50 {
		t.Errorf("ThrottleMs = %d, defaults not applied", cfg.Stream.ThrottleMs)
	}
}

func TestLoadFromPath_PartialFileKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
base_url = "https://chat.example.com"

[stream]
throttle_ms = 100
`
	if err := os.WriteFile(path, []byte(data), 0600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if cfg.Server.BaseURL != "https://chat.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Stream.ThrottleMs != 100 {
		t.Errorf("ThrottleMs = %d", cfg.Stream.ThrottleMs)
	}
	// Unset fields fall back to defaults.
	if cfg.Stream.QueueSize != 64 {
		t.Errorf("QueueSize = %d, want default", cfg.Stream.QueueSize)
	}
	if cfg.UI.Theme != "dark" {
		t.Errorf("Theme = %q, want default", cfg.UI.Theme)
	}
}

func TestLoadFromPath_InvalidTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	os.WriteFile(path, []byte("this is { not toml"), 0600)

	if _, err := LoadFromPath(path); err == nil {
		t.Error("expected decode error")
	}
}

func TestSaveToPath_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")

	cfg := Default()
	cfg.Server.BaseURL = "http://localhost:8080"
	cfg.Server.DefaultModel = "fast-model"
	cfg.UI.Theme = "light"

	if err := SaveToPath(cfg, path); err != nil {
		t.Fatalf("SaveToPath: %v", err)
	}

	info, err := os.Stat(path)
	if err != nil {
		t.Fatal(err)
	}
	if perm := info.Mode().Perm(); perm != 0600 {
		t.Errorf("permissions = %o, want 0600", perm)
	}

	loaded, err := LoadFromPath(path)
	if err != nil {
		t.Fatalf("LoadFromPath: %v", err)
	}
	if loaded.Server.BaseURL != cfg.Server.BaseURL ||
		loaded.Server.DefaultModel != cfg.Server.DefaultModel ||
		loaded.UI.Theme != cfg.UI.Theme {
		t.Errorf("round trip mismatch: %+v", loaded)
	}
}

// =============================================================================
// VALIDATION TESTS
// =============================================================================

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"valid defaults", func(c *Config) {}, ""},
		{"empty base url ok", func(c *Config) { c.Server.BaseURL = "" }, ""},
		{"https url ok", func(c *Config) { c.Server.BaseURL = "https://x.example" }, ""},
		{"ftp url", func(c *Config) { c.Server.BaseURL = "ftp://x.example" }, "server.base_url"},
		{"negative timeout", func(c *Config) { c.Server.TimeoutSecs = -1 }, "server.timeout_secs"},
		{"retries too high", func(c *Config) { c.Server.MaxRetries = 11 }, "server.max_retries"},
		{"throttle too high", func(c *Config) { c.Stream.ThrottleMs = 1001 }, "stream.throttle_ms"},
		{"queue zero", func(c *Config) { c.Stream.QueueSize = 0 }, "stream.queue_size"},
		{"bad theme", func(c *Config) { c.UI.Theme = "hotdog" }, "ui.theme"},
		{"theme case insensitive", func(c *Config) { c.UI.Theme = "Light" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() = %v, want nil", err)
				}
				return
			}
			var ve ValidationError
			if !errors.As(err, &ve) {
				t.Fatalf("Validate() = %v, want ValidationError", err)
			}
			if ve.Field != tt.wantErr {
				t.Errorf("Field = %q, want %q", ve.Field, tt.wantErr)
			}
		})
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDE TESTS
// =============================================================================

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("RIGCHAT_SERVER", "https://env.example.com")
	t.Setenv("RIGCHAT_MODEL", "env-model")
	t.Setenv("RIGCHAT_THROTTLE_MS", "75")
	t.Setenv("RIGCHAT_NO_HISTORY", "true")
	t.Setenv("RIGCHAT_THEME", "light")

	cfg := Default()
	cfg.ApplyEnvOverrides()

	if cfg.Server.BaseURL != "https://env.example.com" {
		t.Errorf("BaseURL = %q", cfg.Server.BaseURL)
	}
	if cfg.Server.DefaultModel != "env-model" {
		t.Errorf("DefaultModel = %q", cfg.Server.DefaultModel)
	}
	if cfg.Stream.ThrottleMs != 75 {
		t.Errorf("ThrottleMs = %d", cfg.Stream.ThrottleMs)
	}
	if cfg.History.Enabled {
		t.Error("history not disabled by RIGCHAT_NO_HISTORY")
	}
	if cfg.UI.Theme != "light" {
		t.Errorf("Theme = %q", cfg.UI.Theme)
	}
}

func TestApplyEnvOverrides_InvalidThrottleIgnored(t *testing.T) {
	t.Setenv("RIGCHAT_THROTTLE_MS", "not-a-number")
	cfg := Default()
	cfg.ApplyEnvOverrides()
	if cfg.Stream.ThrottleMs != 50 {
		t.Errorf("ThrottleMs = %d, invalid env value applied", cfg.Stream.ThrottleMs)
	}
}

func TestHistoryPath(t *testing.T) {
	cfg := Default()
	cfg.History.DatabasePath = "/tmp/custom.db"
	path, err := cfg.HistoryPath()
	if err != nil || path != "/tmp/custom.db" {
		t.Errorf("HistoryPath() = %q, %v", path, err)
	}

	cfg.History.DatabasePath = ""
	path, err = cfg.HistoryPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "history.db" {
		t.Errorf("default path = %q", path)
	}
}
