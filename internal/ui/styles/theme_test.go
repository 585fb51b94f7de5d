// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import "testing"

func TestResolveDark_ForcedVariants(t *testing.T) {
	tests := []struct {
		setting string
		want    bool
	}{
		{"dark", true},
		{"light", false},
		{"Dark", true},
		{"LIGHT", false},
	}
	for _, tt := range tests {
		if got := resolveDark(tt.setting); got != tt.want {
			t.Errorf("resolveDark(%q) = %v, want %v", tt.setting, got, tt.want)
		}
	}
}

func TestNewTheme_HonorsConfiguredVariant(t *testing.T) {
	if th := NewTheme(80, 24, "light"); th.IsDark {
		t.Error("light theme resolved dark")
	}
	if th := NewTheme(80, 24, "dark"); !th.IsDark {
		t.Error("dark theme resolved light")
	}
}

func TestTheme_Resize(t *testing.T) {
	th := NewTheme(80, 24, "dark")
	th.Resize(120, 40)
	if th.Width != 120 || th.Height != 40 {
		t.Errorf("dimensions = %dx%d, want 120x40", th.Width, th.Height)
	}
	if got := th.Header.GetWidth(); got != 120 {
		t.Errorf("header width = %d, want 120", got)
	}
}
