// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package styles

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"
)

// Theme holds the styled components for the application. The background
// variant follows the configured theme name, falling back to terminal
// detection.
type Theme struct {
	IsDark bool

	Width  int
	Height int

	// ==========================================================================
	// HEADER AND STATUS STYLES
	// ==========================================================================

	Header      lipgloss.Style
	HeaderTitle lipgloss.Style
	HeaderModel lipgloss.Style
	StatusBar   lipgloss.Style
	StatusKey   lipgloss.Style
	StatusDesc  lipgloss.Style

	// ==========================================================================
	// MESSAGE STYLES
	// ==========================================================================

	UserLabel       lipgloss.Style
	AssistantLabel  lipgloss.Style
	UserBubble      lipgloss.Style
	AssistantBubble lipgloss.Style
	PendingMark     lipgloss.Style
	StreamingMark   lipgloss.Style
	ErrorText       lipgloss.Style
	Timestamp       lipgloss.Style
	AttachmentTag   lipgloss.Style

	// ==========================================================================
	// INPUT AND SPINNER STYLES
	// ==========================================================================

	InputContainer lipgloss.Style
	InputPrompt    lipgloss.Style
	Spinner        lipgloss.Style
	ThinkingText   lipgloss.Style
}

// NewTheme builds a theme sized for the given terminal dimensions. setting
// selects the palette variant: "light" and "dark" force one, anything else
// follows the terminal's detected background.
func NewTheme(width, height int, setting string) *Theme {
	isDark := resolveDark(setting)
	// AdaptiveColor resolves against the renderer's background flag, so the
	// configured variant must be pushed down before any style renders.
	lipgloss.SetHasDarkBackground(isDark)

	t := &Theme{
		IsDark: isDark,
		Width:  width,
		Height: height,
	}

	t.Header = lipgloss.NewStyle().
		Background(SurfaceDim).
		Padding(0, 1).
		Width(width)
	t.HeaderTitle = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.HeaderModel = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.StatusBar = lipgloss.NewStyle().
		Background(SurfaceDim).
		Foreground(TextSecondary).
		Padding(0, 1).
		Width(width)
	t.StatusKey = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)
	t.StatusDesc = lipgloss.NewStyle().
		Foreground(TextMuted)

	t.UserLabel = lipgloss.NewStyle().
		Foreground(UserBubbleBorder).
		Bold(true)
	t.AssistantLabel = lipgloss.NewStyle().
		Foreground(Purple).
		Bold(true)
	t.UserBubble = lipgloss.NewStyle().
		Foreground(UserBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(UserBubbleBorder).
		PaddingLeft(1)
	t.AssistantBubble = lipgloss.NewStyle().
		Foreground(AssistantBubbleFg).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(AssistantBubbleBorder).
		PaddingLeft(1)

	t.PendingMark = lipgloss.NewStyle().Foreground(Amber)
	t.StreamingMark = lipgloss.NewStyle().Foreground(Emerald)
	t.ErrorText = lipgloss.NewStyle().Foreground(Rose)
	t.Timestamp = lipgloss.NewStyle().Foreground(TextMuted)
	t.AttachmentTag = lipgloss.NewStyle().
		Foreground(TextSecondary).
		Italic(true)

	t.InputContainer = lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(Overlay).
		Padding(0, 1).
		Width(width - 2)
	t.InputPrompt = lipgloss.NewStyle().
		Foreground(Cyan).
		Bold(true)

	t.Spinner = lipgloss.NewStyle().Foreground(Purple)
	t.ThinkingText = lipgloss.NewStyle().
		Foreground(TextMuted).
		Italic(true)

	return t
}

// resolveDark maps the configured theme name onto a background variant.
func resolveDark(setting string) bool {
	switch strings.ToLower(setting) {
	case "light":
		return false
	case "dark":
		return true
	default:
		return termenv.HasDarkBackground()
	}
}

// Resize rebuilds width-dependent styles for new terminal dimensions.
func (t *Theme) Resize(width, height int) {
	t.Width = width
	t.Height = height
	t.Header = t.Header.Width(width)
	t.StatusBar = t.StatusBar.Width(width)
	t.InputContainer = t.InputContainer.Width(width - 2)
}
