// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package styles provides the visual styling system for the rigchat TUI.
//
// Colors are defined once as lipgloss.AdaptiveColor values so every style
// renders correctly on both light and dark terminals, and Theme bundles
// the composed styles the chat view consumes.
package styles
