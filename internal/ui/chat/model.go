// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"

	"github.com/jeranaias/rigchat-tui/internal/model"
	"github.com/jeranaias/rigchat-tui/internal/session"
	"github.com/jeranaias/rigchat-tui/internal/store"
	"github.com/jeranaias/rigchat-tui/internal/ui/styles"
)

// renderTick is the streaming re-render cadence. The session controller
// already throttles store writes; this only bounds view refreshes.
const renderTick = 80 * time.Millisecond

// =============================================================================
// CHAT STATE
// =============================================================================

// State represents the current state of the chat view.
type State int

const (
	StateReady     State = iota // Ready for input
	StateStreaming              // Receiving streaming response
	StateError                  // Showing an error
)

// =============================================================================
// MESSAGES
// =============================================================================

type tickMsg time.Time

// streamDoneMsg is sent when a Send or Retry call returns.
type streamDoneMsg struct{ err error }

// =============================================================================
// CHAT MODEL
// =============================================================================

// Options carries the UI configuration the chat view honors.
type Options struct {
	// Markdown enables glamour rendering of assistant messages.
	Markdown bool
	// Compact drops timestamps and inter-message spacing.
	Compact bool
	// Theme is the configured palette variant: "dark", "light", or "auto".
	Theme string
}

// Model is the Bubble Tea model for the chat view.
type Model struct {
	state State

	theme        *styles.Theme
	themeSetting string
	compact      bool
	width        int
	height       int

	chatID     string
	controller *session.Controller
	store      *store.SessionStore

	viewport viewport.Model
	input    textarea.Model
	spinner  spinner.Model

	keyMap KeyMap

	markdown *glamour.TermRenderer

	lastError error

	// rendered caches the last viewport content so unchanged store
	// snapshots skip the markdown pass.
	rendered     string
	renderedUpon int
}

// New creates the chat view over an existing session.
func New(chatID string, controller *session.Controller, st *store.SessionStore, opts Options) Model {
	ta := textarea.New()
	ta.Placeholder = "Type a message..."
	ta.Prompt = "│ "
	ta.CharLimit = 0
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := spinner.New()
	sp.Spinner = spinner.Dot

	m := Model{
		state:        StateReady,
		chatID:       chatID,
		controller:   controller,
		store:        st,
		input:        ta,
		spinner:      sp,
		keyMap:       DefaultKeyMap(),
		themeSetting: opts.Theme,
		compact:      opts.Compact,
	}

	if opts.Markdown {
		if r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		); err == nil {
			m.markdown = r
		}
	}

	return m
}

// Init starts the spinner.
func (m Model) Init() tea.Cmd {
	return m.spinner.Tick
}

// sendCmd runs a blocking send off the update loop.
func (m *Model) sendCmd(content string) tea.Cmd {
	return func() tea.Msg {
		err := m.controller.Send(context.Background(), m.chatID, content, nil)
		return streamDoneMsg{err: err}
	}
}

// retryCmd re-runs generation for the most recent assistant message.
func (m *Model) retryCmd(id model.MessageID) tea.Cmd {
	return func() tea.Msg {
		err := m.controller.Retry(context.Background(), m.chatID, id)
		return streamDoneMsg{err: err}
	}
}

func tickCmd() tea.Cmd {
	return tea.Tick(renderTick, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
