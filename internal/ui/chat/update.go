// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"context"
	"errors"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/jeranaias/rigchat-tui/internal/model"
	"github.com/jeranaias/rigchat-tui/internal/session"
	"github.com/jeranaias/rigchat-tui/internal/ui/styles"
)

// Update handles Bubble Tea messages.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		m.refreshViewport(true)
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)

	case tickMsg:
		if m.state == StateStreaming {
			m.refreshViewport(false)
			return m, tickCmd()
		}
		return m, nil

	case streamDoneMsg:
		m.state = StateReady
		m.lastError = msg.err
		if msg.err != nil && !isUserFacing(msg.err) {
			m.state = StateError
		}
		m.refreshViewport(true)
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	cmds = append(cmds, cmd)
	m.viewport, cmd = m.viewport.Update(msg)
	cmds = append(cmds, cmd)
	return m, tea.Batch(cmds...)
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keyMap.Quit):
		if m.state == StateStreaming {
			m.controller.Cancel(context.Background(), m.chatID)
		}
		return m, tea.Quit

	case key.Matches(msg, m.keyMap.Cancel):
		if m.state == StateStreaming {
			m.controller.Cancel(context.Background(), m.chatID)
			return m, nil
		}

	case key.Matches(msg, m.keyMap.Send):
		if m.state == StateStreaming {
			// Busy: keep typing, sending is a no-op.
			return m, nil
		}
		content := strings.TrimSpace(m.input.Value())
		if content == "" {
			return m, nil
		}
		m.input.Reset()
		m.state = StateStreaming
		m.lastError = nil
		return m, tea.Batch(m.sendCmd(content), tickCmd(), m.spinner.Tick)

	case key.Matches(msg, m.keyMap.Retry):
		if m.state == StateStreaming {
			return m, nil
		}
		if id, ok := m.lastAssistantID(); ok {
			m.state = StateStreaming
			m.lastError = nil
			return m, tea.Batch(m.retryCmd(id), tickCmd(), m.spinner.Tick)
		}
		return m, nil

	case key.Matches(msg, m.keyMap.Up):
		m.viewport.LineUp(5)
		return m, nil

	case key.Matches(msg, m.keyMap.Down):
		m.viewport.LineDown(5)
		return m, nil
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

// lastAssistantID returns the ID of the chat's most recent message if it
// is a retryable assistant message.
func (m *Model) lastAssistantID() (model.MessageID, bool) {
	msgs := m.store.Messages(m.chatID)
	if len(msgs) == 0 {
		return model.MessageID{}, false
	}
	last := msgs[len(msgs)-1]
	if last.Role != model.RoleAssistant || last.IsStreaming {
		return model.MessageID{}, false
	}
	return last.ID, true
}

func (m *Model) resize(width, height int) {
	m.width = width
	m.height = height
	if m.theme == nil {
		m.theme = styles.NewTheme(width, height, m.themeSetting)
	} else {
		m.theme.Resize(width, height)
	}

	inputHeight := 5
	chromeHeight := 2 // header + status bar
	vpHeight := height - inputHeight - chromeHeight
	if vpHeight < 1 {
		vpHeight = 1
	}

	if m.viewport.Width == 0 {
		m.viewport = viewport.New(width, vpHeight)
	} else {
		m.viewport.Width = width
		m.viewport.Height = vpHeight
	}
	m.input.SetWidth(width - 4)
}

// isUserFacing reports whether the error already surfaced in the chat
// transcript, so the error banner stays quiet.
func isUserFacing(err error) bool {
	return errors.Is(err, session.ErrEmptyMessage) ||
		errors.Is(err, session.ErrChatBusy)
}
