// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"strings"

	"github.com/jeranaias/rigchat-tui/internal/util"
)

// View renders the full chat screen.
func (m Model) View() string {
	if m.theme == nil || m.width == 0 {
		return "loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	b.WriteString(m.viewport.View())
	b.WriteString("\n")
	b.WriteString(m.theme.InputContainer.Render(m.input.View()))
	b.WriteString("\n")
	b.WriteString(m.renderStatusBar())
	return b.String()
}

func (m Model) renderHeader() string {
	chat, ok := m.store.Chat(m.chatID)
	title := "rigchat"
	modelID := ""
	if ok {
		title = util.TruncateRunes(chat.Title, 48)
		modelID = chat.ModelID
	}

	line := m.theme.HeaderTitle.Render(title)
	if modelID != "" {
		line += "  " + m.theme.HeaderModel.Render(modelID)
	}
	return m.theme.Header.Render(line)
}

func (m Model) renderStatusBar() string {
	var parts []string

	switch m.state {
	case StateStreaming:
		parts = append(parts,
			m.theme.Spinner.Render(m.spinner.View())+" streaming",
			m.theme.StatusKey.Render("esc")+m.theme.StatusDesc.Render(" stop"))
	case StateError:
		msg := "error"
		if m.lastError != nil {
			msg = util.TruncateRunes(m.lastError.Error(), 60)
		}
		parts = append(parts, m.theme.ErrorText.Render(msg))
	default:
		parts = append(parts,
			m.theme.StatusKey.Render("enter")+m.theme.StatusDesc.Render(" send"),
			m.theme.StatusKey.Render("ctrl+r")+m.theme.StatusDesc.Render(" retry"),
			m.theme.StatusKey.Render("ctrl+c")+m.theme.StatusDesc.Render(" quit"))
	}

	return m.theme.StatusBar.Render(strings.Join(parts, "  "))
}
