// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package chat

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"

	"github.com/jeranaias/rigchat-tui/internal/model"
)

// refreshViewport re-renders the transcript from the current store
// snapshot. When force is false an unchanged message count with no
// streaming message skips the render entirely.
func (m *Model) refreshViewport(force bool) {
	msgs := m.store.Messages(m.chatID)
	if !force && len(msgs) == m.renderedUpon && !m.store.IsStreaming(m.chatID) {
		return
	}

	var b strings.Builder
	for i := range msgs {
		if i > 0 && !m.compact {
			b.WriteString("\n")
		}
		b.WriteString(m.renderMessage(&msgs[i]))
	}

	wasAtBottom := m.viewport.AtBottom()
	m.rendered = b.String()
	m.renderedUpon = len(msgs)
	m.viewport.SetContent(m.rendered)
	if wasAtBottom || m.store.IsStreaming(m.chatID) {
		m.viewport.GotoBottom()
	}
}

// renderMessage renders one message: role label, status marker, content,
// and attachment tags.
func (m *Model) renderMessage(msg *model.Message) string {
	if m.theme == nil {
		return msg.Role.DisplayName() + ": " + msg.Content + "\n"
	}

	var b strings.Builder

	label := m.theme.AssistantLabel
	bubble := m.theme.AssistantBubble
	if msg.Role == model.RoleUser {
		label = m.theme.UserLabel
		bubble = m.theme.UserBubble
	}

	header := label.Render(msg.Role.DisplayName())
	switch {
	case msg.IsStreaming:
		header += " " + m.theme.StreamingMark.Render(m.spinner.View())
	case msg.IsOptimistic:
		header += " " + m.theme.PendingMark.Render("…")
	}
	if !m.compact {
		header += " " + m.theme.Timestamp.Render(msg.CreatedAt.Format("15:04"))
	}
	b.WriteString(header)
	b.WriteString("\n")

	content := msg.Content
	if content == "" && msg.IsStreaming {
		content = m.theme.ThinkingText.Render("thinking...")
	} else if msg.Role == model.RoleAssistant && m.markdown != nil {
		if out, err := m.markdown.Render(content); err == nil {
			content = strings.TrimRight(out, "\n")
		}
	} else {
		content = wrap(content, m.contentWidth())
	}
	b.WriteString(bubble.Render(content))
	b.WriteString("\n")

	for _, att := range msg.Attachments {
		b.WriteString(m.theme.AttachmentTag.Render(attachmentLine(att)))
		b.WriteString("\n")
	}

	return b.String()
}

func attachmentLine(att *model.Attachment) string {
	switch att.CurrentStatus() {
	case model.AttachmentUploading:
		return fmt.Sprintf("  ⇡ %s (uploading)", att.Filename)
	case model.AttachmentError:
		return fmt.Sprintf("  ✗ %s (upload failed)", att.Filename)
	default:
		return fmt.Sprintf("  📎 %s", att.Filename)
	}
}

func (m *Model) contentWidth() int {
	w := m.width - 4
	if w < 20 {
		w = 20
	}
	return w
}

// wrap soft-wraps text to a display width, accounting for double-width
// runes.
func wrap(s string, width int) string {
	if width <= 0 {
		return s
	}
	var b strings.Builder
	for i, line := range strings.Split(s, "\n") {
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(wrapLine(line, width))
	}
	return b.String()
}

func wrapLine(line string, width int) string {
	if runewidth.StringWidth(line) <= width {
		return line
	}
	var b strings.Builder
	col := 0
	for _, r := range line {
		rw := runewidth.RuneWidth(r)
		if col+rw > width {
			b.WriteString("\n")
			col = 0
		}
		b.WriteRune(r)
		col += rw
	}
	return b.String()
}
