// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// =============================================================================
// ROLE TYPE
// =============================================================================

// Role represents the sender of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// String returns the string representation of the role.
func (r Role) String() string {
	return string(r)
}

// DisplayName returns a human-readable name for the role.
func (r Role) DisplayName() string {
	switch r {
	case RoleUser:
		return "You"
	case RoleAssistant:
		return "Assistant"
	case RoleSystem:
		return "System"
	default:
		return string(r)
	}
}

// =============================================================================
// MESSAGE TYPE
// =============================================================================

// Message represents a single message in a chat.
type Message struct {
	// Identity
	ID     MessageID
	ChatID string
	Role   Role

	// Content
	Content string
	ModelID string

	// Attachments are shared by pointer: the upload worker mutates the
	// records in place and consumers must observe the transitions without
	// the slice itself changing.
	Attachments []*Attachment

	CreatedAt time.Time

	// Lifecycle flags
	IsStreaming  bool
	IsOptimistic bool
}

// NewOptimisticUserMessage creates the locally-visible user message for a
// send that has not yet reached the server.
func NewOptimisticUserMessage(chatID, content string, attachments []*Attachment) *Message {
	return &Message{
		ID:           NewClientID(),
		ChatID:       chatID,
		Role:         RoleUser,
		Content:      content,
		Attachments:  attachments,
		CreatedAt:    time.Now(),
		IsOptimistic: true,
	}
}

// NewStreamingPlaceholder creates the assistant placeholder that receives
// streamed content.
func NewStreamingPlaceholder(chatID, modelID string) *Message {
	return &Message{
		ID:           NewClientID(),
		ChatID:       chatID,
		Role:         RoleAssistant,
		ModelID:      modelID,
		CreatedAt:    time.Now(),
		IsStreaming:  true,
		IsOptimistic: true,
	}
}

// IsEmpty returns true if the message has no content and no attachments.
func (m *Message) IsEmpty() bool {
	return m.Content == "" && len(m.Attachments) == 0
}

// Preview returns a truncated single-line preview of the message content.
// Rune-based truncation keeps multi-byte characters intact.
func (m *Message) Preview(maxRunes int) string {
	runes := []rune(m.Content)
	if len(runes) <= maxRunes {
		return m.Content
	}
	if maxRunes <= 3 {
		return string(runes[:maxRunes])
	}
	return string(runes[:maxRunes-3]) + "..."
}

// ReleasePreviews releases every local attachment preview held by the
// message. Safe to call repeatedly.
func (m *Message) ReleasePreviews() {
	for _, att := range m.Attachments {
		att.ReleasePreview()
	}
}
