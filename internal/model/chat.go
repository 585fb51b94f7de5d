// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"time"
)

// DefaultChatTitle is the title a chat carries before the server has
// generated one from its first exchange.
const DefaultChatTitle = "New chat"

// =============================================================================
// CHAT TYPE
// =============================================================================

// Chat represents a conversation. Chats are addressed by server-assigned
// string IDs; the server owns durable chat state and this record is the
// client's view of it.
type Chat struct {
	ID      string
	Title   string
	ModelID string

	CreatedAt time.Time
	UpdatedAt time.Time

	MessageCount int

	// Sharing/branching metadata, mutated by share and branch operations.
	Shared       bool
	ShareToken   string
	ParentChatID string
}

// NewChat creates a client-side chat record with the default title.
func NewChat(id, modelID string) *Chat {
	now := time.Now()
	return &Chat{
		ID:        id,
		Title:     DefaultChatTitle,
		ModelID:   modelID,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// HasDefaultTitle reports whether the chat still carries the default title,
// which is what gates the title-generation side channel.
func (c *Chat) HasDefaultTitle() bool {
	return c.Title == "" || c.Title == DefaultChatTitle
}
