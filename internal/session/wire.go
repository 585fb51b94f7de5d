// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"github.com/jeranaias/rigchat-tui/internal/model"
	"github.com/jeranaias/rigchat-tui/internal/sse"
)

// fromWire converts a server message record into the store's domain form.
// Server records always carry server-assigned IDs.
func fromWire(m *sse.Message) *model.Message {
	return &model.Message{
		ID:        model.ServerID(m.ID),
		ChatID:    m.ChatID,
		Role:      model.Role(m.Role),
		Content:   m.Content,
		ModelID:   m.ModelID,
		CreatedAt: m.CreatedAt,
	}
}
