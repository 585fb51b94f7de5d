// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package store

import (
	"errors"
	"sync"

	"github.com/jeranaias/rigchat-tui/internal/model"
)

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrAlreadyStreaming is returned when a second streaming message
	// would be created for a chat.
	ErrAlreadyStreaming = errors.New("chat already has a streaming message")

	// ErrMessageNotFound is returned when an addressed message does not
	// exist in the store.
	ErrMessageNotFound = errors.New("message not found")
)

// =============================================================================
// SESSION STORE
// =============================================================================

// SessionStore is the in-memory table of chats and their messages.
//
// Message values handed out by Messages are copies, but attachments are
// shared by pointer: attachment records transition in place so UI
// components bound to them keep their identity.
type SessionStore struct {
	mu       sync.RWMutex
	chats    map[string]*model.Chat
	messages map[string][]*model.Message
}

// NewSessionStore creates an empty store.
func NewSessionStore() *SessionStore {
	return &SessionStore{
		chats:    make(map[string]*model.Chat),
		messages: make(map[string][]*model.Message),
	}
}

// =============================================================================
// CHATS
// =============================================================================

// PutChat inserts or replaces a chat record.
func (s *SessionStore) PutChat(c *model.Chat) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *c
	s.chats[c.ID] = &cp
}

// Chat returns a copy of the chat record.
func (s *SessionStore) Chat(id string) (model.Chat, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.chats[id]
	if !ok {
		return model.Chat{}, false
	}
	return *c, true
}

// SetChatTitle updates a chat's title.
func (s *SessionStore) SetChatTitle(id, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c, ok := s.chats[id]; ok {
		c.Title = title
	}
}

// =============================================================================
// MESSAGES
// =============================================================================

// Messages returns copies of a chat's messages in order.
func (s *SessionStore) Messages(chatID string) []model.Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	msgs := s.messages[chatID]
	out := make([]model.Message, len(msgs))
	for i, m := range msgs {
		out[i] = *m
	}
	return out
}

// MessageCount returns the number of messages in a chat.
func (s *SessionStore) MessageCount(chatID string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.messages[chatID])
}

// IsStreaming reports whether any message in the chat is streaming.
func (s *SessionStore) IsStreaming(chatID string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.streamingLocked(chatID)
}

func (s *SessionStore) streamingLocked(chatID string) bool {
	for _, m := range s.messages[chatID] {
		if m.IsStreaming {
			return true
		}
	}
	return false
}

// AppendMessage adds a message to the tail of its chat. Appending a second
// streaming message to a chat is rejected.
func (s *SessionStore) AppendMessage(msg *model.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if msg.IsStreaming && s.streamingLocked(msg.ChatID) {
		return ErrAlreadyStreaming
	}
	cp := *msg
	s.messages[msg.ChatID] = append(s.messages[msg.ChatID], &cp)
	if c, ok := s.chats[msg.ChatID]; ok {
		c.MessageCount = len(s.messages[msg.ChatID])
		c.UpdatedAt = cp.CreatedAt
	}
	return nil
}

// SetContent updates a streaming message's content, leaving its lifecycle
// flags untouched. Used for throttled streaming publication. A publication
// arriving after the message was finalized (a stale throttled flush racing a
// cancellation) is dropped, never applied over final content.
func (s *SessionStore) SetContent(chatID string, id model.MessageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findLocked(chatID, id)
	if m == nil {
		return ErrMessageNotFound
	}
	if !m.IsStreaming {
		return nil
	}
	m.Content = content
	return nil
}

// FinishStreaming sets a message's final content and clears its streaming
// flag.
func (s *SessionStore) FinishStreaming(chatID string, id model.MessageID, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	m := s.findLocked(chatID, id)
	if m == nil {
		return ErrMessageNotFound
	}
	m.Content = content
	m.IsStreaming = false
	return nil
}

// RemoveMessage deletes a message. Its attachment previews are released.
func (s *SessionStore) RemoveMessage(chatID string, id model.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.messages[chatID]
	for i, m := range msgs {
		if m.ID.Equal(id) {
			m.ReleasePreviews()
			s.messages[chatID] = append(msgs[:i], msgs[i+1:]...)
			if c, ok := s.chats[chatID]; ok {
				c.MessageCount = len(s.messages[chatID])
			}
			return nil
		}
	}
	return ErrMessageNotFound
}

func (s *SessionStore) findLocked(chatID string, id model.MessageID) *model.Message {
	for _, m := range s.messages[chatID] {
		if m.ID.Equal(id) {
			return m
		}
	}
	return nil
}

// =============================================================================
// RECONCILIATION
// =============================================================================

// ReconcileTail splices authoritative server records over the optimistic
// records named by temp, matching positionally from the oldest temp record.
// Locally-known attachment state is preserved: server records may not yet
// reflect client-side upload metadata, so when a server record carries no
// attachments the optimistic record's attachment pointers are carried over.
//
// Every message named in temp must still be present, and len(server) must
// cover len(temp); otherwise nothing is spliced and the caller should fall
// back to DemoteOptimistic. Either way the named records end terminal:
// non-streaming, non-optimistic.
func (s *SessionStore) ReconcileTail(chatID string, server []*model.Message, temp []model.MessageID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(server) < len(temp) {
		s.demoteLocked(chatID, temp)
		return ErrMessageNotFound
	}

	var targets []*model.Message
	for _, id := range temp {
		m := s.findLocked(chatID, id)
		if m == nil {
			s.demoteLocked(chatID, temp)
			return ErrMessageNotFound
		}
		targets = append(targets, m)
	}

	// Take the newest len(temp) server records, oldest first, mirroring
	// the temp ordering.
	authoritative := server[len(server)-len(temp):]
	for i, m := range targets {
		sv := authoritative[i]
		m.ID = sv.ID
		m.Role = sv.Role
		m.Content = sv.Content
		if sv.ModelID != "" {
			m.ModelID = sv.ModelID
		}
		if !sv.CreatedAt.IsZero() {
			m.CreatedAt = sv.CreatedAt
		}
		if len(sv.Attachments) > 0 {
			m.Attachments = sv.Attachments
		}
		m.IsStreaming = false
		m.IsOptimistic = false
	}
	return nil
}

// DemoteOptimistic marks the named records terminal in place, keeping their
// locally-accumulated content. This is the reconciliation fallback: the
// store must never be left straddling with a streaming or optimistic
// record after a session ends.
func (s *SessionStore) DemoteOptimistic(chatID string, ids ...model.MessageID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.demoteLocked(chatID, ids)
}

func (s *SessionStore) demoteLocked(chatID string, ids []model.MessageID) {
	for _, id := range ids {
		if m := s.findLocked(chatID, id); m != nil {
			m.IsStreaming = false
			m.IsOptimistic = false
		}
	}
}

// =============================================================================
// TEARDOWN
// =============================================================================

// Close releases every attachment preview still held by the store.
func (s *SessionStore) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, msgs := range s.messages {
		for _, m := range msgs {
			m.ReleasePreviews()
		}
	}
}
