// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"encoding/json"
	"log"
	"strings"
	"time"
)

// =============================================================================
// EVENT TYPES
// =============================================================================

// EventType discriminates protocol events.
type EventType string

const (
	EventUserMessage     EventType = "user_message"
	EventStreamStart     EventType = "stream_start"
	EventStreamChunk     EventType = "stream_chunk"
	EventStreamEnd       EventType = "stream_end"
	EventStreamCancelled EventType = "stream_cancelled"
	EventStreamError     EventType = "stream_error"
)

// knownTypes is the closed set of event types. Unknown types are dropped at
// the decode boundary, not crashed on.
var knownTypes = map[EventType]bool{
	EventUserMessage:     true,
	EventStreamStart:     true,
	EventStreamChunk:     true,
	EventStreamEnd:       true,
	EventStreamCancelled: true,
	EventStreamError:     true,
}

// Message is the wire representation of a chat message as the server emits
// it inside stream events and REST responses.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chatId"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	ModelID   string    `json:"modelId,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Event is a decoded protocol event. Which payload fields are meaningful
// depends on Type.
type Event struct {
	Type EventType `json:"type"`

	// user_message, stream_end, stream_cancelled
	Message *Message `json:"message,omitempty"`

	// stream_start
	Timestamp int64 `json:"timestamp,omitempty"`

	// stream_chunk
	Chunk string `json:"chunk,omitempty"`

	// stream_cancelled
	Cancelled bool `json:"cancelled,omitempty"`

	// stream_error
	Error string `json:"error,omitempty"`

	// Synthetic marks an event recovered from a malformed line rather
	// than decoded from valid JSON.
	Synthetic bool `json:"-"`
}

// =============================================================================
// LINE CLASSIFICATION
// =============================================================================

const dataPrefix = "data:"

// DecodeLine classifies a single frame line. It returns (nil, false) for
// blank lines (event terminators), non-data lines, unknown event types, and
// unrecoverable malformed payloads. JSON parse failures on lines carrying a
// stream_error are recovered into a synthetic stream_error event instead of
// failing the session.
func DecodeLine(line string) (*Event, bool) {
	trimmed := strings.TrimSpace(line)
	if trimmed == "" {
		return nil, false
	}
	if !strings.HasPrefix(trimmed, dataPrefix) {
		// id:, retry:, event:, comments - the protocol only uses data
		// frames, everything else is ignored.
		return nil, false
	}

	payload := strings.TrimSpace(trimmed[len(dataPrefix):])
	if payload == "" {
		return nil, false
	}

	var ev Event
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		if strings.Contains(payload, string(EventStreamError)) {
			return recoverErrorEvent(payload), true
		}
		log.Printf("sse: skipping malformed frame: %v", err)
		return nil, false
	}

	if !knownTypes[ev.Type] {
		log.Printf("sse: dropping unknown event type %q", ev.Type)
		return nil, false
	}
	return &ev, true
}

// recoverErrorEvent builds a synthetic stream_error event from a malformed
// line, salvaging whatever error text the extractors can find.
func recoverErrorEvent(payload string) *Event {
	return &Event{
		Type:      EventStreamError,
		Error:     ExtractErrorText(payload),
		Synthetic: true,
	}
}
