// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"testing"
)

// =============================================================================
// DECODE TESTS
// =============================================================================

func TestDecodeLine_Chunk(t *testing.T) {
	ev, ok := DecodeLine(`data: {"type":"stream_chunk","chunk":"Hello"}`)
	if !ok {
		t.Fatal("DecodeLine rejected a valid chunk")
	}
	if ev.Type != EventStreamChunk {
		t.Errorf("Type = %q, want stream_chunk", ev.Type)
	}
	if ev.Chunk != "Hello" {
		t.Errorf("Chunk = %q, want 'Hello'", ev.Chunk)
	}
}

func TestDecodeLine_StreamEnd(t *testing.T) {
	ev, ok := DecodeLine(`data: {"type":"stream_end","message":{"id":"m1","chatId":"c1","role":"assistant","content":"done"}}`)
	if !ok {
		t.Fatal("DecodeLine rejected a valid stream_end")
	}
	if ev.Type != EventStreamEnd {
		t.Errorf("Type = %q, want stream_end", ev.Type)
	}
	if ev.Message == nil || ev.Message.ID != "m1" {
		t.Errorf("Message = %+v, want id m1", ev.Message)
	}
}

func TestDecodeLine_Skipped(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"blank", ""},
		{"whitespace", "   "},
		{"event terminator", "\r"},
		{"comment", ": keep-alive"},
		{"id field", "id: 42"},
		{"retry field", "retry: 3000"},
		{"empty payload", "data: "},
		{"unknown type", `data: {"type":"heartbeat"}`},
		{"malformed non-error", `data: {"type":"stream_chunk","chunk":`},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if ev, ok := DecodeLine(tc.line); ok {
				t.Errorf("DecodeLine(%q) = %+v, want skip", tc.line, ev)
			}
		})
	}
}

func TestDecodeLine_NoSpaceAfterColon(t *testing.T) {
	ev, ok := DecodeLine(`data:{"type":"stream_chunk","chunk":"x"}`)
	if !ok || ev.Chunk != "x" {
		t.Errorf("DecodeLine without space = %+v, %v", ev, ok)
	}
}

func TestDecodeLine_MalformedErrorRecovered(t *testing.T) {
	ev, ok := DecodeLine(`data: {"type":"stream_error","error":"boom`)
	if !ok {
		t.Fatal("malformed stream_error not recovered")
	}
	if ev.Type != EventStreamError {
		t.Errorf("Type = %q, want stream_error", ev.Type)
	}
	if !ev.Synthetic {
		t.Error("recovered event not marked synthetic")
	}
	if ev.Error != "boom" {
		t.Errorf("Error = %q, want 'boom'", ev.Error)
	}
}

func TestDecodeLine_Cancelled(t *testing.T) {
	ev, ok := DecodeLine(`data: {"type":"stream_cancelled","cancelled":true,"message":{"id":"m2","content":"partial"}}`)
	if !ok {
		t.Fatal("DecodeLine rejected stream_cancelled")
	}
	if !ev.Cancelled {
		t.Error("Cancelled = false, want true")
	}
	if ev.Message == nil || ev.Message.Content != "partial" {
		t.Errorf("Message = %+v", ev.Message)
	}
}
