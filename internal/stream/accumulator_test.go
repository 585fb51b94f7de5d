// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"testing"

	"github.com/jeranaias/rigchat-tui/internal/sse"
)

func chunk(text string) *sse.Event {
	return &sse.Event{Type: sse.EventStreamChunk, Chunk: text}
}

// =============================================================================
// ACCUMULATOR TESTS
// =============================================================================

func TestAccumulator_Append(t *testing.T) {
	a := NewAccumulator()

	u, ok := a.Apply(chunk("Hello"))
	if !ok || u.Replace || u.Text != "Hello" {
		t.Fatalf("first chunk: %+v, %v", u, ok)
	}
	u, ok = a.Apply(chunk(" there"))
	if !ok || u.Replace {
		t.Fatalf("second chunk: %+v, %v", u, ok)
	}

	if a.Content() != "Hello there" {
		t.Errorf("Content() = %q, want 'Hello there'", a.Content())
	}
}

func TestAccumulator_Replace(t *testing.T) {
	a := NewAccumulator()
	a.Apply(chunk("Generating image..."))
	a.Apply(chunk(" 50%"))

	u, ok := a.Apply(chunk("REPLACE:A sunset over the bay"))
	if !ok || !u.Replace {
		t.Fatalf("replace chunk: %+v, %v", u, ok)
	}
	if u.Text != "A sunset over the bay" {
		t.Errorf("Text = %q, REPLACE: prefix not stripped", u.Text)
	}
	if a.Content() != "A sunset over the bay" {
		t.Errorf("Content() = %q, prior content not discarded", a.Content())
	}

	// Appends after a replace build on the replaced content.
	a.Apply(chunk(" at dusk"))
	if a.Content() != "A sunset over the bay at dusk" {
		t.Errorf("Content() = %q", a.Content())
	}
}

func TestAccumulator_ReplaceAsFirstChunk(t *testing.T) {
	a := NewAccumulator()
	u, ok := a.Apply(chunk("REPLACE:only"))
	if !ok || !u.Replace || u.Text != "only" {
		t.Fatalf("got %+v, %v", u, ok)
	}
	if a.Content() != "only" {
		t.Errorf("Content() = %q", a.Content())
	}
}

func TestAccumulator_StreamEnd(t *testing.T) {
	a := NewAccumulator()
	a.Apply(chunk("Hi"))

	final := &sse.Message{ID: "m1", Content: "Hi"}
	if _, ok := a.Apply(&sse.Event{Type: sse.EventStreamEnd, Message: final}); ok {
		t.Error("stream_end produced an update")
	}
	if !a.Done() {
		t.Error("Done() = false after stream_end")
	}
	if a.Final() != final {
		t.Error("Final() did not capture the terminal message")
	}

	// Late chunks after completion are rejected.
	if _, ok := a.Apply(chunk("late")); ok {
		t.Error("chunk accepted after stream_end")
	}
	if a.Content() != "Hi" {
		t.Errorf("Content() = %q, late chunk leaked in", a.Content())
	}
}

func TestAccumulator_Cancelled(t *testing.T) {
	a := NewAccumulator()
	a.Apply(chunk("partial"))
	a.Apply(&sse.Event{Type: sse.EventStreamCancelled, Cancelled: true})

	if !a.Done() || !a.Cancelled() {
		t.Errorf("Done=%v Cancelled=%v, want true/true", a.Done(), a.Cancelled())
	}
	if a.Content() != "partial" {
		t.Errorf("Content() = %q, partial lost on cancel", a.Content())
	}
}

func TestAccumulator_ErrorWithoutContent(t *testing.T) {
	a := NewAccumulator()
	u, ok := a.Apply(&sse.Event{Type: sse.EventStreamError, Error: "quota exceeded"})
	if !ok || !u.Replace || u.Text != "quota exceeded" {
		t.Fatalf("got %+v, %v", u, ok)
	}
	if !a.Done() || a.ErrText() != "quota exceeded" {
		t.Errorf("Done=%v ErrText=%q", a.Done(), a.ErrText())
	}
}

func TestAccumulator_ErrorAfterPartialContent(t *testing.T) {
	a := NewAccumulator()
	a.Apply(chunk("Here is the start"))

	u, ok := a.Apply(&sse.Event{Type: sse.EventStreamError, Error: "provider died"})
	if !ok || u.Replace {
		t.Fatalf("got %+v, %v", u, ok)
	}
	want := "Here is the start\n\nprovider died"
	if a.Content() != want {
		t.Errorf("Content() = %q, want %q", a.Content(), want)
	}
}

func TestAccumulator_NonContentEvents(t *testing.T) {
	a := NewAccumulator()
	if _, ok := a.Apply(&sse.Event{Type: sse.EventStreamStart, Timestamp: 42}); ok {
		t.Error("stream_start produced an update")
	}
	if _, ok := a.Apply(&sse.Event{Type: sse.EventUserMessage}); ok {
		t.Error("user_message produced an update")
	}
	if _, ok := a.Apply(nil); ok {
		t.Error("nil event produced an update")
	}
	if a.Done() {
		t.Error("Done() = true without a terminal event")
	}
}
