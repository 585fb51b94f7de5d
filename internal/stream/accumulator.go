// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"strings"

	"github.com/jeranaias/rigchat-tui/internal/sse"
)

// ReplacePrefix marks a chunk whose payload wholly replaces the accumulated
// content instead of appending to it. Used for progressive-refinement
// output, e.g. an image-generation status line morphing into the final
// caption, without the consumer needing special-case branching.
const ReplacePrefix = "REPLACE:"

// =============================================================================
// UPDATES
// =============================================================================

// Update is one unit of content delivered to the consumer. Replace updates
// carry the full new content; append updates carry only the delta.
type Update struct {
	Text    string
	Replace bool
}

// =============================================================================
// ACCUMULATOR
// =============================================================================

// Accumulator folds decoded events into the current full response text.
// It is driven by a single goroutine (the transport read loop) and is not
// safe for concurrent use.
type Accumulator struct {
	content   strings.Builder
	done      bool
	cancelled bool
	errText   string
	final     *sse.Message
}

// NewAccumulator returns an empty accumulator.
func NewAccumulator() *Accumulator {
	return &Accumulator{}
}

// Apply folds one event in. It returns the update to deliver downstream and
// whether there is one. Once completion has been marked, further chunks are
// rejected.
func (a *Accumulator) Apply(ev *sse.Event) (Update, bool) {
	if ev == nil || a.done {
		return Update{}, false
	}

	switch ev.Type {
	case sse.EventStreamChunk:
		if rest, ok := strings.CutPrefix(ev.Chunk, ReplacePrefix); ok {
			a.content.Reset()
			a.content.WriteString(rest)
			return Update{Text: rest, Replace: true}, true
		}
		a.content.WriteString(ev.Chunk)
		return Update{Text: ev.Chunk}, true

	case sse.EventStreamEnd:
		a.done = true
		a.final = ev.Message
		return Update{}, false

	case sse.EventStreamCancelled:
		a.done = true
		a.cancelled = true
		a.final = ev.Message
		return Update{}, false

	case sse.EventStreamError:
		// The error becomes the final visible content rather than
		// aborting the consumer. Appended after any partial output so
		// nothing already shown is lost.
		a.done = true
		a.errText = ev.Error
		if a.content.Len() == 0 {
			a.content.WriteString(ev.Error)
			return Update{Text: ev.Error, Replace: true}, true
		}
		delta := "\n\n" + ev.Error
		a.content.WriteString(delta)
		return Update{Text: delta}, true
	}

	// user_message / stream_start carry no content.
	return Update{}, false
}

// Content returns the current full accumulated text.
func (a *Accumulator) Content() string {
	return a.content.String()
}

// Done reports whether a terminal event has been applied.
func (a *Accumulator) Done() bool {
	return a.done
}

// Cancelled reports whether the stream ended with stream_cancelled.
func (a *Accumulator) Cancelled() bool {
	return a.cancelled
}

// ErrText returns the provider error text, if the stream ended with
// stream_error.
func (a *Accumulator) ErrText() string {
	return a.errText
}

// Final returns the authoritative message delivered by the terminal event,
// if the server sent one.
func (a *Accumulator) Final() *sse.Message {
	return a.final
}
