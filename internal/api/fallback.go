// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"context"
	"time"

	"github.com/jeranaias/rigchat-tui/internal/sse"
	"github.com/jeranaias/rigchat-tui/internal/stream"
)

// fallbackDelay is the artificial pacing between resynthesized units. Small
// enough to feel immediate, large enough to read as progressive output.
const fallbackDelay = 30 * time.Millisecond

// =============================================================================
// NON-STREAMING FALLBACK
// =============================================================================

// SendFallback issues a synchronous send and locally resynthesizes a stream
// from the returned full text, so consumers see the same iterator contract
// whether or not the streaming transport could be established.
func (c *Client) SendFallback(ctx context.Context, req SendRequest) (*stream.Iterator, error) {
	var out sendResponse
	if err := c.postJSON(ctx, "/api/chats/"+req.ChatID+"/messages", req, &out); err != nil {
		return nil, err
	}
	return c.synthesizeStream(ctx, out.Message), nil
}

// synthesizeStream replays a fully-formed message as a paced sequence of
// sentence-sized updates.
func (c *Client) synthesizeStream(ctx context.Context, msg sse.Message) *stream.Iterator {
	it := stream.NewIterator(c.queueSize)
	final := msg

	go func() {
		for _, unit := range splitSentences(final.Content) {
			if !it.Push(ctx, stream.Update{Text: unit}) {
				break
			}
			select {
			case <-time.After(fallbackDelay):
			case <-ctx.Done():
			}
		}
		it.Finish(stream.Result{
			Content: final.Content,
			Message: &final,
		}, nil)
	}()

	return it
}

// splitSentences cuts text into sentence-sized units, keeping terminal
// punctuation and whitespace attached so concatenating the units restores
// the input exactly.
func splitSentences(text string) []string {
	if text == "" {
		return nil
	}

	var (
		units []string
		start int
		runes = []rune(text)
	)
	for i := 0; i < len(runes); i++ {
		switch runes[i] {
		case '.', '!', '?', '\n':
			// Absorb any run of closing punctuation and trailing spaces.
			j := i + 1
			for j < len(runes) && (runes[j] == '.' || runes[j] == '!' || runes[j] == '?' || runes[j] == ' ') {
				j++
			}
			units = append(units, string(runes[start:j]))
			start = j
			i = j - 1
		}
	}
	if start < len(runes) {
		units = append(units, string(runes[start:]))
	}
	return units
}
