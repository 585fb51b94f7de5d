// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/jeranaias/rigchat-tui/internal/sse"
	"github.com/jeranaias/rigchat-tui/internal/stream"
)

// streamReadSize is the transport read buffer. Reads return at arbitrary
// boundaries; the line buffer reassembles frames.
const streamReadSize = 4 * 1024

// =============================================================================
// STREAMING OPEN
// =============================================================================

// OpenStream sends a message and opens the SSE response stream. The
// returned iterator yields content updates in server emission order; its
// Result is valid once the iterator reports completion.
//
// Connection-establishment failures are reported as ErrStreamUnavailable so
// callers can degrade to SendFallback.
func (c *Client) OpenStream(ctx context.Context, req SendRequest) (*stream.Iterator, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	payload, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/chats/"+req.ChatID+"/stream", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	setStreamHeaders(httpReq)

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.classifyError(resp.StatusCode, body)
	}

	it := stream.NewIterator(c.queueSize)
	go c.readStream(ctx, resp.Body, it)
	return it, nil
}

// RetryStream re-runs generation for a message. The server answers with an
// SSE stream for text results, or plain JSON for non-text results; either
// way the caller sees the same iterator contract.
func (c *Client) RetryStream(ctx context.Context, chatID, messageID string) (*stream.Iterator, error) {
	if !c.IsConfigured() {
		return nil, ErrNotConfigured
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/chats/"+chatID+"/messages/"+messageID+"/retry", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	setStreamHeaders(httpReq)

	resp, err := c.streamClient.Do(httpReq)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, fmt.Errorf("%w: %v", ErrStreamUnavailable, err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, MaxResponseSize))
		resp.Body.Close()
		return nil, c.classifyError(resp.StatusCode, body)
	}

	if strings.HasPrefix(resp.Header.Get("Content-Type"), "application/json") {
		// Non-text result: the server committed the message in one shot.
		defer resp.Body.Close()
		var out sendResponse
		if err := json.NewDecoder(io.LimitReader(resp.Body, MaxResponseSize)).Decode(&out); err != nil {
			return nil, fmt.Errorf("failed to decode response: %w", err)
		}
		return c.synthesizeStream(ctx, out.Message), nil
	}

	it := stream.NewIterator(c.queueSize)
	go c.readStream(ctx, resp.Body, it)
	return it, nil
}

// setStreamHeaders sets the SSE negotiation headers.
func setStreamHeaders(req *http.Request) {
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Cache-Control", "no-cache")
	req.Header.Set("Connection", "keep-alive")
}

// =============================================================================
// READ LOOP
// =============================================================================

// readStream drives the byte stream through the frame decoder and chunk
// accumulator, pushing updates into the iterator. It owns the response body
// and the iterator's producer side.
func (c *Client) readStream(ctx context.Context, body io.ReadCloser, it *stream.Iterator) {
	defer body.Close()

	var (
		lb  sse.LineBuffer
		acc = stream.NewAccumulator()
		buf = make([]byte, streamReadSize)
	)

	finish := func(readErr error) {
		res := stream.Result{
			Content:   acc.Content(),
			Message:   acc.Final(),
			Cancelled: acc.Cancelled(),
			ErrText:   acc.ErrText(),
		}
		// A terminal protocol event supersedes whatever the transport did
		// afterwards; a provider error recovered into content is a
		// completed stream, not a failed one.
		if acc.Done() {
			readErr = nil
		}
		it.Finish(res, readErr)
	}

	apply := func(line string) bool {
		ev, ok := sse.DecodeLine(line)
		if !ok {
			return true
		}
		if u, emit := acc.Apply(ev); emit {
			if !it.Push(ctx, u) {
				return false
			}
		}
		return !acc.Done()
	}

	for {
		n, err := body.Read(buf)
		if n > 0 {
			for _, line := range lb.Feed(buf[:n]) {
				if !apply(line) {
					finish(nil)
					return
				}
			}
		}
		if err != nil {
			// Process a final unterminated frame before deciding how the
			// stream ended.
			if line, ok := lb.Flush(); ok {
				if !apply(line) {
					finish(nil)
					return
				}
			}
			if err == io.EOF {
				finish(nil)
				return
			}
			if ctx.Err() != nil {
				finish(ctx.Err())
				return
			}
			finish(fmt.Errorf("stream read failed: %w", err))
			return
		}
	}
}
