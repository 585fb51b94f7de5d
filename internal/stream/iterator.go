// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"

	"github.com/jeranaias/rigchat-tui/internal/sse"
)

// DefaultQueueSize bounds the update backlog between the read loop and the
// consumer. 64 updates absorbs bursts without letting a stalled consumer
// pin unbounded memory.
const DefaultQueueSize = 64

// =============================================================================
// RESULT
// =============================================================================

// Result is the terminal state of a finished stream. Valid only after Next
// has reported completion.
type Result struct {
	// Content is the full accumulated text.
	Content string

	// Message is the authoritative record from the terminal event, if the
	// server sent one.
	Message *sse.Message

	// Cancelled reports a server-acknowledged cancellation.
	Cancelled bool

	// ErrText is the provider error text for streams that ended with
	// stream_error; empty otherwise.
	ErrText string
}

// =============================================================================
// ITERATOR
// =============================================================================

// Iterator is a single-consumer, non-restartable, finite sequence of
// content updates. The producer (transport read loop) pushes updates and
// closes the iterator exactly once; the consumer pulls with Next.
type Iterator struct {
	updates chan Update

	// Written by the producer before close(updates); read by the consumer
	// only after the channel reports closed. The channel close provides
	// the happens-before edge, no lock needed.
	result Result
	err    error
}

// NewIterator creates an iterator with the given queue bound. A bound of
// zero or less uses DefaultQueueSize.
func NewIterator(queueSize int) *Iterator {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Iterator{updates: make(chan Update, queueSize)}
}

// Push queues an update, blocking if the consumer has fallen a full queue
// behind. Returns false once ctx is done; a queued update is never dropped.
// Producer-side only.
func (it *Iterator) Push(ctx context.Context, u Update) bool {
	select {
	case it.updates <- u:
		return true
	case <-ctx.Done():
		return false
	}
}

// Finish records the terminal state and closes the sequence. err is the
// transport-level failure, if any; provider errors travel inside Result.
// Must be called exactly once, by the producer.
func (it *Iterator) Finish(res Result, err error) {
	it.result = res
	it.err = err
	close(it.updates)
}

// Next returns the next update in arrival order. It blocks until an update
// is queued, the sequence finishes, or ctx is done. ok is false once the
// backlog is drained after completion; the returned error is then the
// transport-level failure, if any.
func (it *Iterator) Next(ctx context.Context) (u Update, ok bool, err error) {
	select {
	case u, open := <-it.updates:
		if !open {
			return Update{}, false, it.err
		}
		return u, true, nil
	case <-ctx.Done():
		return Update{}, false, ctx.Err()
	}
}

// Result returns the terminal state. Valid only after Next has returned
// ok == false with a nil error.
func (it *Iterator) Result() Result {
	return it.result
}
