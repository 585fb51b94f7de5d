// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"bytes"
	"strings"
)

// =============================================================================
// LINE BUFFER
// =============================================================================

// LineBuffer assembles newline-delimited frames from a byte stream whose
// read boundaries are arbitrary. The fragment after the last newline is
// retained across calls, as raw bytes: conversion to string happens only on
// complete lines, so a multi-byte character split across two reads is never
// corrupted.
type LineBuffer struct {
	rest []byte
}

// Feed appends a chunk and returns every complete line it closes, in
// arrival order. Trailing carriage returns are stripped. Lines are never
// lost or duplicated across calls.
func (b *LineBuffer) Feed(p []byte) []string {
	if len(p) == 0 {
		return nil
	}
	b.rest = append(b.rest, p...)

	var lines []string
	for {
		idx := bytes.IndexByte(b.rest, '\n')
		if idx < 0 {
			break
		}
		line := strings.TrimRight(string(b.rest[:idx]), "\r")
		b.rest = b.rest[idx+1:]
		lines = append(lines, line)
	}

	// Reclaim the backing array once fully drained so a long stream does
	// not pin every chunk it ever saw.
	if len(b.rest) == 0 {
		b.rest = nil
	}
	return lines
}

// Flush returns the unterminated final fragment, if any. Called once at end
// of stream: some servers omit the trailing newline on their last frame.
func (b *LineBuffer) Flush() (string, bool) {
	if len(b.rest) == 0 {
		return "", false
	}
	line := strings.TrimRight(string(b.rest), "\r")
	b.rest = nil
	return line, true
}

// Pending returns the number of buffered bytes awaiting a newline.
func (b *LineBuffer) Pending() int {
	return len(b.rest)
}
