// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package sse decodes the chat server's Server-Sent-Events wire format.
//
// The pipeline has two stages. A LineBuffer turns arbitrary byte chunks
// (split at any point, including mid-line and mid multi-byte character)
// into complete text lines. DecodeLine then classifies each line: "data:"
// lines carry a JSON event with a "type" discriminator, blank lines are
// event terminators, everything else is ignored.
//
// Malformed JSON on a data line is never fatal. Lines that look like a
// stream_error event go through layered regex recovery (see recover.go) so
// a human-readable error string is salvaged and emitted as a synthetic
// stream_error event; any other malformed line is logged and skipped.
package sse
