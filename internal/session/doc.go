// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session orchestrates send, retry, and cancel operations
// end-to-end: optimistic message creation, background attachment uploads,
// throttled publication of streamed content into the message store,
// cancellation with server-side partial save, and reconciliation with
// authoritative server records once an exchange concludes.
//
// One Controller drives at most one stream session per chat at a time.
// A session is ephemeral: it exists for the duration of a single send or
// retry and always leaves the store in a terminal state, with no streaming
// or optimistic records, whatever way the stream ended.
package session
