// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package history persists finished chat transcripts to a local SQLite
// database so past conversations survive restarts and can be searched
// offline. The server remains the source of truth; this is a cache of
// reconciled exchanges, written after each completed stream.
package history
