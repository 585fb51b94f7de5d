// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package model contains the data structures for chats, messages, and
// attachments.
//
// The package distinguishes client-assigned identifiers (generated locally
// for optimistic records before the server has committed anything) from
// server-assigned identifiers. The two kinds are never comparable by
// accident: MessageID is a small sum type, not a bare string.
//
// Messages carry lifecycle flags used by the streaming session engine:
//
//   - IsStreaming: content is still arriving from the server
//   - IsOptimistic: the record was created locally and will be superseded
//     by an authoritative server record (or removed) during reconciliation
//
// Attachments have their own lifecycle (pending -> uploading ->
// uploaded/error). Attachment records are mutated in place across
// transitions so that UI components bound to them keep their identity.
package model
