// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package chat provides the chat view component for the TUI.
//
// The view is a thin presentation layer over the session engine: all
// message state lives in the store, the session controller owns the
// streaming lifecycle, and this package renders store snapshots. While a
// response streams, a render tick re-reads the store at a fixed cadence
// instead of re-rendering per chunk.
package chat
