// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package store holds the authoritative in-memory table of chat messages
// and their lifecycle flags, consumed by the presentation layer.
//
// A SessionStore is constructor-injected into whatever composes the
// application; there is no ambient global, and independent instances are
// freely constructible for tests. The store enforces the one invariant the
// rest of the engine leans on: at most one message per chat is streaming at
// any time.
package store
