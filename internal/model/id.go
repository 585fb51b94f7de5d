// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"github.com/google/uuid"
)

// =============================================================================
// MESSAGE IDENTIFIERS
// =============================================================================

// IDKind distinguishes who assigned an identifier.
type IDKind int

const (
	// KindServer marks an identifier assigned by the server. Server
	// identifiers are durable.
	KindServer IDKind = iota

	// KindClient marks an identifier generated locally for an optimistic
	// record. Client identifiers must never be treated as durable; they
	// are always superseded or removed during reconciliation.
	KindClient
)

// MessageID identifies a message. It is a tagged value rather than a bare
// string so reconciliation cannot accidentally compare a client-assigned
// identifier against a server-assigned one.
type MessageID struct {
	value string
	kind  IDKind
}

// NewClientID generates a fresh client-assigned identifier.
func NewClientID() MessageID {
	return MessageID{value: "temp_" + uuid.NewString(), kind: KindClient}
}

// ServerID wraps an identifier received from the server.
func ServerID(value string) MessageID {
	return MessageID{value: value, kind: KindServer}
}

// String returns the raw identifier value.
func (id MessageID) String() string {
	return id.value
}

// Kind returns who assigned the identifier.
func (id MessageID) Kind() IDKind {
	return id.kind
}

// IsClient reports whether the identifier was assigned locally.
func (id MessageID) IsClient() bool {
	return id.kind == KindClient
}

// IsZero reports whether the identifier is unset.
func (id MessageID) IsZero() bool {
	return id.value == ""
}

// Equal reports whether two identifiers name the same message. Identifiers
// of different kinds are never equal, even if the raw values collide.
func (id MessageID) Equal(other MessageID) bool {
	return id.kind == other.kind && id.value == other.value
}

// NewAttachmentID generates a client-assigned attachment identifier.
func NewAttachmentID() string {
	return "att_" + uuid.NewString()
}
