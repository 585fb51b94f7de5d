// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"strings"
	"testing"
)

// =============================================================================
// MESSAGE ID TESTS
// =============================================================================

func TestNewClientID(t *testing.T) {
	id := NewClientID()

	if !id.IsClient() {
		t.Error("IsClient() = false for a client-assigned ID")
	}
	if id.IsZero() {
		t.Error("IsZero() = true for a fresh ID")
	}
	if !strings.HasPrefix(id.String(), "temp_") {
		t.Errorf("String() = %q, want temp_ prefix", id.String())
	}
}

func TestNewClientID_Unique(t *testing.T) {
	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		s := NewClientID().String()
		if seen[s] {
			t.Fatalf("duplicate client ID %q", s)
		}
		seen[s] = true
	}
}

func TestServerID(t *testing.T) {
	id := ServerID("msg-42")

	if id.IsClient() {
		t.Error("IsClient() = true for a server-assigned ID")
	}
	if id.String() != "msg-42" {
		t.Errorf("String() = %q, want 'msg-42'", id.String())
	}
}

func TestMessageID_Equal(t *testing.T) {
	client := NewClientID()
	tests := []struct {
		name string
		a, b MessageID
		want bool
	}{
		{"same server value", ServerID("x"), ServerID("x"), true},
		{"different server values", ServerID("x"), ServerID("y"), false},
		{"same client ID", client, client, true},
		// A client ID and server ID never compare equal even with the
		// same underlying string.
		{"kind mismatch", ServerID(client.String()), client, false},
		{"zero values", MessageID{}, MessageID{}, true},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if got := tc.a.Equal(tc.b); got != tc.want {
				t.Errorf("Equal = %v, want %v", got, tc.want)
			}
		})
	}
}

func TestMessageID_Zero(t *testing.T) {
	var id MessageID
	if !id.IsZero() {
		t.Error("IsZero() = false for the zero value")
	}
}
