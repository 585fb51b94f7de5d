// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"testing"
)

// =============================================================================
// MESSAGE TESTS
// =============================================================================

func TestNewOptimisticUserMessage(t *testing.T) {
	att := NewAttachment("a.txt", "text/plain", []byte("hi"))
	msg := NewOptimisticUserMessage("c1", "hello", []*Attachment{att})

	if msg.Role != RoleUser {
		t.Errorf("Role = %v, want user", msg.Role)
	}
	if !msg.IsOptimistic {
		t.Error("IsOptimistic = false")
	}
	if msg.IsStreaming {
		t.Error("IsStreaming = true for a user message")
	}
	if !msg.ID.IsClient() {
		t.Error("optimistic message did not get a client-assigned ID")
	}
	if len(msg.Attachments) != 1 {
		t.Errorf("Attachments = %d, want 1", len(msg.Attachments))
	}
}

func TestNewStreamingPlaceholder(t *testing.T) {
	msg := NewStreamingPlaceholder("c1", "model-a")

	if msg.Role != RoleAssistant {
		t.Errorf("Role = %v, want assistant", msg.Role)
	}
	if !msg.IsStreaming || !msg.IsOptimistic {
		t.Errorf("IsStreaming=%v IsOptimistic=%v, want true/true", msg.IsStreaming, msg.IsOptimistic)
	}
	if msg.Content != "" {
		t.Errorf("Content = %q, want empty", msg.Content)
	}
	if msg.ModelID != "model-a" {
		t.Errorf("ModelID = %q", msg.ModelID)
	}
}

func TestRole_DisplayName(t *testing.T) {
	tests := []struct {
		role Role
		want string
	}{
		{RoleUser, "You"},
		{RoleAssistant, "Assistant"},
		{RoleSystem, "System"},
	}
	for _, tc := range tests {
		if got := tc.role.DisplayName(); got != tc.want {
			t.Errorf("%v.DisplayName() = %q, want %q", tc.role, got, tc.want)
		}
	}
}

// =============================================================================
// ATTACHMENT TESTS
// =============================================================================

func TestAttachment_Lifecycle(t *testing.T) {
	att := NewAttachment("photo.png", "image/png", []byte{1, 2, 3})

	if att.CurrentStatus() != AttachmentPending {
		t.Errorf("status = %v, want pending", att.CurrentStatus())
	}
	if att.Preview == nil || att.Preview.URL() == "" {
		t.Fatal("new attachment has no live preview")
	}

	att.MarkUploading()
	if att.CurrentStatus() != AttachmentUploading {
		t.Errorf("status = %v, want uploading", att.CurrentStatus())
	}

	preview := att.Preview
	att.MarkUploaded("srv-att-1", "https://files.example/att-1")
	if att.CurrentStatus() != AttachmentUploaded {
		t.Errorf("status = %v, want uploaded", att.CurrentStatus())
	}
	if att.ID != "srv-att-1" {
		t.Errorf("ID = %q, server ID not adopted", att.ID)
	}
	if att.Data != nil {
		t.Error("raw bytes retained after upload")
	}
	if !preview.Released() {
		t.Error("preview not released once the durable URL exists")
	}
}

func TestAttachment_MarkErrorKeepsPreview(t *testing.T) {
	att := NewAttachment("doc.pdf", "application/pdf", []byte{7})
	att.MarkUploading()
	att.MarkError()

	if att.CurrentStatus() != AttachmentError {
		t.Errorf("status = %v, want error", att.CurrentStatus())
	}
	if att.Preview.Released() {
		t.Error("preview released on error; the user should still see the file")
	}
}

func TestPreviewHandle_ReleaseIdempotent(t *testing.T) {
	p := NewPreviewHandle("blob:x")
	p.Release()
	p.Release()
	if p.URL() != "" {
		t.Errorf("URL() = %q after release, want empty", p.URL())
	}
	if !p.Released() {
		t.Error("Released() = false after release")
	}
}
