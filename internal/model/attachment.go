// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package model

import (
	"sync"
)

// =============================================================================
// ATTACHMENT STATUS
// =============================================================================

// AttachmentStatus tracks an attachment through its upload lifecycle.
type AttachmentStatus string

const (
	AttachmentPending   AttachmentStatus = "pending"
	AttachmentUploading AttachmentStatus = "uploading"
	AttachmentUploaded  AttachmentStatus = "uploaded"
	AttachmentError     AttachmentStatus = "error"
)

// =============================================================================
// ATTACHMENT TYPE
// =============================================================================

// Attachment represents a file attached to a message.
//
// The record is created with a client-assigned ID and status pending when
// the file is selected locally, moves to uploading when the optimistic
// message is shown, and settles to uploaded (with the server-assigned ID
// and durable URL) or error. The same Attachment value is mutated across
// all transitions; it is never replaced, so UI components keyed on it keep
// their identity.
//
// Only the session controller's upload worker mutates an attachment after
// creation. The mutex guards the fields read concurrently by the
// presentation layer.
type Attachment struct {
	mu sync.Mutex

	// ID is client-assigned at creation and overwritten with the
	// server-assigned ID once the upload settles.
	ID       string
	Filename string
	FileType string
	FileSize int64

	Status AttachmentStatus

	// Data holds the raw bytes to upload. Cleared once uploaded.
	Data []byte

	// Preview is the local preview resource, released once the durable
	// URL is available (or on session error / store teardown).
	Preview *PreviewHandle

	// URL is the durable server URL, set once uploaded.
	URL string
}

// NewAttachment creates a pending attachment for a locally selected file.
func NewAttachment(filename, fileType string, data []byte) *Attachment {
	att := &Attachment{
		ID:       NewAttachmentID(),
		Filename: filename,
		FileType: fileType,
		FileSize: int64(len(data)),
		Status:   AttachmentPending,
		Data:     data,
	}
	att.Preview = NewPreviewHandle("blob:" + att.ID)
	return att
}

// MarkUploading transitions the attachment to uploading.
func (a *Attachment) MarkUploading() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Status = AttachmentUploading
}

// MarkUploaded records the settled upload in place: server identity, durable
// URL, released preview, dropped byte payload.
func (a *Attachment) MarkUploaded(serverID, url string) {
	a.mu.Lock()
	a.ID = serverID
	a.URL = url
	a.Status = AttachmentUploaded
	a.Data = nil
	preview := a.Preview
	a.mu.Unlock()

	if preview != nil {
		preview.Release()
	}
}

// MarkError records a failed upload. The preview is retained so the user
// still sees the file they selected.
func (a *Attachment) MarkError() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.Status = AttachmentError
}

// CurrentID returns the attachment's current identifier: client-assigned
// until the upload settles, server-assigned after.
func (a *Attachment) CurrentID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ID
}

// CurrentStatus returns the attachment status.
func (a *Attachment) CurrentStatus() AttachmentStatus {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.Status
}

// ReleasePreview releases the local preview resource if still held.
func (a *Attachment) ReleasePreview() {
	a.mu.Lock()
	preview := a.Preview
	a.mu.Unlock()
	if preview != nil {
		preview.Release()
	}
}

// =============================================================================
// PREVIEW HANDLE
// =============================================================================

// PreviewHandle is a local preview resource tied to an attachment, e.g. an
// object URL for an image thumbnail. Failing to release a handle is a
// resource leak, so releases happen on upload success, session error, and
// store teardown.
type PreviewHandle struct {
	mu       sync.Mutex
	url      string
	released bool
}

// NewPreviewHandle creates a live preview handle.
func NewPreviewHandle(url string) *PreviewHandle {
	return &PreviewHandle{url: url}
}

// URL returns the preview URL, or empty once released.
func (p *PreviewHandle) URL() string {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.released {
		return ""
	}
	return p.url
}

// Release frees the preview resource. Safe to call more than once.
func (p *PreviewHandle) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.released = true
	p.url = ""
}

// Released reports whether the handle has been released.
func (p *PreviewHandle) Released() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.released
}
