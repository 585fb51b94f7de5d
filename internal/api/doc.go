// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package api provides the HTTP client for the rigchat server.
//
// One method, OpenStream, speaks the SSE-over-chunked-HTTP streaming
// protocol and returns a pull iterator over content updates; RetryStream
// does the same for retried messages, transparently handling servers that
// answer with plain JSON for non-text results. The remaining methods are
// plain request/response REST collaborators: create chat, send message
// (the non-streaming fallback), cancel stream, fetch chat, generate title,
// upload attachment.
//
// The consumer-facing iterator contract is identical regardless of which
// backing transport produced it: when a stream cannot be established,
// SendFallback resynthesizes a stream from the full response text.
package api
