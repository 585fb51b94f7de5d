// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream adapts decoded protocol events into a pull-driven sequence
// of content updates.
//
// The Accumulator interprets accumulation semantics: ordinary chunks append
// to the running content, chunks carrying the REPLACE: marker overwrite it
// wholly, and terminal events (stream_end, stream_cancelled, stream_error)
// mark completion. The Iterator is the seam between the push-driven
// transport read loop and the pull-driven consumer: a single bounded queue
// with one delivery path, so updates are never reordered or dropped and
// there is no second timer fighting the consumer's throttle.
package stream
