// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package sse

import (
	"regexp"
	"strings"
)

// =============================================================================
// ERROR TEXT RECOVERY
// =============================================================================

// GenericStreamError is the fallback shown when no error text can be
// salvaged from a malformed stream_error line.
const GenericStreamError = "The model provider returned an error. Please try again."

// errorExtractors are tried in order; the first non-empty capture wins.
// This is heuristic by design: a provider that truncates its own error JSON
// mid-string still yields something readable, and occasionally falling back
// to GenericStreamError is acceptable.
var errorExtractors = []*regexp.Regexp{
	// Standard quoted string: "error":"..."
	regexp.MustCompile(`"error"\s*:\s*"((?:[^"\\]|\\.)*)"`),

	// Truncated/unterminated string: the line ended before the closing
	// quote, take everything after the opening quote. The escape-aware run
	// anchored to end-of-line keeps this from firing on terminated strings.
	regexp.MustCompile(`"error"\s*:\s*"((?:[^"\\]|\\.)*)$`),

	// Generic HTTP-status + message, e.g. `429: rate limited`.
	regexp.MustCompile(`\b([1-5]\d{2}\s*[:\s].+)$`),
}

// ExtractErrorText salvages a human-readable error string from a malformed
// stream_error line. It never returns an empty string.
func ExtractErrorText(raw string) string {
	for _, re := range errorExtractors {
		m := re.FindStringSubmatch(raw)
		if len(m) < 2 {
			continue
		}
		text := strings.TrimSpace(unescapeJSON(m[1]))
		if text != "" {
			return text
		}
	}
	return GenericStreamError
}

// unescapeJSON resolves the standard JSON escape sequences that survive in
// regex-extracted text. Unrecognized escapes are left untouched.
func unescapeJSON(s string) string {
	if !strings.ContainsRune(s, '\\') {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' || i+1 >= len(s) {
			b.WriteByte(c)
			continue
		}
		switch s[i+1] {
		case '"':
			b.WriteByte('"')
		case '\\':
			b.WriteByte('\\')
		case 'n':
			b.WriteByte('\n')
		case 'r':
			b.WriteByte('\r')
		case 't':
			b.WriteByte('\t')
		default:
			b.WriteByte(c)
			continue
		}
		i++
	}
	return b.String()
}
