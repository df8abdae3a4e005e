// Package redact sanitizes strings before they are persisted onto task
// and execution records. Error messages stored by the engine surface to
// callers through the status endpoints, so anything that might carry
// credentials, connection strings, or API keys is scrubbed first.
package redact

import "regexp"

// Placeholder inserted where sensitive content was found
const Placeholder = "[REDACTED]"

// Precompiled patterns for content that must never reach a stored
// error message.
var (
	// Database connection strings with embedded credentials
	connStringRegex = regexp.MustCompile(`(?i)(postgres|postgresql|mysql|mongodb)://[^@\s]+@`)

	// Password-like assignments
	passwordRegex = regexp.MustCompile(`(?i)(password|passwd|pwd)([=:\s]['"]?)[^'"&\s]{3,}`)

	// API keys, tokens, and secrets
	apiKeyRegex = regexp.MustCompile(`(?i)(api[_-]?key|token|secret|bearer)(['"\s:=]+)[A-Za-z0-9_\-.~+/]{8,}`)
)

var patterns = []*regexp.Regexp{
	connStringRegex,
	passwordRegex,
	apiKeyRegex,
}

// String returns s with any sensitive content replaced by the
// redaction placeholder.
func String(s string) string {
	for _, pattern := range patterns {
		s = pattern.ReplaceAllString(s, Placeholder)
	}
	return s
}

// Error returns the sanitized message of err, or an empty string for a
// nil error.
func Error(err error) string {
	if err == nil {
		return ""
	}
	return String(err.Error())
}
