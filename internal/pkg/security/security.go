// Package security provides input validation, sanitization, and
// sensitive data masking for the Snap Search server.
package security

import (
	"net/http"
	"strings"
	"unicode"
)

const defaultLogCap = 200

// logEscapes maps control characters that stay visible in logs to their
// escaped form. Every other control character is dropped.
var logEscapes = map[rune]string{
	'\n': `\n`,
	'\r': `\r`,
	'\t': `\t`,
}

// SanitizeForLog prepares a string for logging, capped at 200 characters.
func SanitizeForLog(s string) string {
	return SanitizeForLogWithLength(s, defaultLogCap)
}

// SanitizeForLogWithLength escapes newlines and tabs, strips other
// control characters, and truncates to maxLen with an ellipsis.
func SanitizeForLogWithLength(s string, maxLen int) string {
	if s == "" {
		return ""
	}

	var b strings.Builder
	if len(s) <= maxLen {
		b.Grow(len(s))
	} else {
		b.Grow(maxLen + 3)
	}

	written := 0
	for _, r := range s {
		if written >= maxLen {
			b.WriteString("...")
			break
		}

		if esc, ok := logEscapes[r]; ok {
			b.WriteString(esc)
			written += len(esc)
			continue
		}
		if unicode.IsControl(r) {
			continue
		}
		b.WriteRune(r)
		written++
	}

	return b.String()
}

// SanitizeQuery strips control characters from a search phrase, keeping
// newlines and tabs, then trims surrounding whitespace.
func SanitizeQuery(query string) string {
	if query == "" {
		return ""
	}

	cleaned := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\t' {
			return r
		}
		if unicode.IsControl(r) {
			return -1
		}
		return r
	}, query)

	return strings.TrimSpace(cleaned)
}

// maskedHeaders always get redacted, whatever their value.
var maskedHeaders = map[string]bool{
	"authorization":       true,
	"x-api-key":           true,
	"api-key":             true,
	"x-auth-token":        true,
	"cookie":              true,
	"set-cookie":          true,
	"x-csrf-token":        true,
	"x-xsrf-token":        true,
	"proxy-authorization": true,
}

// credentialHints flag any key whose name suggests a secret.
var credentialHints = []string{
	"password",
	"secret",
	"token",
	"key",
	"credential",
	"auth",
}

// MaskSensitiveHeaders returns a copy of headers safe for logging, with
// credential-bearing values replaced.
func MaskSensitiveHeaders(headers http.Header) http.Header {
	if headers == nil {
		return nil
	}

	masked := make(http.Header, len(headers))
	for key, values := range headers {
		lower := strings.ToLower(key)
		if maskedHeaders[lower] || isSensitiveKey(lower) {
			masked[key] = []string{"[REDACTED]"}
			continue
		}
		masked[key] = append([]string(nil), values...)
	}
	return masked
}

// MaskSensitiveMap returns a copy of m safe for logging.
func MaskSensitiveMap(m map[string]string) map[string]string {
	if m == nil {
		return nil
	}

	masked := make(map[string]string, len(m))
	for key, value := range m {
		if isSensitiveKey(strings.ToLower(key)) {
			masked[key] = "[REDACTED]"
			continue
		}
		masked[key] = value
	}
	return masked
}

// isSensitiveKey expects its argument already lowercased.
func isSensitiveKey(lower string) bool {
	for _, hint := range credentialHints {
		if strings.Contains(lower, hint) {
			return true
		}
	}
	return false
}
