// Package errfmt caps diagnostic text embedded in error messages.
package errfmt

import (
	"strings"
	"unicode/utf8"
)

// MaxLen caps text embedded in error strings to prevent unbounded propagation.
const MaxLen = 4096

// truncateUTF8 caps s at limit bytes, backtracking to a valid UTF-8 boundary.
func truncateUTF8(s string, limit int) string {
	if len(s) <= limit {
		return s
	}
	end := limit
	for end > 0 && !utf8.RuneStart(s[end]) {
		end--
	}
	return s[:end]
}

// Truncate trims trailing whitespace and caps s at MaxLen bytes with
// UTF-8-safe truncation.
func Truncate(s string) string {
	return truncateUTF8(strings.TrimRight(s, " \t\r\n"), MaxLen)
}
