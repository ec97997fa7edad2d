// Package jsonutil provides JSON helpers for CLI backends that render
// generic JSON-like trees into command-line arguments.
//
// Exported within internal/ so sibling backend packages can share it
// without exposing it to library consumers.
package jsonutil

import (
	"bytes"
	"encoding/json"
	"slices"
	"strings"
)

// Quote renders s as a JSON string literal. HTML characters are left
// unescaped so the output matches what codex writes itself.
func Quote(s string) string {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// Encoding a string cannot fail.
	_ = enc.Encode(s)
	return strings.TrimSuffix(buf.String(), "\n")
}

// SortedKeys returns the keys of m in ascending byte order.
func SortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// ContainsNull reports whether s contains a null byte.
func ContainsNull(s string) bool {
	return strings.ContainsRune(s, '\x00')
}
