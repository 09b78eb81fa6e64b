// Package security sanitises user-supplied identifiers before they reach
// the filesystem.
package security

import "strings"

const maxFilenamePart = 64

func safeRune(r rune) bool {
	switch {
	case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9':
		return true
	case r == '-', r == '.':
		return true
	}
	return false
}

// SanitizeFilename turns an entity id into a file name fragment. Runs of
// unsafe characters (including path separators and underscores, which
// join fragments) become a single '-'. The result is never empty and never
// starts with a dot.
func SanitizeFilename(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range s {
		if b.Len() >= maxFilenamePart {
			break
		}
		if safeRune(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.Trim(b.String(), ".-")
	if out == "" {
		return "unknown"
	}
	return out
}
