// Package sanitize normalizes user-supplied file names into storage-safe keys.
package sanitize

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var stripMarks = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Fold lowercases text and strips diacritics, giving a form suitable for
// accent-insensitive substring matching.
func Fold(s string) string {
	if plain, _, err := transform.String(stripMarks, s); err == nil {
		s = plain
	}
	return strings.ToLower(s)
}

// FileName produces a storage-safe name: Unicode-normalized with diacritics
// stripped, every run of characters outside [A-Za-z0-9.] collapsed into a
// single underscore, and underscores trimmed from the edges. An input that
// sanitizes to nothing yields "arquivo".
func FileName(name string) string {
	if plain, _, err := transform.String(stripMarks, name); err == nil {
		name = plain
	}

	var b strings.Builder
	b.Grow(len(name))
	lastUnderscore := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.':
			b.WriteRune(r)
			lastUnderscore = false
		default:
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}

	out := strings.Trim(b.String(), "_")
	if strings.Trim(out, "_.") == "" {
		return "arquivo"
	}
	return out
}
