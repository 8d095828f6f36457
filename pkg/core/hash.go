package core

import (
	"fmt"
	"strings"
	"unicode"

	"github.com/zeebo/xxh3"
	"golang.org/x/text/cases"
)

// Normalize collapses every whitespace run to a single space, trims the ends,
// and case-folds the result.
func Normalize(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	space := false
	for _, r := range s {
		if unicode.IsSpace(r) {
			space = true
			continue
		}
		if space && b.Len() > 0 {
			b.WriteByte(' ')
		}
		space = false
		b.WriteRune(r)
	}
	return cases.Fold().String(b.String())
}

// ContentHash returns the hex xxh3 hash of the normalised text.
// Two bodies that differ only in whitespace or letter case hash equal.
func ContentHash(s string) string {
	return fmt.Sprintf("%016x", xxh3.HashString(Normalize(s)))
}

// StableID derives a deterministic identifier from its parts.
func StableID(parts ...string) string {
	h := xxh3.HashString128(strings.Join(parts, "\x00"))
	return fmt.Sprintf("%016x%016x", h.Hi, h.Lo)
}
