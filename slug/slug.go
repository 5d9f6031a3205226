// Package slug derives URL-safe identifiers from display names.
package slug

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// separators matches runs of anything that isn't a lowercase letter or digit.
var separators = regexp.MustCompile(`[^a-z0-9]+`)

// deaccent decomposes accented characters and strips the combining marks,
// so "Café" slugifies to "cafe" rather than losing the letter.
var deaccent = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

const (
	suffixAlphabet = "abcdefghijklmnopqrstuvwxyz0123456789"
	suffixLength   = 5
)

// Make converts a display name into a URL-safe slug.
// Example: "USB-C Cable (2m)" → "usb-c-cable-2m"
func Make(name string) string {
	s, _, err := transform.String(deaccent, name)
	if err != nil {
		s = name
	}
	s = strings.ToLower(s)
	s = separators.ReplaceAllString(s, "-")
	return strings.Trim(s, "-")
}

// MakeUnique derives a slug from name and appends a random 5-character
// suffix. Callers re-run this on every rename, so two products with the
// same name (or the same product renamed twice) get distinct slugs without
// a uniqueness check against the store.
func MakeUnique(name string) string {
	base := Make(name)
	if base == "" {
		return randomSuffix()
	}
	return base + "-" + randomSuffix()
}

func randomSuffix() string {
	b := make([]byte, suffixLength)
	for i := range b {
		b[i] = suffixAlphabet[rand.IntN(len(suffixAlphabet))]
	}
	return string(b)
}
