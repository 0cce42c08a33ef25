// Package textnorm folds report and query text into a comparable ASCII form.
package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

var (
	// Combining Diacritical Marks block.
	combiningMarks = &unicode.RangeTable{R16: []unicode.Range16{{Lo: 0x0300, Hi: 0x036f, Stride: 1}}}

	regionalLetters = strings.NewReplacer("đ", "dj", "š", "s", "č", "c", "ć", "c", "ž", "z")
	nonAlnumRun     = regexp.MustCompile(`[^a-z0-9]+`)
)

// Normalize lowercases s, folds regional diacritics to ASCII, strips the
// remaining combining marks and collapses every non-alphanumeric run to a
// single space. It is total and idempotent.
func Normalize(s string) string {
	s = regionalLetters.Replace(strings.ToLower(s))
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(combiningMarks)))
	if stripped, _, err := transform.String(t, s); err == nil {
		s = stripped
	}
	return strings.TrimSpace(nonAlnumRun.ReplaceAllString(s, " "))
}

// Words splits already-normalized text on spaces, dropping empties.
func Words(normalized string) []string {
	return strings.Fields(normalized)
}
