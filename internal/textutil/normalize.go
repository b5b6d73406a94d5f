package textutil

import (
	"strings"
	"time"
	"unicode"

	"github.com/gosimple/unidecode"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownDate is returned by NormalizeDate for empty or unparseable input.
const UnknownDate = "unknown"

// Fold strips diacritics and transliterates the remaining non-ASCII runes.
func Fold(s string) string {
	if s == "" {
		return ""
	}
	// Chained transformers keep state, so build one per call.
	stripper := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	stripped, _, err := transform.String(stripper, s)
	if err != nil {
		stripped = s
	}
	return unidecode.Unidecode(stripped)
}

// NormalizeForComparison lowercases, folds to ASCII, keeps only letters,
// digits, spaces and hyphens, and collapses whitespace.
func NormalizeForComparison(s string) string {
	folded := strings.ToLower(Fold(s))
	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '-':
			b.WriteRune(r)
		case unicode.IsSpace(r):
			b.WriteByte(' ')
		}
	}
	return CollapseSpaces(b.String())
}

// NormalizeForIdentity produces the compact form used in identity tokens:
// lowercase [a-z0-9_] with repeated underscores collapsed and trimmed.
func NormalizeForIdentity(s string) string {
	folded := strings.ToLower(Fold(s))
	var b strings.Builder
	b.Grow(len(folded))
	lastUnderscore := false
	for _, r := range folded {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastUnderscore = false
		case r == '_':
			if !lastUnderscore {
				b.WriteByte('_')
			}
			lastUnderscore = true
		}
	}
	return strings.Trim(b.String(), "_")
}

var dateLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
	"2006/01/02",
	"02/01/2006",
	"2006-01",
	"2006",
}

// NormalizeDate parses a loosely formatted date into YYYY-MM-DD. Year-only and
// year-month values resolve to the first day of the period. Anything else
// yields UnknownDate.
func NormalizeDate(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return UnknownDate
	}
	for _, layout := range dateLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			return parsed.Format("2006-01-02")
		}
	}
	return UnknownDate
}

// CollapseSpaces replaces whitespace runs with a single space and trims the ends.
func CollapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
