package search

import (
	"strings"

	"github.com/gosimple/slug"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"spotafy/internal/textutil"
)

// PhraseFromSlug turns "rick-astley-never-gonna" into "Rick Astley Never Gonna".
// Plain phrases pass through with their words title-cased.
func PhraseFromSlug(input string) string {
	phrase := textutil.CollapseSpaces(strings.ReplaceAll(input, "-", " "))
	return cases.Title(language.Und).String(phrase)
}

// Slug returns the URL-safe slug for phrase.
func Slug(phrase string) string {
	return slug.Make(phrase)
}

// Words splits phrase on spaces for the per-word fallback lookup.
func Words(phrase string) []string {
	return strings.Fields(phrase)
}
