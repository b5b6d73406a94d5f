package textutil

import (
	"strings"
	"unicode"
)

type wordSet map[string]struct{}

func newWordSet(words ...string) wordSet {
	set := make(wordSet, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

var (
	searchStopWords = newWordSet("official", "video", "music", "ft", "feat", "featuring")

	titleNoiseWords = newWordSet(
		"official", "video", "videoclipe", "oficial", "lyrics", "letra",
		"hd", "hq", "full", "complete", "version", "versão", "clipe",
	)

	commonWords = newWordSet(
		"official", "video", "music", "audio", "lyrics", "hd", "hq",
		"full", "complete", "version", "original", "remix", "cover",
		"live", "performance", "acoustic", "instrumental", "videoclipe",
		"oficial", "letra", "clipe", "versão",
	)

	originalTermNoise = newWordSet(
		"youtube", "video", "official", "lyrics", "audio", "music",
		"full", "hd", "hq", "download", "free", "mp3", "mp4",
	)

	unsafeChars = strings.NewReplacer(
		"<", "", ">", "", ":", "", `"`, "", "/", "", `\`, "", "|", "", "?", "", "*", "",
	)
)

// CleanSearchTerm prepares a title or artist for a structured catalog query.
// Letters (accents included), digits, spaces and hyphens survive; the words
// official, video, music, ft, feat and featuring are dropped.
func CleanSearchTerm(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || unicode.IsSpace(r) || r == '-' {
			b.WriteRune(r)
		}
	}
	return removeWords(b.String(), searchStopWords)
}

// CleanTitleForSearch strips quotes, bracketed annotations and video
// boilerplate from a title before a broad search.
func CleanTitleForSearch(s string) string {
	s = strings.Trim(s, `"'`)
	s = dropEnclosed(s, '(', ')')
	s = dropEnclosed(s, '[', ']')
	return removeWords(s, titleNoiseWords)
}

// RemoveCommonWords drops words that rarely help a catalog query.
func RemoveCommonWords(s string) string {
	return removeWords(s, commonWords)
}

// CleanOriginalTerm prepares a raw user search term for the last-resort query.
func CleanOriginalTerm(s string) string {
	return removeWords(unsafeChars.Replace(s), originalTermNoise)
}

// CleanBasic removes control characters and filesystem-hostile symbols while
// keeping accents and punctuation common in artist names (., &, +).
func CleanBasic(s string) string {
	s = strings.Map(func(r rune) rune {
		if r < 0x20 || r == 0x7f {
			return -1
		}
		return r
	}, s)
	return CollapseSpaces(unsafeChars.Replace(s))
}

// Keywords returns up to the first four words longer than two bytes.
func Keywords(s string) string {
	return firstWords(s, 4, 2)
}

// FirstWords returns up to n leading words longer than one byte.
func FirstWords(s string, n int) string {
	return firstWords(s, n, 1)
}

func firstWords(s string, n, minLen int) string {
	if n <= 0 {
		return ""
	}
	out := make([]string, 0, n)
	for _, word := range strings.Fields(s) {
		if len(word) <= minLen {
			continue
		}
		out = append(out, word)
		if len(out) == n {
			break
		}
	}
	return strings.Join(out, " ")
}

// removeWords drops whole words found in set, case-insensitively. Word
// boundaries are Unicode aware so accented stop words match.
func removeWords(s string, set wordSet) string {
	var b strings.Builder
	b.Grow(len(s))
	word := make([]rune, 0, 16)
	flush := func() {
		if len(word) == 0 {
			return
		}
		w := string(word)
		if _, drop := set[strings.ToLower(w)]; !drop {
			b.WriteString(w)
		}
		word = word[:0]
	}
	for _, r := range s {
		if unicode.IsLetter(r) || unicode.IsNumber(r) || r == '_' {
			word = append(word, r)
			continue
		}
		flush()
		b.WriteRune(r)
	}
	flush()
	return CollapseSpaces(b.String())
}

func dropEnclosed(s string, open, close rune) string {
	var b strings.Builder
	b.Grow(len(s))
	rs := []rune(s)
	for i := 0; i < len(rs); i++ {
		if rs[i] == open {
			end := -1
			for j := i + 1; j < len(rs); j++ {
				if rs[j] == close {
					end = j
					break
				}
			}
			if end >= 0 {
				i = end
				continue
			}
		}
		b.WriteRune(rs[i])
	}
	return b.String()
}
