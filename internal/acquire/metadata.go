package acquire

import (
	"path/filepath"
	"regexp"
	"strings"

	"spotafy/internal/textutil"
)

// UnknownArtist is the artist placeholder used when no pattern matches.
const UnknownArtist = "Artista Desconhecido"

// Extracted is the (artist, title) pair recovered from a name.
type Extracted struct {
	Artist string
	Title  string
	// Source names the pattern that matched, or "fallback".
	Source string
}

type namePattern struct {
	name       string
	re         *regexp.Regexp
	titleFirst bool
}

var namePatterns = []namePattern{
	{name: "dash", re: regexp.MustCompile(`(?i)^(.+?)\s*[-–—]\s*(.+?)(?:\s*\([^)]*\))?(?:\s*\[[^\]]*\])?(?:\s*\|.*)?(?:\s*official.*)?(?:\s*video.*)?$`)},
	{name: "pipe", re: regexp.MustCompile(`(?i)^(.+?)\s*[|]\s*(.+?)(?:\s*\([^)]*\))?(?:\s*\[[^\]]*\])?$`)},
	{name: "bullet", re: regexp.MustCompile(`(?i)^(.+?)\s*[•]\s*(.+?)(?:\s*\([^)]*\))?(?:\s*\[[^\]]*\])?$`)},
	{name: "quoted_by", re: regexp.MustCompile(`(?i)^["'](.+?)["'].*?by\s+(.+?)(?:\s*\([^)]*\))?$`), titleFirst: true},
	{name: "colon", re: regexp.MustCompile(`(?i)^(.+?)\s*[:]\s*(.+?)(?:\s*\([^)]*\))?(?:\s*\[[^\]]*\])?$`)},
	{name: "tilde", re: regexp.MustCompile(`(?i)^(.+?)\s*[~]\s*(.+?)(?:\s*\([^)]*\))?(?:\s*\[[^\]]*\])?$`)},
}

var audioExtensions = map[string]struct{}{
	".mp3": {}, ".m4a": {}, ".webm": {}, ".opus": {}, ".ogg": {}, ".wav": {}, ".flac": {},
}

// ExtractMetadata splits an upload-style name into artist and title. The
// first matching pattern wins; without a match the whole name becomes the
// title and the artist is UnknownArtist.
func ExtractMetadata(name string) Extracted {
	name = strings.TrimSpace(name)
	out := Extracted{Artist: UnknownArtist, Title: name, Source: "fallback"}
	for _, p := range namePatterns {
		m := p.re.FindStringSubmatch(name)
		if m == nil {
			continue
		}
		artist, title := m[1], m[2]
		if p.titleFirst {
			artist, title = m[2], m[1]
		}
		out = Extracted{Artist: strings.TrimSpace(artist), Title: strings.TrimSpace(title), Source: p.name}
		break
	}

	out.Artist = textutil.CleanBasic(out.Artist)
	out.Title = textutil.CleanBasic(out.Title)
	if out.Artist == "" {
		out.Artist = UnknownArtist
	}
	if out.Title == "" {
		out.Title = textutil.CleanBasic(name)
	}
	return out
}

// ExtractFromFile runs ExtractMetadata on a file's base name without its
// audio extension.
func ExtractFromFile(path string) Extracted {
	base := filepath.Base(path)
	if _, ok := audioExtensions[strings.ToLower(filepath.Ext(base))]; ok {
		base = strings.TrimSuffix(base, filepath.Ext(base))
	}
	return ExtractMetadata(base)
}
