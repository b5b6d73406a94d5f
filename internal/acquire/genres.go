package acquire

import "strings"

var genreKeywords = []struct {
	genre    string
	keywords []string
}{
	{"funk", []string{"funk", "mc ", "baile"}},
	{"trap", []string{"trap", "drill"}},
	{"rock", []string{"rock", "metal"}},
	{"pop", []string{"pop", "hit"}},
	{"rap", []string{"rap", "hip hop", "freestyle"}},
	{"eletrônica", []string{"remix", "electronic", "edm", "house"}},
	{"sertanejo", []string{"sertanejo", "modão"}},
	{"forró", []string{"forró", "xote"}},
	{"reggae", []string{"reggae", "rasta"}},
}

// DetectGenres guesses genres from substrings of title. It returns nil when
// no keyword is present.
func DetectGenres(title string) []string {
	lower := strings.ToLower(title)
	var genres []string
	for _, entry := range genreKeywords {
		for _, keyword := range entry.keywords {
			if strings.Contains(lower, keyword) {
				genres = append(genres, entry.genre)
				break
			}
		}
	}
	return genres
}
