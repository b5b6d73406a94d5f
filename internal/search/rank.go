package search

import (
	"cmp"
	"slices"
	"strings"

	"spotafy/internal/library"
	"spotafy/internal/textutil"
)

// Kind says how a result set was chosen.
type Kind string

const (
	KindExact   Kind = "exact"
	KindPartial Kind = "partial"
	KindFuzzy   Kind = "fuzzy"
)

// Match is one ranked song. Scores are percentages.
type Match struct {
	SongID        int64   `json:"song_id"`
	Token         string  `json:"token"`
	Title         string  `json:"title"`
	Artist        string  `json:"artist"`
	Probability   float64 `json:"probability"`
	TitleScore    float64 `json:"title_score"`
	ArtistScore   float64 `json:"artist_score"`
	CombinedScore float64 `json:"combined_score"`
}

// Score computes the match scores of a song against phrase.
func Score(song library.Song, phrase string) Match {
	target := lower(phrase)
	title := lower(song.Title)
	artist := lower(song.ArtistName)
	titleScore := textutil.CharacterSimilarity(title, target) * 100
	artistScore := textutil.CharacterSimilarity(artist, target) * 100
	return Match{
		SongID:        song.ID,
		Token:         song.Token,
		Title:         song.Title,
		Artist:        song.ArtistName,
		Probability:   textutil.CharacterSimilarity(title+" "+artist, target) * 100,
		TitleScore:    titleScore,
		ArtistScore:   artistScore,
		CombinedScore: (titleScore + artistScore) / 2,
	}
}

func lower(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// classification splits songs into exact, partial and fuzzy matches.
type classification struct {
	exact   []Match
	partial []Match
	fuzzy   []Match
}

// classify compares normalized forms. Exact means the phrase names both the
// title and the artist, in either order; partial means it names one of them.
func classify(phrase string, songs []library.Song) classification {
	target := textutil.NormalizeForComparison(phrase)
	var out classification
	for _, song := range songs {
		m := Score(song, phrase)
		title := textutil.NormalizeForComparison(song.Title)
		artist := textutil.NormalizeForComparison(song.ArtistName)
		switch {
		case target == title+" "+artist || target == artist+" "+title:
			out.exact = append(out.exact, m)
		case target == title || target == artist:
			out.partial = append(out.partial, m)
		default:
			out.fuzzy = append(out.fuzzy, m)
		}
	}
	return out
}

func byCombined(a, b Match) int { return cmp.Compare(b.CombinedScore, a.CombinedScore) }

func byProbability(a, b Match) int { return cmp.Compare(b.Probability, a.Probability) }

// rankPartial returns partial matches by combined score, backfilled with the
// best fuzzy matches up to limit.
func rankPartial(partial, fuzzy []Match, limit int) []Match {
	partial = slices.Clone(partial)
	slices.SortStableFunc(partial, byCombined)
	out := head(partial, limit)
	if len(out) < limit && len(fuzzy) > 0 {
		fuzzy = slices.Clone(fuzzy)
		slices.SortStableFunc(fuzzy, byCombined)
		out = append(out, head(fuzzy, limit-len(out))...)
	}
	return out
}

// takePerfect removes and returns the first fuzzy match at or above
// threshold, in input order.
func takePerfect(fuzzy []Match, threshold float64) (*Match, []Match) {
	for i, m := range fuzzy {
		if m.Probability >= threshold {
			rest := slices.Concat(fuzzy[:i], fuzzy[i+1:])
			return &m, rest
		}
	}
	return nil, fuzzy
}

func hasStrongArtist(matches []Match, threshold float64) bool {
	return slices.ContainsFunc(matches, func(m Match) bool { return m.ArtistScore >= threshold })
}

// rankFuzzy orders fuzzy matches by probability, keeps those at or above
// minProbability when any qualify and caps them at limit. A perfect match is
// prepended on top of that page, so up to limit+1 results come back.
func rankFuzzy(perfect *Match, rest []Match, minProbability float64, limit int) []Match {
	rest = slices.Clone(rest)
	slices.SortStableFunc(rest, byProbability)
	above := slices.DeleteFunc(slices.Clone(rest), func(m Match) bool { return m.Probability < minProbability })
	top := head(above, limit)
	if len(top) == 0 {
		top = head(rest, limit)
	}
	var out []Match
	if perfect != nil {
		out = append(out, *perfect)
	}
	return append(out, top...)
}

func head(matches []Match, n int) []Match {
	if n < 0 {
		n = 0
	}
	if len(matches) > n {
		matches = matches[:n]
	}
	return slices.Clone(matches)
}
