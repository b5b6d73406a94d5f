package reconcile

import (
	"log/slog"
	"strings"

	"spotafy/internal/catalog"
	"spotafy/internal/logging"
	"spotafy/internal/textutil"
)

// MatchCandidate is a scored catalog track.
type MatchCandidate struct {
	Track       catalog.Track
	TitleScore  float64
	ArtistScore float64
	Score       float64
}

type scoreFunc func(catalog.Track) MatchCandidate

// selectBest returns the highest scoring track, provided it reaches threshold.
// Ties keep the earlier track.
func selectBest(logger *slog.Logger, strategy Strategy, query string, tracks []catalog.Track, score scoreFunc, threshold float64) *MatchCandidate {
	if len(tracks) == 0 {
		return nil
	}
	var best *MatchCandidate
	for idx, track := range tracks {
		cand := score(track)
		logger.Debug("candidate scored",
			logging.String("strategy", string(strategy)),
			logging.Int("result_index", idx),
			logging.String("artist", track.PrimaryArtist().Name),
			logging.String("title", track.Name),
			logging.Float64("title_score", cand.TitleScore),
			logging.Float64("artist_score", cand.ArtistScore),
			logging.Float64("score", cand.Score),
		)
		if best == nil || cand.Score > best.Score {
			c := cand
			best = &c
		}
	}
	if best == nil || best.Score < threshold {
		var bestScore float64
		if best != nil {
			bestScore = best.Score
		}
		logger.Debug("strategy rejected best candidate",
			append(logging.Args(logging.DecisionAttrs("match_acceptance", "rejected", "below threshold")...),
				logging.String("strategy", string(strategy)),
				logging.String("query", query),
				logging.Float64("best_score", bestScore),
				logging.Float64("threshold", threshold),
			)...,
		)
		return nil
	}
	logger.Info("strategy accepted candidate",
		append(logging.Args(logging.DecisionAttrs("match_acceptance", "accepted", "score at or above threshold")...),
			logging.String("strategy", string(strategy)),
			logging.String("query", query),
			logging.String("artist", best.Track.PrimaryArtist().Name),
			logging.String("title", best.Track.Name),
			logging.Float64("score", best.Score),
			logging.Float64("threshold", threshold),
		)...,
	)
	return best
}

func structuredScorer(q Query) scoreFunc {
	wantTitle := strings.ToLower(q.Title)
	wantArtist := strings.ToLower(q.Artist)
	return func(track catalog.Track) MatchCandidate {
		title := textutil.EditSimilarity(strings.ToLower(track.Name), wantTitle)
		artist := textutil.EditSimilarity(strings.ToLower(track.PrimaryArtist().Name), wantArtist)
		return MatchCandidate{
			Track:       track,
			TitleScore:  title,
			ArtistScore: artist,
			Score:       textutil.Composite(title, artist, textutil.KnownPairWeights),
		}
	}
}

// bestMetric is the max of character, word and containment similarity.
func bestMetric(a, b string) float64 {
	return textutil.BestOf(
		textutil.CharacterSimilarity(a, b),
		textutil.WordSimilarity(a, b),
		textutil.Containment(a, b),
	)
}

func alternativeScorer(q Query) scoreFunc {
	wantTitle := textutil.NormalizeForComparison(q.Title)
	wantCombined := textutil.NormalizeForComparison(q.Artist + " " + q.Title)
	return func(track catalog.Track) MatchCandidate {
		artistName := track.PrimaryArtist().Name
		title := bestMetric(textutil.NormalizeForComparison(track.Name), wantTitle)
		combined := bestMetric(textutil.NormalizeForComparison(artistName+" "+track.Name), wantCombined)
		artist := textutil.CharacterSimilarity(
			textutil.NormalizeForComparison(artistName),
			textutil.NormalizeForComparison(q.Artist),
		)
		return MatchCandidate{
			Track:       track,
			TitleScore:  title,
			ArtistScore: artist,
			Score:       max(title, combined),
		}
	}
}

func broadScorer(title string) scoreFunc {
	target := strings.ToLower(textutil.CleanTitleForSearch(title))
	return func(track catalog.Track) MatchCandidate {
		trackTitle := strings.ToLower(track.Name)
		combined := strings.ToLower(track.PrimaryArtist().Name) + " " + trackTitle
		titleScore := textutil.BestOf(
			textutil.CharacterSimilarity(trackTitle, target),
			textutil.WordSimilarity(trackTitle, target),
			textutil.Containment(trackTitle, target),
		)
		return MatchCandidate{
			Track:      track,
			TitleScore: titleScore,
			Score:      max(titleScore, textutil.CharacterSimilarity(combined, target)),
		}
	}
}

func originalTermScorer(term string) scoreFunc {
	target := strings.ToLower(textutil.CleanOriginalTerm(term))
	return func(track catalog.Track) MatchCandidate {
		trackTitle := strings.ToLower(track.Name)
		combined := strings.ToLower(track.PrimaryArtist().Name) + " " + trackTitle
		titleScore := bestMetric(trackTitle, target)
		return MatchCandidate{
			Track:      track,
			TitleScore: titleScore,
			Score:      max(titleScore, bestMetric(combined, target)),
		}
	}
}

// mostPopular returns the track with the highest popularity; ties keep the first.
func mostPopular(tracks []catalog.Track) *MatchCandidate {
	if len(tracks) == 0 {
		return nil
	}
	best := tracks[0]
	for _, track := range tracks[1:] {
		if track.Popularity > best.Popularity {
			best = track
		}
	}
	return &MatchCandidate{Track: best, Score: float64(best.Popularity) / 100}
}

// confidence scores an accepted match against metadata extracted from noisy input.
func confidence(cand catalog.Candidate, q Query) (float64, float64, float64) {
	title := textutil.CharacterSimilarity(strings.ToLower(cand.Title), strings.ToLower(q.Title))
	artist := textutil.CharacterSimilarity(strings.ToLower(cand.ArtistName), strings.ToLower(q.Artist))
	return textutil.Composite(title, artist, textutil.ConfidenceWeights), title, artist
}
