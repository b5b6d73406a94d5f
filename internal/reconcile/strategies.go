package reconcile

import (
	"context"
	"fmt"
	"strings"

	"spotafy/internal/catalog"
	"spotafy/internal/logging"
	"spotafy/internal/textutil"
)

// Strategy names a step of the search cascade.
type Strategy string

const (
	StrategyStructured   Strategy = "structured"
	StrategyAlternatives Strategy = "alternatives"
	StrategyBroad        Strategy = "broad"
	StrategyArtist       Strategy = "artist"
	StrategyOriginalTerm Strategy = "original_term"
)

// Searcher is the catalog capability the strategies need.
type Searcher interface {
	Search(ctx context.Context, req catalog.SearchRequest) ([]catalog.Track, error)
}

// search runs one catalog query. Transport failures become an empty result;
// only context errors are returned.
func (r *Reconciler) search(ctx context.Context, strategy Strategy, req catalog.SearchRequest) ([]catalog.Track, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	tracks, err := r.searcher.Search(ctx, req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		logging.WarnWithContext(r.logger, "catalog query failed", "catalog_strategy_failed",
			logging.String("strategy", string(strategy)),
			logging.String("query", req.Query),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "check catalog credentials and connectivity"),
			logging.String(logging.FieldImpact, "query treated as no result"),
		)
		return nil, nil
	}
	return tracks, nil
}

func (r *Reconciler) structured(ctx context.Context, q Query) (*MatchCandidate, error) {
	title := textutil.CleanSearchTerm(q.Title)
	artist := textutil.CleanSearchTerm(q.Artist)
	if title == "" || artist == "" {
		return nil, nil
	}
	query := fmt.Sprintf(`track:"%s" artist:"%s"`, title, artist)
	tracks, err := r.search(ctx, StrategyStructured, catalog.SearchRequest{
		Query:  query,
		Limit:  r.thresholds.StructuredLimit,
		Market: r.thresholds.Market,
	})
	if err != nil {
		return nil, err
	}
	return selectBest(r.logger, StrategyStructured, query, tracks, structuredScorer(q), r.thresholds.Structured), nil
}

func (r *Reconciler) alternatives(ctx context.Context, q Query) (*MatchCandidate, error) {
	title := strings.TrimSpace(q.Title)
	artist := strings.TrimSpace(q.Artist)
	queries := uniqueQueries(
		quoted(title),
		artistFilter(artist),
		strings.TrimSpace(artist+" "+title),
	)
	score := alternativeScorer(q)
	for _, query := range queries {
		tracks, err := r.search(ctx, StrategyAlternatives, catalog.SearchRequest{
			Query: query,
			Limit: r.thresholds.AlternativeLimit,
		})
		if err != nil {
			return nil, err
		}
		if best := selectBest(r.logger, StrategyAlternatives, query, tracks, score, r.thresholds.Alternative); best != nil {
			return best, nil
		}
	}
	return nil, nil
}

func (r *Reconciler) broad(ctx context.Context, title string) (*MatchCandidate, error) {
	cleaned := textutil.CleanTitleForSearch(title)
	if cleaned == "" {
		return nil, nil
	}
	queries := uniqueQueries(
		quoted(cleaned),
		textutil.Keywords(cleaned),
		cleaned,
		textutil.RemoveCommonWords(cleaned),
		textutil.FirstWords(cleaned, 2),
	)
	score := broadScorer(title)
	for _, query := range queries {
		tracks, err := r.search(ctx, StrategyBroad, catalog.SearchRequest{
			Query:  query,
			Limit:  r.thresholds.BroadLimit,
			Market: r.thresholds.Market,
		})
		if err != nil {
			return nil, err
		}
		if best := selectBest(r.logger, StrategyBroad, query, tracks, score, r.thresholds.Broad); best != nil {
			return best, nil
		}
	}
	return nil, nil
}

func (r *Reconciler) artistOnly(ctx context.Context, artist string) (*MatchCandidate, error) {
	query := artistFilter(strings.TrimSpace(artist))
	if query == "" {
		return nil, nil
	}
	tracks, err := r.search(ctx, StrategyArtist, catalog.SearchRequest{
		Query:  query,
		Limit:  r.thresholds.ArtistLimit,
		Market: r.thresholds.Market,
	})
	if err != nil {
		return nil, err
	}
	best := mostPopular(tracks)
	if best != nil {
		r.logger.Info("artist strategy picked most popular track",
			logging.String("query", query),
			logging.String("title", best.Track.Name),
			logging.Int("popularity", best.Track.Popularity),
		)
	}
	return best, nil
}

func (r *Reconciler) originalTerm(ctx context.Context, term string) (*MatchCandidate, error) {
	cleaned := textutil.CleanOriginalTerm(term)
	if cleaned == "" {
		return nil, nil
	}
	queries := uniqueQueries(
		quoted(cleaned),
		cleaned,
		textutil.Keywords(cleaned),
		textutil.RemoveCommonWords(cleaned),
		textutil.FirstWords(cleaned, 3),
	)
	score := originalTermScorer(term)
	for _, query := range queries {
		tracks, err := r.search(ctx, StrategyOriginalTerm, catalog.SearchRequest{
			Query:  query,
			Limit:  r.thresholds.BroadLimit,
			Market: r.thresholds.Market,
		})
		if err != nil {
			return nil, err
		}
		if best := selectBest(r.logger, StrategyOriginalTerm, query, tracks, score, r.thresholds.OriginalTerm); best != nil {
			return best, nil
		}
	}
	return nil, nil
}

func quoted(s string) string {
	if s == "" {
		return ""
	}
	return `"` + s + `"`
}

func artistFilter(artist string) string {
	if artist == "" {
		return ""
	}
	return `artist:"` + artist + `"`
}

// uniqueQueries drops blank and repeated queries, keeping order.
func uniqueQueries(queries ...string) []string {
	out := make([]string, 0, len(queries))
	seen := make(map[string]struct{}, len(queries))
	for _, q := range queries {
		q = strings.TrimSpace(q)
		if q == "" {
			continue
		}
		if _, dup := seen[q]; dup {
			continue
		}
		seen[q] = struct{}{}
		out = append(out, q)
	}
	return out
}
