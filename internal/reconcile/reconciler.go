package reconcile

import (
	"context"
	"log/slog"
	"strings"

	"spotafy/internal/catalog"
	"spotafy/internal/config"
	"spotafy/internal/logging"
)

var unknownArtists = map[string]struct{}{
	"":                     {},
	"artista desconhecido": {},
	"unknown artist":       {},
	"desconhecido":         {},
}

// IsUnknownArtist reports whether artist is empty or a placeholder.
func IsUnknownArtist(artist string) bool {
	_, ok := unknownArtists[strings.ToLower(strings.TrimSpace(artist))]
	return ok
}

// Thresholds holds acceptance thresholds and per-strategy result limits.
type Thresholds struct {
	Structured         float64
	Alternative        float64
	Broad              float64
	OriginalTerm       float64
	FallbackConfidence float64
	StructuredLimit    int
	AlternativeLimit   int
	BroadLimit         int
	ArtistLimit        int
	Market             string
}

// DefaultThresholds mirrors the repository configuration defaults.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Structured:         0.70,
		Alternative:        0.70,
		Broad:              0.40,
		OriginalTerm:       0.30,
		FallbackConfidence: 0.60,
		StructuredLimit:    5,
		AlternativeLimit:   3,
		BroadLimit:         20,
		ArtistLimit:        10,
		Market:             "BR",
	}
}

// ThresholdsFromConfig reads the [matching] section and catalog market.
func ThresholdsFromConfig(cfg *config.Config) Thresholds {
	if cfg == nil {
		return DefaultThresholds()
	}
	return Thresholds{
		Structured:         cfg.Matching.StructuredThreshold,
		Alternative:        cfg.Matching.AlternativeThreshold,
		Broad:              cfg.Matching.BroadThreshold,
		OriginalTerm:       cfg.Matching.OriginalTermThreshold,
		FallbackConfidence: cfg.Matching.FallbackConfidence,
		StructuredLimit:    cfg.Matching.StructuredLimit,
		AlternativeLimit:   cfg.Matching.AlternativeLimit,
		BroadLimit:         cfg.Matching.BroadLimit,
		ArtistLimit:        cfg.Matching.ArtistLimit,
		Market:             cfg.Catalog.Market,
	}
}

// GenreSource supplies best-effort artist genres.
type GenreSource interface {
	Genres(ctx context.Context, artistID string) []string
}

// Query is the (artist, title) pair to resolve.
type Query struct {
	Artist string
	Title  string
}

// Result is an accepted catalog match.
type Result struct {
	Candidate catalog.Candidate
	Strategy  Strategy
	Score     float64
	// Confidence is set by ResolveWithFallback: the title-weighted similarity
	// between the match and the extracted query.
	Confidence float64
	// Degraded marks a low-confidence match kept because nothing better was found.
	Degraded bool
}

// Reconciler runs the strategy cascade.
type Reconciler struct {
	searcher   Searcher
	genres     GenreSource
	thresholds Thresholds
	logger     *slog.Logger
}

// Option configures a Reconciler.
type Option func(*Reconciler)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Reconciler) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// New builds a Reconciler. genres may be nil.
func New(searcher Searcher, genres GenreSource, thresholds Thresholds, opts ...Option) *Reconciler {
	r := &Reconciler{
		searcher:   searcher,
		genres:     genres,
		thresholds: thresholds,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = logging.NewComponentLogger(r.logger, "reconcile")
	return r
}

// Resolve runs strategies 1 through 4 in order, or only the broad title
// search when the artist is unknown. It returns nil when nothing is accepted.
func (r *Reconciler) Resolve(ctx context.Context, q Query) (*Result, error) {
	q.Artist = strings.TrimSpace(q.Artist)
	q.Title = strings.TrimSpace(q.Title)
	logger := logging.WithContext(ctx, r.logger)

	if IsUnknownArtist(q.Artist) {
		logger.Info("artist unknown; using broad title search", logging.String("title", q.Title))
		match, err := r.broad(ctx, q.Title)
		if err != nil {
			return nil, err
		}
		return r.accept(ctx, match, StrategyBroad), nil
	}

	steps := []struct {
		strategy Strategy
		run      func(context.Context) (*MatchCandidate, error)
	}{
		{StrategyStructured, func(ctx context.Context) (*MatchCandidate, error) { return r.structured(ctx, q) }},
		{StrategyAlternatives, func(ctx context.Context) (*MatchCandidate, error) { return r.alternatives(ctx, q) }},
		{StrategyBroad, func(ctx context.Context) (*MatchCandidate, error) { return r.broad(ctx, q.Title) }},
		{StrategyArtist, func(ctx context.Context) (*MatchCandidate, error) { return r.artistOnly(ctx, q.Artist) }},
	}
	for _, step := range steps {
		match, err := step.run(ctx)
		if err != nil {
			return nil, err
		}
		if match != nil {
			return r.accept(ctx, match, step.strategy), nil
		}
		logger.Debug("strategy found no match", logging.String("strategy", string(step.strategy)))
	}
	logger.Info("no catalog match",
		logging.String("artist", q.Artist),
		logging.String("title", q.Title),
	)
	return nil, nil
}

// ResolveWithFallback is Resolve for metadata extracted from noisy input.
// A match whose confidence against q is below the fallback threshold is
// replaced by an original-term search result when one exists; otherwise the
// weak match is returned flagged as Degraded.
func (r *Reconciler) ResolveWithFallback(ctx context.Context, q Query, originalTerm string) (*Result, error) {
	logger := logging.WithContext(ctx, r.logger)
	res, err := r.Resolve(ctx, q)
	if err != nil {
		return nil, err
	}
	if res != nil {
		conf, titleScore, artistScore := confidence(res.Candidate, q)
		res.Confidence = conf
		logger.Info("match confidence",
			logging.String("strategy", string(res.Strategy)),
			logging.Float64("title_score", titleScore),
			logging.Float64("artist_score", artistScore),
			logging.Float64("confidence", conf),
			logging.Float64("threshold", r.thresholds.FallbackConfidence),
		)
		if conf >= r.thresholds.FallbackConfidence {
			return res, nil
		}
	}

	match, err := r.originalTerm(ctx, originalTerm)
	if err != nil {
		return nil, err
	}
	if match != nil {
		fallback := r.accept(ctx, match, StrategyOriginalTerm)
		fallback.Confidence, _, _ = confidence(fallback.Candidate, q)
		return fallback, nil
	}
	if res == nil {
		return nil, nil
	}
	res.Degraded = true
	logging.WarnWithContext(logger, "keeping low-confidence catalog match", "reconcile_low_confidence",
		logging.String("strategy", string(res.Strategy)),
		logging.String("artist", res.Candidate.ArtistName),
		logging.String("title", res.Candidate.Title),
		logging.Float64("confidence", res.Confidence),
		logging.String(logging.FieldErrorHint, "verify the imported metadata"),
		logging.String(logging.FieldImpact, "song may be stored under the wrong title or artist"),
	)
	return res, nil
}

func (r *Reconciler) accept(ctx context.Context, match *MatchCandidate, strategy Strategy) *Result {
	if match == nil {
		return nil
	}
	cand := catalog.NewCandidate(match.Track)
	if r.genres != nil {
		cand.Genres = r.genres.Genres(ctx, cand.ArtistID)
	}
	return &Result{Candidate: cand, Strategy: strategy, Score: match.Score}
}
