package search

import (
	"context"
	"log/slog"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"

	"spotafy/internal/config"
	"spotafy/internal/importer"
	"spotafy/internal/library"
	"spotafy/internal/logging"
	"spotafy/internal/services"
)

// State is the terminal state of a search.
type State string

const (
	StateFound              State = "found"
	StateMaxRetriesExceeded State = "max_retries_exceeded"
)

// Store is the library surface used for lookups.
type Store interface {
	SearchSongs(ctx context.Context, phrase string) ([]library.Song, error)
	SearchSongsAnyWord(ctx context.Context, words []string) ([]library.Song, error)
}

// Importer imports a phrase into the library.
type Importer interface {
	Import(ctx context.Context, term string) (*importer.Outcome, error)
}

// Settings holds the ranking thresholds and retry budget.
type Settings struct {
	MaxAttempts    int
	PerfectMatch   float64
	StrongArtist   float64
	MinProbability float64
	ResultLimit    int
	FreshWindow    time.Duration
}

// SettingsFromConfig reads Settings from the search section.
func SettingsFromConfig(cfg config.Search) Settings {
	return Settings{
		MaxAttempts:    cfg.MaxAttempts,
		PerfectMatch:   cfg.PerfectMatch,
		StrongArtist:   cfg.StrongArtist,
		MinProbability: cfg.MinProbability,
		ResultLimit:    cfg.ResultLimit,
		FreshWindow:    cfg.FreshWindowDuration(),
	}
}

// Options adjust a single search.
type Options struct {
	// ForceReimport imports the phrase once before ranking and then prefers
	// rows created within the fresh window.
	ForceReimport bool
}

// Result is the outcome of a search.
type Result struct {
	State    State   `json:"state"`
	Phrase   string  `json:"phrase"`
	Slug     string  `json:"slug"`
	Kind     Kind    `json:"kind,omitempty"`
	Matches  []Match `json:"matches"`
	Attempts int     `json:"attempts"`
}

// Service runs searches against the library.
type Service struct {
	store    Store
	importer Importer
	settings Settings
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// Option configures a Service.
type Option func(*Service)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithClock replaces the clock used for the fresh window.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// New constructs a search service.
func New(store Store, imp Importer, settings Settings, opts ...Option) *Service {
	s := &Service{
		store:    store,
		importer: imp,
		settings: settings,
		logger:   logging.NewNop(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = logging.NewComponentLogger(s.logger, "search")
	return s
}

// Search answers input, which may be a plain phrase or a slug.
func (s *Service) Search(ctx context.Context, input string, opts Options) (*Result, error) {
	phrase := PhraseFromSlug(input)
	if phrase == "" {
		return nil, services.Wrap(services.ErrValidation, "search", "phrase", "empty search phrase", nil)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, s.newID())
	}
	ctx = services.WithSearchTerm(ctx, phrase)
	logger := logging.WithContext(ctx, s.logger)

	result := &Result{Phrase: phrase, Slug: Slug(phrase)}
	imported := false
	for {
		rows, err := s.lookup(ctx, phrase)
		if err != nil {
			return nil, err
		}

		if len(rows) == 0 {
			if result.Attempts >= s.settings.MaxAttempts {
				logging.WarnWithContext(logger, "search gave up", "search_max_retries",
					logging.Int("attempts", result.Attempts),
					logging.String(logging.FieldErrorHint, "import the song explicitly or refine the phrase"),
				)
				result.State = StateMaxRetriesExceeded
				return result, nil
			}
			s.reimport(ctx, logger, result, phrase, "no_results")
			imported = true
			continue
		}

		if opts.ForceReimport && result.Attempts < 1 {
			s.reimport(ctx, logger, result, phrase, "forced")
			imported = true
			continue
		}
		if opts.ForceReimport && imported {
			rows = s.freshOnly(rows)
		}

		c := classify(phrase, rows)
		limit := s.settings.ResultLimit
		if len(c.exact) > 0 {
			return s.found(logger, result, KindExact, c.exact), nil
		}
		if len(c.partial) > 0 {
			return s.found(logger, result, KindPartial, rankPartial(c.partial, c.fuzzy, limit)), nil
		}

		perfect, rest := takePerfect(c.fuzzy, s.settings.PerfectMatch)
		if perfect == nil && !hasStrongArtist(c.fuzzy, s.settings.StrongArtist) && result.Attempts < s.settings.MaxAttempts {
			s.reimport(ctx, logger, result, phrase, "weak_matches")
			imported = true
			continue
		}
		return s.found(logger, result, KindFuzzy, rankFuzzy(perfect, rest, s.settings.MinProbability, limit)), nil
	}
}

func (s *Service) lookup(ctx context.Context, phrase string) ([]library.Song, error) {
	rows, err := s.store.SearchSongs(ctx, phrase)
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "search", "lookup", "phrase search", err)
	}
	if len(rows) > 0 {
		return rows, nil
	}
	rows, err = s.store.SearchSongsAnyWord(ctx, Words(phrase))
	if err != nil {
		return nil, services.Wrap(services.ErrTransient, "search", "lookup", "word search", err)
	}
	return rows, nil
}

// reimport spends one attempt. Failures are logged and the search goes on.
func (s *Service) reimport(ctx context.Context, logger *slog.Logger, result *Result, phrase, reason string) {
	result.Attempts++
	logger.Info("importing before retry",
		logging.String(logging.FieldDecisionType, "search_reimport"),
		logging.String("reason", reason),
		logging.Int("attempt", result.Attempts),
	)
	if s.importer == nil {
		return
	}
	out, err := s.importer.Import(ctx, phrase)
	if err != nil {
		logging.WarnWithContext(logger, "import during search failed", "search_import_failed",
			logging.Int("attempt", result.Attempts),
			logging.Error(err),
			logging.String(logging.FieldImpact, "search continues with existing rows"),
		)
		return
	}
	if out != nil && out.Song != nil {
		logger.Debug("import during search finished",
			logging.Int64("song_id", out.Song.ID),
			logging.Bool("created", out.Created),
		)
	}
}

// freshOnly keeps rows created within the fresh window when any exist.
func (s *Service) freshOnly(rows []library.Song) []library.Song {
	cutoff := s.now().Add(-s.settings.FreshWindow)
	fresh := slices.DeleteFunc(slices.Clone(rows), func(song library.Song) bool {
		return song.CreatedAt.Before(cutoff)
	})
	if len(fresh) == 0 {
		return rows
	}
	return fresh
}

func (s *Service) found(logger *slog.Logger, result *Result, kind Kind, matches []Match) *Result {
	result.State = StateFound
	result.Kind = kind
	result.Matches = matches
	titles := make([]string, 0, len(matches))
	for _, m := range matches {
		titles = append(titles, strings.TrimSpace(m.Title+" / "+m.Artist))
	}
	logger.Info("search finished",
		logging.String(logging.FieldEventType, "search_found"),
		logging.String("kind", string(kind)),
		logging.Int("attempts", result.Attempts),
		logging.Strings("matches", titles),
	)
	return result
}
