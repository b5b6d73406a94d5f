package catalog

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"time"

	"spotafy/internal/logging"
)

const defaultGenreTTL = time.Hour

// ArtistFetcher is the subset of Client used for genre lookups.
type ArtistFetcher interface {
	Artist(ctx context.Context, id string) (*Artist, error)
}

type genreEntry struct {
	genres  []string
	expires time.Time
}

// GenreCache memoizes artist genres for a bounded time. Lookups never fail:
// errors produce an empty result that is not cached.
type GenreCache struct {
	fetcher ArtistFetcher
	ttl     time.Duration
	now     func() time.Time
	logger  *slog.Logger

	mu      sync.Mutex
	entries map[string]genreEntry
}

// NewGenreCache wraps fetcher. Non-positive ttl selects one hour.
func NewGenreCache(fetcher ArtistFetcher, ttl time.Duration, logger *slog.Logger) *GenreCache {
	if ttl <= 0 {
		ttl = defaultGenreTTL
	}
	return &GenreCache{
		fetcher: fetcher,
		ttl:     ttl,
		now:     time.Now,
		logger:  logging.NewComponentLogger(logger, "genre-cache"),
		entries: make(map[string]genreEntry),
	}
}

// SetClock overrides the time source.
func (g *GenreCache) SetClock(now func() time.Time) {
	if now != nil {
		g.now = now
	}
}

// Genres returns the genres of artistID, or an empty slice.
func (g *GenreCache) Genres(ctx context.Context, artistID string) []string {
	if g == nil || g.fetcher == nil || artistID == "" {
		return []string{}
	}
	now := g.now()

	g.mu.Lock()
	if entry, ok := g.entries[artistID]; ok && now.Before(entry.expires) {
		g.mu.Unlock()
		return slices.Clone(entry.genres)
	}
	g.mu.Unlock()

	artist, err := g.fetcher.Artist(ctx, artistID)
	if err != nil {
		logging.WarnWithContext(g.logger, "artist genre lookup failed", "genre_lookup_failed",
			logging.String("artist_id", artistID),
			logging.Error(err),
			logging.String(logging.FieldImpact, "song imported without catalog genres"),
		)
		return []string{}
	}
	genres := []string{}
	if artist != nil && artist.Genres != nil {
		genres = slices.Clone(artist.Genres)
	}

	g.mu.Lock()
	g.entries[artistID] = genreEntry{genres: genres, expires: now.Add(g.ttl)}
	g.mu.Unlock()
	return slices.Clone(genres)
}
