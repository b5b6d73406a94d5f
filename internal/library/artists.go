package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"

	"spotafy/internal/textutil"
)

// ArtistMatch pairs a stored artist with its similarity to a probe name.
type ArtistMatch struct {
	Artist Artist
	Score  float64
}

const artistSelect = `SELECT a.id, a.name, a.catalog_id, a.created_at,
	(SELECT GROUP_CONCAT(g.name, '` + genreSeparator + `') FROM artist_genres ag
		JOIN genres g ON g.id = ag.genre_id WHERE ag.artist_id = a.id) AS genres
FROM artists a`

func scanArtist(scanner interface{ Scan(dest ...any) error }) (*Artist, error) {
	var (
		artist     Artist
		catalogID  sql.NullString
		createdRaw sql.NullString
		genres     sql.NullString
	)
	if err := scanner.Scan(&artist.ID, &artist.Name, &catalogID, &createdRaw, &genres); err != nil {
		return nil, err
	}
	artist.CatalogID = catalogID.String
	artist.Genres = splitGenres(genres.String)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		artist.CreatedAt = created
	}
	return &artist, nil
}

// ArtistByName returns the artist stored under exactly name, or nil.
func (s *Store) ArtistByName(ctx context.Context, name string) (*Artist, error) {
	ctx = ensureContext(ctx)
	var artist *Artist
	err := retryOnBusy(ctx, func() error {
		var scanErr error
		artist, scanErr = scanArtist(s.db.QueryRowContext(ctx,
			artistSelect+" WHERE a.name = ? ORDER BY a.id LIMIT 1", strings.TrimSpace(name)))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("artist by name: %w", err)
	}
	return artist, nil
}

func (s *Store) listArtists(ctx context.Context) ([]Artist, error) {
	ctx = ensureContext(ctx)
	var artists []Artist
	err := retryOnBusy(ctx, func() error {
		artists = artists[:0]
		rows, err := s.db.QueryContext(ctx, artistSelect+" ORDER BY a.id")
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			artist, err := scanArtist(rows)
			if err != nil {
				return err
			}
			artists = append(artists, *artist)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("list artists: %w", err)
	}
	return artists, nil
}

// SimilarArtists returns stored artists whose normalized name scores at
// least threshold against name under Jaro-Winkler, best first. Artists whose
// name is exactly name are skipped.
func (s *Store) SimilarArtists(ctx context.Context, name string, threshold float64) ([]ArtistMatch, error) {
	name = strings.TrimSpace(name)
	probe := textutil.NormalizeForComparison(name)
	if probe == "" {
		return nil, nil
	}
	artists, err := s.listArtists(ctx)
	if err != nil {
		return nil, err
	}
	metric := metrics.NewJaroWinkler()
	var matches []ArtistMatch
	for _, artist := range artists {
		if artist.Name == name {
			continue
		}
		score := strutil.Similarity(probe, textutil.NormalizeForComparison(artist.Name), metric)
		if score >= threshold {
			matches = append(matches, ArtistMatch{Artist: artist, Score: score})
		}
	}
	sort.SliceStable(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	return matches, nil
}
