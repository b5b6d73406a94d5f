package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"spotafy/internal/identity"
	"spotafy/internal/services"
	"spotafy/internal/textutil"
)

const genreSeparator = "|"

const songSelect = `SELECT s.id, s.token, s.title, s.duration_seconds, s.catalog_id, s.popularity,
	s.release_date, s.explicit, s.preview_url, s.isrc, s.external_url, s.artist_id, s.album_id,
	a.name, al.title, s.audio_path, s.cover_path, s.created_at, s.updated_at,
	(SELECT GROUP_CONCAT(g.name, '` + genreSeparator + `') FROM song_genres sg
		JOIN genres g ON g.id = sg.genre_id WHERE sg.song_id = s.id) AS genres
FROM songs s
JOIN artists a ON a.id = s.artist_id
LEFT JOIN albums al ON al.id = s.album_id`

func scanSong(scanner interface{ Scan(dest ...any) error }) (*Song, error) {
	var (
		song        Song
		catalogID   sql.NullString
		releaseDate sql.NullString
		explicit    int
		previewURL  sql.NullString
		isrc        sql.NullString
		externalURL sql.NullString
		albumID     sql.NullInt64
		albumTitle  sql.NullString
		audioPath   sql.NullString
		coverPath   sql.NullString
		createdRaw  sql.NullString
		updatedRaw  sql.NullString
		genres      sql.NullString
	)
	if err := scanner.Scan(
		&song.ID,
		&song.Token,
		&song.Title,
		&song.DurationSeconds,
		&catalogID,
		&song.Popularity,
		&releaseDate,
		&explicit,
		&previewURL,
		&isrc,
		&externalURL,
		&song.ArtistID,
		&albumID,
		&song.ArtistName,
		&albumTitle,
		&audioPath,
		&coverPath,
		&createdRaw,
		&updatedRaw,
		&genres,
	); err != nil {
		return nil, err
	}
	song.CatalogID = catalogID.String
	song.ReleaseDate = releaseDate.String
	song.Explicit = explicit != 0
	song.PreviewURL = previewURL.String
	song.ISRC = isrc.String
	song.ExternalURL = externalURL.String
	song.AlbumID = albumID.Int64
	song.AlbumTitle = albumTitle.String
	song.AudioPath = audioPath.String
	song.CoverPath = coverPath.String
	song.Genres = splitGenres(genres.String)
	if created, err := parseTimeString(createdRaw.String); err == nil {
		song.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		song.UpdatedAt = updated
	}
	return &song, nil
}

func splitGenres(raw string) []string {
	if raw == "" {
		return nil
	}
	names := strings.Split(raw, genreSeparator)
	slices.Sort(names)
	return names
}

func (s *Store) querySongs(ctx context.Context, query string, args ...any) ([]Song, error) {
	ctx = ensureContext(ctx)
	var songs []Song
	err := retryOnBusy(ctx, func() error {
		songs = songs[:0]
		rows, err := s.db.QueryContext(ctx, query, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			song, err := scanSong(rows)
			if err != nil {
				return err
			}
			songs = append(songs, *song)
		}
		return rows.Err()
	})
	if err != nil {
		return nil, err
	}
	return songs, nil
}

func (s *Store) querySong(ctx context.Context, query string, args ...any) (*Song, error) {
	ctx = ensureContext(ctx)
	var song *Song
	err := retryOnBusy(ctx, func() error {
		var scanErr error
		song, scanErr = scanSong(s.db.QueryRowContext(ctx, query, args...))
		return scanErr
	})
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return song, nil
}

// SongByToken returns the song owning token, or nil when none does.
func (s *Store) SongByToken(ctx context.Context, token string) (*Song, error) {
	song, err := s.querySong(ctx, songSelect+" WHERE s.token = ?", token)
	if err != nil {
		return nil, fmt.Errorf("song by token: %w", err)
	}
	return song, nil
}

// SongByID returns the song with id, or nil when none exists.
func (s *Store) SongByID(ctx context.Context, id int64) (*Song, error) {
	song, err := s.querySong(ctx, songSelect+" WHERE s.id = ?", id)
	if err != nil {
		return nil, fmt.Errorf("song by id: %w", err)
	}
	return song, nil
}

// Import persists a song with its artist, album and genres in one
// transaction. When a song with the same token already exists it is returned
// unchanged with created=false.
func (s *Store) Import(ctx context.Context, in NewSong) (*Song, bool, error) {
	in.Title = strings.TrimSpace(in.Title)
	in.ArtistName = strings.TrimSpace(in.ArtistName)
	if in.Title == "" || in.ArtistName == "" {
		return nil, false, services.Wrap(services.ErrValidation, "library", "import", "title and artist are required", nil)
	}
	if !identity.Valid(in.Token) {
		return nil, false, services.Wrap(services.ErrValidation, "library", "import", fmt.Sprintf("invalid token %q", in.Token), nil)
	}

	var (
		songID  int64
		created bool
	)
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		existingID, err := songIDByToken(ctx, tx, in.Token)
		if err != nil {
			return err
		}
		if existingID != 0 {
			songID, created = existingID, false
			return nil
		}

		now := s.timestamp()
		artistID, err := findOrCreateArtist(ctx, tx, in.ArtistName, in.ArtistCatalogID, now)
		if err != nil {
			return err
		}
		albumID, err := findOrCreateAlbum(ctx, tx, in.AlbumTitle, artistID, in.ReleaseDate, now)
		if err != nil {
			return err
		}

		res, err := tx.ExecContext(ctx, `INSERT INTO songs (
			token, title, duration_seconds, catalog_id, popularity, release_date, explicit,
			preview_url, isrc, external_url, artist_id, album_id, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			in.Token,
			in.Title,
			max(in.DurationSeconds, 0),
			nullableString(in.CatalogID),
			in.Popularity,
			nullableString(strings.TrimSpace(in.ReleaseDate)),
			boolToInt(in.Explicit),
			nullableString(in.PreviewURL),
			nullableString(in.ISRC),
			nullableString(in.ExternalURL),
			artistID,
			albumID,
			now,
			now,
		)
		if err != nil {
			return fmt.Errorf("insert song: %w", err)
		}
		if songID, err = res.LastInsertId(); err != nil {
			return fmt.Errorf("song id: %w", err)
		}

		for _, name := range genreNames(in.Genres) {
			genreID, err := findOrCreateGenre(ctx, tx, name)
			if err != nil {
				return err
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO song_genres (song_id, genre_id) VALUES (?, ?)", songID, genreID); err != nil {
				return fmt.Errorf("link song genre: %w", err)
			}
			if _, err := tx.ExecContext(ctx,
				"INSERT OR IGNORE INTO artist_genres (artist_id, genre_id) VALUES (?, ?)", artistID, genreID); err != nil {
				return fmt.Errorf("link artist genre: %w", err)
			}
		}
		created = true
		return nil
	})
	if err != nil {
		if !isTokenConstraint(err) {
			return nil, false, fmt.Errorf("import song: %w", err)
		}
		existing, lookupErr := s.SongByToken(ctx, in.Token)
		if lookupErr != nil {
			return nil, false, lookupErr
		}
		if existing == nil {
			return nil, false, fmt.Errorf("import song: %w", err)
		}
		return existing, false, nil
	}

	song, err := s.SongByID(ctx, songID)
	if err != nil {
		return nil, false, err
	}
	if song == nil {
		return nil, false, services.Wrap(services.ErrNotFound, "library", "import", fmt.Sprintf("song %d vanished after import", songID), nil)
	}
	return song, created, nil
}

func songIDByToken(ctx context.Context, tx *sql.Tx, token string) (int64, error) {
	var id int64
	err := tx.QueryRowContext(ctx, "SELECT id FROM songs WHERE token = ?", token).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("lookup token: %w", err)
	}
	return id, nil
}

func findOrCreateArtist(ctx context.Context, tx *sql.Tx, name, catalogID, now string) (int64, error) {
	var (
		id       int64
		existing sql.NullString
	)
	err := tx.QueryRowContext(ctx, "SELECT id, catalog_id FROM artists WHERE name = ? ORDER BY id LIMIT 1", name).
		Scan(&id, &existing)
	switch {
	case err == nil:
		if existing.String == "" && catalogID != "" {
			if _, err := tx.ExecContext(ctx,
				"UPDATE artists SET catalog_id = ?, updated_at = ? WHERE id = ?", catalogID, now, id); err != nil {
				return 0, fmt.Errorf("update artist catalog id: %w", err)
			}
		}
		return id, nil
	case !errors.Is(err, sql.ErrNoRows):
		return 0, fmt.Errorf("lookup artist: %w", err)
	}

	res, err := tx.ExecContext(ctx,
		"INSERT INTO artists (name, catalog_id, created_at, updated_at) VALUES (?, ?, ?, ?)",
		name, nullableString(catalogID), now, now)
	if err != nil {
		return 0, fmt.Errorf("insert artist: %w", err)
	}
	return res.LastInsertId()
}

func findOrCreateAlbum(ctx context.Context, tx *sql.Tx, title string, artistID int64, releaseDate, now string) (int64, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		title = SingleAlbumTitle
	}
	if !isSingle(title) {
		var id int64
		err := tx.QueryRowContext(ctx,
			"SELECT id FROM albums WHERE title = ? AND artist_id = ? ORDER BY id LIMIT 1", title, artistID).Scan(&id)
		if err == nil {
			return id, nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("lookup album: %w", err)
		}
	}
	res, err := tx.ExecContext(ctx,
		"INSERT INTO albums (title, artist_id, release_date, created_at) VALUES (?, ?, ?, ?)",
		title, artistID, nullableString(strings.TrimSpace(releaseDate)), now)
	if err != nil {
		return 0, fmt.Errorf("insert album: %w", err)
	}
	return res.LastInsertId()
}

func isSingle(title string) bool {
	return textutil.NormalizeForComparison(title) == "single"
}

func findOrCreateGenre(ctx context.Context, tx *sql.Tx, name string) (int64, error) {
	if _, err := tx.ExecContext(ctx, "INSERT OR IGNORE INTO genres (name) VALUES (?)", name); err != nil {
		return 0, fmt.Errorf("insert genre: %w", err)
	}
	var id int64
	if err := tx.QueryRowContext(ctx, "SELECT id FROM genres WHERE name = ?", name).Scan(&id); err != nil {
		return 0, fmt.Errorf("lookup genre: %w", err)
	}
	return id, nil
}

// genreNames trims, capitalizes and deduplicates genre names.
func genreNames(raw []string) []string {
	out := make([]string, 0, len(raw))
	for _, name := range raw {
		name = upperFirst(strings.TrimSpace(name))
		if name == "" || slices.Contains(out, name) {
			continue
		}
		out = append(out, name)
	}
	return out
}

func upperFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}

// SetMediaPaths records where the audio file and cover image of a song live.
func (s *Store) SetMediaPaths(ctx context.Context, songID int64, audioPath, coverPath string) error {
	ctx = ensureContext(ctx)
	var affected int64
	err := retryOnBusy(ctx, func() error {
		res, err := s.db.ExecContext(ctx,
			"UPDATE songs SET audio_path = ?, cover_path = ?, updated_at = ? WHERE id = ?",
			nullableString(audioPath), nullableString(coverPath), s.timestamp(), songID)
		if err != nil {
			return err
		}
		affected, err = res.RowsAffected()
		return err
	})
	if err != nil {
		return fmt.Errorf("set media paths: %w", err)
	}
	if affected == 0 {
		return services.Wrap(services.ErrNotFound, "library", "set media paths", fmt.Sprintf("song %d", songID), nil)
	}
	return nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func likePattern(term string) string {
	return "%" + likeEscaper.Replace(term) + "%"
}

// SearchSongs returns songs whose title or artist name contains phrase.
func (s *Store) SearchSongs(ctx context.Context, phrase string) ([]Song, error) {
	phrase = strings.TrimSpace(phrase)
	if phrase == "" {
		return nil, nil
	}
	pattern := likePattern(phrase)
	songs, err := s.querySongs(ctx,
		songSelect+` WHERE s.title LIKE ? ESCAPE '\' OR a.name LIKE ? ESCAPE '\' ORDER BY s.id`,
		pattern, pattern)
	if err != nil {
		return nil, fmt.Errorf("search songs: %w", err)
	}
	return songs, nil
}

// SearchSongsAnyWord returns songs whose title or artist name contains at
// least one of words.
func (s *Store) SearchSongsAnyWord(ctx context.Context, words []string) ([]Song, error) {
	clauses := make([]string, 0, len(words))
	args := make([]any, 0, 2*len(words))
	for _, word := range words {
		word = strings.TrimSpace(word)
		if word == "" {
			continue
		}
		pattern := likePattern(word)
		clauses = append(clauses, `s.title LIKE ? ESCAPE '\' OR a.name LIKE ? ESCAPE '\'`)
		args = append(args, pattern, pattern)
	}
	if len(clauses) == 0 {
		return nil, nil
	}
	songs, err := s.querySongs(ctx,
		songSelect+" WHERE "+strings.Join(clauses, " OR ")+" ORDER BY s.id", args...)
	if err != nil {
		return nil, fmt.Errorf("search songs by word: %w", err)
	}
	return songs, nil
}

// ListSongs returns the most recently created songs first. A non-positive
// limit returns every song.
func (s *Store) ListSongs(ctx context.Context, limit int) ([]Song, error) {
	if limit <= 0 {
		limit = -1
	}
	songs, err := s.querySongs(ctx,
		songSelect+" ORDER BY s.created_at DESC, s.id DESC LIMIT ?", limit)
	if err != nil {
		return nil, fmt.Errorf("list songs: %w", err)
	}
	return songs, nil
}

// SongsCreatedSince returns songs created at or after since, oldest first.
func (s *Store) SongsCreatedSince(ctx context.Context, since time.Time) ([]Song, error) {
	songs, err := s.querySongs(ctx,
		songSelect+" WHERE s.created_at >= ? ORDER BY s.created_at, s.id", formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("songs created since: %w", err)
	}
	return songs, nil
}

// CountSongs returns the number of stored songs.
func (s *Store) CountSongs(ctx context.Context) (int, error) {
	ctx = ensureContext(ctx)
	var count int
	err := retryOnBusy(ctx, func() error {
		return s.db.QueryRowContext(ctx, "SELECT COUNT(1) FROM songs").Scan(&count)
	})
	if err != nil {
		return 0, fmt.Errorf("count songs: %w", err)
	}
	return count, nil
}
