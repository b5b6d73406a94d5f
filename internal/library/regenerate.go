package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"spotafy/internal/identity"
	"spotafy/internal/services"
)

// RegenerateToken recomputes the token of songID from its current artist,
// title and release date. An unchanged token is a no-op. When another song
// already owns the recomputed token a *TokenCollisionError is returned and
// nothing is written.
func (s *Store) RegenerateToken(ctx context.Context, songID int64) (string, string, error) {
	var oldToken, newToken string
	err := s.withTx(ctx, func(tx *sql.Tx) error {
		var (
			title       string
			artistName  string
			releaseDate sql.NullString
		)
		err := tx.QueryRowContext(ctx, `SELECT s.token, s.title, a.name, s.release_date
			FROM songs s JOIN artists a ON a.id = s.artist_id WHERE s.id = ?`, songID).
			Scan(&oldToken, &title, &artistName, &releaseDate)
		if errors.Is(err, sql.ErrNoRows) {
			return services.Wrap(services.ErrNotFound, "library", "regenerate token", fmt.Sprintf("song %d", songID), nil)
		}
		if err != nil {
			return fmt.Errorf("load song: %w", err)
		}

		newToken = identity.Generate(artistName, title, releaseDate.String)
		if newToken == oldToken {
			return nil
		}

		conflictID, err := songIDByToken(ctx, tx, newToken)
		if err != nil {
			return err
		}
		if conflictID != 0 {
			return &TokenCollisionError{SongID: songID, ConflictingSongID: conflictID, Token: newToken}
		}

		if _, err := tx.ExecContext(ctx,
			"UPDATE songs SET token = ?, updated_at = ? WHERE id = ?", newToken, s.timestamp(), songID); err != nil {
			return fmt.Errorf("update token: %w", err)
		}
		return nil
	})
	if err != nil {
		var collision *TokenCollisionError
		if errors.As(err, &collision) || errors.Is(err, services.ErrNotFound) {
			return oldToken, newToken, err
		}
		return oldToken, newToken, fmt.Errorf("regenerate token: %w", err)
	}
	return oldToken, newToken, nil
}

// RenameSong changes a song's title without touching its token. Callers
// follow up with RegenerateToken to re-key the song.
func (s *Store) RenameSong(ctx context.Context, songID int64, title string) error {
	if title == "" {
		return services.Wrap(services.ErrValidation, "library", "rename song", "title is required", nil)
	}
	if err := s.execWithoutResultRetry(ctx,
		"UPDATE songs SET title = ?, updated_at = ? WHERE id = ?", title, s.timestamp(), songID); err != nil {
		return fmt.Errorf("rename song: %w", err)
	}
	return nil
}
