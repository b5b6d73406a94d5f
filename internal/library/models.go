package library

import (
	"errors"
	"fmt"
	"time"

	"spotafy/internal/services"
)

// SingleAlbumTitle is the album title that never deduplicates.
const SingleAlbumTitle = "Single"

// Song is a stored track with its artist and album names joined in.
type Song struct {
	ID              int64     `json:"id"`
	Token           string    `json:"token"`
	Title           string    `json:"title"`
	DurationSeconds int       `json:"duration_seconds"`
	CatalogID       string    `json:"catalog_id,omitempty"`
	Popularity      int       `json:"popularity"`
	ReleaseDate     string    `json:"release_date,omitempty"`
	Explicit        bool      `json:"explicit"`
	PreviewURL      string    `json:"preview_url,omitempty"`
	ISRC            string    `json:"isrc,omitempty"`
	ExternalURL     string    `json:"external_url,omitempty"`
	ArtistID        int64     `json:"artist_id"`
	AlbumID         int64     `json:"album_id"`
	ArtistName      string    `json:"artist"`
	AlbumTitle      string    `json:"album"`
	AudioPath       string    `json:"audio_path,omitempty"`
	CoverPath       string    `json:"cover_path,omitempty"`
	Genres          []string  `json:"genres"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// Artist is a stored performer. Names are the identity key.
type Artist struct {
	ID        int64
	Name      string
	CatalogID string
	Genres    []string
	CreatedAt time.Time
}

// Album groups songs of one artist. Singles are never shared.
type Album struct {
	ID          int64
	Title       string
	ArtistID    int64
	ReleaseDate string
	CreatedAt   time.Time
}

// Genre is a named style linked to songs and artists.
type Genre struct {
	ID   int64
	Name string
}

// NewSong carries everything Import needs to persist one song.
type NewSong struct {
	Token           string
	Title           string
	ArtistName      string
	ArtistCatalogID string
	AlbumTitle      string
	ReleaseDate     string
	DurationSeconds int
	CatalogID       string
	Popularity      int
	Explicit        bool
	PreviewURL      string
	ISRC            string
	ExternalURL     string
	Genres          []string
}

// ErrTokenCollision marks a token regeneration that would duplicate another
// song's token.
var ErrTokenCollision = errors.New("token collision")

// TokenCollisionError reports the song that already owns a recomputed token.
type TokenCollisionError struct {
	SongID            int64
	ConflictingSongID int64
	Token             string
}

func (e *TokenCollisionError) Error() string {
	return fmt.Sprintf("token %s for song %d already belongs to song %d", e.Token, e.SongID, e.ConflictingSongID)
}

func (e *TokenCollisionError) Unwrap() []error {
	return []error{ErrTokenCollision, services.ErrConflict}
}
