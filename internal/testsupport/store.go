package testsupport

import (
	"context"
	"testing"

	"spotafy/internal/config"
	"spotafy/internal/identity"
	"spotafy/internal/library"
)

// MustOpenLibrary opens a library.Store for tests and registers cleanup.
func MustOpenLibrary(t testing.TB, cfg *config.Config) *library.Store {
	t.Helper()

	store, err := library.Open(cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	t.Cleanup(func() {
		store.Close()
	})
	return store
}

// MustImportSong stores a song keyed by its computed token and returns it.
func MustImportSong(t testing.TB, store *library.Store, artist, title, releaseDate string, genres ...string) *library.Song {
	t.Helper()

	song, _, err := store.Import(context.Background(), library.NewSong{
		Token:       identity.Generate(artist, title, releaseDate),
		Title:       title,
		ArtistName:  artist,
		AlbumTitle:  library.SingleAlbumTitle,
		ReleaseDate: releaseDate,
		Genres:      genres,
	})
	if err != nil {
		t.Fatalf("store.Import: %v", err)
	}
	return song
}
