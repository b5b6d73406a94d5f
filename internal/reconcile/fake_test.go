package reconcile_test

import (
	"context"
	"errors"
	"strings"
	"sync"

	"spotafy/internal/catalog"
)

// fakeCatalog answers searches from a query → tracks table and records every call.
type fakeCatalog struct {
	mu      sync.Mutex
	results map[string][]catalog.Track
	fail    map[string]bool
	calls   []catalog.SearchRequest
}

func newFakeCatalog() *fakeCatalog {
	return &fakeCatalog{results: map[string][]catalog.Track{}, fail: map[string]bool{}}
}

func (f *fakeCatalog) on(query string, tracks ...catalog.Track) *fakeCatalog {
	f.results[query] = tracks
	return f
}

func (f *fakeCatalog) Search(_ context.Context, req catalog.SearchRequest) ([]catalog.Track, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
	if f.fail[req.Query] {
		return nil, errors.New("catalog unavailable")
	}
	return f.results[req.Query], nil
}

func (f *fakeCatalog) queries() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, 0, len(f.calls))
	for _, c := range f.calls {
		out = append(out, c.Query)
	}
	return out
}

func (f *fakeCatalog) countPrefix(prefix string) int {
	n := 0
	for _, q := range f.queries() {
		if strings.HasPrefix(q, prefix) {
			n++
		}
	}
	return n
}

type staticGenres []string

func (g staticGenres) Genres(context.Context, string) []string { return g }

func track(id, artist, title string, popularity int) catalog.Track {
	return catalog.Track{
		ID:         id,
		Name:       title,
		Artists:    []catalog.ArtistRef{{ID: "artist-" + id, Name: artist}},
		Album:      catalog.Album{Name: title, ReleaseDate: "2000-11-13"},
		Popularity: popularity,
		DurationMS: 200000,
	}
}
