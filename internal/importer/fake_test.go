package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"spotafy/internal/catalog"
	"spotafy/internal/media/tags"
	"spotafy/internal/reconcile"
)

type fakeResolver struct {
	mu      sync.Mutex
	resolve func(q reconcile.Query, term string) *reconcile.Result
	queries []reconcile.Query
}

func (f *fakeResolver) ResolveWithFallback(_ context.Context, q reconcile.Query, term string) (*reconcile.Result, error) {
	f.mu.Lock()
	f.queries = append(f.queries, q)
	f.mu.Unlock()
	if f.resolve == nil {
		return nil, nil
	}
	return f.resolve(q, term), nil
}

func resolveTo(cand catalog.Candidate) *fakeResolver {
	return &fakeResolver{resolve: func(reconcile.Query, string) *reconcile.Result {
		return &reconcile.Result{Candidate: cand, Strategy: reconcile.StrategyStructured, Score: 0.9, Confidence: 0.9}
	}}
}

// blockingResolver waits for its context to end.
type blockingResolver struct {
	started chan struct{}
}

func (b *blockingResolver) ResolveWithFallback(ctx context.Context, _ reconcile.Query, _ string) (*reconcile.Result, error) {
	if b.started != nil {
		close(b.started)
	}
	<-ctx.Done()
	return nil, ctx.Err()
}

type fakeDownloader struct {
	mu      sync.Mutex
	t       *testing.T
	dir     string
	name    string
	err     error
	queries []string
}

func (f *fakeDownloader) Download(_ context.Context, query string) (string, error) {
	f.mu.Lock()
	f.queries = append(f.queries, query)
	f.mu.Unlock()
	if f.err != nil {
		return "", f.err
	}
	name := f.name
	if name == "" {
		name = query + ".mp3"
	}
	path := filepath.Join(f.dir, name)
	if err := os.MkdirAll(f.dir, 0o755); err != nil {
		f.t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		f.t.Fatalf("write download: %v", err)
	}
	return path, nil
}

func (f *fakeDownloader) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.queries)
}

type tagRecorder struct {
	mu    sync.Mutex
	calls []tags.Metadata
	paths []string
}

func (r *tagRecorder) write(path string, md tags.Metadata) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.paths = append(r.paths, path)
	r.calls = append(r.calls, md)
	return nil
}

func fixedProbe(seconds int) func(context.Context, string) int {
	return func(context.Context, string) int { return seconds }
}

func fakeCover(_ context.Context, _ string, destBase string) (string, error) {
	path := destBase + ".jpg"
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", err
	}
	return path, os.WriteFile(path, []byte("cover"), 0o644)
}

type fakeArtistCatalog struct {
	tracks []catalog.Track
	limit  int
	market string
}

func (f *fakeArtistCatalog) TracksByArtist(_ context.Context, _ string, limit int, market string) ([]catalog.Track, error) {
	f.limit = limit
	f.market = market
	return f.tracks, nil
}

func daftPunk() catalog.Candidate {
	return catalog.Candidate{
		ID:          "0DiWol3AO6WpXZgp0goxAV",
		ArtistID:    "4tZwfgrHOc3mvqYlEYSvVi",
		ArtistName:  "Daft Punk",
		Title:       "One More Time",
		AlbumName:   "Discovery",
		DurationMS:  320357,
		ReleaseDate: "2001-03-12",
		Popularity:  77,
		CoverURL:    "https://i.scdn.co/image/ab67616d0000b273",
		Genres:      []string{"french house", "electro"},
		ExternalURL: "https://open.spotify.com/track/0DiWol3AO6WpXZgp0goxAV",
		ISRC:        "GBDUW0000053",
	}
}
