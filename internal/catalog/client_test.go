package catalog_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"golang.org/x/oauth2"

	"spotafy/internal/catalog"
	"spotafy/internal/services"
)

type stubSource struct {
	calls  atomic.Int32
	tokens []string
	err    error
}

func (s *stubSource) Token(context.Context) (*oauth2.Token, error) {
	n := int(s.calls.Add(1))
	if s.err != nil {
		return nil, s.err
	}
	value := s.tokens[len(s.tokens)-1]
	if n-1 < len(s.tokens) {
		value = s.tokens[n-1]
	}
	return &oauth2.Token{AccessToken: value, Expiry: time.Now().Add(time.Hour)}, nil
}

func noSleep(context.Context, time.Duration) error { return nil }

func newClient(t *testing.T, server *httptest.Server, source catalog.TokenSource, opts ...catalog.Option) *catalog.Client {
	t.Helper()
	opts = append([]catalog.Option{catalog.WithSleeper(noSleep)}, opts...)
	client, err := catalog.New(server.URL, catalog.NewTokenHolder(source), opts...)
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	return client
}

const trackPayload = `{"tracks":{"items":[{"id":"t1","name":"One More Time","duration_ms":320357,"popularity":77,
"artists":[{"id":"a1","name":"Daft Punk"}],
"album":{"name":"Discovery","release_date":"2001-03-12","images":[{"url":"https://img/640.jpg","width":640},{"url":"https://img/300.jpg","width":300}]},
"external_ids":{"isrc":"GBDUW0000053"},"external_urls":{"spotify":"https://open.spotify.com/track/t1"}}]}}`

func TestNewRequiresBaseURLAndTokens(t *testing.T) {
	if _, err := catalog.New("", catalog.NewTokenHolder(nil)); err == nil {
		t.Fatal("expected error when base url missing")
	}
	if _, err := catalog.New("https://example.com", nil); err == nil {
		t.Fatal("expected error when token holder missing")
	}
}

func TestSearchSendsQueryAndBearer(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/search" {
			t.Errorf("unexpected path %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("q") != `track:"One More Time" artist:"Daft Punk"` || q.Get("type") != "track" {
			t.Errorf("unexpected query %q", r.URL.RawQuery)
		}
		if q.Get("limit") != "5" || q.Get("market") != "BR" {
			t.Errorf("unexpected limit/market %q", r.URL.RawQuery)
		}
		if r.Header.Get("Authorization") != "Bearer tok-1" {
			t.Errorf("unexpected auth header %q", r.Header.Get("Authorization"))
		}
		_, _ = w.Write([]byte(trackPayload))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server, &stubSource{tokens: []string{"tok-1"}})
	tracks, err := client.Search(context.Background(), catalog.SearchRequest{
		Query:  `track:"One More Time" artist:"Daft Punk"`,
		Limit:  5,
		Market: "BR",
	})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(tracks) != 1 || tracks[0].Name != "One More Time" || tracks[0].PrimaryArtist().Name != "Daft Punk" {
		t.Fatalf("unexpected tracks: %#v", tracks)
	}
	cand := catalog.NewCandidate(tracks[0])
	if cand.CoverURL != "https://img/640.jpg" || cand.ReleaseDate != "2001-03-12" || cand.ISRC != "GBDUW0000053" {
		t.Fatalf("unexpected candidate: %#v", cand)
	}
}

func TestSearchOmitsEmptyMarket(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.URL.Query()["market"]; ok {
			t.Errorf("market should be omitted: %q", r.URL.RawQuery)
		}
		_, _ = w.Write([]byte(`{"tracks":{"items":[]}}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server, &stubSource{tokens: []string{"tok"}})
	if _, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x", Limit: 3}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
}

func TestSearchRejectsEmptyQuery(t *testing.T) {
	client, err := catalog.New("https://example.com", catalog.NewTokenHolder(&stubSource{tokens: []string{"t"}}))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	if _, err := client.Search(context.Background(), catalog.SearchRequest{Query: "  "}); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestSearchRetriesAfterRateLimit(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.Header().Set("Retry-After", "7")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(trackPayload))
	}))
	t.Cleanup(server.Close)

	var slept []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	client := newClient(t, server, &stubSource{tokens: []string{"tok"}}, catalog.WithSleeper(sleeper))
	tracks, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x"})
	if err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if len(tracks) != 1 {
		t.Fatalf("expected one track, got %d", len(tracks))
	}
	if len(slept) != 1 || slept[0] != 7*time.Second {
		t.Fatalf("expected a single 7s wait, got %v", slept)
	}
}

func TestSearchGivesUpAfterRateLimitBudget(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server, &stubSource{tokens: []string{"tok"}},
		catalog.WithRetryPolicy(catalog.RetryPolicy{MaxRetries: 3, MaxRateLimitRetries: 2, MaxRetryAfter: time.Second}))
	_, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("expected 3 calls, got %d", calls.Load())
	}
}

func TestSearchRefreshesTokenOnceOnUnauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.Header.Get("Authorization") != "Bearer fresh" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		_, _ = w.Write([]byte(trackPayload))
	}))
	t.Cleanup(server.Close)

	source := &stubSource{tokens: []string{"stale", "fresh"}}
	client := newClient(t, server, source)
	if _, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x"}); err != nil {
		t.Fatalf("Search returned error: %v", err)
	}
	if source.calls.Load() != 2 {
		t.Fatalf("expected 2 token exchanges, got %d", source.calls.Load())
	}
	if calls.Load() != 2 {
		t.Fatalf("expected 2 requests, got %d", calls.Load())
	}
}

func TestSearchStopsAfterSecondUnauthorized(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusUnauthorized)
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server, &stubSource{tokens: []string{"a", "b", "c"}})
	_, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x"})
	if !errors.Is(err, catalog.ErrNoToken) {
		t.Fatalf("expected ErrNoToken, got %v", err)
	}
	if calls.Load() != 2 {
		t.Fatalf("expected exactly one retry, got %d calls", calls.Load())
	}
}

func TestSearchRetriesServerErrorsWithLinearBackoff(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	var slept []time.Duration
	sleeper := func(_ context.Context, d time.Duration) error {
		slept = append(slept, d)
		return nil
	}
	client := newClient(t, server, &stubSource{tokens: []string{"tok"}},
		catalog.WithSleeper(sleeper),
		catalog.WithRetryPolicy(catalog.RetryPolicy{MaxRetries: 3, RetryDelay: time.Second, MaxRateLimitRetries: 1}))
	_, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x"})
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient error, got %v", err)
	}
	if calls.Load() != 4 {
		t.Fatalf("expected 4 calls, got %d", calls.Load())
	}
	want := []time.Duration{time.Second, 2 * time.Second, 3 * time.Second}
	if len(slept) != len(want) {
		t.Fatalf("unexpected sleeps %v", slept)
	}
	for i := range want {
		if slept[i] != want[i] {
			t.Fatalf("sleep %d = %v, want %v", i, slept[i], want[i])
		}
	}
}

func TestSearchDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"status":400,"message":"bad query"}}`))
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server, &stubSource{tokens: []string{"tok"}})
	_, err := client.Search(context.Background(), catalog.SearchRequest{Query: "x"})
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}
	if calls.Load() != 1 {
		t.Fatalf("expected a single call, got %d", calls.Load())
	}
}

func TestSearchWithoutCredentials(t *testing.T) {
	client, err := catalog.New("https://example.com", catalog.NewTokenHolder(nil))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	_, err = client.Search(context.Background(), catalog.SearchRequest{Query: "x"})
	if !errors.Is(err, catalog.ErrNoToken) || !errors.Is(err, services.ErrConfiguration) {
		t.Fatalf("expected configuration + no token error, got %v", err)
	}
}

func TestArtistAndStatus(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v1/artists/a1":
			_, _ = w.Write([]byte(`{"id":"a1","name":"Daft Punk","genres":["french house","electro"]}`))
		case "/v1/artists/missing":
			w.WriteHeader(http.StatusNotFound)
		case "/v1/search":
			if r.URL.Query().Get("q") != "test" || r.URL.Query().Get("limit") != "1" {
				t.Errorf("unexpected status query %q", r.URL.RawQuery)
			}
			_, _ = w.Write([]byte(`{"tracks":{"items":[]}}`))
		}
	}))
	t.Cleanup(server.Close)

	client := newClient(t, server, &stubSource{tokens: []string{"tok"}})
	artist, err := client.Artist(context.Background(), "a1")
	if err != nil {
		t.Fatalf("Artist returned error: %v", err)
	}
	if len(artist.Genres) != 2 || artist.Genres[0] != "french house" {
		t.Fatalf("unexpected genres: %v", artist.Genres)
	}
	if _, err := client.Artist(context.Background(), "missing"); !errors.Is(err, services.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	status := client.Status(context.Background())
	if !status.CredentialsConfigured || !status.TokenValid || !status.APIAccessible {
		t.Fatalf("unexpected status: %#v", status)
	}
	if status.TokenExpires.IsZero() {
		t.Fatal("expected token expiry in status")
	}
}

func TestStatusWithoutCredentials(t *testing.T) {
	client, err := catalog.New("https://example.com", catalog.NewTokenHolder(nil))
	if err != nil {
		t.Fatalf("New returned error: %v", err)
	}
	status := client.Status(context.Background())
	if status.CredentialsConfigured || status.APIAccessible || status.Error == "" {
		t.Fatalf("unexpected status: %#v", status)
	}
}
