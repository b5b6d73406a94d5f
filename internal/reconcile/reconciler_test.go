package reconcile_test

import (
	"context"
	"errors"
	"testing"

	"spotafy/internal/reconcile"
)

func TestResolveStopsAtStructuredMatch(t *testing.T) {
	fake := newFakeCatalog().
		on(`track:"One More Time" artist:"Daft Punk"`, track("1", "Daft Punk", "One More Time", 80))
	r := reconcile.New(fake, staticGenres{"french house"}, reconcile.DefaultThresholds())

	res, err := r.Resolve(context.Background(), reconcile.Query{Artist: "Daft Punk", Title: "One More Time"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res == nil || res.Strategy != reconcile.StrategyStructured {
		t.Fatalf("expected structured match, got %#v", res)
	}
	if got := len(fake.queries()); got != 1 {
		t.Fatalf("expected exactly one catalog call, got %d: %v", got, fake.queries())
	}
	if fake.calls[0].Limit != 5 || fake.calls[0].Market != "BR" {
		t.Fatalf("unexpected structured request: %#v", fake.calls[0])
	}
	if len(res.Candidate.Genres) != 1 || res.Candidate.Genres[0] != "french house" {
		t.Fatalf("expected genres from enrichment, got %v", res.Candidate.Genres)
	}
	if res.Degraded {
		t.Fatal("unexpected degraded flag")
	}
}

func TestResolveCascadesInOrder(t *testing.T) {
	fake := newFakeCatalog()
	r := reconcile.New(fake, nil, reconcile.DefaultThresholds())

	res, err := r.Resolve(context.Background(), reconcile.Query{Artist: "Nobody", Title: "Nothing Here"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res != nil {
		t.Fatalf("expected no match, got %#v", res)
	}
	want := []string{
		`track:"Nothing Here" artist:"Nobody"`,
		`"Nothing Here"`,
		`artist:"Nobody"`,
		`Nobody Nothing Here`,
	}
	got := fake.queries()
	// structured, three alternatives, then broad variants; the artist-only query
	// repeats artist:"Nobody" last.
	if len(got) <= len(want) {
		t.Fatalf("expected at least %d queries, got %v", len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("query %d = %q, want %q (all: %v)", i, got[i], want[i], got)
		}
	}
	if last := got[len(got)-1]; last != `artist:"Nobody"` {
		t.Fatalf("expected artist-only query last, got %q", last)
	}
}

func TestResolveAlternativesAcceptsPhraseMatch(t *testing.T) {
	fake := newFakeCatalog().
		on(`"Evidências"`, track("9", "Chitãozinho & Xororó", "Evidências", 70))
	r := reconcile.New(fake, nil, reconcile.DefaultThresholds())

	res, err := r.Resolve(context.Background(), reconcile.Query{Artist: "Chitaozinho e Xororo", Title: "Evidências"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res == nil || res.Strategy != reconcile.StrategyAlternatives {
		t.Fatalf("expected alternatives match, got %#v", res)
	}
	if fake.calls[1].Market != "" || fake.calls[1].Limit != 3 {
		t.Fatalf("unexpected alternatives request: %#v", fake.calls[1])
	}
}

func TestResolveUnknownArtistUsesBroadOnly(t *testing.T) {
	fake := newFakeCatalog().
		on(`"Never Gonna Give You Up"`, track("r", "Rick Astley", "Never Gonna Give You Up", 85))
	r := reconcile.New(fake, nil, reconcile.DefaultThresholds())

	for _, artist := range []string{"", "Artista Desconhecido", "unknown artist", "DESCONHECIDO"} {
		fake.calls = nil
		res, err := r.Resolve(context.Background(), reconcile.Query{Artist: artist, Title: "Never Gonna Give You Up (Official Video)"})
		if err != nil {
			t.Fatalf("Resolve returned error: %v", err)
		}
		if res == nil || res.Strategy != reconcile.StrategyBroad {
			t.Fatalf("artist %q: expected broad match, got %#v", artist, res)
		}
		if fake.countPrefix("track:") != 0 || fake.countPrefix("artist:") != 0 {
			t.Fatalf("artist %q: structured or artist queries issued: %v", artist, fake.queries())
		}
		if fake.calls[0].Limit != 20 {
			t.Fatalf("expected broad limit 20, got %d", fake.calls[0].Limit)
		}
	}
}

func TestResolveArtistStrategyPicksMostPopular(t *testing.T) {
	fake := newFakeCatalog().
		on(`artist:"Anitta"`,
			track("a", "Anitta", "Zzz", 40),
			track("b", "Anitta", "Yyy", 90),
			track("c", "Anitta", "Xxx", 90),
		)
	r := reconcile.New(fake, nil, reconcile.DefaultThresholds())

	res, err := r.Resolve(context.Background(), reconcile.Query{Artist: "Anitta", Title: "qqqqqqqqqqqq"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res == nil || res.Strategy != reconcile.StrategyArtist || res.Candidate.ID != "b" {
		t.Fatalf("expected most popular artist track b, got %#v", res)
	}
}

func TestResolveTreatsTransportErrorsAsNoResult(t *testing.T) {
	fake := newFakeCatalog()
	fake.fail[`track:"One More Time" artist:"Daft Punk"`] = true
	fake.on(`"One More Time"`, track("1", "Daft Punk", "One More Time", 80))
	r := reconcile.New(fake, nil, reconcile.DefaultThresholds())

	res, err := r.Resolve(context.Background(), reconcile.Query{Artist: "Daft Punk", Title: "One More Time"})
	if err != nil {
		t.Fatalf("Resolve returned error: %v", err)
	}
	if res == nil || res.Strategy != reconcile.StrategyAlternatives {
		t.Fatalf("expected alternatives match after transport failure, got %#v", res)
	}
}

func TestResolveReturnsContextErrors(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	r := reconcile.New(newFakeCatalog(), nil, reconcile.DefaultThresholds())
	if _, err := r.Resolve(ctx, reconcile.Query{Artist: "a", Title: "b"}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
}

func TestResolveWithFallbackKeepsLowConfidenceMatch(t *testing.T) {
	fake := newFakeCatalog().
		on(`track:"One More Time" artist:"Daft Punk"`, track("1", "Daft Punk", "Harder Better Faster", 80))
	th := reconcile.DefaultThresholds()
	th.Structured = 0.5
	r := reconcile.New(fake, nil, th)

	res, err := r.ResolveWithFallback(context.Background(),
		reconcile.Query{Artist: "Daft Punk", Title: "One More Time"}, "Daft Punk - One More Time")
	if err != nil {
		t.Fatalf("ResolveWithFallback returned error: %v", err)
	}
	if res == nil {
		t.Fatal("expected degraded match rather than nil")
	}
	if !res.Degraded || res.Strategy != reconcile.StrategyStructured {
		t.Fatalf("expected degraded structured match, got %#v", res)
	}
	if res.Confidence >= th.FallbackConfidence {
		t.Fatalf("expected confidence below fallback threshold, got %v", res.Confidence)
	}
	if fake.countPrefix(`"Daft Punk - One More Time"`) != 1 {
		t.Fatalf("expected original-term search to be attempted, got %v", fake.queries())
	}
}

func TestResolveWithFallbackPrefersOriginalTerm(t *testing.T) {
	fake := newFakeCatalog().
		on(`track:"One More Time" artist:"Daft Punk"`, track("1", "Daft Punk", "Harder Better Faster", 80)).
		on(`"Daft Punk - One More Time"`, track("2", "Daft Punk", "One More Time", 80))
	th := reconcile.DefaultThresholds()
	th.Structured = 0.5
	r := reconcile.New(fake, nil, th)

	res, err := r.ResolveWithFallback(context.Background(),
		reconcile.Query{Artist: "Daft Punk", Title: "One More Time"}, "Daft Punk - One More Time")
	if err != nil {
		t.Fatalf("ResolveWithFallback returned error: %v", err)
	}
	if res == nil || res.Strategy != reconcile.StrategyOriginalTerm || res.Candidate.ID != "2" {
		t.Fatalf("expected original-term match, got %#v", res)
	}
	if res.Degraded {
		t.Fatal("original-term match should not be degraded")
	}
}

func TestResolveWithFallbackAcceptsConfidentMatch(t *testing.T) {
	fake := newFakeCatalog().
		on(`track:"One More Time" artist:"Daft Punk"`, track("1", "Daft Punk", "One More Time", 80))
	r := reconcile.New(fake, nil, reconcile.DefaultThresholds())

	res, err := r.ResolveWithFallback(context.Background(),
		reconcile.Query{Artist: "Daft Punk", Title: "One More Time"}, "daft punk one more time")
	if err != nil {
		t.Fatalf("ResolveWithFallback returned error: %v", err)
	}
	if res == nil || res.Confidence < 0.99 {
		t.Fatalf("expected confident match, got %#v", res)
	}
	if len(fake.queries()) != 1 {
		t.Fatalf("expected no fallback queries, got %v", fake.queries())
	}
}

func TestIsUnknownArtist(t *testing.T) {
	for _, in := range []string{"", "  ", "Artista Desconhecido", "UNKNOWN ARTIST", "desconhecido"} {
		if !reconcile.IsUnknownArtist(in) {
			t.Errorf("IsUnknownArtist(%q) = false", in)
		}
	}
	if reconcile.IsUnknownArtist("Daft Punk") {
		t.Error("IsUnknownArtist(Daft Punk) = true")
	}
}
