package main

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"spotafy/internal/importer"
	"spotafy/internal/library"
	"spotafy/internal/services"
)

type stubImporter struct {
	active  atomic.Int32
	maxSeen atomic.Int32
}

func (s *stubImporter) Import(_ context.Context, term string) (*importer.Outcome, error) {
	n := s.active.Add(1)
	defer s.active.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	time.Sleep(10 * time.Millisecond)
	if strings.HasPrefix(term, "bad") {
		return nil, services.Wrap(services.ErrExternalTool, "download", "yt-dlp", "no result", errors.New("exit 1"))
	}
	return &importer.Outcome{
		Term:    term,
		Created: term != "old",
		Song:    &library.Song{ID: 1, Token: "tok-" + term, Title: term, ArtistName: "Artist"},
	}, nil
}

func TestImportTermsKeepsOrderAndRecordsFailures(t *testing.T) {
	imp := &stubImporter{}
	terms := []string{"one", "bad one", "old", "two"}

	reports := importTerms(context.Background(), imp, terms, 2)
	if len(reports) != len(terms) {
		t.Fatalf("expected %d reports, got %d", len(terms), len(reports))
	}
	wantStatus := []string{importStatusCreated, services.KindFailed, importStatusExisting, importStatusCreated}
	for i, r := range reports {
		if r.Term != terms[i] {
			t.Fatalf("report %d: term %q, want %q", i, r.Term, terms[i])
		}
		if r.Status != wantStatus[i] {
			t.Fatalf("report %d: status %q, want %q", i, r.Status, wantStatus[i])
		}
	}
	if reports[1].Error == "" || reports[0].Token != "tok-one" {
		t.Fatalf("unexpected reports %#v", reports)
	}
	if got := imp.maxSeen.Load(); got > 2 {
		t.Fatalf("expected at most 2 concurrent imports, saw %d", got)
	}
	if err := importFailure(reports); err == nil || !strings.Contains(err.Error(), "1 of 4") {
		t.Fatalf("expected failure summary, got %v", err)
	}
}

type blockingImporter struct{}

func (blockingImporter) Import(ctx context.Context, _ string) (*importer.Outcome, error) {
	<-ctx.Done()
	return nil, ctx.Err()
}

func TestImportTermsStopsWhenCancelled(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	done := make(chan []importReport, 1)
	go func() {
		done <- importTerms(ctx, blockingImporter{}, []string{"one", "two", "three"}, 2)
	}()

	select {
	case reports := <-done:
		for i, r := range reports {
			if r.Status != services.KindFailed || !strings.Contains(r.Error, "deadline exceeded") {
				t.Fatalf("report %d: expected cancellation failure, got %#v", i, r)
			}
		}
	case <-time.After(5 * time.Second):
		t.Fatal("importTerms did not return after cancellation")
	}
}

func TestRenderImportReports(t *testing.T) {
	out := renderImportReports([]importReport{
		{Term: "daft punk one more time", Status: importStatusCreated, Token: "abc", Title: "One More Time", Artist: "Daft Punk", Degraded: true},
		{Term: "nothing", Status: services.KindFailed, Error: "download failed"},
	})
	for _, want := range []string{"Daft Punk - One More Time (low confidence)", "download failed", "abc"} {
		if !strings.Contains(out, want) {
			t.Fatalf("expected %q in %q", want, out)
		}
	}
}
