package staging

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"spotafy/internal/logging"
)

func writeAged(t *testing.T, path string, age time.Duration) {
	t.Helper()
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	stamp := time.Now().Add(-age)
	if err := os.Chtimes(path, stamp, stamp); err != nil {
		t.Fatalf("chtimes %s: %v", path, err)
	}
}

func TestCleanStaleInvalidPaths(t *testing.T) {
	for _, dir := range []string{"", "   ", "/nonexistent/path/12345"} {
		result := CleanStale(context.Background(), dir, time.Hour, logging.NewNop())
		if len(result.Removed) != 0 || len(result.Errors) != 0 {
			t.Errorf("expected empty result for path %q", dir)
		}
	}
}

func TestCleanStaleRemovesOldEntries(t *testing.T) {
	tmpDir := t.TempDir()

	oldFile := filepath.Join(tmpDir, "Daft Punk - One More Time.mp3")
	writeAged(t, oldFile, 3*time.Hour)
	partial := filepath.Join(tmpDir, "Queen - Bohemian Rhapsody.mp3.part")
	writeAged(t, partial, 2*time.Hour)
	recent := filepath.Join(tmpDir, "Rick Astley - Never Gonna Give You Up.mp3")
	writeAged(t, recent, time.Minute)

	oldDir := filepath.Join(tmpDir, "fragments")
	if err := os.Mkdir(oldDir, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	stamp := time.Now().Add(-4 * time.Hour)
	if err := os.Chtimes(oldDir, stamp, stamp); err != nil {
		t.Fatalf("chtimes dir: %v", err)
	}

	result := CleanStale(context.Background(), tmpDir, time.Hour, nil)
	if len(result.Errors) != 0 {
		t.Fatalf("unexpected errors %#v", result.Errors)
	}
	if len(result.Removed) != 3 {
		t.Fatalf("expected 3 removed, got %v", result.Removed)
	}
	if result.Removed[0] != oldDir {
		t.Fatalf("expected oldest entry removed first, got %v", result.Removed)
	}
	for _, path := range []string{oldFile, partial, oldDir} {
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Fatalf("expected %s to be removed", path)
		}
	}
	if _, err := os.Stat(recent); err != nil {
		t.Fatalf("recent download should still exist: %v", err)
	}
}

func TestListEntries(t *testing.T) {
	tmpDir := t.TempDir()
	writeAged(t, filepath.Join(tmpDir, "b.mp3"), time.Minute)
	writeAged(t, filepath.Join(tmpDir, "a.mp3"), time.Hour)
	sub := filepath.Join(tmpDir, "sub")
	if err := os.Mkdir(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	writeAged(t, filepath.Join(sub, "c.webm"), 0)

	entries, err := ListEntries(tmpDir)
	if err != nil {
		t.Fatalf("ListEntries: %v", err)
	}
	if len(entries) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(entries))
	}
	if entries[0].Name != "a.mp3" || entries[0].Size != 5 {
		t.Fatalf("expected oldest file first, got %#v", entries[0])
	}
	for _, e := range entries {
		if e.Name == "sub" && (!e.IsDir || e.Size != 5) {
			t.Fatalf("unexpected directory entry %#v", e)
		}
	}

	if entries, err := ListEntries("  "); err != nil || entries != nil {
		t.Fatalf("expected nil for blank dir, got %v %v", entries, err)
	}
}
