package acquire_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
	"time"

	"spotafy/internal/acquire"
	"spotafy/internal/services"
)

type fakeExecutor struct {
	run   func(ctx context.Context, outDir string) ([]byte, error)
	calls [][]string
}

func (f *fakeExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	f.calls = append(f.calls, append([]string{binary}, args...))
	return f.run(ctx, outputDir(args))
}

// outputDir returns the directory of the -o template.
func outputDir(args []string) string {
	for i, arg := range args {
		if arg == "-o" && i+1 < len(args) {
			return filepath.Dir(args[i+1])
		}
	}
	return ""
}

func writeMP3(t *testing.T, path string) {
	t.Helper()
	if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
}

func workDirs(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatalf("read dir: %v", err)
	}
	var dirs []string
	for _, entry := range entries {
		if entry.IsDir() {
			dirs = append(dirs, entry.Name())
		}
	}
	return dirs
}

func TestYtDlpArgs(t *testing.T) {
	y := acquire.NewYtDlp("", "/data/downloads", 0)
	want := []string{
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"-o", "/data/downloads/dl-1/%(title)s.%(ext)s",
		"--print", "after_move:filepath",
		"ytsearch1:Daft Punk - One More Time",
	}
	if got := y.Args("/data/downloads/dl-1", "Daft Punk - One More Time"); !slices.Equal(got, want) {
		t.Fatalf("Args = %v, want %v", got, want)
	}
}

func TestDownloadUsesPrintedPath(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{run: func(_ context.Context, outDir string) ([]byte, error) {
		path := filepath.Join(outDir, "Daft Punk - One More Time.mp3")
		if err := os.WriteFile(path, []byte("audio"), 0o644); err != nil {
			return nil, err
		}
		return []byte("[download] done\n" + path + "\n"), nil
	}}
	y := acquire.NewYtDlp("yt-dlp", dir, time.Minute, acquire.WithExecutor(exec))

	path, err := y.Download(context.Background(), "Daft Punk - One More Time")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(dir, "Daft Punk - One More Time.mp3") {
		t.Fatalf("unexpected path %q", path)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("downloaded file missing: %v", err)
	}
	if len(exec.calls) != 1 || exec.calls[0][0] != "yt-dlp" {
		t.Fatalf("unexpected calls %v", exec.calls)
	}
	if dirs := workDirs(t, dir); len(dirs) != 0 {
		t.Fatalf("work directory should be removed, found %v", dirs)
	}
}

func TestDownloadFallsBackToNewestFile(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{run: func(_ context.Context, outDir string) ([]byte, error) {
		if err := os.WriteFile(filepath.Join(outDir, "older.mp3"), []byte("a"), 0o644); err != nil {
			return nil, err
		}
		newer := filepath.Join(outDir, "newer.mp3")
		if err := os.WriteFile(newer, []byte("b"), 0o644); err != nil {
			return nil, err
		}
		future := time.Now().Add(time.Minute)
		return nil, os.Chtimes(newer, future, future)
	}}
	y := acquire.NewYtDlp("yt-dlp", dir, time.Minute, acquire.WithExecutor(exec))

	path, err := y.Download(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path != filepath.Join(dir, "newer.mp3") {
		t.Fatalf("expected newest mp3, got %q", path)
	}
}

func TestDownloadIgnoresOtherDownloadsInSharedDir(t *testing.T) {
	dir := t.TempDir()
	exec := &fakeExecutor{run: func(_ context.Context, outDir string) ([]byte, error) {
		// Another import finishes in the shared directory while this one runs.
		other := filepath.Join(dir, "Someone Else - Other Song.mp3")
		if err := os.WriteFile(other, []byte("other"), 0o644); err != nil {
			return nil, err
		}
		future := time.Now().Add(time.Hour)
		if err := os.Chtimes(other, future, future); err != nil {
			return nil, err
		}
		return nil, os.WriteFile(filepath.Join(outDir, "Queen - Bohemian Rhapsody.mp3"), []byte("mine"), 0o644)
	}}
	y := acquire.NewYtDlp("yt-dlp", dir, time.Minute, acquire.WithExecutor(exec))

	path, err := y.Download(context.Background(), "queen bohemian rhapsody")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if filepath.Base(path) != "Queen - Bohemian Rhapsody.mp3" {
		t.Fatalf("picked up another download: %q", path)
	}
}

func TestDownloadKeepsExistingFileWithSameName(t *testing.T) {
	dir := t.TempDir()
	existing := filepath.Join(dir, "Intro.mp3")
	writeMP3(t, existing)

	exec := &fakeExecutor{run: func(_ context.Context, outDir string) ([]byte, error) {
		path := filepath.Join(outDir, "Intro.mp3")
		if err := os.WriteFile(path, []byte("new intro"), 0o644); err != nil {
			return nil, err
		}
		return []byte(path + "\n"), nil
	}}
	y := acquire.NewYtDlp("yt-dlp", dir, time.Minute, acquire.WithExecutor(exec))

	path, err := y.Download(context.Background(), "intro")
	if err != nil {
		t.Fatalf("Download: %v", err)
	}
	if path == existing || filepath.Base(path) != "Intro.mp3" {
		t.Fatalf("expected the new file in its own directory, got %q", path)
	}
	if !strings.HasPrefix(filepath.Base(filepath.Dir(path)), "dl-") {
		t.Fatalf("expected a work directory, got %q", filepath.Dir(path))
	}
	data, err := os.ReadFile(existing)
	if err != nil || string(data) != "audio" {
		t.Fatalf("existing file was replaced: %q %v", data, err)
	}
	data, err = os.ReadFile(path)
	if err != nil || string(data) != "new intro" {
		t.Fatalf("new file content: %q %v", data, err)
	}
}

func TestDownloadFailures(t *testing.T) {
	dir := t.TempDir()

	failing := &fakeExecutor{run: func(context.Context, string) ([]byte, error) {
		return nil, errors.New("exit status 1: ERROR: no results")
	}}
	y := acquire.NewYtDlp("yt-dlp", dir, time.Minute, acquire.WithExecutor(failing))
	if _, err := y.Download(context.Background(), "nothing"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error, got %v", err)
	}

	empty := &fakeExecutor{run: func(context.Context, string) ([]byte, error) {
		return []byte("no file\n"), nil
	}}
	y = acquire.NewYtDlp("yt-dlp", dir, time.Minute, acquire.WithExecutor(empty))
	if _, err := y.Download(context.Background(), "nothing"); !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected external tool error when no file appears, got %v", err)
	}

	slow := &fakeExecutor{run: func(ctx context.Context, _ string) ([]byte, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	y = acquire.NewYtDlp("yt-dlp", dir, 20*time.Millisecond, acquire.WithExecutor(slow))
	if _, err := y.Download(context.Background(), "slow"); !errors.Is(err, services.ErrTimeout) {
		t.Fatalf("expected timeout, got %v", err)
	}

	if _, err := y.Download(context.Background(), "  "); !errors.Is(err, services.ErrValidation) {
		t.Fatalf("expected validation error for empty query, got %v", err)
	}
	if dirs := workDirs(t, dir); len(dirs) != 0 {
		t.Fatalf("failed downloads must not leave work directories, found %v", dirs)
	}
}
