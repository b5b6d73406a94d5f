package main

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"spotafy/internal/identity"
	"spotafy/internal/library"
	"spotafy/internal/media/tags"
	"spotafy/internal/testsupport"
)

func TestConfigInitWritesSample(t *testing.T) {
	target := filepath.Join(t.TempDir(), "nested", "config.toml")

	out, _, err := runCLI(t, []string{"config", "init", "--path", target}, "")
	if err != nil {
		t.Fatalf("config init: %v", err)
	}
	if !strings.Contains(out, "Wrote sample configuration") {
		t.Fatalf("unexpected output %q", out)
	}
	data, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("read sample: %v", err)
	}
	if !strings.Contains(string(data), "[catalog]") {
		t.Fatalf("sample config missing catalog section")
	}

	if _, _, err := runCLI(t, []string{"config", "init", "--path", target}, ""); err == nil {
		t.Fatal("expected error when config already exists")
	}
	if _, _, err := runCLI(t, []string{"config", "init", "--path", target, "--overwrite"}, ""); err != nil {
		t.Fatalf("config init --overwrite: %v", err)
	}
}

func TestConfigValidate(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"config", "validate"}, env.configPath)
	if err != nil {
		t.Fatalf("config validate: %v", err)
	}
	if !strings.Contains(out, "Configuration valid") || !strings.Contains(out, "Catalog credentials: no") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSongsListAndShow(t *testing.T) {
	env := setupCLITestEnv(t)
	songs := env.seed(t,
		[3]string{"Daft Punk", "One More Time", "2001-03-12"},
		[3]string{"Queen", "Bohemian Rhapsody", "1975-10-31"},
	)

	out, _, err := runCLI(t, []string{"songs", "list"}, env.configPath)
	if err != nil {
		t.Fatalf("songs list: %v", err)
	}
	if !strings.Contains(out, "One More Time") || !strings.Contains(out, "Bohemian Rhapsody") {
		t.Fatalf("expected both songs listed, got %q", out)
	}

	out, _, err = runCLI(t, []string{"songs", "list", "--json", "--limit", "1"}, env.configPath)
	if err != nil {
		t.Fatalf("songs list --json: %v", err)
	}
	if !strings.Contains(out, `"token": "`+songs[1].Token+`"`) || strings.Contains(out, songs[0].Token) {
		t.Fatalf("expected only the newest song, got %q", out)
	}

	out, _, err = runCLI(t, []string{"songs", "show", songs[0].Token}, env.configPath)
	if err != nil {
		t.Fatalf("songs show: %v", err)
	}
	if !strings.Contains(out, "Artist:      Daft Punk") || !strings.Contains(out, "Album:       Single") {
		t.Fatalf("unexpected detail output %q", out)
	}

	if _, _, err := runCLI(t, []string{"songs", "show", "missing"}, env.configPath); err == nil {
		t.Fatal("expected error for unknown token")
	}
}

func TestSongsListEmptyLibrary(t *testing.T) {
	env := setupCLITestEnv(t)

	out, _, err := runCLI(t, []string{"songs", "list", "--json"}, env.configPath)
	if err != nil {
		t.Fatalf("songs list: %v", err)
	}
	if strings.TrimSpace(out) != "[]" {
		t.Fatalf("expected empty JSON array, got %q", out)
	}
}

func TestSongsRegenTokenUnchanged(t *testing.T) {
	env := setupCLITestEnv(t)
	songs := env.seed(t, [3]string{"Daft Punk", "One More Time", "2001-03-12"})

	out, _, err := runCLI(t, []string{"songs", "regen-token", songs[0].Token}, env.configPath)
	if err != nil {
		t.Fatalf("songs regen-token: %v", err)
	}
	if !strings.Contains(out, "Token unchanged") {
		t.Fatalf("unexpected output %q", out)
	}
}

func TestSongsRenameRekeysSong(t *testing.T) {
	env := setupCLITestEnv(t)
	songs := env.seed(t, [3]string{"Daft Punk", "One More Tme", "2001-03-12"})

	out, _, err := runCLI(t, []string{"songs", "rename", songs[0].Token, "One", "More", "Time"}, env.configPath)
	if err != nil {
		t.Fatalf("songs rename: %v", err)
	}
	want := identity.Generate("Daft Punk", "One More Time", "2001-03-12")
	if !strings.Contains(out, songs[0].Token+" -> "+want) {
		t.Fatalf("unexpected output %q", out)
	}

	out, _, err = runCLI(t, []string{"songs", "show", want}, env.configPath)
	if err != nil {
		t.Fatalf("songs show renamed: %v", err)
	}
	if !strings.Contains(out, "Title:       One More Time") {
		t.Fatalf("rename not persisted: %q", out)
	}
}

func TestSongsRenameCollisionKeepsTitle(t *testing.T) {
	env := setupCLITestEnv(t)
	songs := env.seed(t,
		[3]string{"Daft Punk", "One More Time", "2001-03-12"},
		[3]string{"Daft Punk", "Aerodynamic", "2001-03-12"},
	)

	_, _, err := runCLI(t, []string{"songs", "rename", songs[1].Token, "One More Time"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "title left unchanged") {
		t.Fatalf("expected collision error, got %v", err)
	}

	out, _, err := runCLI(t, []string{"songs", "show", songs[1].Token}, env.configPath)
	if err != nil {
		t.Fatalf("songs show: %v", err)
	}
	if !strings.Contains(out, "Title:       Aerodynamic") {
		t.Fatalf("title should be restored: %q", out)
	}
}

func TestSongsShowTags(t *testing.T) {
	env := setupCLITestEnv(t)
	songs := env.seed(t, [3]string{"Queen", "Bohemian Rhapsody", "1975-10-31"})

	out, _, err := runCLI(t, []string{"songs", "show", "--tags", songs[0].Token}, env.configPath)
	if err != nil {
		t.Fatalf("songs show --tags: %v", err)
	}
	if !strings.Contains(out, "Tags:        no audio file recorded") {
		t.Fatalf("expected missing audio note, got %q", out)
	}

	audio := testsupport.WriteDownload(t, t.TempDir(), "song.mp3")
	if err := tags.Write(audio, tags.Metadata{
		Title:       "Bohemian Rhapsody",
		Artist:      "Queen",
		Album:       library.SingleAlbumTitle,
		ReleaseDate: "1975-10-31",
		Genre:       "Rock",
	}); err != nil {
		t.Fatalf("tags.Write: %v", err)
	}
	store, err := library.Open(env.cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	if err := store.SetMediaPaths(context.Background(), songs[0].ID, audio, ""); err != nil {
		t.Fatalf("SetMediaPaths: %v", err)
	}
	store.Close()

	out, _, err = runCLI(t, []string{"songs", "show", "--tags", songs[0].Token}, env.configPath)
	if err != nil {
		t.Fatalf("songs show --tags: %v", err)
	}
	for _, want := range []string{"ID3 title:   Bohemian Rhapsody", "ID3 artist:  Queen", "ID3 year:    1975", "ID3 genre:   Rock"} {
		if !strings.Contains(out, want) {
			t.Fatalf("missing %q in %q", want, out)
		}
	}
}

func TestSearchFindsExactMatchWithoutImport(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t,
		[3]string{"Daft Punk", "One More Time", "2001-03-12"},
		[3]string{"Daft Punk", "Aerodynamic", "2001-03-12"},
	)

	out, _, err := runCLI(t, []string{"search", "one-more-time-daft-punk"}, env.configPath)
	if err != nil {
		t.Fatalf("search: %v", err)
	}
	if !strings.Contains(out, "exact matches") || !strings.Contains(out, "0 import attempt(s)") {
		t.Fatalf("unexpected output %q", out)
	}

	out, _, err = runCLI(t, []string{"search", "--json", "Daft", "Punk"}, env.configPath)
	if err != nil {
		t.Fatalf("search --json: %v", err)
	}
	if !strings.Contains(out, `"kind": "partial"`) || !strings.Contains(out, `"state": "found"`) {
		t.Fatalf("unexpected JSON %q", out)
	}
}

func TestImportArtistRequiresCatalog(t *testing.T) {
	env := setupCLITestEnv(t)

	_, _, err := runCLI(t, []string{"import", "--artist", "Daft Punk"}, env.configPath)
	if err == nil || !strings.Contains(err.Error(), "catalog not configured") {
		t.Fatalf("expected configuration error, got %v", err)
	}
	if _, _, err := runCLI(t, []string{"import"}, env.configPath); err == nil {
		t.Fatal("expected error without terms")
	}
}

func TestStatusWithoutCredentials(t *testing.T) {
	env := setupCLITestEnv(t)
	env.seed(t, [3]string{"Daft Punk", "One More Time", "2001-03-12"})

	out, _, err := runCLI(t, []string{"status"}, env.configPath)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(out, "1 song(s)") || !strings.Contains(out, "[WARN] Not configured") {
		t.Fatalf("unexpected status output %q", out)
	}
}

func TestCleanRemovesStaleDownloads(t *testing.T) {
	env := setupCLITestEnv(t)
	if err := os.MkdirAll(env.cfg.Paths.DownloadDir, 0o755); err != nil {
		t.Fatalf("mkdir downloads: %v", err)
	}
	stale := filepath.Join(env.cfg.Paths.DownloadDir, "old.mp3.part")
	if err := os.WriteFile(stale, []byte("x"), 0o644); err != nil {
		t.Fatalf("write stale: %v", err)
	}
	stamp := time.Now().Add(-48 * time.Hour)
	if err := os.Chtimes(stale, stamp, stamp); err != nil {
		t.Fatalf("chtimes: %v", err)
	}

	out, _, err := runCLI(t, []string{"clean", "--dry-run"}, env.configPath)
	if err != nil {
		t.Fatalf("clean --dry-run: %v", err)
	}
	if !strings.Contains(out, "would remove "+stale) {
		t.Fatalf("unexpected dry-run output %q", out)
	}
	if _, err := os.Stat(stale); err != nil {
		t.Fatalf("dry run removed the file: %v", err)
	}

	if _, _, err := runCLI(t, []string{"clean"}, env.configPath); err != nil {
		t.Fatalf("clean: %v", err)
	}
	if _, err := os.Stat(stale); !os.IsNotExist(err) {
		t.Fatalf("expected stale download removed, got %v", err)
	}

	if _, _, err := runCLI(t, []string{"clean", "--max-age", "1s"}, env.configPath); err == nil {
		t.Fatal("expected error for max-age below download timeout")
	}
}
