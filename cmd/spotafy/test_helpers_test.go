package main

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"spotafy/internal/config"
	"spotafy/internal/library"
	"spotafy/internal/testsupport"
)

type cliTestEnv struct {
	configPath string
	dataDir    string
	cfg        *config.Config
}

func setupCLITestEnv(t *testing.T) *cliTestEnv {
	t.Helper()

	base := t.TempDir()
	t.Setenv("HOME", filepath.Join(base, "home"))
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(base, "home", ".config"))
	t.Setenv("SPOTIFY_CLIENT_ID", "")
	t.Setenv("SPOTIFY_CLIENT_SECRET", "")

	binDir := filepath.Join(base, "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		t.Fatalf("mkdir bin: %v", err)
	}
	for _, name := range []string{"yt-dlp", "ffprobe"} {
		if err := os.WriteFile(filepath.Join(binDir, name), []byte("#!/bin/sh\nexit 1\n"), 0o755); err != nil {
			t.Fatalf("write stub %s: %v", name, err)
		}
	}

	dataDir := filepath.Join(base, "data")
	configPath := filepath.Join(base, "spotafy.toml")
	content := fmt.Sprintf(
		"[paths]\ndata_dir = %q\n\n[acquire]\nytdlp_binary = %q\nffprobe_binary = %q\n\n[logging]\nlevel = \"error\"\n",
		dataDir,
		filepath.Join(binDir, "yt-dlp"),
		filepath.Join(binDir, "ffprobe"),
	)
	if err := os.WriteFile(configPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	cfg, _, _, err := config.Load(configPath)
	if err != nil {
		t.Fatalf("config.Load: %v", err)
	}
	return &cliTestEnv{configPath: configPath, dataDir: dataDir, cfg: cfg}
}

// seed imports songs through a short-lived store handle.
func (e *cliTestEnv) seed(t *testing.T, songs ...[3]string) []*library.Song {
	t.Helper()
	store, err := library.Open(e.cfg)
	if err != nil {
		t.Fatalf("library.Open: %v", err)
	}
	defer store.Close()
	out := make([]*library.Song, 0, len(songs))
	for _, s := range songs {
		out = append(out, testsupport.MustImportSong(t, store, s[0], s[1], s[2]))
	}
	return out
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	var flags []string
	if configPath != "" {
		flags = append(flags, "--config", configPath)
	}
	cmd.SetArgs(append(flags, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}
