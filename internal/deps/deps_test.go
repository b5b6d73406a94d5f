package deps

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestCheckBinaries(t *testing.T) {
	binDir := t.TempDir()
	present := filepath.Join(binDir, "present")
	script := []byte("#!/bin/sh\nexit 0\n")
	if err := os.WriteFile(present, script, 0o755); err != nil {
		t.Fatalf("write stub: %v", err)
	}
	reqs := []Requirement{
		{Name: "Present", Command: present},
		{Name: "Missing", Command: "clearly-not-present-binary"},
		{Name: "Blank", Command: "  ", Optional: true},
	}

	results := CheckBinaries(reqs)
	if len(results) != len(reqs) {
		t.Fatalf("expected %d results, got %d", len(reqs), len(results))
	}
	if !results[0].Available || results[0].Path != present || results[0].Detail != "" {
		t.Fatalf("expected first requirement to be available, got %#v", results[0])
	}
	if results[1].Available || results[1].Detail == "" {
		t.Fatalf("expected missing binary to be unavailable with detail, got %#v", results[1])
	}
	if results[1].Command != "clearly-not-present-binary" {
		t.Fatalf("unexpected command recorded: %s", results[1].Command)
	}
	if results[2].Available || results[2].Detail != "command not configured" {
		t.Fatalf("unexpected blank status %#v", results[2])
	}

	if got := Missing(results); !reflect.DeepEqual(got, []string{"Missing"}) {
		t.Fatalf("Missing() = %v", got)
	}
}

func TestResolve(t *testing.T) {
	if got := Resolve("  ", "yt-dlp"); got != "yt-dlp" {
		t.Fatalf("expected fallback, got %q", got)
	}
	if got := Resolve(" /opt/bin/yt-dlp ", "yt-dlp"); got != "/opt/bin/yt-dlp" {
		t.Fatalf("expected configured command, got %q", got)
	}
}
