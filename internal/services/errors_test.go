package services_test

import (
	"errors"
	"strings"
	"testing"

	"spotafy/internal/services"
)

func TestWrapIncludesContext(t *testing.T) {
	base := errors.New("boom")
	err := services.Wrap(services.ErrExternalTool, "acquire", "yt-dlp", "download failed", base)
	if err == nil {
		t.Fatal("expected error")
	}
	if !errors.Is(err, services.ErrExternalTool) {
		t.Fatalf("expected marker to be retained, got %v", err)
	}
	if !errors.Is(err, base) {
		t.Fatalf("expected wrapped error to contain base error, got %v", err)
	}
	msg := err.Error()
	for _, fragment := range []string{"acquire", "yt-dlp", "download failed"} {
		if !strings.Contains(msg, fragment) {
			t.Fatalf("expected %q in error string %q", fragment, msg)
		}
	}
}

func TestWrapDefaultsToTransient(t *testing.T) {
	err := services.Wrap(nil, "", "", "", nil)
	if !errors.Is(err, services.ErrTransient) {
		t.Fatalf("expected transient marker, got %v", err)
	}
	if !strings.Contains(err.Error(), "service failure") {
		t.Fatalf("expected placeholder detail, got %q", err.Error())
	}
}

func TestFailureKindMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want string
	}{
		{"nil", nil, ""},
		{"conflict", services.Wrap(services.ErrConflict, "library", "regenerate", "collision", nil), services.KindConflict},
		{"not found", services.Wrap(services.ErrNotFound, "library", "lookup", "", nil), services.KindNotFound},
		{"validation", services.Wrap(services.ErrValidation, "import", "term", "empty", nil), services.KindInvalid},
		{"timeout", services.Wrap(services.ErrTimeout, "acquire", "yt-dlp", "", nil), services.KindTransient},
		{"plain", errors.New("io"), services.KindFailed},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := services.FailureKind(tc.err); got != tc.want {
				t.Fatalf("FailureKind() = %q, want %q", got, tc.want)
			}
		})
	}
}
