package staging

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"spotafy/internal/logging"
)

// CleanStaleResult contains the outcome of a stale download cleanup.
type CleanStaleResult struct {
	Removed []string
	Errors  []CleanupError
}

// CleanupError pairs a path with its cleanup error.
type CleanupError struct {
	Path  string
	Error error
}

// Entry describes one leftover in the download directory.
type Entry struct {
	Name    string    `json:"name"`
	Path    string    `json:"path"`
	ModTime time.Time `json:"mod_time"`
	Size    int64     `json:"size"`
	IsDir   bool      `json:"is_dir"`
}

// CleanStale removes download files and directories older than maxAge.
// Keep maxAge above the download timeout so in-flight downloads survive.
func CleanStale(ctx context.Context, downloadDir string, maxAge time.Duration, logger *slog.Logger) CleanStaleResult {
	result := CleanStaleResult{}
	if logger == nil {
		logger = logging.NewNop()
	}

	entries, err := ListEntries(downloadDir)
	if err != nil {
		result.Errors = append(result.Errors, CleanupError{Path: downloadDir, Error: err})
		return result
	}

	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, CleanupError{Path: downloadDir, Error: ctx.Err()})
			return result
		}
		if !entry.ModTime.Before(cutoff) {
			continue
		}
		if err := os.RemoveAll(entry.Path); err != nil {
			result.Errors = append(result.Errors, CleanupError{Path: entry.Path, Error: err})
			logger.Warn("failed to remove stale download",
				logging.String("path", entry.Path),
				logging.Error(err),
				logging.String(logging.FieldEventType, "download_cleanup_failed"),
				logging.String(logging.FieldErrorHint, "check download_dir permissions"),
				logging.String(logging.FieldImpact, "disk space not reclaimed"),
			)
			continue
		}
		result.Removed = append(result.Removed, entry.Path)
		logger.Info("removed stale download",
			logging.String("path", entry.Path),
			logging.Duration("age", time.Since(entry.ModTime)),
			logging.String(logging.FieldEventType, "download_cleanup"),
		)
	}
	return result
}

// ListEntries returns the download directory contents, oldest first.
// A blank or missing directory yields no entries.
func ListEntries(downloadDir string) ([]Entry, error) {
	downloadDir = strings.TrimSpace(downloadDir)
	if downloadDir == "" {
		return nil, nil
	}

	dirEntries, err := os.ReadDir(downloadDir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, err
	}

	var entries []Entry
	for _, de := range dirEntries {
		info, err := de.Info()
		if err != nil {
			continue
		}
		path := filepath.Join(downloadDir, de.Name())
		size := info.Size()
		if de.IsDir() {
			size, _ = dirSize(path)
		}
		entries = append(entries, Entry{
			Name:    de.Name(),
			Path:    path,
			ModTime: info.ModTime(),
			Size:    size,
			IsDir:   de.IsDir(),
		})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].ModTime.Before(entries[j].ModTime)
	})
	return entries, nil
}

// dirSize calculates the total size of a directory recursively.
func dirSize(path string) (int64, error) {
	var size int64
	err := filepath.Walk(path, func(_ string, info os.FileInfo, err error) error {
		if err != nil {
			return nil // best effort
		}
		if !info.IsDir() {
			size += info.Size()
		}
		return nil
	})
	return size, err
}
