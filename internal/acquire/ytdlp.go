package acquire

import (
	"bufio"
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"spotafy/internal/logging"
	"spotafy/internal/services"
)

// DefaultTimeout bounds a single download.
const DefaultTimeout = 5 * time.Minute

// Downloader retrieves the audio for a search phrase and returns the local
// file path.
type Downloader interface {
	Download(ctx context.Context, query string) (string, error)
}

// Executor abstracts command execution for the downloader.
type Executor interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

// commandExecutor executes commands using os/exec.
type commandExecutor struct{}

func (commandExecutor) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...) //nolint:gosec
	var stderr bytes.Buffer
	cmd.Stderr = &stderr
	out, err := cmd.Output()
	if err != nil {
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return out, fmt.Errorf("%w: %s", err, lastLine(msg))
		}
		return out, err
	}
	return out, nil
}

// YtDlp downloads the first YouTube search result as mp3.
type YtDlp struct {
	binary  string
	dir     string
	timeout time.Duration
	exec    Executor
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a YtDlp downloader.
type Option func(*YtDlp)

// WithExecutor replaces the command executor, mainly for tests.
func WithExecutor(exec Executor) Option {
	return func(y *YtDlp) {
		if exec != nil {
			y.exec = exec
		}
	}
}

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(y *YtDlp) {
		if logger != nil {
			y.logger = logger
		}
	}
}

// NewYtDlp builds a downloader writing into dir. A non-positive timeout uses
// DefaultTimeout.
func NewYtDlp(binary, dir string, timeout time.Duration, opts ...Option) *YtDlp {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		binary = "yt-dlp"
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	y := &YtDlp{
		binary:  binary,
		dir:     dir,
		timeout: timeout,
		exec:    commandExecutor{},
		logger:  logging.NewNop(),
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(y)
	}
	y.logger = logging.NewComponentLogger(y.logger, "acquire")
	return y
}

// Args returns the yt-dlp argument list for query, writing into outDir.
func (y *YtDlp) Args(outDir, query string) []string {
	return []string{
		"-f", "bestaudio",
		"--extract-audio",
		"--audio-format", "mp3",
		"--audio-quality", "0",
		"-o", filepath.Join(outDir, "%(title)s.%(ext)s"),
		"--print", "after_move:filepath",
		"ytsearch1:" + query,
	}
}

// Download runs yt-dlp for query and returns the mp3 it produced. Each call
// downloads into its own directory under the download dir, so concurrent
// downloads never see each other's files.
func (y *YtDlp) Download(ctx context.Context, query string) (string, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return "", services.Wrap(services.ErrValidation, "acquire", "download", "empty query", nil)
	}
	dir, err := filepath.Abs(y.dir)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "acquire", "download", "resolve download directory", err)
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", services.Wrap(services.ErrConfiguration, "acquire", "download", "create download directory", err)
	}
	workDir, err := os.MkdirTemp(dir, workDirPrefix)
	if err != nil {
		return "", services.Wrap(services.ErrConfiguration, "acquire", "download", "create work directory", err)
	}
	keepWorkDir := false
	defer func() {
		if !keepWorkDir {
			_ = os.RemoveAll(workDir)
		}
	}()

	logger := logging.WithContext(ctx, y.logger)
	started := y.now()
	runCtx, cancel := context.WithTimeout(ctx, y.timeout)
	defer cancel()

	logger.Info("downloading audio", logging.String("query", query), logging.String("binary", y.binary))
	output, err := y.exec.Run(runCtx, y.binary, y.Args(workDir, query))
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) {
			return "", services.Wrap(services.ErrTimeout, "acquire", "download",
				fmt.Sprintf("yt-dlp exceeded %s", y.timeout), err)
		}
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", services.Wrap(services.ErrExternalTool, "acquire", "download", "yt-dlp failed", err)
	}

	path := printedPath(output, workDir)
	if path == "" {
		if path, err = newestMP3(workDir); err != nil {
			return "", services.Wrap(services.ErrExternalTool, "acquire", "download", "scan work directory", err)
		}
		if path == "" {
			return "", services.Wrap(services.ErrExternalTool, "acquire", "download", "no mp3 found after download", nil)
		}
		logger.Debug("yt-dlp printed no path; using the mp3 in the work directory", logging.String("path", path))
	}

	final, claimed := claim(path, dir)
	if !claimed {
		keepWorkDir = true
		logger.Debug("download name taken; leaving file in its work directory", logging.String("path", final))
	}
	logger.Info("audio downloaded",
		logging.String("path", final),
		logging.Duration("elapsed", y.now().Sub(started)),
	)
	return final, nil
}

const workDirPrefix = "dl-"

// claim moves path into dir under its own name. A name already present in
// dir is never replaced; the file then stays where it is.
func claim(path, dir string) (string, bool) {
	dest := filepath.Join(dir, filepath.Base(path))
	if err := os.Link(path, dest); err != nil {
		return path, false
	}
	_ = os.Remove(path)
	return dest, true
}

// printedPath returns the last line of yt-dlp output naming an existing mp3
// inside workDir.
func printedPath(output []byte, workDir string) string {
	var found string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if !strings.EqualFold(filepath.Ext(line), ".mp3") {
			continue
		}
		if filepath.Dir(filepath.Clean(line)) != filepath.Clean(workDir) {
			continue
		}
		if info, err := os.Stat(line); err == nil && info.Mode().IsRegular() {
			found = line
		}
	}
	return found
}

// newestMP3 returns the most recently modified mp3 in dir.
func newestMP3(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", err
	}
	var (
		newest  string
		newestT time.Time
	)
	for _, entry := range entries {
		if entry.IsDir() || !strings.EqualFold(filepath.Ext(entry.Name()), ".mp3") {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestT) {
			newest = filepath.Join(dir, entry.Name())
			newestT = info.ModTime()
		}
	}
	return newest, nil
}

func lastLine(s string) string {
	if idx := strings.LastIndexByte(s, '\n'); idx >= 0 {
		return strings.TrimSpace(s[idx+1:])
	}
	return s
}
