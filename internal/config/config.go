package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/adrg/xdg"
	"github.com/pelletier/go-toml/v2"
)

//go:embed sample_config.toml
var sampleConfig string

const configRelPath = "spotafy/config.toml"

// Paths contains directory and database locations.
type Paths struct {
	DataDir      string `toml:"data_dir"`
	MediaDir     string `toml:"media_dir"`
	DownloadDir  string `toml:"download_dir"`
	LogDir       string `toml:"log_dir"`
	LockDir      string `toml:"lock_dir"`
	DatabasePath string `toml:"database_path"`
}

// Catalog contains configuration for the Spotify Web API.
type Catalog struct {
	ClientID            string  `toml:"client_id"`
	ClientSecret        string  `toml:"client_secret"`
	BaseURL             string  `toml:"base_url"`
	TokenURL            string  `toml:"token_url"`
	Market              string  `toml:"market"`
	RequestTimeout      int     `toml:"request_timeout"`
	MaxRetries          int     `toml:"max_retries"`
	RetryDelay          int     `toml:"retry_delay"`
	MaxRateLimitRetries int     `toml:"max_rate_limit_retries"`
	MaxRetryAfter       int     `toml:"max_retry_after"`
	RequestsPerSecond   float64 `toml:"requests_per_second"`
	TokenMargin         int     `toml:"token_margin"`
	GenreCacheTTL       int     `toml:"genre_cache_ttl"`
}

// Matching holds the acceptance thresholds and result limits of the
// reconciliation strategies.
type Matching struct {
	StructuredThreshold   float64 `toml:"structured_threshold"`
	AlternativeThreshold  float64 `toml:"alternative_threshold"`
	BroadThreshold        float64 `toml:"broad_threshold"`
	OriginalTermThreshold float64 `toml:"original_term_threshold"`
	FallbackConfidence    float64 `toml:"fallback_confidence"`
	StructuredLimit       int     `toml:"structured_limit"`
	AlternativeLimit      int     `toml:"alternative_limit"`
	BroadLimit            int     `toml:"broad_limit"`
	ArtistLimit           int     `toml:"artist_limit"`
}

// Search controls local catalog search ranking and the re-import budget.
// Scores are on a 0-100 scale.
type Search struct {
	MaxAttempts    int     `toml:"max_attempts"`
	PerfectMatch   float64 `toml:"perfect_match"`
	StrongArtist   float64 `toml:"strong_artist"`
	MinProbability float64 `toml:"min_probability"`
	ResultLimit    int     `toml:"result_limit"`
	FreshWindow    int     `toml:"fresh_window"`
}

// Acquire contains settings for the external download and probe tools.
type Acquire struct {
	YtDlpBinary       string `toml:"ytdlp_binary"`
	FFprobeBinary     string `toml:"ffprobe_binary"`
	DownloadTimeout   int    `toml:"download_timeout"`
	CoverTimeout      int    `toml:"cover_timeout"`
	ImportTimeout     int    `toml:"import_timeout"`
	TagFiles          bool   `toml:"tag_files"`
	ArtistImportLimit int    `toml:"artist_import_limit"`
}

// Logging contains configuration for log output.
type Logging struct {
	Format string `toml:"format"`
	Level  string `toml:"level"`
}

// Config encapsulates all configuration values for spotafy.
//
// Configuration sections by subsystem:
//   - Paths: data, media, download, log and lock directories plus the database file
//   - Catalog: Spotify credentials, transport retries and throttling
//   - Matching: reconciliation thresholds and per-strategy limits
//   - Search: local search ranking and re-import budget
//   - Acquire: yt-dlp/ffprobe binaries and media tagging
//   - Logging: log format and level
type Config struct {
	Paths    Paths    `toml:"paths"`
	Catalog  Catalog  `toml:"catalog"`
	Matching Matching `toml:"matching"`
	Search   Search   `toml:"search"`
	Acquire  Acquire  `toml:"acquire"`
	Logging  Logging  `toml:"logging"`
}

// DefaultConfigPath returns the absolute path to the default configuration file location.
func DefaultConfigPath() (string, error) {
	return expandPath(filepath.Join(xdg.ConfigHome, configRelPath))
}

// Load locates, parses, and validates a configuration file. The returned config has all
// path fields expanded and normalized.
func Load(path string) (*Config, string, bool, error) {
	cfg := Default()

	resolvedPath, exists, err := resolveConfigPath(path)
	if err != nil {
		return nil, "", false, err
	}

	if err := loadDotEnv(resolvedPath); err != nil {
		return nil, "", false, err
	}

	if exists {
		file, err := os.Open(resolvedPath)
		if err != nil {
			return nil, "", false, fmt.Errorf("open config: %w", err)
		}
		defer file.Close()

		decoder := toml.NewDecoder(file)
		if err := decoder.Decode(&cfg); err != nil {
			return nil, "", false, fmt.Errorf("parse config: %w", err)
		}
	}

	if err := cfg.normalize(); err != nil {
		return nil, "", false, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, "", false, err
	}

	return &cfg, resolvedPath, exists, nil
}

func resolveConfigPath(path string) (string, bool, error) {
	if path != "" {
		expanded, err := expandPath(path)
		if err != nil {
			return "", false, err
		}
		_, err = os.Stat(expanded)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return expanded, false, nil
			}
			return "", false, fmt.Errorf("stat config: %w", err)
		}
		return expanded, true, nil
	}

	if found, err := xdg.SearchConfigFile(configRelPath); err == nil {
		return found, true, nil
	}

	projectPath, err := filepath.Abs("spotafy.toml")
	if err != nil {
		return "", false, err
	}
	if info, err := os.Stat(projectPath); err == nil && !info.IsDir() {
		return projectPath, true, nil
	}

	defaultPath, err := DefaultConfigPath()
	if err != nil {
		return "", false, err
	}
	return defaultPath, false, nil
}

// EnsureDirectories creates the directories the importer writes into.
func (c *Config) EnsureDirectories() error {
	dirs := []string{
		c.Paths.DataDir,
		c.Paths.MediaDir,
		c.Paths.DownloadDir,
		c.Paths.LockDir,
		filepath.Dir(c.Paths.DatabasePath),
	}
	for _, dir := range dirs {
		if strings.TrimSpace(dir) == "" {
			continue
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %q: %w", dir, err)
		}
	}
	return nil
}

// CatalogConfigured reports whether Spotify client credentials are present.
func (c *Config) CatalogConfigured() bool {
	return c.Catalog.ClientID != "" && c.Catalog.ClientSecret != ""
}

// RequestTimeoutDuration returns the per-request catalog timeout.
func (c Catalog) RequestTimeoutDuration() time.Duration {
	return time.Duration(c.RequestTimeout) * time.Second
}

// RetryDelayDuration returns the base delay used for linear backoff.
func (c Catalog) RetryDelayDuration() time.Duration {
	return time.Duration(c.RetryDelay) * time.Second
}

// MaxRetryAfterDuration caps how long a single Retry-After header may pause a request.
func (c Catalog) MaxRetryAfterDuration() time.Duration {
	return time.Duration(c.MaxRetryAfter) * time.Second
}

func (c Catalog) TokenMarginDuration() time.Duration {
	return time.Duration(c.TokenMargin) * time.Second
}

func (c Catalog) GenreCacheTTLDuration() time.Duration {
	return time.Duration(c.GenreCacheTTL) * time.Second
}

func (s Search) FreshWindowDuration() time.Duration {
	return time.Duration(s.FreshWindow) * time.Second
}

func (a Acquire) DownloadTimeoutDuration() time.Duration {
	return time.Duration(a.DownloadTimeout) * time.Second
}

func (a Acquire) CoverTimeoutDuration() time.Duration {
	return time.Duration(a.CoverTimeout) * time.Second
}

func (a Acquire) ImportTimeoutDuration() time.Duration {
	return time.Duration(a.ImportTimeout) * time.Second
}

func expandPath(pathValue string) (string, error) {
	if pathValue == "" {
		return pathValue, nil
	}
	if strings.HasPrefix(pathValue, "~") {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("resolve home directory: %w", err)
		}
		if pathValue == "~" {
			pathValue = home
		} else if len(pathValue) > 1 && (pathValue[1] == '/' || pathValue[1] == '\\') {
			pathValue = filepath.Join(home, pathValue[2:])
		}
	}
	absolute, err := filepath.Abs(filepath.Clean(pathValue))
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", pathValue, err)
	}
	return absolute, nil
}

// ExpandPath exposes the repository path expansion rules for other packages.
func ExpandPath(pathValue string) (string, error) {
	return expandPath(pathValue)
}

// SampleConfig returns the embedded sample configuration.
func SampleConfig() string {
	return sampleConfig
}

// CreateSample writes a sample configuration file to the specified location.
func CreateSample(path string) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create config directory: %w", err)
		}
	}
	if err := os.WriteFile(path, []byte(sampleConfig), 0o644); err != nil {
		return fmt.Errorf("write sample config: %w", err)
	}
	return nil
}
