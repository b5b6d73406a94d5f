package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
)

// loadDotEnv loads .env files next to the config file and in the working
// directory. Existing environment variables win.
func loadDotEnv(configPath string) error {
	candidates := make([]string, 0, 2)
	if configPath != "" {
		candidates = append(candidates, filepath.Join(filepath.Dir(configPath), ".env"))
	}
	if wd, err := os.Getwd(); err == nil {
		candidates = append(candidates, filepath.Join(wd, ".env"))
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		if _, dup := seen[candidate]; dup {
			continue
		}
		seen[candidate] = struct{}{}
		info, err := os.Stat(candidate)
		if err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("stat env file: %w", err)
		}
		if info.IsDir() {
			continue
		}
		if err := godotenv.Load(candidate); err != nil {
			return fmt.Errorf("load env file %s: %w", candidate, err)
		}
	}
	return nil
}

func (c *Config) normalize() error {
	if err := c.normalizePaths(); err != nil {
		return err
	}
	c.normalizeCatalog()
	c.normalizeMatching()
	c.normalizeSearch()
	c.normalizeAcquire()
	c.normalizeLogging()
	return nil
}

func (c *Config) normalizePaths() error {
	var err error
	if strings.TrimSpace(c.Paths.DataDir) == "" {
		c.Paths.DataDir = Default().Paths.DataDir
	}
	if c.Paths.DataDir, err = expandPath(c.Paths.DataDir); err != nil {
		return fmt.Errorf("paths.data_dir: %w", err)
	}

	derived := []struct {
		name  string
		value *string
		leaf  string
	}{
		{"paths.media_dir", &c.Paths.MediaDir, "media"},
		{"paths.download_dir", &c.Paths.DownloadDir, "downloads"},
		{"paths.log_dir", &c.Paths.LogDir, "logs"},
		{"paths.lock_dir", &c.Paths.LockDir, "locks"},
		{"paths.database_path", &c.Paths.DatabasePath, databaseFileName},
	}
	for _, entry := range derived {
		if strings.TrimSpace(*entry.value) == "" {
			*entry.value = filepath.Join(c.Paths.DataDir, entry.leaf)
		}
		if *entry.value, err = expandPath(*entry.value); err != nil {
			return fmt.Errorf("%s: %w", entry.name, err)
		}
	}
	return nil
}

func (c *Config) normalizeCatalog() {
	c.Catalog.ClientID = strings.TrimSpace(c.Catalog.ClientID)
	if c.Catalog.ClientID == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_ID"); ok {
			c.Catalog.ClientID = strings.TrimSpace(value)
		}
	}
	c.Catalog.ClientSecret = strings.TrimSpace(c.Catalog.ClientSecret)
	if c.Catalog.ClientSecret == "" {
		if value, ok := os.LookupEnv("SPOTIFY_CLIENT_SECRET"); ok {
			c.Catalog.ClientSecret = strings.TrimSpace(value)
		}
	}
	c.Catalog.BaseURL = strings.TrimRight(strings.TrimSpace(c.Catalog.BaseURL), "/")
	if c.Catalog.BaseURL == "" {
		c.Catalog.BaseURL = defaultCatalogBaseURL
	}
	c.Catalog.TokenURL = strings.TrimSpace(c.Catalog.TokenURL)
	if c.Catalog.TokenURL == "" {
		c.Catalog.TokenURL = defaultCatalogTokenURL
	}
	c.Catalog.Market = strings.ToUpper(strings.TrimSpace(c.Catalog.Market))
	if c.Catalog.Market == "" {
		c.Catalog.Market = defaultMarket
	}
	ensurePositive(&c.Catalog.RequestTimeout, defaultRequestTimeout)
	ensurePositive(&c.Catalog.MaxRetries, defaultMaxRetries)
	ensurePositive(&c.Catalog.RetryDelay, defaultRetryDelay)
	ensurePositive(&c.Catalog.MaxRateLimitRetries, defaultMaxRateLimitRetries)
	ensurePositive(&c.Catalog.MaxRetryAfter, defaultMaxRetryAfter)
	ensurePositive(&c.Catalog.TokenMargin, defaultTokenMargin)
	ensurePositive(&c.Catalog.GenreCacheTTL, defaultGenreCacheTTL)
	if c.Catalog.RequestsPerSecond < 0 {
		c.Catalog.RequestsPerSecond = 0
	}
}

func (c *Config) normalizeMatching() {
	ensurePositive(&c.Matching.StructuredLimit, defaultStructuredLimit)
	ensurePositive(&c.Matching.AlternativeLimit, defaultAlternativeLimit)
	ensurePositive(&c.Matching.BroadLimit, defaultBroadLimit)
	ensurePositive(&c.Matching.ArtistLimit, defaultArtistLimit)
}

func (c *Config) normalizeSearch() {
	ensurePositive(&c.Search.MaxAttempts, defaultSearchMaxAttempts)
	ensurePositive(&c.Search.ResultLimit, defaultSearchResultLimit)
	ensurePositive(&c.Search.FreshWindow, defaultSearchFreshWindow)
}

func (c *Config) normalizeAcquire() {
	c.Acquire.YtDlpBinary = strings.TrimSpace(c.Acquire.YtDlpBinary)
	if c.Acquire.YtDlpBinary == "" {
		c.Acquire.YtDlpBinary = defaultYtDlpBinary
	}
	c.Acquire.FFprobeBinary = strings.TrimSpace(c.Acquire.FFprobeBinary)
	if c.Acquire.FFprobeBinary == "" {
		c.Acquire.FFprobeBinary = defaultFFprobeBinary
	}
	ensurePositive(&c.Acquire.DownloadTimeout, defaultDownloadTimeout)
	ensurePositive(&c.Acquire.CoverTimeout, defaultCoverTimeout)
	ensurePositive(&c.Acquire.ImportTimeout, defaultImportTimeout)
	ensurePositive(&c.Acquire.ArtistImportLimit, defaultArtistImportLimit)
}

func (c *Config) normalizeLogging() {
	c.Logging.Format = strings.ToLower(strings.TrimSpace(c.Logging.Format))
	switch c.Logging.Format {
	case "json":
	default:
		c.Logging.Format = defaultLogFormat
	}
	c.Logging.Level = strings.ToLower(strings.TrimSpace(c.Logging.Level))
	if c.Logging.Level == "" {
		c.Logging.Level = defaultLogLevel
	}
}

func ensurePositive(value *int, fallback int) {
	if *value <= 0 {
		*value = fallback
	}
}
