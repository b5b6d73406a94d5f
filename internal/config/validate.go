package config

import (
	"errors"
	"fmt"
)

const credentialLength = 32

// Validate ensures the configuration is usable. Missing catalog credentials
// are not an error here: local search and config commands work without them,
// and the catalog client reports the problem when first used.
func (c *Config) Validate() error {
	if err := c.validateCatalog(); err != nil {
		return err
	}
	if err := c.validateMatching(); err != nil {
		return err
	}
	if err := c.validateSearch(); err != nil {
		return err
	}
	if err := c.validateAcquire(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateCatalog() error {
	if c.Catalog.ClientID != "" && len(c.Catalog.ClientID) != credentialLength {
		return fmt.Errorf("catalog.client_id must be %d characters", credentialLength)
	}
	if c.Catalog.ClientSecret != "" && len(c.Catalog.ClientSecret) != credentialLength {
		return fmt.Errorf("catalog.client_secret must be %d characters", credentialLength)
	}
	if (c.Catalog.ClientID == "") != (c.Catalog.ClientSecret == "") {
		return errors.New("catalog.client_id and catalog.client_secret must be set together")
	}
	if len(c.Catalog.Market) != 2 {
		return fmt.Errorf("catalog.market must be a two-letter country code, got %q", c.Catalog.Market)
	}
	return nil
}

func (c *Config) validateMatching() error {
	thresholds := []struct {
		name  string
		value float64
	}{
		{"matching.structured_threshold", c.Matching.StructuredThreshold},
		{"matching.alternative_threshold", c.Matching.AlternativeThreshold},
		{"matching.broad_threshold", c.Matching.BroadThreshold},
		{"matching.original_term_threshold", c.Matching.OriginalTermThreshold},
		{"matching.fallback_confidence", c.Matching.FallbackConfidence},
	}
	for _, threshold := range thresholds {
		if threshold.value < 0 || threshold.value > 1 {
			return fmt.Errorf("%s must be between 0 and 1", threshold.name)
		}
	}
	return nil
}

func (c *Config) validateSearch() error {
	scores := []struct {
		name  string
		value float64
	}{
		{"search.perfect_match", c.Search.PerfectMatch},
		{"search.strong_artist", c.Search.StrongArtist},
		{"search.min_probability", c.Search.MinProbability},
	}
	for _, score := range scores {
		if score.value < 0 || score.value > 100 {
			return fmt.Errorf("%s must be between 0 and 100", score.name)
		}
	}
	return nil
}

func (c *Config) validateAcquire() error {
	if c.Acquire.ImportTimeout < c.Acquire.DownloadTimeout {
		return fmt.Errorf("acquire.import_timeout (%ds) must not be shorter than acquire.download_timeout (%ds)",
			c.Acquire.ImportTimeout, c.Acquire.DownloadTimeout)
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch c.Logging.Level {
	case "debug", "info", "warn", "warning", "error":
		return nil
	default:
		return fmt.Errorf("logging.level: unsupported value %q", c.Logging.Level)
	}
}
