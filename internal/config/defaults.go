package config

import (
	"path/filepath"

	"github.com/adrg/xdg"
)

const (
	defaultCatalogBaseURL      = "https://api.spotify.com"
	defaultCatalogTokenURL     = "https://accounts.spotify.com/api/token"
	defaultMarket              = "BR"
	defaultRequestTimeout      = 15
	defaultMaxRetries          = 3
	defaultRetryDelay          = 2
	defaultMaxRateLimitRetries = 5
	defaultMaxRetryAfter       = 60
	defaultRequestsPerSecond   = 5
	defaultTokenMargin         = 300
	defaultGenreCacheTTL       = 3600

	defaultStructuredThreshold   = 0.70
	defaultAlternativeThreshold  = 0.70
	defaultBroadThreshold        = 0.40
	defaultOriginalTermThreshold = 0.30
	defaultFallbackConfidence    = 0.60
	defaultStructuredLimit       = 5
	defaultAlternativeLimit      = 3
	defaultBroadLimit            = 20
	defaultArtistLimit           = 10

	defaultSearchMaxAttempts    = 3
	defaultSearchPerfectMatch   = 95
	defaultSearchStrongArtist   = 60
	defaultSearchMinProbability = 70
	defaultSearchResultLimit    = 5
	defaultSearchFreshWindow    = 120

	defaultYtDlpBinary       = "yt-dlp"
	defaultFFprobeBinary     = "ffprobe"
	defaultDownloadTimeout   = 300
	defaultCoverTimeout      = 30
	defaultImportTimeout     = 900
	defaultArtistImportLimit = 10

	defaultLogFormat = "console"
	defaultLogLevel  = "info"

	databaseFileName = "spotafy.db"
)

// Default returns a Config populated with repository defaults. Derived paths
// (media, downloads, locks, logs, database) are filled in from DataDir during
// normalization when left empty.
func Default() Config {
	return Config{
		Paths: Paths{
			DataDir: filepath.Join(xdg.DataHome, "spotafy"),
		},
		Catalog: Catalog{
			BaseURL:             defaultCatalogBaseURL,
			TokenURL:            defaultCatalogTokenURL,
			Market:              defaultMarket,
			RequestTimeout:      defaultRequestTimeout,
			MaxRetries:          defaultMaxRetries,
			RetryDelay:          defaultRetryDelay,
			MaxRateLimitRetries: defaultMaxRateLimitRetries,
			MaxRetryAfter:       defaultMaxRetryAfter,
			RequestsPerSecond:   defaultRequestsPerSecond,
			TokenMargin:         defaultTokenMargin,
			GenreCacheTTL:       defaultGenreCacheTTL,
		},
		Matching: Matching{
			StructuredThreshold:   defaultStructuredThreshold,
			AlternativeThreshold:  defaultAlternativeThreshold,
			BroadThreshold:        defaultBroadThreshold,
			OriginalTermThreshold: defaultOriginalTermThreshold,
			FallbackConfidence:    defaultFallbackConfidence,
			StructuredLimit:       defaultStructuredLimit,
			AlternativeLimit:      defaultAlternativeLimit,
			BroadLimit:            defaultBroadLimit,
			ArtistLimit:           defaultArtistLimit,
		},
		Search: Search{
			MaxAttempts:    defaultSearchMaxAttempts,
			PerfectMatch:   defaultSearchPerfectMatch,
			StrongArtist:   defaultSearchStrongArtist,
			MinProbability: defaultSearchMinProbability,
			ResultLimit:    defaultSearchResultLimit,
			FreshWindow:    defaultSearchFreshWindow,
		},
		Acquire: Acquire{
			YtDlpBinary:       defaultYtDlpBinary,
			FFprobeBinary:     defaultFFprobeBinary,
			DownloadTimeout:   defaultDownloadTimeout,
			CoverTimeout:      defaultCoverTimeout,
			ImportTimeout:     defaultImportTimeout,
			TagFiles:          true,
			ArtistImportLimit: defaultArtistImportLimit,
		},
		Logging: Logging{
			Format: defaultLogFormat,
			Level:  defaultLogLevel,
		},
	}
}
