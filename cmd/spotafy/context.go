package main

import (
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/spf13/cobra"

	"spotafy/internal/acquire"
	"spotafy/internal/catalog"
	"spotafy/internal/config"
	"spotafy/internal/importer"
	"spotafy/internal/library"
	"spotafy/internal/logging"
	"spotafy/internal/reconcile"
	"spotafy/internal/search"
)

type commandContext struct {
	configFlag *string

	configOnce sync.Once
	config     *config.Config
	configPath string
	configErr  error

	loggerOnce sync.Once
	logger     *slog.Logger

	libraryOnce sync.Once
	library     *library.Store
	libraryErr  error
}

func newCommandContext(configFlag *string) *commandContext {
	return &commandContext{configFlag: configFlag}
}

func (c *commandContext) ensureConfig() (*config.Config, error) {
	c.configOnce.Do(func() {
		var path string
		if c.configFlag != nil {
			path = strings.TrimSpace(*c.configFlag)
		}
		cfg, resolved, _, err := config.Load(path)
		if err != nil {
			c.configErr = err
			return
		}
		if err := cfg.EnsureDirectories(); err != nil {
			c.configErr = err
			return
		}
		c.config = cfg
		c.configPath = resolved
	})
	return c.config, c.configErr
}

func (c *commandContext) ensureLogger() *slog.Logger {
	c.loggerOnce.Do(func() {
		logger, err := logging.NewFromConfig(c.config)
		if err != nil {
			logger = logging.NewNop()
		}
		c.logger = logger
	})
	return c.logger
}

func (c *commandContext) ensureLibrary() (*library.Store, error) {
	c.libraryOnce.Do(func() {
		cfg, err := c.ensureConfig()
		if err != nil {
			c.libraryErr = err
			return
		}
		store, err := library.Open(cfg)
		if err != nil {
			c.libraryErr = fmt.Errorf("open library: %w", err)
			return
		}
		c.library = store
	})
	return c.library, c.libraryErr
}

func (c *commandContext) close() {
	if c.library != nil {
		_ = c.library.Close()
	}
}

// newCatalog builds the token holder and client. The client is usable without
// credentials; every call then fails with catalog.ErrNoToken.
func (c *commandContext) newCatalog() (*catalog.Client, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	source := catalog.NewClientCredentials(cfg.Catalog.ClientID, cfg.Catalog.ClientSecret, cfg.Catalog.TokenURL)
	tokens := catalog.NewTokenHolder(source, catalog.WithMargin(cfg.Catalog.TokenMarginDuration()))
	client, err := catalog.New(cfg.Catalog.BaseURL, tokens,
		catalog.WithHTTPClient(newHTTPClient(cfg.Catalog.RequestTimeoutDuration())),
		catalog.WithRetryPolicy(catalog.RetryPolicy{
			MaxRetries:          cfg.Catalog.MaxRetries,
			RetryDelay:          cfg.Catalog.RetryDelayDuration(),
			MaxRateLimitRetries: cfg.Catalog.MaxRateLimitRetries,
			MaxRetryAfter:       cfg.Catalog.MaxRetryAfterDuration(),
		}),
		catalog.WithRateLimit(cfg.Catalog.RequestsPerSecond),
		catalog.WithLogger(c.ensureLogger()),
	)
	if err != nil {
		return nil, fmt.Errorf("catalog client: %w", err)
	}
	return client, nil
}

// newImporter wires the import workflow. waitForLock makes concurrent imports
// of the same term queue up instead of failing.
func (c *commandContext) newImporter(waitForLock bool) (*importer.Importer, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.ensureLibrary()
	if err != nil {
		return nil, err
	}
	logger := c.ensureLogger()

	opts := []importer.Option{
		importer.WithLogger(logger),
		importer.WithLockWait(waitForLock),
	}
	var resolver importer.Resolver
	if cfg.CatalogConfigured() {
		client, err := c.newCatalog()
		if err != nil {
			return nil, err
		}
		genres := catalog.NewGenreCache(client, cfg.Catalog.GenreCacheTTLDuration(), logger)
		resolver = reconcile.New(client, genres, reconcile.ThresholdsFromConfig(cfg), reconcile.WithLogger(logger))
		opts = append(opts, importer.WithArtistCatalog(client))
	} else {
		logging.WarnWithContext(logger, "catalog credentials not configured", "catalog_unconfigured",
			logging.String(logging.FieldErrorHint, "set client_id/client_secret or SPOTIFY_CLIENT_ID/SPOTIFY_CLIENT_SECRET"),
			logging.String(logging.FieldImpact, "songs are imported from file names only"),
		)
	}

	downloader := acquire.NewYtDlp(cfg.Acquire.YtDlpBinary, cfg.Paths.DownloadDir, cfg.Acquire.DownloadTimeoutDuration(),
		acquire.WithLogger(logger),
	)
	return importer.New(cfg, store, resolver, downloader, opts...), nil
}

func (c *commandContext) newSearch() (*search.Service, error) {
	cfg, err := c.ensureConfig()
	if err != nil {
		return nil, err
	}
	store, err := c.ensureLibrary()
	if err != nil {
		return nil, err
	}
	imp, err := c.newImporter(true)
	if err != nil {
		return nil, err
	}
	return search.New(store, imp, search.SettingsFromConfig(cfg.Search), search.WithLogger(c.ensureLogger())), nil
}

func shouldSkipConfig(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		if c.Annotations != nil && c.Annotations["skipConfigLoad"] == "true" {
			return true
		}
	}
	return false
}

func yesNo(value bool) string {
	if value {
		return "yes"
	}
	return "no"
}
