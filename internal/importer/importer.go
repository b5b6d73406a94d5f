package importer

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"spotafy/internal/acquire"
	"spotafy/internal/catalog"
	"spotafy/internal/config"
	"spotafy/internal/fileutil"
	"spotafy/internal/identity"
	"spotafy/internal/library"
	"spotafy/internal/logging"
	"spotafy/internal/media/ffprobe"
	"spotafy/internal/media/tags"
	"spotafy/internal/reconcile"
	"spotafy/internal/services"
)

// SimilarArtistThreshold is the Jaro-Winkler score above which a new artist
// name is reported as a likely duplicate of an existing one.
const SimilarArtistThreshold = 0.92

// DefaultImportTimeout bounds one Import when the configuration sets none.
const DefaultImportTimeout = 15 * time.Minute

// Resolver maps extracted metadata to a catalog match.
type Resolver interface {
	ResolveWithFallback(ctx context.Context, q reconcile.Query, originalTerm string) (*reconcile.Result, error)
}

// Store is the library surface the importer writes through.
type Store interface {
	SongByToken(ctx context.Context, token string) (*library.Song, error)
	Import(ctx context.Context, in library.NewSong) (*library.Song, bool, error)
	SetMediaPaths(ctx context.Context, songID int64, audioPath, coverPath string) error
	ArtistByName(ctx context.Context, name string) (*library.Artist, error)
	SimilarArtists(ctx context.Context, name string, threshold float64) ([]library.ArtistMatch, error)
}

// ArtistCatalog lists an artist's tracks for batch imports.
type ArtistCatalog interface {
	TracksByArtist(ctx context.Context, name string, limit int, market string) ([]catalog.Track, error)
}

// Outcome describes a finished import.
type Outcome struct {
	Term     string
	Song     *library.Song
	Created  bool
	Strategy reconcile.Strategy
	Degraded bool
}

// Importer runs the import workflow.
type Importer struct {
	store      Store
	resolver   Resolver
	downloader acquire.Downloader
	artists    ArtistCatalog

	mediaDir    string
	lockDir     string
	market      string
	artistLimit int
	waitForLock bool
	timeout     time.Duration

	probe      func(ctx context.Context, path string) int
	fetchCover func(ctx context.Context, url, destBase string) (string, error)
	writeTags  func(path string, md tags.Metadata) error
	newID      func() string
	logger     *slog.Logger
}

// Option configures an Importer.
type Option func(*Importer)

// WithLogger attaches a logger.
func WithLogger(logger *slog.Logger) Option {
	return func(i *Importer) {
		if logger != nil {
			i.logger = logger
		}
	}
}

// WithArtistCatalog enables ImportArtist.
func WithArtistCatalog(artists ArtistCatalog) Option {
	return func(i *Importer) {
		i.artists = artists
	}
}

// WithProbe replaces the duration probe.
func WithProbe(probe func(ctx context.Context, path string) int) Option {
	return func(i *Importer) {
		if probe != nil {
			i.probe = probe
		}
	}
}

// WithCoverFetcher replaces the cover downloader.
func WithCoverFetcher(fetch func(ctx context.Context, url, destBase string) (string, error)) Option {
	return func(i *Importer) {
		i.fetchCover = fetch
	}
}

// WithTagWriter replaces the ID3 writer. A nil writer disables tagging.
func WithTagWriter(write func(path string, md tags.Metadata) error) Option {
	return func(i *Importer) {
		i.writeTags = write
	}
}

// WithLockWait makes Import wait for a held term lock instead of failing
// with ErrImportInProgress.
func WithLockWait(wait bool) Option {
	return func(i *Importer) {
		i.waitForLock = wait
	}
}

// WithImportTimeout overrides the deadline applied to each Import.
func WithImportTimeout(timeout time.Duration) Option {
	return func(i *Importer) {
		if timeout > 0 {
			i.timeout = timeout
		}
	}
}

// New builds an Importer from configuration and its collaborators.
func New(cfg *config.Config, store Store, resolver Resolver, downloader acquire.Downloader, opts ...Option) *Importer {
	coverClient := &http.Client{Timeout: cfg.Acquire.CoverTimeoutDuration()}
	ffprobeBinary := cfg.Acquire.FFprobeBinary
	i := &Importer{
		store:       store,
		resolver:    resolver,
		downloader:  downloader,
		mediaDir:    cfg.Paths.MediaDir,
		lockDir:     cfg.Paths.LockDir,
		market:      cfg.Catalog.Market,
		artistLimit: cfg.Acquire.ArtistImportLimit,
		timeout:     cfg.Acquire.ImportTimeoutDuration(),
		probe: func(ctx context.Context, path string) int {
			return ffprobe.Duration(ctx, ffprobeBinary, path)
		},
		fetchCover: func(ctx context.Context, url, destBase string) (string, error) {
			return tags.FetchCover(ctx, coverClient, url, destBase)
		},
		newID:  uuid.NewString,
		logger: logging.NewNop(),
	}
	if cfg.Acquire.TagFiles {
		i.writeTags = tags.Write
	}
	if i.timeout <= 0 {
		i.timeout = DefaultImportTimeout
	}
	for _, opt := range opts {
		opt(i)
	}
	i.logger = logging.NewComponentLogger(i.logger, "importer")
	return i
}

// Import runs the full workflow for term. The whole run, lock wait and
// catalog backoff included, is bounded by the import timeout.
func (i *Importer) Import(ctx context.Context, term string) (*Outcome, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, services.Wrap(services.ErrValidation, "import", "term", "empty search term", nil)
	}
	if _, ok := services.RequestIDFromContext(ctx); !ok {
		ctx = services.WithRequestID(ctx, i.newID())
	}
	ctx = services.WithSearchTerm(ctx, term)

	runCtx, cancel := context.WithTimeout(ctx, i.timeout)
	defer cancel()
	out, err := i.run(runCtx, term)
	if err != nil && ctx.Err() == nil && errors.Is(runCtx.Err(), context.DeadlineExceeded) {
		logging.WarnWithContext(logging.WithContext(ctx, i.logger), "import timed out", "import_timeout",
			logging.Duration("timeout", i.timeout),
			logging.Error(err),
			logging.String(logging.FieldErrorHint, "raise acquire.import_timeout or check catalog and yt-dlp connectivity"),
		)
		return nil, services.Wrap(services.ErrTimeout, "import", "deadline", fmt.Sprintf("import exceeded %s", i.timeout), err)
	}
	return out, err
}

func (i *Importer) run(ctx context.Context, term string) (*Outcome, error) {
	logger := logging.WithContext(ctx, i.logger)
	started := time.Now()

	unlock, err := lockTerm(ctx, i.lockDir, term, i.waitForLock)
	if err != nil {
		return nil, err
	}
	defer unlock()

	logger.Info("import started", logging.String(logging.FieldEventType, "import_start"))

	extracted := acquire.ExtractMetadata(term)
	res, err := i.resolve(services.WithStage(ctx, "resolve"), extracted, term)
	if err != nil {
		return nil, err
	}

	if res != nil {
		token := identity.Generate(res.Candidate.ArtistName, res.Candidate.Title, res.Candidate.ReleaseDate)
		existing, err := i.store.SongByToken(ctx, token)
		if err != nil {
			return nil, services.Wrap(services.ErrTransient, "import", "lookup", "check existing song", err)
		}
		if existing != nil {
			logger.Info("song already in library",
				logging.String(logging.FieldDecisionType, "import_dedup"),
				logging.String("token", token),
				logging.Int64("song_id", existing.ID),
			)
			return outcome(term, existing, false, res), nil
		}
	}

	query := term
	if res != nil {
		query = res.Candidate.ArtistName + " - " + res.Candidate.Title
	}
	audioPath, err := i.downloader.Download(services.WithStage(ctx, "download"), query)
	if err != nil {
		logger.Error("download failed",
			logging.String(logging.FieldEventType, "import_failed"),
			logging.String("query", query),
			logging.Error(err),
		)
		return nil, err
	}

	if res == nil {
		extracted = acquire.ExtractFromFile(audioPath)
		logger.Info("resolving from downloaded file name",
			logging.String("artist", extracted.Artist),
			logging.String("title", extracted.Title),
			logging.String("pattern", extracted.Source),
		)
		res, err = i.resolve(services.WithStage(ctx, "resolve"), extracted, term)
		if err != nil {
			i.discard(ctx, audioPath)
			return nil, err
		}
	}

	var cand *catalog.Candidate
	if res != nil {
		cand = &res.Candidate
	}
	rec := Merge(cand, extracted, i.probe(ctx, audioPath))
	token := identity.Generate(rec.Artist, rec.Title, rec.ReleaseDate)

	existing, err := i.store.SongByToken(ctx, token)
	if err != nil {
		i.discard(ctx, audioPath)
		return nil, services.Wrap(services.ErrTransient, "import", "lookup", "check existing song", err)
	}
	if existing != nil {
		logger.Info("song already in library after download",
			logging.String(logging.FieldDecisionType, "import_dedup"),
			logging.String("token", token),
		)
		i.discard(ctx, audioPath)
		return outcome(term, existing, false, res), nil
	}

	genres := rec.Genres
	if len(genres) == 0 {
		genres = acquire.DetectGenres(rec.Title)
	}
	i.warnSimilarArtists(ctx, rec.Artist)

	song, created, err := i.store.Import(services.WithStage(ctx, "persist"), library.NewSong{
		Token:           token,
		Title:           rec.Title,
		ArtistName:      rec.Artist,
		ArtistCatalogID: rec.ArtistCatalogID,
		AlbumTitle:      rec.Album,
		ReleaseDate:     rec.ReleaseDate,
		DurationSeconds: rec.Duration(),
		CatalogID:       rec.CatalogID,
		Popularity:      rec.Popularity,
		Explicit:        rec.Explicit,
		PreviewURL:      rec.PreviewURL,
		ISRC:            rec.ISRC,
		ExternalURL:     rec.ExternalURL,
		Genres:          genres,
	})
	if err != nil {
		i.discard(ctx, audioPath)
		return nil, err
	}
	if !created {
		i.discard(ctx, audioPath)
		return outcome(term, song, false, res), nil
	}

	i.placeMedia(services.WithStage(ctx, "media"), song, audioPath, rec)

	logger.Info("import completed",
		logging.String(logging.FieldEventType, "import_complete"),
		logging.String("artist", song.ArtistName),
		logging.String("title", song.Title),
		logging.String("token", song.Token),
		logging.Duration("elapsed", time.Since(started)),
	)
	return outcome(term, song, true, res), nil
}

func outcome(term string, song *library.Song, created bool, res *reconcile.Result) *Outcome {
	out := &Outcome{Term: term, Song: song, Created: created}
	if res != nil {
		out.Strategy = res.Strategy
		out.Degraded = res.Degraded
	}
	return out
}

func (i *Importer) resolve(ctx context.Context, extracted acquire.Extracted, term string) (*reconcile.Result, error) {
	if i.resolver == nil {
		return nil, nil
	}
	res, err := i.resolver.ResolveWithFallback(ctx, reconcile.Query{Artist: extracted.Artist, Title: extracted.Title}, term)
	if err != nil {
		return nil, err
	}
	return res, nil
}

// warnSimilarArtists flags a new artist whose name is close to a stored one.
// Songs by an artist already stored under the exact name join that artist.
func (i *Importer) warnSimilarArtists(ctx context.Context, artist string) {
	if existing, err := i.store.ArtistByName(ctx, artist); err != nil || existing != nil {
		return
	}
	matches, err := i.store.SimilarArtists(ctx, artist, SimilarArtistThreshold)
	if err != nil || len(matches) == 0 {
		return
	}
	logging.WarnWithContext(logging.WithContext(ctx, i.logger),
		"artist name resembles an existing artist", "similar_artist",
		logging.String("artist", artist),
		logging.String("existing_artist", matches[0].Artist.Name),
		logging.Float64("similarity", matches[0].Score),
		logging.String(logging.FieldErrorHint, "artists are matched by exact name; rename one if they are the same performer"),
		logging.String(logging.FieldImpact, "songs may be split across two artist entries"),
	)
}

// placeMedia moves the audio to its sharded location, fetches the cover,
// tags the file and records the paths. Every step only warns on failure.
func (i *Importer) placeMedia(ctx context.Context, song *library.Song, downloaded string, rec Record) {
	logger := logging.WithContext(ctx, i.logger)
	shard := identity.ShardPath(song.Token)

	audioPath := downloaded
	dest := filepath.Join(i.mediaDir, "audio", shard, song.Token+".mp3")
	if err := fileutil.MoveFile(downloaded, dest); err != nil {
		logging.WarnWithContext(logger, "could not move audio into media library", "media_move_failed",
			logging.String("source", downloaded),
			logging.String("destination", dest),
			logging.Error(err),
			logging.String(logging.FieldImpact, "audio stays in the download directory"),
		)
	} else {
		audioPath = dest
	}

	var coverPath string
	if rec.CoverURL != "" && i.fetchCover != nil {
		base := filepath.Join(i.mediaDir, "covers", shard, song.Token+"_cover")
		path, err := i.fetchCover(ctx, rec.CoverURL, base)
		if err != nil {
			logging.WarnWithContext(logger, "cover download failed", "cover_failed",
				logging.String("url", rec.CoverURL),
				logging.Error(err),
				logging.String(logging.FieldImpact, "song has no cover art"),
			)
		} else {
			coverPath = path
		}
	}

	if i.writeTags != nil {
		genre := ""
		if len(song.Genres) > 0 {
			genre = song.Genres[0]
		}
		md := tags.Metadata{
			Title:       song.Title,
			Artist:      song.ArtistName,
			Album:       song.AlbumTitle,
			ReleaseDate: song.ReleaseDate,
			Genre:       genre,
			CoverPath:   coverPath,
		}
		if err := i.writeTags(audioPath, md); err != nil {
			logging.WarnWithContext(logger, "could not write ID3 tags", "tagging_failed",
				logging.String("path", audioPath),
				logging.Error(err),
				logging.String(logging.FieldImpact, "file keeps the downloader's tags"),
			)
		}
	}

	if err := i.store.SetMediaPaths(ctx, song.ID, audioPath, coverPath); err != nil {
		logging.WarnWithContext(logger, "could not record media paths", "media_paths_failed",
			logging.Int64("song_id", song.ID),
			logging.Error(err),
		)
		return
	}
	song.AudioPath = audioPath
	song.CoverPath = coverPath
}

func (i *Importer) discard(ctx context.Context, path string) {
	if err := fileutil.RemoveQuietly(path); err != nil {
		logging.WithContext(ctx, i.logger).Debug("could not remove downloaded file",
			logging.String("path", path),
			logging.Error(err),
		)
	}
}

// ImportArtist imports up to limit tracks of artist from the catalog and
// returns how many imports succeeded, counting songs already in the library.
// A non-positive limit uses the configured default.
func (i *Importer) ImportArtist(ctx context.Context, artist string, limit int) (int, error) {
	artist = strings.TrimSpace(artist)
	if artist == "" {
		return 0, services.Wrap(services.ErrValidation, "import", "artist", "empty artist name", nil)
	}
	if i.artists == nil {
		return 0, services.Wrap(services.ErrConfiguration, "import", "artist", "catalog not configured", nil)
	}
	if limit <= 0 {
		limit = i.artistLimit
	}
	ctx = services.WithRequestID(ctx, i.newID())
	logger := logging.WithContext(ctx, i.logger)

	tracks, err := i.artists.TracksByArtist(ctx, artist, limit, i.market)
	if err != nil {
		return 0, err
	}
	if len(tracks) == 0 {
		logging.WarnWithContext(logger, "no catalog tracks for artist", "artist_import_empty",
			logging.String("artist", artist),
		)
		return 0, nil
	}

	imported := 0
	for _, track := range tracks {
		term := fmt.Sprintf("%s - %s", track.PrimaryArtist().Name, track.Name)
		if _, err := i.Import(ctx, term); err != nil {
			if ctx.Err() != nil {
				return imported, ctx.Err()
			}
			logger.Warn("artist track import failed",
				logging.String(logging.FieldEventType, "artist_track_failed"),
				logging.String("term", term),
				logging.Error(err),
			)
			continue
		}
		imported++
	}
	logger.Info("artist import finished",
		logging.String("artist", artist),
		logging.Int("imported", imported),
		logging.Int("tracks", len(tracks)),
	)
	return imported, nil
}
