package catalog

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	jsoniter "github.com/json-iterator/go"
	"golang.org/x/time/rate"

	"spotafy/internal/logging"
	"spotafy/internal/services"
)

const (
	defaultRequestTimeout = 15 * time.Second
	maxSearchLimit        = 50
	errorBodyLimit        = 512
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// SearchRequest describes one track search. An empty Market omits the
// market filter.
type SearchRequest struct {
	Query  string
	Limit  int
	Market string
}

// Status summarizes catalog connectivity for the status command.
type Status struct {
	CredentialsConfigured bool      `json:"credentials_configured"`
	TokenValid            bool      `json:"token_valid"`
	TokenExpires          time.Time `json:"token_expires,omitzero"`
	APIAccessible         bool      `json:"api_accessible"`
	Error                 string    `json:"error,omitempty"`
}

// Client provides access to the Spotify Web API.
type Client struct {
	baseURL    string
	tokens     *TokenHolder
	httpClient *http.Client
	limiter    *rate.Limiter
	policy     RetryPolicy
	sleep      func(context.Context, time.Duration) error
	now        func() time.Time
	logger     *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithRetryPolicy overrides the retry bounds.
func WithRetryPolicy(policy RetryPolicy) Option {
	return func(c *Client) {
		c.policy = policy.normalized()
	}
}

// WithRateLimit throttles outgoing requests to rps per second. Zero disables throttling.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = nil
			return
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), 1)
	}
}

// WithSleeper replaces the backoff sleep, mainly for tests.
func WithSleeper(sleep func(context.Context, time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

// WithLogger attaches a logger for retry diagnostics.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a catalog client.
func New(baseURL string, tokens *TokenHolder, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("catalog base url required")
	}
	if tokens == nil {
		return nil, errors.New("catalog token holder required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		tokens:     tokens,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		policy:     DefaultRetryPolicy(),
		sleep:      sleepWithContext,
		now:        time.Now,
		logger:     logging.NewNop(),
	}
	for _, opt := range opts {
		opt(client)
	}
	client.logger = logging.NewComponentLogger(client.logger, "catalog")
	return client, nil
}

// Search runs a track search.
func (c *Client) Search(ctx context.Context, req SearchRequest) ([]Track, error) {
	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "search", "query must not be empty", nil)
	}
	params := url.Values{}
	params.Set("q", query)
	params.Set("type", "track")
	if req.Limit > 0 {
		params.Set("limit", strconv.Itoa(min(req.Limit, maxSearchLimit)))
	}
	if market := strings.TrimSpace(req.Market); market != "" {
		params.Set("market", market)
	}

	var payload searchResponse
	if err := c.get(ctx, "/v1/search", params, &payload); err != nil {
		return nil, err
	}
	return payload.Tracks.Items, nil
}

// Artist fetches a single artist, including its genres.
func (c *Client) Artist(ctx context.Context, id string) (*Artist, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "artist", "artist id must not be empty", nil)
	}
	var artist Artist
	if err := c.get(ctx, "/v1/artists/"+url.PathEscape(id), nil, &artist); err != nil {
		return nil, err
	}
	return &artist, nil
}

// TracksByArtist searches for tracks credited to name.
func (c *Client) TracksByArtist(ctx context.Context, name string, limit int, market string) ([]Track, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, services.Wrap(services.ErrValidation, "catalog", "artist tracks", "artist name must not be empty", nil)
	}
	return c.Search(ctx, SearchRequest{Query: fmt.Sprintf("artist:%q", name), Limit: limit, Market: market})
}

// Status checks credentials, token freshness and API reachability with a
// minimal search.
func (c *Client) Status(ctx context.Context) Status {
	status := Status{CredentialsConfigured: c.tokens.Configured()}
	if !status.CredentialsConfigured {
		status.Error = "client credentials not configured"
		return status
	}
	if _, err := c.tokens.Token(ctx); err != nil {
		status.Error = err.Error()
		return status
	}
	status.TokenValid = c.tokens.Valid()
	status.TokenExpires = c.tokens.ExpiresAt()
	if _, err := c.Search(ctx, SearchRequest{Query: "test", Limit: 1}); err != nil {
		status.Error = err.Error()
		return status
	}
	status.APIAccessible = true
	return status
}

type response struct {
	status  int
	header  http.Header
	body    []byte
	latency time.Duration
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	endpoint := c.baseURL + path
	if len(params) > 0 {
		endpoint += "?" + params.Encode()
	}

	transientAttempts := 0
	rateLimitAttempts := 0
	refreshed := false
	for {
		if c.limiter != nil {
			if err := c.limiter.Wait(ctx); err != nil {
				return err
			}
		}
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}

		resp, err := c.send(ctx, endpoint, token)
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return ctxErr
			}
			transientAttempts++
			if transientAttempts > c.policy.MaxRetries {
				return services.Wrap(services.ErrTransient, "catalog", path,
					fmt.Sprintf("giving up after %d attempts", transientAttempts), err)
			}
			if err := c.backoff(ctx, path, transientAttempts, err.Error()); err != nil {
				return err
			}
			continue
		}

		switch {
		case resp.status == http.StatusOK:
			if err := json.Unmarshal(resp.body, out); err != nil {
				return services.Wrap(services.ErrExternalTool, "catalog", path, "decode response", err)
			}
			return nil

		case resp.status == http.StatusTooManyRequests:
			rateLimitAttempts++
			if rateLimitAttempts > c.policy.MaxRateLimitRetries {
				return services.Wrap(services.ErrTransient, "catalog", path,
					fmt.Sprintf("rate limited %d times", rateLimitAttempts), nil)
			}
			wait := retryAfter(resp.header.Get("Retry-After"), c.now(), c.policy.MaxRetryAfter)
			c.logger.Warn("catalog rate limited",
				logging.String("path", path),
				logging.Duration("retry_after", wait),
				logging.Int("attempt", rateLimitAttempts),
				logging.String(logging.FieldEventType, "catalog_rate_limited"),
				logging.String(logging.FieldErrorHint, "lower catalog.requests_per_second"),
				logging.String(logging.FieldImpact, "request delayed"),
			)
			if err := c.sleep(ctx, wait); err != nil {
				return err
			}

		case resp.status == http.StatusUnauthorized:
			if refreshed {
				return services.Wrap(services.ErrConfiguration, "catalog", path, "unauthorized after token refresh", ErrNoToken)
			}
			refreshed = true
			c.tokens.Invalidate()
			c.logger.Debug("catalog token rejected; refreshing", logging.String("path", path))
			if _, err := c.tokens.Refresh(ctx); err != nil {
				return err
			}

		case isTransientStatus(resp.status):
			transientAttempts++
			if transientAttempts > c.policy.MaxRetries {
				return services.Wrap(services.ErrTransient, "catalog", path,
					fmt.Sprintf("status %d after %d attempts (latency=%v)", resp.status, transientAttempts, resp.latency), nil)
			}
			if err := c.backoff(ctx, path, transientAttempts, fmt.Sprintf("status %d", resp.status)); err != nil {
				return err
			}

		case resp.status == http.StatusNotFound:
			return services.Wrap(services.ErrNotFound, "catalog", path, "not found", nil)

		default:
			return services.Wrap(services.ErrExternalTool, "catalog", path,
				fmt.Sprintf("returned %d (latency=%v): %s", resp.status, resp.latency, snippet(resp.body)), nil)
		}
	}
}

func (c *Client) backoff(ctx context.Context, path string, attempt int, reason string) error {
	wait := c.policy.backoff(attempt)
	c.logger.Debug("catalog request failed; retrying",
		logging.String("path", path),
		logging.Int("attempt", attempt),
		logging.Duration("backoff", wait),
		logging.String("reason", reason),
	)
	return c.sleep(ctx, wait)
}

func (c *Client) send(ctx context.Context, endpoint, token string) (*response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(start)
	if err != nil {
		return nil, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response (latency=%v): %w", latency, err)
	}
	return &response{status: resp.StatusCode, header: resp.Header, body: body, latency: latency}, nil
}

func snippet(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) > errorBodyLimit {
		text = text[:errorBodyLimit]
	}
	return text
}
