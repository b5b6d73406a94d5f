package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"

	"spotafy/internal/services"
)

// ErrNoToken reports that no bearer token could be obtained.
var ErrNoToken = errors.New("catalog token unavailable")

const (
	defaultTokenMargin   = 5 * time.Minute
	defaultTokenLifetime = time.Hour
)

// TokenSource performs the client-credentials exchange.
// *clientcredentials.Config satisfies it.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// NewClientCredentials returns a TokenSource for the given app credentials.
// It returns nil when either credential is empty.
func NewClientCredentials(clientID, clientSecret, tokenURL string) TokenSource {
	if clientID == "" || clientSecret == "" {
		return nil
	}
	return &clientcredentials.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		TokenURL:     tokenURL,
	}
}

// TokenHolder caches a bearer token until expiry minus a safety margin.
// The lock guards the cached fields only; concurrent refreshes may race and
// the last writer wins.
type TokenHolder struct {
	source TokenSource
	margin time.Duration
	now    func() time.Time

	mu        sync.RWMutex
	token     string
	expiresAt time.Time
}

// TokenOption configures a TokenHolder.
type TokenOption func(*TokenHolder)

// WithClock overrides the time source.
func WithClock(now func() time.Time) TokenOption {
	return func(h *TokenHolder) {
		if now != nil {
			h.now = now
		}
	}
}

// WithMargin overrides how long before expiry a token is considered stale.
func WithMargin(margin time.Duration) TokenOption {
	return func(h *TokenHolder) {
		if margin >= 0 {
			h.margin = margin
		}
	}
}

// NewTokenHolder creates a holder backed by source. A nil source yields a
// holder that always reports ErrNoToken.
func NewTokenHolder(source TokenSource, opts ...TokenOption) *TokenHolder {
	h := &TokenHolder{
		source: source,
		margin: defaultTokenMargin,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Configured reports whether the holder has credentials to exchange.
func (h *TokenHolder) Configured() bool {
	return h != nil && h.source != nil
}

// Token returns the cached token while it is fresh, refreshing otherwise.
func (h *TokenHolder) Token(ctx context.Context) (string, error) {
	h.mu.RLock()
	token, expiresAt := h.token, h.expiresAt
	h.mu.RUnlock()
	if token != "" && h.now().Before(expiresAt) {
		return token, nil
	}
	return h.Refresh(ctx)
}

// Refresh performs a new exchange unconditionally.
func (h *TokenHolder) Refresh(ctx context.Context) (string, error) {
	if !h.Configured() {
		return "", services.Wrap(services.ErrConfiguration, "catalog", "token", "client credentials not configured", ErrNoToken)
	}
	tok, err := h.source.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrNoToken, err)
	}
	if tok == nil || tok.AccessToken == "" {
		return "", fmt.Errorf("%w: empty access token", ErrNoToken)
	}

	now := h.now()
	expiry := tok.Expiry
	if expiry.IsZero() {
		expiry = now.Add(defaultTokenLifetime)
	}

	h.mu.Lock()
	h.token = tok.AccessToken
	h.expiresAt = expiry.Add(-h.margin)
	h.mu.Unlock()
	return tok.AccessToken, nil
}

// Invalidate drops the cached token so the next call refreshes.
func (h *TokenHolder) Invalidate() {
	h.mu.Lock()
	h.token = ""
	h.expiresAt = time.Time{}
	h.mu.Unlock()
}

// ExpiresAt reports when the cached token stops being used.
func (h *TokenHolder) ExpiresAt() time.Time {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.expiresAt
}

// Valid reports whether a fresh token is cached.
func (h *TokenHolder) Valid() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.token != "" && h.now().Before(h.expiresAt)
}
