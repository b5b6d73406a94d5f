package catalog

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// RetryPolicy bounds the retry loops of a Client.
type RetryPolicy struct {
	// MaxRetries caps retries for network errors and 5xx responses.
	MaxRetries int
	// RetryDelay is multiplied by the attempt number between transient retries.
	RetryDelay time.Duration
	// MaxRateLimitRetries caps retries after HTTP 429.
	MaxRateLimitRetries int
	// MaxRetryAfter caps a single Retry-After wait.
	MaxRetryAfter time.Duration
}

// DefaultRetryPolicy returns the policy used when none is configured.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:          3,
		RetryDelay:          2 * time.Second,
		MaxRateLimitRetries: 5,
		MaxRetryAfter:       time.Minute,
	}
}

func (p RetryPolicy) normalized() RetryPolicy {
	def := DefaultRetryPolicy()
	if p.MaxRetries < 0 {
		p.MaxRetries = def.MaxRetries
	}
	if p.RetryDelay < 0 {
		p.RetryDelay = def.RetryDelay
	}
	if p.MaxRateLimitRetries < 0 {
		p.MaxRateLimitRetries = def.MaxRateLimitRetries
	}
	if p.MaxRetryAfter <= 0 {
		p.MaxRetryAfter = def.MaxRetryAfter
	}
	return p
}

// backoff returns the linear delay before transient retry number attempt (1-based).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	return p.RetryDelay * time.Duration(attempt)
}

// retryAfter parses a Retry-After header given either as seconds or as an
// HTTP date. Missing or invalid values yield one second.
func retryAfter(value string, now time.Time, limit time.Duration) time.Duration {
	wait := time.Second
	value = strings.TrimSpace(value)
	if value != "" {
		if secs, err := strconv.Atoi(value); err == nil {
			if secs >= 0 {
				wait = time.Duration(secs) * time.Second
			}
		} else if at, err := http.ParseTime(value); err == nil {
			wait = max(at.Sub(now), 0)
		}
	}
	if limit > 0 && wait > limit {
		wait = limit
	}
	return wait
}

func isTransientStatus(status int) bool {
	return status >= http.StatusInternalServerError
}

// sleepWithContext blocks for d, returning early if ctx is cancelled.
func sleepWithContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
