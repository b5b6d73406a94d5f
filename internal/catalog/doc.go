// Package catalog talks to the Spotify Web API.
//
// Client wraps the track search and artist endpoints with the resilience rules
// the importer relies on: HTTP 429 honours Retry-After, HTTP 401 refreshes the
// bearer token once and retries, and network errors or 5xx responses back off
// linearly for a bounded number of attempts. TokenHolder caches the
// client-credentials token until shortly before it expires. GenreCache keeps
// artist genres for an hour and never fails the caller.
//
// Responses are mapped into Candidate values, the immutable snapshot the
// reconciler and importer work with.
package catalog
