// Package reconcile resolves noisy (artist, title) pairs to canonical catalog
// tracks.
//
// A Reconciler runs an ordered cascade of search strategies, each with its own
// query construction, scoring and acceptance threshold:
//
//  1. structured: track:"title" artist:"artist", edit-distance scoring
//  2. alternatives: phrase, artist and free-text variants
//  3. broad: cleaned title with keyword-reduced variants
//  4. artist: the artist's most popular track
//  5. original term: the raw user term, used only by ResolveWithFallback
//
// Transport errors inside a strategy are logged and treated as "no result";
// only context cancellation escapes. A nil Result means nothing was accepted.
package reconcile
