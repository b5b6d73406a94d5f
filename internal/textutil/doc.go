// Package textutil provides the text normalization and similarity primitives
// shared by catalog reconciliation, identity tokens and local search.
//
// Normalization comes in three flavours:
//   - comparison: lowercase ASCII text with spaces kept for word splitting
//   - identity: compact [a-z0-9_] strings that feed the song token hash
//   - query cleanup: boilerplate words ("official", "video", "hd", ...) removed
//     before a string is sent to the catalog
//
// Similarity metrics all return values in [0,1]. No single metric copes with
// every kind of noise, so callers usually take the best of several.
package textutil
