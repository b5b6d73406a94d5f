// Package identity derives the deterministic song token used as the dedup key
// across the library.
//
// A token is "mus_" followed by the first 32 hex characters of the SHA-256 of
// "<artist>_<title>_<date>", where artist and title are identity-normalized and
// the date is normalized to YYYY-MM-DD or "unknown". Case, accents, spaces and
// punctuation therefore never change a token.
package identity
