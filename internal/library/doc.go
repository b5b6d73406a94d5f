// Package library persists the local music catalog in SQLite.
//
// The Store owns artists, albums, genres and songs. Songs are keyed by their
// identity token (see package identity), which carries a UNIQUE constraint so
// concurrent imports of the same song collapse to a single row. Imports run in
// one transaction: artist, album and genre rows are found or created, the song
// is inserted and the genre links are written, or nothing is.
//
// Albums titled "Single" are never shared; every single gets its own row.
// Artists are matched by exact name. SimilarArtists exposes a Jaro-Winkler
// lookup so callers can flag near-duplicate names without merging them.
//
// Schema changes bump schemaVersion in schema.go; older databases are
// rejected with ErrSchemaMismatch.
package library
