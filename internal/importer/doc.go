// Package importer turns a free-text term into a stored song.
//
// Import resolves the term against the catalog, checks the library for an
// existing song with the same identity token, downloads the audio, merges
// catalog and filename metadata, and persists everything in one library
// transaction. Media placement (sharded audio path, cover art, ID3 tags) runs
// afterwards and only logs on failure.
//
// Concurrent imports of the same term are serialized by a file lock under the
// configured lock directory; a second caller gets ErrImportInProgress.
package importer
