// Package tags writes ID3v2 metadata into imported mp3 files and downloads
// album cover art.
package tags
