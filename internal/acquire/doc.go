// Package acquire fetches audio for an import and recovers metadata from
// the names it comes back with.
//
// YtDlp drives the yt-dlp binary with a "first search result" query and
// reports the path of the resulting mp3. ExtractMetadata splits upload-style
// titles ("Artist - Title (Official Video)") into artist and title, and
// DetectGenres guesses genres from title keywords when the catalog has none.
package acquire
