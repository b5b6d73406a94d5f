// Package main hosts the spotafy CLI entrypoint and command graph.
//
// The Cobra command tree wires configuration, logging, the SQLite library,
// the Spotify catalog client and the yt-dlp downloader into the importer and
// the local search service, then exposes them as import, search, songs,
// status, clean and config commands.
//
// Keep this package thin: behavior belongs in the internal packages and the
// commands here only parse flags and render results.
package main
