// Package staging maintains the download directory yt-dlp writes into before
// the importer moves audio into the media library. Aborted or duplicate
// imports leave files behind; CleanStale reclaims them.
package staging
