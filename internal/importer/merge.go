package importer

import (
	"strings"

	"spotafy/internal/acquire"
	"spotafy/internal/catalog"
	"spotafy/internal/library"
)

// Placeholders used when neither the catalog nor the file name supplies a value.
const (
	UnknownTitle  = "Título Desconhecido"
	UnknownArtist = acquire.UnknownArtist
)

// Record is the merged view of a song before it is stored.
type Record struct {
	Title           string
	Artist          string
	Album           string
	ReleaseDate     string
	DurationSeconds int
	DurationMS      int
	CatalogID       string
	ArtistCatalogID string
	Popularity      int
	Explicit        bool
	PreviewURL      string
	ISRC            string
	ExternalURL     string
	CoverURL        string
	Genres          []string
}

// Merge combines catalog data, extracted file-name metadata and the probed
// duration. Catalog values win, then extracted values, then placeholders.
func Merge(cand *catalog.Candidate, extracted acquire.Extracted, durationSeconds int) Record {
	rec := Record{
		Title:           firstNonEmpty(extracted.Title, UnknownTitle),
		Artist:          firstNonEmpty(extracted.Artist, UnknownArtist),
		Album:           library.SingleAlbumTitle,
		DurationSeconds: max(durationSeconds, 0),
	}
	if cand == nil {
		return rec
	}
	rec.Title = firstNonEmpty(cand.Title, rec.Title)
	rec.Artist = firstNonEmpty(cand.ArtistName, rec.Artist)
	rec.Album = firstNonEmpty(cand.AlbumName, rec.Album)
	rec.ReleaseDate = strings.TrimSpace(cand.ReleaseDate)
	rec.DurationMS = cand.DurationMS
	rec.CatalogID = cand.ID
	rec.ArtistCatalogID = cand.ArtistID
	rec.Popularity = cand.Popularity
	rec.Explicit = cand.Explicit
	rec.PreviewURL = cand.PreviewURL
	rec.ISRC = cand.ISRC
	rec.ExternalURL = cand.ExternalURL
	rec.CoverURL = cand.CoverURL
	rec.Genres = append([]string(nil), cand.Genres...)
	return rec
}

// Duration returns the probed duration, or the catalog duration rounded to
// whole seconds when probing yielded nothing.
func (r Record) Duration() int {
	if r.DurationSeconds > 0 {
		return r.DurationSeconds
	}
	if r.DurationMS > 0 {
		return (r.DurationMS + 500) / 1000
	}
	return 0
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}
