package catalog

import (
	"path"
	"slices"
	"strings"
)

// Image is one rendition of album art.
type Image struct {
	URL    string `json:"url"`
	Width  int    `json:"width"`
	Height int    `json:"height"`
}

// ArtistRef is the short artist object embedded in tracks.
type ArtistRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Album is the simplified album object embedded in tracks.
type Album struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	ReleaseDate string  `json:"release_date"`
	Images      []Image `json:"images"`
}

// ExternalIDs carries third-party identifiers for a track.
type ExternalIDs struct {
	ISRC string `json:"isrc"`
}

// ExternalURLs carries public links for a catalog object.
type ExternalURLs struct {
	Spotify string `json:"spotify"`
}

// Track is the wire shape of a catalog track.
type Track struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Artists      []ArtistRef  `json:"artists"`
	Album        Album        `json:"album"`
	DurationMS   int          `json:"duration_ms"`
	Popularity   int          `json:"popularity"`
	Explicit     bool         `json:"explicit"`
	PreviewURL   string       `json:"preview_url"`
	ExternalIDs  ExternalIDs  `json:"external_ids"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

// PrimaryArtist returns the first credited artist, or an empty ref.
func (t Track) PrimaryArtist() ArtistRef {
	if len(t.Artists) == 0 {
		return ArtistRef{}
	}
	return t.Artists[0]
}

// Artist is the full artist object.
type Artist struct {
	ID           string       `json:"id"`
	Name         string       `json:"name"`
	Genres       []string     `json:"genres"`
	Popularity   int          `json:"popularity"`
	ExternalURLs ExternalURLs `json:"external_urls"`
}

type searchResponse struct {
	Tracks struct {
		Items []Track `json:"items"`
		Total int     `json:"total"`
	} `json:"tracks"`
}

// Candidate is the normalized snapshot of a single catalog match.
type Candidate struct {
	ID          string   `json:"id"`
	ArtistID    string   `json:"artist_id"`
	ArtistName  string   `json:"artist"`
	Title       string   `json:"title"`
	AlbumName   string   `json:"album"`
	DurationMS  int      `json:"duration_ms"`
	ReleaseDate string   `json:"release_date,omitempty"`
	Explicit    bool     `json:"explicit"`
	Popularity  int      `json:"popularity"`
	PreviewURL  string   `json:"preview_url,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	ExternalURL string   `json:"external_url,omitempty"`
	ISRC        string   `json:"isrc,omitempty"`
}

// NewCandidate flattens a track into a Candidate. Genres are filled in later.
func NewCandidate(t Track) Candidate {
	artist := t.PrimaryArtist()
	return Candidate{
		ID:          t.ID,
		ArtistID:    artist.ID,
		ArtistName:  artist.Name,
		Title:       t.Name,
		AlbumName:   t.Album.Name,
		DurationMS:  t.DurationMS,
		ReleaseDate: strings.TrimSpace(t.Album.ReleaseDate),
		Explicit:    t.Explicit,
		Popularity:  t.Popularity,
		PreviewURL:  t.PreviewURL,
		CoverURL:    BestImageURL(t.Album.Images),
		ExternalURL: t.ExternalURLs.Spotify,
		ISRC:        t.ExternalIDs.ISRC,
	}
}

// BestImageURL picks the widest image between 300 and 640 pixels, falling back
// to the widest image overall.
func BestImageURL(images []Image) string {
	if len(images) == 0 {
		return ""
	}
	sorted := slices.Clone(images)
	slices.SortStableFunc(sorted, func(a, b Image) int { return b.Width - a.Width })
	for _, img := range sorted {
		if img.Width >= 300 && img.Width <= 640 {
			return img.URL
		}
	}
	return sorted[0].URL
}

// ImageExtension returns the file extension implied by an image URL,
// defaulting to ".jpg".
func ImageExtension(rawURL string) string {
	clean := rawURL
	if idx := strings.IndexAny(clean, "?#"); idx >= 0 {
		clean = clean[:idx]
	}
	switch ext := strings.ToLower(path.Ext(clean)); ext {
	case ".jpg", ".jpeg", ".png", ".webp":
		return ext
	default:
		return ".jpg"
	}
}
