package tags

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bogem/id3v2/v2"

	"spotafy/internal/catalog"
)

// DefaultCoverTimeout bounds a cover download.
const DefaultCoverTimeout = 30 * time.Second

const maxCoverBytes = 10 << 20

// Metadata is the tag set written into an mp3.
type Metadata struct {
	Title       string
	Artist      string
	Album       string
	ReleaseDate string
	Genre       string
	CoverPath   string
}

// Write stores md as an ID3v2.3 tag in the file at path, replacing any
// existing frames it sets.
func Write(path string, md Metadata) error {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("id3 open: %w", err)
	}
	defer tag.Close()

	tag.SetVersion(3)
	tag.SetDefaultEncoding(id3v2.EncodingUTF8)
	if md.Title != "" {
		tag.SetTitle(md.Title)
	}
	if md.Artist != "" {
		tag.SetArtist(md.Artist)
	}
	if md.Album != "" {
		tag.SetAlbum(md.Album)
	}
	if year := releaseYear(md.ReleaseDate); year != "" {
		tag.SetYear(year)
	}
	if md.Genre != "" {
		tag.SetGenre(md.Genre)
	}
	if md.CoverPath != "" {
		picture, err := os.ReadFile(md.CoverPath)
		if err != nil {
			return fmt.Errorf("read cover: %w", err)
		}
		tag.DeleteFrames(tag.CommonID("Attached picture"))
		tag.AddAttachedPicture(id3v2.PictureFrame{
			Encoding:    id3v2.EncodingUTF8,
			MimeType:    mimeType(md.CoverPath),
			PictureType: id3v2.PTFrontCover,
			Description: "Front cover",
			Picture:     picture,
		})
	}

	if err := tag.Save(); err != nil {
		return fmt.Errorf("id3 save: %w", err)
	}
	return nil
}

// Read returns the title, artist and album stored in the file's ID3 tag.
func Read(path string) (Metadata, error) {
	tag, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return Metadata{}, fmt.Errorf("id3 open: %w", err)
	}
	defer tag.Close()
	return Metadata{
		Title:       tag.Title(),
		Artist:      tag.Artist(),
		Album:       tag.Album(),
		ReleaseDate: tag.Year(),
		Genre:       tag.Genre(),
	}, nil
}

func releaseYear(date string) string {
	date = strings.TrimSpace(date)
	if len(date) < 4 {
		return ""
	}
	return date[:4]
}

func mimeType(path string) string {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".png":
		return "image/png"
	case ".webp":
		return "image/webp"
	default:
		return "image/jpeg"
	}
}

// FetchCover downloads the image at url into destBase plus the extension
// implied by the URL and returns the written path. client may be nil.
func FetchCover(ctx context.Context, client *http.Client, url, destBase string) (string, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return "", errors.New("cover url is empty")
	}
	if client == nil {
		client = &http.Client{Timeout: DefaultCoverTimeout}
	}
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, DefaultCoverTimeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", fmt.Errorf("build cover request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch cover: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch cover: unexpected status %d", resp.StatusCode)
	}

	dest := destBase + catalog.ImageExtension(url)
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return "", fmt.Errorf("create cover directory: %w", err)
	}
	out, err := os.Create(dest)
	if err != nil {
		return "", fmt.Errorf("create cover file: %w", err)
	}
	if _, err := io.Copy(out, io.LimitReader(resp.Body, maxCoverBytes)); err != nil {
		_ = out.Close()
		_ = os.Remove(dest)
		return "", fmt.Errorf("write cover: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dest)
		return "", fmt.Errorf("close cover: %w", err)
	}
	return dest, nil
}
