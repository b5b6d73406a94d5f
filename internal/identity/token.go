package identity

import (
	"crypto/sha256"
	"encoding/hex"
	"path/filepath"
	"regexp"

	"spotafy/internal/textutil"
)

// Prefix marks every song token.
const Prefix = "mus_"

const hashChars = 32

var tokenPattern = regexp.MustCompile(`^mus_[0-9a-f]{32}$`)

// Generate returns the token for an (artist, title, release date) triple.
func Generate(artist, title, releaseDate string) string {
	base := textutil.NormalizeForIdentity(artist) + "_" +
		textutil.NormalizeForIdentity(title) + "_" +
		textutil.NormalizeDate(releaseDate)
	sum := sha256.Sum256([]byte(base))
	return Prefix + hex.EncodeToString(sum[:])[:hashChars]
}

// Valid reports whether token has the canonical shape.
func Valid(token string) bool {
	return tokenPattern.MatchString(token)
}

// ShardPath returns the two-level directory ("ab/cd") used to spread media
// files for token across the filesystem. Invalid tokens land in "00/00".
func ShardPath(token string) string {
	if !Valid(token) {
		return filepath.Join("00", "00")
	}
	hash := token[len(Prefix):]
	return filepath.Join(hash[0:2], hash[2:4])
}
