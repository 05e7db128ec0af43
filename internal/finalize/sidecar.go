package finalize

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
)

const (
	unknownTitle  = "Unknown Title"
	unknownArtist = "Unknown Artist"
)

// Metadata is the subset of the yt-dlp info JSON the library keeps.
type Metadata struct {
	ID              string
	Title           string
	Artist          string
	SourceURL       string
	CoverURL        string
	DurationSeconds int
}

// ReadSidecar loads and parses the info JSON at path. fallbackURL is used
// when the document carries no webpage_url.
func ReadSidecar(path, fallbackURL string) (Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Metadata{}, fmt.Errorf("%w: read %s: %w", ErrSidecar, path, err)
	}
	return ParseSidecar(data, fallbackURL)
}

// ParseSidecar extracts Metadata from an info JSON document. Missing fields
// fall back through yt-dlp's alternative keys and then to placeholders.
func ParseSidecar(data []byte, fallbackURL string) (Metadata, error) {
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		return Metadata{}, fmt.Errorf("%w: decode: %w", ErrSidecar, err)
	}
	if doc == nil {
		return Metadata{}, fmt.Errorf("%w: document is not an object", ErrSidecar)
	}
	meta := Metadata{
		ID:              firstString(doc, "id", "display_id"),
		Title:           firstString(doc, "title", "fulltitle"),
		Artist:          firstString(doc, "uploader", "artist", "creator", "channel"),
		SourceURL:       firstString(doc, "webpage_url"),
		CoverURL:        firstString(doc, "thumbnail"),
		DurationSeconds: durationSeconds(doc["duration"]),
	}
	if meta.Title == "" {
		meta.Title = unknownTitle
	}
	if meta.Artist == "" {
		meta.Artist = unknownArtist
	}
	if meta.SourceURL == "" {
		meta.SourceURL = strings.TrimSpace(fallbackURL)
	}
	return meta, nil
}

func firstString(doc map[string]any, keys ...string) string {
	for _, key := range keys {
		switch v := doc[key].(type) {
		case string:
			if s := strings.TrimSpace(v); s != "" {
				return s
			}
		case float64:
			return strconv.FormatFloat(v, 'f', -1, 64)
		}
	}
	return ""
}

func durationSeconds(value any) int {
	switch v := value.(type) {
	case float64:
		if v > 0 && !math.IsInf(v, 0) {
			return int(math.Round(v))
		}
	case string:
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil && f > 0 {
			return int(math.Round(f))
		}
	}
	return 0
}
