package mpris

import (
	"net/url"
	"os"
	"path/filepath"
	"strings"
)

// coverNames lists common album art filenames in priority order.
var coverNames = []string{
	"cover.jpg", "cover.png", "cover.jpeg",
	"folder.jpg", "folder.png", "folder.jpeg",
	"album.jpg", "album.png", "album.jpeg",
	"front.jpg", "front.png", "front.jpeg",
}

// ArtworkPath returns a local image for the track: the player's artUrl when
// it is a file, otherwise a cover image next to a local track.
func ArtworkPath(t Track) string {
	if p := localPath(t.ArtURL); p != "" {
		return p
	}
	if p := localPath(t.URL); p != "" {
		return FindAlbumArt(p)
	}
	return ""
}

func localPath(raw string) string {
	switch {
	case raw == "":
		return ""
	case strings.HasPrefix(raw, "/"):
		return raw
	case strings.HasPrefix(raw, "file://"):
		u, err := url.Parse(raw)
		if err != nil {
			return ""
		}
		return u.Path
	default:
		return ""
	}
}

// FindAlbumArt looks for album art in the same directory as the track.
// Returns the path to the art file, or empty string if not found.
func FindAlbumArt(trackPath string) string {
	dir := filepath.Dir(trackPath)
	for _, name := range coverNames {
		path := filepath.Join(dir, name)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
