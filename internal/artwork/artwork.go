// Package artwork decodes, scales and caches notification artwork for the
// display hosts.
package artwork

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/disintegration/imaging"
	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

// DefaultCacheSize is the number of decoded images kept in memory.
const DefaultCacheSize = 64

// ErrNoArtwork is returned when artwork carries neither bytes nor a path.
var ErrNoArtwork = errors.New("artwork has no image data")

// Cache holds decoded and scaled artwork keyed by content hash and size.
// Scaled images can also be written to disk for hosts that load images by
// filename.
type Cache struct {
	images *lru.Cache[string, image.Image]
	dir    string
	logger *slog.Logger
}

// NewCache creates a cache holding up to size images. dir is where File
// writes scaled PNGs; empty means the user cache directory.
func NewCache(size int, dir string, logger *slog.Logger) (*Cache, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	if dir == "" {
		base, err := os.UserCacheDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get cache directory: %w", err)
		}
		dir = filepath.Join(base, "tvoverlay", "artwork")
	}

	images, err := lru.New[string, image.Image](size)
	if err != nil {
		return nil, fmt.Errorf("failed to create LRU cache: %w", err)
	}

	return &Cache{images: images, dir: dir, logger: logger}, nil
}

// Key identifies artwork content. Inline bytes hash by content, files by
// path.
func Key(a *model.Artwork) string {
	if a == nil {
		return ""
	}
	if len(a.Image) > 0 {
		sum := sha256.Sum256(a.Image)
		return hex.EncodeToString(sum[:12])
	}
	if a.Path != "" {
		sum := sha256.Sum256([]byte("path:" + a.Path))
		return hex.EncodeToString(sum[:12])
	}
	return ""
}

// Load decodes artwork at its natural size.
func (c *Cache) Load(a *model.Artwork) (image.Image, error) {
	key := Key(a)
	if key == "" {
		return nil, ErrNoArtwork
	}
	if img, ok := c.images.Get(key); ok {
		return img, nil
	}

	img, err := decode(a)
	if err != nil {
		return nil, err
	}
	c.images.Add(key, img)
	return img, nil
}

// Fit returns the artwork scaled down to fit within width x height pixels,
// preserving aspect ratio. Images that already fit are returned unscaled.
func (c *Cache) Fit(a *model.Artwork, width, height int) (image.Image, error) {
	key := Key(a)
	if key == "" {
		return nil, ErrNoArtwork
	}
	sized := fmt.Sprintf("%s-%dx%d", key, width, height)
	if img, ok := c.images.Get(sized); ok {
		return img, nil
	}

	img, err := c.Load(a)
	if err != nil {
		return nil, err
	}

	b := img.Bounds()
	if width > 0 && height > 0 && (b.Dx() > width || b.Dy() > height) {
		img = imaging.Fit(img, width, height, imaging.Lanczos)
	}
	c.images.Add(sized, img)
	return img, nil
}

// File writes the fitted artwork as PNG into the cache directory and
// returns its path. Existing files are reused.
func (c *Cache) File(a *model.Artwork, width, height int) (string, error) {
	key := Key(a)
	if key == "" {
		return "", ErrNoArtwork
	}

	path := filepath.Join(c.dir, fmt.Sprintf("%s-%dx%d.png", key, width, height))
	if _, err := os.Stat(path); err == nil {
		return path, nil
	}

	img, err := c.Fit(a, width, height)
	if err != nil {
		return "", err
	}

	if err := os.MkdirAll(c.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create artwork directory: %w", err)
	}
	if err := imaging.Save(img, path); err != nil {
		return "", fmt.Errorf("failed to write artwork: %w", err)
	}

	c.logger.Debug("artwork cached", "path", path)
	return path, nil
}

// Len returns the number of cached images.
func (c *Cache) Len() int {
	return c.images.Len()
}

// Purge drops all in-memory images.
func (c *Cache) Purge() {
	c.images.Purge()
}

func decode(a *model.Artwork) (image.Image, error) {
	if len(a.Image) > 0 {
		img, err := imaging.Decode(bytes.NewReader(a.Image), imaging.AutoOrientation(true))
		if err != nil {
			return nil, fmt.Errorf("failed to decode artwork: %w", err)
		}
		return img, nil
	}

	path := strings.TrimPrefix(a.Path, "file://")
	img, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to open artwork %s: %w", path, err)
	}
	return img, nil
}
