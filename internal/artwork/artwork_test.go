package artwork

import (
	"bytes"
	"image"
	"image/color"
	"image/png"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/tvoverlay/internal/model"
)

func testPNG(t *testing.T, w, h int, c color.Color) []byte {
	t.Helper()
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, c)
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := NewCache(8, t.TempDir(), nil)
	require.NoError(t, err)
	return c
}

func TestKey(t *testing.T) {
	data := []byte{1, 2, 3}
	assert.Equal(t, "", Key(nil))
	assert.Equal(t, "", Key(&model.Artwork{}))
	assert.Equal(t, Key(&model.Artwork{Image: data}), Key(&model.Artwork{Image: []byte{1, 2, 3}}))
	assert.NotEqual(t, Key(&model.Artwork{Image: data}), Key(&model.Artwork{Path: "/a.png"}))
	assert.NotEqual(t, Key(&model.Artwork{Path: "/a.png"}), Key(&model.Artwork{Path: "/b.png"}))
}

func TestCache_LoadAndFit(t *testing.T) {
	c := newTestCache(t)
	a := &model.Artwork{Image: testPNG(t, 200, 100, color.White)}

	img, err := c.Load(a)
	require.NoError(t, err)
	assert.Equal(t, 200, img.Bounds().Dx())

	fit, err := c.Fit(a, 50, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, fit.Bounds().Dx())
	assert.Equal(t, 25, fit.Bounds().Dy())

	small, err := c.Fit(a, 400, 400)
	require.NoError(t, err)
	assert.Equal(t, 200, small.Bounds().Dx(), "no upscaling")

	assert.Equal(t, 3, c.Len())
	c.Purge()
	assert.Equal(t, 0, c.Len())
}

func TestCache_LoadPath(t *testing.T) {
	c := newTestCache(t)
	path := filepath.Join(t.TempDir(), "cover.png")
	require.NoError(t, os.WriteFile(path, testPNG(t, 10, 10, color.Black), 0644))

	img, err := c.Load(&model.Artwork{Path: "file://" + path})
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dy())
}

func TestCache_Errors(t *testing.T) {
	c := newTestCache(t)

	_, err := c.Load(&model.Artwork{})
	assert.ErrorIs(t, err, ErrNoArtwork)

	_, err = c.Load(&model.Artwork{Image: []byte("not an image")})
	assert.Error(t, err)

	_, err = c.Load(&model.Artwork{Path: "/does/not/exist.png"})
	assert.Error(t, err)
}

func TestCache_File(t *testing.T) {
	c := newTestCache(t)
	a := &model.Artwork{Image: testPNG(t, 64, 64, color.White)}

	path, err := c.File(a, 32, 32)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "-32x32.png"))

	f, err := os.Open(path)
	require.NoError(t, err)
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	require.NoError(t, err)
	assert.Equal(t, 32, cfg.Width)

	again, err := c.File(a, 32, 32)
	require.NoError(t, err)
	assert.Equal(t, path, again)
}

func TestHalfblocks(t *testing.T) {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 3))
	img.Set(0, 0, color.NRGBA{255, 0, 0, 255})
	img.Set(0, 1, color.NRGBA{0, 0, 255, 255})

	out := Halfblocks(img)
	assert.Contains(t, out, "\x1b[38;2;255;0;0m\x1b[48;2;0;0;255m▀")
	assert.Equal(t, 1, strings.Count(out, "\n"), "three pixel rows make two cell rows")
	assert.True(t, strings.HasSuffix(out, "\x1b[0m"))

	assert.Equal(t, "", Halfblocks(image.NewNRGBA(image.Rect(0, 0, 0, 0))))
}

func TestTerminalRenderer(t *testing.T) {
	c := newTestCache(t)
	a := &model.Artwork{Image: testPNG(t, 40, 40, color.White)}

	none := NewTerminalRenderer(c, ProtocolNone)
	out, err := none.Render(a, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, "", out)

	hb := NewTerminalRenderer(c, ProtocolHalfblock)
	out, err = hb.Render(a, 4, 2)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(out, "\n"))
	assert.Equal(t, 8, strings.Count(out, "▀"), "4 columns by 2 cell rows")

	_, err = hb.Render(&model.Artwork{}, 4, 2)
	assert.ErrorIs(t, err, ErrNoArtwork)
}
