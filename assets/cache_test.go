package assets

import (
	"bytes"
	"encoding/binary"
	"hash/crc32"
	"image"
	"image/color"
	"sync/atomic"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cppla/toolshed/common"
)

func writeImage(t *testing.T, fs afero.Fs, name string, w, h int) {
	t.Helper()
	require.NoError(t, fs.MkdirAll("uploads", 0o755))
	f, err := fs.Create(name)
	require.NoError(t, err)
	defer f.Close()

	format, err := imaging.FormatFromFilename(name)
	require.NoError(t, err)
	img := imaging.New(w, h, color.NRGBA{R: 200, G: 80, B: 20, A: 255})
	require.NoError(t, imaging.Encode(f, img, format))
}

func decodeSize(t *testing.T, fs afero.Fs, name string) (int, int) {
	t.Helper()
	f, err := fs.Open(name)
	require.NoError(t, err)
	defer f.Close()
	img, err := imaging.Decode(f)
	require.NoError(t, err)
	return img.Bounds().Dx(), img.Bounds().Dy()
}

func TestVariantPath(t *testing.T) {
	tests := []struct {
		original string
		kind     Kind
		want     string
	}{
		{"uploads/123.jpg", Thumb, "uploads/123_thumb.jpg"},
		{"uploads/123.jpg", Preview, "uploads/123_preview.jpg"},
		{"a.png", Thumb, "a_thumb.png"},
		{"uploads/v1.2/photo.jpeg", Thumb, "uploads/v1.2/photo_thumb.jpeg"},
		{"uploads/noext", Preview, "uploads/noext_preview"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VariantPath(tt.original, tt.kind), tt.original)
	}
}

func TestVariantPathDistinctOriginals(t *testing.T) {
	originals := []string{
		"uploads/a.jpg",
		"uploads/b.jpg",
		"other/a.jpg",
		"uploads/sub/a.jpg",
		"a.jpg",
	}
	for _, kind := range []Kind{Thumb, Preview} {
		seen := map[string]string{}
		for _, o := range originals {
			v := VariantPath(o, kind)
			prev, dup := seen[v]
			require.False(t, dup, "%s and %s both map to %s", prev, o, v)
			seen[v] = o
			assert.Equal(t, v, VariantPath(o, kind))
		}
	}
}

func TestVariantPathKnownCollision(t *testing.T) {
	// An upload literally named x_thumb.jpg is indistinguishable from the thumbnail of x.jpg.
	collidingOriginal := "uploads/x_thumb.jpg"
	assert.Equal(t, collidingOriginal, VariantPath("uploads/x.jpg", Thumb))
}

func TestEnsureGeneratesOnce(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeImage(t, fs, "uploads/drill.jpg", 640, 480)

	var calls int32
	counting := func(src image.Image, kind Kind) (image.Image, error) {
		atomic.AddInt32(&calls, 1)
		return DefaultTransform(src, kind)
	}
	c := NewCache(fs, WithTransform(counting))

	first, err := c.Ensure("uploads/drill.jpg", Thumb)
	require.NoError(t, err)
	second, err := c.Ensure("uploads/drill.jpg", Thumb)
	require.NoError(t, err)

	assert.Equal(t, "uploads/drill_thumb.jpg", first)
	assert.Equal(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))

	_, err = c.Ensure("uploads/drill.jpg", Preview)
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(&calls))
}

func TestEnsureServesExistingFileWithoutValidation(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "uploads/gone_thumb.jpg", []byte("not an image"), 0o644))

	c := NewCache(fs)
	p, err := c.Ensure("uploads/gone.jpg", Thumb)
	require.NoError(t, err)
	assert.Equal(t, "uploads/gone_thumb.jpg", p)
}

func TestEnsureDimensions(t *testing.T) {
	fs := afero.NewMemMapFs()
	writeImage(t, fs, "uploads/wide.jpg", 1200, 600)
	writeImage(t, fs, "uploads/small.png", 120, 90)

	c := NewCache(fs)

	thumb, err := c.Ensure("uploads/wide.jpg", Thumb)
	require.NoError(t, err)
	w, h := decodeSize(t, fs, thumb)
	assert.Equal(t, 200, w)
	assert.Equal(t, 200, h)

	preview, err := c.Ensure("uploads/wide.jpg", Preview)
	require.NoError(t, err)
	w, h = decodeSize(t, fs, preview)
	assert.Equal(t, 600, w)
	assert.Equal(t, 300, h)

	small, err := c.Ensure("uploads/small.png", Preview)
	require.NoError(t, err)
	assert.Equal(t, "uploads/small_preview.png", small)
	w, h = decodeSize(t, fs, small)
	assert.Equal(t, 120, w)
	assert.Equal(t, 90, h)
}

func TestEnsureFailures(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "uploads/broken.jpg", []byte("garbage"), 0o644))
	require.NoError(t, afero.WriteFile(fs, "uploads/manual.pdf", []byte("%PDF-1.4"), 0o644))
	c := NewCache(fs)

	_, err := c.Ensure("uploads/missing.jpg", Thumb)
	require.ErrorIs(t, err, common.ErrAssetGeneration)

	_, err = c.Ensure("uploads/broken.jpg", Thumb)
	require.ErrorIs(t, err, common.ErrAssetGeneration)

	_, err = c.Ensure("uploads/manual.pdf", Preview)
	require.ErrorIs(t, err, common.ErrAssetGeneration)

	_, err = c.Ensure("uploads/broken.jpg", Kind("huge"))
	require.ErrorIs(t, err, common.ErrAssetGeneration)

	ok, err := afero.Exists(fs, "uploads/broken_thumb.jpg")
	require.NoError(t, err)
	assert.False(t, ok, "failed generation must not leave a variant behind")
}

// oversizedPNG is a valid 1x1 PNG whose header claims w x h pixels.
func oversizedPNG(t *testing.T, w, h uint32) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, imaging.Encode(&buf, imaging.New(1, 1, color.NRGBA{A: 255}), imaging.PNG))
	data := buf.Bytes()

	// signature(8) | length(4) | "IHDR"(4) | width(4) | height(4) | ... | crc at 29
	binary.BigEndian.PutUint32(data[16:20], w)
	binary.BigEndian.PutUint32(data[20:24], h)
	binary.BigEndian.PutUint32(data[29:33], crc32.ChecksumIEEE(data[12:29]))
	return data
}

func TestEnsureRejectsOversizedOriginal(t *testing.T) {
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "uploads/bomb.png", oversizedPNG(t, 30000, 30000), 0o644))

	var calls int32
	c := NewCache(fs, WithTransform(func(src image.Image, kind Kind) (image.Image, error) {
		atomic.AddInt32(&calls, 1)
		return DefaultTransform(src, kind)
	}))

	for _, kind := range []Kind{Thumb, Preview} {
		_, err := c.Ensure("uploads/bomb.png", kind)
		require.ErrorIs(t, err, common.ErrAssetGeneration)
		assert.Contains(t, err.Error(), "30000x30000")
	}
	assert.Zero(t, atomic.LoadInt32(&calls))

	ok, err := afero.Exists(fs, "uploads/bomb_thumb.png")
	require.NoError(t, err)
	assert.False(t, ok)
}
