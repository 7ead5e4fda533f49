package assets

import (
	"errors"
	"fmt"
	"image"
	"os"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/spf13/afero"
	"go.uber.org/zap"

	"github.com/cppla/toolshed/common"
)

const (
	thumbSize     = 200
	previewHeight = 300
	jpegQuality   = 80

	// maxSourcePixels bounds width*height of an original before it is decoded.
	maxSourcePixels = 50_000_000
)

// Transform produces the variant image of the given kind from a decoded original.
type Transform func(src image.Image, kind Kind) (image.Image, error)

// Option configures a Cache.
type Option func(*Cache)

// WithTransform replaces the resize step, e.g. to observe how often variants are generated.
func WithTransform(t Transform) Option {
	return func(c *Cache) { c.transform = t }
}

// WithLogger sets the logger used to report generated variants.
func WithLogger(l *zap.Logger) Option {
	return func(c *Cache) { c.log = l }
}

// Cache resolves variant paths, generating the variant file on first access.
// There is no locking: two requests missing the same variant both generate it and the
// last rename wins.
type Cache struct {
	fs        afero.Fs
	transform Transform
	log       *zap.Logger
}

// NewCache creates a Cache over the asset filesystem.
func NewCache(fs afero.Fs, opts ...Option) *Cache {
	c := &Cache{fs: fs, transform: DefaultTransform, log: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Ensure returns the path of the kind variant of original, creating it when absent.
func (c *Cache) Ensure(original string, kind Kind) (string, error) {
	if !kind.valid() {
		return "", fmt.Errorf("%w: unknown variant %q", common.ErrAssetGeneration, kind)
	}

	variant := VariantPath(original, kind)
	ok, err := afero.Exists(c.fs, variant)
	if err != nil {
		return "", fmt.Errorf("%w: stat %s: %v", common.ErrFilesystem, variant, err)
	}
	if ok {
		return variant, nil
	}

	if err := c.generate(original, variant, kind); err != nil {
		return "", err
	}
	c.log.Debug("variant generated", zap.String("original", original), zap.String("variant", variant))
	return variant, nil
}

func (c *Cache) generate(original, variant string, kind Kind) error {
	format, err := imaging.FormatFromFilename(variant)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", common.ErrAssetGeneration, original, err)
	}

	if err := c.checkDimensions(original); err != nil {
		return err
	}

	src, err := c.openOriginal(original)
	if err != nil {
		return err
	}
	img, err := imaging.Decode(src, imaging.AutoOrientation(true))
	_ = src.Close()
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", common.ErrAssetGeneration, original, err)
	}

	out, err := c.transform(img, kind)
	if err != nil {
		return fmt.Errorf("%w: resize %s: %v", common.ErrAssetGeneration, original, err)
	}

	// Readers treat any file at the variant path as complete, so write aside and rename.
	tmp := variant + ".tmp-" + uuid.NewString()
	f, err := c.fs.Create(tmp)
	if err != nil {
		return fmt.Errorf("%w: create %s: %v", common.ErrFilesystem, tmp, err)
	}
	if err := imaging.Encode(f, out, format, imaging.JPEGQuality(jpegQuality)); err != nil {
		_ = f.Close()
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("%w: encode %s: %v", common.ErrAssetGeneration, variant, err)
	}
	if err := f.Close(); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("%w: close %s: %v", common.ErrFilesystem, tmp, err)
	}
	if err := c.fs.Rename(tmp, variant); err != nil {
		_ = c.fs.Remove(tmp)
		return fmt.Errorf("%w: rename %s: %v", common.ErrFilesystem, variant, err)
	}
	return nil
}

func (c *Cache) openOriginal(original string) (afero.File, error) {
	f, err := c.fs.Open(original)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("%w: original %s is missing", common.ErrAssetGeneration, original)
		}
		return nil, fmt.Errorf("%w: open %s: %v", common.ErrAssetGeneration, original, err)
	}
	return f, nil
}

// checkDimensions reads only the image header, so oversized originals are rejected
// before any pixel buffer is allocated.
func (c *Cache) checkDimensions(original string) error {
	f, err := c.openOriginal(original)
	if err != nil {
		return err
	}
	cfg, _, err := image.DecodeConfig(f)
	_ = f.Close()
	if err != nil {
		return fmt.Errorf("%w: decode %s: %v", common.ErrAssetGeneration, original, err)
	}
	if cfg.Width <= 0 || cfg.Height <= 0 || int64(cfg.Width)*int64(cfg.Height) > maxSourcePixels {
		return fmt.Errorf("%w: %s is %dx%d, above the %d pixel limit",
			common.ErrAssetGeneration, original, cfg.Width, cfg.Height, maxSourcePixels)
	}
	return nil
}

// DefaultTransform crops thumbnails to cover 200x200 and scales previews down to 300px height.
// Previews are never enlarged.
func DefaultTransform(src image.Image, kind Kind) (image.Image, error) {
	switch kind {
	case Thumb:
		return imaging.Fill(src, thumbSize, thumbSize, imaging.Center, imaging.Lanczos), nil
	case Preview:
		if src.Bounds().Dy() <= previewHeight {
			return src, nil
		}
		return imaging.Resize(src, 0, previewHeight, imaging.Lanczos), nil
	default:
		return nil, fmt.Errorf("unknown variant %q", kind)
	}
}
