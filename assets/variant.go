// Package assets stores uploaded originals and produces resized variants of images on demand.
//
// A variant lives next to its original under a name derived from it (see VariantPath). Its
// presence on the asset filesystem is the cache entry: once written it is served as is and
// only regenerated when the file is gone.
package assets

import (
	"path"
	"strings"
)

// Kind names a derived image variant.
type Kind string

const (
	// Thumb is a 200x200 center crop used in listing collections.
	Thumb Kind = "thumb"
	// Preview is capped at 300px height, width following the aspect ratio.
	Preview Kind = "preview"
)

func (k Kind) valid() bool {
	return k == Thumb || k == Preview
}

// VariantPath returns dir/base_{kind}.ext for an original at dir/base.ext.
//
// Paths are slash separated, the way they are stored in the database and served over HTTP.
// An original that is itself named X_thumb.ext maps to the same name as the thumbnail of X.ext;
// uploads are stored under generated names that never carry such a suffix.
func VariantPath(original string, kind Kind) string {
	ext := path.Ext(original)
	stem := strings.TrimSuffix(original, ext)
	return stem + "_" + string(kind) + ext
}
