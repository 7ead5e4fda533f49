package assets

import (
	"path"
	"strings"
)

var (
	imageExts  = map[string]bool{".jpg": true, ".jpeg": true, ".png": true, ".gif": true}
	manualExts = map[string]bool{".pdf": true, ".txt": true, ".doc": true, ".docx": true, ".odt": true}
)

// IsImage reports whether name has an extension accepted for listing images.
func IsImage(name string) bool {
	return imageExts[Ext(name)]
}

// IsManual reports whether name has an extension accepted for user manuals.
func IsManual(name string) bool {
	return manualExts[Ext(name)]
}

// Ext returns the lower-cased extension of name, dot included.
func Ext(name string) string {
	return strings.ToLower(path.Ext(strings.ReplaceAll(name, "\\", "/")))
}
