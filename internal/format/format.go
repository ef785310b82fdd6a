// Package format maps image files to the codec that should decode them.
//
// Resolution is two-tiered: ResolveHint looks only at the file name and is
// free, Sniff inspects the leading bytes of the file and is used when the
// name says nothing useful.
package format

import (
	"path/filepath"
	"strings"
)

// Hint identifies an image encoding.
type Hint string

const (
	AVIF    Hint = "avif"
	JPEG    Hint = "jpeg"
	PNG     Hint = "png"
	WEBP    Hint = "webp"
	GIF     Hint = "gif"
	TIFF    Hint = "tiff"
	BMP     Hint = "bmp"
	Unknown Hint = "unknown"
)

// All lists every decodable format in a stable order.
var All = []Hint{AVIF, JPEG, PNG, WEBP, GIF, TIFF, BMP}

// extensions maps lower-cased extensions (without the dot) to formats.
var extensions = map[string]Hint{
	"avif": AVIF,
	"jpg":  JPEG,
	"jpeg": JPEG,
	"png":  PNG,
	"webp": WEBP,
	"gif":  GIF,
	"tiff": TIFF,
	"tif":  TIFF,
	"bmp":  BMP,
}

// ResolveHint derives a format from the extension of path, case-insensitively.
// Paths without a known extension yield Unknown. A dot-file such as ".png"
// has no extension.
func ResolveHint(path string) Hint {
	base := filepath.Base(path)
	ext := filepath.Ext(base)
	if ext == "" || ext == base {
		return Unknown
	}
	if h, ok := extensions[strings.ToLower(ext[1:])]; ok {
		return h
	}
	return Unknown
}

// Known reports whether h names a decodable format.
func (h Hint) Known() bool {
	_, ok := extensionsFor[h]
	return ok
}

// String returns the lower-case format name.
func (h Hint) String() string { return string(h) }

// Extensions returns the file extensions mapped to h, with leading dots.
func (h Hint) Extensions() []string {
	exts := extensionsFor[h]
	out := make([]string, len(exts))
	for i, e := range exts {
		out[i] = "." + e
	}
	return out
}

var extensionsFor = map[Hint][]string{
	AVIF: {"avif"},
	JPEG: {"jpg", "jpeg"},
	PNG:  {"png"},
	WEBP: {"webp"},
	GIF:  {"gif"},
	TIFF: {"tiff", "tif"},
	BMP:  {"bmp"},
}

// Parse converts a format name such as "jpg" or "TIFF" to a Hint.
func Parse(name string) Hint {
	name = strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), ".")
	if h, ok := extensions[name]; ok {
		return h
	}
	return Unknown
}
