package format

import "bytes"

// SniffLen is the number of leading bytes Sniff needs to recognise every
// supported signature.
const SniffLen = 32

type signature struct {
	hint  Hint
	match func(prefix []byte) bool
}

// Order matters only for BMP, whose two-byte magic is the weakest.
var signatures = []signature{
	{PNG, hasPrefix("\x89PNG\r\n\x1a\n")},
	{JPEG, hasPrefix("\xff\xd8\xff")},
	{GIF, func(p []byte) bool { return hasPrefix("GIF87a")(p) || hasPrefix("GIF89a")(p) }},
	{WEBP, isWebP},
	{TIFF, func(p []byte) bool { return hasPrefix("II*\x00")(p) || hasPrefix("MM\x00*")(p) }},
	{AVIF, isAVIF},
	{BMP, hasPrefix("BM")},
}

// Sniff matches the leading bytes of a file against known signatures.
// It reports false when nothing matches.
func Sniff(prefix []byte) (Hint, bool) {
	for _, s := range signatures {
		if s.match(prefix) {
			return s.hint, true
		}
	}
	return Unknown, false
}

func hasPrefix(magic string) func([]byte) bool {
	return func(p []byte) bool { return bytes.HasPrefix(p, []byte(magic)) }
}

// RIFF....WEBP
func isWebP(p []byte) bool {
	return len(p) >= 12 && bytes.Equal(p[0:4], []byte("RIFF")) && bytes.Equal(p[8:12], []byte("WEBP"))
}

// isAVIF checks the ISO-BMFF ftyp box for an AVIF major or compatible brand.
func isAVIF(p []byte) bool {
	if len(p) < 12 || !bytes.Equal(p[4:8], []byte("ftyp")) {
		return false
	}
	boxLen := int(p[0])<<24 | int(p[1])<<16 | int(p[2])<<8 | int(p[3])
	if boxLen < 16 || boxLen > len(p) {
		boxLen = len(p)
	}
	if isAVIFBrand(p[8:12]) {
		return true
	}
	// Compatible brands follow the 4-byte minor version.
	for off := 16; off+4 <= boxLen; off += 4 {
		if isAVIFBrand(p[off : off+4]) {
			return true
		}
	}
	return false
}

func isAVIFBrand(b []byte) bool {
	return bytes.Equal(b, []byte("avif")) || bytes.Equal(b, []byte("avis"))
}
