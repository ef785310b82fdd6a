package testutil

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/gif"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/disintegration/imaging"
	"github.com/gen2brain/avif"
	"github.com/stretchr/testify/require"
)

// Fixture describes an image file written for a test.
type Fixture struct {
	Path   string
	Width  int
	Height int
	Color  color.NRGBA
	Format format.Hint
}

// Lossless reports whether decoding the fixture must reproduce Color exactly.
func (f Fixture) Lossless() bool {
	switch f.Format {
	case format.PNG, format.BMP, format.TIFF, format.GIF:
		return true
	default:
		return false
	}
}

// UniformImage returns a width x height image filled with c.
func UniformImage(width, height int, c color.NRGBA) *image.NRGBA {
	return imaging.New(width, height, c)
}

// Encode encodes img in the given format without a testing.T, for tools
// that build fixture corpora.
func Encode(img image.Image, hint format.Hint) ([]byte, error) {
	var buf bytes.Buffer
	var err error
	switch hint {
	case format.AVIF:
		err = avif.Encode(&buf, img, avif.Options{Quality: 100, Speed: 10})
	case format.GIF:
		// A single-entry palette keeps GIF output exact; imaging would quantize to Plan9.
		c := color.NRGBAModel.Convert(img.At(img.Bounds().Min.X, img.Bounds().Min.Y))
		p := image.NewPaletted(img.Bounds(), color.Palette{c})
		err = gif.Encode(&buf, p, nil)
	case format.PNG:
		err = imaging.Encode(&buf, img, imaging.PNG)
	case format.JPEG:
		err = imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(100))
	case format.TIFF:
		err = imaging.Encode(&buf, img, imaging.TIFF)
	case format.BMP:
		err = imaging.Encode(&buf, img, imaging.BMP)
	default:
		return nil, fmt.Errorf("no test encoder for format %q", hint)
	}
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// EncodeImage encodes img in the given format.
func EncodeImage(t *testing.T, img image.Image, hint format.Hint) []byte {
	t.Helper()

	data, err := Encode(img, hint)
	require.NoError(t, err)
	return data
}

// WriteUniform writes a uniform-colour image encoded as hint to dir/name.
// The file name need not match the encoding.
func WriteUniform(t *testing.T, dir, name string, hint format.Hint, width, height int, c color.NRGBA) Fixture {
	t.Helper()

	data := EncodeImage(t, UniformImage(width, height, c), hint)
	return Fixture{
		Path:   WriteBytes(t, dir, name, data),
		Width:  width,
		Height: height,
		Color:  c,
		Format: hint,
	}
}

// WriteBytes writes raw data to dir/name and returns the path.
func WriteBytes(t *testing.T, dir, name string, data []byte) string {
	t.Helper()

	path := filepath.Join(dir, name)
	require.NoError(t, EnsureDir(filepath.Dir(path)))
	require.NoError(t, os.WriteFile(path, data, 0o600))
	return path
}

// CorruptBytes returns a valid signature for hint followed by garbage, so
// that sniffing succeeds and decoding fails.
func CorruptBytes(hint format.Hint) ([]byte, error) {
	var magic []byte
	switch hint {
	case format.PNG:
		magic = []byte("\x89PNG\r\n\x1a\n")
	case format.JPEG:
		magic = []byte{0xff, 0xd8, 0xff, 0xe0}
	case format.GIF:
		magic = []byte("GIF89a")
	case format.BMP:
		magic = []byte("BM")
	default:
		return nil, fmt.Errorf("no corrupt template for format %q", hint)
	}
	garbage := bytes.Repeat([]byte{0xde, 0xad, 0xbe, 0xef}, 16)
	return append(magic, garbage...), nil
}

// WriteCorrupt writes CorruptBytes(hint) to dir/name.
func WriteCorrupt(t *testing.T, dir, name string, hint format.Hint) string {
	t.Helper()

	data, err := CorruptBytes(hint)
	require.NoError(t, err)
	return WriteBytes(t, dir, name, data)
}

// AssertUniformRGB checks that pix is a width*height RGB buffer filled with c,
// allowing each channel to deviate by at most tolerance.
func AssertUniformRGB(t *testing.T, pix []byte, width, height int, c color.NRGBA, tolerance int) {
	t.Helper()

	require.Len(t, pix, width*height*3)
	want := [3]int{int(c.R), int(c.G), int(c.B)}
	for i := 0; i < len(pix); i += 3 {
		for ch := range 3 {
			diff := int(pix[i+ch]) - want[ch]
			if diff < -tolerance || diff > tolerance {
				t.Fatalf("pixel %d channel %d = %d, want %d±%d", i/3, ch, pix[i+ch], want[ch], tolerance)
			}
		}
	}
}
