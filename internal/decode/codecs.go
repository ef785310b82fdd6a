package decode

import (
	"fmt"
	"image"
	"image/gif"
	"image/jpeg"
	"image/png"
	"io"

	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/gen2brain/avif"
	"golang.org/x/image/bmp"
	"golang.org/x/image/tiff"
	"golang.org/x/image/webp"
)

// codecFunc decodes a complete image from r.
type codecFunc func(r io.Reader) (image.Image, error)

var codecs = map[format.Hint]codecFunc{
	format.PNG:  png.Decode,
	format.JPEG: jpeg.Decode,
	format.GIF:  gif.Decode,
	format.BMP:  bmp.Decode,
	format.TIFF: tiff.Decode,
	format.WEBP: webp.Decode,
	format.AVIF: avif.Decode,
}

func codecFor(h format.Hint) (codecFunc, error) {
	c, ok := codecs[h]
	if !ok {
		return nil, fmt.Errorf("%w: no codec for %q", ErrUnrecognizedFormat, h)
	}
	return c, nil
}
