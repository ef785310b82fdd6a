// Package decode turns one image file into a normalized RGB pixel buffer.
//
// Every failure is returned as data (an Outcome carrying an *Error) so that a
// caller decoding many files never has to abort because of one of them.
package decode

import (
	"errors"
	"fmt"

	"github.com/MeKo-Tech/imread/internal/format"
)

// Image is a decoded image: interleaved 8-bit RGB, row-major, top to bottom.
// len(Data) == Width*Height*3 always holds. Data is owned by whoever holds
// the Image and is handed on without copying.
type Image struct {
	Data   []byte
	Width  uint32
	Height uint32
	Format format.Hint
}

// Len returns the expected buffer length for the image dimensions.
func (img *Image) Len() int {
	return int(img.Width) * int(img.Height) * Channels
}

// Outcome is the result of decoding one path: exactly one of Image and Err
// is non-nil.
type Outcome struct {
	Image *Image
	Err   *Error
}

// OK reports whether the outcome carries an image.
func (o Outcome) OK() bool { return o.Err == nil && o.Image != nil }

// Success wraps a decoded image.
func Success(img *Image) Outcome { return Outcome{Image: img} }

// Failure wraps a decode error.
func Failure(err *Error) Outcome { return Outcome{Err: err} }

// One opens, identifies, decodes and normalizes the image at path.
//
// The format comes from the file extension when it is recognised; otherwise
// the leading bytes are sniffed. Codec panics on malformed input are
// reported as SourceError.
func One(path string) (out Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = Failure(sourceErr("decode", path, fmt.Errorf("codec panic: %v", r)))
		}
	}()

	src, err := Open(path)
	if err != nil {
		return Failure(asError(err))
	}
	defer func() { _ = src.Close() }()

	if src.Format() == format.Unknown {
		if h := format.ResolveHint(path); h != format.Unknown {
			src.SetFormat(h)
		} else if err := src.WithGuessedFormat(); err != nil {
			return Failure(asError(err))
		}
	}

	img, err := src.Decode()
	if err != nil {
		return Failure(asError(err))
	}

	pix, w, h := ToRGB(img)
	return Success(&Image{
		Data:   pix,
		Width:  uint32(w), //nolint:gosec // G115: image dimensions are non-negative
		Height: uint32(h), //nolint:gosec // G115: image dimensions are non-negative
		Format: src.Format(),
	})
}

func asError(err error) *Error {
	var de *Error
	if errors.As(err, &de) {
		return de
	}
	return sourceErr("decode", "", err)
}
