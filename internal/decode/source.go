package decode

import (
	"bufio"
	"errors"
	"image"
	"io"
	"os"

	"github.com/MeKo-Tech/imread/internal/format"
)

const readBufferSize = 64 << 10

// Source is an open image file with an optional declared format.
// A Source is used by one goroutine and must be closed.
type Source struct {
	path   string
	f      *os.File
	r      *bufio.Reader
	format format.Hint
}

// Open opens path for decoding. The returned Source has no format yet.
func Open(path string) (*Source, error) {
	f, err := os.Open(path) //nolint:gosec // G304: decoding caller-supplied paths is the purpose
	if err != nil {
		return nil, ioErr("open", path, err)
	}
	fi, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, ioErr("open", path, err)
	}
	if !fi.Mode().IsRegular() {
		_ = f.Close()
		return nil, ioErr("open", path, ErrNotRegularFile)
	}
	return &Source{
		path:   path,
		f:      f,
		r:      bufio.NewReaderSize(f, readBufferSize),
		format: format.Unknown,
	}, nil
}

// Path returns the path the source was opened from.
func (s *Source) Path() string { return s.path }

// Format returns the declared format, or format.Unknown.
func (s *Source) Format() format.Hint { return s.format }

// SetFormat declares the format without reading any bytes.
func (s *Source) SetFormat(h format.Hint) { s.format = h }

// WithGuessedFormat inspects the leading bytes of the file and declares the
// matching format. The bytes remain available to Decode.
func (s *Source) WithGuessedFormat() error {
	prefix, err := s.r.Peek(format.SniffLen)
	if err != nil && !errors.Is(err, io.EOF) {
		return ioErr("sniff", s.path, err)
	}
	h, ok := format.Sniff(prefix)
	if !ok {
		return sourceErr("sniff", s.path, ErrUnrecognizedFormat)
	}
	s.format = h
	return nil
}

// Decode runs the codec for the declared format over the file contents.
func (s *Source) Decode() (image.Image, error) {
	codec, err := codecFor(s.format)
	if err != nil {
		return nil, sourceErr("decode", s.path, err)
	}
	img, err := codec(s.r)
	if err != nil {
		return nil, classifyCodecErr(s.path, err)
	}
	return img, nil
}

// Close releases the underlying file.
func (s *Source) Close() error {
	return s.f.Close()
}

// classifyCodecErr separates read failures surfacing through a codec from
// malformed data. Truncation is a data problem.
func classifyCodecErr(path string, err error) *Error {
	var pathErr *os.PathError
	if errors.As(err, &pathErr) {
		return ioErr("decode", path, err)
	}
	return sourceErr("decode", path, err)
}
