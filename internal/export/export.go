// Package export writes decoded RGB buffers to a zstd-compressed frame stream
// and reads them back. A consumer that wants the raw tensors outside of Go
// can reshape each frame as (height, width, channels) without re-decoding.
//
// Stream layout (inside zstd):
//
//	magic "IMRD" | version u8
//	frame*: index u32 | height u32 | width u32 | channels u8 | data[height*width*channels]
//
// All integers are little endian.
package export

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/klauspost/compress/zstd"
)

const (
	magic         = "IMRD"
	version  byte = 1
	frameHdr      = 4 + 4 + 4 + 1
	// maxFrameBytes rejects corrupt headers before allocating.
	maxFrameBytes = 1 << 31
)

var (
	// ErrBadMagic is returned when a stream does not start with the header.
	ErrBadMagic = errors.New("not an imread tensor stream")
	// ErrMalformedFrame is returned for a frame whose header and payload disagree.
	ErrMalformedFrame = errors.New("malformed frame")
)

// Frame is one RGB tensor and the index of the input it came from.
type Frame struct {
	Index    uint32
	Height   uint32
	Width    uint32
	Channels uint8
	Data     []byte
}

// Len returns height*width*channels.
func (f Frame) Len() int {
	return int(f.Height) * int(f.Width) * int(f.Channels)
}

// Writer appends frames to a zstd stream.
type Writer struct {
	enc    *zstd.Encoder
	frames int
}

// NewWriter writes the stream header to w and returns a Writer.
func NewWriter(w io.Writer, opts ...zstd.EOption) (*Writer, error) {
	enc, err := zstd.NewWriter(w, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd encoder: %w", err)
	}
	if _, err := enc.Write(append([]byte(magic), version)); err != nil {
		_ = enc.Close()
		return nil, err
	}
	return &Writer{enc: enc}, nil
}

// WriteFrame appends f to the stream.
func (w *Writer) WriteFrame(f Frame) error {
	if f.Channels == 0 || len(f.Data) != f.Len() {
		return fmt.Errorf("%w: index %d has %d bytes for %dx%dx%d",
			ErrMalformedFrame, f.Index, len(f.Data), f.Height, f.Width, f.Channels)
	}

	var hdr [frameHdr]byte
	binary.LittleEndian.PutUint32(hdr[0:], f.Index)
	binary.LittleEndian.PutUint32(hdr[4:], f.Height)
	binary.LittleEndian.PutUint32(hdr[8:], f.Width)
	hdr[12] = f.Channels

	if _, err := w.enc.Write(hdr[:]); err != nil {
		return err
	}
	if _, err := w.enc.Write(f.Data); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Frames returns the number of frames written so far.
func (w *Writer) Frames() int { return w.frames }

// Close flushes the stream. It does not close the underlying writer.
func (w *Writer) Close() error { return w.enc.Close() }

// Reader iterates over the frames of a stream.
type Reader struct {
	dec *zstd.Decoder
	r   *bufio.Reader
}

// NewReader validates the stream header and returns a Reader.
func NewReader(r io.Reader) (*Reader, error) {
	dec, err := zstd.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("failed to create zstd decoder: %w", err)
	}
	br := bufio.NewReader(dec)

	var head [len(magic) + 1]byte
	if _, err := io.ReadFull(br, head[:]); err != nil {
		dec.Close()
		return nil, fmt.Errorf("%w: %w", ErrBadMagic, err)
	}
	if string(head[:len(magic)]) != magic {
		dec.Close()
		return nil, ErrBadMagic
	}
	if head[len(magic)] != version {
		dec.Close()
		return nil, fmt.Errorf("unsupported stream version %d", head[len(magic)])
	}
	return &Reader{dec: dec, r: br}, nil
}

// Next returns the next frame, or io.EOF after the last one.
func (r *Reader) Next() (Frame, error) {
	var hdr [frameHdr]byte
	if _, err := io.ReadFull(r.r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Frame{}, fmt.Errorf("%w: truncated header", ErrMalformedFrame)
		}
		return Frame{}, err
	}

	f := Frame{
		Index:    binary.LittleEndian.Uint32(hdr[0:]),
		Height:   binary.LittleEndian.Uint32(hdr[4:]),
		Width:    binary.LittleEndian.Uint32(hdr[8:]),
		Channels: hdr[12],
	}
	size := uint64(f.Height) * uint64(f.Width) * uint64(f.Channels)
	if f.Channels == 0 || size > maxFrameBytes {
		return Frame{}, fmt.Errorf("%w: index %d claims %dx%dx%d",
			ErrMalformedFrame, f.Index, f.Height, f.Width, f.Channels)
	}

	f.Data = make([]byte, size)
	if _, err := io.ReadFull(r.r, f.Data); err != nil {
		return Frame{}, fmt.Errorf("%w: truncated payload for index %d", ErrMalformedFrame, f.Index)
	}
	return f, nil
}

// Close releases the decoder.
func (r *Reader) Close() { r.dec.Close() }

// ReadAll returns every frame in the stream.
func ReadAll(r io.Reader) ([]Frame, error) {
	fr, err := NewReader(r)
	if err != nil {
		return nil, err
	}
	defer fr.Close()

	var frames []Frame
	for {
		f, err := fr.Next()
		if errors.Is(err, io.EOF) {
			return frames, nil
		}
		if err != nil {
			return frames, err
		}
		frames = append(frames, f)
	}
}

// Dump writes one frame per successful outcome, keyed by its input index,
// and returns the number of frames written.
func Dump(w io.Writer, outcomes []decode.Outcome) (int, error) {
	fw, err := NewWriter(w)
	if err != nil {
		return 0, err
	}
	for i, o := range outcomes {
		if !o.OK() {
			continue
		}
		err := fw.WriteFrame(Frame{
			Index:    uint32(i), //nolint:gosec // G115: batch indices fit in uint32
			Height:   o.Image.Height,
			Width:    o.Image.Width,
			Channels: decode.Channels,
			Data:     o.Image.Data,
		})
		if err != nil {
			_ = fw.Close()
			return fw.Frames(), err
		}
	}
	return fw.Frames(), fw.Close()
}

// DumpFile is Dump into a newly created file at path.
func DumpFile(path string, outcomes []decode.Outcome) (int, error) {
	f, err := os.Create(path) //nolint:gosec // G304: output path is user supplied
	if err != nil {
		return 0, fmt.Errorf("failed to create dump file: %w", err)
	}
	n, err := Dump(f, outcomes)
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	return n, err
}

// ReadFile returns every frame stored in the file at path.
func ReadFile(path string) ([]Frame, error) {
	f, err := os.Open(path) //nolint:gosec // G304: input path is user supplied
	if err != nil {
		return nil, fmt.Errorf("failed to open dump file: %w", err)
	}
	defer func() { _ = f.Close() }()
	return ReadAll(f)
}
