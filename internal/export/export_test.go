package export

import (
	"bytes"
	"errors"
	"io"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rgb(w, h int, seed byte) *decode.Image {
	data := make([]byte, w*h*decode.Channels)
	for i := range data {
		data[i] = seed + byte(i)
	}
	return &decode.Image{Data: data, Width: uint32(w), Height: uint32(h), Format: format.PNG}
}

func TestDump_WritesOnlySuccesses(t *testing.T) {
	outcomes := []decode.Outcome{
		decode.Success(rgb(3, 2, 1)),
		decode.Failure(&decode.Error{Kind: decode.IoError, Op: "open", Path: "gone.png", Err: errors.New("missing")}),
		decode.Success(rgb(1, 4, 9)),
	}

	var buf bytes.Buffer
	n, err := Dump(&buf, outcomes)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	frames, err := ReadAll(&buf)
	require.NoError(t, err)
	require.Len(t, frames, 2)

	assert.Equal(t, uint32(0), frames[0].Index)
	assert.Equal(t, uint32(2), frames[0].Height)
	assert.Equal(t, uint32(3), frames[0].Width)
	assert.Equal(t, uint8(3), frames[0].Channels)
	assert.Equal(t, outcomes[0].Image.Data, frames[0].Data)

	assert.Equal(t, uint32(2), frames[1].Index)
	assert.Equal(t, outcomes[2].Image.Data, frames[1].Data)
}

func TestDump_Empty(t *testing.T) {
	var buf bytes.Buffer
	n, err := Dump(&buf, nil)
	require.NoError(t, err)
	assert.Zero(t, n)

	frames, err := ReadAll(&buf)
	require.NoError(t, err)
	assert.Empty(t, frames)
}

func TestDumpFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.rgb.zst")
	n, err := DumpFile(path, []decode.Outcome{decode.Success(rgb(2, 2, 0))})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	frames, err := ReadFile(path)
	require.NoError(t, err)
	require.Len(t, frames, 1)
	assert.Equal(t, 12, frames[0].Len())

	_, err = ReadFile(filepath.Join(t.TempDir(), "absent.zst"))
	assert.Error(t, err)
}

func TestWriter_RejectsInconsistentFrame(t *testing.T) {
	w, err := NewWriter(io.Discard)
	require.NoError(t, err)
	defer func() { _ = w.Close() }()

	err = w.WriteFrame(Frame{Height: 2, Width: 2, Channels: 3, Data: make([]byte, 5)})
	assert.ErrorIs(t, err, ErrMalformedFrame)
	assert.Zero(t, w.Frames())
}

func TestNewReader_BadMagic(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	_, err = enc.Write([]byte("NOPE\x01"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = NewReader(&buf)
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReader_TruncatedPayload(t *testing.T) {
	var buf bytes.Buffer
	enc, err := zstd.NewWriter(&buf)
	require.NoError(t, err)
	// Header for a 2x2x3 frame followed by only 4 bytes.
	_, err = enc.Write([]byte("IMRD\x01" +
		"\x00\x00\x00\x00" + "\x02\x00\x00\x00" + "\x02\x00\x00\x00" + "\x03" +
		"abcd"))
	require.NoError(t, err)
	require.NoError(t, enc.Close())

	_, err = ReadAll(&buf)
	assert.ErrorIs(t, err, ErrMalformedFrame)
}
