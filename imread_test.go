package imread

import (
	"bytes"
	"image/color"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/MeKo-Tech/imread/internal/format"
	"github.com/MeKo-Tech/imread/internal/testutil"
	"github.com/MeKo-Tech/imread/internal/workerpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var green = color.NRGBA{R: 20, G: 180, B: 40, A: 255}

// partialFailure writes valid.png and corrupt.png and names a missing.jpg.
func partialFailure(t *testing.T) []string {
	t.Helper()
	dir := t.TempDir()
	valid := testutil.WriteUniform(t, dir, "valid.png", format.PNG, 5, 3, green)
	corrupt := testutil.WriteCorrupt(t, dir, "corrupt.png", format.PNG)
	return []string{valid.Path, filepath.Join(dir, "missing.jpg"), corrupt}
}

func quietLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func TestRead_PartialFailure(t *testing.T) {
	logger, logs := quietLogger()

	out, err := Read(partialFailure(t), WithLogger(logger))
	require.NoError(t, err)
	require.Len(t, out, 3)

	require.NotNil(t, out[0])
	assert.Equal(t, [3]int{3, 5, 3}, out[0].Shape)
	testutil.AssertUniformRGB(t, out[0].Data, 5, 3, green, 0)
	assert.Nil(t, out[1])
	assert.Nil(t, out[2])

	assert.Equal(t, 2, strings.Count(logs.String(), "image decode failed"))
	assert.Contains(t, logs.String(), "index=1")
	assert.Contains(t, logs.String(), "index=2")
}

func TestDecodeBatchVerbose_PartialFailure(t *testing.T) {
	logger, _ := quietLogger()

	v, err := DecodeBatchVerbose(partialFailure(t), WithLogger(logger))
	require.NoError(t, err)

	require.Len(t, v.Images, 1)
	assert.Equal(t, 0, v.Images[0].Index)
	assert.Equal(t, uint32(5), v.Images[0].Width)
	assert.Equal(t, uint32(3), v.Images[0].Height)

	require.Len(t, v.Errors, 2)
	assert.Equal(t, 1, v.Errors[0].Index)
	assert.Equal(t, decode.IoError, v.Errors[0].Kind)
	assert.NotEmpty(t, v.Errors[0].Message)
	assert.Equal(t, 2, v.Errors[1].Index)
	assert.Equal(t, decode.SourceError, v.Errors[1].Kind)
	assert.NotEmpty(t, v.Errors[1].Message)
}

func TestDecodeBatchBytes_PartialFailure(t *testing.T) {
	logger, _ := quietLogger()

	b, err := DecodeBatchBytes(partialFailure(t), WithLogger(logger))
	require.NoError(t, err)

	require.Len(t, b.Images, 1)
	assert.Len(t, b.Images[0].Data, 5*3*3)
	assert.Equal(t, uint32(5), b.Images[0].Width)
	require.Len(t, b.Errors, 2)
}

func TestRead_Empty(t *testing.T) {
	out, err := Read(nil)
	require.NoError(t, err)
	assert.NotNil(t, out)
	assert.Empty(t, out)

	v, err := DecodeBatchVerbose([]string{})
	require.NoError(t, err)
	assert.Empty(t, v.Images)
	assert.Empty(t, v.Errors)
}

func TestRead_SameFileTwice(t *testing.T) {
	dir := t.TempDir()
	f := testutil.WriteUniform(t, dir, "twice.tiff", format.TIFF, 3, 3, green)

	out, err := Read([]string{f.Path, f.Path})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, out[0].Shape, out[1].Shape)
	assert.Equal(t, out[0].Data, out[1].Data)
}

func TestRead_SniffsMisnamedFile(t *testing.T) {
	dir := t.TempDir()
	data := testutil.EncodeImage(t, testutil.UniformImage(2, 2, green), format.PNG)
	path := testutil.WriteBytes(t, dir, "upload.bin", data)

	out, err := Read([]string{path})
	require.NoError(t, err)
	require.NotNil(t, out[0])
	testutil.AssertUniformRGB(t, out[0].Data, 2, 2, green, 0)
}

func TestRead_InvalidThreadCount(t *testing.T) {
	for _, n := range []int{0, -3} {
		_, err := Read([]string{"never-opened.png"}, WithNumThreads(n))
		require.ErrorIs(t, err, workerpool.ErrInvalidSize)
	}
}

func TestConfigurePool_SecondCallKeepsSize(t *testing.T) {
	first, err := ConfigurePool(4)
	require.NoError(t, err)

	second, err := ConfigurePool(first.NumThreads + 3)
	require.NoError(t, err)
	assert.False(t, second.Applied)
	assert.Equal(t, first.NumThreads, second.NumThreads)

	// Batches still run after a no-op reconfiguration.
	out, err := Read([]string{filepath.Join(t.TempDir(), "missing.png")}, WithNumThreads(9))
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Nil(t, out[0])

	_, err = ConfigurePool(0)
	assert.ErrorIs(t, err, workerpool.ErrInvalidSize)
}

type stringerPath string

func (s stringerPath) String() string { return string(s) }

func TestPathsOf(t *testing.T) {
	f, err := os.CreateTemp(t.TempDir(), "x*.png")
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })

	paths, err := PathsOf([]any{"a.png", stringerPath("b.jpg"), f})
	require.NoError(t, err)
	assert.Equal(t, []string{"a.png", "b.jpg", f.Name()}, paths)

	_, err = PathsOf([]any{"a.png", 42})
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Contains(t, err.Error(), "index 1")

	var nilFile *os.File
	_, err = PathsOf([]any{nilFile})
	assert.ErrorIs(t, err, ErrInvalidPath)
}

func TestReadValues_FailsFast(t *testing.T) {
	rec := &countingProgress{}
	_, err := ReadValues([]any{"a.png", 3.5}, WithProgress(rec))
	require.ErrorIs(t, err, ErrInvalidPath)
	assert.Zero(t, rec.started)
}

func TestReadValues(t *testing.T) {
	dir := t.TempDir()
	f := testutil.WriteUniform(t, dir, "v.gif", format.GIF, 2, 2, green)

	out, err := ReadValues([]any{stringerPath(f.Path)})
	require.NoError(t, err)
	require.Len(t, out, 1)
	testutil.AssertUniformRGB(t, out[0].Data, 2, 2, green, 0)
}

type countingProgress struct{ started int }

func (c *countingProgress) OnStart(int)         { c.started++ }
func (c *countingProgress) OnProgress(int, int) {}
func (c *countingProgress) OnError(int, error)  {}
func (c *countingProgress) OnComplete()         {}
