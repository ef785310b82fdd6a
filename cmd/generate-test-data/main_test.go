package main

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/MeKo-Tech/imread/internal/decode"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCorpus(t *testing.T) {
	dir := t.TempDir()

	manifest, err := generateCorpus(dir)
	require.NoError(t, err)
	assert.Len(t, manifest, 6*len(sizes)+1+4)

	data, err := os.ReadFile(filepath.Join(dir, "manifest.json"))
	require.NoError(t, err)
	var onDisk []ManifestEntry
	require.NoError(t, json.Unmarshal(data, &onDisk))
	assert.Equal(t, manifest, onDisk)

	for _, e := range manifest {
		out := decode.One(filepath.Join(dir, e.Path))
		if e.Expect == "ok" {
			require.True(t, out.OK(), "%s: %v", e.Path, out.Err)
			assert.Equal(t, e.Format, out.Image.Format.String(), e.Path)
			assert.Equal(t, uint32(e.Width), out.Image.Width, e.Path)
			assert.Equal(t, uint32(e.Height), out.Image.Height, e.Path)
			continue
		}
		require.False(t, out.OK(), e.Path)
		assert.Equal(t, e.Expect, string(out.Err.Kind), e.Path)
	}
}
