package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// isolate points every config search path at an empty directory.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Chdir(dir)
	t.Setenv("HOME", dir)
	t.Setenv("XDG_CONFIG_HOME", dir)
	return dir
}

func newTestLoader() *Loader {
	return NewLoaderWithViper(viper.New())
}

func TestNewLoader(t *testing.T) {
	loader := NewLoader()
	require.NotNil(t, loader)
	assert.Same(t, viper.GetViper(), loader.GetViper())
}

func TestLoadWithNoConfigFile(t *testing.T) {
	isolate(t)

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, infoLevel, cfg.LogLevel)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, ModeTolerant, cfg.Read.Mode)
}

func TestLoadFromSearchPath(t *testing.T) {
	dir := isolate(t)
	content := `
log_level: debug
pool:
  num_threads: 3
read:
  mode: verbose
  recursive: true
  include: ["*.png", "*.jpg"]
output:
  format: json
  dump: out.rgb.zst
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imread.yaml"), []byte(content), 0o600))

	loader := newTestLoader()
	cfg, err := loader.Load()
	require.NoError(t, err)

	assert.Equal(t, debugLevel, cfg.LogLevel)
	assert.Equal(t, 3, cfg.Pool.NumThreads)
	assert.Equal(t, ModeVerbose, cfg.Read.Mode)
	assert.True(t, cfg.Read.Recursive)
	assert.Equal(t, []string{"*.png", "*.jpg"}, cfg.Read.Include)
	assert.Equal(t, "json", cfg.Output.Format)
	assert.Equal(t, "out.rgb.zst", cfg.Output.Dump)
	assert.Equal(t, "localhost", cfg.Server.Host, "unset keys keep defaults")
	assert.Contains(t, loader.GetConfigFileUsed(), "imread.yaml")
}

func TestLoadWithEnvironment(t *testing.T) {
	isolate(t)
	t.Setenv("IMREAD_POOL_NUM_THREADS", "12")
	t.Setenv("IMREAD_SERVER_PORT", "9191")
	t.Setenv("IMREAD_LOG_LEVEL", "warn")

	cfg, err := newTestLoader().Load()
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Pool.NumThreads)
	assert.Equal(t, 9191, cfg.Server.Port)
	assert.Equal(t, warnLevel, cfg.LogLevel)
}

func TestLoadWithFile(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "custom.yaml")
	require.NoError(t, os.WriteFile(file, []byte("server:\n  port: 7000\n"), 0o600))

	cfg, err := newTestLoader().LoadWithFile(file)
	require.NoError(t, err)
	assert.Equal(t, 7000, cfg.Server.Port)

	_, err = newTestLoader().LoadWithFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.ErrorContains(t, err, "does not exist")
}

func TestLoadValidation(t *testing.T) {
	isolate(t)
	file := filepath.Join(t.TempDir(), "bad.yaml")
	require.NoError(t, os.WriteFile(file, []byte("read:\n  mode: strict\n"), 0o600))

	_, err := newTestLoader().LoadWithFile(file)
	assert.ErrorContains(t, err, "validation failed")

	cfg, err := newTestLoader().LoadWithFileWithoutValidation(file)
	require.NoError(t, err)
	assert.Equal(t, "strict", cfg.Read.Mode)
}

func TestLoadMalformedFile(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "imread.yaml"), []byte("pool: [unclosed"), 0o600))

	_, err := newTestLoader().Load()
	assert.ErrorContains(t, err, "error reading config file")
}

func TestLoaderAccessors(t *testing.T) {
	isolate(t)
	loader := newTestLoader()
	_, err := loader.Load()
	require.NoError(t, err)

	loader.Set("output.format", "csv")
	assert.Equal(t, "csv", loader.GetString("output.format"))
	assert.Equal(t, "csv", loader.Get("output.format"))
	assert.Contains(t, loader.GetResolvedConfig(), "server")

	var buf bytes.Buffer
	loader.PrintConfigInfo(&buf)
	assert.Contains(t, buf.String(), "Environment prefix: IMREAD")
}

func TestGenerateDefaultConfigFile(t *testing.T) {
	file := filepath.Join(t.TempDir(), "imread.yaml")
	require.NoError(t, GenerateDefaultConfigFile(file))

	data, err := os.ReadFile(file)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, yaml.Unmarshal(data, &parsed))
	assert.Contains(t, parsed, "pool")
	assert.Contains(t, parsed, "server")
}

func TestGetConfigSearchPaths(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)

	paths := GetConfigSearchPaths()
	assert.Equal(t, ".", paths[0])
	assert.Contains(t, paths, filepath.Join(dir, "imread"))
	assert.Equal(t, "/etc/imread", paths[len(paths)-1])
}
