package cmd

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// execute runs the root command in-process with freshly reset flags.
func execute(t *testing.T, args ...string) (stdout, stderr string, err error) {
	t.Helper()

	resetFlags(rootCmd)
	var out, errOut bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&errOut)
	rootCmd.SetArgs(args)
	err = rootCmd.Execute()
	return out.String(), errOut.String(), err
}

// resetFlags restores every flag of c and its children to its default, since
// cobra keeps parsed values between Execute calls.
func resetFlags(c *cobra.Command) {
	reset := func(f *pflag.Flag) {
		if sv, ok := f.Value.(pflag.SliceValue); ok {
			_ = sv.Replace(nil)
		} else {
			_ = f.Value.Set(f.DefValue)
		}
		f.Changed = false
	}
	c.Flags().VisitAll(reset)
	c.PersistentFlags().VisitAll(reset)
	for _, sub := range c.Commands() {
		resetFlags(sub)
	}
}

func TestRootCommand(t *testing.T) {
	assert.NotNil(t, rootCmd)
	assert.Equal(t, "imread", rootCmd.Use)
	assert.NotEmpty(t, rootCmd.Short)
	assert.NotEmpty(t, rootCmd.Long)
}

func TestRootCommandHelp(t *testing.T) {
	out, _, err := execute(t, "--help")
	require.NoError(t, err)

	assert.Contains(t, out, "decodes batches of image files")
	assert.Contains(t, out, "Available Commands:")
	assert.Contains(t, out, "Usage:")
}

func TestRootCommandVersion(t *testing.T) {
	out, _, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Contains(t, out, "imread version dev")
	assert.Contains(t, out, "commit unknown")
}

func TestRootCommandSubcommands(t *testing.T) {
	names := make([]string, 0, len(rootCmd.Commands()))
	for _, sub := range rootCmd.Commands() {
		names = append(names, sub.Name())
	}

	for _, expected := range []string{"read", "serve", "inspect", "formats", "config"} {
		assert.Contains(t, names, expected, "Expected subcommand '%s' not found", expected)
	}
}

func TestRootCommandInvalidFlag(t *testing.T) {
	_, _, err := execute(t, "--no-such-flag")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown flag")
}

func TestRootCommandInvalidLogLevel(t *testing.T) {
	_, _, err := execute(t, "formats", "--log-level", "loud")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading configuration")
	assert.Contains(t, err.Error(), "invalid log level")
}

func TestRootCommandMissingConfigFile(t *testing.T) {
	_, _, err := execute(t, "formats", "--config", filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "config file does not exist")
}

func TestLogLevel(t *testing.T) {
	cfg := GetConfig()

	for level, want := range map[string]string{
		"debug": "DEBUG",
		"info":  "INFO",
		"warn":  "WARN",
		"error": "ERROR",
		"":      "INFO",
	} {
		c := *cfg
		c.LogLevel = level
		assert.Equal(t, want, logLevel(&c).String(), level)
	}

	c := *cfg
	c.LogLevel = "error"
	c.Verbose = true
	assert.Equal(t, "DEBUG", logLevel(&c).String(), "verbose wins")
}

func TestFormatsCommand(t *testing.T) {
	out, _, err := execute(t, "formats")
	require.NoError(t, err)

	assert.Contains(t, out, "avif  .avif")
	assert.Contains(t, out, "jpeg  .jpg .jpeg")
	assert.Contains(t, out, "tiff  .tiff .tif")
}

func TestConfigShow(t *testing.T) {
	out, _, err := execute(t, "config", "show", "--log-level", "debug")
	require.NoError(t, err)

	assert.Contains(t, out, "log_level: debug")
	assert.Contains(t, out, "num_threads: 0")
	assert.Contains(t, out, "mode: tolerant")
}

func TestConfigShow_Environment(t *testing.T) {
	t.Setenv("IMREAD_SERVER_PORT", "9191")

	out, _, err := execute(t, "config", "show")
	require.NoError(t, err)
	assert.Contains(t, out, "port: 9191")
}

func TestConfigInit(t *testing.T) {
	path := filepath.Join(t.TempDir(), "imread.yaml")

	out, _, err := execute(t, "config", "init", path)
	require.NoError(t, err)
	assert.Contains(t, out, "Wrote "+path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "max_paths: 1000")

	_, _, err = execute(t, "config", "init", path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already exists")

	_, _, err = execute(t, "config", "init", path, "--force")
	require.NoError(t, err)
}

func TestConfigInfo(t *testing.T) {
	out, _, err := execute(t, "config", "info")
	require.NoError(t, err)
	assert.Contains(t, out, "Environment prefix: IMREAD")
}
