package config

import (
	"fmt"
	"slices"
	"strings"
)

// Read modes.
const (
	ModeTolerant = "tolerant"
	ModeVerbose  = "verbose"
	ModeBytes    = "bytes"
)

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() Config {
	return Config{
		LogLevel: "info",
		Verbose:  false,
		Pool: PoolConfig{
			NumThreads: 0,
		},
		Read: ReadConfig{
			Mode:      ModeTolerant,
			Recursive: false,
			Include:   []string{},
			Exclude:   []string{},
		},
		Output: OutputConfig{
			Format: "text",
		},
		Server: ServerConfig{
			Host:            "localhost",
			Port:            8080,
			CORSOrigin:      "*",
			ShutdownTimeout: 10,
			MaxPaths:        1000,
		},
	}
}

// Validate validates the configuration and returns any errors.
func (c *Config) Validate() error {
	validLogLevels := []string{"debug", "info", "warn", "error"}
	if !slices.Contains(validLogLevels, c.LogLevel) {
		return fmt.Errorf("invalid log level: %s (must be one of: %s)", c.LogLevel, strings.Join(validLogLevels, ", "))
	}

	if c.Pool.NumThreads < 0 {
		return fmt.Errorf("invalid pool num_threads: %d (must be 0 or positive)", c.Pool.NumThreads)
	}

	validModes := []string{ModeTolerant, ModeVerbose, ModeBytes}
	if !slices.Contains(validModes, c.Read.Mode) {
		return fmt.Errorf("invalid read mode: %s (must be one of: %s)", c.Read.Mode, strings.Join(validModes, ", "))
	}

	validFormats := []string{"text", "json", "yaml", "csv"}
	if c.Output.Format != "" && !slices.Contains(validFormats, c.Output.Format) {
		return fmt.Errorf("invalid output format: %s (must be one of: %s)", c.Output.Format, strings.Join(validFormats, ", "))
	}

	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d (must be between 1 and 65535)", c.Server.Port)
	}
	if c.Server.ShutdownTimeout < 0 {
		return fmt.Errorf("invalid shutdown timeout: %d (must not be negative)", c.Server.ShutdownTimeout)
	}
	if c.Server.MaxPaths <= 0 {
		return fmt.Errorf("invalid server max_paths: %d (must be positive)", c.Server.MaxPaths)
	}

	return nil
}

// NumThreads returns the configured worker count, or fallback when unset.
func (c *Config) NumThreads(fallback int) int {
	if c.Pool.NumThreads > 0 {
		return c.Pool.NumThreads
	}
	return fallback
}
