package config

import (
	"testing"
)

const (
	infoLevel  = "info"
	debugLevel = "debug"
	warnLevel  = "warn"
)

// TestDefaultConfig verifies that DefaultConfig returns expected values.
func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.LogLevel != infoLevel {
		t.Errorf("Expected log level %s, got %s", infoLevel, cfg.LogLevel)
	}
	if cfg.Pool.NumThreads != 0 {
		t.Errorf("Expected pool num_threads 0, got %d", cfg.Pool.NumThreads)
	}
	if cfg.Read.Mode != ModeTolerant {
		t.Errorf("Expected read mode %s, got %s", ModeTolerant, cfg.Read.Mode)
	}
	if cfg.Output.Format != "text" {
		t.Errorf("Expected output format text, got %s", cfg.Output.Format)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxPaths != 1000 {
		t.Errorf("Expected max paths 1000, got %d", cfg.Server.MaxPaths)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Default config must validate: %v", err)
	}
}

// TestValidate tests every validation rule.
func TestValidate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*Config)
		wantError bool
	}{
		{"defaults", func(*Config) {}, false},
		{"debug level", func(c *Config) { c.LogLevel = debugLevel }, false},
		{"warn level", func(c *Config) { c.LogLevel = warnLevel }, false},
		{"invalid log level", func(c *Config) { c.LogLevel = "loud" }, true},
		{"explicit threads", func(c *Config) { c.Pool.NumThreads = 8 }, false},
		{"negative threads", func(c *Config) { c.Pool.NumThreads = -1 }, true},
		{"verbose mode", func(c *Config) { c.Read.Mode = ModeVerbose }, false},
		{"bytes mode", func(c *Config) { c.Read.Mode = ModeBytes }, false},
		{"invalid mode", func(c *Config) { c.Read.Mode = "strict" }, true},
		{"yaml format", func(c *Config) { c.Output.Format = "yaml" }, false},
		{"csv format", func(c *Config) { c.Output.Format = "csv" }, false},
		{"empty format", func(c *Config) { c.Output.Format = "" }, false},
		{"invalid format", func(c *Config) { c.Output.Format = "xml" }, true},
		{"port zero", func(c *Config) { c.Server.Port = 0 }, true},
		{"port too large", func(c *Config) { c.Server.Port = 70000 }, true},
		{"negative shutdown", func(c *Config) { c.Server.ShutdownTimeout = -1 }, true},
		{"zero max paths", func(c *Config) { c.Server.MaxPaths = 0 }, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(&cfg)

			err := cfg.Validate()
			if (err != nil) != tt.wantError {
				t.Errorf("Validate() error = %v, wantError %v", err, tt.wantError)
			}
		})
	}
}

func TestNumThreads(t *testing.T) {
	cfg := DefaultConfig()
	if got := cfg.NumThreads(6); got != 6 {
		t.Errorf("NumThreads(6) with unset pool = %d, want 6", got)
	}
	cfg.Pool.NumThreads = 2
	if got := cfg.NumThreads(6); got != 2 {
		t.Errorf("NumThreads(6) with pool 2 = %d, want 2", got)
	}
}
