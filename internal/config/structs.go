//nolint:lll
package config

// Config represents the complete configuration for imread.
// It covers the read, serve and inspect commands and is loaded from
// configuration files, environment variables and command-line flags.
type Config struct {
	// Global settings
	LogLevel string `mapstructure:"log_level" yaml:"log_level" json:"log_level"`
	Verbose  bool   `mapstructure:"verbose" yaml:"verbose" json:"verbose"`

	// Worker pool shared by every batch in the process
	Pool PoolConfig `mapstructure:"pool" yaml:"pool" json:"pool"`

	// Batch read settings
	Read ReadConfig `mapstructure:"read" yaml:"read" json:"read"`

	// Output configuration
	Output OutputConfig `mapstructure:"output" yaml:"output" json:"output"`

	// Server configuration (for serve command)
	Server ServerConfig `mapstructure:"server" yaml:"server" json:"server"`
}

// PoolConfig sizes the shared worker pool.
type PoolConfig struct {
	// NumThreads is the worker count; 0 means one per CPU.
	NumThreads int `mapstructure:"num_threads" yaml:"num_threads" json:"num_threads"`
}

// ReadConfig controls how a batch is assembled and reported.
type ReadConfig struct {
	Mode      string   `mapstructure:"mode" yaml:"mode" json:"mode"`
	Recursive bool     `mapstructure:"recursive" yaml:"recursive" json:"recursive"`
	Include   []string `mapstructure:"include" yaml:"include" json:"include"`
	Exclude   []string `mapstructure:"exclude" yaml:"exclude" json:"exclude"`
	Progress  bool     `mapstructure:"progress" yaml:"progress" json:"progress"`
	Stats     bool     `mapstructure:"stats" yaml:"stats" json:"stats"`
}

// OutputConfig contains output formatting settings.
type OutputConfig struct {
	Format string `mapstructure:"format" yaml:"format" json:"format"`
	File   string `mapstructure:"file" yaml:"file" json:"file"`
	// Dump is the path of a zstd tensor stream receiving every decoded buffer.
	Dump string `mapstructure:"dump" yaml:"dump" json:"dump"`
}

// ServerConfig contains HTTP server settings.
type ServerConfig struct {
	Host            string `mapstructure:"host" yaml:"host" json:"host"`
	Port            int    `mapstructure:"port" yaml:"port" json:"port"`
	CORSOrigin      string `mapstructure:"cors_origin" yaml:"cors_origin" json:"cors_origin"`
	ShutdownTimeout int    `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" json:"shutdown_timeout"`
	MaxPaths        int    `mapstructure:"max_paths" yaml:"max_paths" json:"max_paths"`
}
