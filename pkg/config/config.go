// Package config provides the configuration consumed by the engine and the
// carray command.
//
// The configuration is organized into logical sections:
//   - Engine: codec, level, chunk capacity, shuffle, worker count, cache slots
//   - Logging: zap level, encoding and outputs
//   - Observability: metrics and tracing switches
//
// Example usage:
//
//	cfg := config.Default("bench")
//	cfg.Engine.Codec = "zstd"
//	cfg.Engine.Workers = 4
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"runtime"

	"github.com/ajitpratap0/carray/pkg/compression"
	"github.com/ajitpratap0/carray/pkg/errors"
)

// DefaultChunkCapacity is the number of elements per chunk when none is configured
const DefaultChunkCapacity = 16384

// Config is the top level configuration of a carray process
type Config struct {
	// Name identifies the run in logs and reports
	Name string `yaml:"name" json:"name"`

	// Engine settings are passed to every array and table constructor
	Engine Engine `yaml:"engine" json:"engine"`

	// Logging configures the zap logger
	Logging LoggingConfig `yaml:"logging" json:"logging"`

	// Observability configures metrics and tracing
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// Engine holds the settings every CompressedArray is built with. A value of
// Engine is copied into each array, so changing it afterwards has no effect
// on arrays that already exist.
type Engine struct {
	// Codec names the compression algorithm (none, lz4, zstd, snappy, s2, gzip, deflate)
	Codec string `yaml:"codec" json:"codec"`
	// Level is the compression effort 0-9; 0 stores chunks uncompressed
	Level int `yaml:"level" json:"level"`
	// ChunkCapacity is the number of elements per sealed chunk
	ChunkCapacity int `yaml:"chunk_capacity" json:"chunk_capacity"`
	// Shuffle transposes element bytes before compression
	Shuffle bool `yaml:"shuffle" json:"shuffle"`
	// Workers bounds the parallelism of bulk construction
	Workers int `yaml:"workers" json:"workers"`
	// CacheChunks is the number of decompressed chunks each array keeps
	CacheChunks int `yaml:"cache_chunks" json:"cache_chunks"`
}

// LoggingConfig mirrors logger.Config so it can be read from YAML
type LoggingConfig struct {
	// Level sets logging verbosity (debug, info, warn, error)
	Level string `yaml:"level" json:"level"`
	// Development switches to the colored console encoder
	Development bool `yaml:"development" json:"development"`
	// Encoding is json or console
	Encoding string `yaml:"encoding" json:"encoding"`
	// OutputPaths lists zap sinks; empty means stdout
	OutputPaths []string `yaml:"output_paths,omitempty" json:"output_paths,omitempty"`
}

// ObservabilityConfig contains monitoring settings
type ObservabilityConfig struct {
	// EnableMetrics registers engine collectors with a Prometheus registry
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing installs the stdout span exporter
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// ServiceName is reported as the tracing resource name
	ServiceName string `yaml:"service_name" json:"service_name"`
}

// DefaultEngine returns the engine settings used when nothing is configured
func DefaultEngine() Engine {
	return Engine{
		Codec:         string(compression.LZ4),
		Level:         int(compression.Default),
		ChunkCapacity: DefaultChunkCapacity,
		Shuffle:       true,
		Workers:       runtime.NumCPU(),
		CacheChunks:   1,
	}
}

// Default creates a Config with sensible defaults
func Default(name string) *Config {
	return &Config{
		Name:   name,
		Engine: DefaultEngine(),
		Logging: LoggingConfig{
			Level:    "info",
			Encoding: "console",
		},
		Observability: ObservabilityConfig{
			ServiceName: "carray",
		},
	}
}

// Validate validates the configuration for correctness
func (c *Config) Validate() error {
	if err := c.Engine.Validate(); err != nil {
		return err
	}
	switch c.Logging.Encoding {
	case "", "json", "console":
	default:
		return errors.Newf(errors.ErrorTypeConfig, "logging.encoding must be json or console, got %q", c.Logging.Encoding)
	}
	return nil
}

// Validate checks that the engine settings can build arrays
func (e Engine) Validate() error {
	if _, err := compression.ParseAlgorithm(e.Codec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeConfig, "invalid codec")
	}
	if !compression.Level(e.Level).Valid() {
		return errors.Newf(errors.ErrorTypeConfig, "level must be between 0 and 9, got %d", e.Level).
			WithDetail("level", e.Level)
	}
	if e.ChunkCapacity <= 0 {
		return errors.Newf(errors.ErrorTypeConfig, "chunk_capacity must be positive, got %d", e.ChunkCapacity)
	}
	if e.Workers < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "workers must be at least 1, got %d", e.Workers)
	}
	if e.CacheChunks < 1 {
		return errors.Newf(errors.ErrorTypeConfig, "cache_chunks must be at least 1, got %d", e.CacheChunks)
	}
	return nil
}

// Compression returns the codec configuration for the engine. The engine must
// have been validated.
func (e Engine) Compression() compression.Config {
	algo, _ := compression.ParseAlgorithm(e.Codec)
	return compression.Config{Algorithm: algo, Level: compression.Level(e.Level)}
}

// WithCapacity returns a copy of e using the given chunk capacity
func (e Engine) WithCapacity(capacity int) Engine {
	e.ChunkCapacity = capacity
	return e
}
