// Package config loads the instbench YAML configuration.  Every field has a
// default, so an empty or missing section is valid; command line flags
// override whatever the file sets.
package config

import (
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nersc/instbench/benchmark"
	"github.com/nersc/instbench/dlog"
	"github.com/nersc/instbench/errors"
	"github.com/nersc/instbench/matmul"
)

type Config struct {
	Benchmark BenchmarkConfig `yaml:"benchmark"`
	Logging   LoggingConfig   `yaml:"logging"`
	Metrics   MetricsConfig   `yaml:"metrics"`
	Server    ServerConfig    `yaml:"server"`
}

// Default request for `instbench matmul` when no flags are given.
type BenchmarkConfig struct {
	Language string `yaml:"language"`
	Size     int64  `yaml:"size"`
	IEntry   int64  `yaml:"ientry"`
	NItr     int64  `yaml:"nitr"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`

	// Stderr is wrapped in a dlog.BufferedConsole with these settings.
	ConsoleBufferSize int           `yaml:"console_buffer_size"`
	MaxFlushInterval  time.Duration `yaml:"max_flush_interval"`
}

type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Addr      string `yaml:"addr"`
	Namespace string `yaml:"namespace"`
}

type ServerConfig struct {
	// Directory for the cinterop socket.  Empty means os.TempDir().
	SocketDir string `yaml:"socket_dir"`

	// Zero means no limit.
	MaxConnections int `yaml:"max_connections"`
}

func Default() *Config {
	return &Config{
		Benchmark: BenchmarkConfig{
			Language: string(benchmark.LanguageCXX),
			Size:     benchmark.DefaultSize,
			IEntry:   benchmark.DefaultIEntry,
			NItr:     benchmark.DefaultNItr,
		},
		Logging: LoggingConfig{
			Level:             "info",
			Format:            dlog.FormatConsole,
			ConsoleBufferSize: 4096,
			MaxFlushInterval:  100 * time.Millisecond,
		},
		Metrics: MetricsConfig{
			Addr:      "127.0.0.1:9464",
			Namespace: "instbench",
		},
	}
}

// Parses data on top of the defaults and validates the result.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, errors.Wrap(err, "error parsing config")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Loads the file at path.  An empty path yields the defaults.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrap(err, "error reading config file")
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, errors.Wrapf(err, "config file %s", path)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	if c.Benchmark.Language != "" {
		if _, err := benchmark.ParseLanguage(c.Benchmark.Language); err != nil {
			return errors.Wrap(err, "benchmark.language")
		}
	}
	if c.Benchmark.Size <= 0 || c.Benchmark.Size > matmul.MaxSize {
		return errors.Newf("benchmark.size must be in 1-%d, got %d",
			matmul.MaxSize, c.Benchmark.Size)
	}
	if c.Benchmark.IEntry < 0 {
		return errors.Newf("benchmark.ientry must not be negative, got %d",
			c.Benchmark.IEntry)
	}
	if c.Benchmark.NItr <= 0 {
		return errors.Newf("benchmark.nitr must be positive, got %d", c.Benchmark.NItr)
	}

	switch c.Logging.Format {
	case dlog.FormatJSON, dlog.FormatConsole:
	default:
		return errors.Newf("logging.format must be %s or %s, got %q",
			dlog.FormatJSON, dlog.FormatConsole, c.Logging.Format)
	}
	if c.Logging.ConsoleBufferSize < 0 {
		return errors.Newf("logging.console_buffer_size must not be negative")
	}
	if c.Logging.MaxFlushInterval < 0 {
		return errors.Newf("logging.max_flush_interval must not be negative")
	}

	if c.Server.MaxConnections < 0 {
		return errors.Newf("server.max_connections must not be negative")
	}
	if c.Metrics.Enabled && c.Metrics.Addr == "" {
		return errors.New("metrics.addr is required when metrics are enabled")
	}
	return nil
}

// Request built from the benchmark section.
func (c *Config) Request() benchmark.Request {
	return benchmark.NewRequest(c.Benchmark.Language,
		benchmark.WithSize(c.Benchmark.Size),
		benchmark.WithIEntry(c.Benchmark.IEntry),
		benchmark.WithNItr(c.Benchmark.NItr))
}
