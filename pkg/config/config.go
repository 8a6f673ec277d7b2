// Package config loads the procmetrics configuration: defaults, then an
// optional YAML document, then environment variables.
package config

import (
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v9"
	"gopkg.in/yaml.v3"

	"github.com/ja7ad/procmetrics/pkg/netusage"
)

type Config struct {
	// Interval between periodic collection cycles.
	Interval time.Duration `yaml:"interval" env:"PROCMETRICS_INTERVAL"`
	// Limit caps the processes per snapshot, busiest first. Zero is unlimited.
	Limit int `yaml:"limit" env:"PROCMETRICS_LIMIT"`
	// ProcRoot is the procfs mount to read, e.g. a host /proc bind-mounted into a container.
	ProcRoot string `yaml:"proc_root" env:"HOST_PROC"`
	// DefaultCores is used when the host core count can't be read. Zero detects it.
	DefaultCores int `yaml:"default_cores" env:"PROCMETRICS_DEFAULT_CORES"`
	// FallbackTTL bounds the reuse of a last known-good CPU value. Zero keeps it forever.
	FallbackTTL time.Duration `yaml:"fallback_ttl" env:"PROCMETRICS_FALLBACK_TTL"`
	LogLevel    string        `yaml:"log_level" env:"PROCMETRICS_LOG_LEVEL"`

	Network    NetworkConfig    `yaml:"network"`
	Prometheus PrometheusConfig `yaml:"prometheus"`
	History    HistoryConfig    `yaml:"history"`
}

// NetworkConfig drives the external per-process network accounting tool. The
// tool must print CSV with pid, bytes_in and bytes_out columns; there is no
// default command on Linux, so Command is required when Enabled.
type NetworkConfig struct {
	Enabled  bool          `yaml:"enabled" env:"PROCMETRICS_NETWORK_ENABLED"`
	Command  string        `yaml:"command" env:"PROCMETRICS_NETWORK_COMMAND"`
	Args     []string      `yaml:"args" env:"PROCMETRICS_NETWORK_ARGS" envSeparator:" "`
	Interval time.Duration `yaml:"interval" env:"PROCMETRICS_NETWORK_INTERVAL"`
	Timeout  time.Duration `yaml:"timeout" env:"PROCMETRICS_NETWORK_TIMEOUT"`
}

type PrometheusConfig struct {
	// Port of the scrape endpoint. Zero disables it.
	Port int    `yaml:"port" env:"PROCMETRICS_PROMETHEUS_PORT"`
	Path string `yaml:"path" env:"PROCMETRICS_PROMETHEUS_PATH"`
}

type HistoryConfig struct {
	// Retention of the in-memory history. Zero keeps everything.
	Retention time.Duration `yaml:"retention" env:"PROCMETRICS_HISTORY_RETENTION"`
	// MaxPoints per PID in the in-memory history. Zero is unbounded.
	MaxPoints int `yaml:"max_points" env:"PROCMETRICS_HISTORY_MAX_POINTS"`
	// Path serves the in-memory history as JSON on the Prometheus port.
	Path string `yaml:"path" env:"PROCMETRICS_HISTORY_PATH"`
	// ParquetPath, when set, receives every periodic snapshot.
	ParquetPath string `yaml:"parquet_path" env:"PROCMETRICS_HISTORY_PARQUET_PATH"`
}

func DefaultConfig() *Config {
	nc := netusage.DefaultConfig()
	return &Config{
		Interval: 2 * time.Second,
		ProcRoot: "/proc",
		LogLevel: "INFO",
		Network: NetworkConfig{
			Interval: nc.Interval,
			Timeout:  nc.Timeout,
		},
		Prometheus: PrometheusConfig{
			Port: 9400,
			Path: "/metrics",
		},
		History: HistoryConfig{
			Retention: 15 * time.Minute,
			Path:      "/history",
		},
	}
}

// ConfigError is returned by Validate.
type ConfigError string

func (e ConfigError) Error() string { return string(e) }

// LoadConfig overrides the defaults with the YAML read from file, when not nil,
// and then with the environment.
func LoadConfig(file io.Reader) (*Config, error) {
	cfg := DefaultConfig()
	if file != nil {
		cfgBuf, err := io.ReadAll(file)
		if err != nil {
			return nil, fmt.Errorf("reading YAML configuration: %w", err)
		}
		if err := yaml.Unmarshal(cfgBuf, cfg); err != nil {
			return nil, fmt.Errorf("parsing YAML configuration: %w", err)
		}
	}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("reading env vars: %w", err)
	}
	return cfg, nil
}

func (c *Config) Validate() error {
	switch {
	case c.Interval <= 0:
		return ConfigError("interval must be positive")
	case c.Limit < 0:
		return ConfigError("limit can't be negative")
	case c.DefaultCores < 0:
		return ConfigError("default_cores can't be negative")
	case c.FallbackTTL < 0:
		return ConfigError("fallback_ttl can't be negative")
	case c.ProcRoot == "":
		return ConfigError("proc_root is empty")
	}
	if _, err := c.SlogLevel(); err != nil {
		return ConfigError(err.Error())
	}
	if c.Network.Enabled {
		switch {
		case strings.TrimSpace(c.Network.Command) == "":
			return ConfigError("network.command is required when network accounting is enabled")
		case c.Network.Interval <= 0:
			return ConfigError("network.interval must be positive")
		case c.Network.Timeout <= 0:
			return ConfigError("network.timeout must be positive")
		}
	}
	if c.Prometheus.Port < 0 || c.Prometheus.Port > 65535 {
		return ConfigError(fmt.Sprintf("invalid prometheus.port %d", c.Prometheus.Port))
	}
	if c.Prometheus.Port > 0 {
		switch {
		case !strings.HasPrefix(c.Prometheus.Path, "/"):
			return ConfigError("prometheus.path must start with /")
		case !strings.HasPrefix(c.History.Path, "/"):
			return ConfigError("history.path must start with /")
		case c.History.Path == c.Prometheus.Path:
			return ConfigError("history.path and prometheus.path must differ")
		}
	}
	if c.History.Retention < 0 || c.History.MaxPoints < 0 {
		return ConfigError("history.retention and history.max_points can't be negative")
	}
	return nil
}

// SlogLevel parses LogLevel, e.g. "debug" or "WARN".
func (c *Config) SlogLevel() (slog.Level, error) {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return 0, fmt.Errorf("invalid log_level %q: %w", c.LogLevel, err)
	}
	return lvl, nil
}

// Sampler returns the network sampler configuration, or nil when disabled.
func (nc NetworkConfig) Sampler() *netusage.Config {
	if !nc.Enabled {
		return nil
	}
	return &netusage.Config{
		Command:  nc.Command,
		Args:     nc.Args,
		Interval: nc.Interval,
		Timeout:  nc.Timeout,
	}
}
