// Package config loads glace.yaml, the environment and .env files into a
// validated Config.
package config

import (
	"bytes"
	"errors"
	"io"
	"os"
	"runtime"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/hazae41/glace/internal/cartesian"
	ferrors "github.com/hazae41/glace/internal/foundation/errors"
)

// Config is the full build configuration.
type Config struct {
	Input       string          `yaml:"input"`
	Output      string          `yaml:"output"`
	Mode        Mode            `yaml:"mode"`
	IgnoreFile  string          `yaml:"ignore_file"`
	Manifest    string          `yaml:"manifest"`
	Directive   string          `yaml:"directive"`
	Concurrency int             `yaml:"concurrency"`
	External    []string        `yaml:"external"`
	Prerender   []string        `yaml:"prerender"`
	Params      cartesian.Table `yaml:"params"`
	Watch       WatchConfig     `yaml:"watch"`
	Metrics     MetricsConfig   `yaml:"metrics"`
	Events      EventsConfig    `yaml:"events"`
	Tracing     TracingConfig   `yaml:"tracing"`
	Log         LogConfig       `yaml:"log"`
}

// WatchConfig controls rebuilds in watch mode.
type WatchConfig struct {
	Debounce time.Duration `yaml:"debounce"`
	// Interval > 0 also rebuilds periodically, even without file events.
	Interval time.Duration `yaml:"interval"`
}

type MetricsConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// EventsConfig configures the build event log. Empty values disable a sink.
type EventsConfig struct {
	SQLite      string `yaml:"sqlite"`
	NATSURL     string `yaml:"nats_url"`
	NATSSubject string `yaml:"nats_subject"`
}

// TracingConfig selects the OpenTelemetry span exporter.
type TracingConfig struct {
	Exporter TraceExporter `yaml:"exporter"` // none|stdout|otlp
	Endpoint string        `yaml:"endpoint"`
	Insecure bool          `yaml:"insecure"`
}

type LogConfig struct {
	Level  LogLevel  `yaml:"level"`
	Format LogFormat `yaml:"format"`
}

const (
	DefaultInput       = "./src"
	DefaultOutput      = "./dst"
	DefaultIgnoreFile  = ".bundleignore"
	DefaultManifest    = "manifest.json"
	DefaultDirective   = "data-bundle"
	DefaultDebounce    = 300 * time.Millisecond
	DefaultMetricsAddr = ":9464"
	DefaultNATSSubject = "glace.builds"
	DefaultOTLPAddr    = "localhost:4317"
)

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	return cfg
}

// Load reads the configuration at path. An empty path skips the file and
// yields defaults plus environment overrides.
func Load(path string) (*Config, error) {
	loadEnvFile()

	cfg := &Config{}
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			if errors.Is(err, os.ErrNotExist) {
				return nil, ferrors.ConfigError("configuration file not found").WithContext("path", path).Build()
			}
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to read config file").
				Fatal().WithContext("path", path).Build()
		}
		if err := decode(data, cfg); err != nil {
			return nil, ferrors.WrapError(err, ferrors.CategoryConfig, "failed to parse config file").
				Fatal().WithContext("path", path).Build()
		}
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func decode(data []byte, cfg *Config) error {
	expanded := os.ExpandEnv(string(data))
	dec := yaml.NewDecoder(bytes.NewReader([]byte(expanded)))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (c *Config) applyDefaults() {
	if c.Input == "" {
		c.Input = DefaultInput
	}
	if c.Output == "" {
		c.Output = DefaultOutput
	}
	if c.Mode == "" {
		c.Mode = ModeProduction
	}
	if c.IgnoreFile == "" {
		c.IgnoreFile = DefaultIgnoreFile
	}
	if c.Manifest == "" {
		c.Manifest = DefaultManifest
	}
	if c.Directive == "" {
		c.Directive = DefaultDirective
	}
	if c.Concurrency <= 0 {
		c.Concurrency = runtime.GOMAXPROCS(0)
	}
	if c.Watch.Debounce <= 0 {
		c.Watch.Debounce = DefaultDebounce
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = DefaultMetricsAddr
	}
	if c.Events.NATSSubject == "" {
		c.Events.NATSSubject = DefaultNATSSubject
	}
	if exp, err := ParseTraceExporter(string(c.Tracing.Exporter)); err == nil {
		c.Tracing.Exporter = exp
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = DefaultOTLPAddr
	}
	c.Log.Level = NormalizeLogLevel(string(c.Log.Level))
	c.Log.Format = NormalizeLogFormat(string(c.Log.Format))
}
