// Package config loads the scheduler's run configuration from YAML with
// environment overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/signalsfoundry/constellation-scheduler/core"
	"github.com/signalsfoundry/constellation-scheduler/internal/logging"
	"github.com/signalsfoundry/constellation-scheduler/internal/observability"
)

// ErrInvalidConfig wraps every validation and override failure.
var ErrInvalidConfig = errors.New("invalid config")

// LoggingConfig selects the log level and handler format.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// MetricsConfig controls the Prometheus endpoint.
type MetricsConfig struct {
	Addr string `yaml:"addr"` // empty disables the listener
}

// Config is the full run configuration.
type Config struct {
	Model      core.Params `yaml:"model"`
	Workers    int         `yaml:"workers"`
	TailPolicy string      `yaml:"tail_policy"`

	// Epoch is the instant hour 0 of the schedule maps to. Zero means the
	// time the run starts.
	Epoch      time.Time     `yaml:"epoch"`
	ReplayTick time.Duration `yaml:"replay_tick"`

	Logging LoggingConfig               `yaml:"logging"`
	Tracing observability.TracingConfig `yaml:"tracing"`
	Metrics MetricsConfig               `yaml:"metrics"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Model:      core.DefaultParams(),
		TailPolicy: string(core.TailFromZero),
		ReplayTick: time.Minute,
		Logging:    LoggingConfig{Level: "info", Format: "text"},
		Tracing:    observability.DefaultTracingConfig(),
	}
}

// Load reads path (if non-empty) over the defaults, applies environment
// overrides and validates the result.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		f, err := os.Open(path)
		if err != nil {
			return Config{}, fmt.Errorf("open config: %w", err)
		}
		defer f.Close()

		cfg, err = Parse(f)
		if err != nil {
			return Config{}, fmt.Errorf("%s: %w", path, err)
		}
	}

	cfg, err := cfg.ApplyEnv(os.LookupEnv)
	if err != nil {
		return Config{}, err
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Parse decodes a YAML document over Default. Unknown keys are rejected.
func Parse(r io.Reader) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("%w: decode: %v", ErrInvalidConfig, err)
	}
	return cfg, nil
}

// ApplyEnv overlays SCHED_WORKERS, SCHED_TAIL_POLICY, SCHED_EPOCH,
// SCHED_METRICS_ADDR, LOG_LEVEL, LOG_FORMAT and the tracing variables.
func (c Config) ApplyEnv(lookup func(string) (string, bool)) (Config, error) {
	if v, ok := lookup("SCHED_WORKERS"); ok && v != "" {
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%w: SCHED_WORKERS=%q", ErrInvalidConfig, v)
		}
		c.Workers = n
	}
	if v, ok := lookup("SCHED_TAIL_POLICY"); ok && v != "" {
		c.TailPolicy = v
	}
	if v, ok := lookup("SCHED_EPOCH"); ok && v != "" {
		t, err := time.Parse(time.RFC3339, strings.TrimSpace(v))
		if err != nil {
			return Config{}, fmt.Errorf("%w: SCHED_EPOCH=%q is not RFC3339", ErrInvalidConfig, v)
		}
		c.Epoch = t
	}
	if v, ok := lookup("SCHED_METRICS_ADDR"); ok {
		c.Metrics.Addr = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok && v != "" {
		c.Logging.Level = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok && v != "" {
		c.Logging.Format = v
	}
	c.Tracing = c.Tracing.WithEnv()
	return c, nil
}

// Validate checks the physical model and the run knobs.
func (c Config) Validate() error {
	if err := c.Model.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	if c.Workers < 0 {
		return fmt.Errorf("%w: workers must be >= 0, got %d", ErrInvalidConfig, c.Workers)
	}
	if _, err := core.ParseTailPolicy(c.TailPolicy); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if c.ReplayTick < 0 {
		return fmt.Errorf("%w: replay_tick must be positive", ErrInvalidConfig)
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		return fmt.Errorf("%w: tracing.sample_ratio must be within [0, 1]", ErrInvalidConfig)
	}
	return nil
}

// Tail returns the parsed tail policy; call after Validate.
func (c Config) Tail() core.TailPolicy {
	p, err := core.ParseTailPolicy(c.TailPolicy)
	if err != nil {
		return core.TailFromZero
	}
	return p
}

// EpochOr returns Epoch, or now truncated to the second when Epoch is unset.
func (c Config) EpochOr(now time.Time) time.Time {
	if c.Epoch.IsZero() {
		return now.UTC().Truncate(time.Second)
	}
	return c.Epoch
}

// Logger builds a logger from the logging section.
func (c Config) Logger(out io.Writer) logging.Logger {
	return logging.New(logging.Config{
		Level:  c.Logging.Level,
		Format: c.Logging.Format,
		Output: out,
	})
}
