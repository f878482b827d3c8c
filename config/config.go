package config

import (
	"fmt"

	"github.com/kbukum/procspec/logger"
	"github.com/kbukum/procspec/observability"
	"github.com/kbukum/procspec/process"
	"github.com/kbukum/procspec/validation"
	"github.com/kbukum/procspec/version"
)

// CatalogExtensions are the file extensions a command catalog may use.
var CatalogExtensions = []string{".json", ".yaml", ".yml"}

// Config is the runtime configuration of a process runner.
type Config struct {
	Name        string `yaml:"name" mapstructure:"name" validate:"required"`
	Environment string `yaml:"environment" mapstructure:"environment" validate:"oneof=development staging production"`
	Version     string `yaml:"version" mapstructure:"version"`
	Debug       bool   `yaml:"debug" mapstructure:"debug"`

	Logging logger.Config              `yaml:"logging" mapstructure:"logging"`
	Tracing observability.TracerConfig `yaml:"tracing" mapstructure:"tracing"`
	Metrics observability.MeterConfig  `yaml:"metrics" mapstructure:"metrics"`
	Runner  process.Config             `yaml:"runner" mapstructure:"runner"`

	// Catalog is an optional path to a JSON or YAML file of named commands.
	Catalog string `yaml:"catalog" mapstructure:"catalog"`
}

// ApplyDefaults fills unset fields. Service names propagate from Name.
func (c *Config) ApplyDefaults() {
	if c.Environment == "" {
		c.Environment = "development"
	}
	if c.Environment == "development" {
		c.Debug = true
	}
	if c.Debug && c.Logging.Level == "" {
		c.Logging.Level = "debug"
	}
	c.Logging.ApplyDefaults()

	if c.Version == "" {
		c.Version = version.Short()
	}

	defTracing := observability.DefaultTracerConfig(c.Name)
	if c.Tracing.ServiceName == "" {
		c.Tracing.ServiceName = c.Name
	}
	if c.Tracing.ServiceVersion == "" {
		c.Tracing.ServiceVersion = c.Version
	}
	if c.Tracing.Environment == "" {
		c.Tracing.Environment = c.Environment
	}
	if c.Tracing.Endpoint == "" {
		c.Tracing.Endpoint = defTracing.Endpoint
	}
	// A zero rate with tracing on would export nothing.
	if c.Tracing.Enabled && c.Tracing.SampleRate == 0 {
		c.Tracing.SampleRate = defTracing.SampleRate
	}

	defMetrics := observability.DefaultMeterConfig(c.Name)
	if c.Metrics.ServiceName == "" {
		c.Metrics.ServiceName = c.Name
	}
	if c.Metrics.ServiceVersion == "" {
		c.Metrics.ServiceVersion = c.Version
	}
	if c.Metrics.Environment == "" {
		c.Metrics.Environment = c.Environment
	}
	if c.Metrics.Endpoint == "" {
		c.Metrics.Endpoint = defMetrics.Endpoint
	}
	if c.Metrics.Interval == 0 {
		c.Metrics.Interval = defMetrics.Interval
	}

	if c.Runner.Name == "" {
		c.Runner.Name = c.Name
	}
}

// Validate checks struct tags on every section, the logging options and the
// catalog path. Call ApplyDefaults first.
func (c *Config) Validate() error {
	if err := validation.Validate(c); err != nil {
		return err
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	retry := c.Runner.Retry
	if err := validation.New().
		Extension("catalog", c.Catalog, CatalogExtensions).
		Custom(retry.MaxBackoff == 0 || retry.MaxBackoff >= retry.InitialBackoff,
			"runner.retry.max_backoff", "must not be below runner.retry.initial_backoff").
		Validate(); err != nil {
		return err
	}
	return nil
}
