package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetrichttp"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"github.com/kbukum/procspec/logger"
)

// Launch outcomes used as the "outcome" metric attribute.
const (
	// OutcomeExited: the process ran and exited with code zero.
	OutcomeExited = "exited"
	// OutcomeFailed: the process ran and exited non-zero or by a signal.
	OutcomeFailed = "failed"
	// OutcomeLaunchError: the OS refused to create the process.
	OutcomeLaunchError = "launch_error"
	// OutcomeWaitError: waiting or reading output failed.
	OutcomeWaitError = "wait_error"
	// OutcomeCanceled: the caller's context ended and the process was killed.
	OutcomeCanceled = "canceled"
	// OutcomeDetached: the process was started and handed to the caller.
	OutcomeDetached = "detached"
)

// MeterConfig configures the OpenTelemetry meter provider.
type MeterConfig struct {
	// Enabled turns on export.
	Enabled bool `yaml:"enabled" mapstructure:"enabled"`
	// ServiceName is the name of the service.
	ServiceName string `yaml:"service_name" mapstructure:"service_name"`
	// ServiceVersion is the version of the service.
	ServiceVersion string `yaml:"service_version" mapstructure:"service_version"`
	// Environment is the deployment environment (dev, staging, prod).
	Environment string `yaml:"environment" mapstructure:"environment"`
	// Endpoint is the OTLP HTTP endpoint host:port (e.g., "localhost:4318").
	Endpoint string `yaml:"endpoint" mapstructure:"endpoint" validate:"required_if=Enabled true"`
	// Insecure allows insecure connections (for development).
	Insecure bool `yaml:"insecure" mapstructure:"insecure"`
	// Interval is the metric export interval.
	Interval time.Duration `yaml:"interval" mapstructure:"interval" validate:"gte=0"`
}

// DefaultMeterConfig returns sensible defaults for development.
func DefaultMeterConfig(serviceName string) MeterConfig {
	return MeterConfig{
		ServiceName:    serviceName,
		ServiceVersion: "1.0.0",
		Environment:    "development",
		Endpoint:       "localhost:4318",
		Insecure:       true,
		Interval:       15 * time.Second,
	}
}

// InitMeter installs an OTLP/HTTP meter provider as the global provider.
// The caller shuts it down on exit.
func InitMeter(ctx context.Context, config MeterConfig) (*sdkmetric.MeterProvider, error) {
	opts := []otlpmetrichttp.Option{
		otlpmetrichttp.WithEndpoint(config.Endpoint),
	}
	if config.Insecure {
		opts = append(opts, otlpmetrichttp.WithInsecure())
	}

	exporter, err := otlpmetrichttp.New(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	var readerOpts []sdkmetric.PeriodicReaderOption
	if config.Interval > 0 {
		readerOpts = append(readerOpts, sdkmetric.WithInterval(config.Interval))
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithReader(sdkmetric.NewPeriodicReader(exporter, readerOpts...)),
		sdkmetric.WithResource(newResource(config.ServiceName, config.ServiceVersion, config.Environment)),
	)

	otel.SetMeterProvider(mp)

	logger.Get("observability").Info("meter initialized", logger.Fields(
		"service", config.ServiceName,
		"endpoint", config.Endpoint,
		"interval", config.Interval.String(),
	))

	return mp, nil
}

// Meter returns the procspec meter from the global provider.
func Meter() metric.Meter {
	return otel.Meter(InstrumentationName)
}

// Metrics holds the instruments recorded around process launches.
type Metrics struct {
	launchTotal    metric.Int64Counter
	launchDuration metric.Float64Histogram
	active         metric.Int64UpDownCounter
	errorTotal     metric.Int64Counter
}

// NewMetrics creates metric instruments on the given meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	launchTotal, err := meter.Int64Counter("process.launch.total",
		metric.WithDescription("Total number of process launches by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.launch.total counter: %w", err)
	}

	launchDuration, err := meter.Float64Histogram("process.launch.duration",
		metric.WithDescription("Time from launch to exit in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.launch.duration histogram: %w", err)
	}

	active, err := meter.Int64UpDownCounter("process.active",
		metric.WithDescription("Number of launched processes not yet waited on"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.active counter: %w", err)
	}

	errorTotal, err := meter.Int64Counter("process.error.total",
		metric.WithDescription("Launch and wait errors by outcome"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating process.error.total counter: %w", err)
	}

	return &Metrics{
		launchTotal:    launchTotal,
		launchDuration: launchDuration,
		active:         active,
		errorTotal:     errorTotal,
	}, nil
}

// RecordLaunchStart increments the active process count.
func (m *Metrics) RecordLaunchStart(ctx context.Context) {
	m.active.Add(ctx, 1)
}

// RecordLaunchEnd decrements active processes and records how the launch
// ended.
func (m *Metrics) RecordLaunchEnd(ctx context.Context, program, outcome string, duration time.Duration) {
	m.active.Add(ctx, -1)
	m.launchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("program", program),
		attribute.String("outcome", outcome),
	))
	m.launchDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
		attribute.String("program", program),
	))
	switch outcome {
	case OutcomeLaunchError, OutcomeWaitError, OutcomeCanceled:
		m.errorTotal.Add(ctx, 1, metric.WithAttributes(
			attribute.String("program", program),
			attribute.String("outcome", outcome),
		))
	}
}

// RecordDetached counts a launch whose child is handed to the caller, so its
// exit is never observed here.
func (m *Metrics) RecordDetached(ctx context.Context, program string) {
	m.launchTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("program", program),
		attribute.String("outcome", OutcomeDetached),
	))
}
