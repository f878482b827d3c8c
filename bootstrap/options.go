package bootstrap

import (
	"time"

	"github.com/kbukum/procspec/logger"
	"github.com/kbukum/procspec/process"
)

// Option configures the App during creation.
type Option func(*appOptions)

type appOptions struct {
	logger          *logger.Logger
	gracefulTimeout *time.Duration
	adapterOpts     []process.AdapterOption
}

func resolveOptions(opts []Option) *appOptions {
	o := &appOptions{}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// WithLogger sets a custom logger for the application.
// If not set, the logger is built from the config's Logging section.
func WithLogger(l *logger.Logger) Option {
	return func(o *appOptions) {
		o.logger = l
	}
}

// WithGracefulTimeout sets the maximum duration for shutdown.
func WithGracefulTimeout(d time.Duration) Option {
	return func(o *appOptions) {
		o.gracefulTimeout = &d
	}
}

// WithAdapterOptions passes extra options to the process adapter.
func WithAdapterOptions(opts ...process.AdapterOption) Option {
	return func(o *appOptions) {
		o.adapterOpts = append(o.adapterOpts, opts...)
	}
}
