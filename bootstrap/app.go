package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"slices"
	"syscall"
	"time"

	"github.com/kbukum/procspec/config"
	"github.com/kbukum/procspec/logger"
	"github.com/kbukum/procspec/observability"
	"github.com/kbukum/procspec/process"
	"github.com/kbukum/procspec/specfile"
	"github.com/kbukum/procspec/version"
)

// App is a configured process runner.
type App struct {
	Name    string
	Version string
	Cfg     *config.Config
	Logger  *logger.Logger
	Adapter *process.Adapter
	Catalog *specfile.Catalog

	gracefulTimeout time.Duration
	onStop          []Hook
	providers       []Hook
}

// NewApp applies defaults to cfg, validates it and builds the runner. Tracer
// and meter providers are installed only when enabled; the adapter records
// to the global providers either way.
func NewApp(ctx context.Context, cfg *config.Config, opts ...Option) (*App, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation: %w", err)
	}

	o := resolveOptions(opts)
	app := &App{
		Name:            cfg.Name,
		Version:         cfg.Version,
		Cfg:             cfg,
		gracefulTimeout: 15 * time.Second,
	}
	if o.gracefulTimeout != nil {
		app.gracefulTimeout = *o.gracefulTimeout
	}

	if o.logger != nil {
		app.Logger = o.logger
	} else {
		app.Logger = logger.New(&cfg.Logging, cfg.Name)
		logger.SetGlobalLogger(app.Logger)
	}
	procLog := app.Logger.WithComponent("process")
	logger.Register("process", procLog)

	if cfg.Tracing.Enabled {
		tp, err := observability.InitTracer(ctx, cfg.Tracing)
		if err != nil {
			return nil, err
		}
		app.providers = append(app.providers, tp.Shutdown)
	}
	if cfg.Metrics.Enabled {
		mp, err := observability.InitMeter(ctx, cfg.Metrics)
		if err != nil {
			_ = app.shutdownProviders(ctx)
			return nil, err
		}
		app.providers = append(app.providers, mp.Shutdown)
	}

	metrics, err := observability.NewMetrics(observability.Meter())
	if err != nil {
		_ = app.shutdownProviders(ctx)
		return nil, err
	}

	app.Catalog = specfile.NewCatalog()
	if cfg.Catalog != "" {
		catalog, err := specfile.LoadCatalog(cfg.Catalog)
		if err != nil {
			_ = app.shutdownProviders(ctx)
			return nil, fmt.Errorf("loading catalog: %w", err)
		}
		app.Catalog = catalog
	}

	adapterOpts := append([]process.AdapterOption{
		process.WithLogger(procLog),
		process.WithMetrics(metrics),
	}, o.adapterOpts...)
	app.Adapter = process.NewAdapter(cfg.Runner, adapterOpts...)

	app.Logger.Info("runner ready", logger.Fields(
		"name", app.Name,
		"version", app.Version,
		"go", version.Get().GoVersion,
		"commands", len(app.Catalog.Names()),
		"tracing", cfg.Tracing.Enabled,
		"metrics", cfg.Metrics.Enabled,
	))
	return app, nil
}

// Command returns a copy of the named catalog command.
func (a *App) Command(name string) (process.Command, error) {
	return a.Catalog.Get(name)
}

// Output runs the named catalog command through the adapter and captures
// its output.
func (a *App) Output(ctx context.Context, name string) (*process.Output, error) {
	cmd, err := a.Command(name)
	if err != nil {
		return nil, err
	}
	return a.Adapter.Output(ctx, cmd)
}

// Status runs the named catalog command through the adapter and returns its
// exit status.
func (a *App) Status(ctx context.Context, name string) (process.ExitStatus, error) {
	cmd, err := a.Command(name)
	if err != nil {
		return process.ExitStatus{}, err
	}
	return a.Adapter.Status(ctx, cmd)
}

// RunTask runs a finite task and shuts down when it returns. SIGINT and
// SIGTERM cancel the task's context. The task's error wins over a shutdown
// error.
func (a *App) RunTask(ctx context.Context, task func(ctx context.Context) error) error {
	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)

	go func() {
		select {
		case sig := <-sigCh:
			a.Logger.Info("received signal, canceling task", logger.Fields("signal", sig.String()))
			cancel()
		case <-taskCtx.Done():
		}
	}()

	taskErr := task(taskCtx)
	if stopErr := a.Shutdown(context.Background()); stopErr != nil && taskErr == nil {
		return stopErr
	}
	return taskErr
}

// Shutdown runs OnStop hooks and flushes the exporters within the graceful
// timeout.
func (a *App) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, a.gracefulTimeout)
	defer cancel()

	hookErr := runHooks(ctx, a.onStop)
	if hookErr != nil {
		a.Logger.Error("stop hook error", logger.Fields(logger.FieldError, hookErr.Error()))
	}
	providerErr := a.shutdownProviders(ctx)
	a.Logger.Info("runner shut down")
	return errors.Join(hookErr, providerErr)
}

// shutdownProviders flushes providers in reverse order of installation.
func (a *App) shutdownProviders(ctx context.Context) error {
	var errs []error
	for _, shutdown := range slices.Backward(a.providers) {
		if err := shutdown(ctx); err != nil {
			errs = append(errs, err)
		}
	}
	a.providers = nil
	return errors.Join(errs...)
}
