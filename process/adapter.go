package process

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/kbukum/procspec/errors"
	"github.com/kbukum/procspec/logger"
	"github.com/kbukum/procspec/observability"
	"github.com/kbukum/procspec/resilience"
)

const defaultGracePeriod = 5 * time.Second

// Config configures an Adapter.
type Config struct {
	// Name identifies this adapter in logs.
	Name string `yaml:"name,omitempty" mapstructure:"name"`
	// GracePeriod is how long a canceled process has between SIGTERM and
	// SIGKILL. Zero means five seconds.
	GracePeriod time.Duration `yaml:"grace_period,omitempty" mapstructure:"grace_period" validate:"gte=0"`
	// Timeout bounds Output and Status. Zero means no timeout.
	Timeout time.Duration `yaml:"timeout,omitempty" mapstructure:"timeout" validate:"gte=0"`
	// Retry retries launches that failed for a transient reason. A missing
	// program or a permission error is never retried.
	Retry resilience.RetryConfig `yaml:"retry,omitempty" mapstructure:"retry"`
}

// Adapter runs Commands under a context with logging, tracing and metrics.
// Errors are *errors.AppError values; a non-zero exit is still a status.
type Adapter struct {
	config  Config
	log     *logger.Logger
	tracer  trace.Tracer
	metrics *observability.Metrics
	launch  []LaunchOption
}

// AdapterOption configures an Adapter.
type AdapterOption func(*Adapter)

// WithLogger sets the logger. The default is the "process" component logger.
func WithLogger(l *logger.Logger) AdapterOption {
	return func(a *Adapter) { a.log = l }
}

// WithTracer sets the tracer. The default is observability.Tracer.
func WithTracer(t trace.Tracer) AdapterOption {
	return func(a *Adapter) { a.tracer = t }
}

// WithMetrics records launch metrics. Without it no metrics are recorded.
func WithMetrics(m *observability.Metrics) AdapterOption {
	return func(a *Adapter) { a.metrics = m }
}

// WithLaunchOptions passes options to every LaunchConfig the adapter builds.
func WithLaunchOptions(opts ...LaunchOption) AdapterOption {
	return func(a *Adapter) { a.launch = append(a.launch, opts...) }
}

// NewAdapter creates a new process adapter.
func NewAdapter(cfg Config, opts ...AdapterOption) *Adapter {
	a := &Adapter{config: cfg}
	for _, opt := range opts {
		opt(a)
	}
	if a.log == nil {
		a.log = logger.Get("process")
	}
	if a.tracer == nil {
		a.tracer = observability.Tracer()
	}
	return a
}

// Name returns the adapter name.
func (a *Adapter) Name() string {
	return a.config.Name
}

// Start launches cmd with the same defaults as Command.Start. The context
// only scopes the launch span: the caller owns the returned Child.
func (a *Adapter) Start(ctx context.Context, cmd Command) (*Child, error) {
	r := a.begin(ctx, observability.SpanProcessStart, cmd)
	defer r.span.End()

	lc := cmd.LaunchConfig(a.launch...)
	child, err := retryLaunch(r.ctx, a.config.Retry, r, cmd.Name, func() (*Child, error) {
		return lc.spawn(startDefaults)
	})
	if err != nil {
		return nil, r.launchFailed(err)
	}
	r.started(child.ID())
	if a.metrics != nil {
		a.metrics.RecordDetached(r.ctx, cmd.Name)
	}
	return child, nil
}

// Output runs cmd like Command.Output. When ctx ends first the process gets
// SIGTERM, is killed if it is still running after GracePeriod, and a
// CANCELED error is returned.
func (a *Adapter) Output(ctx context.Context, cmd Command) (*Output, error) {
	return a.run(ctx, observability.SpanProcessOutput, cmd, outputDefaults, true)
}

// Status runs cmd like Command.Status, with the same cancellation as Output.
func (a *Adapter) Status(ctx context.Context, cmd Command) (ExitStatus, error) {
	out, err := a.run(ctx, observability.SpanProcessStatus, cmd, statusDefaults, false)
	if err != nil {
		return ExitStatus{}, err
	}
	return out.Status, nil
}

func (a *Adapter) run(ctx context.Context, spanName string, cmd Command, def streamDefaults, capture bool) (*Output, error) {
	if a.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.config.Timeout)
		defer cancel()
	}

	r := a.begin(ctx, spanName, cmd)
	defer r.span.End()
	if a.metrics != nil {
		r.metrics = a.metrics
		r.metrics.RecordLaunchStart(r.ctx)
	}

	lc := cmd.LaunchConfig(a.launch...)
	child, err := retryLaunch(r.ctx, a.config.Retry, r, cmd.Name, func() (*boundChild, error) {
		return lc.startBound(r.ctx, def, a.gracePeriod(), capture)
	})
	if err != nil {
		return nil, r.launchFailed(err)
	}
	r.started(child.ID())

	out, err := child.wait()
	if ctxErr := ctx.Err(); ctxErr != nil {
		return nil, r.canceled(child.ID(), ctxErr)
	}
	if err != nil {
		return nil, r.waitFailed(child.ID(), err)
	}
	r.exited(out)
	return out, nil
}

func (a *Adapter) gracePeriod() time.Duration {
	if a.config.GracePeriod > 0 {
		return a.config.GracePeriod
	}
	return defaultGracePeriod
}

// retryLaunch calls launch, retrying failures per retry. Each retry is
// logged on the run's logger.
func retryLaunch[T any](ctx context.Context, retry resilience.RetryConfig, r *runRecord, program string, launch func() (T, error)) (T, error) {
	if retry.MaxAttempts <= 1 {
		return launch()
	}

	retry.OnRetry = func(attempt int, err error, backoff time.Duration) {
		r.log.WithError(err).Warn("process launch failed, retrying", logger.Fields(
			logger.FieldAttempt, attempt,
			logger.FieldBackoff, backoff.Milliseconds(),
		))
	}
	return resilience.Retry(ctx, retry, func() (T, error) {
		v, err := launch()
		if err != nil {
			return v, errors.LaunchFailed(program, err)
		}
		return v, nil
	})
}

// runRecord carries the per-run span and logger. metrics is set only once the
// active gauge was incremented.
type runRecord struct {
	metrics *observability.Metrics
	ctx     context.Context
	span    trace.Span
	log     *logger.Logger
	name    string
	start   time.Time
}

func (a *Adapter) begin(ctx context.Context, spanName string, cmd Command) *runRecord {
	runID := uuid.NewString()
	ctx, span := a.tracer.Start(ctx, spanName, trace.WithAttributes(
		attribute.String(observability.AttrProgram, cmd.Name),
		attribute.Int(observability.AttrArgCount, len(cmd.Arguments)),
		attribute.String(observability.AttrRunID, runID),
	))

	fields := logger.Fields(
		logger.FieldRunID, runID,
		logger.FieldProgram, cmd.Name,
		logger.FieldArgs, cmd.Arguments,
	)
	if cmd.CurrentDir != "" {
		fields[logger.FieldDir] = cmd.CurrentDir
	}
	if sc := span.SpanContext(); sc.IsValid() {
		fields[logger.FieldTraceID] = sc.TraceID().String()
		fields[logger.FieldSpanID] = sc.SpanID().String()
	}

	return &runRecord{
		ctx:   ctx,
		span:  span,
		log:   a.log.WithFields(fields),
		name:  cmd.Name,
		start: time.Now(),
	}
}

func (r *runRecord) started(pid int) {
	r.span.SetAttributes(attribute.Int(observability.AttrPID, pid))
	r.log.Debug("process started", logger.Fields(logger.FieldPID, pid))
}

func (r *runRecord) launchFailed(err error) error {
	appErr, ok := errors.AsAppError(err)
	if !ok {
		appErr = errors.LaunchFailed(r.name, err)
	}
	r.finish(observability.OutcomeLaunchError, appErr)
	r.log.WithError(err).Error("process launch failed")
	return appErr
}

func (r *runRecord) waitFailed(pid int, err error) error {
	appErr := errors.WaitFailed(r.name, pid, err)
	r.finish(observability.OutcomeWaitError, appErr)
	r.log.WithError(err).Error("process wait failed", logger.Fields(logger.FieldPID, pid))
	return appErr
}

func (r *runRecord) canceled(pid int, err error) error {
	appErr := errors.Canceled(r.name, pid, err)
	r.finish(observability.OutcomeCanceled, appErr)
	r.log.Warn("process canceled", logger.Fields(
		logger.FieldPID, pid,
		logger.FieldError, err.Error(),
	))
	return appErr
}

func (r *runRecord) exited(out *Output) {
	outcome := observability.OutcomeExited
	if !out.Status.Success() {
		outcome = observability.OutcomeFailed
	}
	r.span.SetAttributes(attribute.Int(observability.AttrExitCode, out.Status.Code))
	r.finish(outcome, nil)

	fields := logger.Fields(logger.FieldExitCode, out.Status.Code)
	for k, v := range logger.DurationFields("run", out.Duration) {
		fields[k] = v
	}
	if outcome == observability.OutcomeFailed {
		r.log.Warn("process exited with failure", fields)
		return
	}
	r.log.Info("process exited", fields)
}

func (r *runRecord) finish(outcome string, err error) {
	r.span.SetAttributes(attribute.String(observability.AttrOutcome, outcome))
	if err != nil {
		observability.SetSpanError(r.span, err)
	}
	if r.metrics != nil {
		r.metrics.RecordLaunchEnd(r.ctx, r.name, outcome, time.Since(r.start))
	}
}
