// Package observability provides OpenTelemetry tracing and metrics for process
// launches.
//
// Tracing:
//
//	tp, err := observability.InitTracer(ctx, observability.DefaultTracerConfig("builder"))
//	defer tp.Shutdown(ctx)
//
// Metrics:
//
//	mp, err := observability.InitMeter(ctx, observability.DefaultMeterConfig("builder"))
//	defer mp.Shutdown(ctx)
//
//	metrics, err := observability.NewMetrics(observability.Meter())
//	metrics.RecordLaunchEnd(ctx, "git", observability.OutcomeExited, time.Second)
//
// Without Init* calls the global OpenTelemetry providers are no-ops, so the
// adapter in package process can always trace and record metrics.
package observability
