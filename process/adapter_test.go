package process

import (
	"bytes"
	"context"
	stderrors "errors"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"go.opentelemetry.io/otel/codes"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/kbukum/procspec/errors"
	"github.com/kbukum/procspec/logger"
	"github.com/kbukum/procspec/observability"
	"github.com/kbukum/procspec/resilience"
)

type adapterHarness struct {
	adapter *Adapter
	spans   *tracetest.SpanRecorder
	reader  *sdkmetric.ManualReader
	logs    *bytes.Buffer
}

func newHarness(t *testing.T, cfg Config, opts ...AdapterOption) *adapterHarness {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("requires POSIX utilities")
	}

	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() {
		_ = tp.Shutdown(context.Background())
		_ = mp.Shutdown(context.Background())
	})

	metrics, err := observability.NewMetrics(mp.Meter("test"))
	if err != nil {
		t.Fatalf("NewMetrics: %v", err)
	}

	var logs bytes.Buffer
	log := logger.NewWithWriter(&logger.Config{Level: "debug", Format: "json"}, "test", &logs)

	opts = append([]AdapterOption{
		WithLogger(log),
		WithTracer(tp.Tracer("test")),
		WithMetrics(metrics),
	}, opts...)

	return &adapterHarness{
		adapter: NewAdapter(cfg, opts...),
		spans:   spans,
		reader:  reader,
		logs:    &logs,
	}
}

func (h *adapterHarness) onlySpan(t *testing.T) sdktrace.ReadOnlySpan {
	t.Helper()
	ended := h.spans.Ended()
	if len(ended) != 1 {
		t.Fatalf("expected 1 span, got %d", len(ended))
	}
	return ended[0]
}

func (h *adapterHarness) outcomes(t *testing.T) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	if err := h.reader.Collect(context.Background(), &rm); err != nil {
		t.Fatalf("Collect: %v", err)
	}
	counts := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			sum, ok := m.Data.(metricdata.Sum[int64])
			if !ok {
				continue
			}
			for _, dp := range sum.DataPoints {
				if m.Name == "process.active" {
					counts["active"] += dp.Value
					continue
				}
				if m.Name != "process.launch.total" {
					continue
				}
				if v, ok := dp.Attributes.Value("outcome"); ok {
					counts[v.AsString()] += dp.Value
				}
			}
		}
	}
	return counts
}

func spanAttr(span sdktrace.ReadOnlySpan, key string) (string, bool) {
	for _, kv := range span.Attributes() {
		if string(kv.Key) == key {
			return kv.Value.Emit(), true
		}
	}
	return "", false
}

func TestAdapterOutput(t *testing.T) {
	h := newHarness(t, Config{Name: "test"})

	out, err := h.adapter.Output(context.Background(), New("echo").WithArg("hello"))
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if string(out.Stdout) != "hello\n" {
		t.Errorf("expected hello, got %q", out.Stdout)
	}

	span := h.onlySpan(t)
	if span.Name() != observability.SpanProcessOutput {
		t.Errorf("unexpected span name %q", span.Name())
	}
	if v, _ := spanAttr(span, observability.AttrExitCode); v != "0" {
		t.Errorf("expected exit code attribute 0, got %q", v)
	}
	if v, _ := spanAttr(span, observability.AttrOutcome); v != observability.OutcomeExited {
		t.Errorf("expected outcome exited, got %q", v)
	}
	if _, ok := spanAttr(span, observability.AttrRunID); !ok {
		t.Error("expected a run id attribute")
	}

	counts := h.outcomes(t)
	if counts[observability.OutcomeExited] != 1 || counts["active"] != 0 {
		t.Errorf("unexpected metrics %v", counts)
	}

	logs := h.logs.String()
	if !strings.Contains(logs, "process exited") || !strings.Contains(logs, `"run_id"`) {
		t.Errorf("expected exit log with run id, got %s", logs)
	}
}

func TestAdapterStatusNonZero(t *testing.T) {
	h := newHarness(t, Config{})

	status, err := h.adapter.Status(context.Background(), New("false"))
	if err != nil {
		t.Fatalf("a non-zero exit must not be an error: %v", err)
	}
	if status.Code != 1 {
		t.Errorf("expected exit code 1, got %v", status)
	}
	if h.onlySpan(t).Name() != observability.SpanProcessStatus {
		t.Error("expected a status span")
	}
	if counts := h.outcomes(t); counts[observability.OutcomeFailed] != 1 {
		t.Errorf("expected a failed outcome, got %v", counts)
	}
	if !strings.Contains(h.logs.String(), "process exited with failure") {
		t.Errorf("expected a failure log, got %s", h.logs.String())
	}
}

func TestAdapterLaunchFailure(t *testing.T) {
	h := newHarness(t, Config{})

	_, err := h.adapter.Output(context.Background(), New("procspec-definitely-not-installed"))
	if !errors.HasCode(err, errors.ErrCodeLaunchFailed) {
		t.Fatalf("expected LAUNCH_FAILED, got %v", err)
	}
	if !stderrors.Is(err, exec.ErrNotFound) {
		t.Errorf("expected the OS error to be kept as the cause, got %v", err)
	}

	span := h.onlySpan(t)
	if span.Status().Code != codes.Error {
		t.Errorf("expected an error span, got %v", span.Status())
	}
	if counts := h.outcomes(t); counts[observability.OutcomeLaunchError] != 1 || counts["active"] != 0 {
		t.Errorf("unexpected metrics %v", counts)
	}
}

func TestAdapterRetriesTransientLaunchFailure(t *testing.T) {
	h := newHarness(t, Config{Retry: resilience.RetryConfig{
		MaxAttempts:    3,
		InitialBackoff: time.Millisecond,
		MaxBackoff:     2 * time.Millisecond,
	}})

	// Not a valid executable image: execve fails with ENOEXEC, which is not
	// a missing-program or permission error.
	bogus := filepath.Join(t.TempDir(), "bogus")
	if err := os.WriteFile(bogus, []byte{0x00, 0x01, 0x02, 0x03}, 0o755); err != nil {
		t.Fatal(err)
	}

	_, err := h.adapter.Status(context.Background(), New(bogus))
	if !errors.HasCode(err, errors.ErrCodeLaunchFailed) {
		t.Fatalf("expected LAUNCH_FAILED, got %v", err)
	}
	if n := strings.Count(h.logs.String(), "retrying"); n != 2 {
		t.Errorf("expected 2 retry logs, got %d", n)
	}
	if counts := h.outcomes(t); counts[observability.OutcomeLaunchError] != 1 {
		t.Errorf("expected one launch error for the whole run, got %v", counts)
	}
}

func TestAdapterDoesNotRetryMissingProgram(t *testing.T) {
	h := newHarness(t, Config{Retry: resilience.RetryConfig{
		MaxAttempts:    5,
		InitialBackoff: time.Millisecond,
	}})

	_, err := h.adapter.Output(context.Background(), New("procspec-definitely-not-installed"))
	if !stderrors.Is(err, exec.ErrNotFound) {
		t.Fatalf("expected exec.ErrNotFound, got %v", err)
	}
	if strings.Contains(h.logs.String(), "retrying") {
		t.Errorf("a missing program must not be retried: %s", h.logs.String())
	}
}

func TestAdapterCancel(t *testing.T) {
	// sleep exits on SIGTERM, so the call returns long before the kill.
	h := newHarness(t, Config{GracePeriod: 30 * time.Second})

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	start := time.Now()
	_, err := h.adapter.Status(ctx, New("sleep").WithArg("30"))
	if !errors.HasCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if !stderrors.Is(err, context.DeadlineExceeded) {
		t.Errorf("expected the context error as the cause, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("cancellation took %v", elapsed)
	}
	if counts := h.outcomes(t); counts[observability.OutcomeCanceled] != 1 {
		t.Errorf("expected a canceled outcome, got %v", counts)
	}
}

func TestAdapterTimeoutEscalatesToKill(t *testing.T) {
	h := newHarness(t, Config{Timeout: 100 * time.Millisecond, GracePeriod: 100 * time.Millisecond})

	// The shell ignores SIGTERM, so only the kill after the grace period ends
	// it. The orphaned sleep keeps the output pipes open.
	cmd := New("sh").WithArgs("-c", "trap '' TERM; sleep 30")
	start := time.Now()
	_, err := h.adapter.Output(context.Background(), cmd)
	if !errors.HasCode(err, errors.ErrCodeCanceled) {
		t.Fatalf("expected CANCELED, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 10*time.Second {
		t.Errorf("termination took %v", elapsed)
	}
}

func TestAdapterOutputBoundedByOrphanedPipes(t *testing.T) {
	h := newHarness(t, Config{GracePeriod: 200 * time.Millisecond})

	// The background sleep inherits stdout and outlives the shell.
	cmd := New("sh").WithArgs("-c", "sleep 5 & echo done")
	start := time.Now()
	out, err := h.adapter.Output(context.Background(), cmd)
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 4*time.Second {
		t.Errorf("expected the grace period to bound the wait, took %v", elapsed)
	}
	if !out.Status.Success() || string(out.Stdout) != "done\n" {
		t.Errorf("unexpected output %v %q", out.Status, out.Stdout)
	}
}

func TestAdapterStart(t *testing.T) {
	h := newHarness(t, Config{})

	child, err := h.adapter.Start(context.Background(), New("true"))
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	status, err := child.Wait()
	if err != nil || !status.Success() {
		t.Fatalf("Wait: %v %v", status, err)
	}
	if h.onlySpan(t).Name() != observability.SpanProcessStart {
		t.Error("expected a start span")
	}
	counts := h.outcomes(t)
	if counts[observability.OutcomeDetached] != 1 || counts["active"] != 0 {
		t.Errorf("unexpected metrics %v", counts)
	}
}

func TestAdapterStartFailureLeavesGaugeAlone(t *testing.T) {
	h := newHarness(t, Config{})

	_, err := h.adapter.Start(context.Background(), New("procspec-definitely-not-installed"))
	if !errors.HasCode(err, errors.ErrCodeLaunchFailed) {
		t.Fatalf("expected LAUNCH_FAILED, got %v", err)
	}
	if counts := h.outcomes(t); counts["active"] != 0 {
		t.Errorf("active gauge moved: %v", counts)
	}
}

func TestAdapterLaunchOptions(t *testing.T) {
	parent := func() []string { return []string{"ONLY=parent", "DROP=me"} }
	h := newHarness(t, Config{}, WithLaunchOptions(WithEnviron(parent)))

	out, err := h.adapter.Output(context.Background(), New("env").WithoutEnv("DROP"))
	if err != nil {
		t.Fatalf("Output: %v", err)
	}
	if string(out.Stdout) != "ONLY=parent\n" {
		t.Errorf("expected the substituted parent environment, got %q", out.Stdout)
	}
}

func TestNewAdapterDefaults(t *testing.T) {
	a := NewAdapter(Config{Name: "runner"})
	if a.Name() != "runner" {
		t.Errorf("unexpected name %q", a.Name())
	}
	if a.log == nil || a.tracer == nil {
		t.Error("expected default logger and tracer")
	}
	if a.metrics != nil {
		t.Error("expected metrics to be off by default")
	}
}
