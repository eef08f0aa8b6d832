package obs

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/simone-trubian/baldr/gatekeeper"

// Options configures tracing and metrics.
type Options struct {
	ServiceName string
	Version     string
	// Exporter is "none" or "stdout".
	Exporter string
	// MetricReader is attached to the meter provider in addition to any
	// exporter reader.
	MetricReader sdkmetric.Reader
}

var (
	initOnce     sync.Once
	initErr      error
	initShutdown func(context.Context) error
)

// Init installs global tracer and meter providers. Only the first call has
// any effect.
func Init(ctx context.Context, opts Options) (func(context.Context) error, error) {
	initOnce.Do(func() {
		initShutdown, initErr = setup(opts)
	})
	if initErr != nil {
		return nil, initErr
	}
	return initShutdown, nil
}

func setup(opts Options) (func(context.Context) error, error) {
	if opts.ServiceName == "" {
		opts.ServiceName = "gatekeeper"
	}

	res, err := resource.Merge(resource.Default(), resource.NewSchemaless(
		attribute.String("service.name", opts.ServiceName),
		attribute.String("service.version", opts.Version),
	))
	if err != nil {
		return nil, fmt.Errorf("build resource: %w", err)
	}

	tpOpts := []sdktrace.TracerProviderOption{sdktrace.WithResource(res)}
	mpOpts := []sdkmetric.Option{sdkmetric.WithResource(res)}
	switch opts.Exporter {
	case "", "none":
	case "stdout":
		traceExp, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout trace exporter: %w", err)
		}
		metricExp, err := stdoutmetric.New(stdoutmetric.WithPrettyPrint())
		if err != nil {
			return nil, fmt.Errorf("stdout metric exporter: %w", err)
		}
		tpOpts = append(tpOpts, sdktrace.WithBatcher(traceExp))
		mpOpts = append(mpOpts, sdkmetric.WithReader(sdkmetric.NewPeriodicReader(metricExp)))
	default:
		return nil, fmt.Errorf("unknown exporter %q", opts.Exporter)
	}
	if opts.MetricReader != nil {
		mpOpts = append(mpOpts, sdkmetric.WithReader(opts.MetricReader))
	}

	tp := sdktrace.NewTracerProvider(tpOpts...)
	mp := sdkmetric.NewMeterProvider(mpOpts...)
	shutdown := func(ctx context.Context) error {
		return errors.Join(mp.Shutdown(ctx), tp.Shutdown(ctx))
	}
	if err := installMetrics(mp.Meter(instrumentationName)); err != nil {
		_ = shutdown(context.Background())
		return nil, fmt.Errorf("create instruments: %w", err)
	}
	otel.SetTracerProvider(tp)
	otel.SetMeterProvider(mp)
	return shutdown, nil
}

// Tracer returns the tracer for this service from the global provider.
func Tracer() trace.Tracer {
	return otel.Tracer(instrumentationName)
}

var (
	metricsMu          sync.RWMutex
	admissionCounter   metric.Int64Counter
	fragmentCounter    metric.Int64Counter
	skippedCounter     metric.Int64Counter
	upstreamErrCounter metric.Int64Counter
)

func installMetrics(m metric.Meter) error {
	admissions, err1 := m.Int64Counter("gatekeeper.admissions", metric.WithDescription("Prompts evaluated by the admission filter"))
	fragments, err2 := m.Int64Counter("gatekeeper.fragments", metric.WithDescription("Text fragments relayed to callers"))
	skipped, err3 := m.Int64Counter("gatekeeper.frames.skipped", metric.WithDescription("Upstream frames skipped as malformed"))
	upstreamErrs, err4 := m.Int64Counter("gatekeeper.upstream.errors", metric.WithDescription("Upstream failures by kind"))
	if err := errors.Join(err1, err2, err3, err4); err != nil {
		return err
	}

	metricsMu.Lock()
	defer metricsMu.Unlock()
	admissionCounter = admissions
	fragmentCounter = fragments
	skippedCounter = skipped
	upstreamErrCounter = upstreamErrs
	return nil
}

// RecordAdmission counts one admission decision.
func RecordAdmission(ctx context.Context, ruleset string, admitted bool, stage string) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if admissionCounter == nil {
		return
	}
	admissionCounter.Add(ctx, 1, metric.WithAttributes(
		attribute.String("ruleset", ruleset),
		attribute.Bool("admitted", admitted),
		attribute.String("stage", stage),
	))
}

// RecordRelay counts the fragments written to one caller.
func RecordRelay(ctx context.Context, fragments int) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if fragmentCounter != nil {
		fragmentCounter.Add(ctx, int64(fragments))
	}
}

// RecordSkippedFrames counts upstream frames dropped as malformed.
func RecordSkippedFrames(ctx context.Context, n int) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if skippedCounter != nil && n > 0 {
		skippedCounter.Add(ctx, int64(n))
	}
}

// RecordUpstreamError counts an upstream failure of the given kind
// ("connect", "timeout", "status", "stream").
func RecordUpstreamError(ctx context.Context, kind string) {
	metricsMu.RLock()
	defer metricsMu.RUnlock()
	if upstreamErrCounter == nil {
		return
	}
	upstreamErrCounter.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}
