package infrastructure

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"runtime"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	metricnoop "go.opentelemetry.io/otel/metric/noop"
	"go.opentelemetry.io/otel/propagation"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.28.0"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"

	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/config"
	"github.com/uanikitin/SurgIl-Dashboard-sub000/internal/flowrate"
)

// InstrumentationName identifies the tracer and meter used by flowcalc
const InstrumentationName = "flowcalc"

// TelemetryProviders holds the OpenTelemetry providers. Disabled signals
// are backed by no-op implementations so callers never nil-check.
type TelemetryProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Tracer         trace.Tracer
	Meter          metric.Meter
	// Registry is the Prometheus registry the metric exporter writes to.
	Registry       *prom.Registry
	MetricsHandler http.Handler
	Logger         *slog.Logger
}

// InitializeTelemetry sets up tracing and metrics from cfg. Spans are written
// as JSON to traceOut; metrics are exposed through MetricsHandler.
func InitializeTelemetry(cfg config.TelemetryConfig, traceOut io.Writer, logger *slog.Logger) (*TelemetryProviders, error) {
	if logger == nil {
		logger = slog.Default()
	}
	ctx := context.Background()

	res := resource.NewWithAttributes(
		semconv.SchemaURL,
		semconv.ServiceName(cfg.ServiceName),
		semconv.ServiceVersion(config.AppVersion),
	)

	providers := &TelemetryProviders{
		Tracer:         tracenoop.NewTracerProvider().Tracer(InstrumentationName),
		Meter:          metricnoop.NewMeterProvider().Meter(InstrumentationName),
		MetricsHandler: http.NotFoundHandler(),
		Logger:         logger,
	}

	if cfg.TracingEnabled {
		if err := initializeTracing(res, traceOut, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize tracing: %w", err)
		}
	}
	if cfg.MetricsEnabled {
		if err := initializeMetrics(res, providers); err != nil {
			return nil, fmt.Errorf("failed to initialize metrics: %w", err)
		}
	}

	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	logger.InfoContext(ctx, "telemetry initialized",
		slog.String("service", cfg.ServiceName),
		slog.Bool("tracing_enabled", cfg.TracingEnabled),
		slog.Bool("metrics_enabled", cfg.MetricsEnabled))

	return providers, nil
}

func initializeTracing(res *resource.Resource, out io.Writer, providers *TelemetryProviders) error {
	opts := []stdouttrace.Option{}
	if out != nil {
		opts = append(opts, stdouttrace.WithWriter(out))
	}
	exporter, err := stdouttrace.New(opts...)
	if err != nil {
		return fmt.Errorf("failed to create trace exporter: %w", err)
	}

	tp := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(res),
		sdktrace.WithSampler(sdktrace.AlwaysSample()),
	)
	providers.TracerProvider = tp
	providers.Tracer = tp.Tracer(InstrumentationName, trace.WithInstrumentationVersion(config.AppVersion))
	otel.SetTracerProvider(tp)
	return nil
}

func initializeMetrics(res *resource.Resource, providers *TelemetryProviders) error {
	registry := prom.NewRegistry()
	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return fmt.Errorf("failed to create prometheus exporter: %w", err)
	}

	mp := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)
	providers.Registry = registry
	providers.MetricsHandler = promhttp.HandlerFor(registry, promhttp.HandlerOpts{})
	providers.MeterProvider = mp
	providers.Meter = mp.Meter(InstrumentationName, metric.WithInstrumentationVersion(config.AppVersion))
	otel.SetMeterProvider(mp)

	return registerRuntimeMetrics(providers.Meter)
}

// registerRuntimeMetrics exposes goroutine count and heap usage
func registerRuntimeMetrics(meter metric.Meter) error {
	goroutines, err := meter.Int64ObservableGauge(
		"flowcalc_goroutines",
		metric.WithDescription("Number of active goroutines"),
	)
	if err != nil {
		return err
	}
	heap, err := meter.Int64ObservableGauge(
		"flowcalc_heap_alloc",
		metric.WithDescription("Bytes of allocated heap objects"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return err
	}

	_, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		var ms runtime.MemStats
		runtime.ReadMemStats(&ms)
		o.ObserveInt64(goroutines, int64(runtime.NumGoroutine()))
		o.ObserveInt64(heap, int64(ms.HeapAlloc))
		return nil
	}, goroutines, heap)
	return err
}

// Shutdown flushes and stops the SDK providers
func (p *TelemetryProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}
	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}
	if len(errs) > 0 {
		return stderrors.Join(errs...)
	}

	p.Logger.InfoContext(ctx, "telemetry shutdown complete")
	return nil
}

// FlowMetrics holds the scenario-level instruments
type FlowMetrics struct {
	RunsTotal       metric.Int64Counter
	RunDuration     metric.Float64Histogram
	ActiveRuns      metric.Int64UpDownCounter
	Samples         metric.Int64Counter
	PurgeCycles     metric.Int64Counter
	DowntimePeriods metric.Int64Counter
	CorrectedPoints metric.Int64Counter
}

// NewFlowMetrics creates the scenario instruments on meter
func NewFlowMetrics(meter metric.Meter) (*FlowMetrics, error) {
	runsTotal, err := meter.Int64Counter(
		"flowcalc_runs",
		metric.WithDescription("Scenario runs by outcome"),
	)
	if err != nil {
		return nil, err
	}

	runDuration, err := meter.Float64Histogram(
		"flowcalc_run_duration",
		metric.WithDescription("Scenario run duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	activeRuns, err := meter.Int64UpDownCounter(
		"flowcalc_active_runs",
		metric.WithDescription("Scenario runs in progress"),
	)
	if err != nil {
		return nil, err
	}

	samples, err := meter.Int64Counter(
		"flowcalc_samples",
		metric.WithDescription("Pressure samples processed"),
	)
	if err != nil {
		return nil, err
	}

	purgeCycles, err := meter.Int64Counter(
		"flowcalc_purge_cycles",
		metric.WithDescription("Purge cycles detected by source"),
	)
	if err != nil {
		return nil, err
	}

	downtimePeriods, err := meter.Int64Counter(
		"flowcalc_downtime_periods",
		metric.WithDescription("Downtime periods detected"),
	)
	if err != nil {
		return nil, err
	}

	correctedPoints, err := meter.Int64Counter(
		"flowcalc_corrected_points",
		metric.WithDescription("Samples touched by manual corrections"),
	)
	if err != nil {
		return nil, err
	}

	return &FlowMetrics{
		RunsTotal:       runsTotal,
		RunDuration:     runDuration,
		ActiveRuns:      activeRuns,
		Samples:         samples,
		PurgeCycles:     purgeCycles,
		DowntimePeriods: downtimePeriods,
		CorrectedPoints: correctedPoints,
	}, nil
}

// RecordRun records the outcome and duration of one scenario run
func (m *FlowMetrics) RecordRun(ctx context.Context, wellID string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	status := "success"
	if err != nil {
		status = "failure"
	}
	attrs := metric.WithAttributes(
		attribute.String("well.id", wellID),
		attribute.String("status", status),
	)
	m.RunsTotal.Add(ctx, 1, attrs)
	m.RunDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordResult records the detection counts of a finished run
func (m *FlowMetrics) RecordResult(ctx context.Context, res *flowrate.Result) {
	if m == nil || res == nil {
		return
	}
	well := attribute.String("well.id", res.WellID)
	m.Samples.Add(ctx, int64(len(res.Samples)), metric.WithAttributes(well))
	m.DowntimePeriods.Add(ctx, int64(len(res.Downtime)), metric.WithAttributes(well))
	m.CorrectedPoints.Add(ctx, int64(res.CorrectedPoints), metric.WithAttributes(well))

	bySource := map[flowrate.CycleSource]int64{}
	for _, c := range res.Cycles {
		bySource[c.Source]++
	}
	for _, src := range []flowrate.CycleSource{flowrate.SourceMarker, flowrate.SourceAlgorithm} {
		if n := bySource[src]; n > 0 {
			m.PurgeCycles.Add(ctx, n, metric.WithAttributes(well, attribute.String("source", string(src))))
		}
	}
}

// RecordError records err on the span carried by ctx
func RecordError(ctx context.Context, err error) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}
