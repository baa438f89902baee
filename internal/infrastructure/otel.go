package infrastructure

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"

	"bojfx/internal/config"
)

const (
	ServiceName         = config.AppName
	ServiceVersion      = config.AppVersion
	InstrumentationName = "bojfx"
)

// OTelProviders holds the OpenTelemetry providers
type OTelProviders struct {
	TracerProvider *sdktrace.TracerProvider
	MeterProvider  *sdkmetric.MeterProvider
	Registry       *prometheus.Registry
	Logger         *slog.Logger

	metricsFile string
}

// InitializeOTel installs global tracer and meter providers according to
// cfg. Spans are exported as JSON to traceOut; metrics are collected in a
// private Prometheus registry and written to cfg.MetricsFile on Shutdown.
func InitializeOTel(cfg config.TelemetryConfig, traceOut io.Writer, logger *slog.Logger) (*OTelProviders, error) {
	if logger == nil {
		logger = GetLogger()
	}
	ctx := context.Background()

	res, err := createResource()
	if err != nil {
		return nil, fmt.Errorf("failed to create resource: %w", err)
	}

	providers := &OTelProviders{
		Logger:      logger,
		metricsFile: cfg.MetricsFile,
	}

	if cfg.EnableTracing {
		if traceOut == nil {
			traceOut = os.Stderr
		}
		exporter, err := stdouttrace.New(stdouttrace.WithWriter(traceOut))
		if err != nil {
			return nil, fmt.Errorf("failed to create trace exporter: %w", err)
		}
		tp := sdktrace.NewTracerProvider(
			sdktrace.WithBatcher(exporter),
			sdktrace.WithResource(res),
		)
		providers.TracerProvider = tp
		otel.SetTracerProvider(tp)
	}

	if cfg.EnableMetrics {
		reg := prometheus.NewRegistry()
		exporter, err := otelprom.New(otelprom.WithRegisterer(reg))
		if err != nil {
			return nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
		}
		mp := sdkmetric.NewMeterProvider(
			sdkmetric.WithResource(res),
			sdkmetric.WithReader(exporter),
		)
		providers.Registry = reg
		providers.MeterProvider = mp
		otel.SetMeterProvider(mp)
	}

	logger.InfoContext(ctx, "telemetry initialized",
		slog.Bool("tracing_enabled", cfg.EnableTracing),
		slog.Bool("metrics_enabled", cfg.EnableMetrics),
		slog.String("metrics_file", cfg.MetricsFile))

	return providers, nil
}

func createResource() (*resource.Resource, error) {
	hostname, _ := os.Hostname()
	return resource.NewSchemaless(
		attribute.String("service.name", ServiceName),
		attribute.String("service.version", ServiceVersion),
		attribute.String("service.instance.id", fmt.Sprintf("%s-%d", hostname, time.Now().Unix())),
	), nil
}

// WriteMetricsFile gathers the registry into a Prometheus text file.
func (p *OTelProviders) WriteMetricsFile(path string) error {
	if p.Registry == nil {
		return errors.New("metrics are not enabled")
	}
	return prometheus.WriteToTextfile(path, p.Registry)
}

// Shutdown flushes spans, writes the metrics file when configured and shuts
// down both providers.
func (p *OTelProviders) Shutdown(ctx context.Context) error {
	var errs []error

	if p.TracerProvider != nil {
		if err := p.TracerProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("tracer provider shutdown: %w", err))
		}
	}

	if p.Registry != nil && p.metricsFile != "" {
		if err := p.WriteMetricsFile(p.metricsFile); err != nil {
			errs = append(errs, fmt.Errorf("write metrics file: %w", err))
		}
	}

	if p.MeterProvider != nil {
		if err := p.MeterProvider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("meter provider shutdown: %w", err))
		}
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	p.Logger.DebugContext(ctx, "telemetry shutdown complete")
	return nil
}

// Tracer returns the package tracer from the global provider. It is a no-op
// until InitializeOTel enables tracing.
func Tracer() trace.Tracer {
	return otel.Tracer(InstrumentationName, trace.WithInstrumentationVersion(ServiceVersion))
}

// ExtractionMetrics holds the instruments recorded while extracting data
type ExtractionMetrics struct {
	NavigationSteps    metric.Int64Counter
	NavigationDuration metric.Float64Histogram
	Extractions        metric.Int64Counter
	ExtractionDuration metric.Float64Histogram
	Retries            metric.Int64Counter
	DownloadBytes      metric.Int64Counter
	RowsLoaded         metric.Int64Counter
	RowsDropped        metric.Int64Counter
}

var (
	metricsOnce   sync.Once
	globalMetrics *ExtractionMetrics
)

// Metrics returns the process-wide instruments. Instruments obtained before
// InitializeOTel forward to the provider once it is installed.
func Metrics() *ExtractionMetrics {
	metricsOnce.Do(func() {
		m, err := NewExtractionMetrics(otel.Meter(InstrumentationName))
		if err != nil {
			GetLogger().Warn("failed to create metrics", slog.String("error", err.Error()))
			return
		}
		globalMetrics = m
	})
	return globalMetrics
}

// NewExtractionMetrics creates the instruments on meter
func NewExtractionMetrics(meter metric.Meter) (*ExtractionMetrics, error) {
	var (
		m   ExtractionMetrics
		err error
	)

	if m.NavigationSteps, err = meter.Int64Counter(
		"navigation_steps_total",
		metric.WithDescription("Total number of portal navigation steps"),
	); err != nil {
		return nil, err
	}

	if m.NavigationDuration, err = meter.Float64Histogram(
		"navigation_step_duration_seconds",
		metric.WithDescription("Portal navigation step duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.Extractions, err = meter.Int64Counter(
		"extractions_total",
		metric.WithDescription("Total number of extraction runs"),
	); err != nil {
		return nil, err
	}

	if m.ExtractionDuration, err = meter.Float64Histogram(
		"extraction_duration_seconds",
		metric.WithDescription("End to end extraction duration in seconds"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	if m.Retries, err = meter.Int64Counter(
		"retry_attempts_total",
		metric.WithDescription("Total number of retried attempts"),
	); err != nil {
		return nil, err
	}

	if m.DownloadBytes, err = meter.Int64Counter(
		"download_bytes_total",
		metric.WithDescription("Total bytes downloaded from the portal"),
		metric.WithUnit("By"),
	); err != nil {
		return nil, err
	}

	if m.RowsLoaded, err = meter.Int64Counter(
		"rows_loaded_total",
		metric.WithDescription("Total number of data rows kept after reshaping"),
	); err != nil {
		return nil, err
	}

	if m.RowsDropped, err = meter.Int64Counter(
		"rows_dropped_total",
		metric.WithDescription("Total number of data rows dropped for missing values"),
	); err != nil {
		return nil, err
	}

	return &m, nil
}

// RecordNavigationStep records one state transition attempt
func (m *ExtractionMetrics) RecordNavigationStep(ctx context.Context, step string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("step", step),
		attribute.String("status", statusOf(err)),
	)
	m.NavigationSteps.Add(ctx, 1, attrs)
	m.NavigationDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordExtraction records one GetData call
func (m *ExtractionMetrics) RecordExtraction(ctx context.Context, currency string, duration time.Duration, err error) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("currency", currency),
		attribute.String("status", statusOf(err)),
	)
	m.Extractions.Add(ctx, 1, attrs)
	m.ExtractionDuration.Record(ctx, duration.Seconds(), attrs)
}

// RecordRetry records a retried attempt of operation
func (m *ExtractionMetrics) RecordRetry(ctx context.Context, operation string) {
	if m == nil {
		return
	}
	m.Retries.Add(ctx, 1, metric.WithAttributes(attribute.String("operation", operation)))
}

// RecordDownload records the size of a fetched body
func (m *ExtractionMetrics) RecordDownload(ctx context.Context, n int64) {
	if m == nil {
		return
	}
	m.DownloadBytes.Add(ctx, n)
}

// RecordRows records how many rows survived reshaping
func (m *ExtractionMetrics) RecordRows(ctx context.Context, kept, dropped int) {
	if m == nil {
		return
	}
	m.RowsLoaded.Add(ctx, int64(kept))
	m.RowsDropped.Add(ctx, int64(dropped))
}

func statusOf(err error) string {
	if err != nil {
		return "failure"
	}
	return "success"
}

// RecordError records an error on the current span
func RecordError(ctx context.Context, err error, options ...trace.EventOption) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() || err == nil {
		return
	}

	span.RecordError(err, options...)
	span.SetStatus(codes.Error, err.Error())
}

// SetSpanAttributes sets attributes on the current span
func SetSpanAttributes(ctx context.Context, attributes map[string]interface{}) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}

	for k, v := range attributes {
		switch val := v.(type) {
		case string:
			span.SetAttributes(attribute.String(k, val))
		case int:
			span.SetAttributes(attribute.Int(k, val))
		case int64:
			span.SetAttributes(attribute.Int64(k, val))
		case float64:
			span.SetAttributes(attribute.Float64(k, val))
		case bool:
			span.SetAttributes(attribute.Bool(k, val))
		default:
			span.SetAttributes(attribute.String(k, fmt.Sprintf("%v", val)))
		}
	}
}
