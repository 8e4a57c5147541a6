package observability

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

// tracerName and meterName identify scanledger's OTel instrumentation scope.
const (
	tracerName = "scanledger"
	meterName  = "scanledger"
)

// Config controls observability initialization.
//
// scanledger never pushes telemetry over the network (spec.md §1, §5
// privacy constraint): traces are recorded in-process only (no exporter
// is registered unless TraceWriter is set, in which case spans are written to
// TraceWriter as they end — useful for --debug-trace); metrics are exposed
// via a local pull-based Prometheus handler, never pushed anywhere.
type Config struct {
	Level       slog.Level
	Format      string // "json" or "text"
	RunID       string
	DebugTrace  bool
	TraceWriter io.Writer // when non-nil, completed spans are dumped here
}

// Providers holds the initialized observability surface. Shutdown must be
// called once the run completes, regardless of success or failure.
type Providers struct {
	Logger         *slog.Logger
	Tracer         trace.Tracer
	Meter          metric.Meter
	PrometheusHTTP http.Handler

	tracerProvider *sdktrace.TracerProvider
	meterProvider  *sdkmetric.MeterProvider
}

// Init builds a logger, tracer, and meter. No network sockets are opened.
func Init(cfg Config) (Providers, error) {
	logger := buildLogger(cfg)

	tp := sdktrace.NewTracerProvider(buildTraceOptions(cfg)...)
	otel.SetTracerProvider(tp)

	exporter, expErr := prometheus.New()
	if expErr != nil {
		return Providers{}, fmt.Errorf("init prometheus exporter: %w", expErr)
	}

	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(mp)

	return Providers{
		Logger:         logger,
		Tracer:         tp.Tracer(tracerName),
		Meter:          mp.Meter(meterName),
		PrometheusHTTP: promhttpHandler(),
		tracerProvider: tp,
		meterProvider:  mp,
	}, nil
}

// Shutdown flushes and releases tracer/meter resources. Never touches the network.
func (p Providers) Shutdown(ctx context.Context) error {
	if p.tracerProvider != nil {
		if err := p.tracerProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown tracer provider: %w", err)
		}
	}

	if p.meterProvider != nil {
		if err := p.meterProvider.Shutdown(ctx); err != nil {
			return fmt.Errorf("shutdown meter provider: %w", err)
		}
	}

	return nil
}

func buildLogger(cfg Config) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.Level}

	var inner slog.Handler
	if cfg.Format == "text" {
		inner = slog.NewTextHandler(stderrWriter(), opts)
	} else {
		inner = slog.NewJSONHandler(stderrWriter(), opts)
	}

	return slog.New(NewTracingHandler(inner, "scanledger", cfg.RunID))
}

func buildTraceOptions(cfg Config) []sdktrace.TracerProviderOption {
	opts := []sdktrace.TracerProviderOption{}

	if cfg.DebugTrace {
		opts = append(opts, sdktrace.WithSampler(sdktrace.AlwaysSample()))
	}

	if cfg.TraceWriter != nil {
		opts = append(opts, sdktrace.WithSyncer(newWriterSpanExporter(cfg.TraceWriter)))
	}

	return opts
}
