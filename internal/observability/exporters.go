package observability

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"os"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
)

func stderrWriter() io.Writer { return os.Stderr }

// promhttpHandler returns the standard Prometheus /metrics handler. It is
// exposed as Providers.PrometheusHTTP for whichever HTTP listener the caller
// wires up; no scanledger command starts one, and scanledger never dials
// out to push metrics anywhere.
func promhttpHandler() http.Handler { return promhttp.Handler() }

// writerSpanExporter dumps ended spans as JSON lines to an io.Writer, used
// only for --debug-trace local inspection. It never touches the network.
type writerSpanExporter struct {
	w io.Writer
}

func newWriterSpanExporter(w io.Writer) sdktrace.SpanExporter {
	return &writerSpanExporter{w: w}
}

func (e *writerSpanExporter) ExportSpans(ctx context.Context, spans []sdktrace.ReadOnlySpan) error {
	enc := json.NewEncoder(e.w)

	for _, s := range spans {
		rec := map[string]any{
			"name":       s.Name(),
			"trace_id":   s.SpanContext().TraceID().String(),
			"span_id":    s.SpanContext().SpanID().String(),
			"start":      s.StartTime(),
			"end":        s.EndTime(),
			"attributes": s.Attributes(),
		}

		if err := enc.Encode(rec); err != nil {
			return err
		}
	}

	return nil
}

func (e *writerSpanExporter) Shutdown(ctx context.Context) error { return nil }
