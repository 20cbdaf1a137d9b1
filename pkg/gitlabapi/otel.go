package gitlabapi

import (
	"context"
	"strconv"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Instrumentation for the gateway. The otel API no-ops unless the embedding
// process installs an SDK, so a bare stdio deployment pays nothing.

const instrumentationName = "glmcp/server/pkg/gitlabapi"

var (
	instrOnce    sync.Once
	tracer       trace.Tracer
	callCounter  metric.Int64Counter
	callDuration metric.Float64Histogram
)

func instruments() {
	instrOnce.Do(func() {
		tracer = otel.Tracer(instrumentationName)
		meter := otel.Meter(instrumentationName)
		callCounter, _ = meter.Int64Counter("gitlab.api.calls",
			metric.WithDescription("Outbound GitLab API calls"))
		callDuration, _ = meter.Float64Histogram("gitlab.api.duration",
			metric.WithDescription("Outbound GitLab API call duration"),
			metric.WithUnit("ms"))
	})
}

func startCallSpan(ctx context.Context, method, path string) (context.Context, trace.Span) {
	instruments()
	return tracer.Start(ctx, "gitlab.api.call",
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			attribute.String("http.request.method", method),
			attribute.String("url.path", path),
		))
}

// recordCall records one finished gateway call. status 0 means the call
// failed before a status line arrived.
func recordCall(ctx context.Context, method string, status int, elapsed time.Duration) {
	instruments()
	attrs := metric.WithAttributes(
		attribute.String("http.request.method", method),
		attribute.String("status.class", statusClass(status)),
	)
	callCounter.Add(ctx, 1, attrs)
	callDuration.Record(ctx, float64(elapsed.Milliseconds()), attrs)
}

func statusClass(status int) string {
	if status == 0 {
		return "transport_error"
	}
	return strconv.Itoa(status/100) + "xx"
}
