package observability

import (
	"context"
	"log"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"
)

// Observability exposes pipeline counters through the otel metric SDK with
// a prometheus exporter; promhttp in cmd serves the scrape endpoint.
type Observability struct {
	meterProvider *metric.MeterProvider
	meter         otelmetric.Meter
	requests      otelmetric.Int64Counter
	stageDuration otelmetric.Float64Histogram
	degraded      otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("Failed to create Prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	requests, _ := meter.Int64Counter(
		"assistant.requests",
		otelmetric.WithDescription("Assistant requests by intent and branch"),
	)

	stageDuration, _ := meter.Float64Histogram(
		"assistant.stage.duration",
		otelmetric.WithDescription("Pipeline stage duration"),
		otelmetric.WithUnit("ms"),
	)

	degraded, _ := meter.Int64Counter(
		"assistant.degraded",
		otelmetric.WithDescription("Collaborator calls that fell back to a local default"),
	)

	return &Observability{
		meterProvider: provider,
		meter:         meter,
		requests:      requests,
		stageDuration: stageDuration,
		degraded:      degraded,
	}
}

// RecordRequest counts one routed request.
func (o *Observability) RecordRequest(ctx context.Context, intent, branch string) {
	if o.requests != nil {
		o.requests.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("intent", intent),
			attribute.String("branch", branch),
		))
	}
}

// RecordStageDuration records how long one pipeline stage took.
func (o *Observability) RecordStageDuration(ctx context.Context, stage string, d time.Duration) {
	if o.stageDuration != nil {
		o.stageDuration.Record(ctx, float64(d.Milliseconds()), otelmetric.WithAttributes(
			attribute.String("stage", stage),
		))
	}
}

// RecordDegraded counts a collaborator fallback.
func (o *Observability) RecordDegraded(ctx context.Context, collaborator string) {
	if o.degraded != nil {
		o.degraded.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("collaborator", collaborator),
		))
	}
}

func (o *Observability) Shutdown() {
	if o.meterProvider != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		o.meterProvider.Shutdown(ctx)
	}
}
