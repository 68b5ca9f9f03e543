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

// Observability records conversation-level metrics through OpenTelemetry and
// exposes them on the default prometheus registry.
type Observability struct {
	meterProvider  *metric.MeterProvider
	meter          otelmetric.Meter
	messageCounter otelmetric.Int64Counter
	routeDuration  otelmetric.Float64Histogram
	jobCounter     otelmetric.Int64Counter
}

func New(serviceName string) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Printf("failed to create prometheus exporter: %v", err)
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	return newWithProvider(provider, serviceName)
}

func newWithProvider(provider *metric.MeterProvider, serviceName string) *Observability {
	meter := provider.Meter(serviceName)

	messageCounter, _ := meter.Int64Counter(
		"messages.routed",
		otelmetric.WithDescription("Number of inbound messages routed"),
	)

	routeDuration, _ := meter.Float64Histogram(
		"messages.route.duration",
		otelmetric.WithDescription("Time to produce a reply"),
		otelmetric.WithUnit("ms"),
	)

	jobCounter, _ := meter.Int64Counter(
		"jobs.processed",
		otelmetric.WithDescription("Number of workflow jobs processed"),
	)

	return &Observability{
		meterProvider:  provider,
		meter:          meter,
		messageCounter: messageCounter,
		routeDuration:  routeDuration,
		jobCounter:     jobCounter,
	}
}

// RecordMessageRouted counts one routed message and its latency.
func (o *Observability) RecordMessageRouted(ctx context.Context, handler string, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(attribute.String("handler", handler))
	if o.messageCounter != nil {
		o.messageCounter.Add(ctx, 1, attrs)
	}
	if o.routeDuration != nil {
		o.routeDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

// RecordJobProcessed counts one workflow job by task type and status.
func (o *Observability) RecordJobProcessed(ctx context.Context, taskType, status string) {
	if o == nil || o.jobCounter == nil {
		return
	}
	o.jobCounter.Add(ctx, 1, otelmetric.WithAttributes(
		attribute.String("task_type", taskType),
		attribute.String("status", status),
	))
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
