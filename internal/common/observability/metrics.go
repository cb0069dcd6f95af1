// Package observability exposes OpenTelemetry instruments for trigger firings,
// exported through the Prometheus registry served on /metrics.
package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/sdk/metric"

	"merchant-triggers/internal/common/logger"
)

type Observability struct {
	meterProvider  *metric.MeterProvider
	firingCounter  otelmetric.Int64Counter
	firingDuration otelmetric.Float64Histogram
}

// New installs a meter provider backed by the Prometheus exporter. When the
// exporter cannot be created the returned value records nothing.
func New(serviceName string, log logger.Logger) *Observability {
	exporter, err := prometheus.New()
	if err != nil {
		log.Warn("failed to create prometheus exporter, firing metrics disabled", map[string]interface{}{
			"error": err.Error(),
		})
		return &Observability{}
	}

	provider := metric.NewMeterProvider(metric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	firingCounter, _ := meter.Int64Counter(
		"trigger.firings",
		otelmetric.WithDescription("Number of trigger firings processed"),
	)
	firingDuration, _ := meter.Float64Histogram(
		"trigger.firing.duration",
		otelmetric.WithDescription("Wall time of a complete trigger firing"),
		otelmetric.WithUnit("ms"),
	)

	return &Observability{
		meterProvider:  provider,
		firingCounter:  firingCounter,
		firingDuration: firingDuration,
	}
}

// NewNoop returns an Observability that records nothing.
func NewNoop() *Observability {
	return &Observability{}
}

// RecordFiring counts one firing and its duration, tagged by trigger key and attempt count.
func (o *Observability) RecordFiring(ctx context.Context, triggerKey string, attempted int, duration time.Duration) {
	if o == nil {
		return
	}
	attrs := otelmetric.WithAttributes(
		attribute.String("trigger_key", triggerKey),
		attribute.Bool("dispatched", attempted > 0),
	)
	if o.firingCounter != nil {
		o.firingCounter.Add(ctx, 1, attrs)
	}
	if o.firingDuration != nil {
		o.firingDuration.Record(ctx, float64(duration.Milliseconds()), attrs)
	}
}

func (o *Observability) Shutdown() {
	if o == nil || o.meterProvider == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = o.meterProvider.Shutdown(ctx)
}
