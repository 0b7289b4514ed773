// Package observability wires OpenTelemetry metrics with a Prometheus exporter.
package observability

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

const meterName = "studio"

// InitMetrics installs a global MeterProvider backed by a Prometheus exporter.
// It returns the /metrics handler and a shutdown function.
func InitMetrics() (http.Handler, func(context.Context) error, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create prometheus exporter: %w", err)
	}
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)
	return promhttp.Handler(), provider.Shutdown, nil
}

// Metrics holds the generation lifecycle instruments. A nil *Metrics records
// nothing.
type Metrics struct {
	submitted         metric.Int64Counter
	completed         metric.Int64Counter
	variationFailures metric.Int64Counter
	duration          metric.Float64Histogram
	reaped            metric.Int64Counter
}

// NewMetrics creates the instruments on the global MeterProvider.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)
	var (
		m   Metrics
		err error
	)
	if m.submitted, err = meter.Int64Counter("studio_generations_submitted_total",
		metric.WithDescription("Generations accepted by the submitter")); err != nil {
		return nil, err
	}
	if m.completed, err = meter.Int64Counter("studio_generations_completed_total",
		metric.WithDescription("Generations that reached a terminal status")); err != nil {
		return nil, err
	}
	if m.variationFailures, err = meter.Int64Counter("studio_variation_failures_total",
		metric.WithDescription("Image variations that produced no stored result")); err != nil {
		return nil, err
	}
	if m.duration, err = meter.Float64Histogram("studio_generation_duration_seconds",
		metric.WithDescription("Time from claim to terminal status"),
		metric.WithUnit("s")); err != nil {
		return nil, err
	}
	if m.reaped, err = meter.Int64Counter("studio_generations_reaped_total",
		metric.WithDescription("Stale generations failed by the reaper")); err != nil {
		return nil, err
	}
	return &m, nil
}

func (m *Metrics) Submitted(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.submitted.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) Completed(ctx context.Context, kind, status string, elapsed time.Duration) {
	if m == nil {
		return
	}
	attrs := metric.WithAttributes(attribute.String("kind", kind), attribute.String("status", status))
	m.completed.Add(ctx, 1, attrs)
	m.duration.Record(ctx, elapsed.Seconds(), attrs)
}

func (m *Metrics) VariationFailed(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.variationFailures.Add(ctx, 1, metric.WithAttributes(attribute.String("kind", kind)))
}

func (m *Metrics) Reaped(ctx context.Context, n int) {
	if m == nil || n == 0 {
		return
	}
	m.reaped.Add(ctx, int64(n))
}
