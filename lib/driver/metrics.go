package driver

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for driver operations.
type Metrics struct {
	ThreadRefreshDuration metric.Float64Histogram
	ReconcileMismatches   metric.Int64Counter
}

// DriverMetrics is the global metrics instance for the driver package.
// Set this via SetMetrics() during application initialization.
var DriverMetrics *Metrics

// SetMetrics sets the global metrics instance.
func SetMetrics(m *Metrics) {
	DriverMetrics = m
}

// NewMetrics creates driver metrics instruments.
// If meter is nil, returns nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}

	refreshDuration, err := meter.Float64Histogram(
		"chdriver_thread_refresh_duration_seconds",
		metric.WithDescription("Time to reconcile vCPU thread identity from the VMM"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	mismatches, err := meter.Int64Counter(
		"chdriver_reconcile_mismatches_total",
		metric.WithDescription("Thread refreshes that observed a vCPU count mismatch"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		ThreadRefreshDuration: refreshDuration,
		ReconcileMismatches:   mismatches,
	}, nil
}

func recordThreadRefresh(ctx context.Context, d time.Duration) {
	if DriverMetrics == nil {
		return
	}
	DriverMetrics.ThreadRefreshDuration.Record(ctx, d.Seconds())
}

func recordReconcileMismatch(ctx context.Context, domainName string) {
	if DriverMetrics == nil {
		return
	}
	DriverMetrics.ReconcileMismatches.Add(ctx, 1,
		metric.WithAttributes(attribute.String("domain", domainName)))
}
