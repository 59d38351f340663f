package monitor

import (
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for VMM API operations.
type Metrics struct {
	APIDuration    metric.Float64Histogram
	APIErrorsTotal metric.Int64Counter
}

// MonitorMetrics is the global metrics instance for the monitor package.
// Set this via SetMetrics() during application initialization.
var MonitorMetrics *Metrics

// SetMetrics sets the global metrics instance.
func SetMetrics(m *Metrics) {
	MonitorMetrics = m
}

// NewMetrics creates monitor metrics instruments.
// If meter is nil, returns nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}

	apiDuration, err := meter.Float64Histogram(
		"chdriver_monitor_api_duration_seconds",
		metric.WithDescription("Cloud Hypervisor API call duration"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	apiErrorsTotal, err := meter.Int64Counter(
		"chdriver_monitor_api_errors_total",
		metric.WithDescription("Total number of Cloud Hypervisor API errors"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		APIDuration:    apiDuration,
		APIErrorsTotal: apiErrorsTotal,
	}, nil
}
