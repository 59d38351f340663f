package domain

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics holds the metrics instruments for definition validation.
type Metrics struct {
	ValidationFailuresTotal metric.Int64Counter
}

// ValidationMetrics is the global metrics instance for the domain package.
// Set this via SetMetrics() during application initialization.
var ValidationMetrics *Metrics

// SetMetrics sets the global metrics instance.
func SetMetrics(m *Metrics) {
	ValidationMetrics = m
}

// NewMetrics creates validation metrics instruments.
// If meter is nil, returns nil (metrics disabled).
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		return nil, nil
	}

	failures, err := meter.Int64Counter(
		"chdriver_validation_failures_total",
		metric.WithDescription("Total number of domain definition validation failures"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{ValidationFailuresTotal: failures}, nil
}

// recordValidationFailure counts a pipeline failure, labeled by stage and
// error class.
func recordValidationFailure(stage string, err error) {
	if ValidationMetrics == nil {
		return
	}
	ValidationMetrics.ValidationFailuresTotal.Add(context.Background(), 1,
		metric.WithAttributes(
			attribute.String("stage", stage),
			attribute.String("class", errorClass(err)),
		))
}

func errorClass(err error) string {
	switch {
	case errors.Is(err, ErrUnsupportedDeviceKind):
		return "unsupported_device"
	case errors.Is(err, ErrUnsupportedTransport):
		return "unsupported_transport"
	case errors.Is(err, ErrUnsupportedHostCapability):
		return "unsupported_host_capability"
	case errors.Is(err, ErrInsufficientHostResources):
		return "insufficient_host_resources"
	case errors.Is(err, ErrInternalInconsistency):
		return "internal"
	case errors.Is(err, ErrConfigUnsupported):
		return "config_unsupported"
	default:
		return "other"
	}
}
