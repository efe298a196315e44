package metrics

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// BusinessMetrics records vault operation metrics: operation counts,
// durations and session cache lookups.
type BusinessMetrics interface {
	// RecordOperation records a vault operation with its status.
	// Operation examples: "login", "fetch", "logout", "status"
	// Status examples: "success", "error"
	RecordOperation(ctx context.Context, operation, status string)

	// RecordDuration records the duration of a vault operation with its
	// status. Duration is recorded in seconds as a histogram.
	RecordDuration(ctx context.Context, operation string, duration time.Duration, status string)

	// RecordCacheLookup records whether a fetch was served by the cached
	// key or required a password-based derivation.
	RecordCacheLookup(ctx context.Context, hit bool)
}

// businessMetrics implements BusinessMetrics using OpenTelemetry metrics.
type businessMetrics struct {
	operationCounter   metric.Int64Counter
	durationHisto      metric.Float64Histogram
	cacheLookupCounter metric.Int64Counter
}

// NewBusinessMetrics creates a BusinessMetrics implementation using the
// provided meter provider. The namespace prefixes all metric names.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)

	operationCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_operations_total", namespace),
		metric.WithDescription("Total number of vault operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create operation counter: %w", err)
	}

	durationHisto, err := meter.Float64Histogram(
		fmt.Sprintf("%s_operation_duration_seconds", namespace),
		metric.WithDescription("Duration of vault operations in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	cacheLookupCounter, err := meter.Int64Counter(
		fmt.Sprintf("%s_session_cache_lookups_total", namespace),
		metric.WithDescription("Total number of session cache lookups on fetch"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create cache lookup counter: %w", err)
	}

	return &businessMetrics{
		operationCounter:   operationCounter,
		durationHisto:      durationHisto,
		cacheLookupCounter: cacheLookupCounter,
	}, nil
}

// RecordOperation increments the operation counter with operation and status labels.
func (b *businessMetrics) RecordOperation(ctx context.Context, operation, status string) {
	b.operationCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordDuration records the operation duration in seconds with operation and status labels.
func (b *businessMetrics) RecordDuration(
	ctx context.Context,
	operation string,
	duration time.Duration,
	status string,
) {
	b.durationHisto.Record(ctx, duration.Seconds(),
		metric.WithAttributes(
			attribute.String("operation", operation),
			attribute.String("status", status),
		),
	)
}

// RecordCacheLookup increments the cache lookup counter with a hit label.
func (b *businessMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	b.cacheLookupCounter.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("hit", strconv.FormatBool(hit)),
		),
	)
}

// NoOpBusinessMetrics is a no-op implementation for when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return &NoOpBusinessMetrics{}
}

// RecordOperation does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordOperation(ctx context.Context, operation, status string) {
	// No-op
}

// RecordDuration does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordDuration(
	ctx context.Context,
	operation string,
	duration time.Duration,
	status string,
) {
	// No-op
}

// RecordCacheLookup does nothing when metrics are disabled.
func (n *NoOpBusinessMetrics) RecordCacheLookup(ctx context.Context, hit bool) {
	// No-op
}
