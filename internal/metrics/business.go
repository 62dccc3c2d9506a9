package metrics

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Domains label which layer an operation belongs to.
const (
	DomainStorage = "storage"
	DomainCrypto  = "crypto"
	DomainHTTP    = "http"
)

// Status labels recorded with every operation.
const (
	StatusSuccess = "success"
	StatusError   = "error"
)

// BusinessMetrics records operation counts, durations and retries per domain.
type BusinessMetrics interface {
	// RecordOperation counts one finished operation, e.g. ("storage", "storage_get", "success").
	RecordOperation(ctx context.Context, domain, operation, status string)

	// RecordDuration observes how long an operation took.
	RecordDuration(ctx context.Context, domain, operation string, duration time.Duration, status string)

	// RecordRetry counts one retried attempt.
	RecordRetry(ctx context.Context, domain, operation string)
}

// StatusOf returns StatusError for a non-nil err and StatusSuccess otherwise.
func StatusOf(err error) string {
	if err != nil {
		return StatusError
	}
	return StatusSuccess
}

// Observe records both the count and the duration of an operation that began at
// start and finished with err.
func Observe(ctx context.Context, m BusinessMetrics, domain, operation string, start time.Time, err error) {
	status := StatusOf(err)
	m.RecordOperation(ctx, domain, operation, status)
	m.RecordDuration(ctx, domain, operation, time.Since(start), status)
}

type otelBusinessMetrics struct {
	operations metric.Int64Counter
	durations  metric.Float64Histogram
	retries    metric.Int64Counter
}

// NewBusinessMetrics registers the operation instruments on meterProvider. Metric
// names carry the namespace prefix, e.g. ribbon_operations_total.
func NewBusinessMetrics(meterProvider metric.MeterProvider, namespace string) (BusinessMetrics, error) {
	meter := meterProvider.Meter(namespace)
	m := &otelBusinessMetrics{}

	var err error
	if m.operations, err = meter.Int64Counter(
		namespace+"_operations_total",
		metric.WithDescription("Finished storage, crypto and http operations"),
		metric.WithUnit("{operation}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create operations counter: %w", err)
	}

	if m.durations, err = meter.Float64Histogram(
		namespace+"_operation_duration_seconds",
		metric.WithDescription("Operation latency"),
		metric.WithUnit("s"),
	); err != nil {
		return nil, fmt.Errorf("failed to create duration histogram: %w", err)
	}

	if m.retries, err = meter.Int64Counter(
		namespace+"_retries_total",
		metric.WithDescription("Retried attempts after a transient failure"),
		metric.WithUnit("{retry}"),
	); err != nil {
		return nil, fmt.Errorf("failed to create retries counter: %w", err)
	}

	return m, nil
}

func operationAttrs(domain, operation string, extra ...attribute.KeyValue) metric.MeasurementOption {
	attrs := append([]attribute.KeyValue{
		attribute.String("domain", domain),
		attribute.String("operation", operation),
	}, extra...)
	return metric.WithAttributes(attrs...)
}

func (m *otelBusinessMetrics) RecordOperation(ctx context.Context, domain, operation, status string) {
	m.operations.Add(ctx, 1, operationAttrs(domain, operation, attribute.String("status", status)))
}

func (m *otelBusinessMetrics) RecordDuration(
	ctx context.Context,
	domain, operation string,
	duration time.Duration,
	status string,
) {
	m.durations.Record(ctx, duration.Seconds(), operationAttrs(domain, operation, attribute.String("status", status)))
}

func (m *otelBusinessMetrics) RecordRetry(ctx context.Context, domain, operation string) {
	m.retries.Add(ctx, 1, operationAttrs(domain, operation))
}

// NoOpBusinessMetrics discards everything. Used when metrics are disabled.
type NoOpBusinessMetrics struct{}

// NewNoOpBusinessMetrics creates a no-op BusinessMetrics implementation.
func NewNoOpBusinessMetrics() BusinessMetrics {
	return NoOpBusinessMetrics{}
}

func (NoOpBusinessMetrics) RecordOperation(context.Context, string, string, string) {}

func (NoOpBusinessMetrics) RecordDuration(context.Context, string, string, time.Duration, string) {}

func (NoOpBusinessMetrics) RecordRetry(context.Context, string, string) {}
