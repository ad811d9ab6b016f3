package notifier

import (
	"context"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const meterName = "github.com/roadsignal/roadsignal/internal/notifier"

// Metrics holds metrics for alert publish attempts.
type Metrics struct {
	publishDuration metric.Float64Histogram
	publishTotal    metric.Int64Counter
	droppedTotal    metric.Int64Counter
}

// NewMetrics creates metrics for monitoring alert delivery.
func NewMetrics() (*Metrics, error) {
	meter := otel.Meter(meterName)

	publishDuration, err := meter.Float64Histogram(
		"notifier.publish.duration",
		metric.WithDescription("Duration of alert publish attempts in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	publishTotal, err := meter.Int64Counter(
		"notifier.publish.total",
		metric.WithDescription("Total number of alert publish attempts"),
		metric.WithUnit("{publish}"),
	)
	if err != nil {
		return nil, err
	}

	droppedTotal, err := meter.Int64Counter(
		"notifier.dropped.total",
		metric.WithDescription("Number of alerts dropped before reaching the transport"),
		metric.WithUnit("{alert}"),
	)
	if err != nil {
		return nil, err
	}

	return &Metrics{
		publishDuration: publishDuration,
		publishTotal:    publishTotal,
		droppedTotal:    droppedTotal,
	}, nil
}

// RecordPublish records one attempt against the transport.
func (m *Metrics) RecordPublish(topic string, duration time.Duration, err error) {
	attrs := []attribute.KeyValue{
		attribute.String("topic", topic),
	}
	if err != nil {
		attrs = append(attrs, attribute.Bool("error", true))
	}

	// Use background context for metrics to avoid context cancellation issues
	ctx := context.TODO()
	m.publishDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
	m.publishTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
}

// RecordDropped records an alert that never reached the transport,
// labeled with the reason (disconnected, encode, breaker).
func (m *Metrics) RecordDropped(reason string) {
	m.droppedTotal.Add(context.TODO(), 1, metric.WithAttributes(
		attribute.String("reason", reason),
	))
}
