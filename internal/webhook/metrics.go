package webhook

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	notificationsTotal metric.Int64Counter
	handleDuration     metric.Float64Histogram
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.notificationsTotal, err = meter.Int64Counter(
		"webhook_notifications_total",
		metric.WithDescription("Total webhook notifications by terminal outcome"),
		metric.WithUnit("{notification}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create webhook_notifications_total counter: %w", err)
	}

	m.handleDuration, err = meter.Float64Histogram(
		"webhook_handle_duration_seconds",
		metric.WithDescription("Duration of webhook pipeline handling"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create webhook_handle_duration histogram: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordNotification(ctx context.Context, outcome, reason string, durationSeconds float64) {
	m.notificationsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("outcome", outcome),
		attribute.String("reason", reason),
	))
	m.handleDuration.Record(ctx, durationSeconds, metric.WithAttributes(
		attribute.String("outcome", outcome),
	))
}
