package metrics

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	ordersCreatedTotal       metric.Int64Counter
	orderCreationDuration    metric.Float64Histogram
	fulfillmentAppliesTotal  metric.Int64Counter
	fulfillmentApplyDuration metric.Float64Histogram
	versionRegressionsTotal  metric.Int64Counter
}

func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.ordersCreatedTotal, err = meter.Int64Counter(
		"orders_created_total",
		metric.WithDescription("Total number of orders created"),
		metric.WithUnit("{order}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create orders_created_total counter: %w", err)
	}

	m.orderCreationDuration, err = meter.Float64Histogram(
		"order_creation_duration_seconds",
		metric.WithDescription("Duration of order creation operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create order_creation_duration histogram: %w", err)
	}

	m.fulfillmentAppliesTotal, err = meter.Int64Counter(
		"fulfillment_applies_total",
		metric.WithDescription("Total number of fulfillment state updates applied"),
		metric.WithUnit("{update}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fulfillment_applies_total counter: %w", err)
	}

	m.fulfillmentApplyDuration, err = meter.Float64Histogram(
		"fulfillment_apply_duration_seconds",
		metric.WithDescription("Duration of fulfillment state update operations"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fulfillment_apply_duration histogram: %w", err)
	}

	m.versionRegressionsTotal, err = meter.Int64Counter(
		"fulfillment_version_regressions_total",
		metric.WithDescription("Events whose version did not advance past the last applied one"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create fulfillment_version_regressions_total counter: %w", err)
	}

	return m, nil
}

func (m *Metrics) RecordOrderCreated(ctx context.Context, success bool) {
	m.ordersCreatedTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", statusLabel(success)),
	))
}

func (m *Metrics) RecordOrderCreationDuration(ctx context.Context, durationSeconds float64) {
	m.orderCreationDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordFulfillmentApplied(ctx context.Context, success bool) {
	m.fulfillmentAppliesTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String("status", statusLabel(success)),
	))
}

func (m *Metrics) RecordFulfillmentApplyDuration(ctx context.Context, durationSeconds float64) {
	m.fulfillmentApplyDuration.Record(ctx, durationSeconds)
}

func (m *Metrics) RecordVersionRegression(ctx context.Context) {
	m.versionRegressionsTotal.Add(ctx, 1)
}

func statusLabel(success bool) string {
	if success {
		return "success"
	}
	return "error"
}
