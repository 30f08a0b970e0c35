package commands

import (
	"context"
	"time"

	"github.com/dejobratic/ordersync/internal/orders/metrics"
	"github.com/dejobratic/ordersync/internal/telemetry"
	"github.com/dejobratic/ordersync/internal/webhook"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableApplier struct {
	applier webhook.Applier
	metrics *metrics.Metrics
}

var _ webhook.Applier = (*ObservableApplier)(nil)

func NewObservableApplier(applier webhook.Applier, metrics *metrics.Metrics) *ObservableApplier {
	return &ObservableApplier{
		applier: applier,
		metrics: metrics,
	}
}

func (o *ObservableApplier) Apply(ctx context.Context, event webhook.FulfillmentEvent) error {
	ctx, span := telemetry.StartSpan(ctx, "ApplyFulfillment.Apply")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", event.OrderID),
		attribute.String("order.new_state", event.NewState),
		attribute.String("order.old_state", event.OldState),
		attribute.Int64("event.version", event.Version),
	)

	start := time.Now()
	err := o.applier.Apply(ctx, event)
	duration := time.Since(start).Seconds()

	o.metrics.RecordFulfillmentApplyDuration(ctx, duration)
	o.metrics.RecordFulfillmentApplied(ctx, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
