package adapters

import (
	"context"
	"time"

	"github.com/dejobratic/ordersync/internal/kafka"
	"github.com/dejobratic/ordersync/internal/orders/ports"
	"github.com/dejobratic/ordersync/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type ObservableEventBus struct {
	bus     ports.EventBus
	metrics *kafka.Metrics
}

func NewObservableEventBus(bus ports.EventBus, metrics *kafka.Metrics) *ObservableEventBus {
	return &ObservableEventBus{
		bus:     bus,
		metrics: metrics,
	}
}

func (e *ObservableEventBus) PublishOrderCreated(ctx context.Context, orderID string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishOrderCreated")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("event.type", "order.created"),
		attribute.String("topic", "order.created"),
	)

	start := time.Now()
	err := e.bus.PublishOrderCreated(ctx, orderID)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "order.created", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}

func (e *ObservableEventBus) PublishFulfillmentUpdated(ctx context.Context, orderID, oldState, newState string) error {
	ctx, span := telemetry.StartSpan(ctx, "EventBus.PublishFulfillmentUpdated")
	defer span.End()

	telemetry.AddSpanAttributes(span,
		attribute.String("order.id", orderID),
		attribute.String("event.type", "order.fulfillment.updated"),
		attribute.String("topic", "order.fulfillment.updated"),
		attribute.String("fulfillment.old_state", oldState),
		attribute.String("fulfillment.new_state", newState),
	)

	start := time.Now()
	err := e.bus.PublishFulfillmentUpdated(ctx, orderID, oldState, newState)
	duration := time.Since(start).Seconds()

	e.metrics.RecordPublish(ctx, "order.fulfillment.updated", duration, err == nil)

	if err != nil {
		telemetry.RecordSpanError(span, err)
		return err
	}

	telemetry.SetSpanSuccess(span)
	return nil
}
