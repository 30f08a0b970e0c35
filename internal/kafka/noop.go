package kafka

import (
	"context"
	"log/slog"
)

// NoopEventBus logs events without sending them to Kafka. Useful for local dev before wiring Kafka.
type NoopEventBus struct{}

// NewNoopEventBus returns a new no-op event publisher.
func NewNoopEventBus() *NoopEventBus {
	return &NoopEventBus{}
}

func (n *NoopEventBus) PublishOrderCreated(_ context.Context, orderID string) error {
	slog.Debug("event::order_created", "order_id", orderID)
	return nil
}

func (n *NoopEventBus) PublishFulfillmentUpdated(_ context.Context, orderID, oldState, newState string) error {
	slog.Debug("event::order_fulfillment_updated",
		"order_id", orderID,
		"old_state", oldState,
		"new_state", newState,
	)
	return nil
}
