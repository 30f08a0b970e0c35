package ports

import "context"

// EventBus defines the contract for publishing order lifecycle events to
// downstream consumers.
type EventBus interface {
	PublishOrderCreated(ctx context.Context, orderID string) error
	PublishFulfillmentUpdated(ctx context.Context, orderID, oldState, newState string) error
}
