package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/orders/domain"
	"github.com/dejobratic/ordersync/internal/orders/metrics"
	"github.com/dejobratic/ordersync/internal/orders/ports"
	"github.com/dejobratic/ordersync/internal/webhook"
)

// ApplyFulfillmentHandler mirrors a fulfillment state change from a verified
// webhook event into the order store. The write is an unconditional set, so
// redelivered events land on the same final state without error. No
// transition legality is checked: Square owns the state machine, this side
// only mirrors it.
type ApplyFulfillmentHandler struct {
	repo    ports.OrderRepository
	events  ports.EventBus
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

var _ webhook.Applier = (*ApplyFulfillmentHandler)(nil)

func NewApplyFulfillmentHandler(
	repo ports.OrderRepository,
	events ports.EventBus,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	timeout time.Duration,
) *ApplyFulfillmentHandler {
	return &ApplyFulfillmentHandler{
		repo:    repo,
		events:  events,
		logger:  logger,
		metrics: metrics,
		timeout: timeout,
	}
}

// Apply executes the state update for one event. Every storage error,
// timeout included, is a retryable failure for the caller; an order id with
// no local row is logged and treated as applied, matching the zero-row
// update semantics the mirror always had.
func (h *ApplyFulfillmentHandler) Apply(ctx context.Context, event webhook.FulfillmentEvent) error {
	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	order, err := h.repo.GetByID(ctx, event.OrderID)
	if err != nil {
		if errors.Is(err, ports.ErrNotFound) {
			h.logger.WarnContext(ctx, "fulfillment update for unknown order",
				"order_id", event.OrderID,
				"new_state", event.NewState,
			)
			return nil
		}
		return fmt.Errorf("load order %s: %w", event.OrderID, err)
	}

	if event.Version <= order.SquareVersion {
		h.logger.WarnContext(ctx, "fulfillment version regressed, applying anyway",
			"order_id", event.OrderID,
			"event_version", event.Version,
			"applied_version", order.SquareVersion,
		)
		h.metrics.RecordVersionRegression(ctx)
	}

	err = h.repo.UpdateStatus(ctx, event.OrderID, domain.OrderStatus(event.NewState), event.Version)
	if err != nil {
		// row disappeared between read and write; mirror semantics, same as
		// the unknown-order case above
		if errors.Is(err, ports.ErrNotFound) {
			h.logger.WarnContext(ctx, "order vanished before update", "order_id", event.OrderID)
			return nil
		}
		return fmt.Errorf("update order %s status: %w", event.OrderID, err)
	}

	// the update is already durable; a publish failure must not fail the
	// notification, Square would redeliver an event we have applied
	if err := h.events.PublishFulfillmentUpdated(ctx, event.OrderID, event.OldState, event.NewState); err != nil {
		h.logger.WarnContext(ctx, "failed to publish fulfillment update event",
			"order_id", event.OrderID,
			"error", err,
		)
	}

	return nil
}
