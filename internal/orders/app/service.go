package app

import (
	"context"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/orders/app/commands"
	"github.com/dejobratic/ordersync/internal/orders/app/queries"
	"github.com/dejobratic/ordersync/internal/orders/domain"
	"github.com/dejobratic/ordersync/internal/orders/metrics"
	"github.com/dejobratic/ordersync/internal/orders/ports"
	"github.com/dejobratic/ordersync/internal/webhook"
)

// Service bundles use cases for handling orders via the API.
type Service struct {
	repo               ports.OrderRepository
	events             ports.EventBus
	idemStore          ports.IdempotencyStore
	createOrderHandler commands.CommandHandler
	getOrderHandler    *queries.GetOrderQueryHandler
	fulfillmentApplier webhook.Applier
}

// NewService wires required dependencies. applyTimeout bounds each
// fulfillment-update storage call.
func NewService(
	repo ports.OrderRepository,
	events ports.EventBus,
	idem ports.IdempotencyStore,
	logger *slog.Logger,
	metrics *metrics.Metrics,
	applyTimeout time.Duration,
) *Service {
	createHandler := commands.NewCreateOrderCommandHandler(repo, events)
	observableCreate := commands.NewObservableCommandHandler(createHandler, logger, metrics)

	applyHandler := commands.NewApplyFulfillmentHandler(repo, events, logger, metrics, applyTimeout)
	observableApply := commands.NewObservableApplier(applyHandler, metrics)

	return &Service{
		repo:               repo,
		events:             events,
		idemStore:          idem,
		createOrderHandler: observableCreate,
		getOrderHandler:    queries.NewGetOrderQueryHandler(repo),
		fulfillmentApplier: observableApply,
	}
}

// CreateOrderInput captures payload for creating an order.
type CreateOrderInput struct {
	OrderID       string `json:"order_id"`
	CustomerEmail string `json:"customer_email"`
	AmountCents   int64  `json:"amount_cents"`
}

// CreateOrder registers the local mirror row for a Square order.
func (s *Service) CreateOrder(ctx context.Context, input CreateOrderInput) (*domain.Order, error) {
	cmd := commands.CreateOrderCommand{
		OrderID:       input.OrderID,
		CustomerEmail: input.CustomerEmail,
		AmountCents:   input.AmountCents,
	}
	return s.createOrderHandler.Handle(ctx, cmd)
}

// GetOrder retrieves an order by ID.
func (s *Service) GetOrder(ctx context.Context, id string) (*domain.Order, error) {
	return s.getOrderHandler.Handle(ctx, queries.GetOrderQuery{OrderID: id})
}

// ListOrders returns orders using a filter.
func (s *Service) ListOrders(ctx context.Context, filter ports.ListFilter) ([]domain.Order, error) {
	return s.repo.List(ctx, filter)
}

// FulfillmentApplier exposes the transition applier the webhook pipeline
// drives.
func (s *Service) FulfillmentApplier() webhook.Applier {
	return s.fulfillmentApplier
}

// SaveIdempotentResponse writes response details for a key.
func (s *Service) SaveIdempotentResponse(ctx context.Context, key string, response ports.StoredResponse) error {
	return s.idemStore.Save(ctx, key, response)
}

// GetIdempotentResponse retrieves previously stored response data.
func (s *Service) GetIdempotentResponse(ctx context.Context, key string) (*ports.StoredResponse, error) {
	return s.idemStore.Get(ctx, key)
}
