package domain

import (
	"errors"
	"strings"
	"time"
)

// OrderStatus mirrors the Square fulfillment state of an order. Square owns
// the state machine; this system records whatever state the sender reports
// and never validates transitions.
type OrderStatus string

const (
	StatusProposed  OrderStatus = "PROPOSED"
	StatusReserved  OrderStatus = "RESERVED"
	StatusPrepared  OrderStatus = "PREPARED"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCanceled  OrderStatus = "CANCELED"
	StatusFailed    OrderStatus = "FAILED"
)

// Order is the local record of a Square order. ID is the Square order id;
// SquareVersion is the last fulfillment version applied from a webhook and
// is used to flag out-of-order delivery.
type Order struct {
	ID            string      `json:"id"`
	CustomerEmail string      `json:"customer_email"`
	AmountCents   int64       `json:"amount_cents"`
	Status        OrderStatus `json:"status"`
	SquareVersion int64       `json:"square_version"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Validate ensures the order adheres to business constraints.
func (o Order) Validate() error {
	if strings.TrimSpace(o.ID) == "" {
		return errors.New("id is required")
	}
	if strings.TrimSpace(o.CustomerEmail) == "" {
		return errors.New("customer_email is required")
	}
	if !strings.Contains(o.CustomerEmail, "@") {
		return errors.New("customer_email must be valid")
	}
	if o.AmountCents <= 0 {
		return errors.New("amount_cents must be positive")
	}
	return nil
}

// IsTerminal indicates whether the fulfillment reached a terminal state.
func (o Order) IsTerminal() bool {
	switch o.Status {
	case StatusCompleted, StatusCanceled, StatusFailed:
		return true
	default:
		return false
	}
}
