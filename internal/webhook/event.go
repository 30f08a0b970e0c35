package webhook

import (
	"errors"
	"fmt"
	"strings"
	"time"

	go_json "github.com/goccy/go-json"
)

var (
	// ErrMalformedPayload marks envelopes that do not parse or lack a
	// required field. Wrapped by *MalformedPayloadError.
	ErrMalformedPayload = errors.New("malformed webhook payload")
	// ErrNotApplicable marks structurally valid envelopes whose type is not
	// an order event. Not a failure: the notification completes with no
	// transition applied.
	ErrNotApplicable = errors.New("event type not applicable")
)

// MalformedPayloadError names the envelope field that failed validation.
type MalformedPayloadError struct {
	Field string
	cause error
}

func (e *MalformedPayloadError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("malformed webhook payload: field %s: %v", e.Field, e.cause)
	}
	return fmt.Sprintf("malformed webhook payload: field %s", e.Field)
}

func (e *MalformedPayloadError) Unwrap() error { return ErrMalformedPayload }

func malformed(field string, cause error) error {
	return &MalformedPayloadError{Field: field, cause: cause}
}

// FulfillmentEvent is one decoded order-fulfillment state change. States are
// Square-defined and treated as opaque strings here. Version increases
// monotonically per order on the sender side and is used for regression
// detection, not for dropping updates.
type FulfillmentEvent struct {
	EventID        string
	Type           string
	MerchantID     string
	LocationID     string
	OrderID        string
	FulfillmentUID string
	NewState       string
	OldState       string
	OrderState     string
	Version        int64
	CreatedAt      time.Time
	UpdatedAt      time.Time
	// DroppedUpdates counts fulfillment_update entries beyond the first.
	// Only the first entry is honored, matching Square's documented batching
	// of at most one update per notification in practice.
	DroppedUpdates int
}

// envelope mirrors the Square order.fulfillment.updated payload.
type envelope struct {
	MerchantID string    `json:"merchant_id"`
	Type       string    `json:"type"`
	EventID    string    `json:"event_id"`
	CreatedAt  time.Time `json:"created_at"`
	Data       struct {
		Type   string `json:"type"`
		ID     string `json:"id"`
		Object struct {
			OrderFulfillmentUpdated struct {
				CreatedAt         time.Time           `json:"created_at"`
				FulfillmentUpdate []fulfillmentUpdate `json:"fulfillment_update"`
				LocationID        string              `json:"location_id"`
				OrderID           string              `json:"order_id"`
				State             string              `json:"state"`
				UpdatedAt         time.Time           `json:"updated_at"`
				Version           int64               `json:"version"`
			} `json:"order_fulfillment_updated"`
		} `json:"object"`
	} `json:"data"`
}

type fulfillmentUpdate struct {
	FulfillmentUID string `json:"fulfillment_uid"`
	NewState       string `json:"new_state"`
	OldState       string `json:"old_state"`
}

// Decode parses a raw notification body into a FulfillmentEvent. It is total:
// every input yields either an event or an error, never a panic. A valid
// envelope whose data.type is not "order" returns ErrNotApplicable.
func Decode(body []byte) (*FulfillmentEvent, error) {
	var env envelope
	if err := go_json.Unmarshal(body, &env); err != nil {
		return nil, malformed("body", err)
	}

	// Square tags the envelope "order.fulfillment.updated"; only the leading
	// category decides applicability.
	if category, _, _ := strings.Cut(env.Type, "."); category != "order" {
		return nil, fmt.Errorf("%w: type %q", ErrNotApplicable, env.Type)
	}

	if env.Data.ID == "" {
		return nil, malformed("data.id", nil)
	}

	updated := env.Data.Object.OrderFulfillmentUpdated
	if len(updated.FulfillmentUpdate) == 0 {
		return nil, malformed("data.object.order_fulfillment_updated.fulfillment_update", nil)
	}

	first := updated.FulfillmentUpdate[0]
	if first.NewState == "" {
		return nil, malformed("fulfillment_update[0].new_state", nil)
	}

	return &FulfillmentEvent{
		EventID:        env.EventID,
		Type:           env.Type,
		MerchantID:     env.MerchantID,
		LocationID:     updated.LocationID,
		OrderID:        env.Data.ID,
		FulfillmentUID: first.FulfillmentUID,
		NewState:       first.NewState,
		OldState:       first.OldState,
		OrderState:     updated.State,
		Version:        updated.Version,
		CreatedAt:      env.CreatedAt,
		UpdatedAt:      updated.UpdatedAt,
		DroppedUpdates: len(updated.FulfillmentUpdate) - 1,
	}, nil
}
