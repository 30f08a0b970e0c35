package webhook

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/dejobratic/ordersync/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// Status is the terminal disposition of one notification.
type Status string

const (
	StatusApplied  Status = "applied"
	StatusSkipped  Status = "skipped"
	StatusRejected Status = "rejected"
	StatusFailed   Status = "failed"
)

// Reason qualifies non-applied outcomes.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonUnauthorized     Reason = "unauthorized"
	ReasonMalformedPayload Reason = "malformed_payload"
	ReasonNotApplicable    Reason = "not_applicable"
	ReasonStorageFailure   Reason = "storage_failure"
)

// Outcome is the single terminal result of handling one notification.
// Every Handle call produces exactly one.
type Outcome struct {
	Status Status
	Reason Reason
	Err    error
}

// Applier executes the state transition carried by a verified, decoded event
// against the order store. Any returned error is a storage failure; the
// sender's redelivery retries it safely because the update is idempotent.
type Applier interface {
	Apply(ctx context.Context, event FulfillmentEvent) error
}

// EventLog remembers Square event ids that were already applied, so a
// redelivered notification does not hit the order store again. Recording
// happens only after a successful apply; a lost record merely costs one
// redundant idempotent update.
type EventLog interface {
	Seen(ctx context.Context, eventID string) (bool, error)
	Record(ctx context.Context, eventID, orderID string) error
}

// Pipeline runs verification, decoding, and application for inbound
// notifications. It is stateless per notification and safe for concurrent
// use.
type Pipeline struct {
	verifier *Verifier
	applier  Applier
	eventLog EventLog
	logger   *slog.Logger
	metrics  *Metrics
}

func NewPipeline(verifier *Verifier, applier Applier, eventLog EventLog, logger *slog.Logger, metrics *Metrics) *Pipeline {
	return &Pipeline{
		verifier: verifier,
		applier:  applier,
		eventLog: eventLog,
		logger:   logger,
		metrics:  metrics,
	}
}

// Handle processes one notification to a terminal outcome. It never returns
// without one: forged signatures reject, malformed envelopes reject,
// non-order events skip, storage errors fail, everything else applies.
func (p *Pipeline) Handle(ctx context.Context, n RawNotification) Outcome {
	ctx, span := telemetry.StartSpan(ctx, "WebhookPipeline.Handle")
	defer span.End()

	start := time.Now()
	outcome := p.handle(ctx, n)

	p.metrics.RecordNotification(ctx, string(outcome.Status), string(outcome.Reason), time.Since(start).Seconds())

	telemetry.AddSpanAttributes(span,
		attribute.String("webhook.outcome", string(outcome.Status)),
		attribute.String("webhook.reason", string(outcome.Reason)),
	)
	if outcome.Err != nil {
		telemetry.RecordSpanError(span, outcome.Err)
	} else {
		telemetry.SetSpanSuccess(span)
	}

	return outcome
}

func (p *Pipeline) handle(ctx context.Context, n RawNotification) Outcome {
	if !p.verifier.Verify(n) {
		p.logger.WarnContext(ctx, "rejected webhook with invalid signature")
		return Outcome{Status: StatusRejected, Reason: ReasonUnauthorized}
	}

	event, err := Decode(n.Body)
	if err != nil {
		if errors.Is(err, ErrNotApplicable) {
			p.logger.InfoContext(ctx, "skipped webhook for non-order event", "error", err)
			return Outcome{Status: StatusSkipped, Reason: ReasonNotApplicable}
		}
		p.logger.WarnContext(ctx, "rejected malformed webhook payload", "error", err)
		return Outcome{Status: StatusRejected, Reason: ReasonMalformedPayload, Err: err}
	}

	if event.DroppedUpdates > 0 {
		p.logger.WarnContext(ctx, "webhook batched multiple fulfillment updates, honoring only the first",
			"order_id", event.OrderID,
			"dropped", event.DroppedUpdates,
		)
	}

	if event.EventID != "" {
		seen, err := p.eventLog.Seen(ctx, event.EventID)
		if err != nil {
			// dedupe is best effort; the update itself is idempotent
			p.logger.WarnContext(ctx, "event log lookup failed", "event_id", event.EventID, "error", err)
		} else if seen {
			p.logger.InfoContext(ctx, "duplicate webhook event already applied",
				"event_id", event.EventID,
				"order_id", event.OrderID,
			)
			return Outcome{Status: StatusApplied}
		}
	}

	if err := p.applier.Apply(ctx, *event); err != nil {
		p.logger.ErrorContext(ctx, "failed to apply fulfillment update",
			"order_id", event.OrderID,
			"new_state", event.NewState,
			"error", err,
		)
		return Outcome{Status: StatusFailed, Reason: ReasonStorageFailure, Err: err}
	}

	if event.EventID != "" {
		if err := p.eventLog.Record(ctx, event.EventID, event.OrderID); err != nil {
			p.logger.WarnContext(ctx, "failed to record processed event", "event_id", event.EventID, "error", err)
		}
	}

	p.logger.InfoContext(ctx, "applied fulfillment update",
		"order_id", event.OrderID,
		"old_state", event.OldState,
		"new_state", event.NewState,
		"version", event.Version,
	)

	return Outcome{Status: StatusApplied}
}
