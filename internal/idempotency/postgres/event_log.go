package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// EventLog records Square webhook event ids that were applied, so redelivered
// notifications skip the order store. Entries are written only after a
// successful apply; the state update itself is idempotent, so a missed entry
// is harmless.
type EventLog struct {
	pool *pgxpool.Pool
}

func NewEventLog(pool *pgxpool.Pool) *EventLog {
	return &EventLog{pool: pool}
}

func (l *EventLog) Seen(ctx context.Context, eventID string) (bool, error) {
	query := `
		SELECT 1
		FROM processed_events
		WHERE event_id = $1
	`

	var one int
	err := l.pool.QueryRow(ctx, query, eventID).Scan(&one)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("select processed event: %w", err)
	}

	return true, nil
}

func (l *EventLog) Record(ctx context.Context, eventID, orderID string) error {
	query := `
		INSERT INTO processed_events (event_id, order_id, received_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id) DO NOTHING
	`

	_, err := l.pool.Exec(ctx, query, eventID, orderID, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert processed event: %w", err)
	}

	return nil
}
