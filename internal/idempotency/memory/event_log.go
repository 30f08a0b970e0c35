package memory

import (
	"context"
	"sync"
)

// EventLog is an in-memory processed-event record for local dev and tests.
type EventLog struct {
	mu   sync.RWMutex
	seen map[string]string
}

// NewEventLog creates a new in-memory event log.
func NewEventLog() *EventLog {
	return &EventLog{seen: make(map[string]string)}
}

// Seen reports whether an event id was already recorded.
func (l *EventLog) Seen(_ context.Context, eventID string) (bool, error) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	_, ok := l.seen[eventID]
	return ok, nil
}

// Record remembers an applied event id and the order it touched.
func (l *EventLog) Record(_ context.Context, eventID, orderID string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.seen[eventID] = orderID
	return nil
}
