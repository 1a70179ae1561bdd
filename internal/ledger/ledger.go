// Package ledger records processed webhook deliveries. Chat platforms
// redeliver events on slow responses, and decision callbacks mutate state,
// so each event id must be applied at most once.
package ledger

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/leave-approval/pkg/database"
	"go.uber.org/zap"
)

const schema = `
CREATE TABLE IF NOT EXISTS processed_events (
	event_id     TEXT PRIMARY KEY,
	processed_at TIMESTAMP NOT NULL
)`

// Ledger is a durable set of already-processed event ids
type Ledger struct {
	db     *database.DB
	logger *zap.Logger
}

// New creates the ledger, bootstrapping its table if needed
func New(db *database.DB, logger *zap.Logger) (*Ledger, error) {
	if _, err := db.Exec(schema); err != nil {
		return nil, fmt.Errorf("create processed_events table: %w", err)
	}
	return &Ledger{db: db, logger: logger}, nil
}

// MarkProcessed records the event id. It returns true when the id is new
// and false when the delivery was seen before and must be dropped.
func (l *Ledger) MarkProcessed(ctx context.Context, eventID string) (bool, error) {
	res, err := l.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO processed_events (event_id, processed_at) VALUES (?, ?)`,
		eventID, time.Now().UTC())
	if err != nil {
		l.logger.Error("Failed to record processed event",
			zap.String("event_id", eventID), zap.Error(err))
		return false, fmt.Errorf("record processed event: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		l.logger.Info("Dropping redelivered event", zap.String("event_id", eventID))
		return false, nil
	}
	return true, nil
}
