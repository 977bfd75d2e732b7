package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

// HistoryRepository appends and reads booking audit entries.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

func (r *HistoryRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

// Insert appends an entry. Entries are never updated or deleted.
func (r *HistoryRepository) Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.HistoryEntry) error {
	const query = `INSERT INTO booking_history (booking_id, change_kind, actor_id, actor_role, before_data, after_data, reason, recorded_at)
VALUES (:booking_id, :change_kind, :actor_id, :actor_role, :before_data, :after_data, :reason, :recorded_at)`
	if _, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, entry); err != nil {
		return fmt.Errorf("insert booking history: %w", err)
	}
	return nil
}

// ListByBooking returns a booking's entries oldest first.
func (r *HistoryRepository) ListByBooking(ctx context.Context, bookingID int64) ([]models.HistoryEntry, error) {
	const query = `SELECT id, booking_id, change_kind, actor_id, actor_role, before_data, after_data, reason, recorded_at
FROM booking_history WHERE booking_id = $1 ORDER BY recorded_at, id`
	var entries []models.HistoryEntry
	if err := r.db.SelectContext(ctx, &entries, query, bookingID); err != nil {
		return nil, fmt.Errorf("list booking history: %w", err)
	}
	return entries, nil
}
