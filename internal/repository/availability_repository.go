package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

const availabilityColumns = `operator_id, to_char(week_start, 'YYYY-MM-DD') AS week_start, days, status, submitted_at, updated_at`

// AvailabilityRepository stores weekly availability declarations.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository constructs the repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// Upsert creates or replaces the operator's declaration for the week.
func (r *AvailabilityRepository) Upsert(ctx context.Context, availability *models.WeeklyAvailability) error {
	const query = `INSERT INTO weekly_availability (operator_id, week_start, days, status, submitted_at, updated_at)
VALUES (:operator_id, :week_start, :days, :status, :submitted_at, :updated_at)
ON CONFLICT (operator_id, week_start) DO UPDATE SET
	days = EXCLUDED.days,
	status = EXCLUDED.status,
	submitted_at = EXCLUDED.submitted_at,
	updated_at = EXCLUDED.updated_at`
	if _, err := r.db.NamedExecContext(ctx, query, availability); err != nil {
		return fmt.Errorf("upsert weekly availability: %w", err)
	}
	return nil
}

// Get returns one operator's week. Missing rows surface as sql.ErrNoRows.
func (r *AvailabilityRepository) Get(ctx context.Context, operatorID int64, weekStart string) (*models.WeeklyAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM weekly_availability WHERE operator_id = $1 AND week_start = $2`
	var availability models.WeeklyAvailability
	if err := r.db.GetContext(ctx, &availability, query, operatorID, weekStart); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get weekly availability: %w", err)
	}
	return &availability, nil
}

// ListSubmittedForWeek returns every submitted declaration for the week.
func (r *AvailabilityRepository) ListSubmittedForWeek(ctx context.Context, weekStart string) ([]models.WeeklyAvailability, error) {
	query := `SELECT ` + availabilityColumns + ` FROM weekly_availability WHERE week_start = $1 AND status = $2 ORDER BY operator_id`
	var rows []models.WeeklyAvailability
	if err := r.db.SelectContext(ctx, &rows, query, weekStart, models.AvailabilitySubmitted); err != nil {
		return nil, fmt.Errorf("list weekly availability: %w", err)
	}
	return rows, nil
}
