package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

// LocationRepository reads recording locations.
type LocationRepository struct {
	db *sqlx.DB
}

// NewLocationRepository constructs the repository.
func NewLocationRepository(db *sqlx.DB) *LocationRepository {
	return &LocationRepository{db: db}
}

// GetByID fetches a location.
func (r *LocationRepository) GetByID(ctx context.Context, id string) (*models.Location, error) {
	const query = `SELECT id, name, group_key, category, latitude, longitude FROM locations WHERE id = $1`
	var location models.Location
	if err := r.db.GetContext(ctx, &location, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get location: %w", err)
	}
	return &location, nil
}

// List returns every location ordered by name.
func (r *LocationRepository) List(ctx context.Context) ([]models.Location, error) {
	const query = `SELECT id, name, group_key, category, latitude, longitude FROM locations ORDER BY name`
	var locations []models.Location
	if err := r.db.SelectContext(ctx, &locations, query); err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}
