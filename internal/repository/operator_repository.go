package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

const operatorColumns = `id, display_name, operator_type, access_policy, location_groups, phone, active, created_at, updated_at`

// OperatorRepository reads the operator roster.
type OperatorRepository struct {
	db *sqlx.DB
}

// NewOperatorRepository constructs the repository.
func NewOperatorRepository(db *sqlx.DB) *OperatorRepository {
	return &OperatorRepository{db: db}
}

// ListActive returns the active roster ordered by id.
func (r *OperatorRepository) ListActive(ctx context.Context) ([]models.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE active = TRUE ORDER BY id`
	var operators []models.Operator
	if err := r.db.SelectContext(ctx, &operators, query); err != nil {
		return nil, fmt.Errorf("list operators: %w", err)
	}
	return operators, nil
}

// GetByID fetches a single operator.
func (r *OperatorRepository) GetByID(ctx context.Context, id int64) (*models.Operator, error) {
	query := `SELECT ` + operatorColumns + ` FROM operators WHERE id = $1`
	var operator models.Operator
	if err := r.db.GetContext(ctx, &operator, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get operator: %w", err)
	}
	return &operator, nil
}
