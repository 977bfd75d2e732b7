package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

const bookingColumns = `id, category, to_char(shoot_date, 'YYYY-MM-DD') AS shoot_date,
       to_char(start_time, 'HH24:MI:SS') AS start_time, to_char(end_time, 'HH24:MI:SS') AS end_time,
       location_id, subject, instructor, details, approval_status, resume_status, is_active,
       assigned_operator_id, operator_confirmed_at, tracking_status, actual_start_at, actual_end_at,
       pending_changes, requested_by, approved_by, request_reason, modification_reason,
       cancellation_reason, deletion_reason, created_at, updated_at`

// BookingRepository persists bookings.
type BookingRepository struct {
	db *sqlx.DB
}

// NewBookingRepository constructs the repository.
func NewBookingRepository(db *sqlx.DB) *BookingRepository {
	return &BookingRepository{db: db}
}

func (r *BookingRepository) exec(exec sqlx.ExtContext) sqlx.ExtContext {
	if exec != nil {
		return exec
	}
	return r.db
}

func bookingArgs(b *models.Booking) (map[string]interface{}, error) {
	if err := b.EncodeDetails(); err != nil {
		return nil, err
	}
	return map[string]interface{}{
		"id":                    b.ID,
		"category":              b.Category,
		"shoot_date":            b.Date,
		"start_time":            b.StartTime,
		"end_time":              b.EndTime,
		"location_id":           b.LocationID,
		"subject":               b.Subject,
		"instructor":            b.Instructor,
		"details":               b.RawDetails,
		"approval_status":       b.ApprovalStatus,
		"resume_status":         b.ResumeStatus,
		"is_active":             b.IsActive,
		"assigned_operator_id":  b.AssignedOperatorID,
		"operator_confirmed_at": b.OperatorConfirmedAt,
		"pending_changes":       b.PendingChanges,
		"requested_by":          b.RequestedBy,
		"approved_by":           b.ApprovedBy,
		"request_reason":        b.RequestReason,
		"modification_reason":   b.ModificationReason,
		"cancellation_reason":   b.CancellationReason,
		"deletion_reason":       b.DeletionReason,
		"created_at":            b.CreatedAt,
		"updated_at":            b.UpdatedAt,
	}, nil
}

// Create inserts a booking and populates its generated identifier.
func (r *BookingRepository) Create(ctx context.Context, exec sqlx.ExtContext, b *models.Booking) error {
	args, err := bookingArgs(b)
	if err != nil {
		return err
	}
	const query = `INSERT INTO bookings
	(category, shoot_date, start_time, end_time, location_id, subject, instructor, details, approval_status,
	 resume_status, is_active, assigned_operator_id, operator_confirmed_at, pending_changes, requested_by,
	 approved_by, request_reason, modification_reason, cancellation_reason, deletion_reason, created_at, updated_at)
	VALUES (:category, :shoot_date, :start_time, :end_time, :location_id, :subject, :instructor, :details, :approval_status,
	 :resume_status, :is_active, :assigned_operator_id, :operator_confirmed_at, :pending_changes, :requested_by,
	 :approved_by, :request_reason, :modification_reason, :cancellation_reason, :deletion_reason, :created_at, :updated_at)
	RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.exec(exec), query, args)
	if err != nil {
		return fmt.Errorf("insert booking: %w", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		return fmt.Errorf("insert booking: no id returned")
	}
	if err := rows.Scan(&b.ID); err != nil {
		return fmt.Errorf("scan booking id: %w", err)
	}
	return nil
}

// GetByID fetches a booking by identifier. Missing rows surface as sql.ErrNoRows.
func (r *BookingRepository) GetByID(ctx context.Context, id int64) (*models.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	var booking models.Booking
	if err := r.db.GetContext(ctx, &booking, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("get booking: %w", err)
	}
	if err := booking.DecodeDetails(); err != nil {
		return nil, err
	}
	return &booking, nil
}

func buildBookingFilter(filter models.BookingFilter) (string, []interface{}) {
	conditions := make([]string, 0, 6)
	args := make([]interface{}, 0, 6)
	if filter.WeekStart != "" {
		args = append(args, filter.WeekStart)
		conditions = append(conditions, fmt.Sprintf("shoot_date >= $%d AND shoot_date < ($%d::date + 7)", len(args), len(args)))
	}
	if filter.Date != "" {
		args = append(args, filter.Date)
		conditions = append(conditions, fmt.Sprintf("shoot_date = $%d", len(args)))
	}
	if filter.RequestedBy != "" {
		args = append(args, filter.RequestedBy)
		conditions = append(conditions, fmt.Sprintf("requested_by = $%d", len(args)))
	}
	if filter.OperatorID != nil {
		args = append(args, *filter.OperatorID)
		conditions = append(conditions, fmt.Sprintf("assigned_operator_id = $%d", len(args)))
	}
	if len(filter.Statuses) > 0 {
		placeholders := make([]string, len(filter.Statuses))
		for i, status := range filter.Statuses {
			args = append(args, status)
			placeholders[i] = fmt.Sprintf("$%d", len(args))
		}
		conditions = append(conditions, fmt.Sprintf("approval_status IN (%s)", strings.Join(placeholders, ",")))
	}
	if filter.ActiveOnly {
		conditions = append(conditions, "is_active = TRUE")
	}
	if filter.UpdatedSince != nil {
		args = append(args, *filter.UpdatedSince)
		conditions = append(conditions, fmt.Sprintf("updated_at > $%d", len(args)))
	}
	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

// List returns bookings matching the filter ordered by date and start time, plus the unpaginated total.
func (r *BookingRepository) List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error) {
	where, args := buildBookingFilter(filter)

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return nil, 0, fmt.Errorf("count bookings: %w", err)
	}

	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 200
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	query := fmt.Sprintf(`SELECT %s FROM bookings%s ORDER BY shoot_date, start_time, id LIMIT %d OFFSET %d`,
		bookingColumns, where, size, (page-1)*size)

	var bookings []models.Booking
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list bookings: %w", err)
	}
	for i := range bookings {
		if err := bookings[i].DecodeDetails(); err != nil {
			return nil, 0, err
		}
	}
	return bookings, total, nil
}

// ListActiveOnDate returns every active booking scheduled for date.
func (r *BookingRepository) ListActiveOnDate(ctx context.Context, date string) ([]models.Booking, error) {
	bookings, _, err := r.List(ctx, models.BookingFilter{Date: date, ActiveOnly: true, PageSize: 500})
	return bookings, err
}

// ListForOperatorOnDate returns the operator's committed bookings for date in start-time order.
func (r *BookingRepository) ListForOperatorOnDate(ctx context.Context, operatorID int64, date string) ([]models.Booking, error) {
	statuses := make([]models.ApprovalStatus, 0, len(models.ApprovalStatuses))
	for _, s := range models.ApprovalStatuses {
		if s.Committed() {
			statuses = append(statuses, s)
		}
	}
	bookings, _, err := r.List(ctx, models.BookingFilter{Date: date, OperatorID: &operatorID, Statuses: statuses, ActiveOnly: true, PageSize: 500})
	return bookings, err
}

// UpdateIfUnchanged writes b only when the stored row still carries the expected status and updated_at.
// A lost race returns sql.ErrNoRows.
func (r *BookingRepository) UpdateIfUnchanged(ctx context.Context, exec sqlx.ExtContext, b *models.Booking, expectedStatus models.ApprovalStatus, expectedUpdatedAt time.Time) error {
	args, err := bookingArgs(b)
	if err != nil {
		return err
	}
	args["expected_status"] = expectedStatus
	args["expected_updated_at"] = expectedUpdatedAt
	const query = `UPDATE bookings SET
	category = :category, shoot_date = :shoot_date, start_time = :start_time, end_time = :end_time,
	location_id = :location_id, subject = :subject, instructor = :instructor, details = :details,
	approval_status = :approval_status, resume_status = :resume_status, is_active = :is_active,
	assigned_operator_id = :assigned_operator_id, operator_confirmed_at = :operator_confirmed_at,
	pending_changes = :pending_changes, approved_by = :approved_by, request_reason = :request_reason,
	modification_reason = :modification_reason, cancellation_reason = :cancellation_reason,
	deletion_reason = :deletion_reason, updated_at = :updated_at
	WHERE id = :id AND approval_status = :expected_status AND updated_at = :expected_updated_at`
	result, err := sqlx.NamedExecContext(ctx, r.exec(exec), query, args)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update booking rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// UpdateTracking mirrors progress onto the booking. Nil timestamps leave the stored value untouched.
func (r *BookingRepository) UpdateTracking(ctx context.Context, id int64, status string, actualStart, actualEnd *time.Time) error {
	const query = `UPDATE bookings SET tracking_status = $2,
	actual_start_at = COALESCE($3, actual_start_at),
	actual_end_at = COALESCE($4, actual_end_at)
	WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id, status, actualStart, actualEnd)
	if err != nil {
		return fmt.Errorf("update booking tracking: %w", err)
	}
	if affected, err := result.RowsAffected(); err == nil && affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
