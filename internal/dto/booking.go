package dto

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

// BookingFieldsRequest carries the business fields of a booking.
type BookingFieldsRequest struct {
	Category   string          `json:"category" validate:"required,oneof=studio academy internal"`
	Date       string          `json:"date" validate:"required,datetime=2006-01-02"`
	StartTime  string          `json:"start_time" validate:"required"`
	EndTime    string          `json:"end_time" validate:"required"`
	LocationID string          `json:"location_id" validate:"required,max=64"`
	Subject    string          `json:"subject" validate:"max=200"`
	Instructor string          `json:"instructor" validate:"max=120"`
	Details    json.RawMessage `json:"details"`
}

// ToFields decodes the category-specific details into the matching variant.
func (r BookingFieldsRequest) ToFields() (models.BookingFields, error) {
	category := models.Category(strings.ToLower(strings.TrimSpace(r.Category)))
	details, err := models.DecodeDetails(category, r.Details)
	if err != nil {
		return models.BookingFields{}, err
	}
	return models.BookingFields{
		Category:   category,
		Date:       r.Date,
		StartTime:  r.StartTime,
		EndTime:    r.EndTime,
		LocationID: r.LocationID,
		Subject:    r.Subject,
		Instructor: r.Instructor,
		Details:    details,
	}, nil
}

// CreateBookingRequest creates a draft, or submits it immediately when Submit is set.
type CreateBookingRequest struct {
	BookingFieldsRequest
	Submit bool   `json:"submit"`
	Reason string `json:"reason" validate:"max=500"`
}

// BookingActionRequest applies one workflow action. Changes is required for request_modification.
type BookingActionRequest struct {
	Action  string                `json:"action" validate:"required"`
	Reason  string                `json:"reason" validate:"max=500"`
	Changes *BookingFieldsRequest `json:"changes" validate:"omitempty"`
}

// BulkActionRequest applies the same action to many bookings.
type BulkActionRequest struct {
	Action     string  `json:"action" validate:"required"`
	BookingIDs []int64 `json:"booking_ids" validate:"required,min=1,dive,gt=0"`
	Reason     string  `json:"reason" validate:"max=500"`
}

// BulkRowResult is the outcome of one booking within a bulk action.
type BulkRowResult struct {
	BookingID int64                 `json:"booking_id"`
	Result    string                `json:"result"`
	From      models.ApprovalStatus `json:"from,omitempty"`
	To        models.ApprovalStatus `json:"to,omitempty"`
	Code      string                `json:"code,omitempty"`
	Message   string                `json:"message,omitempty"`
}

// BulkActionResponse summarises a bulk action row by row.
type BulkActionResponse struct {
	Action  string          `json:"action"`
	Applied int             `json:"applied"`
	Skipped int             `json:"skipped"`
	Failed  int             `json:"failed"`
	Rows    []BulkRowResult `json:"rows"`
}

// CopyWeekRequest copies active bookings from one week into another as drafts.
type CopyWeekRequest struct {
	SourceWeek  string `json:"source_week" validate:"required,datetime=2006-01-02"`
	TargetWeek  string `json:"target_week" validate:"required,datetime=2006-01-02"`
	RequestedBy string `json:"requested_by"`
}

// BookingQuery mirrors supported listing filters.
type BookingQuery struct {
	Week         string     `form:"week"`
	Date         string     `form:"date"`
	RequestedBy  string     `form:"requested_by"`
	OperatorID   *int64     `form:"operator_id"`
	Status       []string   `form:"status"`
	ActiveOnly   bool       `form:"active_only"`
	UpdatedSince *time.Time `form:"updated_since" time_format:"2006-01-02T15:04:05Z07:00"`
	Page         int        `form:"page"`
	PageSize     int        `form:"page_size"`
}

// BookingView is a booking plus the actions the caller may attempt on it.
type BookingView struct {
	models.Booking
	AvailableActions []models.BookingAction `json:"available_actions"`
}

// TransitionResponse reports the result of an action.
type TransitionResponse struct {
	Outcome string                `json:"outcome"`
	Action  models.BookingAction  `json:"action"`
	From    models.ApprovalStatus `json:"from,omitempty"`
	To      models.ApprovalStatus `json:"to"`
	Booking *models.Booking       `json:"booking"`
}

// LocateResponse places a booking on the weekly grid relative to the viewer's week.
type LocateResponse struct {
	BookingID  int64  `json:"booking_id"`
	Date       string `json:"date"`
	WeekStart  string `json:"week_start"`
	WeekOffset int    `json:"week_offset"`
}

// ExportQuery selects the week and format of a roster export.
type ExportQuery struct {
	Week   string `form:"week" validate:"required,datetime=2006-01-02"`
	Format string `form:"format" validate:"omitempty,oneof=csv pdf"`
}
