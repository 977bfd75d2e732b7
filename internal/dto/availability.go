package dto

import "github.com/noah-isme/shootdesk-api/internal/models"

// AvailabilityRequest declares an operator's windows for one week. Submit finalises it for the resolver.
type AvailabilityRequest struct {
	WeekStart string                            `json:"week_start" validate:"required,datetime=2006-01-02"`
	Days      map[string]models.DayAvailability `json:"days" validate:"required"`
	Submit    bool                              `json:"submit"`
}

// AvailabilityQuery selects a week, and for admins an operator.
type AvailabilityQuery struct {
	Week       string `form:"week" validate:"required,datetime=2006-01-02"`
	OperatorID *int64 `form:"operator_id"`
}
