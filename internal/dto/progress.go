package dto

import (
	"time"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

// ProgressActionRequest advances an operator's progress on a booking.
type ProgressActionRequest struct {
	Action    string   `json:"action" validate:"required,oneof=departure checkpoint-scan start finish end-of-day"`
	Token     string   `json:"token" validate:"required_if=Action checkpoint-scan"`
	Latitude  *float64 `json:"latitude" validate:"omitempty,latitude"`
	Longitude *float64 `json:"longitude" validate:"omitempty,longitude"`
	ProofRef  string   `json:"proof_ref" validate:"max=512"`
}

// ProgressView is the operator-facing state of one booking's checkpoints.
type ProgressView struct {
	BookingID        int64                               `json:"booking_id"`
	Date             string                              `json:"date"`
	StartTime        string                              `json:"start_time"`
	EndTime          string                              `json:"end_time"`
	LocationID       string                              `json:"location_id"`
	Position         int                                 `json:"position"`
	TotalForDay      int                                 `json:"total_for_day"`
	State            models.ProgressState                `json:"state"`
	Actions          map[models.ProgressAction]time.Time `json:"actions"`
	AvailableActions []models.ProgressAction             `json:"available_actions"`
}

// CheckpointTokenResponse is the kiosk token for the current minute.
type CheckpointTokenResponse struct {
	LocationID string    `json:"location_id"`
	Token      string    `json:"token"`
	IssuedAt   time.Time `json:"issued_at"`
	ExpiresAt  time.Time `json:"expires_at"`
}
