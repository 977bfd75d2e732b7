package models

import (
	"time"

	"github.com/jmoiron/sqlx/types"
)

// Change kinds recorded beyond the workflow action names.
const (
	ChangeCreated            = "created"
	ChangeDraftEdited        = "draft_edited"
	ChangeAssigned           = "assigned"
	ChangeAssignmentOverride = "assignment_override"
	ChangeUnassigned         = "unassigned"
	ChangeAcknowledged       = "acknowledged"
	ChangeTracking           = "tracking"
)

// HistoryEntry is an append-only audit record of a booking change.
type HistoryEntry struct {
	ID         int64           `db:"id" json:"id"`
	BookingID  int64           `db:"booking_id" json:"booking_id"`
	ChangeKind string          `db:"change_kind" json:"change_kind"`
	ActorID    string          `db:"actor_id" json:"actor_id"`
	ActorRole  UserRole        `db:"actor_role" json:"actor_role"`
	Before     *types.JSONText `db:"before_data" json:"before,omitempty"`
	After      *types.JSONText `db:"after_data" json:"after,omitempty"`
	Reason     *string         `db:"reason" json:"reason,omitempty"`
	RecordedAt time.Time       `db:"recorded_at" json:"recorded_at"`
}
