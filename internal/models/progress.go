package models

import "time"

// ProgressState is the coarse state of an operator's on-site progress for one booking.
type ProgressState string

const (
	ProgressPending   ProgressState = "PENDING"
	ProgressTraveling ProgressState = "TRAVELING"
	ProgressArrived   ProgressState = "ARRIVED"
	ProgressShooting  ProgressState = "SHOOTING"
	ProgressCompleted ProgressState = "COMPLETED"
	ProgressFinished  ProgressState = "FINISHED"
)

// Valid reports whether s is a known state.
func (s ProgressState) Valid() bool {
	switch s {
	case ProgressPending, ProgressTraveling, ProgressArrived, ProgressShooting, ProgressCompleted, ProgressFinished:
		return true
	}
	return false
}

// ProgressAction is a checkpoint an operator performs.
type ProgressAction string

const (
	ProgressActionDeparture      ProgressAction = "departure"
	ProgressActionCheckpointScan ProgressAction = "checkpoint-scan"
	ProgressActionStart          ProgressAction = "start"
	ProgressActionFinish         ProgressAction = "finish"
	ProgressActionEndOfDay       ProgressAction = "end-of-day"
)

// ProgressSession is one operator's traversal of checkpoints for one booking.
type ProgressSession struct {
	BookingID   int64                        `json:"booking_id"`
	OperatorID  int64                        `json:"operator_id"`
	Date        string                       `json:"date"`
	Position    int                          `json:"position"`
	TotalForDay int                          `json:"total_for_day"`
	State       ProgressState                `json:"state"`
	Actions     map[ProgressAction]time.Time `json:"actions"`
	ProofRef    *string                      `json:"proof_ref,omitempty"`
	UpdatedAt   time.Time                    `json:"updated_at"`
}

// First reports whether this is the operator's first booking of the day.
func (s ProgressSession) First() bool {
	return s.Position == 0
}

// Last reports whether this is the operator's last booking of the day.
func (s ProgressSession) Last() bool {
	return s.Position == s.TotalForDay-1
}
