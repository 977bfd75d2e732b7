package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

var progressTargets = map[models.ProgressAction]models.ProgressState{
	models.ProgressActionDeparture:      models.ProgressTraveling,
	models.ProgressActionCheckpointScan: models.ProgressArrived,
	models.ProgressActionStart:          models.ProgressShooting,
	models.ProgressActionFinish:         models.ProgressCompleted,
	models.ProgressActionEndOfDay:       models.ProgressFinished,
}

// ProgressTracker advances a ProgressSession along its checkpoints. It never touches storage.
type ProgressTracker struct{}

// NewProgressTracker constructs the tracker.
func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

// AvailableActions lists what the operator may do next. Only the first booking of the day travels
// and checks in; only the last one closes the day.
func (t *ProgressTracker) AvailableActions(position, totalForDay int, state models.ProgressState) []models.ProgressAction {
	switch state {
	case models.ProgressPending:
		if position == 0 {
			return []models.ProgressAction{models.ProgressActionDeparture}
		}
		return []models.ProgressAction{models.ProgressActionStart}
	case models.ProgressTraveling:
		return []models.ProgressAction{models.ProgressActionCheckpointScan}
	case models.ProgressArrived:
		return []models.ProgressAction{models.ProgressActionStart}
	case models.ProgressShooting:
		return []models.ProgressAction{models.ProgressActionFinish}
	case models.ProgressCompleted:
		if position == totalForDay-1 {
			return []models.ProgressAction{models.ProgressActionEndOfDay}
		}
	}
	return []models.ProgressAction{}
}

// Advance applies action to session and returns the next session. End-of-day requires proofRef;
// without it the session stays COMPLETED and the action may be retried.
func (t *ProgressTracker) Advance(session models.ProgressSession, action models.ProgressAction, proofRef string, now time.Time) (*models.ProgressSession, error) {
	allowed := false
	for _, candidate := range t.AvailableActions(session.Position, session.TotalForDay, session.State) {
		if candidate == action {
			allowed = true
			break
		}
	}
	if !allowed {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s is not available while %s", action, session.State),
			map[string]interface{}{"action": action, "state": session.State})
	}
	proofRef = strings.TrimSpace(proofRef)
	if action == models.ProgressActionEndOfDay && proofRef == "" {
		return nil, appErrors.ErrProofRequired
	}

	next := session
	next.Actions = make(map[models.ProgressAction]time.Time, len(session.Actions)+1)
	for k, v := range session.Actions {
		next.Actions[k] = v
	}
	next.Actions[action] = now
	next.State = progressTargets[action]
	next.UpdatedAt = now
	if proofRef != "" {
		next.ProofRef = &proofRef
	}
	return &next, nil
}
