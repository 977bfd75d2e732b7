package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

func TestProgressAvailableActions(t *testing.T) {
	tr := NewProgressTracker()
	assert.Equal(t, []models.ProgressAction{models.ProgressActionDeparture}, tr.AvailableActions(0, 3, models.ProgressPending))
	assert.Equal(t, []models.ProgressAction{models.ProgressActionStart}, tr.AvailableActions(1, 3, models.ProgressPending))
	assert.Equal(t, []models.ProgressAction{models.ProgressActionCheckpointScan}, tr.AvailableActions(0, 3, models.ProgressTraveling))
	assert.Equal(t, []models.ProgressAction{models.ProgressActionStart}, tr.AvailableActions(0, 3, models.ProgressArrived))
	assert.Equal(t, []models.ProgressAction{models.ProgressActionFinish}, tr.AvailableActions(1, 3, models.ProgressShooting))
	assert.Empty(t, tr.AvailableActions(1, 3, models.ProgressCompleted))
	assert.Equal(t, []models.ProgressAction{models.ProgressActionEndOfDay}, tr.AvailableActions(2, 3, models.ProgressCompleted))
	assert.Empty(t, tr.AvailableActions(2, 3, models.ProgressFinished))
}

func TestProgressAdvanceSingleBookingDay(t *testing.T) {
	tr := NewProgressTracker()
	now := time.Date(2025, 12, 10, 8, 0, 0, 0, kst)
	session := &models.ProgressSession{BookingID: 1, OperatorID: 7, TotalForDay: 1, State: models.ProgressPending}

	steps := []struct {
		action models.ProgressAction
		want   models.ProgressState
	}{
		{models.ProgressActionDeparture, models.ProgressTraveling},
		{models.ProgressActionCheckpointScan, models.ProgressArrived},
		{models.ProgressActionStart, models.ProgressShooting},
		{models.ProgressActionFinish, models.ProgressCompleted},
	}
	for i, step := range steps {
		next, err := tr.Advance(*session, step.action, "", now.Add(time.Duration(i)*time.Minute))
		require.NoError(t, err, step.action)
		require.Equal(t, step.want, next.State)
		session = next
	}
	require.Len(t, session.Actions, 4)

	_, err := tr.Advance(*session, models.ProgressActionEndOfDay, " ", now)
	require.ErrorIs(t, err, appErrors.ErrProofRequired)
	require.Equal(t, models.ProgressCompleted, session.State)

	done, err := tr.Advance(*session, models.ProgressActionEndOfDay, "proof/1.jpg", now)
	require.NoError(t, err)
	require.Equal(t, models.ProgressFinished, done.State)
	require.Equal(t, "proof/1.jpg", *done.ProofRef)
}

func TestProgressAdvanceRejectsSkippingAhead(t *testing.T) {
	tr := NewProgressTracker()
	session := models.ProgressSession{Position: 0, TotalForDay: 2, State: models.ProgressPending}

	_, err := tr.Advance(session, models.ProgressActionStart, "", time.Now())
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	session.Position = 1
	next, err := tr.Advance(session, models.ProgressActionStart, "", time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.ProgressShooting, next.State)
	assert.Nil(t, session.Actions)
}
