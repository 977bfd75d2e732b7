package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type availabilityStoreStub struct {
	saved *models.WeeklyAvailability
}

func (s *availabilityStoreStub) Upsert(_ context.Context, a *models.WeeklyAvailability) error {
	s.saved = a
	return nil
}

func (s *availabilityStoreStub) Get(_ context.Context, operatorID int64, weekStart string) (*models.WeeklyAvailability, error) {
	if s.saved == nil || s.saved.OperatorID != operatorID || s.saved.WeekStart != weekStart {
		return nil, sql.ErrNoRows
	}
	return s.saved, nil
}

var freelancer = models.ActorContext{ID: "op-user-9", Role: models.RoleOperator, OperatorID: ptrInt64(9)}

func newAvailabilityService(store *availabilityStoreStub, now time.Time) *AvailabilityService {
	svc := NewAvailabilityService(store, nil, kst, nil)
	svc.now = func() time.Time { return now }
	return svc
}

func TestAvailabilityUpsertNormalisesWeek(t *testing.T) {
	store := &availabilityStoreStub{}
	svc := newAvailabilityService(store, time.Date(2025, 12, 7, 23, 0, 0, 0, kst))

	saved, err := svc.Upsert(context.Background(), freelancer, dto.AvailabilityRequest{
		WeekStart: "2025-12-08",
		Days: map[string]models.DayAvailability{
			"wed": {Available: true, StartTime: "09:00", EndTime: "15:00"},
			"thu": {Available: false, StartTime: "10:00", EndTime: "11:00"},
		},
		Submit: true,
	})
	require.NoError(t, err)
	assert.Equal(t, models.AvailabilitySubmitted, saved.Status)
	assert.Equal(t, "09:00:00", saved.Days["wed"].StartTime)
	assert.Equal(t, models.DayAvailability{}, saved.Days["thu"])
	assert.Len(t, saved.Days, 7)

	got, err := svc.Get(context.Background(), admin, dto.AvailabilityQuery{Week: "2025-12-10", OperatorID: ptrInt64(9)})
	require.NoError(t, err)
	assert.Equal(t, saved, got)
}

func TestAvailabilityUpsertRejections(t *testing.T) {
	store := &availabilityStoreStub{}
	svc := newAvailabilityService(store, time.Date(2025, 12, 8, 0, 0, 0, 0, kst))
	days := map[string]models.DayAvailability{"mon": {Available: true, StartTime: "09:00", EndTime: "12:00"}}

	_, err := svc.Upsert(context.Background(), freelancer, dto.AvailabilityRequest{WeekStart: "2025-12-08", Days: days})
	require.ErrorIs(t, err, appErrors.ErrLocked)

	_, err = svc.Upsert(context.Background(), freelancer, dto.AvailabilityRequest{WeekStart: "2025-12-16", Days: days})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	bad := map[string]models.DayAvailability{"mon": {Available: true, StartTime: "12:00", EndTime: "09:00"}}
	_, err = svc.Upsert(context.Background(), freelancer, dto.AvailabilityRequest{WeekStart: "2025-12-15", Days: bad})
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Upsert(context.Background(), requester, dto.AvailabilityRequest{WeekStart: "2025-12-15", Days: days})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(context.Background(), freelancer, dto.AvailabilityQuery{Week: "2025-12-15"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}
