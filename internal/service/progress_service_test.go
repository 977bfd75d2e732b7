package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/internal/repository"
	"github.com/noah-isme/shootdesk-api/pkg/checkpoint"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type sessionStoreStub struct {
	sessions map[int64]models.ProgressSession
	deleted  []int64
	saveErr  error
}

func (s *sessionStoreStub) Get(_ context.Context, _ int64, bookingID int64) (*models.ProgressSession, error) {
	session, ok := s.sessions[bookingID]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return &session, nil
}

func (s *sessionStoreStub) Save(_ context.Context, session *models.ProgressSession) error {
	if s.saveErr != nil {
		return s.saveErr
	}
	s.sessions[session.BookingID] = *session
	return nil
}

func (s *sessionStoreStub) Delete(_ context.Context, _ int64, bookingID int64) error {
	delete(s.sessions, bookingID)
	s.deleted = append(s.deleted, bookingID)
	return nil
}

type trackingStoreStub struct {
	day      []models.Booking
	statuses map[int64]string
	starts   map[int64]*time.Time
	ends     map[int64]*time.Time
	failNext error
}

func (s *trackingStoreStub) GetByID(_ context.Context, id int64) (*models.Booking, error) {
	for _, b := range s.day {
		if b.ID == id {
			found := b.Clone()
			if status, ok := s.statuses[id]; ok {
				found.TrackingStatus = &status
			}
			return found, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *trackingStoreStub) ListForOperatorOnDate(context.Context, int64, string) ([]models.Booking, error) {
	return s.day, nil
}

func (s *trackingStoreStub) UpdateTracking(_ context.Context, id int64, status string, start, end *time.Time) error {
	if err := s.failNext; err != nil {
		s.failNext = nil
		return err
	}
	s.statuses[id] = status
	if start != nil {
		s.starts[id] = start
	}
	if end != nil {
		s.ends[id] = end
	}
	return nil
}

type placeStub struct {
	location models.Location
}

func (p placeStub) GetByID(_ context.Context, id string) (*models.Location, error) {
	if id != p.location.ID {
		return nil, sql.ErrNoRows
	}
	loc := p.location
	return &loc, nil
}

var (
	scanOperator = models.ActorContext{ID: "op-user-7", Role: models.RoleOperator, OperatorID: ptrInt64(7)}
	scanSigner   = checkpoint.NewSigner("checkpoint-secret", 1)
	shootMorning = time.Date(2025, 12, 10, 9, 30, 0, 0, kst)
)

type progressFixture struct {
	svc      *ProgressService
	sessions *sessionStoreStub
	tracking *trackingStoreStub
	history  *historyStoreStub
	notifier *kindNotifierStub
	clock    time.Time
}

func newProgressFixture(day ...models.Booking) *progressFixture {
	lat, lon := 37.5665, 126.9780
	f := &progressFixture{
		sessions: &sessionStoreStub{sessions: map[int64]models.ProgressSession{}},
		tracking: &trackingStoreStub{day: day, statuses: map[int64]string{}, starts: map[int64]*time.Time{}, ends: map[int64]*time.Time{}},
		history:  &historyStoreStub{},
		notifier: &kindNotifierStub{},
		clock:    shootMorning,
	}
	f.svc = NewProgressService(ProgressServiceConfig{
		Sessions:       f.sessions,
		Bookings:       f.tracking,
		Locations:      placeStub{location: models.Location{ID: "studio-a", Latitude: &lat, Longitude: &lon}},
		History:        NewHistoryLog(f.history, nil),
		Notifier:       f.notifier,
		Signer:         scanSigner,
		Metrics:        NewMetricsService(),
		GeofenceMeters: 300,
		Location:       kst,
	})
	f.svc.now = func() time.Time { return f.clock }
	return f
}

func shoot(id int64, start, end string) models.Booking {
	b := assigned(id, 7, start, end)
	b.LocationID = "studio-a"
	return b
}

func act(t *testing.T, f *progressFixture, bookingID int64, req dto.ProgressActionRequest) *dto.ProgressView {
	t.Helper()
	view, err := f.svc.Act(context.Background(), scanOperator, bookingID, req)
	require.NoError(t, err, req.Action)
	return view
}

func TestProgressServiceSingleBookingDay(t *testing.T) {
	f := newProgressFixture(shoot(1, "10:00:00", "12:00:00"))

	view := act(t, f, 1, dto.ProgressActionRequest{Action: "departure"})
	assert.Equal(t, models.ProgressTraveling, view.State)
	assert.Equal(t, []models.ProgressAction{models.ProgressActionCheckpointScan}, view.AvailableActions)

	token, err := scanSigner.Issue("studio-a", f.clock)
	require.NoError(t, err)
	f.clock = f.clock.Add(time.Minute)
	view = act(t, f, 1, dto.ProgressActionRequest{Action: "checkpoint-scan", Token: token})
	assert.Equal(t, models.ProgressArrived, view.State)
	assert.Equal(t, []string{NotifyCheckpointScan}, f.notifier.kinds)

	act(t, f, 1, dto.ProgressActionRequest{Action: "start"})
	require.NotNil(t, f.tracking.starts[1])
	act(t, f, 1, dto.ProgressActionRequest{Action: "finish"})
	require.NotNil(t, f.tracking.ends[1])
	assert.Equal(t, string(models.ProgressCompleted), f.tracking.statuses[1])

	_, err = f.svc.Act(context.Background(), scanOperator, 1, dto.ProgressActionRequest{Action: "end-of-day"})
	require.ErrorIs(t, err, appErrors.ErrProofRequired)
	assert.Equal(t, models.ProgressCompleted, f.sessions.sessions[1].State)

	view = act(t, f, 1, dto.ProgressActionRequest{Action: "end-of-day", ProofRef: "proofs/1.jpg"})
	assert.Equal(t, models.ProgressFinished, view.State)
	assert.Empty(t, view.AvailableActions)
	assert.Equal(t, []int64{1}, f.sessions.deleted)
	assert.Len(t, f.history.entries, 5)
	assert.Equal(t, models.ChangeTracking, f.history.entries[0].ChangeKind)
}

func TestProgressServiceFailedMirrorLeavesSessionUntouched(t *testing.T) {
	f := newProgressFixture(shoot(1, "09:00:00", "10:00:00"), shoot(2, "13:00:00", "15:00:00"))
	f.tracking.failNext = errors.New("db down")

	_, err := f.svc.Act(context.Background(), scanOperator, 2, dto.ProgressActionRequest{Action: "start"})
	require.ErrorIs(t, err, appErrors.ErrInternal)
	assert.NotContains(t, f.sessions.sessions, int64(2))
	assert.Nil(t, f.tracking.starts[2])

	view := act(t, f, 2, dto.ProgressActionRequest{Action: "start"})
	assert.Equal(t, models.ProgressShooting, view.State)
	require.NotNil(t, f.tracking.starts[2])
	assert.True(t, f.clock.Equal(*f.tracking.starts[2]))
}

func TestProgressServiceFollowsMirroredStatusWhenSessionIsStale(t *testing.T) {
	f := newProgressFixture(shoot(1, "09:00:00", "10:00:00"), shoot(2, "13:00:00", "15:00:00"))
	f.sessions.saveErr = errors.New("redis down")

	view := act(t, f, 2, dto.ProgressActionRequest{Action: "start"})
	assert.Equal(t, models.ProgressShooting, view.State)
	require.NotNil(t, f.tracking.starts[2])

	f.sessions.saveErr = nil
	f.sessions.sessions[2] = models.ProgressSession{BookingID: 2, OperatorID: 7, State: models.ProgressPending}
	got, err := f.svc.Get(context.Background(), scanOperator, 2)
	require.NoError(t, err)
	assert.Equal(t, models.ProgressShooting, got.State)
	assert.Equal(t, []models.ProgressAction{models.ProgressActionFinish}, got.AvailableActions)
}

func TestProgressServiceEndOfDayDiscardsWholeDay(t *testing.T) {
	f := newProgressFixture(shoot(1, "09:00:00", "10:00:00"), shoot(2, "13:00:00", "15:00:00"))

	act(t, f, 1, dto.ProgressActionRequest{Action: "departure"})
	token, err := scanSigner.Issue("studio-a", f.clock)
	require.NoError(t, err)
	act(t, f, 1, dto.ProgressActionRequest{Action: "checkpoint-scan", Token: token})
	act(t, f, 1, dto.ProgressActionRequest{Action: "start"})
	view := act(t, f, 1, dto.ProgressActionRequest{Action: "finish"})
	assert.Empty(t, view.AvailableActions)
	assert.Contains(t, f.sessions.sessions, int64(1))

	act(t, f, 2, dto.ProgressActionRequest{Action: "start"})
	act(t, f, 2, dto.ProgressActionRequest{Action: "finish"})
	view = act(t, f, 2, dto.ProgressActionRequest{Action: "end-of-day", ProofRef: "proofs/2.jpg"})
	assert.Equal(t, models.ProgressFinished, view.State)
	assert.ElementsMatch(t, []int64{1, 2}, f.sessions.deleted)
	assert.Empty(t, f.sessions.sessions)
}

func TestProgressServiceScanRejections(t *testing.T) {
	f := newProgressFixture(shoot(1, "10:00:00", "12:00:00"))
	act(t, f, 1, dto.ProgressActionRequest{Action: "departure"})

	stale, err := scanSigner.Issue("studio-a", f.clock.Add(-2*time.Minute))
	require.NoError(t, err)
	elsewhere, err := scanSigner.Issue("hall-2", f.clock)
	require.NoError(t, err)
	fresh, err := scanSigner.Issue("studio-a", f.clock)
	require.NoError(t, err)
	farLat, farLon := 37.60, 126.9780

	cases := map[string]dto.ProgressActionRequest{
		"expired":          {Action: "checkpoint-scan", Token: stale},
		"wrong_location":   {Action: "checkpoint-scan", Token: elsewhere},
		"invalid_token":    {Action: "checkpoint-scan", Token: "garbage"},
		"outside_geofence": {Action: "checkpoint-scan", Token: fresh, Latitude: &farLat, Longitude: &farLon},
	}
	for reason, req := range cases {
		_, err := f.svc.Act(context.Background(), scanOperator, 1, req)
		require.ErrorIs(t, err, appErrors.ErrCheckpointRejected, reason)
		assert.Equal(t, reason, appErrors.FromError(err).Details["reason"])
	}
	assert.Equal(t, models.ProgressTraveling, f.sessions.sessions[1].State)
	assert.Empty(t, f.notifier.kinds)
}

func TestProgressServiceTodayOrdersDay(t *testing.T) {
	f := newProgressFixture(shoot(1, "09:00:00", "10:00:00"), shoot(2, "13:00:00", "15:00:00"))

	views, err := f.svc.Today(context.Background(), scanOperator, "2025-12-10")
	require.NoError(t, err)
	require.Len(t, views, 2)
	assert.Equal(t, []models.ProgressAction{models.ProgressActionDeparture}, views[0].AvailableActions)
	assert.Equal(t, []models.ProgressAction{models.ProgressActionStart}, views[1].AvailableActions)
	assert.Equal(t, 2, views[1].TotalForDay)

	_, err = f.svc.Today(context.Background(), requester, "")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestProgressServiceRequiresAssignment(t *testing.T) {
	f := newProgressFixture(shoot(1, "09:00:00", "10:00:00"))
	other := models.ActorContext{ID: "op-user-8", Role: models.RoleOperator, OperatorID: ptrInt64(8)}

	_, err := f.svc.Act(context.Background(), other, 1, dto.ProgressActionRequest{Action: "departure"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = f.svc.Get(context.Background(), scanOperator, 404)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestProgressServiceIssueToken(t *testing.T) {
	f := newProgressFixture()

	res, err := f.svc.IssueToken(context.Background(), admin, "studio-a")
	require.NoError(t, err)
	claims, err := scanSigner.Verify(res.Token, f.clock)
	require.NoError(t, err)
	assert.Equal(t, "studio-a", claims.LocationID)

	_, err = f.svc.IssueToken(context.Background(), admin, "nowhere")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
	_, err = f.svc.IssueToken(context.Background(), scanOperator, "studio-a")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}
