package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type bookingWriterStub struct {
	bookings map[int64]*models.Booking
	kinds    []string
	reasons  []string
}

func (s *bookingWriterStub) Load(_ context.Context, id int64) (*models.Booking, error) {
	b, ok := s.bookings[id]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
	}
	return b.Clone(), nil
}

func (s *bookingWriterStub) CommitChange(_ context.Context, _ models.ActorContext, _ *models.Booking, next *models.Booking, kind, reason string) (*models.Booking, error) {
	s.bookings[next.ID] = next.Clone()
	s.kinds = append(s.kinds, kind)
	s.reasons = append(s.reasons, reason)
	return next, nil
}

type dayBookingsStub []models.Booking

func (d dayBookingsStub) ListActiveOnDate(context.Context, string) ([]models.Booking, error) {
	return d, nil
}

type operatorReaderStub struct {
	roster []models.Operator
	calls  int
}

func (o *operatorReaderStub) ListActive(context.Context) ([]models.Operator, error) {
	o.calls++
	return o.roster, nil
}

func (o *operatorReaderStub) GetByID(_ context.Context, id int64) (*models.Operator, error) {
	for _, op := range o.roster {
		if op.ID == id {
			return &op, nil
		}
	}
	return nil, sql.ErrNoRows
}

type locationReaderStub struct{}

func (locationReaderStub) GetByID(_ context.Context, id string) (*models.Location, error) {
	return &models.Location{ID: id, GroupKey: "main"}, nil
}

type availabilityReaderStub struct{}

func (availabilityReaderStub) ListSubmittedForWeek(context.Context, string) ([]models.WeeklyAvailability, error) {
	return nil, nil
}

type kindNotifierStub struct {
	kinds []string
}

func (k *kindNotifierStub) Notify(kind string, _ *models.Booking, _ models.ActorContext) {
	k.kinds = append(k.kinds, kind)
}

type assignmentFixture struct {
	svc      *AssignmentService
	writer   *bookingWriterStub
	roster   *operatorReaderStub
	notifier *kindNotifierStub
}

func newAssignmentFixture(day ...models.Booking) *assignmentFixture {
	target := storedBooking(models.StatusApproved)
	f := &assignmentFixture{
		writer: &bookingWriterStub{bookings: map[int64]*models.Booking{target.ID: target}},
		roster: &operatorReaderStub{roster: []models.Operator{
			rosterOperator(7, "Han", models.OperatorRegular),
			rosterOperator(8, "Lee", models.OperatorRegular),
		}},
		notifier: &kindNotifierStub{},
	}
	f.svc = NewAssignmentService(AssignmentServiceConfig{
		Bookings:     f.writer,
		DayBookings:  dayBookingsStub(day),
		Operators:    f.roster,
		Locations:    locationReaderStub{},
		Availability: availabilityReaderStub{},
		Resolver:     NewAssignmentResolver(language.Und),
		Notifier:     f.notifier,
	})
	return f
}

func TestAssignmentServiceEligibleRequiresPrivilege(t *testing.T) {
	f := newAssignmentFixture(assigned(2, 7, "11:00:00", "13:00:00"))

	_, err := f.svc.Eligible(context.Background(), requester, 42)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	res, err := f.svc.Eligible(context.Background(), admin, 42)
	require.NoError(t, err)
	assert.Equal(t, []int64{8}, eligibleIDs(res))
}

func TestAssignmentServiceRejectsIneligibleWithoutOverride(t *testing.T) {
	f := newAssignmentFixture(assigned(2, 7, "11:00:00", "13:00:00"))

	_, err := f.svc.Assign(context.Background(), admin, 42, dto.AssignOperatorRequest{OperatorID: 7})
	require.ErrorIs(t, err, appErrors.ErrConflict)
	details := appErrors.FromError(err).Details
	assert.Equal(t, ExcludedTimeOverlap, details["reason"])
	assert.Equal(t, int64(2), details["conflicting_booking_id"])
	assert.Empty(t, f.writer.kinds)

	saved, err := f.svc.Assign(context.Background(), admin, 42, dto.AssignOperatorRequest{OperatorID: 7, Override: true, Reason: "only one on site"})
	require.NoError(t, err)
	assert.Equal(t, int64(7), *saved.AssignedOperatorID)
	assert.Equal(t, []string{models.ChangeAssignmentOverride}, f.writer.kinds)
}

func TestAssignmentServiceAssignClearsConfirmation(t *testing.T) {
	f := newAssignmentFixture()
	confirmed := time.Now()
	f.writer.bookings[42].AssignedOperatorID = ptrInt64(8)
	f.writer.bookings[42].OperatorConfirmedAt = &confirmed

	saved, err := f.svc.Assign(context.Background(), admin, 42, dto.AssignOperatorRequest{OperatorID: 7})
	require.NoError(t, err)
	assert.Nil(t, saved.OperatorConfirmedAt)
	assert.Equal(t, []string{models.ChangeAssigned}, f.writer.kinds)

	_, err = f.svc.Assign(context.Background(), admin, 42, dto.AssignOperatorRequest{OperatorID: 99})
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestAssignmentServiceAcknowledgeNotifies(t *testing.T) {
	f := newAssignmentFixture()
	f.writer.bookings[42].AssignedOperatorID = ptrInt64(7)
	other := models.ActorContext{ID: "op-8", Role: models.RoleOperator, OperatorID: ptrInt64(8)}
	assignee := models.ActorContext{ID: "op-7", Role: models.RoleOperator, OperatorID: ptrInt64(7)}

	_, err := f.svc.Acknowledge(context.Background(), other, 42)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	saved, err := f.svc.Acknowledge(context.Background(), assignee, 42)
	require.NoError(t, err)
	require.NotNil(t, saved.OperatorConfirmedAt)
	assert.Equal(t, []string{NotifyConfirmation}, f.notifier.kinds)

	_, err = f.svc.Acknowledge(context.Background(), assignee, 42)
	require.NoError(t, err)
	assert.Len(t, f.writer.kinds, 1)
}

func TestAssignmentServiceUnassign(t *testing.T) {
	f := newAssignmentFixture()
	f.writer.bookings[42].AssignedOperatorID = ptrInt64(7)

	saved, err := f.svc.Unassign(context.Background(), admin, 42, "")
	require.NoError(t, err)
	assert.Nil(t, saved.AssignedOperatorID)
	assert.Equal(t, []string{models.ChangeUnassigned}, f.writer.kinds)
}

type memoryCacheStub struct {
	entries map[string][]byte
	dropped []string
}

func newMemoryCache() *memoryCacheStub {
	return &memoryCacheStub{entries: map[string][]byte{}}
}

func (m *memoryCacheStub) Get(_ context.Context, key string, dest interface{}) error {
	raw, ok := m.entries[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (m *memoryCacheStub) Set(_ context.Context, key string, value interface{}, _ time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	m.entries[key] = raw
	return nil
}

func (m *memoryCacheStub) DeleteByPattern(_ context.Context, pattern string) error {
	delete(m.entries, pattern)
	m.dropped = append(m.dropped, pattern)
	return nil
}

func TestAssignmentServiceRefreshesStaleRoster(t *testing.T) {
	f := newAssignmentFixture()
	cache := newMemoryCache()
	f.svc.cache = NewCacheService(cache, nil, time.Minute, nil, true)

	res, err := f.svc.Eligible(context.Background(), admin, 42)
	require.NoError(t, err)
	assert.False(t, res.RosterCached)
	assert.Equal(t, []int64{7, 8}, eligibleIDs(res))

	f.roster.roster = append(f.roster.roster, rosterOperator(9, "Park", models.OperatorRegular))
	saved, err := f.svc.Assign(context.Background(), admin, 42, dto.AssignOperatorRequest{OperatorID: 9})
	require.NoError(t, err)
	assert.Equal(t, int64(9), *saved.AssignedOperatorID)
	assert.Equal(t, []string{models.ChangeAssigned}, f.writer.kinds)
	assert.Equal(t, []string{rosterCacheKey}, cache.dropped)
	assert.Equal(t, 2, f.roster.calls)
}

// contendedBookingsStub holds the first day read until a second one arrives, or briefly when none does.
type contendedBookingsStub struct {
	mu       sync.Mutex
	bookings map[int64]*models.Booking
	readers  int
	both     chan struct{}
}

func (s *contendedBookingsStub) Load(_ context.Context, id int64) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookings[id].Clone(), nil
}

func (s *contendedBookingsStub) CommitChange(_ context.Context, _ models.ActorContext, _ *models.Booking, next *models.Booking, _, _ string) (*models.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.bookings[next.ID] = next.Clone()
	return next, nil
}

func (s *contendedBookingsStub) ListActiveOnDate(context.Context, string) ([]models.Booking, error) {
	s.mu.Lock()
	s.readers++
	if s.readers == 2 {
		close(s.both)
	}
	s.mu.Unlock()

	select {
	case <-s.both:
	case <-time.After(50 * time.Millisecond):
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	day := make([]models.Booking, 0, len(s.bookings))
	for _, b := range s.bookings {
		day = append(day, *b.Clone())
	}
	return day, nil
}

type staticRosterStub []models.Operator

func (r staticRosterStub) ListActive(context.Context) ([]models.Operator, error) {
	return r, nil
}

func (r staticRosterStub) GetByID(_ context.Context, id int64) (*models.Operator, error) {
	for _, op := range r {
		if op.ID == id {
			return &op, nil
		}
	}
	return nil, sql.ErrNoRows
}

func TestAssignmentServiceSerialisesOverlappingAssignments(t *testing.T) {
	slot := func(id int64, start, end string) *models.Booking {
		return &models.Booking{ID: id, Date: "2025-12-10", StartTime: start, EndTime: end, LocationID: "studio-a", ApprovalStatus: models.StatusApproved, IsActive: true}
	}
	store := &contendedBookingsStub{
		bookings: map[int64]*models.Booking{42: slot(42, "10:00:00", "12:00:00"), 43: slot(43, "11:00:00", "13:00:00")},
		both:     make(chan struct{}),
	}
	svc := NewAssignmentService(AssignmentServiceConfig{
		Bookings:     store,
		DayBookings:  store,
		Operators:    staticRosterStub{rosterOperator(7, "Han", models.OperatorRegular)},
		Locations:    locationReaderStub{},
		Availability: availabilityReaderStub{},
		Resolver:     NewAssignmentResolver(language.Und),
	})

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []int64{42, 43} {
		wg.Add(1)
		go func(i int, id int64) {
			defer wg.Done()
			_, errs[i] = svc.Assign(context.Background(), admin, id, dto.AssignOperatorRequest{OperatorID: 7})
		}(i, id)
	}
	wg.Wait()

	conflicts := 0
	for _, err := range errs {
		if err != nil {
			require.ErrorIs(t, err, appErrors.ErrConflict)
			conflicts++
		}
	}
	assert.Equal(t, 1, conflicts)
}

func ptrInt64(v int64) *int64 {
	return &v
}
