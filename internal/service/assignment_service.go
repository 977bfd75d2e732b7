package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"hash/fnv"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

const (
	rosterCacheKey    = "roster:operators"
	assignLockStripes = 64
)

// assignLocks serialises assignment writes per operator and date within this process.
type assignLocks [assignLockStripes]sync.Mutex

func (l *assignLocks) lock(operatorID int64, date string) func() {
	h := fnv.New32a()
	fmt.Fprintf(h, "%d|%s", operatorID, date)
	m := &l[h.Sum32()%assignLockStripes]
	m.Lock()
	return m.Unlock
}

type bookingWriter interface {
	Load(ctx context.Context, id int64) (*models.Booking, error)
	CommitChange(ctx context.Context, actor models.ActorContext, current, next *models.Booking, kind, reason string) (*models.Booking, error)
}

type dayBookingReader interface {
	ListActiveOnDate(ctx context.Context, date string) ([]models.Booking, error)
}

type operatorReader interface {
	ListActive(ctx context.Context) ([]models.Operator, error)
	GetByID(ctx context.Context, id int64) (*models.Operator, error)
}

type locationReader interface {
	GetByID(ctx context.Context, id string) (*models.Location, error)
}

type submittedAvailabilityReader interface {
	ListSubmittedForWeek(ctx context.Context, weekStart string) ([]models.WeeklyAvailability, error)
}

type kindNotifier interface {
	Notify(kind string, booking *models.Booking, actor models.ActorContext)
}

// AssignmentService resolves eligible operators and writes assignments.
type AssignmentService struct {
	bookings     bookingWriter
	day          dayBookingReader
	operators    operatorReader
	locations    locationReader
	availability submittedAvailabilityReader
	resolver     *AssignmentResolver
	cache        *CacheService
	notifier     kindNotifier
	validator    *validator.Validate
	logger       *zap.Logger
	rosterTTL    time.Duration
	locks        *assignLocks
	now          func() time.Time
}

// AssignmentServiceConfig bundles the collaborators of AssignmentService.
type AssignmentServiceConfig struct {
	Bookings     bookingWriter
	DayBookings  dayBookingReader
	Operators    operatorReader
	Locations    locationReader
	Availability submittedAvailabilityReader
	Resolver     *AssignmentResolver
	Cache        *CacheService
	Notifier     kindNotifier
	Validator    *validator.Validate
	Logger       *zap.Logger
	RosterTTL    time.Duration
}

// NewAssignmentService constructs the service.
func NewAssignmentService(cfg AssignmentServiceConfig) *AssignmentService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	if cfg.Resolver == nil {
		cfg.Resolver = NewAssignmentResolver(DefaultCollation)
	}
	return &AssignmentService{
		bookings:     cfg.Bookings,
		day:          cfg.DayBookings,
		operators:    cfg.Operators,
		locations:    cfg.Locations,
		availability: cfg.Availability,
		resolver:     cfg.Resolver,
		cache:        cfg.Cache,
		notifier:     cfg.Notifier,
		validator:    cfg.Validator,
		logger:       cfg.Logger,
		rosterTTL:    cfg.RosterTTL,
		locks:        &assignLocks{},
		now:          time.Now,
	}
}

// Eligible returns the ranked operators who may record the booking.
func (s *AssignmentService) Eligible(ctx context.Context, actor models.ActorContext, bookingID int64) (*Resolution, error) {
	if !actor.Privileged() {
		return nil, appErrors.ErrForbidden
	}
	booking, err := s.bookings.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	return s.resolve(ctx, booking)
}

// Assign sets the booking's operator. The resolver is re-run at write time and an ineligible
// operator is rejected unless the caller explicitly overrides.
func (s *AssignmentService) Assign(ctx context.Context, actor models.ActorContext, bookingID int64, req dto.AssignOperatorRequest) (*models.Booking, error) {
	if !actor.Privileged() {
		return nil, appErrors.ErrForbidden
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid assignment payload")
	}
	current, err := s.bookings.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !current.IsActive {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("booking is %s", current.ApprovalStatus))
	}
	if _, err := s.operators.GetByID(ctx, req.OperatorID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "operator not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operator")
	}
	if current.AssignedOperatorID != nil && *current.AssignedOperatorID == req.OperatorID {
		return current, nil
	}

	unlock := s.locks.lock(req.OperatorID, current.Date)
	defer unlock()

	resolution, err := s.resolve(ctx, current)
	if err != nil {
		return nil, err
	}
	if _, excluded := resolution.ExclusionFor(req.OperatorID); resolution.RosterCached && !excluded && !resolution.IsEligible(req.OperatorID) {
		// the operator exists but the cached roster predates them
		s.invalidateRoster(ctx)
		if resolution, err = s.resolve(ctx, current); err != nil {
			return nil, err
		}
	}
	kind := models.ChangeAssigned
	if !resolution.IsEligible(req.OperatorID) {
		details := map[string]interface{}{"operator_id": req.OperatorID}
		if ex, ok := resolution.ExclusionFor(req.OperatorID); ok {
			details["reason"] = ex.Reason
			if ex.BookingID != 0 {
				details["conflicting_booking_id"] = ex.BookingID
			}
		}
		if !req.Override {
			return nil, appErrors.WithDetails(appErrors.ErrConflict, "operator is not eligible for this booking", details)
		}
		kind = models.ChangeAssignmentOverride
		s.logger.Warn("assignment override",
			zap.Int64("booking_id", current.ID),
			zap.Int64("operator_id", req.OperatorID),
			zap.String("actor_id", actor.ID),
			zap.Any("exclusion", details))
	}

	next := current.Clone()
	operatorID := req.OperatorID
	next.AssignedOperatorID = &operatorID
	next.OperatorConfirmedAt = nil
	return s.bookings.CommitChange(ctx, actor, current, next, kind, req.Reason)
}

// Unassign clears the booking's operator.
func (s *AssignmentService) Unassign(ctx context.Context, actor models.ActorContext, bookingID int64, reason string) (*models.Booking, error) {
	if !actor.Privileged() {
		return nil, appErrors.ErrForbidden
	}
	current, err := s.bookings.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if current.AssignedOperatorID == nil {
		return current, nil
	}
	next := current.Clone()
	next.AssignedOperatorID = nil
	next.OperatorConfirmedAt = nil
	return s.bookings.CommitChange(ctx, actor, current, next, models.ChangeUnassigned, reason)
}

// Acknowledge records that the assigned operator accepted the booking.
func (s *AssignmentService) Acknowledge(ctx context.Context, actor models.ActorContext, bookingID int64) (*models.Booking, error) {
	current, err := s.bookings.Load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if actor.OperatorID == nil || current.AssignedOperatorID == nil || *current.AssignedOperatorID != *actor.OperatorID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "booking is not assigned to you")
	}
	if current.OperatorConfirmedAt != nil {
		return current, nil
	}
	next := current.Clone()
	confirmedAt := s.now().UTC().Truncate(time.Microsecond)
	next.OperatorConfirmedAt = &confirmedAt
	saved, err := s.bookings.CommitChange(ctx, actor, current, next, models.ChangeAcknowledged, "")
	if err != nil {
		return nil, err
	}
	if s.notifier != nil {
		s.notifier.Notify(NotifyConfirmation, saved, actor)
	}
	return saved, nil
}

func (s *AssignmentService) invalidateRoster(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, rosterCacheKey); err != nil {
		s.logger.Warn("failed to drop stale roster", zap.Error(err))
	}
}

func (s *AssignmentService) resolve(ctx context.Context, booking *models.Booking) (*Resolution, error) {
	location, err := s.locations.GetByID(ctx, booking.LocationID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "location not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
	}
	roster, cached, err := s.roster(ctx)
	if err != nil {
		return nil, err
	}
	dayBookings, err := s.day.ListActiveOnDate(ctx, booking.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load bookings for date")
	}
	date, err := calendar.ParseDate(booking.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "stored booking date is unreadable")
	}
	availability, err := s.availability.ListSubmittedForWeek(ctx, calendar.FormatDate(calendar.WeekStart(date)))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	res, err := s.resolver.Resolve(ResolveInput{
		Booking:       booking,
		LocationGroup: location.GroupKey,
		Roster:        roster,
		DayBookings:   dayBookings,
		Availability:  availability,
	})
	if err != nil {
		return nil, err
	}
	res.RosterCached = cached
	return res, nil
}

func (s *AssignmentService) roster(ctx context.Context) ([]models.Operator, bool, error) {
	var cached []models.Operator
	if hit, _ := s.cache.Get(ctx, rosterCacheKey, &cached); hit {
		return cached, true, nil
	}
	roster, err := s.operators.ListActive(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load operator roster")
	}
	_ = s.cache.Set(ctx, rosterCacheKey, roster, s.rosterTTL)
	return roster, false, nil
}
