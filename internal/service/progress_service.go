package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/internal/repository"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	"github.com/noah-isme/shootdesk-api/pkg/checkpoint"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type progressSessionStore interface {
	Get(ctx context.Context, operatorID, bookingID int64) (*models.ProgressSession, error)
	Save(ctx context.Context, session *models.ProgressSession) error
	Delete(ctx context.Context, operatorID, bookingID int64) error
}

type trackingStore interface {
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	ListForOperatorOnDate(ctx context.Context, operatorID int64, date string) ([]models.Booking, error)
	UpdateTracking(ctx context.Context, id int64, status string, actualStart, actualEnd *time.Time) error
}

type historyAppender interface {
	Record(ctx context.Context, exec sqlx.ExtContext, bookingID int64, kind string, actor models.ActorContext, before, after interface{}, reason string, at time.Time) error
}

// ProgressServiceConfig bundles the collaborators of ProgressService.
type ProgressServiceConfig struct {
	Sessions       progressSessionStore
	Bookings       trackingStore
	Locations      locationReader
	History        historyAppender
	Notifier       kindNotifier
	Signer         *checkpoint.Signer
	Metrics        *MetricsService
	GeofenceMeters float64
	Location       *time.Location
	Validator      *validator.Validate
	Logger         *zap.Logger
}

// ProgressService runs operators through their day's checkpoints.
type ProgressService struct {
	tracker  *ProgressTracker
	sessions progressSessionStore
	bookings trackingStore
	places   locationReader
	history  historyAppender
	notifier kindNotifier
	signer   *checkpoint.Signer
	metrics  *MetricsService
	radius   float64
	loc      *time.Location
	validate *validator.Validate
	logger   *zap.Logger
	now      func() time.Time
}

// NewProgressService constructs the service.
func NewProgressService(cfg ProgressServiceConfig) *ProgressService {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Location == nil {
		cfg.Location = time.UTC
	}
	if cfg.Validator == nil {
		cfg.Validator = validator.New()
	}
	return &ProgressService{
		tracker:  NewProgressTracker(),
		sessions: cfg.Sessions,
		bookings: cfg.Bookings,
		places:   cfg.Locations,
		history:  cfg.History,
		notifier: cfg.Notifier,
		signer:   cfg.Signer,
		metrics:  cfg.Metrics,
		radius:   cfg.GeofenceMeters,
		loc:      cfg.Location,
		validate: cfg.Validator,
		logger:   cfg.Logger,
		now:      time.Now,
	}
}

// Today lists the operator's bookings for date in order with their progress.
func (s *ProgressService) Today(ctx context.Context, actor models.ActorContext, date string) ([]dto.ProgressView, error) {
	if actor.OperatorID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators track progress")
	}
	if date == "" {
		date = calendar.FormatDate(s.now().In(s.loc))
	} else if _, err := calendar.ParseDate(date); err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	day, err := s.bookings.ListForOperatorOnDate(ctx, *actor.OperatorID, date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	views := make([]dto.ProgressView, 0, len(day))
	for i := range day {
		session, err := s.session(ctx, *actor.OperatorID, &day[i], i, len(day))
		if err != nil {
			return nil, err
		}
		views = append(views, s.view(&day[i], session))
	}
	return views, nil
}

// Get returns the operator's progress on one booking.
func (s *ProgressService) Get(ctx context.Context, actor models.ActorContext, bookingID int64) (*dto.ProgressView, error) {
	booking, position, total, err := s.locate(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	session, err := s.session(ctx, *actor.OperatorID, booking, position, total)
	if err != nil {
		return nil, err
	}
	view := s.view(booking, session)
	return &view, nil
}

// Act performs one checkpoint action for the operator assigned to the booking.
func (s *ProgressService) Act(ctx context.Context, actor models.ActorContext, bookingID int64, req dto.ProgressActionRequest) (*dto.ProgressView, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid progress action")
	}
	booking, position, total, err := s.locate(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	session, err := s.session(ctx, *actor.OperatorID, booking, position, total)
	if err != nil {
		return nil, err
	}
	action := models.ProgressAction(req.Action)
	now := s.now().UTC().Truncate(time.Microsecond)

	if action == models.ProgressActionCheckpointScan {
		if err := s.verifyScan(ctx, booking, req, now); err != nil {
			return nil, err
		}
	}
	next, err := s.tracker.Advance(*session, action, req.ProofRef, now)
	if err != nil {
		return nil, err
	}

	var actualStart, actualEnd *time.Time
	switch action {
	case models.ProgressActionStart:
		actualStart = &now
	case models.ProgressActionFinish:
		actualEnd = &now
	}
	if err := s.bookings.UpdateTracking(ctx, booking.ID, string(next.State), actualStart, actualEnd); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mirror tracking status")
	}

	// The booking row is canonical from here on; a stale session is reconciled on the next read.
	if next.State == models.ProgressFinished {
		err = s.discardDay(ctx, next.OperatorID, booking)
	} else {
		err = s.sessions.Save(ctx, next)
	}
	if err != nil {
		s.logger.Warn("failed to store progress session",
			zap.Int64("booking_id", booking.ID),
			zap.String("state", string(next.State)),
			zap.Error(err))
	}
	if s.history != nil {
		before := map[string]interface{}{"tracking_status": session.State}
		after := map[string]interface{}{"tracking_status": next.State, "action": action}
		if err := s.history.Record(ctx, nil, booking.ID, models.ChangeTracking, actor, before, after, "", now); err != nil {
			s.logger.Warn("failed to record tracking history", zap.Int64("booking_id", booking.ID), zap.Error(err))
		}
	}
	if action == models.ProgressActionCheckpointScan && s.notifier != nil {
		s.notifier.Notify(NotifyCheckpointScan, booking, actor)
	}

	status := string(next.State)
	booking.TrackingStatus = &status
	view := s.view(booking, next)
	return &view, nil
}

// IssueToken returns the kiosk token for a location at the current minute.
func (s *ProgressService) IssueToken(ctx context.Context, actor models.ActorContext, locationID string) (*dto.CheckpointTokenResponse, error) {
	if !actor.Privileged() {
		return nil, appErrors.ErrForbidden
	}
	if _, err := s.places.GetByID(ctx, locationID); err != nil {
		return nil, mapLocationError(err)
	}
	now := s.now().UTC()
	token, err := s.signer.Issue(locationID, now)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to issue checkpoint token")
	}
	issued := now.Truncate(time.Minute)
	return &dto.CheckpointTokenResponse{
		LocationID: locationID,
		Token:      token,
		IssuedAt:   issued,
		ExpiresAt:  issued.Add(2 * time.Minute),
	}, nil
}

func (s *ProgressService) verifyScan(ctx context.Context, booking *models.Booking, req dto.ProgressActionRequest, now time.Time) error {
	reject := func(reason string) error {
		s.metrics.RecordCheckpointScan(reason)
		return appErrors.WithDetails(appErrors.ErrCheckpointRejected, fmt.Sprintf("checkpoint scan rejected: %s", reason),
			map[string]interface{}{"reason": reason})
	}
	if s.signer == nil {
		return reject("unavailable")
	}
	claims, err := s.signer.Verify(req.Token, now)
	switch {
	case errors.Is(err, checkpoint.ErrOutsideWindow):
		return reject("expired")
	case err != nil:
		return reject("invalid_token")
	}
	if claims.LocationID != booking.LocationID {
		return reject("wrong_location")
	}
	if req.Latitude != nil && req.Longitude != nil && s.radius > 0 {
		place, err := s.places.GetByID(ctx, booking.LocationID)
		if err != nil {
			return mapLocationError(err)
		}
		if place.HasCoordinates() && !checkpoint.WithinRadius(*place.Latitude, *place.Longitude, *req.Latitude, *req.Longitude, s.radius) {
			return reject("outside_geofence")
		}
	}
	s.metrics.RecordCheckpointScan("accepted")
	return nil
}

// locate loads the booking, checks it belongs to the operator and finds its place in their day.
func (s *ProgressService) locate(ctx context.Context, actor models.ActorContext, bookingID int64) (*models.Booking, int, int, error) {
	if actor.OperatorID == nil {
		return nil, 0, 0, appErrors.Clone(appErrors.ErrForbidden, "only operators track progress")
	}
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, 0, 0, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	if booking.AssignedOperatorID == nil || *booking.AssignedOperatorID != *actor.OperatorID {
		return nil, 0, 0, appErrors.Clone(appErrors.ErrForbidden, "booking is not assigned to you")
	}
	if !booking.IsActive || !booking.ApprovalStatus.Committed() {
		return nil, 0, 0, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("booking is %s", booking.ApprovalStatus))
	}
	day, err := s.bookings.ListForOperatorOnDate(ctx, *actor.OperatorID, booking.Date)
	if err != nil {
		return nil, 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load day schedule")
	}
	for i := range day {
		if day[i].ID == booking.ID {
			return booking, i, len(day), nil
		}
	}
	return booking, len(day), len(day) + 1, nil
}

// session loads the stored session or rebuilds one from the booking's mirrored tracking status.
func (s *ProgressService) session(ctx context.Context, operatorID int64, booking *models.Booking, position, total int) (*models.ProgressSession, error) {
	session, err := s.sessions.Get(ctx, operatorID, booking.ID)
	switch {
	case errors.Is(err, repository.ErrSessionNotFound):
		state := models.ProgressPending
		if booking.TrackingStatus != nil && models.ProgressState(*booking.TrackingStatus).Valid() {
			state = models.ProgressState(*booking.TrackingStatus)
		}
		session = &models.ProgressSession{
			BookingID:  booking.ID,
			OperatorID: operatorID,
			Date:       booking.Date,
			State:      state,
			Actions:    map[models.ProgressAction]time.Time{},
		}
	case err != nil:
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress session")
	case booking.TrackingStatus != nil && models.ProgressState(*booking.TrackingStatus).Valid():
		session.State = models.ProgressState(*booking.TrackingStatus)
	}
	session.Position = position
	session.TotalForDay = total
	return session, nil
}

// discardDay drops the sessions of every booking in the operator's day once the last one is finished.
func (s *ProgressService) discardDay(ctx context.Context, operatorID int64, last *models.Booking) error {
	day, err := s.bookings.ListForOperatorOnDate(ctx, operatorID, last.Date)
	if err != nil {
		return err
	}
	ids := []int64{last.ID}
	for _, b := range day {
		if b.ID != last.ID {
			ids = append(ids, b.ID)
		}
	}
	for _, id := range ids {
		if err := s.sessions.Delete(ctx, operatorID, id); err != nil {
			return err
		}
	}
	return nil
}

func (s *ProgressService) view(booking *models.Booking, session *models.ProgressSession) dto.ProgressView {
	return dto.ProgressView{
		BookingID:        booking.ID,
		Date:             booking.Date,
		StartTime:        booking.StartTime,
		EndTime:          booking.EndTime,
		LocationID:       booking.LocationID,
		Position:         session.Position,
		TotalForDay:      session.TotalForDay,
		State:            session.State,
		Actions:          session.Actions,
		AvailableActions: s.tracker.AvailableActions(session.Position, session.TotalForDay, session.State),
	}
}

func mapLocationError(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return appErrors.Clone(appErrors.ErrNotFound, "location not found")
	}
	return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load location")
}
