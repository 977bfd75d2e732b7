package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type availabilityStore interface {
	Upsert(ctx context.Context, availability *models.WeeklyAvailability) error
	Get(ctx context.Context, operatorID int64, weekStart string) (*models.WeeklyAvailability, error)
}

// AvailabilityService manages freelance operators' weekly declarations.
type AvailabilityService struct {
	repo      availabilityStore
	validator *validator.Validate
	loc       *time.Location
	logger    *zap.Logger
	now       func() time.Time
}

// NewAvailabilityService constructs the service. loc decides when a week has begun.
func NewAvailabilityService(repo availabilityStore, validate *validator.Validate, loc *time.Location, logger *zap.Logger) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if loc == nil {
		loc = time.UTC
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AvailabilityService{repo: repo, validator: validate, loc: loc, logger: logger, now: time.Now}
}

// Upsert replaces the operator's own declaration for a week that has not started yet.
func (s *AvailabilityService) Upsert(ctx context.Context, actor models.ActorContext, req dto.AvailabilityRequest) (*models.WeeklyAvailability, error) {
	if actor.Role != models.RoleOperator || actor.OperatorID == nil {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only operators declare availability")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability payload")
	}
	week, err := calendar.ParseDate(req.WeekStart)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !calendar.IsMonday(week) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "week_start must be a Monday")
	}
	now := s.now()
	if !now.Before(calendar.MustClock("00:00").On(week, s.loc)) {
		return nil, appErrors.WithDetails(appErrors.ErrLocked, "availability can only be changed before the week begins",
			map[string]interface{}{"week_start": calendar.FormatDate(week)})
	}
	days, err := normaliseDays(req.Days)
	if err != nil {
		return nil, err
	}

	stamp := now.UTC().Truncate(time.Microsecond)
	availability := &models.WeeklyAvailability{
		OperatorID: *actor.OperatorID,
		WeekStart:  calendar.FormatDate(week),
		Days:       days,
		Status:     models.AvailabilityDraft,
		UpdatedAt:  stamp,
	}
	if req.Submit {
		availability.Status = models.AvailabilitySubmitted
		availability.SubmittedAt = &stamp
	}
	if err := s.repo.Upsert(ctx, availability); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save availability")
	}
	s.logger.Info("availability saved",
		zap.Int64("operator_id", availability.OperatorID),
		zap.String("week_start", availability.WeekStart),
		zap.String("status", string(availability.Status)))
	return availability, nil
}

// Get returns a week's declaration. Operators read their own; admins read anyone's.
func (s *AvailabilityService) Get(ctx context.Context, actor models.ActorContext, query dto.AvailabilityQuery) (*models.WeeklyAvailability, error) {
	if err := s.validator.Struct(query); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability query")
	}
	var operatorID int64
	switch {
	case actor.Privileged() && query.OperatorID != nil:
		operatorID = *query.OperatorID
	case actor.Role == models.RoleOperator && actor.OperatorID != nil:
		operatorID = *actor.OperatorID
	default:
		return nil, appErrors.ErrForbidden
	}
	week, err := calendar.ParseDate(query.Week)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	availability, err := s.repo.Get(ctx, operatorID, calendar.FormatDate(calendar.WeekStart(week)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "availability not declared for week")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	return availability, nil
}

func normaliseDays(in map[string]models.DayAvailability) (models.AvailabilityDays, error) {
	known := make(map[string]bool, len(calendar.WeekdayKeys))
	for _, key := range calendar.WeekdayKeys {
		known[key] = true
	}
	days := make(models.AvailabilityDays, len(calendar.WeekdayKeys))
	for key, day := range in {
		if !known[key] {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown weekday %q", key))
		}
		if !day.Available {
			days[key] = models.DayAvailability{}
			continue
		}
		start, err := calendar.ParseClock(day.StartTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: %v", key, err))
		}
		end, err := calendar.ParseClock(day.EndTime)
		if err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: %v", key, err))
		}
		if !start.Before(end) {
			return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s: end time must be after start time", key))
		}
		days[key] = models.DayAvailability{Available: true, StartTime: start.String(), EndTime: end.String()}
	}
	for _, key := range calendar.WeekdayKeys {
		if _, ok := days[key]; !ok {
			days[key] = models.DayAvailability{}
		}
	}
	return days, nil
}
