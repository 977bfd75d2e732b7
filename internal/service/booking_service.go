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
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type bookingStore interface {
	Create(ctx context.Context, exec sqlx.ExtContext, b *models.Booking) error
	GetByID(ctx context.Context, id int64) (*models.Booking, error)
	List(ctx context.Context, filter models.BookingFilter) ([]models.Booking, int, error)
	UpdateIfUnchanged(ctx context.Context, exec sqlx.ExtContext, b *models.Booking, expectedStatus models.ApprovalStatus, expectedUpdatedAt time.Time) error
}

type txProvider interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
}

type historyRecorder interface {
	Record(ctx context.Context, exec sqlx.ExtContext, bookingID int64, kind string, actor models.ActorContext, before, after interface{}, reason string, at time.Time) error
	RecordChanges(ctx context.Context, exec sqlx.ExtContext, bookingID int64, actor models.ActorContext, changes []ChangeRecord, at time.Time) error
	List(ctx context.Context, bookingID int64) ([]models.HistoryEntry, error)
}

type transitionNotifier interface {
	NotifyTransition(action models.BookingAction, booking *models.Booking, actor models.ActorContext)
}

type bookingChangePublisher interface {
	Publish(ctx context.Context, kind string, booking *models.Booking, actor models.ActorContext, previousDate string, at time.Time)
}

// BookingService persists state-machine transitions together with their history.
type BookingService struct {
	repo      bookingStore
	tx        txProvider
	machine   *ScheduleStateMachine
	history   historyRecorder
	notifier  transitionNotifier
	feed      bookingChangePublisher
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

// BookingServiceOption configures optional collaborators.
type BookingServiceOption func(*BookingService)

// WithBookingNotifier dispatches chat notifications after commits.
func WithBookingNotifier(n transitionNotifier) BookingServiceOption {
	return func(s *BookingService) {
		s.notifier = n
	}
}

// WithBookingChangeFeed publishes change events after commits.
func WithBookingChangeFeed(feed bookingChangePublisher) BookingServiceOption {
	return func(s *BookingService) {
		s.feed = feed
	}
}

// WithBookingMetrics records transition outcomes.
func WithBookingMetrics(metrics *MetricsService) BookingServiceOption {
	return func(s *BookingService) {
		s.metrics = metrics
	}
}

// WithBookingClock overrides the time source.
func WithBookingClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) {
		if now != nil {
			s.now = now
		}
	}
}

// NewBookingService constructs the service.
func NewBookingService(repo bookingStore, tx txProvider, machine *ScheduleStateMachine, history historyRecorder, validate *validator.Validate, logger *zap.Logger, opts ...BookingServiceOption) *BookingService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = validator.New()
	}
	if machine == nil {
		machine = NewScheduleStateMachine(nil)
	}
	svc := &BookingService{
		repo:      repo,
		tx:        tx,
		machine:   machine,
		history:   history,
		validator: validate,
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// clock returns now at database precision so conditional updates match what was read back.
func (s *BookingService) clock() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// Create stores a new draft, or a submitted request when req.Submit is set.
func (s *BookingService) Create(ctx context.Context, actor models.ActorContext, req dto.CreateBookingRequest) (*TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	fields, err := req.ToFields()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking details")
	}
	action := models.ActionSaveDraft
	if req.Submit {
		action = models.ActionRequest
	}
	return s.apply(ctx, TransitionInput{Actor: actor, Action: action, Proposed: &fields, Reason: req.Reason})
}

// Get returns a booking visible to actor together with its available actions.
func (s *BookingService) Get(ctx context.Context, actor models.ActorContext, id int64) (*dto.BookingView, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, booking); err != nil {
		return nil, err
	}
	return &dto.BookingView{Booking: *booking, AvailableActions: s.machine.AvailableActions(actor, booking)}, nil
}

// List returns bookings scoped to what actor may see.
func (s *BookingService) List(ctx context.Context, actor models.ActorContext, query dto.BookingQuery) ([]models.Booking, *models.Pagination, error) {
	filter := models.BookingFilter{
		Date:         query.Date,
		RequestedBy:  query.RequestedBy,
		OperatorID:   query.OperatorID,
		ActiveOnly:   query.ActiveOnly,
		UpdatedSince: query.UpdatedSince,
		Page:         query.Page,
		PageSize:     query.PageSize,
	}
	if query.Week != "" {
		week, err := calendar.ParseDate(query.Week)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		filter.WeekStart = calendar.FormatDate(calendar.WeekStart(week))
	}
	if query.Date != "" {
		if _, err := calendar.ParseDate(query.Date); err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	for _, raw := range query.Status {
		status := models.ApprovalStatus(raw)
		if !status.Valid() {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown status %q", raw))
		}
		filter.Statuses = append(filter.Statuses, status)
	}

	switch {
	case actor.Privileged():
	case actor.Role == models.RoleRequester:
		filter.RequestedBy = actor.ID
	case actor.Role == models.RoleOperator && actor.OperatorID != nil:
		filter.OperatorID = actor.OperatorID
	default:
		return nil, nil, appErrors.ErrForbidden
	}

	bookings, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list bookings")
	}
	page := filter.Page
	if page <= 0 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 || size > 500 {
		size = 200
	}
	return bookings, &models.Pagination{Page: page, PageSize: size, TotalCount: total}, nil
}

// UpdateDraft edits the content of a pending booking.
func (s *BookingService) UpdateDraft(ctx context.Context, actor models.ActorContext, id int64, req dto.BookingFieldsRequest) (*TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking payload")
	}
	fields, err := req.ToFields()
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking details")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, TransitionInput{Actor: actor, Action: models.ActionSaveDraft, Current: current, Proposed: &fields})
}

// ApplyAction runs one workflow action against a stored booking.
func (s *BookingService) ApplyAction(ctx context.Context, actor models.ActorContext, id int64, req dto.BookingActionRequest) (*TransitionResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid action payload")
	}
	var proposed *models.BookingFields
	if req.Changes != nil {
		fields, err := req.Changes.ToFields()
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid booking details")
		}
		proposed = &fields
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.apply(ctx, TransitionInput{Actor: actor, Action: models.BookingAction(req.Action), Current: current, Proposed: proposed, Reason: req.Reason})
}

// CopyWeek duplicates the active bookings of one week into another as pending drafts.
// Drafts are never lock-gated so copying into a closed week is allowed.
func (s *BookingService) CopyWeek(ctx context.Context, actor models.ActorContext, req dto.CopyWeekRequest) ([]models.Booking, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid copy payload")
	}
	source, err := calendar.ParseDate(req.SourceWeek)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	target, err := calendar.ParseDate(req.TargetWeek)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	source, target = calendar.WeekStart(source), calendar.WeekStart(target)
	if source.Equal(target) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "source and target weeks must differ")
	}

	filter := models.BookingFilter{WeekStart: calendar.FormatDate(source), ActiveOnly: true, PageSize: 500}
	switch {
	case actor.Role == models.RoleRequester:
		filter.RequestedBy = actor.ID
	case actor.Privileged():
		filter.RequestedBy = req.RequestedBy
	default:
		return nil, appErrors.ErrForbidden
	}
	originals, _, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load source week")
	}

	shift := int(target.Sub(source).Hours() / 24)
	copies := make([]models.Booking, 0, len(originals))
	for i := range originals {
		original := originals[i]
		fields := original.Fields()
		date, err := calendar.ParseDate(original.Date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "stored booking date is unreadable")
		}
		fields.Date = calendar.FormatDate(date.AddDate(0, 0, shift))
		result, err := s.apply(ctx, TransitionInput{Actor: actor, Action: models.ActionSaveDraft, Proposed: &fields, OnBehalfOf: original.RequestedBy})
		if err != nil {
			return copies, err
		}
		copies = append(copies, *result.Booking)
	}
	s.logger.Info("week copied",
		zap.String("actor_id", actor.ID),
		zap.String("source_week", calendar.FormatDate(source)),
		zap.String("target_week", calendar.FormatDate(target)),
		zap.Int("count", len(copies)))
	return copies, nil
}

// Locate returns where a booking sits relative to the viewer's current week.
func (s *BookingService) Locate(ctx context.Context, actor models.ActorContext, id int64, current string) (*dto.LocateResponse, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, booking); err != nil {
		return nil, err
	}
	date, err := calendar.ParseDate(booking.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "stored booking date is unreadable")
	}
	viewer := calendar.DateOnly(s.now())
	if current != "" {
		if viewer, err = calendar.ParseDate(current); err != nil {
			return nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
	}
	return &dto.LocateResponse{
		BookingID:  booking.ID,
		Date:       booking.Date,
		WeekStart:  calendar.FormatDate(calendar.WeekStart(date)),
		WeekOffset: calendar.WeekOffset(date, viewer),
	}, nil
}

// History returns the audit trail of a booking visible to actor.
func (s *BookingService) History(ctx context.Context, actor models.ActorContext, id int64) ([]models.HistoryEntry, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := canView(actor, booking); err != nil {
		return nil, err
	}
	return s.history.List(ctx, id)
}

// Load returns a stored booking, mapping a missing row to NotFound.
func (s *BookingService) Load(ctx context.Context, id int64) (*models.Booking, error) {
	return s.load(ctx, id)
}

// CommitChange writes next over current with a single history entry of kind.
// It serves changes outside the approval workflow such as operator assignment.
func (s *BookingService) CommitChange(ctx context.Context, actor models.ActorContext, current, next *models.Booking, kind, reason string) (*models.Booking, error) {
	now := s.clock()
	next.UpdatedAt = now
	if err := checkInvariants(next); err != nil {
		return nil, err
	}
	result := &TransitionResult{
		Outcome: OutcomeApplied,
		From:    current.ApprovalStatus,
		To:      next.ApprovalStatus,
		Booking: next,
		Changes: []ChangeRecord{{Kind: kind, Before: current.Clone(), After: next.Clone(), Reason: reason}},
	}
	if err := s.persist(ctx, actor, current, result, now); err != nil {
		return nil, err
	}
	if s.feed != nil {
		s.feed.Publish(ctx, kind, next, actor, current.Date, now)
	}
	return next, nil
}

func (s *BookingService) load(ctx context.Context, id int64) (*models.Booking, error) {
	booking, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "booking not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking")
	}
	return booking, nil
}

func canView(actor models.ActorContext, booking *models.Booking) error {
	switch {
	case actor.Privileged():
		return nil
	case actor.Role == models.RoleRequester && booking.RequestedBy == actor.ID:
		return nil
	case actor.Role == models.RoleOperator && actor.OperatorID != nil &&
		booking.AssignedOperatorID != nil && *booking.AssignedOperatorID == *actor.OperatorID:
		return nil
	}
	return appErrors.ErrForbidden
}

// apply runs the state machine and, for applied outcomes, persists the booking and its history in one transaction.
func (s *BookingService) apply(ctx context.Context, in TransitionInput) (*TransitionResult, error) {
	in.Now = s.clock()
	result, err := s.machine.Apply(in)
	if err != nil {
		s.metrics.RecordTransition(string(in.Action), appErrors.FromError(err).Code)
		if appErrors.HasCode(err, appErrors.ErrInvariant.Code) {
			s.logger.Error("booking invariant violated", zap.String("action", string(in.Action)), zap.Error(err))
		}
		return nil, err
	}
	if result.Outcome == OutcomeNoop {
		s.metrics.RecordTransition(string(in.Action), string(OutcomeNoop))
		return result, nil
	}
	if in.Action == models.ActionSaveDraft && in.Current != nil {
		for i := range result.Changes {
			result.Changes[i].Kind = models.ChangeDraftEdited
		}
	}

	if err := s.persist(ctx, in.Actor, in.Current, result, in.Now); err != nil {
		s.metrics.RecordTransition(string(in.Action), appErrors.FromError(err).Code)
		return nil, err
	}
	s.metrics.RecordTransition(string(in.Action), string(OutcomeApplied))

	previousDate := ""
	if in.Current != nil {
		previousDate = in.Current.Date
	}
	if result.Notify && s.notifier != nil {
		s.notifier.NotifyTransition(in.Action, result.Booking, in.Actor)
	}
	if s.feed != nil {
		s.feed.Publish(ctx, string(in.Action), result.Booking, in.Actor, previousDate, in.Now)
	}
	return result, nil
}

func (s *BookingService) persist(ctx context.Context, actor models.ActorContext, current *models.Booking, result *TransitionResult, now time.Time) (err error) {
	if s.tx == nil {
		return appErrors.Clone(appErrors.ErrInternal, "transaction provider missing")
	}
	tx, err := s.tx.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if current == nil {
		if err = s.repo.Create(ctx, tx, result.Booking); err != nil {
			err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create booking")
			return err
		}
	} else if err = s.repo.UpdateIfUnchanged(ctx, tx, result.Booking, current.ApprovalStatus, current.UpdatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			err = appErrors.WithDetails(appErrors.ErrConflict, "booking was changed by someone else",
				map[string]interface{}{"booking_id": current.ID, "expected_status": current.ApprovalStatus})
			return err
		}
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update booking")
		return err
	}

	if err = s.history.RecordChanges(ctx, tx, result.Booking.ID, actor, result.Changes, now); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		err = appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit booking change")
		return err
	}
	return nil
}
