package service

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx/types"

	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

// Outcome distinguishes an applied transition from a recognised no-op.
type Outcome string

const (
	OutcomeApplied Outcome = "applied"
	OutcomeNoop    Outcome = "noop"
)

// TransitionInput describes one action against a booking. A nil Current creates a new booking.
// OnBehalfOf lets a privileged actor create a booking owned by another requester.
type TransitionInput struct {
	Actor      models.ActorContext
	Action     models.BookingAction
	Current    *models.Booking
	Proposed   *models.BookingFields
	Reason     string
	OnBehalfOf string
	Now        time.Time
}

// ChangeRecord is one history entry produced by a transition.
type ChangeRecord struct {
	Kind   string
	Before *models.Booking
	After  *models.Booking
	Reason string
}

// TransitionResult is the outcome of a validated transition.
type TransitionResult struct {
	Outcome Outcome
	Action  models.BookingAction
	From    models.ApprovalStatus
	To      models.ApprovalStatus
	Booking *models.Booking
	Changes []ChangeRecord
	Notify  bool
}

type actorScope int

const (
	scopeOwner actorScope = iota
	scopePrivileged
)

type transitionRule struct {
	from  []models.ApprovalStatus
	scope actorScope
	apply func(next *models.Booking, in TransitionInput) (Outcome, error)
}

var (
	nonTerminal = []models.ApprovalStatus{
		models.StatusPending,
		models.StatusApprovalRequested,
		models.StatusApproved,
		models.StatusConfirmed,
		models.StatusModificationRequested,
		models.StatusModificationApproved,
		models.StatusCancellationRequested,
		models.StatusDeletionRequested,
	}
	openRequests = []models.ApprovalStatus{
		models.StatusApprovalRequested,
		models.StatusModificationApproved,
		models.StatusModificationRequested,
		models.StatusCancellationRequested,
		models.StatusDeletionRequested,
	}
)

var transitionRules = map[models.BookingAction]transitionRule{
	models.ActionSaveDraft: {
		from:  []models.ApprovalStatus{models.StatusPending},
		scope: scopeOwner,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			if in.Proposed == nil {
				return "", appErrors.Clone(appErrors.ErrValidation, "booking fields are required")
			}
			next.ApplyFields(*in.Proposed)
			return OutcomeApplied, nil
		},
	},
	models.ActionRequest: {
		from:  []models.ApprovalStatus{models.StatusPending},
		scope: scopeOwner,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			if in.Proposed != nil {
				next.ApplyFields(*in.Proposed)
			}
			next.ApprovalStatus = models.StatusApprovalRequested
			next.RequestReason = optionalString(in.Reason)
			return OutcomeApplied, nil
		},
	},
	models.ActionWithdrawRequest: {
		from:  openRequests,
		scope: scopeOwner,
		apply: func(next *models.Booking, _ TransitionInput) (Outcome, error) {
			rollbackRequest(next)
			return OutcomeApplied, nil
		},
	},
	models.ActionRejectRequest: {
		from:  openRequests,
		scope: scopePrivileged,
		apply: func(next *models.Booking, _ TransitionInput) (Outcome, error) {
			rollbackRequest(next)
			return OutcomeApplied, nil
		},
	},
	models.ActionApprove: {
		from:  []models.ApprovalStatus{models.StatusPending, models.StatusApprovalRequested, models.StatusModificationApproved},
		scope: scopePrivileged,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			next.ApprovalStatus = models.StatusApproved
			next.ApprovedBy = optionalString(in.Actor.ID)
			return OutcomeApplied, nil
		},
	},
	models.ActionConfirm: {
		from:  []models.ApprovalStatus{models.StatusApproved},
		scope: scopePrivileged,
		apply: func(next *models.Booking, _ TransitionInput) (Outcome, error) {
			next.ApprovalStatus = models.StatusConfirmed
			return OutcomeApplied, nil
		},
	},
	models.ActionRequestModification: {
		from:  []models.ApprovalStatus{models.StatusApproved, models.StatusConfirmed},
		scope: scopeOwner,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			if in.Proposed == nil {
				return "", appErrors.Clone(appErrors.ErrValidation, "proposed changes are required")
			}
			raw, err := json.Marshal(in.Proposed)
			if err != nil {
				return "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to encode proposed changes")
			}
			pending := types.JSONText(raw)
			next.PendingChanges = &pending
			holdResume(next)
			next.ApprovalStatus = models.StatusModificationRequested
			next.ModificationReason = optionalString(in.Reason)
			return OutcomeApplied, nil
		},
	},
	models.ActionApproveModification: {
		from:  []models.ApprovalStatus{models.StatusModificationRequested},
		scope: scopePrivileged,
		apply: func(next *models.Booking, _ TransitionInput) (Outcome, error) {
			proposed, err := pendingFields(next)
			if err != nil {
				return "", err
			}
			if proposed == nil || proposed.Equal(next.Fields()) {
				return OutcomeNoop, nil
			}
			next.ApplyFields(*proposed)
			next.PendingChanges = nil
			next.ResumeStatus = nil
			next.ApprovalStatus = models.StatusApprovalRequested
			return OutcomeApplied, nil
		},
	},
	models.ActionRequestCancellation: {
		from:  []models.ApprovalStatus{models.StatusApprovalRequested, models.StatusModificationApproved, models.StatusApproved, models.StatusConfirmed},
		scope: scopeOwner,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			holdResume(next)
			next.ApprovalStatus = models.StatusCancellationRequested
			next.CancellationReason = optionalString(in.Reason)
			return OutcomeApplied, nil
		},
	},
	models.ActionRequestDeletion: {
		from:  []models.ApprovalStatus{models.StatusPending, models.StatusApprovalRequested, models.StatusModificationApproved, models.StatusApproved, models.StatusConfirmed},
		scope: scopeOwner,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			holdResume(next)
			next.ApprovalStatus = models.StatusDeletionRequested
			next.DeletionReason = optionalString(in.Reason)
			return OutcomeApplied, nil
		},
	},
	models.ActionApproveCancellation: {
		from:  []models.ApprovalStatus{models.StatusCancellationRequested},
		scope: scopePrivileged,
		apply: func(next *models.Booking, _ TransitionInput) (Outcome, error) {
			terminate(next, models.StatusCancelled)
			return OutcomeApplied, nil
		},
	},
	models.ActionApproveDeletion: {
		from:  []models.ApprovalStatus{models.StatusDeletionRequested},
		scope: scopePrivileged,
		apply: func(next *models.Booking, _ TransitionInput) (Outcome, error) {
			terminate(next, models.StatusDeleted)
			return OutcomeApplied, nil
		},
	},
	models.ActionForceCancel: {
		from:  nonTerminal,
		scope: scopePrivileged,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			if in.Reason != "" {
				next.CancellationReason = optionalString(in.Reason)
			}
			terminate(next, models.StatusCancelled)
			return OutcomeApplied, nil
		},
	},
	models.ActionForceDelete: {
		from:  nonTerminal,
		scope: scopePrivileged,
		apply: func(next *models.Booking, in TransitionInput) (Outcome, error) {
			if in.Reason != "" {
				next.DeletionReason = optionalString(in.Reason)
			}
			terminate(next, models.StatusDeleted)
			return OutcomeApplied, nil
		},
	},
}

// ScheduleStateMachine validates and applies approval-status transitions. It never touches storage.
type ScheduleStateMachine struct {
	lock *ApprovalLockPolicy
}

// NewScheduleStateMachine constructs the engine around a lock policy.
func NewScheduleStateMachine(lock *ApprovalLockPolicy) *ScheduleStateMachine {
	if lock == nil {
		lock = NewApprovalLockPolicy(time.UTC)
	}
	return &ScheduleStateMachine{lock: lock}
}

// Apply validates in and returns the next booking snapshot with the history it produces.
func (m *ScheduleStateMachine) Apply(in TransitionInput) (*TransitionResult, error) {
	if in.Now.IsZero() {
		in.Now = time.Now()
	}
	if in.Proposed != nil {
		normalised, err := NormaliseFields(*in.Proposed)
		if err != nil {
			return nil, err
		}
		in.Proposed = &normalised
	}
	if in.Current == nil {
		return m.create(in)
	}
	if err := checkInvariants(in.Current); err != nil {
		return nil, err
	}

	rule, ok := transitionRules[in.Action]
	if !ok {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", in.Action))
	}
	from := in.Current.ApprovalStatus
	if !containsStatus(rule.from, from) {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s is not allowed while booking is %s", in.Action, from),
			map[string]interface{}{"action": in.Action, "status": from})
	}
	if err := authorize(rule.scope, in.Actor, in.Current, in.Action); err != nil {
		return nil, err
	}
	if err := m.checkLock(in, in.Current.Date); err != nil {
		return nil, err
	}

	next := in.Current.Clone()
	outcome, err := rule.apply(next, in)
	if err != nil {
		return nil, err
	}
	result := &TransitionResult{Outcome: outcome, Action: in.Action, From: from, To: next.ApprovalStatus}
	if outcome == OutcomeNoop {
		result.Booking = in.Current.Clone()
		result.To = from
		return result, nil
	}

	next.UpdatedAt = in.Now
	if err := checkInvariants(next); err != nil {
		return nil, err
	}
	result.Booking = next
	result.Notify = in.Action.RequestType() || in.Action == models.ActionWithdrawRequest
	result.Changes = []ChangeRecord{{Kind: string(in.Action), Before: in.Current.Clone(), After: next.Clone(), Reason: in.Reason}}
	return result, nil
}

// AvailableActions lists the actions actor may attempt on booking, ignoring the deadline.
func (m *ScheduleStateMachine) AvailableActions(actor models.ActorContext, booking *models.Booking) []models.BookingAction {
	actions := make([]models.BookingAction, 0, len(models.BookingActions))
	for _, action := range models.BookingActions {
		rule := transitionRules[action]
		if !containsStatus(rule.from, booking.ApprovalStatus) {
			continue
		}
		if authorize(rule.scope, actor, booking, action) != nil {
			continue
		}
		actions = append(actions, action)
	}
	return actions
}

func (m *ScheduleStateMachine) create(in TransitionInput) (*TransitionResult, error) {
	if in.Action != models.ActionSaveDraft && in.Action != models.ActionRequest {
		return nil, appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("%s requires an existing booking", in.Action),
			map[string]interface{}{"action": in.Action})
	}
	if in.Actor.Role != models.RoleRequester && !in.Actor.Privileged() {
		return nil, appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("role %s may not create bookings", in.Actor.Role))
	}
	if in.Proposed == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking fields are required")
	}
	if err := m.checkLock(in, in.Proposed.Date); err != nil {
		return nil, err
	}

	owner := in.Actor.ID
	if in.Actor.Privileged() && in.OnBehalfOf != "" {
		owner = in.OnBehalfOf
	}
	draft := &models.Booking{
		ApprovalStatus: models.StatusPending,
		IsActive:       true,
		RequestedBy:    owner,
		CreatedAt:      in.Now,
		UpdatedAt:      in.Now,
	}
	draft.ApplyFields(*in.Proposed)
	result := &TransitionResult{
		Outcome: OutcomeApplied,
		Action:  in.Action,
		To:      models.StatusPending,
		Booking: draft,
		Changes: []ChangeRecord{{Kind: models.ChangeCreated, After: draft.Clone()}},
	}
	if in.Action == models.ActionRequest {
		requested := draft.Clone()
		requested.ApprovalStatus = models.StatusApprovalRequested
		requested.RequestReason = optionalString(in.Reason)
		result.Booking = requested
		result.To = requested.ApprovalStatus
		result.Notify = true
		result.Changes = append(result.Changes, ChangeRecord{Kind: string(models.ActionRequest), Before: draft.Clone(), After: requested.Clone(), Reason: in.Reason})
	}
	if err := checkInvariants(result.Booking); err != nil {
		return nil, err
	}
	return result, nil
}

// checkLock rejects request-type actions from non-privileged actors once the target week's deadline has passed.
// A modification is checked against both the current and the proposed week.
func (m *ScheduleStateMachine) checkLock(in TransitionInput, currentDate string) error {
	if !in.Action.RequestType() || in.Actor.Privileged() {
		return nil
	}
	dates := []string{currentDate}
	if in.Proposed != nil && in.Proposed.Date != currentDate {
		dates = append(dates, in.Proposed.Date)
	}
	for _, raw := range dates {
		date, err := calendar.ParseDate(raw)
		if err != nil {
			return appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		if m.lock.IsLocked(date, in.Now) {
			deadline := m.lock.Deadline(date)
			return appErrors.WithDetails(appErrors.ErrLocked,
				fmt.Sprintf("submissions for the week of %s closed at %s", calendar.FormatDate(calendar.WeekStart(date)), deadline.Format(time.RFC3339)),
				map[string]interface{}{
					"deadline":   deadline.Format(time.RFC3339),
					"week_start": calendar.FormatDate(calendar.WeekStart(date)),
				})
		}
	}
	return nil
}

func authorize(scope actorScope, actor models.ActorContext, booking *models.Booking, action models.BookingAction) error {
	if actor.Privileged() {
		return nil
	}
	if scope == scopePrivileged || actor.Role != models.RoleRequester {
		return appErrors.WithDetails(appErrors.ErrInvalidTransition,
			fmt.Sprintf("role %s may not %s", actor.Role, action),
			map[string]interface{}{"action": action, "role": actor.Role})
	}
	if booking.RequestedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrForbidden, "booking belongs to another requester")
	}
	return nil
}

// NormaliseFields validates business fields and renders dates and times in their wire formats.
func NormaliseFields(f models.BookingFields) (models.BookingFields, error) {
	if !f.Category.Valid() {
		return f, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown category %q", f.Category))
	}
	date, err := calendar.ParseDate(f.Date)
	if err != nil {
		return f, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	start, err := calendar.ParseClock(f.StartTime)
	if err != nil {
		return f, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	end, err := calendar.ParseClock(f.EndTime)
	if err != nil {
		return f, appErrors.Clone(appErrors.ErrValidation, err.Error())
	}
	if !start.Before(end) {
		return f, appErrors.Clone(appErrors.ErrValidation, "end time must be after start time")
	}
	f.LocationID = strings.TrimSpace(f.LocationID)
	if f.LocationID == "" {
		return f, appErrors.Clone(appErrors.ErrValidation, "location_id is required")
	}
	if f.Details == nil {
		f.Details, _ = models.DecodeDetails(f.Category, nil)
	} else if f.Details.Category() != f.Category {
		return f, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("%s details do not match category %s", f.Details.Category(), f.Category))
	}
	f.Date = calendar.FormatDate(date)
	f.StartTime = start.String()
	f.EndTime = end.String()
	f.Subject = strings.TrimSpace(f.Subject)
	f.Instructor = strings.TrimSpace(f.Instructor)
	return f, nil
}

func checkInvariants(b *models.Booking) error {
	if !b.ApprovalStatus.Valid() {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("booking %d carries unknown status %q", b.ID, b.ApprovalStatus))
	}
	if b.IsActive == b.ApprovalStatus.Terminal() {
		return appErrors.Clone(appErrors.ErrInvariant, fmt.Sprintf("booking %d is_active=%t with status %s", b.ID, b.IsActive, b.ApprovalStatus))
	}
	return nil
}

func pendingFields(b *models.Booking) (*models.BookingFields, error) {
	if b.PendingChanges == nil || len(*b.PendingChanges) == 0 {
		return nil, nil
	}
	var fields models.BookingFields
	if err := json.Unmarshal(*b.PendingChanges, &fields); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "stored modification is unreadable")
	}
	return &fields, nil
}

func holdResume(b *models.Booking) {
	resume := b.ApprovalStatus
	b.ResumeStatus = &resume
}

// rollbackRequest returns a booking to where it stood before the open request.
func rollbackRequest(b *models.Booking) {
	switch b.ApprovalStatus {
	case models.StatusApprovalRequested, models.StatusModificationApproved:
		b.ApprovalStatus = models.StatusPending
	default:
		b.ApprovalStatus = models.StatusApproved
		if b.ResumeStatus != nil && b.ResumeStatus.Valid() && !b.ResumeStatus.Terminal() {
			b.ApprovalStatus = *b.ResumeStatus
		}
	}
	b.ResumeStatus = nil
	b.PendingChanges = nil
}

func terminate(b *models.Booking, status models.ApprovalStatus) {
	b.ApprovalStatus = status
	b.IsActive = false
	b.ResumeStatus = nil
	b.PendingChanges = nil
}

func containsStatus(list []models.ApprovalStatus, s models.ApprovalStatus) bool {
	for _, candidate := range list {
		if candidate == s {
			return true
		}
	}
	return false
}

func optionalString(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}
