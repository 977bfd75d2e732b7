package service

import (
	"fmt"
	"sort"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

// Exclusion reasons reported by the resolver.
const (
	ExcludedInactive            = "inactive"
	ExcludedLocationAccess      = "location_access"
	ExcludedTimeOverlap         = "time_overlap"
	ExcludedAvailabilityMissing = "availability_missing"
	ExcludedDayUnavailable      = "day_unavailable"
	ExcludedOutsideAvailability = "outside_availability"
)

// DefaultCollation orders display names when no language is configured.
var DefaultCollation = language.Korean

// ResolveInput is everything the resolver reads. It never loads data itself.
type ResolveInput struct {
	Booking       *models.Booking
	LocationGroup string
	Roster        []models.Operator
	DayBookings   []models.Booking
	Availability  []models.WeeklyAvailability
}

// Exclusion explains why an operator was filtered out.
type Exclusion struct {
	OperatorID int64  `json:"operator_id"`
	Reason     string `json:"reason"`
	BookingID  int64  `json:"booking_id,omitempty"`
}

// Resolution is the ranked eligible list plus the operators that were filtered out.
type Resolution struct {
	Eligible     []models.Operator `json:"eligible"`
	Excluded     []Exclusion       `json:"excluded"`
	RosterCached bool              `json:"-"`
}

// IsEligible reports whether operatorID made the eligible list.
func (r *Resolution) IsEligible(operatorID int64) bool {
	for _, op := range r.Eligible {
		if op.ID == operatorID {
			return true
		}
	}
	return false
}

// ExclusionFor returns the recorded exclusion for operatorID, if any.
func (r *Resolution) ExclusionFor(operatorID int64) (Exclusion, bool) {
	for _, ex := range r.Excluded {
		if ex.OperatorID == operatorID {
			return ex, true
		}
	}
	return Exclusion{}, false
}

// AssignmentResolver ranks the operators who may record a booking. It is read-only and safe for concurrent use.
type AssignmentResolver struct {
	tag language.Tag
}

// NewAssignmentResolver constructs a resolver ordering display names by the collation rules of tag.
func NewAssignmentResolver(tag language.Tag) *AssignmentResolver {
	return &AssignmentResolver{tag: tag}
}

type interval struct {
	start calendar.ClockTime
	end   calendar.ClockTime
}

func parseInterval(start, end string) (interval, error) {
	s, err := calendar.ParseClock(start)
	if err != nil {
		return interval{}, err
	}
	e, err := calendar.ParseClock(end)
	if err != nil {
		return interval{}, err
	}
	return interval{start: s, end: e}, nil
}

// Resolve filters the roster by location access, time overlap and freelance availability, then ranks it.
func (r *AssignmentResolver) Resolve(in ResolveInput) (*Resolution, error) {
	if in.Booking == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking is required")
	}
	slot, err := parseInterval(in.Booking.StartTime, in.Booking.EndTime)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "booking time is unreadable")
	}
	date, err := calendar.ParseDate(in.Booking.Date)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, "booking date is unreadable")
	}
	weekStart := calendar.FormatDate(calendar.WeekStart(date))
	dayKey := calendar.WeekdayKey(date)

	busy := make(map[int64]int64)
	for _, other := range in.DayBookings {
		if other.ID == in.Booking.ID || other.AssignedOperatorID == nil || !other.IsActive || !other.ApprovalStatus.Committed() {
			continue
		}
		if other.Date != in.Booking.Date {
			continue
		}
		span, err := parseInterval(other.StartTime, other.EndTime)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInvariant.Code, appErrors.ErrInvariant.Status, fmt.Sprintf("booking %d time is unreadable", other.ID))
		}
		if calendar.Overlaps(slot.start, slot.end, span.start, span.end) {
			if _, seen := busy[*other.AssignedOperatorID]; !seen {
				busy[*other.AssignedOperatorID] = other.ID
			}
		}
	}

	weekly := make(map[int64]models.WeeklyAvailability)
	for _, row := range in.Availability {
		if row.WeekStart == weekStart && row.Status == models.AvailabilitySubmitted {
			weekly[row.OperatorID] = row
		}
	}

	res := &Resolution{Eligible: make([]models.Operator, 0, len(in.Roster))}
	for _, op := range in.Roster {
		if reason, conflictID := r.exclude(op, in.LocationGroup, busy, weekly, dayKey, slot); reason != "" {
			res.Excluded = append(res.Excluded, Exclusion{OperatorID: op.ID, Reason: reason, BookingID: conflictID})
			continue
		}
		res.Eligible = append(res.Eligible, op)
	}

	collator := collate.New(r.tag)
	sort.SliceStable(res.Eligible, func(i, j int) bool {
		a, b := res.Eligible[i], res.Eligible[j]
		if a.Type.Priority() != b.Type.Priority() {
			return a.Type.Priority() < b.Type.Priority()
		}
		return collator.CompareString(a.DisplayName, b.DisplayName) < 0
	})
	return res, nil
}

func (r *AssignmentResolver) exclude(op models.Operator, group string, busy map[int64]int64, weekly map[int64]models.WeeklyAvailability, dayKey string, slot interval) (string, int64) {
	if !op.Active {
		return ExcludedInactive, 0
	}
	if !op.CanAccess(group) {
		return ExcludedLocationAccess, 0
	}
	if conflictID, ok := busy[op.ID]; ok {
		return ExcludedTimeOverlap, conflictID
	}
	if op.Type != models.OperatorFreelance {
		return "", 0
	}
	row, ok := weekly[op.ID]
	if !ok {
		return ExcludedAvailabilityMissing, 0
	}
	day, ok := row.Days[dayKey]
	if !ok || !day.Available {
		return ExcludedDayUnavailable, 0
	}
	window, err := parseInterval(day.StartTime, day.EndTime)
	if err != nil || !calendar.Contains(window.start, window.end, slot.start, slot.end) {
		return ExcludedOutsideAvailability, 0
	}
	return "", 0
}
