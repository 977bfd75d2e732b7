package service

import (
	"time"

	"github.com/noah-isme/shootdesk-api/pkg/calendar"
)

var deadlineClock = calendar.MustClock("17:00")

// ApprovalLockPolicy decides whether requests for a target week are still accepted.
type ApprovalLockPolicy struct {
	loc *time.Location
}

// NewApprovalLockPolicy builds a policy evaluating deadlines in loc.
func NewApprovalLockPolicy(loc *time.Location) *ApprovalLockPolicy {
	if loc == nil {
		loc = time.UTC
	}
	return &ApprovalLockPolicy{loc: loc}
}

// Deadline returns 17:00 local time on the Tuesday before the target week, six days before its Monday.
func (p *ApprovalLockPolicy) Deadline(targetWeekStart time.Time) time.Time {
	monday := calendar.WeekStart(targetWeekStart)
	return deadlineClock.On(monday.AddDate(0, 0, -6), p.loc)
}

// IsLocked reports whether now is strictly after the target week's deadline.
func (p *ApprovalLockPolicy) IsLocked(targetWeekStart, now time.Time) bool {
	return now.After(p.Deadline(targetWeekStart))
}
