package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/text/language"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

func rosterOperator(id int64, name string, typ models.OperatorType) models.Operator {
	return models.Operator{ID: id, DisplayName: name, Type: typ, AccessPolicy: models.AccessAll, Active: true}
}

func wednesdayBooking(start, end string) *models.Booking {
	return &models.Booking{ID: 1, Date: "2025-12-10", StartTime: start, EndTime: end, ApprovalStatus: models.StatusApproved, IsActive: true}
}

func assigned(id, operatorID int64, start, end string) models.Booking {
	return models.Booking{ID: id, Date: "2025-12-10", StartTime: start, EndTime: end, ApprovalStatus: models.StatusApproved, IsActive: true, AssignedOperatorID: &operatorID}
}

func eligibleIDs(res *Resolution) []int64 {
	ids := make([]int64, 0, len(res.Eligible))
	for _, op := range res.Eligible {
		ids = append(ids, op.ID)
	}
	return ids
}

func TestResolverOverlapUsesHalfOpenIntervals(t *testing.T) {
	r := NewAssignmentResolver(language.Korean)
	roster := []models.Operator{rosterOperator(7, "Han", models.OperatorRegular)}

	res, err := r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "12:00:00"), Roster: roster, DayBookings: []models.Booking{assigned(2, 7, "11:00:00", "13:00:00")}})
	require.NoError(t, err)
	assert.Empty(t, res.Eligible)
	ex, ok := res.ExclusionFor(7)
	require.True(t, ok)
	assert.Equal(t, ExcludedTimeOverlap, ex.Reason)
	assert.Equal(t, int64(2), ex.BookingID)

	res, err = r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "12:00:00"), Roster: roster, DayBookings: []models.Booking{assigned(2, 7, "12:00:00", "14:00:00")}})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, eligibleIDs(res))
}

func TestResolverIgnoresSelfAndUncommittedBookings(t *testing.T) {
	r := NewAssignmentResolver(language.Und)
	roster := []models.Operator{rosterOperator(7, "Han", models.OperatorRegular)}
	self := assigned(1, 7, "10:00:00", "12:00:00")
	draft := assigned(3, 7, "10:00:00", "12:00:00")
	draft.ApprovalStatus = models.StatusPending
	cancelled := assigned(4, 7, "10:00:00", "12:00:00")
	cancelled.ApprovalStatus, cancelled.IsActive = models.StatusCancelled, false

	res, err := r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "12:00:00"), Roster: roster, DayBookings: []models.Booking{self, draft, cancelled}})
	require.NoError(t, err)
	assert.Equal(t, []int64{7}, eligibleIDs(res))
}

func TestResolverFreelanceAvailabilityContainment(t *testing.T) {
	r := NewAssignmentResolver(language.Und)
	roster := []models.Operator{rosterOperator(9, "Seo", models.OperatorFreelance)}
	availability := []models.WeeklyAvailability{{
		OperatorID: 9,
		WeekStart:  "2025-12-08",
		Status:     models.AvailabilitySubmitted,
		Days:       models.AvailabilityDays{"wed": {Available: true, StartTime: "09:00:00", EndTime: "15:00:00"}},
	}}

	res, err := r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "16:00:00"), Roster: roster, Availability: availability})
	require.NoError(t, err)
	assert.Empty(t, res.Eligible)
	ex, _ := res.ExclusionFor(9)
	assert.Equal(t, ExcludedOutsideAvailability, ex.Reason)

	res, err = r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "14:00:00"), Roster: roster, Availability: availability})
	require.NoError(t, err)
	assert.True(t, res.IsEligible(9))

	res, err = r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "14:00:00"), Roster: roster})
	require.NoError(t, err)
	ex, _ = res.ExclusionFor(9)
	assert.Equal(t, ExcludedAvailabilityMissing, ex.Reason)

	availability[0].Status = models.AvailabilityDraft
	res, err = r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "14:00:00"), Roster: roster, Availability: availability})
	require.NoError(t, err)
	assert.False(t, res.IsEligible(9))
}

func TestResolverLocationAccessAndOrdering(t *testing.T) {
	r := NewAssignmentResolver(language.English)
	declared := rosterOperator(5, "Cho", models.OperatorRegular)
	declared.AccessPolicy = models.AccessDeclared
	declared.LocationGroups = []string{"annex"}
	inactive := rosterOperator(6, "Ahn", models.OperatorStaffCoordinator)
	inactive.Active = false
	roster := []models.Operator{
		rosterOperator(1, "bora", models.OperatorDispatched),
		rosterOperator(2, "Yoon", models.OperatorRegular),
		rosterOperator(3, "Ahn", models.OperatorRegular),
		rosterOperator(4, "Park", models.OperatorStaffCoordinator),
		declared,
		inactive,
	}

	res, err := r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "12:00:00"), LocationGroup: "main", Roster: roster})
	require.NoError(t, err)
	assert.Equal(t, []int64{4, 3, 2, 1}, eligibleIDs(res))
	ex, _ := res.ExclusionFor(5)
	assert.Equal(t, ExcludedLocationAccess, ex.Reason)
	ex, _ = res.ExclusionFor(6)
	assert.Equal(t, ExcludedInactive, ex.Reason)

	res, err = r.Resolve(ResolveInput{Booking: wednesdayBooking("10:00:00", "12:00:00"), LocationGroup: "annex", Roster: []models.Operator{declared}})
	require.NoError(t, err)
	assert.True(t, res.IsEligible(5))
}
