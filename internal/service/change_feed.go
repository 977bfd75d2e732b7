package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/calendar"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type changeFeedStore interface {
	Publish(ctx context.Context, payload []byte, channels ...string) error
	Subscribe(ctx context.Context, channels ...string) (<-chan []byte, func() error, error)
}

// BookingChangeEvent tells subscribers a booking moved so they can refetch it.
type BookingChangeEvent struct {
	BookingID  int64                 `json:"booking_id"`
	Kind       string                `json:"kind"`
	Status     models.ApprovalStatus `json:"approval_status"`
	Date       string                `json:"date"`
	WeekStart  string                `json:"week_start"`
	ActorID    string                `json:"actor_id"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// WeekChannel names the channel carrying changes for the week starting on weekStart.
func WeekChannel(weekStart string) string {
	return "bookings:week:" + weekStart
}

// BookingChannel names the channel carrying changes for one booking.
func BookingChannel(id int64) string {
	return fmt.Sprintf("bookings:booking:%d", id)
}

// ChangeFeed publishes booking changes for push refresh. Publishing is best effort.
type ChangeFeed struct {
	store  changeFeedStore
	logger *zap.Logger
}

// NewChangeFeed constructs the feed. A nil store disables publishing.
func NewChangeFeed(store changeFeedStore, logger *zap.Logger) *ChangeFeed {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ChangeFeed{store: store, logger: logger}
}

// Publish announces a change to the booking channel and to each week the booking touched.
func (f *ChangeFeed) Publish(ctx context.Context, kind string, booking *models.Booking, actor models.ActorContext, previousDate string, at time.Time) {
	if f == nil || f.store == nil || booking == nil {
		return
	}
	event := BookingChangeEvent{
		BookingID:  booking.ID,
		Kind:       kind,
		Status:     booking.ApprovalStatus,
		Date:       booking.Date,
		ActorID:    actor.ID,
		OccurredAt: at.UTC(),
	}
	channels := []string{BookingChannel(booking.ID)}
	seen := map[string]bool{}
	for _, raw := range []string{booking.Date, previousDate} {
		date, err := calendar.ParseDate(raw)
		if err != nil {
			continue
		}
		week := calendar.FormatDate(calendar.WeekStart(date))
		if seen[week] {
			continue
		}
		seen[week] = true
		if event.WeekStart == "" {
			event.WeekStart = week
		}
		channels = append(channels, WeekChannel(week))
	}
	payload, err := json.Marshal(event)
	if err != nil {
		f.logger.Warn("failed to encode change event", zap.Int64("booking_id", booking.ID), zap.Error(err))
		return
	}
	if err := f.store.Publish(ctx, payload, channels...); err != nil {
		f.logger.Warn("failed to publish booking change", zap.Int64("booking_id", booking.ID), zap.Strings("channels", channels), zap.Error(err))
	}
}

// Subscribe streams events for a week and optionally a single booking until ctx ends.
func (f *ChangeFeed) Subscribe(ctx context.Context, weekStart string, bookingID int64) (<-chan BookingChangeEvent, func() error, error) {
	if f == nil || f.store == nil {
		return nil, nil, appErrors.Clone(appErrors.ErrInternal, "change feed unavailable")
	}
	var channels []string
	if weekStart != "" {
		date, err := calendar.ParseDate(weekStart)
		if err != nil {
			return nil, nil, appErrors.Clone(appErrors.ErrValidation, err.Error())
		}
		channels = append(channels, WeekChannel(calendar.FormatDate(calendar.WeekStart(date))))
	}
	if bookingID > 0 {
		channels = append(channels, BookingChannel(bookingID))
	}
	if len(channels) == 0 {
		return nil, nil, appErrors.Clone(appErrors.ErrValidation, "week or booking_id is required")
	}
	raw, closeFn, err := f.store.Subscribe(ctx, channels...)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to subscribe to booking changes")
	}
	out := make(chan BookingChangeEvent, 16)
	go func() {
		defer close(out)
		for payload := range raw {
			var event BookingChangeEvent
			if err := json.Unmarshal(payload, &event); err != nil {
				f.logger.Debug("dropping malformed change event", zap.Error(err))
				continue
			}
			select {
			case out <- event:
			case <-ctx.Done():
				return
			}
		}
	}()
	return out, closeFn, nil
}
