package service

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

type changeFeedStoreStub struct {
	payloads [][]byte
	channels [][]string
	stream   chan []byte
	err      error
}

func (s *changeFeedStoreStub) Publish(_ context.Context, payload []byte, channels ...string) error {
	if s.err != nil {
		return s.err
	}
	s.payloads = append(s.payloads, payload)
	s.channels = append(s.channels, channels)
	return nil
}

func (s *changeFeedStoreStub) Subscribe(_ context.Context, channels ...string) (<-chan []byte, func() error, error) {
	s.channels = append(s.channels, channels)
	return s.stream, func() error { return nil }, nil
}

func TestChangeFeedPublishesBookingAndWeeks(t *testing.T) {
	store := &changeFeedStoreStub{}
	feed := NewChangeFeed(store, nil)
	booking := &models.Booking{ID: 5, Date: "2025-12-17", ApprovalStatus: models.StatusApprovalRequested}

	feed.Publish(context.Background(), "approve_modification", booking, admin, "2025-12-10", time.Now())

	require.Len(t, store.channels, 1)
	assert.Equal(t, []string{"bookings:booking:5", "bookings:week:2025-12-15", "bookings:week:2025-12-08"}, store.channels[0])
	var event BookingChangeEvent
	require.NoError(t, json.Unmarshal(store.payloads[0], &event))
	assert.Equal(t, "2025-12-15", event.WeekStart)
	assert.Equal(t, admin.ID, event.ActorID)
}

func TestChangeFeedPublishFailureIsSwallowed(t *testing.T) {
	feed := NewChangeFeed(&changeFeedStoreStub{err: errors.New("redis down")}, nil)
	feed.Publish(context.Background(), "approve", &models.Booking{ID: 1, Date: "2025-12-10"}, admin, "", time.Now())

	var disabled *ChangeFeed
	disabled.Publish(context.Background(), "approve", &models.Booking{ID: 1}, admin, "", time.Now())
}

func TestChangeFeedSubscribeDecodesEvents(t *testing.T) {
	store := &changeFeedStoreStub{stream: make(chan []byte, 2)}
	feed := NewChangeFeed(store, nil)

	events, closeFn, err := feed.Subscribe(context.Background(), "2025-12-10", 0)
	require.NoError(t, err)
	defer closeFn()
	assert.Equal(t, []string{"bookings:week:2025-12-08"}, store.channels[0])

	store.stream <- []byte("not-json")
	store.stream <- []byte(`{"booking_id":9,"kind":"approve"}`)
	close(store.stream)

	event := <-events
	assert.Equal(t, int64(9), event.BookingID)
	_, open := <-events
	assert.False(t, open)

	_, _, err = feed.Subscribe(context.Background(), "", 0)
	require.Error(t, err)
}
