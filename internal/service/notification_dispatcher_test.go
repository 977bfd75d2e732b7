package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
)

type publisherStub struct {
	mu       sync.Mutex
	keys     []string
	payloads []Notification
	failures int
}

func (p *publisherStub) PublishJSON(_ context.Context, key string, v any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.failures > 0 {
		p.failures--
		return errors.New("broker unavailable")
	}
	p.keys = append(p.keys, key)
	p.payloads = append(p.payloads, v.(Notification))
	return nil
}

func (p *publisherStub) sent() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.keys...)
}

func TestNotificationDispatcherPublishesWithRetry(t *testing.T) {
	pub := &publisherStub{failures: 1}
	d := NewNotificationDispatcher(pub, NewMetricsService(), nil, NotificationDispatcherConfig{Enabled: true, Workers: 1, MaxRetries: 2, RetryDelay: 5 * time.Millisecond})
	d.Start(context.Background())
	defer d.Stop()

	booking := &models.Booking{ID: 9, ApprovalStatus: models.StatusApprovalRequested, Date: "2025-12-10"}
	d.NotifyTransition(models.ActionRequest, booking, requester)
	d.NotifyTransition(models.ActionApprove, booking, admin)

	require.Eventually(t, func() bool { return len(pub.sent()) == 1 }, 2*time.Second, 5*time.Millisecond)
	require.Equal(t, "booking.submit", pub.sent()[0])
	require.Equal(t, int64(9), pub.payloads[0].BookingID)
}

func TestNotificationDispatcherDisabledIsSilent(t *testing.T) {
	d := NewNotificationDispatcher(nil, nil, nil, NotificationDispatcherConfig{Enabled: true})
	d.Start(context.Background())
	d.Notify(NotifyConfirmation, &models.Booking{ID: 1}, admin)
	d.Stop()

	var nilDispatcher *NotificationDispatcher
	nilDispatcher.Notify(NotifySubmit, &models.Booking{ID: 1}, admin)
}
