package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/pkg/jobs"
)

// Outbound notification kinds.
const (
	NotifySubmit         = "submit"
	NotifyWithdraw       = "withdraw"
	NotifyModifyRequest  = "modify-request"
	NotifyCancelRequest  = "cancel-request"
	NotifyDeleteRequest  = "delete-request"
	NotifyCheckpointScan = "checkpoint-scan"
	NotifyConfirmation   = "confirmation"
)

var actionNotifications = map[models.BookingAction]string{
	models.ActionRequest:             NotifySubmit,
	models.ActionWithdrawRequest:     NotifyWithdraw,
	models.ActionRequestModification: NotifyModifyRequest,
	models.ActionRequestCancellation: NotifyCancelRequest,
	models.ActionRequestDeletion:     NotifyDeleteRequest,
}

type notificationPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

// Notification is the payload published for chat delivery.
type Notification struct {
	Action     string                `json:"action"`
	BookingID  int64                 `json:"booking_id"`
	Status     models.ApprovalStatus `json:"approval_status"`
	Date       string                `json:"date"`
	StartTime  string                `json:"start_time"`
	EndTime    string                `json:"end_time"`
	LocationID string                `json:"location_id"`
	Subject    string                `json:"subject"`
	Instructor string                `json:"instructor"`
	OperatorID *int64                `json:"operator_id,omitempty"`
	ActorID    string                `json:"actor_id"`
	OccurredAt time.Time             `json:"occurred_at"`
}

// NotificationDispatcherConfig tunes the delivery worker pool.
type NotificationDispatcherConfig struct {
	Enabled    bool
	Workers    int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationDispatcher hands notifications to background workers. Delivery never blocks or fails the caller.
type NotificationDispatcher struct {
	publisher notificationPublisher
	queue     *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	enabled   bool
	now       func() time.Time
}

// NewNotificationDispatcher builds the dispatcher and its queue. Call Start before dispatching.
func NewNotificationDispatcher(publisher notificationPublisher, metrics *MetricsService, logger *zap.Logger, cfg NotificationDispatcherConfig) *NotificationDispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &NotificationDispatcher{
		publisher: publisher,
		metrics:   metrics,
		logger:    logger,
		enabled:   cfg.Enabled && publisher != nil,
		now:       time.Now,
	}
	d.queue = jobs.NewQueue("notifications", d.deliver, jobs.QueueConfig{
		Workers:    cfg.Workers,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return d
}

// Start launches the delivery workers.
func (d *NotificationDispatcher) Start(ctx context.Context) {
	if d == nil || !d.enabled {
		return
	}
	d.queue.Start(ctx)
}

// Stop drains the workers.
func (d *NotificationDispatcher) Stop() {
	if d == nil || !d.enabled {
		return
	}
	d.queue.Stop()
}

// NotifyTransition dispatches the notification tied to a booking action, if any.
func (d *NotificationDispatcher) NotifyTransition(action models.BookingAction, booking *models.Booking, actor models.ActorContext) {
	kind, ok := actionNotifications[action]
	if !ok {
		return
	}
	d.Notify(kind, booking, actor)
}

// Notify enqueues a notification. Failures are logged and swallowed.
func (d *NotificationDispatcher) Notify(kind string, booking *models.Booking, actor models.ActorContext) {
	if d == nil || booking == nil {
		return
	}
	if !d.enabled {
		d.logger.Debug("notification skipped", zap.String("action", kind), zap.Int64("booking_id", booking.ID))
		return
	}
	payload := Notification{
		Action:     kind,
		BookingID:  booking.ID,
		Status:     booking.ApprovalStatus,
		Date:       booking.Date,
		StartTime:  booking.StartTime,
		EndTime:    booking.EndTime,
		LocationID: booking.LocationID,
		Subject:    booking.Subject,
		Instructor: booking.Instructor,
		OperatorID: booking.AssignedOperatorID,
		ActorID:    actor.ID,
		OccurredAt: d.now().UTC(),
	}
	job := jobs.Job{ID: uuid.NewString(), Type: kind, Payload: payload}
	if err := d.queue.TryEnqueue(job); err != nil {
		d.metrics.RecordNotification(kind, "dropped")
		d.logger.Warn("notification dropped", zap.String("action", kind), zap.Int64("booking_id", booking.ID), zap.Error(err))
	}
}

func (d *NotificationDispatcher) deliver(ctx context.Context, job jobs.Job) error {
	payload, ok := job.Payload.(Notification)
	if !ok {
		d.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", fmt.Sprintf("%T", job.Payload)))
		return nil
	}
	sendCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := d.publisher.PublishJSON(sendCtx, "booking."+payload.Action, payload); err != nil {
		d.metrics.RecordNotification(payload.Action, "failed")
		return err
	}
	d.metrics.RecordNotification(payload.Action, "sent")
	return nil
}
