package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/jmoiron/sqlx/types"
	"go.uber.org/zap"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type historyStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, entry *models.HistoryEntry) error
	ListByBooking(ctx context.Context, bookingID int64) ([]models.HistoryEntry, error)
}

// HistoryLog is the append-only audit sink for booking changes. Engines never read it back.
type HistoryLog struct {
	store  historyStore
	logger *zap.Logger
}

// NewHistoryLog constructs the log.
func NewHistoryLog(store historyStore, logger *zap.Logger) *HistoryLog {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &HistoryLog{store: store, logger: logger}
}

// Record appends one entry. exec may be a transaction so the entry commits with the change it describes.
func (h *HistoryLog) Record(ctx context.Context, exec sqlx.ExtContext, bookingID int64, kind string, actor models.ActorContext, before, after interface{}, reason string, at time.Time) error {
	beforeJSON, err := snapshot(before)
	if err != nil {
		return err
	}
	afterJSON, err := snapshot(after)
	if err != nil {
		return err
	}
	entry := &models.HistoryEntry{
		BookingID:  bookingID,
		ChangeKind: kind,
		ActorID:    actor.ID,
		ActorRole:  actor.Role,
		Before:     beforeJSON,
		After:      afterJSON,
		Reason:     optionalString(reason),
		RecordedAt: at.UTC(),
	}
	if err := h.store.Insert(ctx, exec, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record booking history")
	}
	return nil
}

// RecordChanges appends the entries produced by a transition in order.
func (h *HistoryLog) RecordChanges(ctx context.Context, exec sqlx.ExtContext, bookingID int64, actor models.ActorContext, changes []ChangeRecord, at time.Time) error {
	for _, change := range changes {
		var before, after interface{}
		if change.Before != nil {
			change.Before.ID = bookingID
			before = change.Before
		}
		if change.After != nil {
			change.After.ID = bookingID
			after = change.After
		}
		if err := h.Record(ctx, exec, bookingID, change.Kind, actor, before, after, change.Reason, at); err != nil {
			return err
		}
	}
	return nil
}

// List returns a booking's entries for external reporting.
func (h *HistoryLog) List(ctx context.Context, bookingID int64) ([]models.HistoryEntry, error) {
	entries, err := h.store.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load booking history")
	}
	return entries, nil
}

func snapshot(v interface{}) (*types.JSONText, error) {
	if v == nil {
		return nil, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, fmt.Sprintf("failed to encode history snapshot: %T", v))
	}
	text := types.JSONText(raw)
	return &text, nil
}
