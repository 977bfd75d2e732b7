package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

// Bulk row results.
const (
	BulkApplied = "applied"
	BulkSkipped = "skipped"
	BulkFailed  = "failed"
)

const (
	defaultBulkConcurrency = 4
	defaultBulkMaxItems    = 200
)

type bookingActionApplier interface {
	ApplyAction(ctx context.Context, actor models.ActorContext, id int64, req dto.BookingActionRequest) (*TransitionResult, error)
}

// BulkApprovalConfig tunes the fan-out.
type BulkApprovalConfig struct {
	Concurrency int
	MaxItems    int
}

// BulkApprovalCoordinator applies one action to many bookings. Every row goes through the regular
// single-booking path so each keeps its own conditional update and history entry.
type BulkApprovalCoordinator struct {
	bookings bookingActionApplier
	metrics  *MetricsService
	logger   *zap.Logger
	cfg      BulkApprovalConfig
}

// NewBulkApprovalCoordinator constructs the coordinator.
func NewBulkApprovalCoordinator(bookings bookingActionApplier, metrics *MetricsService, logger *zap.Logger, cfg BulkApprovalConfig) *BulkApprovalCoordinator {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultBulkConcurrency
	}
	if cfg.MaxItems <= 0 {
		cfg.MaxItems = defaultBulkMaxItems
	}
	return &BulkApprovalCoordinator{bookings: bookings, metrics: metrics, logger: logger, cfg: cfg}
}

// Apply runs the action against every booking. Row failures are reported in the summary and never
// abort the remaining rows.
func (c *BulkApprovalCoordinator) Apply(ctx context.Context, actor models.ActorContext, req dto.BulkActionRequest) (*dto.BulkActionResponse, error) {
	ids := uniqueIDs(req.BookingIDs)
	if len(ids) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "booking_ids is required")
	}
	if len(ids) > c.cfg.MaxItems {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, fmt.Sprintf("at most %d bookings per bulk action", c.cfg.MaxItems),
			map[string]interface{}{"max_items": c.cfg.MaxItems, "received": len(ids)})
	}
	if !models.BookingAction(req.Action).Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown action %q", req.Action))
	}

	rows := make([]dto.BulkRowResult, len(ids))
	var g errgroup.Group
	g.SetLimit(c.cfg.Concurrency)
	for i, id := range ids {
		i, id := i, id
		g.Go(func() error {
			rows[i] = c.applyRow(ctx, actor, id, req)
			return nil
		})
	}
	_ = g.Wait()

	res := &dto.BulkActionResponse{Action: req.Action, Rows: rows}
	for _, row := range rows {
		switch row.Result {
		case BulkApplied:
			res.Applied++
		case BulkSkipped:
			res.Skipped++
		default:
			res.Failed++
		}
	}
	c.logger.Info("bulk action finished",
		zap.String("action", req.Action),
		zap.String("actor_id", actor.ID),
		zap.Int("applied", res.Applied),
		zap.Int("skipped", res.Skipped),
		zap.Int("failed", res.Failed))
	return res, nil
}

func (c *BulkApprovalCoordinator) applyRow(ctx context.Context, actor models.ActorContext, id int64, req dto.BulkActionRequest) dto.BulkRowResult {
	row := dto.BulkRowResult{BookingID: id}
	result, err := c.bookings.ApplyAction(ctx, actor, id, dto.BookingActionRequest{Action: req.Action, Reason: req.Reason})
	switch {
	case err != nil:
		appErr := appErrors.FromError(err)
		row.Result = BulkFailed
		row.Code = appErr.Code
		row.Message = appErr.Message
		c.logger.Debug("bulk row failed", zap.Int64("booking_id", id), zap.String("code", appErr.Code))
	case result.Outcome == OutcomeNoop:
		row.Result = BulkSkipped
		row.From, row.To = result.From, result.To
	default:
		row.Result = BulkApplied
		row.From, row.To = result.From, result.To
	}
	if c.metrics != nil {
		c.metrics.RecordBulkRow(req.Action, row.Result)
	}
	return row
}

func uniqueIDs(ids []int64) []int64 {
	seen := make(map[int64]struct{}, len(ids))
	out := make([]int64, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok || id <= 0 {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
