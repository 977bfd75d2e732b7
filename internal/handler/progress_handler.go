package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/response"
)

type progressService interface {
	Today(ctx context.Context, actor models.ActorContext, date string) ([]dto.ProgressView, error)
	Get(ctx context.Context, actor models.ActorContext, bookingID int64) (*dto.ProgressView, error)
	Act(ctx context.Context, actor models.ActorContext, bookingID int64, req dto.ProgressActionRequest) (*dto.ProgressView, error)
	IssueToken(ctx context.Context, actor models.ActorContext, locationID string) (*dto.CheckpointTokenResponse, error)
}

// ProgressHandler exposes operator checkpoint tracking and the kiosk token endpoint.
type ProgressHandler struct {
	service progressService
}

// NewProgressHandler constructs the handler.
func NewProgressHandler(svc progressService) *ProgressHandler {
	return &ProgressHandler{service: svc}
}

// Today godoc
// @Summary Operator's bookings for a day
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param date query string false "Defaults to today in the lock timezone"
// @Success 200 {object} response.Envelope
// @Router /progress/today [get]
func (h *ProgressHandler) Today(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	views, err := h.service.Today(c.Request.Context(), actor, c.Query("date"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, views, nil)
}

// Get godoc
// @Summary Progress on one booking
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param bookingId path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /progress/{bookingId} [get]
func (h *ProgressHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "bookingId")
	if !ok {
		return
	}
	view, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Act godoc
// @Summary Perform a checkpoint action
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param bookingId path int true "Booking ID"
// @Param payload body dto.ProgressActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Failure 429 {object} response.Envelope
// @Router /progress/{bookingId}/actions [post]
func (h *ProgressHandler) Act(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "bookingId")
	if !ok {
		return
	}
	var req dto.ProgressActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid progress payload"))
		return
	}
	view, err := h.service.Act(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// Token godoc
// @Summary Current checkpoint token for a location
// @Description Kiosk displays rotate this every minute
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Param locationId path string true "Location ID"
// @Success 200 {object} response.Envelope
// @Router /checkpoints/{locationId}/token [get]
func (h *ProgressHandler) Token(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	res, err := h.service.IssueToken(c.Request.Context(), actor, c.Param("locationId"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
