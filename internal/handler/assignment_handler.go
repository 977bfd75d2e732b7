package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/middleware"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/internal/service"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/response"
)

type assignmentService interface {
	Eligible(ctx context.Context, actor models.ActorContext, bookingID int64) (*service.Resolution, error)
	Assign(ctx context.Context, actor models.ActorContext, bookingID int64, req dto.AssignOperatorRequest) (*models.Booking, error)
	Unassign(ctx context.Context, actor models.ActorContext, bookingID int64, reason string) (*models.Booking, error)
	Acknowledge(ctx context.Context, actor models.ActorContext, bookingID int64) (*models.Booking, error)
}

// AssignmentHandler exposes operator assignment endpoints.
type AssignmentHandler struct {
	service assignmentService
}

// NewAssignmentHandler constructs the handler.
func NewAssignmentHandler(svc assignmentService) *AssignmentHandler {
	return &AssignmentHandler{service: svc}
}

// Eligible godoc
// @Summary Eligible operators for a booking
// @Description Ordered eligible list plus the reason each excluded operator was dropped
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/eligible-operators [get]
func (h *AssignmentHandler) Eligible(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	res, err := h.service.Eligible(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, res.RosterCached)
	response.JSON(c, http.StatusOK, res, nil, middleware.ExtractMeta(c))
}

// Assign godoc
// @Summary Assign an operator
// @Tags Assignments
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param payload body dto.AssignOperatorRequest true "Assignment payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id}/assignment [put]
func (h *AssignmentHandler) Assign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.AssignOperatorRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	booking, err := h.service.Assign(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Unassign godoc
// @Summary Remove the assigned operator
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param reason query string false "Reason"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/assignment [delete]
func (h *AssignmentHandler) Unassign(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	booking, err := h.service.Unassign(c.Request.Context(), actor, id, c.Query("reason"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}

// Acknowledge godoc
// @Summary Operator confirms their assignment
// @Tags Assignments
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/assignment/acknowledge [post]
func (h *AssignmentHandler) Acknowledge(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	booking, err := h.service.Acknowledge(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, booking, nil)
}
