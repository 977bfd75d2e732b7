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

type availabilityService interface {
	Upsert(ctx context.Context, actor models.ActorContext, req dto.AvailabilityRequest) (*models.WeeklyAvailability, error)
	Get(ctx context.Context, actor models.ActorContext, query dto.AvailabilityQuery) (*models.WeeklyAvailability, error)
}

// AvailabilityHandler exposes weekly operator availability.
type AvailabilityHandler struct {
	service availabilityService
}

// NewAvailabilityHandler constructs the handler.
func NewAvailabilityHandler(svc availabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Get godoc
// @Summary Weekly availability
// @Tags Availability
// @Produce json
// @Security BearerAuth
// @Param week query string true "Monday of the week"
// @Param operator_id query int false "Operator (admins only)"
// @Success 200 {object} response.Envelope
// @Router /availability [get]
func (h *AvailabilityHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.AvailabilityQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability query"))
		return
	}
	res, err := h.service.Get(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Upsert godoc
// @Summary Save or submit weekly availability
// @Tags Availability
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.AvailabilityRequest true "Availability payload"
// @Success 200 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /availability [put]
func (h *AvailabilityHandler) Upsert(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.AvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid availability payload"))
		return
	}
	res, err := h.service.Upsert(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}
