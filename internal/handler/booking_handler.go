package handler

import (
	"context"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	"github.com/noah-isme/shootdesk-api/internal/service"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/response"
)

const changeStreamHeartbeat = 25 * time.Second

type bookingService interface {
	Create(ctx context.Context, actor models.ActorContext, req dto.CreateBookingRequest) (*service.TransitionResult, error)
	Get(ctx context.Context, actor models.ActorContext, id int64) (*dto.BookingView, error)
	List(ctx context.Context, actor models.ActorContext, query dto.BookingQuery) ([]models.Booking, *models.Pagination, error)
	UpdateDraft(ctx context.Context, actor models.ActorContext, id int64, req dto.BookingFieldsRequest) (*service.TransitionResult, error)
	ApplyAction(ctx context.Context, actor models.ActorContext, id int64, req dto.BookingActionRequest) (*service.TransitionResult, error)
	CopyWeek(ctx context.Context, actor models.ActorContext, req dto.CopyWeekRequest) ([]models.Booking, error)
	Locate(ctx context.Context, actor models.ActorContext, id int64, current string) (*dto.LocateResponse, error)
	History(ctx context.Context, actor models.ActorContext, id int64) ([]models.HistoryEntry, error)
}

type bulkActionService interface {
	Apply(ctx context.Context, actor models.ActorContext, req dto.BulkActionRequest) (*dto.BulkActionResponse, error)
}

type rosterExporter interface {
	Roster(ctx context.Context, actor models.ActorContext, query dto.ExportQuery) (*service.ExportFile, error)
}

type changeSubscriber interface {
	Subscribe(ctx context.Context, weekStart string, bookingID int64) (<-chan service.BookingChangeEvent, func() error, error)
}

// BookingHandler exposes the booking workflow.
type BookingHandler struct {
	bookings bookingService
	bulk     bulkActionService
	export   rosterExporter
	changes  changeSubscriber
}

// NewBookingHandler constructs the handler. bulk, export and changes may be nil to disable those routes.
func NewBookingHandler(bookings bookingService, bulk bulkActionService, export rosterExporter, changes changeSubscriber) *BookingHandler {
	return &BookingHandler{bookings: bookings, bulk: bulk, export: export, changes: changes}
}

func transitionResponse(res *service.TransitionResult) dto.TransitionResponse {
	return dto.TransitionResponse{
		Outcome: string(res.Outcome),
		Action:  res.Action,
		From:    res.From,
		To:      res.To,
		Booking: res.Booking,
	}
}

// Create godoc
// @Summary Create a booking
// @Description Saves a draft, or submits it for approval when submit is true
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateBookingRequest true "Booking payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /bookings [post]
func (h *BookingHandler) Create(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	res, err := h.bookings.Create(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, transitionResponse(res))
}

// List godoc
// @Summary List bookings
// @Description Requesters see their own bookings and operators their assignments
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param week query string false "Any date within the week"
// @Param date query string false "Shoot date"
// @Param status query []string false "Approval statuses"
// @Param updated_since query string false "RFC3339 lower bound for reconciliation"
// @Param page query int false "Page"
// @Param page_size query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /bookings [get]
func (h *BookingHandler) List(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.BookingQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking query"))
		return
	}
	items, pagination, err := h.bookings.List(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get a booking
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /bookings/{id} [get]
func (h *BookingHandler) Get(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	view, err := h.bookings.Get(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, view, nil)
}

// UpdateDraft godoc
// @Summary Edit a pending draft
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param payload body dto.BookingFieldsRequest true "Booking fields"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /bookings/{id} [put]
func (h *BookingHandler) UpdateDraft(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.BookingFieldsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid booking payload"))
		return
	}
	res, err := h.bookings.UpdateDraft(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transitionResponse(res), nil)
}

// ApplyAction godoc
// @Summary Apply a workflow action
// @Description Runs one approval transition; a recognised no-op reports outcome=noop
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param payload body dto.BookingActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Failure 423 {object} response.Envelope
// @Router /bookings/{id}/actions [post]
func (h *BookingHandler) ApplyAction(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	var req dto.BookingActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	res, err := h.bookings.ApplyAction(c.Request.Context(), actor, id, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, transitionResponse(res), nil)
}

// BulkAction godoc
// @Summary Apply one action to many bookings
// @Description Each row succeeds or fails on its own; the response counts applied, skipped and failed rows
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.BulkActionRequest true "Bulk payload"
// @Success 200 {object} response.Envelope
// @Router /bookings/bulk-actions [post]
func (h *BookingHandler) BulkAction(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.BulkActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid bulk payload"))
		return
	}
	res, err := h.bulk.Apply(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// CopyWeek godoc
// @Summary Copy a week's bookings as drafts
// @Tags Bookings
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CopyWeekRequest true "Copy payload"
// @Success 201 {object} response.Envelope
// @Router /bookings/copy-week [post]
func (h *BookingHandler) CopyWeek(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var req dto.CopyWeekRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid copy payload"))
		return
	}
	created, err := h.bookings.CopyWeek(c.Request.Context(), actor, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// History godoc
// @Summary Booking audit trail
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/history [get]
func (h *BookingHandler) History(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	entries, err := h.bookings.History(c.Request.Context(), actor, id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, entries, nil)
}

// Locate godoc
// @Summary Place a booking on the weekly grid
// @Tags Bookings
// @Produce json
// @Security BearerAuth
// @Param id path int true "Booking ID"
// @Param current query string false "Date the viewer is looking at"
// @Success 200 {object} response.Envelope
// @Router /bookings/{id}/locate [get]
func (h *BookingHandler) Locate(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	id, ok := int64Param(c, "id")
	if !ok {
		return
	}
	res, err := h.bookings.Locate(c.Request.Context(), actor, id, c.Query("current"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, res, nil)
}

// Export godoc
// @Summary Export the weekly roster
// @Tags Bookings
// @Produce text/csv
// @Produce application/pdf
// @Security BearerAuth
// @Param week query string true "Any date within the week"
// @Param format query string false "csv or pdf"
// @Success 200 {file} file
// @Router /bookings/export [get]
func (h *BookingHandler) Export(c *gin.Context) {
	actor, ok := actorFromContext(c)
	if !ok {
		return
	}
	var query dto.ExportQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid export query"))
		return
	}
	file, err := h.export.Roster(c.Request.Context(), actor, query)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Attachment(c, file.Filename, file.ContentType, file.Data)
}

// Changes godoc
// @Summary Stream booking changes
// @Description Server-sent events for a week and/or a single booking. Reconnecting clients should
// @Description reconcile with GET /bookings?updated_since=
// @Tags Bookings
// @Produce text/event-stream
// @Security BearerAuth
// @Param week query string false "Any date within the week"
// @Param booking_id query int false "Booking ID"
// @Router /bookings/changes [get]
func (h *BookingHandler) Changes(c *gin.Context) {
	if _, ok := actorFromContext(c); !ok {
		return
	}
	var bookingID int64
	if raw := c.Query("booking_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "booking_id must be a positive integer"))
			return
		}
		bookingID = id
	}
	events, closeFn, err := h.changes.Subscribe(c.Request.Context(), c.Query("week"), bookingID)
	if err != nil {
		response.Error(c, err)
		return
	}
	defer func() { _ = closeFn() }()

	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no")

	heartbeat := time.NewTicker(changeStreamHeartbeat)
	defer heartbeat.Stop()
	c.Stream(func(w io.Writer) bool {
		select {
		case event, ok := <-events:
			if !ok {
				return false
			}
			c.SSEvent(event.Kind, event)
			return true
		case <-heartbeat.C:
			c.SSEvent("heartbeat", gin.H{"at": time.Now().UTC()})
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
