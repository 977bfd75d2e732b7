package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/dto"
	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type availabilityServiceMock struct {
	query dto.AvailabilityQuery
	req   dto.AvailabilityRequest
	err   error
}

func (m *availabilityServiceMock) Upsert(_ context.Context, _ models.ActorContext, req dto.AvailabilityRequest) (*models.WeeklyAvailability, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.WeeklyAvailability{OperatorID: 7, WeekStart: req.WeekStart, Status: models.AvailabilitySubmitted}, nil
}

func (m *availabilityServiceMock) Get(_ context.Context, _ models.ActorContext, query dto.AvailabilityQuery) (*models.WeeklyAvailability, error) {
	m.query = query
	return &models.WeeklyAvailability{OperatorID: 7, WeekStart: query.Week}, m.err
}

func newAvailabilityRouter(svc *availabilityServiceMock) *gin.Engine {
	gin.SetMode(gin.TestMode)
	operatorID := int64(7)
	h := NewAvailabilityHandler(svc)
	r := gin.New()
	r.Use(withActor(models.ActorContext{ID: "op-user", Role: models.RoleOperator, OperatorID: &operatorID}))
	r.GET("/availability", h.Get)
	r.PUT("/availability", h.Upsert)
	return r
}

func TestAvailabilityHandlerGetBindsQuery(t *testing.T) {
	svc := &availabilityServiceMock{}
	r := newAvailabilityRouter(svc)

	w := doJSON(r, http.MethodGet, "/availability?week=2025-12-08&operator_id=9", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2025-12-08", svc.query.Week)
	require.NotNil(t, svc.query.OperatorID)
	assert.Equal(t, int64(9), *svc.query.OperatorID)
}

func TestAvailabilityHandlerUpsert(t *testing.T) {
	svc := &availabilityServiceMock{}
	r := newAvailabilityRouter(svc)

	body := map[string]interface{}{
		"week_start": "2025-12-08",
		"submit":     true,
		"days": map[string]interface{}{
			"wed": map[string]interface{}{"available": true, "start_time": "09:00", "end_time": "15:00"},
		},
	}
	w := doJSON(r, http.MethodPut, "/availability", body)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, svc.req.Submit)
	assert.Equal(t, "09:00", svc.req.Days["wed"].StartTime)

	svc.err = appErrors.Clone(appErrors.ErrLocked, "week already started")
	assert.Equal(t, http.StatusLocked, doJSON(r, http.MethodPut, "/availability", body).Code)
}
