package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
)

type authServiceMock struct {
	req models.LoginRequest
	err error
}

func (m *authServiceMock) Login(_ context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	m.req = req
	if m.err != nil {
		return nil, m.err
	}
	return &models.LoginResponse{AccessToken: "token", ExpiresIn: 3600, User: models.UserInfo{ID: "u-1", Role: models.RoleAdmin}}, nil
}

func (m *authServiceMock) Me(_ context.Context, actor models.ActorContext) (*models.UserInfo, error) {
	return &models.UserInfo{ID: actor.ID, Role: actor.Role}, m.err
}

func TestAuthHandlerLogin(t *testing.T) {
	gin.SetMode(gin.TestMode)
	svc := &authServiceMock{}
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(svc).Login)

	w := doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": "admin@example.com", "password": "secret"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "admin@example.com", svc.req.Email)
	assert.Contains(t, w.Body.String(), `"access_token":"token"`)
	assert.Equal(t, "no-store", w.Header().Get("Cache-Control"))

	svc.err = appErrors.ErrInvalidCredentials
	w = doJSON(r, http.MethodPost, "/auth/login", map[string]string{"email": "admin@example.com", "password": "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "INVALID_CREDENTIALS")
}

func TestAuthHandlerLoginRejectsMalformedBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", NewAuthHandler(&authServiceMock{}).Login)

	req := httptest.NewRequest(http.MethodPost, "/auth/login", nil)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAuthHandlerMeRequiresClaims(t *testing.T) {
	gin.SetMode(gin.TestMode)
	h := NewAuthHandler(&authServiceMock{})

	r := gin.New()
	r.GET("/auth/me", h.Me)
	assert.Equal(t, http.StatusUnauthorized, doJSON(r, http.MethodGet, "/auth/me", nil).Code)

	r = gin.New()
	r.Use(withActor(models.ActorContext{ID: "req-1", Role: models.RoleRequester}))
	r.GET("/auth/me", h.Me)
	w := doJSON(r, http.MethodGet, "/auth/me", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"id":"req-1"`)
}
