package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/logger"
)

type validatorStub map[string]*models.JWTClaims

func (v validatorStub) ValidateToken(token string) (*models.JWTClaims, error) {
	if claims, ok := v[token]; ok {
		return claims, nil
	}
	return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid token")
}

func newAuthRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	operatorID := int64(7)
	tokens := validatorStub{
		"admin-token":    {UserID: "admin-1", Role: models.RoleAdmin},
		"operator-token": {UserID: "op-1", Role: models.RoleOperator, OperatorID: &operatorID},
	}
	r := gin.New()
	r.Use(JWT(tokens))
	r.GET("/me", func(c *gin.Context) {
		c.String(http.StatusOK, c.GetString(logger.ActorKey)+"|"+OperatorKey(c))
	})
	r.POST("/approve", RequirePrivileged(), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	return r
}

func serve(r *gin.Engine, method, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestJWTSetsActor(t *testing.T) {
	r := newAuthRouter()

	w := serve(r, http.MethodGet, "/me", "operator-token")
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "op-1|op-1", w.Body.String())

	w = serve(r, http.MethodGet, "/me", "admin-token")
	require.Equal(t, "admin-1|", w.Body.String())

	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "").Code)
	require.Equal(t, http.StatusUnauthorized, serve(r, http.MethodGet, "/me", "forged").Code)
}

func TestRequirePrivileged(t *testing.T) {
	r := newAuthRouter()

	require.Equal(t, http.StatusNoContent, serve(r, http.MethodPost, "/approve", "admin-token").Code)
	require.Equal(t, http.StatusForbidden, serve(r, http.MethodPost, "/approve", "operator-token").Code)
}
