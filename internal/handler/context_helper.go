package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shootdesk-api/internal/middleware"
	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/response"
)

// actorFromContext writes 401 and returns false when the request carries no claims.
func actorFromContext(c *gin.Context) (models.ActorContext, bool) {
	claims, ok := middleware.Claims(c)
	if !ok {
		response.Error(c, appErrors.ErrUnauthorized)
		return models.ActorContext{}, false
	}
	return claims.Actor(), true
}

// int64Param writes 400 and returns false when the path parameter is not a positive integer.
func int64Param(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, name+" must be a positive integer"))
		return 0, false
	}
	return id, true
}
