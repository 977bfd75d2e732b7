package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/shootdesk-api/internal/models"
	appErrors "github.com/noah-isme/shootdesk-api/pkg/errors"
	"github.com/noah-isme/shootdesk-api/pkg/response"
)

// RequireRoles only lets the listed roles through.
func RequireRoles(roles ...models.UserRole) gin.HandlerFunc {
	allowed := make(map[models.UserRole]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}
	return func(c *gin.Context) {
		claims, ok := Claims(c)
		if !ok {
			response.Error(c, appErrors.ErrUnauthorized)
			c.Abort()
			return
		}
		if _, ok := allowed[claims.Role]; !ok {
			response.Error(c, appErrors.ErrForbidden)
			c.Abort()
			return
		}
		c.Next()
	}
}

// RequirePrivileged admits admins and superadmins.
func RequirePrivileged() gin.HandlerFunc {
	return RequireRoles(models.RoleSuperAdmin, models.RoleAdmin)
}

// OperatorKey throttles by operator id for the rate limiter; non-operators are not limited.
func OperatorKey(c *gin.Context) string {
	claims, ok := Claims(c)
	if !ok || claims.OperatorID == nil {
		return ""
	}
	return claims.UserID
}
