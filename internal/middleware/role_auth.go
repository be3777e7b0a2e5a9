package middleware

import (
	"github.com/gin-gonic/gin"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
)

// RequireRole checks that the actor loaded by LoadActor has the given role
func RequireRole(role models.UserRole) gin.HandlerFunc {
	return func(c *gin.Context) {
		actor, exists := GetActor(c)
		if !exists {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}

		if actor.Role != role {
			apierrors.Forbidden(c, "Only "+string(role)+" users can perform this action")
			c.Abort()
			return
		}

		c.Next()
	}
}

// RequireAdmin is RequireRole for administrators
func RequireAdmin() gin.HandlerFunc {
	return RequireRole(models.RoleAdmin)
}
