package middleware

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// CasbinMW authorizes the authenticated role against the route pattern and method
type CasbinMW struct {
	policies domain.PolicyService
	security domain.SecurityLogger
	logger   *zap.Logger
}

// NewCasbinMW creates new casbin middleware wrapper. security may be nil.
func NewCasbinMW(policies domain.PolicyService, security domain.SecurityLogger, logger *zap.Logger) *CasbinMW {
	return &CasbinMW{
		policies: policies,
		security: security,
		logger:   logger.With(zap.String("component", "casbin_middleware")),
	}
}

// Enforce returns the casbin authorization middleware
func (mw *CasbinMW) Enforce() gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		userID := c.GetString(ContextUserID)
		role := c.GetString(ContextUserRole)
		if userID == "" || role == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "User ID or role not found in token"})
			return
		}

		path := c.Request.URL.Path
		method := c.Request.Method

		allowed, err := mw.policies.CheckPermission(role, path, method)
		if err != nil {
			mw.logger.Error("authorization check failed",
				zap.String("role", role),
				zap.String("path", path),
				zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Authorization check failed"})
			return
		}

		if !allowed {
			if mw.security != nil {
				client := domain.ClientContext{IPAddress: c.ClientIP(), UserAgent: c.Request.UserAgent(), SessionID: c.GetString(ContextSessionID)}
				mw.security.LogSecurityEvent(c.Request.Context(), domain.NewSecurityEvent(domain.UnauthorizedAccessEvent, domain.SeverityMedium, "Access denied by role policy").
					ForUser(userID, c.GetString(ContextOrganizationID)).
					WithClientContext(&client).
					WithMetadata("role", role).
					WithMetadata("path", path).
					WithMetadata("method", method))
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access Denied"})
			return
		}

		c.Next()
	})
}
