package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// Context keys set for downstream handlers
const (
	ContextUserID         = "user_id"
	ContextUserRole       = "user_role"
	ContextSessionID      = "session_id"
	ContextOrganizationID = "organization_id"
)

// SessionTokenHeader carries the opaque session token as an alternative to the session claim
const SessionTokenHeader = "X-Session-Token"

// AuthMiddleware creates authentication middleware. The bearer token is validated
// and the session it names must still be active; otherwise the request is rejected.
func AuthMiddleware(tokenSvc domain.TokenService, sessions domain.SessionService, logger *zap.Logger) gin.HandlerFunc {
	return gin.HandlerFunc(func(c *gin.Context) {
		// Get Authorization header
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Authorization header required"})
			return
		}

		// Check Bearer token format
		tokenParts := strings.SplitN(authHeader, " ", 2)
		if len(tokenParts) != 2 || tokenParts[0] != "Bearer" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization header format"})
			return
		}

		// Validate token
		claims, err := tokenSvc.ValidateAccessToken(tokenParts[1])
		if err != nil {
			switch {
			case errors.Is(err, domain.ErrTokenExpired):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Token expired"})
			default:
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			}
			return
		}

		// Re-validate the session on every request
		var session *domain.Session
		if token := c.GetHeader(SessionTokenHeader); token != "" {
			session, err = sessions.GetByToken(c.Request.Context(), token)
		} else if claims.SessionID != "" {
			session, err = sessions.Get(c.Request.Context(), claims.SessionID)
		}
		if err != nil {
			logger.Error("session lookup failed", zap.String("user_id", claims.UserID), zap.Error(err))
			c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
			return
		}
		if session == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session invalid or expired"})
			return
		}

		// Ensure session belongs to the same user and tenant
		if session.UserID != claims.UserID || session.OrganizationID != claims.OrganizationID {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Session user mismatch"})
			return
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextUserRole, string(claims.Role))
		c.Set(ContextSessionID, session.ID)
		c.Set(ContextOrganizationID, claims.OrganizationID)

		c.Next()
	})
}
