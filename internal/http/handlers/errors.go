package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/http/middleware"
	"go.uber.org/zap"
)

// respondError maps domain errors to status codes. Credential and token failures
// share one message so callers cannot tell which check failed.
func respondError(c *gin.Context, logger *zap.Logger, err error) {
	var weak *domain.WeakPasswordError
	switch {
	case errors.As(err, &weak):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Password does not meet requirements", "details": weak.Reasons})
	case errors.Is(err, domain.ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, domain.ErrInvalidResetToken):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid or expired reset token"})
	case errors.Is(err, domain.ErrMFANotSetUp):
		c.JSON(http.StatusBadRequest, gin.H{"error": "MFA is not set up"})
	case errors.Is(err, domain.ErrMFANotEnabled):
		c.JSON(http.StatusBadRequest, gin.H{"error": "MFA is not enabled"})

	case errors.Is(err, domain.ErrUserAlreadyExists):
		c.JSON(http.StatusConflict, gin.H{"error": "User already exists"})
	case errors.Is(err, domain.ErrMFAAlreadyEnabled):
		c.JSON(http.StatusConflict, gin.H{"error": "MFA is already enabled"})
	case errors.Is(err, domain.ErrMFAConflict):
		c.JSON(http.StatusConflict, gin.H{"error": "Request conflicted with a concurrent update, please retry"})

	case errors.Is(err, domain.ErrInvalidCredentials),
		errors.Is(err, domain.ErrAccountLocked),
		errors.Is(err, domain.ErrUserInactive),
		errors.Is(err, domain.ErrInvalidMFACode):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid credentials"})
	case errors.Is(err, domain.ErrTokenInvalid),
		errors.Is(err, domain.ErrTokenExpired),
		errors.Is(err, domain.ErrTokenMalformed),
		errors.Is(err, domain.ErrSessionExpired),
		errors.Is(err, domain.ErrSessionRevoked),
		errors.Is(err, domain.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})

	case errors.Is(err, domain.ErrInsufficientRole):
		c.JSON(http.StatusForbidden, gin.H{"error": "Access Denied"})

	case errors.Is(err, domain.ErrUserNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "User not found"})
	case errors.Is(err, domain.ErrSessionNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Session not found"})
	case errors.Is(err, domain.ErrResourceNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Resource not found"})

	case errors.Is(err, domain.ErrRateLimited):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": "Too many requests"})

	default:
		logger.Error("request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// clientContext extracts the caller's network identity and current session
func clientContext(c *gin.Context) domain.ClientContext {
	return domain.ClientContext{
		IPAddress: c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
		SessionID: c.GetString(middleware.ContextSessionID),
	}
}

// currentUser returns the authenticated user id and organization; ok is false
// when the auth middleware did not run.
func currentUser(c *gin.Context) (userID, organizationID string, ok bool) {
	userID = c.GetString(middleware.ContextUserID)
	organizationID = c.GetString(middleware.ContextOrganizationID)
	if userID == "" {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return "", "", false
	}
	return userID, organizationID, true
}

func bindError(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
