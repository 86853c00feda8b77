package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// SessionHandlers lets a user see and revoke their own sessions
type SessionHandlers struct {
	sessions domain.SessionService
	security domain.SecurityLogger
	logger   *zap.Logger
}

// NewSessionHandlers creates new session handlers
func NewSessionHandlers(sessions domain.SessionService, security domain.SecurityLogger, logger *zap.Logger) *SessionHandlers {
	return &SessionHandlers{
		sessions: sessions,
		security: security,
		logger:   logger.With(zap.String("component", "session_handlers")),
	}
}

// List returns the active sessions of the current user
func (h *SessionHandlers) List(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	sessions, err := h.sessions.ListActive(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	current := clientContext(c).SessionID
	out := make([]gin.H, 0, len(sessions))
	for _, s := range sessions {
		out = append(out, gin.H{
			"id":             s.ID,
			"ipAddress":      s.IPAddress,
			"userAgent":      s.UserAgent,
			"createdAt":      s.CreatedAt,
			"lastActivityAt": s.LastActivityAt,
			"expiresAt":      s.ExpiresAt,
			"current":        s.ID == current,
		})
	}
	c.JSON(http.StatusOK, gin.H{"data": out})
}

// RevokeOthers ends every session of the current user except this one
func (h *SessionHandlers) RevokeOthers(c *gin.Context) {
	userID, orgID, ok := currentUser(c)
	if !ok {
		return
	}
	client := clientContext(c)

	n, err := h.sessions.InvalidateAllForUser(c.Request.Context(), userID, client.SessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	if n > 0 {
		h.security.LogSecurityEvent(c.Request.Context(), domain.NewSecurityEvent(domain.SessionRevokedEvent, domain.SeverityLow, "Other sessions revoked").
			ForUser(userID, orgID).
			WithClientContext(&client).
			WithMetadata("revokedCount", n))
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"revoked": n}})
}

// Revoke ends one session. Sessions of other users are reported as not found.
func (h *SessionHandlers) Revoke(c *gin.Context) {
	userID, orgID, ok := currentUser(c)
	if !ok {
		return
	}
	client := clientContext(c)
	sessionID := c.Param("id")

	session, err := h.sessions.Get(c.Request.Context(), sessionID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	if session == nil || session.UserID != userID {
		respondError(c, h.logger, domain.ErrSessionNotFound)
		return
	}

	if err := h.sessions.Invalidate(c.Request.Context(), sessionID); err != nil {
		respondError(c, h.logger, err)
		return
	}

	h.security.LogSecurityEvent(c.Request.Context(), domain.NewSecurityEvent(domain.SessionRevokedEvent, domain.SeverityLow, "Session revoked").
		ForUser(userID, orgID).
		WithClientContext(&client).
		WithMetadata("revokedSessionId", sessionID))

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"revoked": sessionID}})
}
