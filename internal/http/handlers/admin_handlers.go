package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// AdminHandlers are the organization administrator's account controls
type AdminHandlers struct {
	authSvc domain.AuthService
	mfaSvc  domain.MFAService
	logger  *zap.Logger
}

// NewAdminHandlers creates new admin handlers
func NewAdminHandlers(authSvc domain.AuthService, mfaSvc domain.MFAService, logger *zap.Logger) *AdminHandlers {
	return &AdminHandlers{
		authSvc: authSvc,
		mfaSvc:  mfaSvc,
		logger:  logger.With(zap.String("component", "admin_handlers")),
	}
}

// Deactivate disables a user of the admin's organization and ends its sessions
func (h *AdminHandlers) Deactivate(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		return
	}

	userID := c.Param("id")
	if err := h.authSvc.DeactivateUser(c.Request.Context(), actorID, userID, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": userID, "status": domain.UserStatusInactive}})
}

// ResetMFA removes the second factor of a user who lost their device
func (h *AdminHandlers) ResetMFA(c *gin.Context) {
	actorID, _, ok := currentUser(c)
	if !ok {
		return
	}

	userID := c.Param("id")
	if err := h.mfaSvc.AdminReset(c.Request.Context(), actorID, userID, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"id": userID, "mfaEnabled": false}})
}
