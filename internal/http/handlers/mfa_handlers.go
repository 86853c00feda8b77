package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// MFAHandlers exposes second-factor management for the current user
type MFAHandlers struct {
	mfaSvc domain.MFAService
	logger *zap.Logger
}

// NewMFAHandlers creates new MFA handlers
func NewMFAHandlers(mfaSvc domain.MFAService, logger *zap.Logger) *MFAHandlers {
	return &MFAHandlers{
		mfaSvc: mfaSvc,
		logger: logger.With(zap.String("component", "mfa_handlers")),
	}
}

// MFACodeRequest carries a TOTP or backup code
type MFACodeRequest struct {
	Code string `json:"code" binding:"required"`
}

// Setup generates a new secret and backup codes. They are only shown once.
func (h *MFAHandlers) Setup(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	setup, err := h.mfaSvc.SetupMFA(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"secret":      setup.Secret,
			"otpauthUrl":  setup.OTPAuthURL,
			"qrCode":      setup.QRCodeDataURL,
			"backupCodes": setup.BackupCodes,
		},
	})
}

// Enable turns MFA on after the first code is confirmed
func (h *MFAHandlers) Enable(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.mfaSvc.EnableMFA(c.Request.Context(), userID, req.Code, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"enabled": true}})
}

// Disable turns MFA off; a TOTP or backup code is required
func (h *MFAHandlers) Disable(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.mfaSvc.DisableMFA(c.Request.Context(), userID, req.Code, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"enabled": false}})
}

// Status reports whether MFA is on and how many backup codes remain
func (h *MFAHandlers) Status(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	status, err := h.mfaSvc.GetStatus(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": status})
}

// RegenerateBackupCodes replaces every backup code
func (h *MFAHandlers) RegenerateBackupCodes(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req MFACodeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	codes, err := h.mfaSvc.RegenerateBackupCodes(c.Request.Context(), userID, req.Code, clientContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"backupCodes": codes}})
}
