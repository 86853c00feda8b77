package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// AuthHandlers handles authentication HTTP requests
type AuthHandlers struct {
	authSvc domain.AuthService
	logger  *zap.Logger
}

// NewAuthHandlers creates new auth handlers
func NewAuthHandlers(authSvc domain.AuthService, logger *zap.Logger) *AuthHandlers {
	return &AuthHandlers{
		authSvc: authSvc,
		logger:  logger.With(zap.String("component", "auth_handlers")),
	}
}

// RegisterRequest represents registration request
type RegisterRequest struct {
	Email          string `json:"email" binding:"required,email"`
	Password       string `json:"password" binding:"required"`
	FirstName      string `json:"firstName" binding:"required,max=100"`
	LastName       string `json:"lastName" binding:"required,max=100"`
	Phone          string `json:"phone,omitempty" binding:"omitempty,e164"`
	OrganizationID string `json:"organizationId,omitempty"`
	Role           string `json:"role,omitempty"`
}

// LoginRequest represents login request
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	MFACode  string `json:"mfaCode,omitempty"`
}

// MFALoginRequest completes a login that was challenged for a second factor
type MFALoginRequest struct {
	MFAToken string `json:"mfaToken" binding:"required"`
	Code     string `json:"code" binding:"required"`
}

// RefreshRequest represents token refresh request
type RefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// ForgotPasswordRequest starts a password reset
type ForgotPasswordRequest struct {
	Email string `json:"email" binding:"required,email"`
}

// ResetPasswordRequest completes a password reset
type ResetPasswordRequest struct {
	Token    string `json:"token" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// ChangePasswordRequest changes the password of the current user
type ChangePasswordRequest struct {
	CurrentPassword string `json:"currentPassword" binding:"required"`
	NewPassword     string `json:"newPassword" binding:"required"`
}

// userResponse is the public projection of a user
func userResponse(u *domain.User) gin.H {
	body := gin.H{
		"id":             u.ID,
		"email":          u.Email,
		"firstName":      u.FirstName,
		"lastName":       u.LastName,
		"role":           u.Role,
		"status":         u.Status,
		"organizationId": u.OrganizationID,
		"mfaEnabled":     u.MFAEnabled,
		"createdAt":      u.CreatedAt,
	}
	if u.Phone != "" {
		body["phone"] = u.Phone
	}
	if u.LastLoginAt != nil {
		body["lastLoginAt"] = u.LastLoginAt.Format(time.RFC3339)
	}
	return body
}

// authResponse renders a completed login or a pending MFA challenge
func authResponse(result *domain.AuthResult) gin.H {
	if result.RequiresMFA {
		return gin.H{
			"requiresMfa": true,
			"mfaToken":    result.MFAToken,
		}
	}
	return gin.H{
		"accessToken":  result.AccessToken,
		"refreshToken": result.RefreshToken,
		"tokenType":    "Bearer",
		"expiresIn":    result.ExpiresIn,
		"sessionId":    result.SessionID,
		"user":         userResponse(result.User),
	}
}

// Register handles user registration
func (h *AuthHandlers) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.Register(c.Request.Context(), domain.RegisterInput{
		Email:          req.Email,
		Password:       req.Password,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		OrganizationID: req.OrganizationID,
		Role:           domain.Role(req.Role),
		Client:         clientContext(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": authResponse(result)})
}

// Login handles user login. A user with MFA enabled who sent no code gets a
// challenge token instead of a session.
func (h *AuthHandlers) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.Login(c.Request.Context(), domain.LoginInput{
		Email:    req.Email,
		Password: req.Password,
		MFACode:  req.MFACode,
		Client:   clientContext(c),
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": authResponse(result)})
}

// CompleteMFALogin exchanges an MFA challenge token and code for a session
func (h *AuthHandlers) CompleteMFALogin(c *gin.Context) {
	var req MFALoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.CompleteMFALogin(c.Request.Context(), req.MFAToken, req.Code, clientContext(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": authResponse(result)})
}

// Refresh handles token refresh
func (h *AuthHandlers) Refresh(c *gin.Context) {
	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	result, err := h.authSvc.RefreshToken(c.Request.Context(), req.RefreshToken)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"data": gin.H{
			"accessToken":  result.AccessToken,
			"refreshToken": result.RefreshToken,
			"tokenType":    "Bearer",
			"expiresIn":    result.ExpiresIn,
		},
	})
}

// ForgotPassword always answers the same way whether or not the email is known
func (h *AuthHandlers) ForgotPassword(c *gin.Context) {
	var req ForgotPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authSvc.ForgotPassword(c.Request.Context(), req.Email, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"data": gin.H{"message": "If the account exists, a reset code has been sent"},
	})
}

// ResetPassword sets a new password from a reset token
func (h *AuthHandlers) ResetPassword(c *gin.Context) {
	var req ResetPasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authSvc.ResetPassword(c.Request.Context(), req.Token, req.Password, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Password has been reset"}})
}

// Logout handles user logout
func (h *AuthHandlers) Logout(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}
	client := clientContext(c)

	if err := h.authSvc.Logout(c.Request.Context(), userID, client.SessionID, client); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Logged out successfully"}})
}

// Me returns current user information
func (h *AuthHandlers) Me(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	user, err := h.authSvc.GetUserProfile(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": userResponse(user)})
}

// ChangePassword changes the current user's password and ends every session
func (h *AuthHandlers) ChangePassword(c *gin.Context) {
	userID, _, ok := currentUser(c)
	if !ok {
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		bindError(c, err)
		return
	}

	if err := h.authSvc.ChangePassword(c.Request.Context(), userID, req.CurrentPassword, req.NewPassword, clientContext(c)); err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"message": "Password changed, please log in again"}})
}
