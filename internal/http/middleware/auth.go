package middleware

import (
	"github.com/gin-gonic/gin"
	"github.com/you/crmauth/domain"
	"go.uber.org/zap"
)

// AuthMW wraps the token service and session service for middleware
type AuthMW struct {
	tokenSvc domain.TokenService
	sessions domain.SessionService
	logger   *zap.Logger
}

// NewAuthMW creates new auth middleware wrapper
func NewAuthMW(tokenSvc domain.TokenService, sessions domain.SessionService, logger *zap.Logger) *AuthMW {
	return &AuthMW{
		tokenSvc: tokenSvc,
		sessions: sessions,
		logger:   logger.With(zap.String("component", "auth_middleware")),
	}
}

// WithJWT returns the JWT middleware function
func (mw *AuthMW) WithJWT() gin.HandlerFunc {
	return AuthMiddleware(mw.tokenSvc, mw.sessions, mw.logger)
}
