package httpx

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/you/crmauth/internal/http/handlers"
	"github.com/you/crmauth/internal/http/middleware"
	"go.uber.org/zap"
)

// Handlers groups every HTTP handler set served by the router
type Handlers struct {
	Auth     *handlers.AuthHandlers
	MFA      *handlers.MFAHandlers
	Sessions *handlers.SessionHandlers
	Security *handlers.SecurityHandlers
	Admin    *handlers.AdminHandlers
	Policies *handlers.PolicyHandlers
}

// RouterOptions carries the cross-cutting middleware
type RouterOptions struct {
	JWT          *middleware.AuthMW
	Casbin       *middleware.CasbinMW
	RateLimit    gin.HandlerFunc
	Logger       *zap.Logger
	ExposeErrors bool
}

func BuildRouter(h Handlers, opts RouterOptions) *gin.Engine {
	r := gin.New()
	r.Use(middleware.Recovery(opts.Logger, opts.ExposeErrors), middleware.RequestLogger(opts.Logger))

	r.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"ok": true}) })
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	limited := func(hf gin.HandlerFunc) []gin.HandlerFunc {
		if opts.RateLimit == nil {
			return []gin.HandlerFunc{hf}
		}
		return []gin.HandlerFunc{opts.RateLimit, hf}
	}

	auth := r.Group("/auth")
	auth.POST("/register", limited(h.Auth.Register)...)
	auth.POST("/login", limited(h.Auth.Login)...)
	auth.POST("/login/mfa", limited(h.Auth.CompleteMFALogin)...)
	auth.POST("/refresh", h.Auth.Refresh)
	auth.POST("/forgot-password", limited(h.Auth.ForgotPassword)...)
	auth.POST("/reset-password", limited(h.Auth.ResetPassword)...)

	v := r.Group("/auth").Use(opts.JWT.WithJWT())
	v.POST("/logout", h.Auth.Logout)
	v.GET("/me", h.Auth.Me)
	v.PUT("/password", h.Auth.ChangePassword)

	v.POST("/mfa/setup", h.MFA.Setup)
	v.POST("/mfa/enable", h.MFA.Enable)
	v.POST("/mfa/disable", h.MFA.Disable)
	v.GET("/mfa/status", h.MFA.Status)
	v.POST("/mfa/backup-codes/regenerate", h.MFA.RegenerateBackupCodes)

	v.GET("/sessions", h.Sessions.List)
	v.DELETE("/sessions/others", h.Sessions.RevokeOthers)
	v.DELETE("/sessions/:id", h.Sessions.Revoke)

	sec := r.Group("/auth").Use(opts.JWT.WithJWT(), opts.Casbin.Enforce())
	sec.GET("/security/events", h.Security.Events)
	sec.GET("/security/dashboard", h.Security.Dashboard)
	sec.GET("/security/metrics", h.Security.Metrics)
	sec.PUT("/security/events/:id/resolve", h.Security.Resolve)
	sec.POST("/users/:id/deactivate", h.Admin.Deactivate)
	sec.POST("/users/:id/mfa/reset", h.Admin.ResetMFA)

	adm := r.Group("/admin").Use(opts.JWT.WithJWT(), opts.Casbin.Enforce())
	adm.GET("/policies", h.Policies.List)
	adm.POST("/policies", h.Policies.Add)
	adm.DELETE("/policies", h.Policies.Remove)

	return r
}
