package app

import (
	"context"
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/you/crmauth/domain"
	"github.com/you/crmauth/internal/config"
	httpx "github.com/you/crmauth/internal/http"
	"github.com/you/crmauth/internal/http/handlers"
	"github.com/you/crmauth/internal/http/middleware"
	"github.com/you/crmauth/internal/infrastructure/auth"
	"github.com/you/crmauth/internal/infrastructure/challenge"
	"github.com/you/crmauth/internal/infrastructure/crypto"
	"github.com/you/crmauth/internal/infrastructure/database"
	"github.com/you/crmauth/internal/infrastructure/notifications"
	"github.com/you/crmauth/internal/infrastructure/ratelimit"
	"github.com/you/crmauth/internal/infrastructure/repositories"
	"github.com/you/crmauth/internal/services"
)

// Container holds all dependencies
type Container struct {
	// Config
	Config *config.Config
	Logger *zap.Logger

	// Infrastructure
	DB          *gorm.DB
	RedisClient redis.UniversalClient

	// Repositories
	UserRepo          domain.UserRepository
	SessionRepo       domain.SessionRepository
	SecurityEventRepo domain.SecurityEventRepository
	AuditLogRepo      domain.AuditLogRepository
	MFASettingsRepo   domain.MFASettingsRepository

	// Services
	PasswordSvc     domain.PasswordService
	TokenSvc        domain.TokenService
	EncryptionSvc   domain.EncryptionService
	NotificationSvc domain.NotificationService
	SessionSvc      domain.SessionService
	SecuritySvc     domain.SecurityService
	AuditSvc        domain.AuditLogger
	MFASvc          domain.MFAService
	AuthSvc         domain.AuthService
	PolicySvc       domain.PolicyService
	RateLimiter     domain.RateLimiter
}

// NewContainer connects to PostgreSQL and Redis and initializes all dependencies
func NewContainer(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*Container, error) {
	db, err := database.Open(cfg.DSN)
	if err != nil {
		return nil, err
	}

	rdb := database.NewRedis(cfg.RedisAddr, cfg.RedisPassword, cfg.RedisDB)
	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx); err != nil {
		return nil, err
	}

	return NewContainerWithStores(cfg, db, rdb.Client, logger)
}

// Option overrides a dependency before the services are wired
type Option func(*Container)

// WithNotifier replaces the Twilio notification service
func WithNotifier(n domain.NotificationService) Option {
	return func(c *Container) { c.NotificationSvc = n }
}

// NewContainerWithStores initializes all dependencies on already opened stores
func NewContainerWithStores(cfg *config.Config, db *gorm.DB, rdb redis.UniversalClient, logger *zap.Logger, opts ...Option) (*Container, error) {
	c := &Container{Config: cfg, Logger: logger, DB: db, RedisClient: rdb}
	for _, opt := range opts {
		opt(c)
	}

	if err := database.AutoMigrate(db); err != nil {
		return nil, err
	}

	c.initRepositories()
	if err := c.initServices(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Container) initRepositories() {
	c.UserRepo = repositories.NewUserRepository(c.DB)
	c.SessionRepo = repositories.NewSessionRepository(c.DB)
	c.SecurityEventRepo = repositories.NewSecurityEventRepository(c.DB)
	c.AuditLogRepo = repositories.NewAuditLogRepository(c.DB)
	c.MFASettingsRepo = repositories.NewMFASettingsRepository(c.DB)
}

func (c *Container) initServices() error {
	cfg := c.Config

	// Initialize basic services
	c.PasswordSvc = auth.NewPasswordService(cfg.BcryptRounds)
	c.TokenSvc = auth.NewJWTService(cfg.JWTSecret, cfg.JWTIssuer, cfg.AccessTTL, cfg.RefreshTTL, cfg.MFATokenTTL)
	enc, err := crypto.NewEncryptionService(cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to create encryption service: %w", err)
	}
	c.EncryptionSvc = enc
	if c.NotificationSvc == nil {
		c.NotificationSvc = notifications.NewTwilioService(cfg.TwilioSID, cfg.TwilioToken, cfg.TwilioFrom, c.Logger)
	}
	c.RateLimiter = ratelimit.NewRedisLimiter(c.RedisClient, cfg.RateLimitRequests, cfg.RateLimitWindow)

	cas, err := auth.NewCasbinService(c.DB, cfg.CasbinModelPath)
	if err != nil {
		return err
	}
	c.PolicySvc = services.NewPolicyService(cas.E)

	// Session and security services come first; everything else logs through them
	c.SessionSvc = services.NewSessionService(c.SessionRepo, cfg.SessionMaxAge, c.Logger)
	c.SecuritySvc = services.NewSecurityService(c.SecurityEventRepo,
		services.NewSuspiciousActivityDetector(c.SecurityEventRepo), c.SessionSvc, c.Logger)
	c.AuditSvc = services.NewAuditService(c.AuditLogRepo, c.Logger)

	c.MFASvc = services.NewMFAService(c.MFASettingsRepo, c.UserRepo,
		auth.NewTOTPService(cfg.MFAIssuer, cfg.MFAWindow), c.EncryptionSvc,
		c.SecuritySvc, c.AuditSvc, c.Logger)

	c.AuthSvc = services.NewAuthService(
		c.UserRepo,
		c.SessionSvc,
		c.PasswordSvc,
		c.TokenSvc,
		challenge.NewRedisStore(c.RedisClient),
		c.MFASvc,
		c.SecuritySvc,
		c.AuditSvc,
		c.NotificationSvc,
		services.AuthConfig{
			MaxFailedAttempts: cfg.LockoutMaxAttempts,
			LockoutDuration:   cfg.LockoutDuration,
			PasswordResetTTL:  cfg.PasswordResetTTL,
		},
		c.Logger,
	)

	return nil
}

// Router builds the HTTP handler tree
func (c *Container) Router() *gin.Engine {
	h := httpx.Handlers{
		Auth:     handlers.NewAuthHandlers(c.AuthSvc, c.Logger),
		MFA:      handlers.NewMFAHandlers(c.MFASvc, c.Logger),
		Sessions: handlers.NewSessionHandlers(c.SessionSvc, c.SecuritySvc, c.Logger),
		Security: handlers.NewSecurityHandlers(c.SecuritySvc, c.Logger),
		Admin:    handlers.NewAdminHandlers(c.AuthSvc, c.MFASvc, c.Logger),
		Policies: handlers.NewPolicyHandlers(c.PolicySvc, c.Logger),
	}

	return httpx.BuildRouter(h, httpx.RouterOptions{
		JWT:          middleware.NewAuthMW(c.TokenSvc, c.SessionSvc, c.Logger),
		Casbin:       middleware.NewCasbinMW(c.PolicySvc, c.SecuritySvc, c.Logger),
		RateLimit:    middleware.RateLimit(c.RateLimiter, c.Logger),
		Logger:       c.Logger,
		ExposeErrors: !c.Config.IsProduction(),
	})
}

// Close closes all connections
func (c *Container) Close() error {
	if c.RedisClient != nil {
		c.RedisClient.Close()
	}

	if c.DB != nil {
		sqlDB, err := c.DB.DB()
		if err != nil {
			return err
		}
		return sqlDB.Close()
	}

	return nil
}
