package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/you/crmauth/domain"
	"gorm.io/gorm"
)

// UserRepositoryImpl implements domain.UserRepository using GORM
type UserRepositoryImpl struct {
	db *gorm.DB
}

// DBUser represents the database model for User (with GORM tags)
type DBUser struct {
	ID                   string `gorm:"primaryKey;size:36"`
	Email                string `gorm:"uniqueIndex;size:255"`
	PasswordHash         string `gorm:"column:password_hash"`
	FirstName            string `gorm:"size:100"`
	LastName             string `gorm:"size:100"`
	Phone                string `gorm:"size:32"`
	Role                 string `gorm:"index;size:16"`
	Status               string `gorm:"index;size:16"`
	OrganizationID       string `gorm:"index;size:36"`
	MFAEnabled           bool
	FailedLoginAttempts  int `gorm:"not null;default:0"`
	LockedUntil          *time.Time
	LastLoginAt          *time.Time
	PasswordResetToken   string `gorm:"index;size:64"`
	PasswordResetExpires *time.Time
	CreatedAt            time.Time `gorm:"index"`
	UpdatedAt            time.Time
}

// TableName returns the table name for GORM
func (DBUser) TableName() string {
	return "users"
}

// NewUserRepository creates a new user repository
func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &UserRepositoryImpl{db: db}
}

// Create implements domain.UserRepository
func (r *UserRepositoryImpl) Create(ctx context.Context, user *domain.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	dbUser := r.domainToDB(user)

	err := withRetry(ctx, func() error {
		return r.db.WithContext(ctx).Create(dbUser).Error
	})
	if err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) || isUniqueViolation(err) {
			return domain.ErrUserAlreadyExists
		}
		return err
	}
	user.CreatedAt = dbUser.CreatedAt
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// FindByEmail implements domain.UserRepository
func (r *UserRepositoryImpl) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

// FindByID implements domain.UserRepository
func (r *UserRepositoryImpl) FindByID(ctx context.Context, id string) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByResetToken implements domain.UserRepository
func (r *UserRepositoryImpl) FindByResetToken(ctx context.Context, tokenHash string) (*domain.User, error) {
	if tokenHash == "" {
		return nil, domain.ErrUserNotFound
	}
	return r.findOne(ctx, "password_reset_token = ?", tokenHash)
}

func (r *UserRepositoryImpl) findOne(ctx context.Context, query string, arg interface{}) (*domain.User, error) {
	var dbUser DBUser
	err := r.db.WithContext(ctx).Where(query, arg).First(&dbUser).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, err
	}
	return r.dbToDomain(&dbUser), nil
}

// Update implements domain.UserRepository. Columns outside fields are never written, so
// counters maintained by RecordFailedLogin keep their current values.
func (r *UserRepositoryImpl) Update(ctx context.Context, user *domain.User, fields ...string) error {
	if len(fields) == 0 {
		return fmt.Errorf("update of user %s names no fields", user.ID)
	}
	dbUser := r.domainToDB(user)
	dbUser.UpdatedAt = time.Now().UTC()

	cols := make([]string, 0, len(fields)+1)
	cols = append(cols, fields...)
	cols = append(cols, "UpdatedAt")

	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", user.ID).Select(cols).Updates(dbUser)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	user.UpdatedAt = dbUser.UpdatedAt
	return nil
}

// RecordFailedLogin increments the counter and applies the lockout in one transaction.
// An expired lock starts a fresh count.
func (r *UserRepositoryImpl) RecordFailedLogin(ctx context.Context, userID string, update domain.FailedLoginUpdate) (*domain.FailedLoginResult, error) {
	now := update.Now.UTC()
	result := &domain.FailedLoginResult{}

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var u DBUser
		if err := tx.Where("id = ?", userID).First(&u).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return err
		}

		if u.LockedUntil != nil && !u.LockedUntil.After(now) {
			if err := tx.Model(&DBUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
				"failed_login_attempts": 0,
				"locked_until":          nil,
			}).Error; err != nil {
				return err
			}
			u.LockedUntil = nil
		}

		if err := tx.Model(&DBUser{}).Where("id = ?", userID).
			Update("failed_login_attempts", gorm.Expr("failed_login_attempts + 1")).Error; err != nil {
			return err
		}

		var after DBUser
		if err := tx.Where("id = ?", userID).First(&after).Error; err != nil {
			return err
		}
		result.Attempts = after.FailedLoginAttempts

		result.LockedUntil = u.LockedUntil
		if result.Attempts >= update.MaxAttempts && u.LockedUntil == nil {
			until := now.Add(update.LockFor)
			if err := tx.Model(&DBUser{}).Where("id = ?", userID).Update("locked_until", until).Error; err != nil {
				return err
			}
			result.LockedUntil = &until
			result.JustLocked = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// RecordSuccessfulLogin clears the failure counter and lockout and stamps the login time
func (r *UserRepositoryImpl) RecordSuccessfulLogin(ctx context.Context, userID string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Updates(map[string]interface{}{
		"failed_login_attempts": 0,
		"locked_until":          nil,
		"last_login_at":         at.UTC(),
	}).Error
}

// SetMFAEnabled mirrors the MFA settings state onto the user row
func (r *UserRepositoryImpl) SetMFAEnabled(ctx context.Context, userID string, enabled bool) error {
	res := r.db.WithContext(ctx).Model(&DBUser{}).Where("id = ?", userID).Update("mfa_enabled", enabled)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrUserNotFound
	}
	return nil
}

// domainToDB converts domain user to database user
func (r *UserRepositoryImpl) domainToDB(user *domain.User) *DBUser {
	return &DBUser{
		ID:                   user.ID,
		Email:                user.Email,
		PasswordHash:         user.PasswordHash,
		FirstName:            user.FirstName,
		LastName:             user.LastName,
		Phone:                user.Phone,
		Role:                 string(user.Role),
		Status:               string(user.Status),
		OrganizationID:       user.OrganizationID,
		MFAEnabled:           user.MFAEnabled,
		FailedLoginAttempts:  user.FailedLoginAttempts,
		LockedUntil:          user.LockedUntil,
		LastLoginAt:          user.LastLoginAt,
		PasswordResetToken:   user.PasswordResetToken,
		PasswordResetExpires: user.PasswordResetExpires,
		CreatedAt:            user.CreatedAt,
		UpdatedAt:            user.UpdatedAt,
	}
}

// dbToDomain converts database user to domain user
func (r *UserRepositoryImpl) dbToDomain(dbUser *DBUser) *domain.User {
	return &domain.User{
		ID:                   dbUser.ID,
		Email:                dbUser.Email,
		PasswordHash:         dbUser.PasswordHash,
		FirstName:            dbUser.FirstName,
		LastName:             dbUser.LastName,
		Phone:                dbUser.Phone,
		Role:                 domain.Role(dbUser.Role),
		Status:               domain.UserStatus(dbUser.Status),
		OrganizationID:       dbUser.OrganizationID,
		MFAEnabled:           dbUser.MFAEnabled,
		FailedLoginAttempts:  dbUser.FailedLoginAttempts,
		LockedUntil:          utcPtr(dbUser.LockedUntil),
		LastLoginAt:          utcPtr(dbUser.LastLoginAt),
		PasswordResetToken:   dbUser.PasswordResetToken,
		PasswordResetExpires: utcPtr(dbUser.PasswordResetExpires),
		CreatedAt:            dbUser.CreatedAt.UTC(),
		UpdatedAt:            dbUser.UpdatedAt.UTC(),
	}
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}

func isUniqueViolation(err error) bool {
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "unique constraint") || strings.Contains(msg, "duplicate key")
}
