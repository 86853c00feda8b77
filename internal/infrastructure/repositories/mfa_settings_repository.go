package repositories

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/you/crmauth/domain"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// MFASettingsRepositoryImpl implements domain.MFASettingsRepository using GORM
type MFASettingsRepositoryImpl struct {
	db *gorm.DB
}

// DBMFASettings is the database model for MFASettings
type DBMFASettings struct {
	UserID               string `gorm:"primaryKey;size:36"`
	Enabled              bool
	EncryptedSecret      string         `gorm:"type:text"`
	EncryptedBackupCodes datatypes.JSON `gorm:"type:json"`
	Version              int            `gorm:"not null;default:0"`
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// TableName returns the table name for GORM
func (DBMFASettings) TableName() string {
	return "mfa_settings"
}

// NewMFASettingsRepository creates a new MFA settings repository
func NewMFASettingsRepository(db *gorm.DB) domain.MFASettingsRepository {
	return &MFASettingsRepositoryImpl{db: db}
}

// FindByUserID returns domain.ErrMFANotSetUp when the user never started setup
func (r *MFASettingsRepositoryImpl) FindByUserID(ctx context.Context, userID string) (*domain.MFASettings, error) {
	var row DBMFASettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&row).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrMFANotSetUp
		}
		return nil, err
	}

	var codes []string
	if len(row.EncryptedBackupCodes) > 0 {
		if err := json.Unmarshal(row.EncryptedBackupCodes, &codes); err != nil {
			return nil, fmt.Errorf("failed to decode backup codes: %w", err)
		}
	}

	return &domain.MFASettings{
		UserID:               row.UserID,
		Enabled:              row.Enabled,
		EncryptedSecret:      row.EncryptedSecret,
		EncryptedBackupCodes: codes,
		Version:              row.Version,
		CreatedAt:            row.CreatedAt.UTC(),
		UpdatedAt:            row.UpdatedAt.UTC(),
	}, nil
}

// Upsert replaces the settings of a user and bumps the version
func (r *MFASettingsRepositoryImpl) Upsert(ctx context.Context, settings *domain.MFASettings) error {
	codes, err := encodeCodes(settings.EncryptedBackupCodes)
	if err != nil {
		return err
	}
	settings.Version++

	row := &DBMFASettings{
		UserID:               settings.UserID,
		Enabled:              settings.Enabled,
		EncryptedSecret:      settings.EncryptedSecret,
		EncryptedBackupCodes: codes,
		Version:              settings.Version,
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"enabled", "encrypted_secret", "encrypted_backup_codes", "version", "updated_at"}),
	}).Create(row).Error
}

// UpdateIfVersion implements domain.MFASettingsRepository
func (r *MFASettingsRepositoryImpl) UpdateIfVersion(ctx context.Context, settings *domain.MFASettings, expected int) (bool, error) {
	codes, err := encodeCodes(settings.EncryptedBackupCodes)
	if err != nil {
		return false, err
	}

	res := r.db.WithContext(ctx).Model(&DBMFASettings{}).
		Where("user_id = ? AND version = ?", settings.UserID, expected).
		Updates(map[string]interface{}{
			"enabled":                settings.Enabled,
			"encrypted_secret":       settings.EncryptedSecret,
			"encrypted_backup_codes": codes,
			"version":                expected + 1,
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 0 {
		return false, nil
	}
	settings.Version = expected + 1
	return true, nil
}

// Delete implements domain.MFASettingsRepository
func (r *MFASettingsRepositoryImpl) Delete(ctx context.Context, userID string) error {
	return r.db.WithContext(ctx).Where("user_id = ?", userID).Delete(&DBMFASettings{}).Error
}

func encodeCodes(codes []string) (datatypes.JSON, error) {
	if codes == nil {
		codes = []string{}
	}
	b, err := json.Marshal(codes)
	if err != nil {
		return nil, fmt.Errorf("failed to encode backup codes: %w", err)
	}
	return datatypes.JSON(b), nil
}
