package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yukikurage/task-tracker/internal/database"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormSettingRepository is a GORM implementation of SettingRepository
type GormSettingRepository struct {
	db *gorm.DB
}

// NewSettingRepository creates a new SettingRepository
func NewSettingRepository(db *gorm.DB) SettingRepository {
	return &GormSettingRepository{db: db}
}

// Get finds a setting by key
func (r *GormSettingRepository) Get(ctx context.Context, key string) (*models.Setting, error) {
	var setting models.Setting
	if err := r.db.WithContext(ctx).Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		First(&setting).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.ClassifyError("failed to get setting", err)
	}
	return &setting, nil
}

// List returns all settings
func (r *GormSettingRepository) List(ctx context.Context) ([]models.Setting, error) {
	var settings []models.Setting
	if err := r.db.WithContext(ctx).Order(clause.OrderByColumn{Column: clause.Column{Name: "key"}}).
		Find(&settings).Error; err != nil {
		return nil, database.ClassifyError("failed to list settings", err)
	}
	return settings, nil
}

// Set upserts a setting. The value must be a JSON document.
func (r *GormSettingRepository) Set(ctx context.Context, key string, value datatypes.JSON) (*models.Setting, error) {
	if key == "" {
		return nil, apperrors.Validation(apperrors.ErrCodeMissingField, "setting key is required")
	}
	if len(value) == 0 || !json.Valid(value) {
		return nil, apperrors.Validation(apperrors.ErrCodeInvalidFormat, "setting value must be valid JSON")
	}

	setting := &models.Setting{
		Key:         key,
		Value:       value,
		LastUpdated: r.db.NowFunc(),
	}

	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"value", "last_updated"}),
		}).
		Create(setting).Error
	if err != nil {
		return nil, database.ClassifyError("failed to save setting", err)
	}
	return setting, nil
}

// Delete removes a setting
func (r *GormSettingRepository) Delete(ctx context.Context, key string) (bool, error) {
	result := r.db.WithContext(ctx).
		Where(clause.Eq{Column: clause.Column{Name: "key"}, Value: key}).
		Delete(&models.Setting{})
	if result.Error != nil {
		return false, database.ClassifyError("failed to delete setting", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll removes every setting
func (r *GormSettingRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Setting{})
	if result.Error != nil {
		return 0, database.ClassifyError("failed to delete settings", result.Error)
	}
	return result.RowsAffected, nil
}
