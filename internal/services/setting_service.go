package services

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
	"gorm.io/datatypes"
)

// SettingService manages the global key/value settings.
type SettingService struct {
	store      *repository.Store
	authorizer *policy.Authorizer
	log        *slog.Logger
}

// NewSettingService creates a new SettingService.
func NewSettingService(deps Deps) *SettingService {
	return &SettingService{
		store:      deps.Store,
		authorizer: deps.Authorizer,
		log:        deps.Logger,
	}
}

// Get returns the setting stored under key.
func (s *SettingService) Get(ctx context.Context, actor *auth.Claims, key string) (*models.Setting, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.System()); err != nil {
		return nil, err
	}
	setting, err := s.store.Settings.Get(ctx, strings.TrimSpace(key))
	if err != nil {
		return nil, err
	}
	if setting == nil {
		return nil, apperrors.NotFound("setting not found")
	}
	return setting, nil
}

// List returns every setting.
func (s *SettingService) List(ctx context.Context, actor *auth.Claims) ([]models.Setting, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.System()); err != nil {
		return nil, err
	}
	return s.store.Settings.List(ctx)
}

// Set stores value under key, replacing any previous value. value may be any
// JSON encodable value, including json.RawMessage.
func (s *SettingService) Set(ctx context.Context, actor *auth.Claims, key string, value interface{}) (*models.Setting, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
		return nil, err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return nil, apperrors.Validation(apperrors.ErrCodeInvalidFormat, "setting value must be JSON encodable")
	}
	setting, err := s.store.Settings.Set(ctx, strings.TrimSpace(key), datatypes.JSON(raw))
	if err != nil {
		return nil, err
	}

	s.log.Info("setting updated", "key", setting.Key, "by", actor.UserID)
	return setting, nil
}

// Delete removes a setting.
func (s *SettingService) Delete(ctx context.Context, actor *auth.Claims, key string) (bool, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
		return false, err
	}
	return s.store.Settings.Delete(ctx, strings.TrimSpace(key))
}
