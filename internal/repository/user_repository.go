package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		return database.ClassifyError("failed to create user", err)
	}
	return nil
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	return r.findOne(ctx, "id = ?", id)
}

// FindByLoginID finds a user by login ID
func (r *GormUserRepository) FindByLoginID(ctx context.Context, loginID string) (*models.User, error) {
	return r.findOne(ctx, "login_id = ?", loginID)
}

// FindByEmail finds a user by email
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.findOne(ctx, "email = ?", email)
}

func (r *GormUserRepository) findOne(ctx context.Context, query string, arg interface{}) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where(query, arg).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.ClassifyError("failed to find user", err)
	}
	return &user, nil
}

// List returns all users
func (r *GormUserRepository) List(ctx context.Context) ([]models.User, error) {
	var users []models.User
	if err := r.db.WithContext(ctx).Order("id").Find(&users).Error; err != nil {
		return nil, database.ClassifyError("failed to list users", err)
	}
	return users, nil
}

// ListVisibleTo returns userID and every member of a project userID belongs to
func (r *GormUserRepository) ListVisibleTo(ctx context.Context, userID uint64) ([]models.User, error) {
	peers := r.db.Table("project_members AS mine").
		Select("peers.user_id").
		Joins("JOIN project_members AS peers ON peers.project_id = mine.project_id").
		Where("mine.user_id = ?", userID)

	var users []models.User
	if err := r.db.WithContext(ctx).
		Where("id = ? OR id IN (?)", userID, peers).
		Order("id").
		Find(&users).Error; err != nil {
		return nil, database.ClassifyError("failed to list users", err)
	}
	return users, nil
}

// Update applies a partial update
func (r *GormUserRepository) Update(ctx context.Context, id uint64, upd UserUpdate) (bool, error) {
	updates := map[string]interface{}{}
	if upd.LoginID != nil {
		updates["login_id"] = *upd.LoginID
	}
	if upd.DisplayName != nil {
		updates["display_name"] = *upd.DisplayName
	}
	if upd.Email != nil {
		updates["email"] = *upd.Email
	}
	if upd.Password != nil {
		updates["password"] = *upd.Password
	}
	if upd.Role != nil {
		updates["role"] = string(*upd.Role)
	}
	if len(updates) == 0 {
		return false, nil
	}

	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, database.ClassifyError("failed to update user", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// TouchLastLogin stamps last_login
func (r *GormUserRepository) TouchLastLogin(ctx context.Context, id uint64, at time.Time) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Update("last_login", at)
	if result.Error != nil {
		return false, database.ClassifyError("failed to record login", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete removes a user. Memberships cascade in the schema; tasks assigned to
// the user are detached here. A user who still owns a project cannot be
// deleted and the whole operation is rolled back.
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	var deleted bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.Task{}).
			Where("assignee_id = ?", id).
			Updates(map[string]interface{}{
				"assignee_id": nil,
				"updated_at":  tx.NowFunc(),
			}).Error; err != nil {
			return err
		}

		result := tx.Where("id = ?", id).Delete(&models.User{})
		if result.Error != nil {
			return result.Error
		}
		deleted = result.RowsAffected > 0
		return nil
	})
	if err != nil {
		return false, database.ClassifyError("failed to delete user", err)
	}
	return deleted, nil
}

// DeleteAllExcept removes every user other than keepID
func (r *GormUserRepository) DeleteAllExcept(ctx context.Context, keepID uint64) (int64, error) {
	result := r.db.WithContext(ctx).Where("id <> ?", keepID).Delete(&models.User{})
	if result.Error != nil {
		return 0, database.ClassifyError("failed to delete users", result.Error)
	}
	return result.RowsAffected, nil
}
