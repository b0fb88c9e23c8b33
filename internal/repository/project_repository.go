package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a new project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	if project.Settings == nil {
		project.Settings = datatypes.JSONMap{}
	}
	now := r.db.NowFunc()
	if project.CreatedAt.IsZero() {
		project.CreatedAt = now
	}
	if project.LastUpdated.IsZero() {
		project.LastUpdated = project.CreatedAt
	}

	if err := r.db.WithContext(ctx).Create(project).Error; err != nil {
		return database.ClassifyError("failed to create project", err)
	}
	return nil
}

// FindByID finds a project by ID
func (r *GormProjectRepository) FindByID(ctx context.Context, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).First(&project, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.ClassifyError("failed to find project", err)
	}
	normalizeProject(&project)
	return &project, nil
}

// List returns all projects
func (r *GormProjectRepository) List(ctx context.Context) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).Order("id").Find(&projects).Error; err != nil {
		return nil, database.ClassifyError("failed to list projects", err)
	}
	for i := range projects {
		normalizeProject(&projects[i])
	}
	return projects, nil
}

// ListByMember lists the projects a user belongs to
func (r *GormProjectRepository) ListByMember(ctx context.Context, userID uint64) ([]models.Project, error) {
	var projects []models.Project
	if err := r.db.WithContext(ctx).
		Joins("JOIN project_members ON project_members.project_id = projects.id").
		Where("project_members.user_id = ?", userID).
		Order("projects.id").
		Find(&projects).Error; err != nil {
		return nil, database.ClassifyError("failed to list projects", err)
	}
	for i := range projects {
		normalizeProject(&projects[i])
	}
	return projects, nil
}

// CountByOwner counts projects owned by a user
func (r *GormProjectRepository) CountByOwner(ctx context.Context, userID uint64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.Project{}).Where("owner_id = ?", userID).Count(&count).Error; err != nil {
		return 0, database.ClassifyError("failed to count projects", err)
	}
	return count, nil
}

// Update applies a partial update and refreshes last_updated
func (r *GormProjectRepository) Update(ctx context.Context, id uint64, upd ProjectUpdate) (bool, error) {
	updates := map[string]interface{}{}
	if upd.Name != nil {
		updates["name"] = *upd.Name
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.OwnerID != nil {
		updates["owner_id"] = *upd.OwnerID
	}
	if upd.Settings != nil {
		updates["settings"] = upd.Settings
	}
	if len(updates) == 0 {
		return false, nil
	}
	updates["last_updated"] = r.db.NowFunc()

	result := r.db.WithContext(ctx).Model(&models.Project{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, database.ClassifyError("failed to update project", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// Delete deletes a project. The schema cascades to its members and tasks.
func (r *GormProjectRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Project{})
	if result.Error != nil {
		return false, database.ClassifyError("failed to delete project", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll removes every project
func (r *GormProjectRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Project{})
	if result.Error != nil {
		return 0, database.ClassifyError("failed to delete projects", result.Error)
	}
	return result.RowsAffected, nil
}

// AddMember adds a member to a project
func (r *GormProjectRepository) AddMember(ctx context.Context, member *models.ProjectMember) error {
	if member.JoinedAt.IsZero() {
		member.JoinedAt = r.db.NowFunc()
	}
	if err := r.db.WithContext(ctx).Create(member).Error; err != nil {
		return database.ClassifyError("failed to add project member", err)
	}
	return nil
}

// RemoveMember removes a member from a project
func (r *GormProjectRepository) RemoveMember(ctx context.Context, projectID, userID uint64) (bool, error) {
	result := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{})
	if result.Error != nil {
		return false, database.ClassifyError("failed to remove project member", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// SetMemberAdmin changes a member's admin flag
func (r *GormProjectRepository) SetMemberAdmin(ctx context.Context, projectID, userID uint64, isAdmin bool) (bool, error) {
	result := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Update("is_admin", isAdmin)
	if result.Error != nil {
		return false, database.ClassifyError("failed to update project member", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// FindMember finds a specific project member
func (r *GormProjectRepository) FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error) {
	var member models.ProjectMember
	if err := r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		First(&member).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.ClassifyError("failed to find project member", err)
	}
	return &member, nil
}

// ListMembers lists all members of a project
func (r *GormProjectRepository) ListMembers(ctx context.Context, projectID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.WithContext(ctx).
		Where("project_id = ?", projectID).
		Order("joined_at, user_id").
		Find(&members).Error; err != nil {
		return nil, database.ClassifyError("failed to list project members", err)
	}
	return members, nil
}

// ListMembershipsByUser lists all memberships of a user
func (r *GormProjectRepository) ListMembershipsByUser(ctx context.Context, userID uint64) ([]models.ProjectMember, error) {
	var members []models.ProjectMember
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("project_id").
		Find(&members).Error; err != nil {
		return nil, database.ClassifyError("failed to list memberships", err)
	}
	return members, nil
}

// CountAdmins counts admin members of a project
func (r *GormProjectRepository) CountAdmins(ctx context.Context, projectID uint64) (int64, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.ProjectMember{}).
		Where("project_id = ? AND is_admin = ?", projectID, true).
		Count(&count).Error; err != nil {
		return 0, database.ClassifyError("failed to count project admins", err)
	}
	return count, nil
}

func normalizeProject(p *models.Project) {
	if p.Settings == nil {
		p.Settings = datatypes.JSONMap{}
		return
	}
	for k, v := range p.Settings {
		p.Settings[k] = plainNumbers(v)
	}
}

// plainNumbers replaces the json.Number values JSONMap.Scan produces with
// float64, matching what json.Unmarshal yields for the stored document.
func plainNumbers(v interface{}) interface{} {
	switch val := v.(type) {
	case json.Number:
		if f, err := val.Float64(); err == nil {
			return f
		}
		return val.String()
	case map[string]interface{}:
		for k, item := range val {
			val[k] = plainNumbers(item)
		}
		return val
	case []interface{}:
		for i, item := range val {
			val[i] = plainNumbers(item)
		}
		return val
	default:
		return v
	}
}
