package services

import (
	"context"
	"log/slog"
	"strings"

	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
	"gorm.io/datatypes"
)

// ProjectService provides business logic for projects and their members.
type ProjectService struct {
	store      *repository.Store
	authorizer *policy.Authorizer
	log        *slog.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(deps Deps) *ProjectService {
	return &ProjectService{
		store:      deps.Store,
		authorizer: deps.Authorizer,
		log:        deps.Logger,
	}
}

// CreateProjectInput represents parameters to create a project. A nil
// Settings gets models.DefaultProjectSettings.
type CreateProjectInput struct {
	Name        string
	Description string
	Settings    map[string]interface{}
}

// UpdateProjectInput lists the fields a project update may change.
type UpdateProjectInput struct {
	Name        *string
	Description *string
	Settings    map[string]interface{}
}

// Create creates a project owned by the actor and makes the actor its first
// admin in the same transaction.
func (s *ProjectService) Create(ctx context.Context, actor *auth.Claims, input CreateProjectInput) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionCreateProject, policy.System()); err != nil {
		return nil, err
	}

	name, err := requiredText("name", input.Name, maxProjectNameLength)
	if err != nil {
		return nil, err
	}
	settings := models.DefaultProjectSettings()
	if input.Settings != nil {
		settings = datatypes.JSONMap(input.Settings)
	}

	project := &models.Project{
		Name:        name,
		Description: strings.TrimSpace(input.Description),
		OwnerID:     actor.UserID,
		Settings:    settings,
	}

	err = s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		if err := uow.Projects.Create(ctx, project); err != nil {
			return err
		}
		return uow.Projects.AddMember(ctx, &models.ProjectMember{
			ProjectID: project.ID,
			UserID:    actor.UserID,
			IsAdmin:   true,
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project created", "project_id", project.ID, "owner_id", actor.UserID)
	return project, nil
}

// Get returns a project the actor can see.
func (s *ProjectService) Get(ctx context.Context, actor *auth.Claims, id uint64) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.Project(id)); err != nil {
		return nil, err
	}
	project, err := s.store.Projects.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if project == nil {
		return nil, apperrors.NotFound("project not found")
	}
	return project, nil
}

// List returns the projects the actor belongs to, or every project for a
// system admin.
func (s *ProjectService) List(ctx context.Context, actor *auth.Claims) ([]models.Project, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}
	if actor.IsSystemAdmin() {
		return s.store.Projects.List(ctx)
	}
	return s.store.Projects.ListByMember(ctx, actor.UserID)
}

// Update changes a project's name, description or settings. Only project
// admins may do so.
func (s *ProjectService) Update(ctx context.Context, actor *auth.Claims, id uint64, input UpdateProjectInput) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateProject, policy.Project(id)); err != nil {
		return nil, err
	}

	var upd repository.ProjectUpdate
	if input.Name != nil {
		name, err := requiredText("name", *input.Name, maxProjectNameLength)
		if err != nil {
			return nil, err
		}
		upd.Name = &name
	}
	if input.Description != nil {
		desc := strings.TrimSpace(*input.Description)
		upd.Description = &desc
	}
	if input.Settings != nil {
		upd.Settings = datatypes.JSONMap(input.Settings)
	}

	if _, err := s.store.Projects.Update(ctx, id, upd); err != nil {
		return nil, err
	}
	return s.Get(ctx, actor, id)
}

// Delete removes a project with its memberships and tasks.
func (s *ProjectService) Delete(ctx context.Context, actor *auth.Claims, id uint64) (bool, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionDeleteProject, policy.Project(id)); err != nil {
		return false, err
	}

	deleted, err := s.store.Projects.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info("project deleted", "project_id", id, "by", actor.UserID)
	}
	return deleted, nil
}

// ListMembers returns the memberships of a project.
func (s *ProjectService) ListMembers(ctx context.Context, actor *auth.Claims, projectID uint64) ([]models.ProjectMember, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.Project(projectID)); err != nil {
		return nil, err
	}
	return s.store.Projects.ListMembers(ctx, projectID)
}

// AddMember adds a user to a project.
func (s *ProjectService) AddMember(ctx context.Context, actor *auth.Claims, projectID, userID uint64, isAdmin bool) (*models.ProjectMember, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateMembership, policy.Project(projectID)); err != nil {
		return nil, err
	}

	member := &models.ProjectMember{ProjectID: projectID, UserID: userID, IsAdmin: isAdmin}
	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		project, err := uow.Projects.FindByID(ctx, projectID)
		if err != nil {
			return err
		}
		if project == nil {
			return apperrors.NotFound("project not found")
		}
		user, err := uow.Users.FindByID(ctx, userID)
		if err != nil {
			return err
		}
		if user == nil {
			return apperrors.NotFound("user not found")
		}
		existing, err := uow.Projects.FindMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if existing != nil {
			return apperrors.Validation(apperrors.ErrCodeAlreadyExists, "user is already a member of this project")
		}
		return uow.Projects.AddMember(ctx, member)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("member added", "project_id", projectID, "user_id", userID, "admin", isAdmin, "by", actor.UserID)
	return member, nil
}

// RemoveMember removes a user from a project. The last admin cannot be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, actor *auth.Claims, projectID, userID uint64) (bool, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateMembership, policy.Project(projectID)); err != nil {
		return false, err
	}

	var removed bool
	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		member, err := uow.Projects.FindMember(ctx, projectID, userID)
		if err != nil || member == nil {
			return err
		}
		if member.IsAdmin {
			if err := ensureAnotherAdmin(ctx, uow, projectID); err != nil {
				return err
			}
		}
		removed, err = uow.Projects.RemoveMember(ctx, projectID, userID)
		return err
	})
	if err != nil {
		return false, err
	}

	if removed {
		s.log.Info("member removed", "project_id", projectID, "user_id", userID, "by", actor.UserID)
	}
	return removed, nil
}

// SetMemberAdmin grants or revokes the admin flag. The last admin cannot be
// demoted.
func (s *ProjectService) SetMemberAdmin(ctx context.Context, actor *auth.Claims, projectID, userID uint64, isAdmin bool) (bool, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateMembership, policy.Project(projectID)); err != nil {
		return false, err
	}

	var changed bool
	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		member, err := uow.Projects.FindMember(ctx, projectID, userID)
		if err != nil {
			return err
		}
		if member == nil {
			return apperrors.NotFound("membership not found")
		}
		if member.IsAdmin == isAdmin {
			return nil
		}
		if !isAdmin {
			if err := ensureAnotherAdmin(ctx, uow, projectID); err != nil {
				return err
			}
		}
		changed, err = uow.Projects.SetMemberAdmin(ctx, projectID, userID, isAdmin)
		return err
	})
	if err != nil {
		return false, err
	}
	return changed, nil
}

func ensureAnotherAdmin(ctx context.Context, uow *repository.UnitOfWork, projectID uint64) error {
	admins, err := uow.Projects.CountAdmins(ctx, projectID)
	if err != nil {
		return err
	}
	if admins <= 1 {
		return apperrors.Validation(apperrors.ErrCodeInvalidOperation, "a project must keep at least one admin")
	}
	return nil
}

// TransferOwnership makes another member the owner of a project. The new
// owner is promoted to admin if needed.
func (s *ProjectService) TransferOwnership(ctx context.Context, actor *auth.Claims, projectID, newOwnerID uint64) (*models.Project, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateProject, policy.Project(projectID)); err != nil {
		return nil, err
	}

	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		member, err := uow.Projects.FindMember(ctx, projectID, newOwnerID)
		if err != nil {
			return err
		}
		if member == nil {
			return apperrors.Validation(apperrors.ErrCodeInvalidOperation, "the new owner must be a project member")
		}
		if !member.IsAdmin {
			if _, err := uow.Projects.SetMemberAdmin(ctx, projectID, newOwnerID, true); err != nil {
				return err
			}
		}
		_, err = uow.Projects.Update(ctx, projectID, repository.ProjectUpdate{OwnerID: &newOwnerID})
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("project ownership transferred", "project_id", projectID, "owner_id", newOwnerID, "by", actor.UserID)
	return s.Get(ctx, actor, projectID)
}
