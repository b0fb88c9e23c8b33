package services

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"

	"github.com/yukikurage/task-tracker/internal/auth"
	"github.com/yukikurage/task-tracker/internal/dto"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
	"gorm.io/datatypes"
)

// ImportService loads snapshots into the store and wipes it.
type ImportService struct {
	store      *repository.Store
	authorizer *policy.Authorizer
	hasher     *auth.Hasher
	log        *slog.Logger
}

// NewImportService creates a new ImportService.
func NewImportService(deps Deps) *ImportService {
	return &ImportService{
		store:      deps.Store,
		authorizer: deps.Authorizer,
		hasher:     deps.Authenticator.Hasher(),
		log:        deps.Logger,
	}
}

// ImportResult counts the records created by an import.
type ImportResult struct {
	Users    int `json:"users"`
	Projects int `json:"projects"`
	Members  int `json:"members"`
	Tasks    int `json:"tasks"`
	Settings int `json:"settings"`
}

// ResetResult counts the records removed by a reset.
type ResetResult struct {
	Users    int64 `json:"users"`
	Projects int64 `json:"projects"`
	Tasks    int64 `json:"tasks"`
	Settings int64 `json:"settings"`
}

func invalidSnapshot(format string, args ...interface{}) error {
	return apperrors.Validation(apperrors.ErrCodeInvalidInput, fmt.Sprintf(format, args...))
}

// Import creates every record of snap in one transaction. Nothing is written
// if any record fails.
func (s *ImportService) Import(ctx context.Context, actor *auth.Claims, snap *dto.Snapshot) (*ImportResult, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
		return nil, err
	}
	if snap == nil {
		return nil, missingField("snapshot")
	}
	if err := snap.Validate(); err != nil {
		return nil, apperrors.Validation(apperrors.ErrCodeInvalidInput, err.Error())
	}
	if err := checkReferences(snap); err != nil {
		return nil, err
	}

	// Hashing is CPU bound and stays outside the transaction.
	users := make([]models.User, len(snap.Users))
	for i, u := range snap.Users {
		password := u.Password
		if !auth.IsHash(password) {
			if err := auth.ValidatePassword(password); err != nil {
				return nil, err
			}
			hashed, err := s.hasher.Hash(password)
			if err != nil {
				return nil, err
			}
			password = hashed
		}
		role := models.RoleUser
		if u.Role != "" {
			role = models.Role(u.Role)
		}
		users[i] = models.User{
			LoginID:     u.LoginID,
			DisplayName: u.DisplayName,
			Email:       u.Email,
			Password:    password,
			Role:        role,
		}
	}

	members := withOwnerMemberships(snap)
	result := &ImportResult{}

	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		userIDs := make(map[uint64]uint64, len(users))
		for i := range users {
			if err := uow.Users.Create(ctx, &users[i]); err != nil {
				return err
			}
			userIDs[snap.Users[i].ID] = users[i].ID
		}
		result.Users = len(users)

		projectIDs := make(map[uint64]uint64, len(snap.Projects))
		for _, p := range snap.Projects {
			settings := models.DefaultProjectSettings()
			if p.Settings != nil {
				settings = datatypes.JSONMap(p.Settings)
			}
			project := &models.Project{
				Name:        p.Name,
				Description: p.Description,
				OwnerID:     userIDs[p.OwnerID],
				Settings:    settings,
			}
			if err := uow.Projects.Create(ctx, project); err != nil {
				return err
			}
			projectIDs[p.ID] = project.ID
		}
		result.Projects = len(snap.Projects)

		for _, m := range members {
			if err := uow.Projects.AddMember(ctx, &models.ProjectMember{
				ProjectID: projectIDs[m.ProjectID],
				UserID:    userIDs[m.UserID],
				IsAdmin:   m.IsAdmin,
			}); err != nil {
				return err
			}
		}
		result.Members = len(members)

		// Parents are linked in a second pass so tasks may appear in any order.
		taskIDs := make(map[uint64]uint64, len(snap.Tasks))
		for _, t := range snap.Tasks {
			task := snapshotTask(t, projectIDs, userIDs)
			if err := uow.Tasks.Create(ctx, task); err != nil {
				return err
			}
			taskIDs[t.ID] = task.ID
		}
		for _, t := range snap.Tasks {
			if t.ParentTaskID == nil {
				continue
			}
			parent := taskIDs[*t.ParentTaskID]
			if _, err := uow.Tasks.Update(ctx, taskIDs[t.ID], repository.TaskUpdate{ParentTaskID: &parent}); err != nil {
				return err
			}
		}
		result.Tasks = len(snap.Tasks)

		for _, key := range sortedKeys(snap.Settings) {
			if _, err := uow.Settings.Set(ctx, key, datatypes.JSON(snap.Settings[key])); err != nil {
				return err
			}
		}
		result.Settings = len(snap.Settings)
		return nil
	})
	if err != nil {
		s.log.Warn("import rolled back", "error", err, "by", actor.UserID)
		return nil, err
	}

	s.log.Info("import completed",
		"users", result.Users,
		"projects", result.Projects,
		"members", result.Members,
		"tasks", result.Tasks,
		"settings", result.Settings,
		"by", actor.UserID,
	)
	return result, nil
}

// Reset deletes every task, project, membership and setting, and every user
// except the actor, in one transaction.
func (s *ImportService) Reset(ctx context.Context, actor *auth.Claims) (*ResetResult, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateGlobal, policy.System()); err != nil {
		return nil, err
	}

	result := &ResetResult{}
	err := s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		var err error
		if result.Tasks, err = uow.Tasks.DeleteAll(ctx); err != nil {
			return err
		}
		if result.Projects, err = uow.Projects.DeleteAll(ctx); err != nil {
			return err
		}
		if result.Settings, err = uow.Settings.DeleteAll(ctx); err != nil {
			return err
		}
		result.Users, err = uow.Users.DeleteAllExcept(ctx, actor.UserID)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.log.Warn("store reset",
		"users", result.Users,
		"projects", result.Projects,
		"tasks", result.Tasks,
		"settings", result.Settings,
		"by", actor.UserID,
	)
	return result, nil
}

// checkReferences verifies that every ID a record points at is defined in
// the snapshot, that task schedules are ordered and that the task tree is
// acyclic and stays within projects.
func checkReferences(snap *dto.Snapshot) error {
	users := make(map[uint64]bool, len(snap.Users))
	for _, u := range snap.Users {
		if users[u.ID] {
			return invalidSnapshot("duplicate user id %d", u.ID)
		}
		users[u.ID] = true
	}

	projects := make(map[uint64]bool, len(snap.Projects))
	for _, p := range snap.Projects {
		if projects[p.ID] {
			return invalidSnapshot("duplicate project id %d", p.ID)
		}
		if !users[p.OwnerID] {
			return invalidSnapshot("project %d: unknown owner %d", p.ID, p.OwnerID)
		}
		projects[p.ID] = true
	}

	for _, m := range snap.Members {
		if !projects[m.ProjectID] || !users[m.UserID] {
			return invalidSnapshot("membership %d/%d refers to an unknown project or user", m.ProjectID, m.UserID)
		}
	}

	taskProject := make(map[uint64]uint64, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if _, dup := taskProject[t.ID]; dup {
			return invalidSnapshot("duplicate task id %d", t.ID)
		}
		if !projects[t.ProjectID] {
			return invalidSnapshot("task %d: unknown project %d", t.ID, t.ProjectID)
		}
		if t.AssigneeID != nil && !users[*t.AssigneeID] {
			return invalidSnapshot("task %d: unknown assignee %d", t.ID, *t.AssigneeID)
		}
		if err := validateSchedule(t.StartDate, t.DueDate); err != nil {
			return invalidSnapshot("task %d: due date is before start date", t.ID)
		}
		taskProject[t.ID] = t.ProjectID
	}

	parents := make(map[uint64]uint64, len(snap.Tasks))
	for _, t := range snap.Tasks {
		if t.ParentTaskID == nil {
			continue
		}
		pid, ok := taskProject[*t.ParentTaskID]
		if !ok {
			return invalidSnapshot("task %d: unknown parent %d", t.ID, *t.ParentTaskID)
		}
		if pid != t.ProjectID {
			return invalidSnapshot("task %d: parent %d belongs to another project", t.ID, *t.ParentTaskID)
		}
		parents[t.ID] = *t.ParentTaskID
	}
	for id := range parents {
		seen := map[uint64]bool{id: true}
		for cur, ok := parents[id]; ok; cur, ok = parents[cur] {
			if seen[cur] {
				return invalidSnapshot("task %d: parent chain forms a cycle", id)
			}
			seen[cur] = true
		}
	}

	for key, value := range snap.Settings {
		if key == "" || !json.Valid(value) {
			return invalidSnapshot("setting %q: value must be valid JSON", key)
		}
	}
	return nil
}

// withOwnerMemberships returns the snapshot memberships with every project
// owner present as an admin.
func withOwnerMemberships(snap *dto.Snapshot) []dto.SnapshotMember {
	type key struct{ project, user uint64 }
	index := make(map[key]int, len(snap.Members))
	members := make([]dto.SnapshotMember, 0, len(snap.Members)+len(snap.Projects))
	for _, m := range snap.Members {
		k := key{m.ProjectID, m.UserID}
		if i, ok := index[k]; ok {
			members[i].IsAdmin = members[i].IsAdmin || m.IsAdmin
			continue
		}
		index[k] = len(members)
		members = append(members, m)
	}
	for _, p := range snap.Projects {
		k := key{p.ID, p.OwnerID}
		if i, ok := index[k]; ok {
			members[i].IsAdmin = true
			continue
		}
		index[k] = len(members)
		members = append(members, dto.SnapshotMember{ProjectID: p.ID, UserID: p.OwnerID, IsAdmin: true})
	}
	return members
}

func snapshotTask(t dto.SnapshotTask, projectIDs, userIDs map[uint64]uint64) *models.Task {
	status := models.TaskStatusTodo
	if t.Status != "" {
		status = models.TaskStatus(t.Status)
	}
	var assignee *uint64
	if t.AssigneeID != nil {
		id := userIDs[*t.AssigneeID]
		assignee = &id
	}
	return &models.Task{
		ProjectID:      projectIDs[t.ProjectID],
		Title:          t.Title,
		Description:    t.Description,
		AssigneeID:     assignee,
		Category:       t.Category,
		Priority:       t.Priority,
		Status:         status,
		Progress:       t.Progress,
		StartDate:      t.StartDate,
		DueDate:        t.DueDate,
		EstimatedHours: t.EstimatedHours,
		ActualHours:    t.ActualHours,
		Tags:           normalizeTags(t.Tags),
	}
}

func sortedKeys(m map[string]json.RawMessage) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
