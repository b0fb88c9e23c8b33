package services

import (
	"encoding/json"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/dto"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/repository"
)

const snapshotJSON = `{
  "users": [
    {"id": 1, "login_id": "ada", "display_name": "Ada", "email": "ada@example.com", "password": "ada-password"},
    {"id": 2, "login_id": "grace", "display_name": "Grace", "email": "grace@example.com", "password": "grace-password", "role": "system_admin"}
  ],
  "projects": [
    {"id": 10, "name": "Engine", "owner_id": 1, "settings": {"categories": ["math"], "notifications": {"email": true}}}
  ],
  "members": [
    {"project_id": 10, "user_id": 2, "is_admin": false}
  ],
  "tasks": [
    {"id": 101, "project_id": 10, "title": "Child", "parent_task_id": 100, "assignee_id": 2, "status": "in_progress", "progress": 40, "tags": ["b", "a"]},
    {"id": 100, "project_id": 10, "title": "Parent"}
  ],
  "settings": {"theme": {"mode": "dark"}, "limits": [1, 2, 3]}
}`

func (s *ServicesTestSuite) decodeSnapshot() *dto.Snapshot {
	snap, err := dto.DecodeSnapshot(strings.NewReader(snapshotJSON))
	s.Require().NoError(err)
	return snap
}

func (s *ServicesTestSuite) TestImport() {
	admin := s.registerAdmin("root")

	result, err := s.svc.Import.Import(s.ctx, admin, s.decodeSnapshot())
	s.Require().NoError(err)
	s.Equal(&ImportResult{Users: 2, Projects: 1, Members: 2, Tasks: 2, Settings: 2}, result)

	ada, err := s.store.Users.FindByLoginID(s.ctx, "ada")
	s.Require().NoError(err)
	s.Require().NotNil(ada)
	s.Equal(models.RoleUser, ada.Role)
	s.NotEqual("ada-password", ada.Password)

	grace, err := s.store.Users.FindByLoginID(s.ctx, "grace")
	s.Require().NoError(err)
	s.Equal(models.RoleSystemAdmin, grace.Role)

	projects, err := s.store.Projects.ListByMember(s.ctx, ada.ID)
	s.Require().NoError(err)
	s.Require().Len(projects, 1)
	project := projects[0]
	s.Equal(ada.ID, project.OwnerID)
	s.Equal(map[string]interface{}{"email": true}, project.Settings["notifications"])

	ownerMembership, err := s.store.Projects.FindMember(s.ctx, project.ID, ada.ID)
	s.Require().NoError(err)
	s.True(ownerMembership.IsAdmin)

	tasks, err := s.store.Tasks.ListByProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Require().Len(tasks, 2)
	byTitle := map[string]models.Task{}
	for _, t := range tasks {
		byTitle[t.Title] = t
	}
	child := byTitle["Child"]
	s.Require().NotNil(child.ParentTaskID)
	s.Equal(byTitle["Parent"].ID, *child.ParentTaskID)
	s.Equal(grace.ID, *child.AssigneeID)
	s.Equal(models.TaskStatusInProgress, child.Status)
	s.Equal([]string{"b", "a"}, []string(child.Tags))

	theme, err := s.store.Settings.Get(s.ctx, "theme")
	s.Require().NoError(err)
	s.JSONEq(`{"mode":"dark"}`, string(theme.Value))

	_, err = s.svc.Auth.Login(s.ctx, LoginInput{LoginID: "ada", Password: "ada-password"})
	s.NoError(err)
}

func (s *ServicesTestSuite) TestImport_RequiresSystemAdmin() {
	user := s.register("alice")

	_, err := s.svc.Import.Import(s.ctx, user, s.decodeSnapshot())
	s.ErrorIs(err, apperrors.ErrAuthorization)
}

func (s *ServicesTestSuite) TestImport_RejectsBrokenReferences() {
	admin := s.registerAdmin("root")

	snap := s.decodeSnapshot()
	snap.Projects[0].OwnerID = 99
	_, err := s.svc.Import.Import(s.ctx, admin, snap)
	s.ErrorIs(err, apperrors.ErrValidation)

	snap = s.decodeSnapshot()
	parent := uint64(101)
	snap.Tasks[1].ParentTaskID = &parent
	_, err = s.svc.Import.Import(s.ctx, admin, snap)
	s.ErrorIs(err, apperrors.ErrValidation)

	snap = s.decodeSnapshot()
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	due := start.Add(-24 * time.Hour)
	snap.Tasks[0].StartDate, snap.Tasks[0].DueDate = &start, &due
	_, err = s.svc.Import.Import(s.ctx, admin, snap)
	s.ErrorIs(err, apperrors.ErrValidation)

	tasks, total, err := s.store.Tasks.List(s.ctx, repository.TaskFilter{})
	s.Require().NoError(err)
	s.Empty(tasks)
	s.Zero(total)

	snap = s.decodeSnapshot()
	snap.Settings["broken"] = json.RawMessage(`{nope`)
	_, err = s.svc.Import.Import(s.ctx, admin, snap)
	s.ErrorIs(err, apperrors.ErrValidation)

	users, err := s.store.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Len(users, 1)
}

func (s *ServicesTestSuite) TestImport_IsAtomic() {
	admin := s.registerAdmin("root")
	s.register("grace")

	// "grace" already exists, so the second user insert fails after the
	// first one succeeded.
	_, err := s.svc.Import.Import(s.ctx, admin, s.decodeSnapshot())
	s.ErrorIs(err, apperrors.ErrIntegrityConstraint)

	ada, err := s.store.Users.FindByLoginID(s.ctx, "ada")
	s.Require().NoError(err)
	s.Nil(ada)

	settings, err := s.store.Settings.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(settings)
}

func (s *ServicesTestSuite) TestReset() {
	admin := s.registerAdmin("root")
	_, err := s.svc.Import.Import(s.ctx, admin, s.decodeSnapshot())
	s.Require().NoError(err)

	user, err := s.store.Users.FindByLoginID(s.ctx, "ada")
	s.Require().NoError(err)
	ada := claimsForUser(user)
	_, err = s.svc.Import.Reset(s.ctx, ada)
	s.ErrorIs(err, apperrors.ErrAuthorization)

	result, err := s.svc.Import.Reset(s.ctx, admin)
	s.Require().NoError(err)
	s.Equal(&ResetResult{Users: 2, Projects: 1, Tasks: 2, Settings: 2}, result)

	users, err := s.store.Users.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(users, 1)
	s.Equal(admin.UserID, users[0].ID)

	projects, err := s.store.Projects.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(projects)
}
