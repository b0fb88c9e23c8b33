package services

import (
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
)

func (s *ServicesTestSuite) TestProjectCreate_OwnerBecomesAdmin() {
	owner := s.register("owner")

	project, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "  Apollo  ", Description: "Moon"})
	s.Require().NoError(err)
	s.Equal("Apollo", project.Name)
	s.Equal(owner.UserID, project.OwnerID)
	s.Equal(models.DefaultProjectSettings()["priorities"], project.Settings["priorities"])

	member, err := s.store.Projects.FindMember(s.ctx, project.ID, owner.UserID)
	s.Require().NoError(err)
	s.Require().NotNil(member)
	s.True(member.IsAdmin)

	stored, err := s.svc.Projects.Get(s.ctx, owner, project.ID)
	s.Require().NoError(err)
	s.Contains(stored.Settings, "statuses")

	_, err = s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: " "})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Projects.Create(s.ctx, nil, CreateProjectInput{Name: "Anonymous"})
	s.ErrorIs(err, apperrors.ErrAuthentication)
}

func (s *ServicesTestSuite) TestProjectList() {
	owner := s.register("owner")
	other := s.register("other")
	admin := s.registerAdmin("root")

	_, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "Apollo"})
	s.Require().NoError(err)
	_, err = s.svc.Projects.Create(s.ctx, other, CreateProjectInput{Name: "Gemini"})
	s.Require().NoError(err)

	mine, err := s.svc.Projects.List(s.ctx, owner)
	s.Require().NoError(err)
	s.Require().Len(mine, 1)
	s.Equal("Apollo", mine[0].Name)

	all, err := s.svc.Projects.List(s.ctx, admin)
	s.Require().NoError(err)
	s.Len(all, 2)
}

func (s *ServicesTestSuite) TestProjectUpdateAndDelete() {
	owner := s.register("owner")
	member := s.register("member")
	project, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "Apollo"})
	s.Require().NoError(err)
	_, err = s.svc.Projects.AddMember(s.ctx, owner, project.ID, member.UserID, false)
	s.Require().NoError(err)

	name := "Apollo 11"
	_, err = s.svc.Projects.Update(s.ctx, member, project.ID, UpdateProjectInput{Name: &name})
	s.ErrorIs(err, apperrors.ErrAuthorization)

	updated, err := s.svc.Projects.Update(s.ctx, owner, project.ID, UpdateProjectInput{
		Name:     &name,
		Settings: map[string]interface{}{"categories": []interface{}{"flight"}},
	})
	s.Require().NoError(err)
	s.Equal(name, updated.Name)
	s.Equal([]interface{}{"flight"}, updated.Settings["categories"])

	_, err = s.svc.Projects.Delete(s.ctx, member, project.ID)
	s.ErrorIs(err, apperrors.ErrAuthorization)

	deleted, err := s.svc.Projects.Delete(s.ctx, owner, project.ID)
	s.Require().NoError(err)
	s.True(deleted)

	members, err := s.store.Projects.ListMembers(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Empty(members)
}

func (s *ServicesTestSuite) TestMembershipManagement() {
	owner := s.register("owner")
	member := s.register("member")
	outsider := s.register("outsider")
	project, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "Apollo"})
	s.Require().NoError(err)

	_, err = s.svc.Projects.AddMember(s.ctx, outsider, project.ID, outsider.UserID, true)
	s.ErrorIs(err, apperrors.ErrAuthorization)

	_, err = s.svc.Projects.AddMember(s.ctx, owner, project.ID, member.UserID, false)
	s.Require().NoError(err)

	_, err = s.svc.Projects.AddMember(s.ctx, owner, project.ID, member.UserID, false)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Projects.AddMember(s.ctx, owner, project.ID, 9999, false)
	s.ErrorIs(err, apperrors.ErrNotFound)

	_, err = s.svc.Projects.AddMember(s.ctx, member, project.ID, outsider.UserID, false)
	s.ErrorIs(err, apperrors.ErrAuthorization)

	_, err = s.svc.Projects.RemoveMember(s.ctx, owner, project.ID, owner.UserID)
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Projects.SetMemberAdmin(s.ctx, owner, project.ID, owner.UserID, false)
	s.ErrorIs(err, apperrors.ErrValidation)

	changed, err := s.svc.Projects.SetMemberAdmin(s.ctx, owner, project.ID, member.UserID, true)
	s.Require().NoError(err)
	s.True(changed)

	removed, err := s.svc.Projects.RemoveMember(s.ctx, member, project.ID, owner.UserID)
	s.Require().NoError(err)
	s.True(removed)

	removed, err = s.svc.Projects.RemoveMember(s.ctx, member, project.ID, owner.UserID)
	s.NoError(err)
	s.False(removed)

	_, err = s.svc.Projects.Get(s.ctx, owner, project.ID)
	s.ErrorIs(err, apperrors.ErrAuthorization)
}

func (s *ServicesTestSuite) TestTransferOwnership() {
	owner := s.register("owner")
	member := s.register("member")
	outsider := s.register("outsider")
	project, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "Apollo"})
	s.Require().NoError(err)
	_, err = s.svc.Projects.AddMember(s.ctx, owner, project.ID, member.UserID, false)
	s.Require().NoError(err)

	_, err = s.svc.Projects.TransferOwnership(s.ctx, owner, project.ID, outsider.UserID)
	s.ErrorIs(err, apperrors.ErrValidation)

	updated, err := s.svc.Projects.TransferOwnership(s.ctx, owner, project.ID, member.UserID)
	s.Require().NoError(err)
	s.Equal(member.UserID, updated.OwnerID)

	m, err := s.store.Projects.FindMember(s.ctx, project.ID, member.UserID)
	s.Require().NoError(err)
	s.True(m.IsAdmin)

	count, err := s.store.Projects.CountByOwner(s.ctx, owner.UserID)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *ServicesTestSuite) TestProjectSettingsKeepNumberTypes() {
	owner := s.register("owner")

	project, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{
		Name:     "Apollo",
		Settings: map[string]interface{}{"hour": float64(9), "reminders": []interface{}{float64(1), float64(24)}},
	})
	s.Require().NoError(err)

	stored, err := s.svc.Projects.Get(s.ctx, owner, project.ID)
	s.Require().NoError(err)
	hour, ok := stored.Settings["hour"].(float64)
	s.Require().True(ok, "hour is %T", stored.Settings["hour"])
	s.Equal(float64(9), hour)
	s.Equal([]interface{}{float64(1), float64(24)}, stored.Settings["reminders"])
}
