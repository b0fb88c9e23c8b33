package services

import (
	"time"

	"github.com/yukikurage/task-tracker/internal/auth"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
)

func (s *ServicesTestSuite) projectWithMember() (owner, member *auth.Claims, project *models.Project) {
	owner = s.register("owner")
	member = s.register("member")
	project, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "Apollo"})
	s.Require().NoError(err)
	_, err = s.svc.Projects.AddMember(s.ctx, owner, project.ID, member.UserID, false)
	s.Require().NoError(err)
	return owner, member, project
}

func intPtr(v int) *int              { return &v }
func strPtr(v string) *string        { return &v }
func floatPtr(v float64) *float64    { return &v }
func timePtr(v time.Time) *time.Time { return &v }

func (s *ServicesTestSuite) TestTaskCreate() {
	_, member, project := s.projectWithMember()
	outsider := s.register("outsider")

	task, err := s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{
		ProjectID: project.ID,
		Title:     "Launch",
		Tags:      []string{" rocket ", "", "moon"},
		Progress:  intPtr(30),
	})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusTodo, task.Status)
	s.Equal(30, task.Progress)
	s.Equal([]string{"rocket", "moon"}, []string(task.Tags))

	_, err = s.svc.Tasks.Create(s.ctx, outsider, CreateTaskInput{ProjectID: project.ID, Title: "Sneaky"})
	s.ErrorIs(err, apperrors.ErrAuthorization)
}

func (s *ServicesTestSuite) TestTaskCreate_Validation() {
	_, member, project := s.projectWithMember()
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)

	cases := []CreateTaskInput{
		{ProjectID: project.ID, Title: ""},
		{ProjectID: project.ID, Title: "Bad status", Status: "blocked"},
		{ProjectID: project.ID, Title: "Too much", Progress: intPtr(101)},
		{ProjectID: project.ID, Title: "Negative", Progress: intPtr(-1)},
		{ProjectID: project.ID, Title: "Hours", EstimatedHours: floatPtr(-2)},
		{ProjectID: project.ID, Title: "Dates", StartDate: timePtr(start), DueDate: timePtr(start.Add(-time.Hour))},
		{ProjectID: project.ID, Title: "Ghost assignee", AssigneeID: func() *uint64 { v := uint64(9999); return &v }()},
		{ProjectID: project.ID, Title: "Ghost parent", ParentTaskID: func() *uint64 { v := uint64(9999); return &v }()},
	}
	for _, input := range cases {
		_, err := s.svc.Tasks.Create(s.ctx, member, input)
		s.ErrorIs(err, apperrors.ErrValidation, "input %q", input.Title)
	}

	tasks, err := s.store.Tasks.ListByProject(s.ctx, project.ID)
	s.Require().NoError(err)
	s.Empty(tasks)
}

func (s *ServicesTestSuite) TestTaskCreate_ParentMustShareProject() {
	owner, member, project := s.projectWithMember()
	other, err := s.svc.Projects.Create(s.ctx, owner, CreateProjectInput{Name: "Gemini"})
	s.Require().NoError(err)
	foreign, err := s.svc.Tasks.Create(s.ctx, owner, CreateTaskInput{ProjectID: other.ID, Title: "Elsewhere"})
	s.Require().NoError(err)

	_, err = s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{ProjectID: project.ID, Title: "Child", ParentTaskID: &foreign.ID})
	s.ErrorIs(err, apperrors.ErrValidation)
}

func (s *ServicesTestSuite) TestTaskUpdate_PartialStatus() {
	_, member, project := s.projectWithMember()
	task, err := s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{
		ProjectID:   project.ID,
		Title:       "Launch",
		Description: strPtr("Fuel up"),
		Progress:    intPtr(50),
		Tags:        []string{"a", "b"},
	})
	s.Require().NoError(err)

	updated, err := s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{Status: strPtr("done")})
	s.Require().NoError(err)
	s.Equal(models.TaskStatusDone, updated.Status)
	s.Equal("Launch", updated.Title)
	s.Equal("Fuel up", *updated.Description)
	s.Equal(50, updated.Progress)
	s.Equal([]string{"a", "b"}, []string(updated.Tags))
	s.False(updated.UpdatedAt.Before(task.UpdatedAt))

	unchanged, err := s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{})
	s.Require().NoError(err)
	s.Equal(updated.UpdatedAt, unchanged.UpdatedAt)

	_, err = s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{Status: strPtr("archived")})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{Progress: intPtr(200)})
	s.ErrorIs(err, apperrors.ErrValidation)

	cleared, err := s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{Tags: &[]string{}})
	s.Require().NoError(err)
	s.Empty(cleared.Tags)
}

func (s *ServicesTestSuite) TestTaskUpdate_RejectsCycles() {
	_, member, project := s.projectWithMember()
	root, err := s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{ProjectID: project.ID, Title: "root"})
	s.Require().NoError(err)
	child, err := s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{ProjectID: project.ID, Title: "child", ParentTaskID: &root.ID})
	s.Require().NoError(err)
	grandchild, err := s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{ProjectID: project.ID, Title: "grandchild", ParentTaskID: &child.ID})
	s.Require().NoError(err)

	_, err = s.svc.Tasks.Update(s.ctx, member, root.ID, UpdateTaskInput{ParentTaskID: &grandchild.ID})
	s.ErrorIs(err, apperrors.ErrValidation)

	_, err = s.svc.Tasks.Update(s.ctx, member, root.ID, UpdateTaskInput{ParentTaskID: &root.ID})
	s.ErrorIs(err, apperrors.ErrValidation)

	moved, err := s.svc.Tasks.Update(s.ctx, member, grandchild.ID, UpdateTaskInput{ParentTaskID: &root.ID})
	s.Require().NoError(err)
	s.Equal(root.ID, *moved.ParentTaskID)

	detached, err := s.svc.Tasks.Update(s.ctx, member, moved.ID, UpdateTaskInput{ClearParent: true})
	s.Require().NoError(err)
	s.Nil(detached.ParentTaskID)
}

func (s *ServicesTestSuite) TestTaskUpdate_ScheduleUsesStoredDates() {
	_, member, project := s.projectWithMember()
	start := time.Date(2025, 6, 10, 0, 0, 0, 0, time.UTC)
	task, err := s.svc.Tasks.Create(s.ctx, member, CreateTaskInput{ProjectID: project.ID, Title: "Plan", StartDate: &start})
	s.Require().NoError(err)

	_, err = s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{DueDate: timePtr(start.Add(-24 * time.Hour))})
	s.ErrorIs(err, apperrors.ErrValidation)

	updated, err := s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{DueDate: timePtr(start.Add(24 * time.Hour))})
	s.Require().NoError(err)
	s.Require().NotNil(updated.DueDate)
	s.True(updated.DueDate.Equal(start.Add(24 * time.Hour)))
}

func (s *ServicesTestSuite) TestTaskAccessFollowsMembership() {
	owner, member, project := s.projectWithMember()
	task, err := s.svc.Tasks.Create(s.ctx, owner, CreateTaskInput{ProjectID: project.ID, Title: "Launch"})
	s.Require().NoError(err)

	_, err = s.svc.Tasks.Get(s.ctx, member, task.ID)
	s.Require().NoError(err)

	_, err = s.svc.Projects.RemoveMember(s.ctx, owner, project.ID, member.UserID)
	s.Require().NoError(err)

	_, err = s.svc.Tasks.Get(s.ctx, member, task.ID)
	s.ErrorIs(err, apperrors.ErrAuthorization)
	_, err = s.svc.Tasks.Update(s.ctx, member, task.ID, UpdateTaskInput{Status: strPtr("done")})
	s.ErrorIs(err, apperrors.ErrAuthorization)
	_, err = s.svc.Tasks.Delete(s.ctx, member, task.ID)
	s.ErrorIs(err, apperrors.ErrAuthorization)

	deleted, err := s.svc.Tasks.Delete(s.ctx, owner, task.ID)
	s.Require().NoError(err)
	s.True(deleted)
}

func (s *ServicesTestSuite) TestTaskList() {
	owner, member, project := s.projectWithMember()
	outsider := s.register("outsider")
	admin := s.registerAdmin("root")
	private, err := s.svc.Projects.Create(s.ctx, outsider, CreateProjectInput{Name: "Private"})
	s.Require().NoError(err)

	for i := 0; i < 3; i++ {
		_, err := s.svc.Tasks.Create(s.ctx, owner, CreateTaskInput{ProjectID: project.ID, Title: "shared"})
		s.Require().NoError(err)
	}
	_, err = s.svc.Tasks.Create(s.ctx, owner, CreateTaskInput{ProjectID: project.ID, Title: "mine", AssigneeID: &member.UserID, Status: "review"})
	s.Require().NoError(err)
	_, err = s.svc.Tasks.Create(s.ctx, outsider, CreateTaskInput{ProjectID: private.ID, Title: "secret"})
	s.Require().NoError(err)

	list, err := s.svc.Tasks.List(s.ctx, member, ListTasksInput{})
	s.Require().NoError(err)
	s.Equal(int64(4), list.Total)

	list, err = s.svc.Tasks.List(s.ctx, member, ListTasksInput{AssignedToMe: true})
	s.Require().NoError(err)
	s.Require().Len(list.Tasks, 1)
	s.Equal("mine", list.Tasks[0].Title)

	list, err = s.svc.Tasks.List(s.ctx, member, ListTasksInput{Status: strPtr("review")})
	s.Require().NoError(err)
	s.Equal(int64(1), list.Total)

	list, err = s.svc.Tasks.List(s.ctx, member, ListTasksInput{Page: 1, PageSize: 2})
	s.Require().NoError(err)
	s.Len(list.Tasks, 2)
	s.Equal(int64(4), list.Total)
	s.Equal(2, list.PageSize)

	_, err = s.svc.Tasks.List(s.ctx, member, ListTasksInput{ProjectID: &private.ID})
	s.ErrorIs(err, apperrors.ErrAuthorization)

	list, err = s.svc.Tasks.List(s.ctx, admin, ListTasksInput{})
	s.Require().NoError(err)
	s.Equal(int64(5), list.Total)

	lonely := s.register("lonely")
	list, err = s.svc.Tasks.List(s.ctx, lonely, ListTasksInput{})
	s.Require().NoError(err)
	s.Zero(list.Total)
	s.Empty(list.Tasks)
}
