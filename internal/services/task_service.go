package services

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/auth"
	"github.com/yukikurage/task-tracker/internal/database"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"github.com/yukikurage/task-tracker/internal/models"
	"github.com/yukikurage/task-tracker/internal/policy"
	"github.com/yukikurage/task-tracker/internal/repository"
	"gorm.io/datatypes"
)

// TaskService handles task business logic
type TaskService struct {
	store      *repository.Store
	authorizer *policy.Authorizer
	log        *slog.Logger
}

// NewTaskService creates a new TaskService
func NewTaskService(deps Deps) *TaskService {
	return &TaskService{
		store:      deps.Store,
		authorizer: deps.Authorizer,
		log:        deps.Logger,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID    *uint64
	AssigneeID   *uint64
	AssignedToMe bool
	Status       *string
	ParentTaskID *uint64
	Page         int
	PageSize     int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID      uint64
	Title          string
	Description    *string
	AssigneeID     *uint64
	Category       *string
	Priority       *string
	Status         string
	Progress       *int
	StartDate      *time.Time
	DueDate        *time.Time
	EstimatedHours *float64
	ActualHours    *float64
	Tags           []string
	ParentTaskID   *uint64
}

// UpdateTaskInput represents input for updating a task. Nil fields are left
// unchanged; Clear* flags remove the value.
type UpdateTaskInput struct {
	Title          *string
	Description    *string
	AssigneeID     *uint64
	ClearAssignee  bool
	Category       *string
	Priority       *string
	Status         *string
	Progress       *int
	StartDate      *time.Time
	ClearStartDate bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
	Tags           *[]string
	ParentTaskID   *uint64
	ClearParent    bool
}

// TaskList is one page of tasks with the total match count.
type TaskList struct {
	Tasks    []models.Task
	Total    int64
	Page     int
	PageSize int
}

// List returns tasks in the projects the actor can see.
func (s *TaskService) List(ctx context.Context, actor *auth.Claims, input ListTasksInput) (*TaskList, error) {
	if err := requireActor(actor); err != nil {
		return nil, err
	}

	filter := repository.TaskFilter{
		AssigneeID:   input.AssigneeID,
		ParentTaskID: input.ParentTaskID,
		Page:         input.Page,
		PageSize:     input.PageSize,
	}
	if input.AssignedToMe {
		filter.AssigneeID = &actor.UserID
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = &status
	}

	switch {
	case input.ProjectID != nil:
		if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.Project(*input.ProjectID)); err != nil {
			return nil, err
		}
		filter.ProjectIDs = []uint64{*input.ProjectID}
	case !actor.IsSystemAdmin():
		memberships, err := s.store.Projects.ListMembershipsByUser(ctx, actor.UserID)
		if err != nil {
			return nil, err
		}
		filter.ProjectIDs = make([]uint64, 0, len(memberships))
		for _, m := range memberships {
			filter.ProjectIDs = append(filter.ProjectIDs, m.ProjectID)
		}
	}

	tasks, total, err := s.store.Tasks.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	list := &TaskList{Tasks: tasks, Total: total, Page: input.Page}
	if input.Page > 0 {
		list.PageSize = database.PageSize(input.PageSize)
	}
	return list, nil
}

// Get returns a single task.
func (s *TaskService) Get(ctx context.Context, actor *auth.Claims, id uint64) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionRead, policy.Task(id)); err != nil {
		return nil, err
	}
	task, err := s.store.Tasks.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if task == nil {
		return nil, apperrors.NotFound("task not found")
	}
	return task, nil
}

// Create creates a task in a project the actor belongs to.
func (s *TaskService) Create(ctx context.Context, actor *auth.Claims, input CreateTaskInput) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateTask, policy.Project(input.ProjectID)); err != nil {
		return nil, err
	}

	title, err := requiredText("title", input.Title, maxTaskTitleLength)
	if err != nil {
		return nil, err
	}
	status := models.TaskStatusTodo
	if input.Status != "" {
		if status, err = parseStatus(input.Status); err != nil {
			return nil, err
		}
	}
	progress := models.MinProgress
	if input.Progress != nil {
		progress = *input.Progress
	}
	if err := validateProgress(progress); err != nil {
		return nil, err
	}
	if err := validateHours(input.EstimatedHours, input.ActualHours); err != nil {
		return nil, err
	}
	if err := validateSchedule(input.StartDate, input.DueDate); err != nil {
		return nil, err
	}

	task := &models.Task{
		ProjectID:      input.ProjectID,
		Title:          title,
		Description:    input.Description,
		AssigneeID:     input.AssigneeID,
		Category:       input.Category,
		Priority:       input.Priority,
		Status:         status,
		Progress:       progress,
		StartDate:      input.StartDate,
		DueDate:        input.DueDate,
		EstimatedHours: input.EstimatedHours,
		ActualHours:    input.ActualHours,
		Tags:           normalizeTags(input.Tags),
		ParentTaskID:   input.ParentTaskID,
	}

	err = s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		project, err := uow.Projects.FindByID(ctx, input.ProjectID)
		if err != nil {
			return err
		}
		if project == nil {
			return apperrors.NotFound("project not found")
		}
		if err := checkAssignee(ctx, uow, task.AssigneeID); err != nil {
			return err
		}
		if task.ParentTaskID != nil {
			if err := checkParent(ctx, uow, 0, task.ProjectID, *task.ParentTaskID); err != nil {
				return err
			}
		}
		return uow.Tasks.Create(ctx, task)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("task created", "task_id", task.ID, "project_id", task.ProjectID, "by", actor.UserID)
	return task, nil
}

// Update applies a partial update to a task. Only the supplied fields change.
func (s *TaskService) Update(ctx context.Context, actor *auth.Claims, id uint64, input UpdateTaskInput) (*models.Task, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateTask, policy.Task(id)); err != nil {
		return nil, err
	}

	upd, err := taskUpdate(input)
	if err != nil {
		return nil, err
	}

	var task *models.Task
	err = s.store.RunInTransaction(ctx, func(uow *repository.UnitOfWork) error {
		existing, err := uow.Tasks.FindByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return apperrors.NotFound("task not found")
		}

		if err := validateSchedule(mergeDate(existing.StartDate, upd.StartDate, upd.ClearStartDate),
			mergeDate(existing.DueDate, upd.DueDate, upd.ClearDueDate)); err != nil {
			return err
		}
		if !upd.ClearAssignee {
			if err := checkAssignee(ctx, uow, upd.AssigneeID); err != nil {
				return err
			}
		}
		if !upd.ClearParent && upd.ParentTaskID != nil {
			if err := checkParent(ctx, uow, id, existing.ProjectID, *upd.ParentTaskID); err != nil {
				return err
			}
		}

		changed, err := uow.Tasks.Update(ctx, id, upd)
		if err != nil {
			return err
		}
		if !changed {
			task = existing
			return nil
		}
		task, err = uow.Tasks.FindByID(ctx, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return task, nil
}

// Delete removes a task. Its subtasks become top level tasks.
func (s *TaskService) Delete(ctx context.Context, actor *auth.Claims, id uint64) (bool, error) {
	if err := s.authorizer.Authorize(ctx, actor, policy.ActionMutateTask, policy.Task(id)); err != nil {
		return false, err
	}

	deleted, err := s.store.Tasks.Delete(ctx, id)
	if err != nil {
		return false, err
	}
	if deleted {
		s.log.Info("task deleted", "task_id", id, "by", actor.UserID)
	}
	return deleted, nil
}

func taskUpdate(input UpdateTaskInput) (repository.TaskUpdate, error) {
	upd := repository.TaskUpdate{
		Description:    input.Description,
		AssigneeID:     input.AssigneeID,
		ClearAssignee:  input.ClearAssignee,
		Category:       input.Category,
		Priority:       input.Priority,
		Progress:       input.Progress,
		StartDate:      input.StartDate,
		ClearStartDate: input.ClearStartDate,
		DueDate:        input.DueDate,
		ClearDueDate:   input.ClearDueDate,
		EstimatedHours: input.EstimatedHours,
		ActualHours:    input.ActualHours,
		ParentTaskID:   input.ParentTaskID,
		ClearParent:    input.ClearParent,
	}

	if input.Title != nil {
		title, err := requiredText("title", *input.Title, maxTaskTitleLength)
		if err != nil {
			return upd, err
		}
		upd.Title = &title
	}
	if input.Status != nil {
		status, err := parseStatus(*input.Status)
		if err != nil {
			return upd, err
		}
		upd.Status = &status
	}
	if input.Progress != nil {
		if err := validateProgress(*input.Progress); err != nil {
			return upd, err
		}
	}
	if err := validateHours(input.EstimatedHours, input.ActualHours); err != nil {
		return upd, err
	}
	if input.Tags != nil {
		upd.Tags = normalizeTags(*input.Tags)
		upd.SetTags = true
	}
	return upd, nil
}

func parseStatus(s string) (models.TaskStatus, error) {
	status, err := models.ParseTaskStatus(strings.TrimSpace(s))
	if err != nil {
		return "", invalidInput(err.Error())
	}
	return status, nil
}

func validateProgress(p int) error {
	if p < models.MinProgress || p > models.MaxProgress {
		return invalidInput("progress must be between 0 and 100")
	}
	return nil
}

func validateHours(values ...*float64) error {
	for _, v := range values {
		if v != nil && *v < 0 {
			return invalidInput("hours cannot be negative")
		}
	}
	return nil
}

func validateSchedule(start, due *time.Time) error {
	if start != nil && due != nil && due.Before(*start) {
		return invalidInput("due date cannot be before start date")
	}
	return nil
}

func mergeDate(current, next *time.Time, clear bool) *time.Time {
	switch {
	case clear:
		return nil
	case next != nil:
		return next
	default:
		return current
	}
}

// normalizeTags trims tags and drops empty ones, keeping their order.
func normalizeTags(tags []string) datatypes.JSONSlice[string] {
	out := make(datatypes.JSONSlice[string], 0, len(tags))
	for _, tag := range tags {
		if tag = strings.TrimSpace(tag); tag != "" {
			out = append(out, tag)
		}
	}
	return out
}

func checkAssignee(ctx context.Context, uow *repository.UnitOfWork, assigneeID *uint64) error {
	if assigneeID == nil {
		return nil
	}
	user, err := uow.Users.FindByID(ctx, *assigneeID)
	if err != nil {
		return err
	}
	if user == nil {
		return invalidInput("assignee does not exist")
	}
	return nil
}

// checkParent validates that parentID can be the parent of taskID (0 for a
// new task): it must exist in the same project and must not descend from
// taskID.
func checkParent(ctx context.Context, uow *repository.UnitOfWork, taskID, projectID, parentID uint64) error {
	parent, err := uow.Tasks.FindByID(ctx, parentID)
	if err != nil {
		return err
	}
	if parent == nil {
		return invalidInput("parent task does not exist")
	}
	if parent.ProjectID != projectID {
		return invalidInput("parent task belongs to another project")
	}
	if taskID == 0 {
		return nil
	}

	chain, err := uow.Tasks.Ancestors(ctx, parentID)
	if err != nil {
		return err
	}
	for _, id := range chain {
		if id == taskID {
			return invalidInput("parent task would create a cycle")
		}
	}
	return nil
}
