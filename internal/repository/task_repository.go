package repository

import (
	"context"
	"errors"

	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// maxTreeDepth bounds the ancestor walk so a corrupted tree cannot loop forever.
const maxTreeDepth = 10000

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	if task.Status == "" {
		task.Status = models.TaskStatusTodo
	}
	if task.Tags == nil {
		task.Tags = datatypes.JSONSlice[string]{}
	}
	if err := r.db.WithContext(ctx).Create(task).Error; err != nil {
		return database.ClassifyError("failed to create task", err)
	}
	return nil
}

// FindByID finds a task by ID
func (r *GormTaskRepository) FindByID(ctx context.Context, id uint64) (*models.Task, error) {
	var task models.Task
	if err := r.db.WithContext(ctx).First(&task, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, database.ClassifyError("failed to find task", err)
	}
	normalizeTask(&task)
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{})

	if filter.ProjectIDs != nil {
		if len(filter.ProjectIDs) == 0 {
			return []models.Task{}, 0, nil
		}
		query = query.Where("tasks.project_id IN ?", filter.ProjectIDs)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", string(*filter.Status))
	}
	if filter.ParentTaskID != nil {
		query = query.Where("tasks.parent_task_id = ?", *filter.ParentTaskID)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, database.ClassifyError("failed to count tasks", err)
	}

	if err := query.
		Order("tasks.created_at DESC, tasks.id DESC").
		Scopes(database.Paginate(filter.Page, filter.PageSize)).
		Find(&tasks).Error; err != nil {
		return nil, 0, database.ClassifyError("failed to list tasks", err)
	}

	for i := range tasks {
		normalizeTask(&tasks[i])
	}
	return tasks, total, nil
}

// ListByProject lists every task of a project
func (r *GormTaskRepository) ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error) {
	return r.listWhere(ctx, "project_id = ?", projectID)
}

// ListByAssignee lists every task assigned to a user
func (r *GormTaskRepository) ListByAssignee(ctx context.Context, userID uint64) ([]models.Task, error) {
	return r.listWhere(ctx, "assignee_id = ?", userID)
}

func (r *GormTaskRepository) listWhere(ctx context.Context, query string, arg interface{}) ([]models.Task, error) {
	var tasks []models.Task
	if err := r.db.WithContext(ctx).Where(query, arg).Order("id").Find(&tasks).Error; err != nil {
		return nil, database.ClassifyError("failed to list tasks", err)
	}
	for i := range tasks {
		normalizeTask(&tasks[i])
	}
	return tasks, nil
}

// Ancestors returns id followed by each parent up to the root. A missing
// task yields an empty slice.
func (r *GormTaskRepository) Ancestors(ctx context.Context, id uint64) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Raw(`
		WITH RECURSIVE chain(id, parent_task_id, depth) AS (
			SELECT id, parent_task_id, 0 FROM tasks WHERE id = ?
			UNION ALL
			SELECT t.id, t.parent_task_id, chain.depth + 1
			FROM tasks t JOIN chain ON t.id = chain.parent_task_id
			WHERE chain.depth < ?
		)
		SELECT id FROM chain ORDER BY depth
	`, id, maxTreeDepth).Scan(&ids).Error
	if err != nil {
		return nil, database.ClassifyError("failed to walk task tree", err)
	}
	return ids, nil
}

// Update applies a partial update. updated_at is refreshed whenever at least
// one field changes.
func (r *GormTaskRepository) Update(ctx context.Context, id uint64, upd TaskUpdate) (bool, error) {
	updates := taskUpdates(upd)
	if len(updates) == 0 {
		return false, nil
	}
	updates["updated_at"] = r.db.NowFunc()

	result := r.db.WithContext(ctx).Model(&models.Task{}).Where("id = ?", id).Updates(updates)
	if result.Error != nil {
		return false, database.ClassifyError("failed to update task", result.Error)
	}
	return result.RowsAffected > 0, nil
}

func taskUpdates(upd TaskUpdate) map[string]interface{} {
	updates := map[string]interface{}{}
	if upd.Title != nil {
		updates["title"] = *upd.Title
	}
	if upd.Description != nil {
		updates["description"] = *upd.Description
	}
	if upd.ClearAssignee {
		updates["assignee_id"] = nil
	} else if upd.AssigneeID != nil {
		updates["assignee_id"] = *upd.AssigneeID
	}
	if upd.Category != nil {
		updates["category"] = *upd.Category
	}
	if upd.Priority != nil {
		updates["priority"] = *upd.Priority
	}
	if upd.Status != nil {
		updates["status"] = string(*upd.Status)
	}
	if upd.Progress != nil {
		updates["progress"] = *upd.Progress
	}
	if upd.ClearStartDate {
		updates["start_date"] = nil
	} else if upd.StartDate != nil {
		updates["start_date"] = *upd.StartDate
	}
	if upd.ClearDueDate {
		updates["due_date"] = nil
	} else if upd.DueDate != nil {
		updates["due_date"] = *upd.DueDate
	}
	if upd.EstimatedHours != nil {
		updates["estimated_hours"] = *upd.EstimatedHours
	}
	if upd.ActualHours != nil {
		updates["actual_hours"] = *upd.ActualHours
	}
	if upd.SetTags {
		tags := datatypes.JSONSlice[string]{}
		if upd.Tags != nil {
			tags = append(tags, upd.Tags...)
		}
		updates["tags"] = tags
	}
	if upd.ClearParent {
		updates["parent_task_id"] = nil
	} else if upd.ParentTaskID != nil {
		updates["parent_task_id"] = *upd.ParentTaskID
	}
	return updates
}

// Delete deletes a task. Child tasks are detached by the schema.
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) (bool, error) {
	result := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Task{})
	if result.Error != nil {
		return false, database.ClassifyError("failed to delete task", result.Error)
	}
	return result.RowsAffected > 0, nil
}

// DeleteAll removes every task
func (r *GormTaskRepository) DeleteAll(ctx context.Context) (int64, error) {
	result := r.db.WithContext(ctx).Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Task{})
	if result.Error != nil {
		return 0, database.ClassifyError("failed to delete tasks", result.Error)
	}
	return result.RowsAffected, nil
}

func normalizeTask(t *models.Task) {
	if t.Tags == nil {
		t.Tags = datatypes.JSONSlice[string]{}
	}
}
