package models

import (
	"fmt"
	"time"

	"gorm.io/datatypes"
)

type TaskStatus string

const (
	TaskStatusTodo       TaskStatus = "todo"
	TaskStatusInProgress TaskStatus = "in_progress"
	TaskStatusReview     TaskStatus = "review"
	TaskStatusDone       TaskStatus = "done"
)

// TaskStatuses lists every status in workflow order.
var TaskStatuses = []TaskStatus{
	TaskStatusTodo,
	TaskStatusInProgress,
	TaskStatusReview,
	TaskStatusDone,
}

// ParseTaskStatus validates a status value.
func ParseTaskStatus(s string) (TaskStatus, error) {
	for _, status := range TaskStatuses {
		if string(status) == s {
			return status, nil
		}
	}
	return "", fmt.Errorf("unknown task status %q", s)
}

const (
	MinProgress = 0
	MaxProgress = 100
)

type Task struct {
	ID             uint64                      `gorm:"primarykey" json:"id"`
	ProjectID      uint64                      `gorm:"not null" json:"project_id"`
	Title          string                      `gorm:"not null" json:"title"`
	Description    *string                     `json:"description"`
	AssigneeID     *uint64                     `json:"assignee_id"`
	Category       *string                     `json:"category"`
	Priority       *string                     `json:"priority"`
	Status         TaskStatus                  `gorm:"not null;default:todo" json:"status"`
	Progress       int                         `gorm:"not null;default:0" json:"progress"`
	StartDate      *time.Time                  `json:"start_date"`
	DueDate        *time.Time                  `json:"due_date"`
	EstimatedHours *float64                    `json:"estimated_hours"`
	ActualHours    *float64                    `json:"actual_hours"`
	Tags           datatypes.JSONSlice[string] `gorm:"not null" json:"tags"`
	ParentTaskID   *uint64                     `json:"parent_task_id"`
	CreatedAt      time.Time                   `json:"created_at"`
	UpdatedAt      time.Time                   `json:"updated_at"`
}

func (Task) TableName() string { return "tasks" }
