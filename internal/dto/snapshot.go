package dto

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/gin-gonic/gin/binding"
)

// Snapshot is a bulk import document. IDs inside a snapshot are local
// references between its records; the store assigns new IDs on import.
type Snapshot struct {
	Users    []SnapshotUser             `json:"users" binding:"dive"`
	Projects []SnapshotProject          `json:"projects" binding:"dive"`
	Members  []SnapshotMember           `json:"members" binding:"dive"`
	Tasks    []SnapshotTask             `json:"tasks" binding:"dive"`
	Settings map[string]json.RawMessage `json:"settings"`
}

// SnapshotUser is a user record. Password is either plaintext or an existing
// bcrypt hash.
type SnapshotUser struct {
	ID          uint64 `json:"id" binding:"required"`
	LoginID     string `json:"login_id" binding:"required,max=100"`
	DisplayName string `json:"display_name" binding:"required,max=200"`
	Email       string `json:"email" binding:"required,email"`
	Password    string `json:"password" binding:"required"`
	Role        string `json:"role" binding:"omitempty,oneof=system_admin user"`
}

// SnapshotProject is a project record owned by a snapshot user.
type SnapshotProject struct {
	ID          uint64                 `json:"id" binding:"required"`
	Name        string                 `json:"name" binding:"required,max=200"`
	Description string                 `json:"description"`
	OwnerID     uint64                 `json:"owner_id" binding:"required"`
	Settings    map[string]interface{} `json:"settings"`
}

// SnapshotMember links a snapshot user to a snapshot project.
type SnapshotMember struct {
	ProjectID uint64 `json:"project_id" binding:"required"`
	UserID    uint64 `json:"user_id" binding:"required"`
	IsAdmin   bool   `json:"is_admin"`
}

// SnapshotTask is a task record. AssigneeID and ParentTaskID refer to
// snapshot users and tasks.
type SnapshotTask struct {
	ID             uint64     `json:"id" binding:"required"`
	ProjectID      uint64     `json:"project_id" binding:"required"`
	Title          string     `json:"title" binding:"required,max=500"`
	Description    *string    `json:"description"`
	AssigneeID     *uint64    `json:"assignee_id"`
	Category       *string    `json:"category"`
	Priority       *string    `json:"priority"`
	Status         string     `json:"status" binding:"omitempty,oneof=todo in_progress review done"`
	Progress       int        `json:"progress" binding:"min=0,max=100"`
	StartDate      *time.Time `json:"start_date"`
	DueDate        *time.Time `json:"due_date"`
	EstimatedHours *float64   `json:"estimated_hours" binding:"omitempty,min=0"`
	ActualHours    *float64   `json:"actual_hours" binding:"omitempty,min=0"`
	Tags           []string   `json:"tags"`
	ParentTaskID   *uint64    `json:"parent_task_id"`
}

// DecodeSnapshot reads a snapshot document from r and validates its fields.
// Unknown fields are rejected.
func DecodeSnapshot(r io.Reader) (*Snapshot, error) {
	var snap Snapshot
	dec := json.NewDecoder(r)
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("invalid snapshot document: %w", err)
	}
	if err := snap.Validate(); err != nil {
		return nil, err
	}
	return &snap, nil
}

// Validate checks field level rules. References between records are checked
// by the importer.
func (s *Snapshot) Validate() error {
	if err := binding.Validator.ValidateStruct(s); err != nil {
		return fmt.Errorf("invalid snapshot: %w", err)
	}
	return nil
}
