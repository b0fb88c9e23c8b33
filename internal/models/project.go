package models

import (
	"time"

	"gorm.io/datatypes"
)

type Project struct {
	ID          uint64            `gorm:"primarykey" json:"id"`
	Name        string            `gorm:"not null" json:"name"`
	Description string            `gorm:"not null;default:''" json:"description"`
	OwnerID     uint64            `gorm:"not null" json:"owner_id"`
	Settings    datatypes.JSONMap `gorm:"not null" json:"settings"`
	CreatedAt   time.Time         `json:"created_at"`
	LastUpdated time.Time         `json:"last_updated"`
}

func (Project) TableName() string { return "projects" }

// DefaultProjectSettings is the settings document a project receives when
// it is created without one.
func DefaultProjectSettings() datatypes.JSONMap {
	statuses := make([]interface{}, 0, len(TaskStatuses))
	for _, s := range TaskStatuses {
		statuses = append(statuses, string(s))
	}
	return datatypes.JSONMap{
		"categories": []interface{}{"development", "design", "testing", "documentation", "other"},
		"priorities": []interface{}{"low", "medium", "high", "critical"},
		"statuses":   statuses,
		"notifications": map[string]interface{}{
			"email":        false,
			"dueSoon":      true,
			"statusChange": true,
		},
	}
}
