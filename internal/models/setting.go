package models

import (
	"time"

	"gorm.io/datatypes"
)

// Setting is a global key/value entry. Value holds any JSON document.
type Setting struct {
	Key         string         `gorm:"primarykey" json:"key"`
	Value       datatypes.JSON `gorm:"not null" json:"value"`
	LastUpdated time.Time      `json:"last_updated"`
}

func (Setting) TableName() string { return "settings" }
