package models

import "time"

type ProjectMember struct {
	ProjectID uint64    `gorm:"primarykey;autoIncrement:false" json:"project_id"`
	UserID    uint64    `gorm:"primarykey;autoIncrement:false" json:"user_id"`
	IsAdmin   bool      `gorm:"not null;default:false" json:"is_admin"`
	JoinedAt  time.Time `json:"joined_at"`
}

func (ProjectMember) TableName() string { return "project_members" }
