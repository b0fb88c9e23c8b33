package models

import (
	"fmt"
	"time"
)

// Role is a user's global role.
type Role string

const (
	RoleSystemAdmin Role = "system_admin"
	RoleUser        Role = "user"
)

// ParseRole validates a role coming from input, storage or token claims.
func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleSystemAdmin, RoleUser:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role %q", s)
	}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

type User struct {
	ID          uint64     `gorm:"primarykey" json:"id"`
	LoginID     string     `gorm:"column:login_id;not null;uniqueIndex" json:"login_id"`
	DisplayName string     `gorm:"not null" json:"display_name"`
	Email       string     `gorm:"not null;uniqueIndex" json:"email"`
	Password    string     `gorm:"not null" json:"-"`
	Role        Role       `gorm:"not null;default:user" json:"role"`
	CreatedAt   time.Time  `json:"created_at"`
	LastLogin   *time.Time `json:"last_login"`
}

func (User) TableName() string { return "users" }
