package database

import (
	"gorm.io/gorm"
)

const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// PageSize returns the page size Paginate applies for size.
func PageSize(size int) int {
	if size <= 0 {
		return DefaultPageSize
	}
	if size > MaxPageSize {
		return MaxPageSize
	}
	return size
}

// Paginate applies 1-based pagination to a GORM query. A non-positive page
// disables pagination; the size is clamped to MaxPageSize.
func Paginate(page, size int) func(db *gorm.DB) *gorm.DB {
	return func(db *gorm.DB) *gorm.DB {
		if page <= 0 {
			return db
		}
		size := PageSize(size)
		return db.Offset((page - 1) * size).Limit(size)
	}
}
