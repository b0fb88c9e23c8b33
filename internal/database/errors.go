package database

import (
	"errors"

	"github.com/mattn/go-sqlite3"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"gorm.io/gorm"
)

// ClassifyError converts a driver or gorm error into the core taxonomy:
// constraint violations become IntegrityConstraintError and everything else
// StorageError. Errors already classified pass through; nil stays nil.
// gorm.ErrRecordNotFound is not handled here, repositories treat it as a miss.
func ClassifyError(message string, err error) error {
	if err == nil {
		return nil
	}

	var appErr *apperrors.Error
	if errors.As(err, &appErr) {
		return err
	}

	if IsConstraintViolation(err) {
		return apperrors.Integrity(message, err)
	}
	return apperrors.Storage(message, err)
}

// IsConstraintViolation reports whether err is a uniqueness, foreign-key,
// primary-key or check violation.
func IsConstraintViolation(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) ||
		errors.Is(err, gorm.ErrForeignKeyViolated) ||
		errors.Is(err, gorm.ErrCheckConstraintViolated) {
		return true
	}

	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.Code == sqlite3.ErrConstraint
	}
	var sqliteErrPtr *sqlite3.Error
	if errors.As(err, &sqliteErrPtr) && sqliteErrPtr != nil {
		return sqliteErrPtr.Code == sqlite3.ErrConstraint
	}
	return false
}
