package database

import (
	"context"
	_ "embed"
	"fmt"
	"log/slog"

	"github.com/yukikurage/task-tracker/internal/logger"
	"gorm.io/gorm"
)

//go:embed schema.sql
var schemaSQL string

// SchemaVersion is the version recorded in schema_migrations once schema.sql is applied.
const SchemaVersion = 1

// Migrate applies the schema and indexes. It is safe to call on every start:
// existing tables and rows are left untouched.
func Migrate(ctx context.Context, db *gorm.DB, log *slog.Logger) error {
	log = logger.OrDefault(log)
	log.Info("running database migrations")

	db = db.WithContext(ctx)

	if err := db.Exec(`CREATE TABLE IF NOT EXISTS schema_migrations (
		version    INTEGER PRIMARY KEY,
		applied_at DATETIME NOT NULL
	)`).Error; err != nil {
		return fmt.Errorf("failed to create schema_migrations: %w", err)
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		var applied int64
		if err := tx.Raw("SELECT COUNT(*) FROM schema_migrations WHERE version = ?", SchemaVersion).
			Scan(&applied).Error; err != nil {
			return fmt.Errorf("failed to read schema version: %w", err)
		}

		// Tables use IF NOT EXISTS, so this is harmless even when already recorded.
		if err := tx.Exec(schemaSQL).Error; err != nil {
			return fmt.Errorf("failed to apply schema: %w", err)
		}

		if applied == 0 {
			if err := tx.Exec("INSERT INTO schema_migrations (version, applied_at) VALUES (?, ?)",
				SchemaVersion, tx.NowFunc()).Error; err != nil {
				return fmt.Errorf("failed to record schema version: %w", err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := AddIndexes(db, log); err != nil {
		return fmt.Errorf("failed to add indexes: %w", err)
	}

	log.Info("database migrations completed", "version", SchemaVersion)
	return nil
}

// AddIndexes adds the lookup indexes used by the list operations.
func AddIndexes(db *gorm.DB, log *slog.Logger) error {
	log = logger.OrDefault(log)

	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		{"tasks", "idx_tasks_project_id", "project_id"},
		{"tasks", "idx_tasks_assignee_id", "assignee_id"},
		{"tasks", "idx_tasks_status", "status"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"tasks", "idx_tasks_parent_task_id", "parent_task_id"},
		{"project_members", "idx_project_members_user_id", "user_id"},
		{"projects", "idx_projects_owner_id", "owner_id"},
	}

	for _, idx := range indexes {
		var count int64
		err := db.Raw(
			"SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND tbl_name = ? AND name = ?",
			idx.table, idx.name,
		).Scan(&count).Error
		if err != nil {
			return fmt.Errorf("failed to check index %s: %w", idx.name, err)
		}

		if count > 0 {
			continue
		}

		// Identifiers come from the table above, never from input.
		sql := fmt.Sprintf("CREATE INDEX IF NOT EXISTS %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Debug("created index", "index", idx.name, "table", idx.table)
	}

	return nil
}
