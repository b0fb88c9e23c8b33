// Package databasetest opens migrated SQLite databases for tests.
package databasetest

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"github.com/yukikurage/task-tracker/internal/database"
	"gorm.io/gorm"
)

// Open opens a migrated database in a per-test temporary directory and
// closes it when the test ends. nowFunc may be nil.
func Open(t testing.TB, nowFunc func() time.Time) *gorm.DB {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := database.Open(database.Options{
		Path:    filepath.Join(t.TempDir(), "tracker.db"),
		Logger:  quiet,
		NowFunc: nowFunc,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = database.Close(db)
	})

	if err := database.Migrate(context.Background(), db, quiet); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
