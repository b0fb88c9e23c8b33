package database

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"testing"
	"time"

	"gorm.io/gorm"
)

// openTestDB opens a migrated database in a per-test temporary directory and
// closes it when the test ends. nowFunc may be nil.
func openTestDB(t testing.TB, nowFunc func() time.Time) *gorm.DB {
	t.Helper()

	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	db, err := Open(Options{
		Path:    filepath.Join(t.TempDir(), "tracker.db"),
		Logger:  quiet,
		NowFunc: nowFunc,
	})
	if err != nil {
		t.Fatalf("open test database: %v", err)
	}
	t.Cleanup(func() {
		_ = Close(db)
	})

	if err := Migrate(context.Background(), db, quiet); err != nil {
		t.Fatalf("migrate test database: %v", err)
	}
	return db
}
