package database

import (
	"context"
	"errors"
	"go/parser"
	"go/token"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	apperrors "github.com/yukikurage/task-tracker/internal/errors"
	"gorm.io/gorm"
)

func insertUser(db *gorm.DB, login, email string) error {
	return db.Exec(
		"INSERT INTO users (login_id, display_name, email, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		login, login, email, "hash", "user", time.Now(),
	).Error
}

func TestOpen_EnablesWALAndForeignKeys(t *testing.T) {
	db := openTestDB(t, nil)

	var journal string
	require.NoError(t, db.Raw("PRAGMA journal_mode").Scan(&journal).Error)
	assert.Equal(t, "wal", journal)

	var fk int
	require.NoError(t, db.Raw("PRAGMA foreign_keys").Scan(&fk).Error)
	assert.Equal(t, 1, fk)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Options{})
	assert.Error(t, err)
}

func TestMigrate_IsIdempotent(t *testing.T) {
	db := openTestDB(t, nil)

	require.NoError(t, insertUser(db, "alice", "alice@example.com"))

	require.NoError(t, Migrate(context.Background(), db, nil))
	require.NoError(t, Migrate(context.Background(), db, nil))

	var users int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM users").Scan(&users).Error)
	assert.Equal(t, int64(1), users)

	var versions int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM schema_migrations").Scan(&versions).Error)
	assert.Equal(t, int64(1), versions)

	var indexes int64
	require.NoError(t, db.Raw("SELECT COUNT(*) FROM sqlite_master WHERE type = 'index' AND name = 'idx_tasks_project_id'").
		Scan(&indexes).Error)
	assert.Equal(t, int64(1), indexes)
}

func TestClassifyError_UniqueViolation(t *testing.T) {
	db := openTestDB(t, nil)

	require.NoError(t, insertUser(db, "alice", "alice@example.com"))
	err := insertUser(db, "alice", "other@example.com")
	require.Error(t, err)

	classified := ClassifyError("create user", err)
	assert.True(t, errors.Is(classified, apperrors.ErrIntegrityConstraint))
	assert.False(t, errors.Is(classified, apperrors.ErrStorage))
}

func TestClassifyError_ForeignKeyViolation(t *testing.T) {
	db := openTestDB(t, nil)

	err := db.Exec(
		"INSERT INTO project_members (project_id, user_id, is_admin, joined_at) VALUES (?, ?, ?, ?)",
		999, 999, false, time.Now(),
	).Error
	require.Error(t, err)

	assert.ErrorIs(t, ClassifyError("add member", err), apperrors.ErrIntegrityConstraint)
}

func TestClassifyError_CheckViolation(t *testing.T) {
	db := openTestDB(t, nil)

	err := db.Exec(
		"INSERT INTO users (login_id, display_name, email, password, role, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		"bob", "Bob", "bob@example.com", "hash", "superuser", time.Now(),
	).Error
	require.Error(t, err)

	assert.ErrorIs(t, ClassifyError("create user", err), apperrors.ErrIntegrityConstraint)
}

func TestClassifyError_OtherErrorsAreStorage(t *testing.T) {
	assert.NoError(t, ClassifyError("noop", nil))

	err := ClassifyError("read", errors.New("disk I/O error"))
	assert.ErrorIs(t, err, apperrors.ErrStorage)

	already := apperrors.Validation(apperrors.ErrCodeInvalidInput, "bad")
	assert.Same(t, already, ClassifyError("read", already))
}

func TestPaginate(t *testing.T) {
	db := openTestDB(t, nil)
	for _, login := range []string{"a", "b", "c", "d", "e"} {
		require.NoError(t, insertUser(db, login, login+"@example.com"))
	}

	var logins []string
	require.NoError(t, db.Table("users").Order("id").Scopes(Paginate(2, 2)).Pluck("login_id", &logins).Error)
	assert.Equal(t, []string{"c", "d"}, logins)

	logins = nil
	require.NoError(t, db.Table("users").Order("id").Scopes(Paginate(0, 2)).Pluck("login_id", &logins).Error)
	assert.Len(t, logins, 5)
}

func TestPageSize(t *testing.T) {
	assert.Equal(t, DefaultPageSize, PageSize(0))
	assert.Equal(t, DefaultPageSize, PageSize(-3))
	assert.Equal(t, 10, PageSize(10))
	assert.Equal(t, MaxPageSize, PageSize(MaxPageSize+1))
}

// Binaries link this package, so only _test.go files may pull in testing.
func TestNonTestFilesDoNotImportTesting(t *testing.T) {
	files, err := filepath.Glob("*.go")
	require.NoError(t, err)
	require.NotEmpty(t, files)

	fset := token.NewFileSet()
	for _, name := range files {
		if strings.HasSuffix(name, "_test.go") {
			continue
		}
		f, err := parser.ParseFile(fset, name, nil, parser.ImportsOnly)
		require.NoError(t, err)
		for _, imp := range f.Imports {
			path, err := strconv.Unquote(imp.Path.Value)
			require.NoError(t, err)
			assert.NotEqual(t, "testing", path, name)
		}
	}
}
