package database

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/yukikurage/task-tracker/internal/logger"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// connParams puts every connection in WAL mode with foreign keys enforced.
// _txlock=immediate makes BEGIN take the write lock up front, so a transaction
// holds it for its whole duration instead of upgrading midway.
const connParams = "_foreign_keys=on&_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL&_txlock=immediate"

// Options configures Open.
type Options struct {
	Path    string
	Logger  *slog.Logger
	SQLLog  bool
	NowFunc func() time.Time
}

// Open connects to the SQLite database file at opts.Path, creating its
// directory if needed. It does not apply the schema; call Migrate for that.
func Open(opts Options) (*gorm.DB, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("database path is required")
	}
	log := logger.OrDefault(opts.Logger)

	if opts.Path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(opts.Path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	cfg := &gorm.Config{
		Logger:         newGormLogger(log, opts.SQLLog),
		TranslateError: true,
	}
	if opts.NowFunc != nil {
		cfg.NowFunc = opts.NowFunc
	}

	db, err := gorm.Open(sqlite.Open(dsn(opts.Path)), cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	log.Info("database connection established", "path", opts.Path)
	return db, nil
}

// Close releases the underlying connection pool.
func Close(db *gorm.DB) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func dsn(path string) string {
	sep := "?"
	if strings.Contains(path, "?") {
		sep = "&"
	}
	return path + sep + connParams
}

func newGormLogger(log *slog.Logger, verbose bool) gormlogger.Interface {
	level := gormlogger.Warn
	if verbose {
		level = gormlogger.Info
	}
	return gormlogger.New(
		slog.NewLogLogger(log.Handler(), slog.LevelDebug),
		gormlogger.Config{
			SlowThreshold:             200 * time.Millisecond,
			LogLevel:                  level,
			IgnoreRecordNotFoundError: true,
			ParameterizedQueries:      true,
			Colorful:                  false,
		},
	)
}
