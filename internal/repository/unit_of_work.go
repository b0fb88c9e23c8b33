package repository

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/yukikurage/task-tracker/internal/database"
	"github.com/yukikurage/task-tracker/internal/logger"
	"gorm.io/gorm"
)

// ErrTransactionDone is returned when a finished unit of work is committed again.
var ErrTransactionDone = errors.New("unit of work already committed or rolled back")

// Repositories groups the entity repositories bound to one connection pool
// or one transaction.
type Repositories struct {
	Users    UserRepository
	Projects ProjectRepository
	Tasks    TaskRepository
	Settings SettingRepository
}

// NewRepositories binds every repository to db.
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		Users:    NewUserRepository(db),
		Projects: NewProjectRepository(db),
		Tasks:    NewTaskRepository(db),
		Settings: NewSettingRepository(db),
	}
}

// TransactionRecorder observes how units of work finish.
type TransactionRecorder interface {
	RecordTransaction(committed bool)
}

// Store is the entry point to the repository layer. Its embedded
// repositories run each call in its own implicit transaction; Begin and
// RunInTransaction group calls atomically.
type Store struct {
	*Repositories
	db       *gorm.DB
	log      *slog.Logger
	recorder TransactionRecorder
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithLogger sets the logger used for transaction diagnostics.
func WithLogger(l *slog.Logger) StoreOption {
	return func(s *Store) { s.log = l }
}

// WithTransactionRecorder reports every commit and rollback to r.
func WithTransactionRecorder(r TransactionRecorder) StoreOption {
	return func(s *Store) { s.recorder = r }
}

// NewStore creates a Store over db.
func NewStore(db *gorm.DB, opts ...StoreOption) *Store {
	s := &Store{
		Repositories: NewRepositories(db),
		db:           db,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.log = logger.OrDefault(s.log)
	return s
}

// UnitOfWork is one open transaction. Repositories reached through it see
// and write only inside that transaction until Commit or Rollback.
type UnitOfWork struct {
	*Repositories
	tx       *gorm.DB
	done     bool
	log      *slog.Logger
	recorder TransactionRecorder
}

// Begin opens a unit of work. The write lock is taken immediately and held
// until Commit or Rollback, so keep the body short and free of unrelated I/O.
func (s *Store) Begin(ctx context.Context) (*UnitOfWork, error) {
	tx := s.db.WithContext(ctx).Begin()
	if tx.Error != nil {
		return nil, database.ClassifyError("failed to begin transaction", tx.Error)
	}
	return &UnitOfWork{
		Repositories: NewRepositories(tx),
		tx:           tx,
		log:          s.log,
		recorder:     s.recorder,
	}, nil
}

// Commit makes every write of the unit durable.
func (u *UnitOfWork) Commit() error {
	if u.done {
		return ErrTransactionDone
	}
	u.done = true

	if err := u.tx.Commit().Error; err != nil {
		u.record(false)
		return database.ClassifyError("failed to commit transaction", err)
	}
	u.record(true)
	return nil
}

// Rollback discards every write of the unit. Calling it after Commit or a
// previous Rollback does nothing, so it is safe to defer.
func (u *UnitOfWork) Rollback() error {
	if u.done {
		return nil
	}
	u.done = true
	u.record(false)

	if err := u.tx.Rollback().Error; err != nil {
		u.log.Error("transaction rollback failed", "error", err)
		return database.ClassifyError("failed to roll back transaction", err)
	}
	return nil
}

func (u *UnitOfWork) record(committed bool) {
	if u.recorder != nil {
		u.recorder.RecordTransaction(committed)
	}
}

// RunInTransaction runs fn inside a unit of work. If fn returns an error or
// panics the unit is rolled back and the error (or panic) reaches the caller
// unchanged; otherwise it is committed.
func (s *Store) RunInTransaction(ctx context.Context, fn func(uow *UnitOfWork) error) error {
	uow, err := s.Begin(ctx)
	if err != nil {
		return err
	}

	defer func() {
		if p := recover(); p != nil {
			_ = uow.Rollback()
			panic(p)
		}
	}()

	if err := fn(uow); err != nil {
		if rbErr := uow.Rollback(); rbErr != nil {
			return fmt.Errorf("%w (rollback also failed: %v)", err, rbErr)
		}
		return err
	}

	return uow.Commit()
}
