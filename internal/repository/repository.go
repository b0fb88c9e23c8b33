package repository

import (
	"context"
	"time"

	"github.com/yukikurage/task-tracker/internal/models"
	"gorm.io/datatypes"
)

// Lookups that miss return (nil, nil). Updates and deletes that touch no row
// return false with a nil error. Constraint violations surface as
// IntegrityConstraintError and driver failures as StorageError.

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create inserts a new user; duplicate login ID or email is an integrity error
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByLoginID finds a user by login ID
	FindByLoginID(ctx context.Context, loginID string) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List returns all users ordered by ID
	List(ctx context.Context) ([]models.User, error)

	// ListVisibleTo returns the user and everyone sharing a project with them
	ListVisibleTo(ctx context.Context, userID uint64) ([]models.User, error)

	// Update applies only the fields set in upd
	Update(ctx context.Context, id uint64, upd UserUpdate) (bool, error)

	// TouchLastLogin stamps the user's last login time
	TouchLastLogin(ctx context.Context, id uint64, at time.Time) (bool, error)

	// Delete removes a user, detaching tasks assigned to them
	Delete(ctx context.Context, id uint64) (bool, error)

	// DeleteAllExcept removes every user but keepID
	DeleteAllExcept(ctx context.Context, keepID uint64) (int64, error)
}

// UserUpdate lists the user fields a partial update may change.
type UserUpdate struct {
	LoginID     *string
	DisplayName *string
	Email       *string
	Password    *string // already hashed
	Role        *models.Role
}

// ProjectRepository defines the interface for project and membership data access
type ProjectRepository interface {
	// Create inserts a new project
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project by ID
	FindByID(ctx context.Context, id uint64) (*models.Project, error)

	// List returns all projects ordered by ID
	List(ctx context.Context) ([]models.Project, error)

	// ListByMember lists the projects a user is a member of
	ListByMember(ctx context.Context, userID uint64) ([]models.Project, error)

	// CountByOwner counts projects owned by a user
	CountByOwner(ctx context.Context, userID uint64) (int64, error)

	// Update applies only the fields set in upd
	Update(ctx context.Context, id uint64, upd ProjectUpdate) (bool, error)

	// Delete removes a project; memberships and tasks go with it
	Delete(ctx context.Context, id uint64) (bool, error)

	// DeleteAll removes every project
	DeleteAll(ctx context.Context) (int64, error)

	// AddMember adds a member to a project
	AddMember(ctx context.Context, member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(ctx context.Context, projectID, userID uint64) (bool, error)

	// SetMemberAdmin changes a member's admin flag
	SetMemberAdmin(ctx context.Context, projectID, userID uint64, isAdmin bool) (bool, error)

	// FindMember finds a specific project member
	FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(ctx context.Context, projectID uint64) ([]models.ProjectMember, error)

	// ListMembershipsByUser lists every membership a user holds
	ListMembershipsByUser(ctx context.Context, userID uint64) ([]models.ProjectMember, error)

	// CountAdmins counts members with the admin flag
	CountAdmins(ctx context.Context, projectID uint64) (int64, error)
}

// ProjectUpdate lists the project fields a partial update may change.
// A nil Settings leaves the stored document untouched.
type ProjectUpdate struct {
	Name        *string
	Description *string
	OwnerID     *uint64
	Settings    datatypes.JSONMap
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID
	FindByID(ctx context.Context, id uint64) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// ListByProject lists every task of a project
	ListByProject(ctx context.Context, projectID uint64) ([]models.Task, error)

	// ListByAssignee lists every task assigned to a user
	ListByAssignee(ctx context.Context, userID uint64) ([]models.Task, error)

	// Ancestors returns the task itself followed by its parent chain
	Ancestors(ctx context.Context, id uint64) ([]uint64, error)

	// Update applies only the fields set in upd and refreshes updated_at
	Update(ctx context.Context, id uint64, upd TaskUpdate) (bool, error)

	// Delete removes a task; its children are detached
	Delete(ctx context.Context, id uint64) (bool, error)

	// DeleteAll removes every task
	DeleteAll(ctx context.Context) (int64, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectIDs   []uint64
	AssigneeID   *uint64
	Status       *models.TaskStatus
	ParentTaskID *uint64
	Page         int
	PageSize     int
}

// TaskUpdate lists the task fields a partial update may change.
// Clear* flags null out the matching column and win over a set value.
type TaskUpdate struct {
	Title          *string
	Description    *string
	AssigneeID     *uint64
	ClearAssignee  bool
	Category       *string
	Priority       *string
	Status         *models.TaskStatus
	Progress       *int
	StartDate      *time.Time
	ClearStartDate bool
	DueDate        *time.Time
	ClearDueDate   bool
	EstimatedHours *float64
	ActualHours    *float64
	Tags           []string
	SetTags        bool
	ParentTaskID   *uint64
	ClearParent    bool
}

// SettingRepository defines the interface for the global key/value store
type SettingRepository interface {
	// Get finds a setting by key
	Get(ctx context.Context, key string) (*models.Setting, error)

	// List returns all settings ordered by key
	List(ctx context.Context) ([]models.Setting, error)

	// Set inserts or replaces a setting, refreshing last_updated
	Set(ctx context.Context, key string, value datatypes.JSON) (*models.Setting, error)

	// Delete removes a setting
	Delete(ctx context.Context, key string) (bool, error)

	// DeleteAll removes every setting
	DeleteAll(ctx context.Context) (int64, error)
}
