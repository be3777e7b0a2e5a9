package repository

import (
	"context"
	"time"

	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// TenantRepository defines the interface for tenant data access
type TenantRepository interface {
	// FindByID finds a tenant by ID
	FindByID(ctx context.Context, id uint64) (*models.Tenant, error)

	// FindByInviteCode finds a tenant by invite code
	FindByInviteCode(ctx context.Context, code string) (*models.Tenant, error)

	// CreateWithAdmin creates a tenant and its first administrator within a single transaction.
	CreateWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.User) error

	// Update updates a tenant
	Update(ctx context.Context, tenant *models.Tenant) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// FindInTenant finds a user by ID only if it belongs to the tenant
	FindInTenant(ctx context.Context, tenantID, id uint64) (*models.User, error)

	// ListByRole lists users of a tenant with the given role
	ListByRole(ctx context.Context, tenantID uint64, role models.UserRole) ([]models.User, error)
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create inserts a project; a taken number or name yields gorm.ErrDuplicatedKey
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project of the tenant
	FindByID(ctx context.Context, tenantID, id uint64) (*models.Project, error)

	// FindByName finds a project of the tenant by name
	FindByName(ctx context.Context, tenantID uint64, name string) (*models.Project, error)

	// List lists the tenant's projects, newest first
	List(ctx context.Context, tenantID uint64, params utils.PaginationParams) ([]models.Project, int64, error)

	// Update updates a project
	Update(ctx context.Context, project *models.Project) error

	// ListNumbersLike returns the tenant's project numbers matching a LIKE pattern
	ListNumbersLike(ctx context.Context, tenantID uint64, pattern string) ([]string, error)
}

// ProjectCounterRepository is the storage behind the atomic allocation path.
type ProjectCounterRepository interface {
	// Available reports whether the counter table is provisioned
	Available(ctx context.Context) bool

	// Get reads the counter row for a tenant and year
	Get(ctx context.Context, tenantID uint64, year int) (*models.ProjectCounter, error)

	// Insert creates the counter row; an existing row yields gorm.ErrDuplicatedKey
	Insert(ctx context.Context, counter *models.ProjectCounter) error

	// CompareAndIncrement bumps next_seq by one only if it still equals expected.
	// It reports whether this caller won the increment.
	CompareAndIncrement(ctx context.Context, tenantID uint64, year int, expected int64) (bool, error)

	// RaiseTo sets next_seq to next if it is currently lower. It reports whether the row moved.
	RaiseTo(ctx context.Context, tenantID uint64, year int, next int64) (bool, error)
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task of the tenant with optional preloading
	FindByID(ctx context.Context, tenantID, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update saves every column of the task
	Update(ctx context.Context, task *models.Task) error

	// MaxProctorNo returns the highest proctor number used in a project, 0 if none
	MaxProctorNo(ctx context.Context, projectID uint64) (int, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TenantID             uint64
	ProjectID            *uint64
	Status               *models.TaskStatus
	AssignedTechnicianID *uint64
	DueDateFrom          *time.Time
	DueDateTo            *time.Time
	SortByDueDate        bool
	// Page and PageSize of zero return every match.
	Page     int
	PageSize int
}

// TaskHistoryRepository is append-only: there is no update or delete.
type TaskHistoryRepository interface {
	// Append inserts a history entry
	Append(ctx context.Context, entry *models.TaskHistory) error

	// ListByTask returns a task's history, most recent first
	ListByTask(ctx context.Context, tenantID, taskID uint64) ([]models.TaskHistory, error)
}

// NotificationRepository defines the interface for inbox data access
type NotificationRepository interface {
	// Create creates a notification
	Create(ctx context.Context, notification *models.Notification) error

	// ListByUser lists a user's notifications, newest first
	ListByUser(ctx context.Context, userID uint64, unreadOnly bool, params utils.PaginationParams) ([]models.Notification, int64, error)

	// CountUnread counts a user's unread notifications
	CountUnread(ctx context.Context, userID uint64) (int64, error)

	// MarkRead flips one notification to read; it reports whether the notification exists
	MarkRead(ctx context.Context, userID, id uint64) (bool, error)

	// MarkAllRead flips every unread notification of the user
	MarkAllRead(ctx context.Context, userID uint64) (int64, error)
}
