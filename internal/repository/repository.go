package repository

import (
	"context"
	"errors"
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
	"gorm.io/gorm"
)

// ErrStaleRecord is returned by conditional updates that matched no row: the
// record changed (version or status) since it was loaded.
var ErrStaleRecord = errors.New("record was modified by another request")

// Repository groups every repository over one database handle, which may be
// a transaction.
type Repository struct {
	db *gorm.DB

	User         UserRepository
	Project      ProjectRepository
	Task         TaskRepository
	Timesheet    TimesheetEntryRepository
	HRTimesheet  HRTimesheetRepository
	AuditLog     AuditLogRepository
	Notification NotificationRepository
}

// New creates the repository aggregate.
func New(db *gorm.DB) *Repository {
	return &Repository{
		db:           db,
		User:         NewUserRepository(db),
		Project:      NewProjectRepository(db),
		Task:         NewTaskRepository(db),
		Timesheet:    NewTimesheetEntryRepository(db),
		HRTimesheet:  NewHRTimesheetRepository(db),
		AuditLog:     NewAuditLogRepository(db),
		Notification: NewNotificationRepository(db),
	}
}

// WithTx returns an aggregate bound to tx.
func (r *Repository) WithTx(tx *gorm.DB) *Repository {
	return New(tx)
}

// Transaction runs fn inside one database transaction. fn's error rolls
// everything back.
func (r *Repository) Transaction(ctx context.Context, fn func(tx *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(r.WithTx(tx))
	})
}

// DB exposes the underlying handle.
func (r *Repository) DB() *gorm.DB {
	return r.db
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindByUsername finds a user by username
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// ListByRoles lists users holding any of the given roles
	ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error)

	// CountByIDs counts how many of the given user IDs exist
	CountByIDs(ctx context.Context, ids []uint64) (int64, error)

	// UpdateRole changes a user's role
	UpdateRole(ctx context.Context, id uint64, role models.Role) error
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	MemberUserID *uint64
	Status       *models.ProjectStatus
	Search       string
	Page         int
	PageSize     int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project and its owner membership
	Create(ctx context.Context, project *models.Project, ownerID uint64) error

	// FindByID finds a project by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Project, error)

	// CodeExists reports whether a project (including soft-deleted ones) uses code
	CodeExists(ctx context.Context, code string) (bool, error)

	// List retrieves projects with filtering and pagination
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)

	// Update updates a project
	Update(ctx context.Context, project *models.Project) error

	// Delete deletes a project and its memberships, detaching its tasks
	Delete(ctx context.Context, id uint64) error

	// CreateClone creates a copy of a project with the given members
	CreateClone(ctx context.Context, project *models.Project, members []models.ProjectMember) error

	// AddMember adds a member to a project
	AddMember(ctx context.Context, member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(ctx context.Context, projectID, userID uint64) error

	// FindMember finds a specific project member
	FindMember(ctx context.Context, projectID, userID uint64) (*models.ProjectMember, error)

	// ListMembers lists all members of a project
	ListMembers(ctx context.Context, projectID uint64) ([]models.ProjectMember, error)
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	ProjectID      *uint64
	Status         *models.TaskStatus
	CreatorID      *uint64
	AssignedUserID *uint64
	VisibleTo      *uint64
	DueDateFrom    *time.Time
	DueDateTo      *time.Time
	SortByDueDate  bool
	Page           int
	PageSize       int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// FindByID finds a task by ID with optional preloading
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task
	Delete(ctx context.Context, id uint64) error

	// AssignUsers assigns multiple users to a task
	AssignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error

	// UnassignUsers removes user assignments from a task
	UnassignUsers(ctx context.Context, taskID uint64, userIDs []uint64) error

	// FindMember finds a specific task membership
	FindMember(ctx context.Context, taskID, userID uint64) (*models.TaskMember, error)
}

// EntryFilter holds filtering options for listing timesheet entries
type EntryFilter struct {
	UserID    *uint64
	ProjectID *uint64
	Status    *models.EntryStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// TimesheetEntryRepository defines the interface for timesheet entry data access
type TimesheetEntryRepository interface {
	Create(ctx context.Context, entry *models.TimesheetEntry) error
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.TimesheetEntry, error)
	List(ctx context.Context, filter EntryFilter) ([]models.TimesheetEntry, int64, error)

	// Update saves the editable fields of an entry guarded by its version
	Update(ctx context.Context, entry *models.TimesheetEntry) error

	Delete(ctx context.Context, id uint64) error

	// Transition moves entry from status `from` applying changes, guarded by
	// version and status. Returns ErrStaleRecord when no row matched.
	Transition(ctx context.Context, entry *models.TimesheetEntry, from models.EntryStatus, changes map[string]interface{}) error
}

// HRTimesheetFilter holds filtering options for listing HR timesheets
type HRTimesheetFilter struct {
	UserID   *uint64
	Status   *models.HRTimesheetStatus
	WeekFrom *time.Time
	WeekTo   *time.Time
	Page     int
	PageSize int
}

// HRTimesheetRepository defines the interface for HR timesheet data access
type HRTimesheetRepository interface {
	Create(ctx context.Context, ts *models.HRTimesheet) error
	FindByID(ctx context.Context, id uint64, preload ...string) (*models.HRTimesheet, error)
	List(ctx context.Context, filter HRTimesheetFilter) ([]models.HRTimesheet, int64, error)

	// UpdateHeader saves header fields guarded by version
	UpdateHeader(ctx context.Context, ts *models.HRTimesheet) error

	// Delete removes the timesheet and its activities
	Delete(ctx context.Context, id uint64) error

	// Transition moves ts from status `from` applying changes, guarded by
	// version and status. Returns ErrStaleRecord when no row matched.
	Transition(ctx context.Context, ts *models.HRTimesheet, from models.HRTimesheetStatus, changes map[string]interface{}) error

	CreateActivity(ctx context.Context, activity *models.HRActivity) error
	FindActivity(ctx context.Context, timesheetID, activityID uint64) (*models.HRActivity, error)
	UpdateActivity(ctx context.Context, activity *models.HRActivity) error
	DeleteActivity(ctx context.Context, timesheetID, activityID uint64) error
	CountActivities(ctx context.Context, timesheetID uint64) (int64, error)

	// RecalculateTotal sets total_hours to the sum of the activities and
	// bumps the version. Returns the new total.
	RecalculateTotal(ctx context.Context, timesheetID uint64) (float64, error)
}

// AuditLogFilter holds filtering options for listing audit logs
type AuditLogFilter struct {
	UserID   *uint64
	Entity   *models.AuditEntity
	EntityID *uint64
	Action   *models.AuditAction
	Page     int
	PageSize int
}

// AuditLogRepository is append-only: there is no update or delete.
type AuditLogRepository interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	List(ctx context.Context, filter AuditLogFilter) ([]models.AuditLog, int64, error)
}

// NotificationRepository defines the interface for notification data access
type NotificationRepository interface {
	Create(ctx context.Context, n *models.Notification) error
	ListByUser(ctx context.Context, userID uint64, unreadOnly bool, page, pageSize int) ([]models.Notification, int64, error)
	MarkRead(ctx context.Context, userID, id uint64) error
	MarkAllRead(ctx context.Context, userID uint64) error
}
