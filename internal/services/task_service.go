package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/cache"
	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
)

var (
	ErrTitleRequired          = validationError("Le titre est obligatoire")
	ErrInvalidTaskStatus      = validationError("Statut de tâche invalide")
	ErrInvalidTaskPriority    = validationError("Priorité de tâche invalide")
	ErrNoUserIDsProvided      = validationError("Au moins un utilisateur est requis")
	ErrInvalidTaskAssignee    = validationError("Un ou plusieurs utilisateurs n'existent pas")
	ErrProjectArchived        = conflictError("Le projet est archivé")
	ErrAIServiceNotConfigured = unavailableError("Le service d'IA n'est pas configuré")
	ErrAINoTasksGenerated     = validationError("Aucune tâche n'a pu être extraite du texte")
)

// TaskService handles task business logic
type TaskService struct {
	repo      *repository.Repository
	policy    *policy.Resolver
	audit     *AuditService
	cache     cache.Invalidator
	aiService *AIService
	log       *zap.Logger
	now       func() time.Time
}

// NewTaskService creates a new TaskService. aiService may be nil.
func NewTaskService(
	repo *repository.Repository,
	resolver *policy.Resolver,
	audit *AuditService,
	inv cache.Invalidator,
	aiService *AIService,
	log *zap.Logger,
) *TaskService {
	return &TaskService{
		repo:      repo,
		policy:    resolver,
		audit:     audit,
		cache:     inv,
		aiService: aiService,
		log:       log,
		now:       time.Now,
	}
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID     *uint64
	AssignedToMe  bool
	DueToday      bool
	Status        *models.TaskStatus
	SortByDueDate bool
	Page          int
	PageSize      int
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	Title       string
	Description string
	Status      models.TaskStatus
	Priority    models.TaskPriority
	DueDate     *time.Time
	ProjectID   *uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *models.TaskStatus
	Priority     *models.TaskPriority
	DueDate      *time.Time
	ClearDueDate bool
}

// onlyStatus reports whether the update changes nothing but the status
func (in UpdateTaskInput) onlyStatus() bool {
	return in.Status != nil && in.Title == nil && in.Description == nil &&
		in.Priority == nil && in.DueDate == nil && !in.ClearDueDate
}

// ListTasks returns the tasks visible to the caller: elevated roles see
// every task, others the tasks they created, are assigned to, or that
// belong to one of their projects.
func (s *TaskService) ListTasks(ctx context.Context, sub policy.Subject, input ListTasksInput) ([]models.Task, int64, error) {
	filter := repository.TaskFilter{
		ProjectID:     input.ProjectID,
		Status:        input.Status,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}

	if !s.policy.Can(sub, policy.ActionListAll, policy.Resource{Kind: policy.KindProject}) {
		filter.VisibleTo = &sub.UserID
	}
	if input.AssignedToMe {
		filter.AssignedUserID = &sub.UserID
	}
	if input.DueToday {
		now := s.now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.repo.Task.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}

	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(ctx context.Context, sub policy.Subject, taskID uint64) (*models.Task, error) {
	task, err := s.load(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.ensureVisible(ctx, sub, task); err != nil {
		return nil, err
	}
	return task, nil
}

// CreateTask creates a new task and assigns the creator
func (s *TaskService) CreateTask(ctx context.Context, sub policy.Subject, input CreateTaskInput) (*models.Task, error) {
	if err := s.policy.Authorize(sub, policy.ActionCreate, policy.Resource{Kind: policy.KindTask}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	if input.Status == "" {
		input.Status = models.TaskStatusTodo
	}
	if !input.Status.Valid() {
		return nil, ErrInvalidTaskStatus
	}
	if input.Priority == "" {
		input.Priority = models.TaskPriorityMedium
	}
	if !input.Priority.Valid() {
		return nil, ErrInvalidTaskPriority
	}

	if input.ProjectID != nil {
		if err := s.ensureProjectWritable(ctx, sub, *input.ProjectID); err != nil {
			return nil, err
		}
	}

	task := &models.Task{
		Title:       title,
		Description: input.Description,
		Status:      input.Status,
		Priority:    input.Priority,
		DueDate:     input.DueDate,
		ProjectID:   input.ProjectID,
		CreatorID:   sub.UserID,
	}

	if err := s.repo.Task.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	if err := s.repo.Task.AssignUsers(ctx, task.ID, []uint64{sub.UserID}); err != nil {
		return nil, fmt.Errorf("failed to assign creator to task: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionCreate,
		Entity:   models.AuditEntityTask,
		EntityID: task.ID,
		After:    taskSnapshot(task),
	})
	s.invalidate(ctx)

	return s.load(ctx, task.ID)
}

// UpdateTask updates an existing task. Task members that are neither the
// creator nor elevated may only change the status.
func (s *TaskService) UpdateTask(ctx context.Context, sub policy.Subject, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.repo.Task.FindByID(ctx, taskID, "Members")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}

	if err := s.policy.Authorize(sub, policy.ActionUpdate, taskResource(task)); err != nil {
		if !input.onlyStatus() || !isTaskMember(task, sub.UserID) {
			return nil, err
		}
	}

	before := taskSnapshot(task)
	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	if input.Status != nil {
		if !input.Status.Valid() {
			return nil, ErrInvalidTaskStatus
		}
		task.Status = *input.Status
	}
	if input.Priority != nil {
		if !input.Priority.Valid() {
			return nil, ErrInvalidTaskPriority
		}
		task.Priority = *input.Priority
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	task.Members = nil
	if err := s.repo.Task.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityTask,
		EntityID: task.ID,
		Before:   before,
		After:    taskSnapshot(task),
	})
	s.invalidate(ctx)

	return s.load(ctx, task.ID)
}

// DeleteTask deletes a task
func (s *TaskService) DeleteTask(ctx context.Context, sub policy.Subject, taskID uint64) error {
	task, err := s.find(ctx, taskID)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(sub, policy.ActionDelete, taskResource(task)); err != nil {
		return err
	}

	if err := s.repo.Task.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionDelete,
		Entity:   models.AuditEntityTask,
		EntityID: task.ID,
		Before:   taskSnapshot(task),
	})
	s.invalidate(ctx)
	return nil
}

// AssignUsers assigns multiple users to a task with validation
func (s *TaskService) AssignUsers(ctx context.Context, sub policy.Subject, taskID uint64, userIDs []uint64) (*models.Task, error) {
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	task, err := s.find(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionManageMembers, taskResource(task)); err != nil {
		return nil, err
	}

	ids := uniqueUint64(userIDs)
	count, err := s.repo.User.CountByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to verify users: %w", err)
	}
	if int(count) != len(ids) {
		return nil, ErrInvalidTaskAssignee
	}

	if err := s.repo.Task.AssignUsers(ctx, task.ID, ids); err != nil {
		return nil, fmt.Errorf("failed to assign users: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityTask,
		EntityID: task.ID,
		After:    map[string]interface{}{"assigned": ids},
	})
	s.invalidate(ctx)

	return s.load(ctx, task.ID)
}

// UnassignUsers removes user assignments from a task
func (s *TaskService) UnassignUsers(ctx context.Context, sub policy.Subject, taskID uint64, userIDs []uint64) (*models.Task, error) {
	if len(userIDs) == 0 {
		return nil, ErrNoUserIDsProvided
	}

	task, err := s.find(ctx, taskID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionManageMembers, taskResource(task)); err != nil {
		return nil, err
	}

	ids := uniqueUint64(userIDs)
	if err := s.repo.Task.UnassignUsers(ctx, taskID, ids); err != nil {
		return nil, fmt.Errorf("failed to unassign users: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityTask,
		EntityID: task.ID,
		Before:   map[string]interface{}{"unassigned": ids},
	})
	s.invalidate(ctx)

	return s.load(ctx, task.ID)
}

// GenerateTasks uses AI to suggest tasks from free text. Nothing is saved.
func (s *TaskService) GenerateTasks(ctx context.Context, sub policy.Subject, text string) ([]GeneratedTask, error) {
	if err := s.policy.Authorize(sub, policy.ActionCreate, policy.Resource{Kind: policy.KindTask}); err != nil {
		return nil, err
	}
	if s.aiService == nil {
		return nil, ErrAIServiceNotConfigured
	}
	if blank(text) {
		return nil, validationError("Le texte est obligatoire")
	}

	aiTasks, err := s.aiService.GenerateTasksFromText(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		aiTasks = aiTasks[:constants.MaxAIGeneratedTasks]
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := s.now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		if strings.TrimSpace(aiTask.Title) == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		if !aiTask.Priority.Valid() {
			aiTask.Priority = models.TaskPriorityMedium
		}
		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}

	return validTasks, nil
}

// ensureVisible allows elevated roles, the creator, task members and
// members of the task's project
func (s *TaskService) ensureVisible(ctx context.Context, sub policy.Subject, task *models.Task) error {
	if s.policy.Can(sub, policy.ActionUpdate, taskResource(task)) || isTaskMember(task, sub.UserID) {
		return nil
	}
	if task.ProjectID != nil {
		if _, err := s.repo.Project.FindMember(ctx, *task.ProjectID, sub.UserID); err == nil {
			return nil
		} else if !isNotFound(err) {
			return fmt.Errorf("failed to verify project membership: %w", err)
		}
	}
	return policy.Deny(policy.ActionRead, policy.KindTask)
}

// ensureProjectWritable checks that tasks may be added to the project by
// the caller
func (s *TaskService) ensureProjectWritable(ctx context.Context, sub policy.Subject, projectID uint64) error {
	project, err := s.repo.Project.FindByID(ctx, projectID)
	if err != nil {
		if isNotFound(err) {
			return ErrProjectNotFound
		}
		return fmt.Errorf("failed to find project: %w", err)
	}
	if project.Status == models.ProjectStatusArchived {
		return ErrProjectArchived
	}
	if s.policy.Can(sub, policy.ActionUpdate, projectResource(project)) {
		return nil
	}
	if _, err := s.repo.Project.FindMember(ctx, projectID, sub.UserID); err != nil {
		if isNotFound(err) {
			return policy.Deny(policy.ActionCreate, policy.KindTask)
		}
		return fmt.Errorf("failed to verify project membership: %w", err)
	}
	return nil
}

func (s *TaskService) invalidate(ctx context.Context) {
	invalidate(ctx, s.cache, s.log, constants.CacheTagTasks, constants.CacheTagAuditLogs)
}

func (s *TaskService) find(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.repo.Task.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func (s *TaskService) load(ctx context.Context, id uint64) (*models.Task, error) {
	task, err := s.repo.Task.FindByID(ctx, id, "Creator", "Project", "Members", "Members.User")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrTaskNotFound
		}
		return nil, fmt.Errorf("failed to find task: %w", err)
	}
	return task, nil
}

func isTaskMember(task *models.Task, userID uint64) bool {
	for _, m := range task.Members {
		if m.UserID == userID {
			return true
		}
	}
	return false
}

func taskResource(task *models.Task) policy.Resource {
	return policy.Resource{Kind: policy.KindTask, OwnerID: task.CreatorID}
}

func taskSnapshot(task *models.Task) map[string]interface{} {
	return map[string]interface{}{
		"title":       task.Title,
		"description": task.Description,
		"status":      task.Status,
		"priority":    task.Priority,
		"due_date":    task.DueDate,
		"project_id":  task.ProjectID,
	}
}
