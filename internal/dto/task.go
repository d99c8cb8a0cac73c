package dto

import (
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/services"
)

// TaskMemberDTO represents a task assignment in API responses
type TaskMemberDTO struct {
	User       *UserSummaryDTO `json:"user,omitempty"`
	UserID     uint64          `json:"user_id"`
	AssignedAt time.Time       `json:"assigned_at"`
}

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64              `json:"id"`
	Title       string              `json:"title"`
	Description string              `json:"description"`
	Status      models.TaskStatus   `json:"status"`
	Priority    models.TaskPriority `json:"priority"`
	SLA         models.SLAStatus    `json:"sla"`
	DueDate     *time.Time          `json:"due_date"`
	CreatorID   uint64              `json:"creator_id"`
	ProjectID   *uint64             `json:"project_id"`
	CreatedAt   time.Time           `json:"created_at"`
	UpdatedAt   time.Time           `json:"updated_at"`
	Creator     *UserSummaryDTO     `json:"creator,omitempty"`
	Project     *ProjectSummaryDTO  `json:"project,omitempty"`
	Members     []TaskMemberDTO     `json:"members,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO `json:"tasks"`
	Page       int       `json:"page"`
	PageSize   int       `json:"page_size"`
	TotalCount int64     `json:"total_count"`
	TotalPages int       `json:"total_pages"`
}

// GeneratedTasksResponse carries AI suggestions; nothing is saved
type GeneratedTasksResponse struct {
	Tasks []services.GeneratedTask `json:"tasks"`
}

// ToTaskDTO converts a Task model to TaskDTO. now drives the SLA status.
func ToTaskDTO(task models.Task, now time.Time) TaskDTO {
	dto := TaskDTO{
		ID:          task.ID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		Priority:    task.Priority,
		SLA:         task.SLA(now),
		DueDate:     task.DueDate,
		CreatorID:   task.CreatorID,
		ProjectID:   task.ProjectID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Creator:     toUserSummary(task.Creator),
	}

	if task.Project != nil && task.Project.ID != 0 {
		project := ToProjectSummaryDTO(*task.Project)
		dto.Project = &project
	}

	if len(task.Members) > 0 {
		dto.Members = make([]TaskMemberDTO, len(task.Members))
		for i, m := range task.Members {
			dto.Members[i] = TaskMemberDTO{
				User:       toUserSummary(m.User),
				UserID:     m.UserID,
				AssignedAt: m.CreatedAt,
			}
		}
	}

	return dto
}

// ToTaskListResponse converts a page of tasks
func ToTaskListResponse(tasks []models.Task, page, pageSize int, total int64, now time.Time) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task, now)
	}

	return TaskListResponse{
		Tasks:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}

func totalPages(total int64, pageSize int) int {
	if pageSize <= 0 {
		return 0
	}
	return int((total + int64(pageSize) - 1) / int64(pageSize))
}
