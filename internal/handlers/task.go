package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/utils"
)

type TaskHandler struct {
	service *services.TaskService
	now     func() time.Time
}

func NewTaskHandler(service *services.TaskService) *TaskHandler {
	return &TaskHandler{
		service: service,
		now:     time.Now,
	}
}

// ListTasks returns the tasks visible to the current user.
// Filters: project_id, status, assigned_to_me, due_today, sort=due_date
func (h *TaskHandler) ListTasks(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	projectID, ok := queryUint64(c, "project_id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		ProjectID:     projectID,
		AssignedToMe:  c.Query("assigned_to_me") == "true",
		DueToday:      c.Query("due_today") == "true",
		SortByDueDate: c.Query("sort") == "due_date",
		Page:          params.Page,
		PageSize:      params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		if !s.Valid() {
			apierrors.BadRequest(c, "Statut de tâche invalide")
			return
		}
		input.Status = &s
	}

	tasks, total, err := h.service.ListTasks(c.Request.Context(), sub, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTaskListResponse(tasks, params.Page, params.Limit, total, h.now()))
}

// GetTask returns a specific task by ID
func (h *TaskHandler) GetTask(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), sub, taskID)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// CreateTask creates a new task
func (h *TaskHandler) CreateTask(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	var req struct {
		Title       string              `json:"title" binding:"required,max=255"`
		Description string              `json:"description"`
		Status      models.TaskStatus   `json:"status"`
		Priority    models.TaskPriority `json:"priority"`
		DueDate     *time.Time          `json:"due_date"`
		ProjectID   *uint64             `json:"project_id"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	task, err := h.service.CreateTask(c.Request.Context(), sub, services.CreateTaskInput{
		Title:       req.Title,
		Description: req.Description,
		Status:      req.Status,
		Priority:    req.Priority,
		DueDate:     req.DueDate,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToTaskDTO(*task, h.now()))
}

// UpdateTask updates an existing task. Task members without update rights
// may only send a status.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Title        *string              `json:"title" binding:"omitempty,max=255"`
		Description  *string              `json:"description"`
		Status       *models.TaskStatus   `json:"status"`
		Priority     *models.TaskPriority `json:"priority"`
		DueDate      *time.Time           `json:"due_date"`
		ClearDueDate bool                 `json:"clear_due_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	task, err := h.service.UpdateTask(c.Request.Context(), sub, taskID, services.UpdateTaskInput{
		Title:        req.Title,
		Description:  req.Description,
		Status:       req.Status,
		Priority:     req.Priority,
		DueDate:      req.DueDate,
		ClearDueDate: req.ClearDueDate,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// DeleteTask deletes a task
func (h *TaskHandler) DeleteTask(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteTask(c.Request.Context(), sub, taskID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

type taskUsersRequest struct {
	UserIDs []uint64 `json:"user_ids" binding:"required"`
}

// AssignTask assigns users to a task
func (h *TaskHandler) AssignTask(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req taskUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	task, err := h.service.AssignUsers(c.Request.Context(), sub, taskID, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// UnassignTask removes users from a task
func (h *TaskHandler) UnassignTask(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	taskID, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req taskUsersRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	task, err := h.service.UnassignUsers(c.Request.Context(), sub, taskID, req.UserIDs)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTaskDTO(*task, h.now()))
}

// GenerateTasks asks the AI service for task suggestions. Nothing is saved.
func (h *TaskHandler) GenerateTasks(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	tasks, err := h.service.GenerateTasks(c.Request.Context(), sub, req.Text)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.GeneratedTasksResponse{Tasks: tasks})
}
