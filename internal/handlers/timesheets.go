package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/utils"
)

// TimesheetHandler serves single time entries.
type TimesheetHandler struct {
	service *services.TimesheetService
}

func NewTimesheetHandler(service *services.TimesheetService) *TimesheetHandler {
	return &TimesheetHandler{service: service}
}

// List returns entries filtered by user_id, project_id, status, from and to.
func (h *TimesheetHandler) List(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	userID, ok := queryUint64(c, "user_id")
	if !ok {
		return
	}
	projectID, ok := queryUint64(c, "project_id")
	if !ok {
		return
	}
	from, ok := queryDate(c, "from")
	if !ok {
		return
	}
	to, ok := queryDate(c, "to")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListEntriesInput{
		UserID:    userID,
		ProjectID: projectID,
		DateFrom:  from.Ptr(),
		DateTo:    to.Ptr(),
		Page:      params.Page,
		PageSize:  params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.EntryStatus(status)
		input.Status = &s
	}

	entries, total, err := h.service.List(c.Request.Context(), sub, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryListResponse(entries, params.Page, params.Limit, total))
}

// Get returns one entry.
func (h *TimesheetHandler) Get(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.Get(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryDTO(*entry))
}

// Create records a DRAFT entry for the caller.
func (h *TimesheetHandler) Create(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	var req struct {
		ProjectID   *uint64          `json:"project_id"`
		TaskID      *uint64          `json:"task_id"`
		Date        Date             `json:"date"`
		Duration    float64          `json:"duration" binding:"required"`
		Type        models.EntryType `json:"type"`
		Description string           `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	entry, err := h.service.Create(c.Request.Context(), sub, services.CreateEntryInput{
		ProjectID:   req.ProjectID,
		TaskID:      req.TaskID,
		Date:        req.Date.Time,
		Duration:    req.Duration,
		Type:        req.Type,
		Description: req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToTimesheetEntryDTO(*entry))
}

// Update changes a DRAFT entry.
func (h *TimesheetHandler) Update(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		ProjectID    *uint64           `json:"project_id"`
		ClearProject bool              `json:"clear_project"`
		TaskID       *uint64           `json:"task_id"`
		ClearTask    bool              `json:"clear_task"`
		Date         *Date             `json:"date"`
		Duration     *float64          `json:"duration"`
		Type         *models.EntryType `json:"type"`
		Description  *string           `json:"description"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	entry, err := h.service.Update(c.Request.Context(), sub, id, services.UpdateEntryInput{
		ProjectID:    req.ProjectID,
		ClearProject: req.ClearProject,
		TaskID:       req.TaskID,
		ClearTask:    req.ClearTask,
		Date:         req.Date.Ptr(),
		Duration:     req.Duration,
		Type:         req.Type,
		Description:  req.Description,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryDTO(*entry))
}

// Delete removes a DRAFT entry.
func (h *TimesheetHandler) Delete(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.Delete(c.Request.Context(), sub, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// Submit sends a DRAFT entry to validation.
func (h *TimesheetHandler) Submit(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.Submit(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryDTO(*entry))
}

// Validate approves or rejects a submitted entry.
func (h *TimesheetHandler) Validate(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	var req struct {
		TimesheetEntryID uint64             `json:"timesheet_entry_id" binding:"required"`
		Status           models.EntryStatus `json:"status" binding:"required,oneof=APPROVED REJECTED"`
		Comment          string             `json:"comment"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	entry, err := h.service.Validate(c.Request.Context(), sub, services.ValidateEntryInput{
		EntryID: req.TimesheetEntryID,
		Status:  req.Status,
		Comment: req.Comment,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryDTO(*entry))
}

// Lock freezes an approved entry.
func (h *TimesheetHandler) Lock(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	entry, err := h.service.Lock(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryDTO(*entry))
}

// Pending returns the validator queue.
func (h *TimesheetHandler) Pending(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	pending, err := h.service.Pending(c.Request.Context(), sub, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToTimesheetEntryListResponse(pending.Entries, params.Page, params.Limit, pending.Total))
}
