package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/utils"
)

// HRTimesheetHandler serves weekly HR timesheets and their approval flow.
type HRTimesheetHandler struct {
	service *services.HRTimesheetService
	export  *services.ExportService
}

func NewHRTimesheetHandler(service *services.HRTimesheetService, export *services.ExportService) *HRTimesheetHandler {
	return &HRTimesheetHandler{service: service, export: export}
}

type activityRequest struct {
	ActivityType models.HRActivityType   `json:"activity_type" binding:"required"`
	ActivityName string                  `json:"activity_name" binding:"required"`
	Periodicity  models.Periodicity      `json:"periodicity" binding:"required"`
	StartDate    Date                    `json:"start_date"`
	EndDate      Date                    `json:"end_date"`
	TotalHours   float64                 `json:"total_hours"`
	Status       models.HRActivityStatus `json:"status"`
}

func (r activityRequest) input() services.ActivityInput {
	return services.ActivityInput{
		ActivityType: r.ActivityType,
		ActivityName: r.ActivityName,
		Periodicity:  r.Periodicity,
		StartDate:    r.StartDate.Time,
		EndDate:      r.EndDate.Time,
		TotalHours:   r.TotalHours,
		Status:       r.Status,
	}
}

type approvalRequest struct {
	Action   services.ApprovalAction `json:"action" binding:"required"`
	Comments string                  `json:"comments"`
}

// List returns the caller's timesheets, or every timesheet for validators.
// Optional filters: user_id, status, week_from, week_to.
func (h *HRTimesheetHandler) List(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	userID, ok := queryUint64(c, "user_id")
	if !ok {
		return
	}
	weekFrom, ok := queryDate(c, "week_from")
	if !ok {
		return
	}
	weekTo, ok := queryDate(c, "week_to")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListHRTimesheetsInput{
		UserID:   userID,
		WeekFrom: weekFrom.Ptr(),
		WeekTo:   weekTo.Ptr(),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.HRTimesheetStatus(status)
		input.Status = &s
	}

	list, total, err := h.service.List(c.Request.Context(), sub, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetListResponse(list, params.Page, params.Limit, total))
}

// Get returns one timesheet with its activities.
func (h *HRTimesheetHandler) Get(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ts, err := h.service.Get(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetDTO(*ts))
}

// Create opens a DRAFT timesheet for the caller.
func (h *HRTimesheetHandler) Create(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	var req struct {
		WeekStartDate        Date              `json:"week_start_date"`
		WeekEndDate          Date              `json:"week_end_date"`
		EmployeeName         *string           `json:"employee_name"`
		Position             *string           `json:"position"`
		Site                 *string           `json:"site"`
		EmployeeObservations string            `json:"employee_observations"`
		Activities           []activityRequest `json:"activities" binding:"dive"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	input := services.CreateHRTimesheetInput{
		WeekStartDate:        req.WeekStartDate.Time,
		WeekEndDate:          req.WeekEndDate.Time,
		EmployeeName:         req.EmployeeName,
		Position:             req.Position,
		Site:                 req.Site,
		EmployeeObservations: req.EmployeeObservations,
	}
	for _, a := range req.Activities {
		input.Activities = append(input.Activities, a.input())
	}

	ts, err := h.service.Create(c.Request.Context(), sub, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToHRTimesheetDTO(*ts))
}

// Update changes the header of an editable timesheet.
func (h *HRTimesheetHandler) Update(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		WeekStartDate        *Date   `json:"week_start_date"`
		WeekEndDate          *Date   `json:"week_end_date"`
		EmployeeName         *string `json:"employee_name"`
		Position             *string `json:"position"`
		Site                 *string `json:"site"`
		EmployeeObservations *string `json:"employee_observations"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	ts, err := h.service.Update(c.Request.Context(), sub, id, services.UpdateHRTimesheetInput{
		WeekStartDate:        req.WeekStartDate.Ptr(),
		WeekEndDate:          req.WeekEndDate.Ptr(),
		EmployeeName:         req.EmployeeName,
		Position:             req.Position,
		Site:                 req.Site,
		EmployeeObservations: req.EmployeeObservations,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetDTO(*ts))
}

// Delete removes a timesheet.
func (h *HRTimesheetHandler) Delete(c *gin.Context) {
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

// AddActivity appends an activity and returns the updated timesheet.
func (h *HRTimesheetHandler) AddActivity(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	ts, err := h.service.AddActivity(c.Request.Context(), sub, id, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToHRTimesheetDTO(*ts))
}

// UpdateActivity replaces an activity.
func (h *HRTimesheetHandler) UpdateActivity(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	activityID, ok := pathID(c, "activityId")
	if !ok {
		return
	}

	var req activityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	ts, err := h.service.UpdateActivity(c.Request.Context(), sub, id, activityID, req.input())
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetDTO(*ts))
}

// DeleteActivity removes an activity.
func (h *HRTimesheetHandler) DeleteActivity(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	activityID, ok := pathID(c, "activityId")
	if !ok {
		return
	}

	ts, err := h.service.DeleteActivity(c.Request.Context(), sub, id, activityID)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetDTO(*ts))
}

// Submit sends the timesheet to manager validation.
func (h *HRTimesheetHandler) Submit(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	ts, err := h.service.Submit(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetDTO(*ts))
}

// ManagerApproval records the first validation stage.
func (h *HRTimesheetHandler) ManagerApproval(c *gin.Context) {
	h.approve(c, h.service.ManagerApprove)
}

// OdillonApproval records the final validation stage.
func (h *HRTimesheetHandler) OdillonApproval(c *gin.Context) {
	h.approve(c, h.service.OdillonApprove)
}

type approveFunc func(ctx context.Context, sub policy.Subject, id uint64, input services.ApprovalInput) (*models.HRTimesheet, error)

func (h *HRTimesheetHandler) approve(c *gin.Context, fn approveFunc) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req approvalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}
	input := services.ApprovalInput{Action: req.Action, Comments: req.Comments}
	if err := input.Validate(); err != nil {
		respondError(c, err)
		return
	}

	ts, err := fn(c.Request.Context(), sub, id, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToHRTimesheetDTO(*ts))
}

// Export streams the timesheet as an xlsx workbook.
func (h *HRTimesheetHandler) Export(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	if format := c.DefaultQuery("format", "xlsx"); format != "xlsx" {
		apierrors.BadRequest(c, "Format d'export non supporté: "+format)
		return
	}

	result, err := h.export.ExportHRTimesheet(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Content-Length", strconv.Itoa(len(result.Data)))
	if result.ArchiveKey != "" {
		c.Header("X-Archive-Key", result.ArchiveKey)
	}
	c.Data(http.StatusOK, result.ContentType, result.Data)
}
