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

type ProjectHandler struct {
	service *services.ProjectService
}

func NewProjectHandler(service *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{service: service}
}

// ListProjects returns the projects visible to the caller.
// Query: status, search, page, limit.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListProjectsInput{
		Search:   c.Query("search"),
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.ProjectStatus(status)
		input.Status = &s
	}

	projects, total, err := h.service.ListProjects(c.Request.Context(), sub, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToProjectListResponse(projects, params.Page, params.Limit, total))
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.service.GetProject(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToProjectDTO(*project))
}

// CreateProject creates a project owned by the caller. The code is derived
// from the name when omitted.
func (h *ProjectHandler) CreateProject(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}

	var req struct {
		Name        string `json:"name" binding:"required,max=255"`
		Code        string `json:"code" binding:"max=50"`
		Description string `json:"description"`
		Color       string `json:"color"`
		StartDate   *Date  `json:"start_date"`
		EndDate     *Date  `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	project, err := h.service.CreateProject(c.Request.Context(), sub, services.CreateProjectInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Color:       req.Color,
		StartDate:   req.StartDate.Ptr(),
		EndDate:     req.EndDate.Ptr(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		Name        *string `json:"name" binding:"omitempty,max=255"`
		Code        *string `json:"code" binding:"omitempty,max=50"`
		Description *string `json:"description"`
		Color       *string `json:"color"`
		StartDate   *Date   `json:"start_date"`
		EndDate     *Date   `json:"end_date"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}

	project, err := h.service.UpdateProject(c.Request.Context(), sub, id, services.UpdateProjectInput{
		Name:        req.Name,
		Code:        req.Code,
		Description: req.Description,
		Color:       req.Color,
		StartDate:   req.StartDate.Ptr(),
		EndDate:     req.EndDate.Ptr(),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	if err := h.service.DeleteProject(c.Request.Context(), sub, id); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *ProjectHandler) ArchiveProject(c *gin.Context) {
	h.setArchived(c, true)
}

func (h *ProjectHandler) UnarchiveProject(c *gin.Context) {
	h.setArchived(c, false)
}

func (h *ProjectHandler) setArchived(c *gin.Context, archived bool) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.service.SetArchived(c.Request.Context(), sub, id, archived)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToProjectDTO(*project))
}

// CloneProject copies a project and its members under a new code.
func (h *ProjectHandler) CloneProject(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	project, err := h.service.CloneProject(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) ListMembers(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	members, err := h.service.ListMembers(c.Request.Context(), sub, id)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToProjectMemberDTOs(members))
}

func (h *ProjectHandler) AddMember(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	var req struct {
		UserID uint64             `json:"user_id" binding:"required"`
		Role   models.ProjectRole `json:"role" binding:"omitempty,oneof=owner member"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Corps de requête invalide")
		return
	}
	if req.Role == "" {
		req.Role = models.ProjectRoleMember
	}

	member, err := h.service.AddMember(c.Request.Context(), sub, id, req.UserID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusCreated, dto.ToProjectMemberDTO(*member))
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}
	userID, ok := pathID(c, "userId")
	if !ok {
		return
	}

	if err := h.service.RemoveMember(c.Request.Context(), sub, id, userID); err != nil {
		respondError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
