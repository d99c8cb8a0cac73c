package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yukikurage/timesheet-api/internal/dto"
	apierrors "github.com/yukikurage/timesheet-api/internal/errors"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/services"
	"github.com/yukikurage/timesheet-api/internal/utils"
)

// AuditHandler exposes the audit trail to HR and administrators.
type AuditHandler struct {
	service *services.AuditService
}

func NewAuditHandler(service *services.AuditService) *AuditHandler {
	return &AuditHandler{service: service}
}

// List returns audit rows filtered by entity, entity_id, user_id and action.
func (h *AuditHandler) List(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	entityID, ok := queryUint64(c, "entity_id")
	if !ok {
		return
	}
	userID, ok := queryUint64(c, "user_id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListAuditLogsInput{
		UserID:   userID,
		EntityID: entityID,
		Page:     params.Page,
		PageSize: params.Limit,
	}
	if raw := c.Query("entity"); raw != "" {
		entity, ok := parseEntity(raw)
		if !ok {
			apierrors.BadRequest(c, "Entité inconnue: "+raw)
			return
		}
		input.Entity = &entity
	}
	if raw := c.Query("action"); raw != "" {
		action := models.AuditAction(strings.ToUpper(raw))
		switch action {
		case models.AuditActionCreate, models.AuditActionUpdate, models.AuditActionDelete:
			input.Action = &action
		default:
			apierrors.BadRequest(c, "Action inconnue: "+raw)
			return
		}
	}

	logs, total, err := h.service.List(c.Request.Context(), sub, input)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToAuditLogListResponse(logs, params.Page, params.Limit, total))
}

// History returns the audit rows of one record.
func (h *AuditHandler) History(c *gin.Context) {
	sub, ok := currentSubject(c)
	if !ok {
		return
	}
	entity, ok := parseEntity(c.Param("entity"))
	if !ok {
		apierrors.BadRequest(c, "Entité inconnue: "+c.Param("entity"))
		return
	}
	id, ok := pathID(c, "id")
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	logs, total, err := h.service.History(c.Request.Context(), sub, entity, id, params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}
	apierrors.Data(c, http.StatusOK, dto.ToAuditLogListResponse(logs, params.Page, params.Limit, total))
}

// parseEntity accepts "hr-timesheet" as well as "HR_TIMESHEET".
func parseEntity(raw string) (models.AuditEntity, bool) {
	return services.ParseAuditEntity(strings.ToUpper(strings.ReplaceAll(raw, "-", "_")))
}
