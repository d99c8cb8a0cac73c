package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
)

// AuditLogDTO represents one audit row
type AuditLogDTO struct {
	ID        uint64             `json:"id"`
	UserID    uint64             `json:"user_id"`
	User      *UserSummaryDTO    `json:"user,omitempty"`
	Action    models.AuditAction `json:"action"`
	Entity    models.AuditEntity `json:"entity"`
	EntityID  uint64             `json:"entity_id"`
	Changes   json.RawMessage    `json:"changes,omitempty"`
	CreatedAt time.Time          `json:"created_at"`
}

// AuditLogListResponse represents a paginated list of audit rows
type AuditLogListResponse struct {
	Logs       []AuditLogDTO `json:"logs"`
	Page       int           `json:"page"`
	PageSize   int           `json:"page_size"`
	TotalCount int64         `json:"total_count"`
	TotalPages int           `json:"total_pages"`
}

// NotificationListResponse represents a paginated list of notifications
type NotificationListResponse struct {
	Notifications []models.Notification `json:"notifications"`
	Page          int                   `json:"page"`
	PageSize      int                   `json:"page_size"`
	TotalCount    int64                 `json:"total_count"`
	TotalPages    int                   `json:"total_pages"`
}

// PresenceResponse lists the users seen recently
type PresenceResponse struct {
	OnlineUserIDs []uint64 `json:"online_user_ids"`
}

func ToAuditLogDTO(log models.AuditLog) AuditLogDTO {
	dto := AuditLogDTO{
		ID:        log.ID,
		UserID:    log.UserID,
		User:      toUserSummary(log.User),
		Action:    log.Action,
		Entity:    log.Entity,
		EntityID:  log.EntityID,
		CreatedAt: log.CreatedAt,
	}
	if len(log.Changes) > 0 {
		dto.Changes = json.RawMessage(log.Changes)
	}
	return dto
}

func ToAuditLogListResponse(logs []models.AuditLog, page, pageSize int, total int64) AuditLogListResponse {
	items := make([]AuditLogDTO, len(logs))
	for i, l := range logs {
		items[i] = ToAuditLogDTO(l)
	}
	return AuditLogListResponse{
		Logs:       items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}

func ToNotificationListResponse(list []models.Notification, page, pageSize int, total int64) NotificationListResponse {
	if list == nil {
		list = []models.Notification{}
	}
	return NotificationListResponse{
		Notifications: list,
		Page:          page,
		PageSize:      pageSize,
		TotalCount:    total,
		TotalPages:    totalPages(total, pageSize),
	}
}
