package dto

import (
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
)

// TimesheetEntryDTO represents a time entry in API responses
type TimesheetEntryDTO struct {
	ID                uint64             `json:"id"`
	UserID            uint64             `json:"user_id"`
	User              *UserSummaryDTO    `json:"user,omitempty"`
	ProjectID         *uint64            `json:"project_id"`
	Project           *ProjectSummaryDTO `json:"project,omitempty"`
	TaskID            *uint64            `json:"task_id"`
	TaskTitle         string             `json:"task_title,omitempty"`
	Date              time.Time          `json:"date"`
	Duration          float64            `json:"duration"`
	Type              models.EntryType   `json:"type"`
	Status            models.EntryStatus `json:"status"`
	Description       string             `json:"description"`
	ValidatorID       *uint64            `json:"validator_id"`
	ValidationComment string             `json:"validation_comment,omitempty"`
	ValidatedAt       *time.Time         `json:"validated_at"`
	Version           int                `json:"version"`
	CreatedAt         time.Time          `json:"created_at"`
	UpdatedAt         time.Time          `json:"updated_at"`
}

// TimesheetEntryListResponse represents a paginated list of entries
type TimesheetEntryListResponse struct {
	Entries    []TimesheetEntryDTO `json:"entries"`
	Page       int                 `json:"page"`
	PageSize   int                 `json:"page_size"`
	TotalCount int64               `json:"total_count"`
	TotalPages int                 `json:"total_pages"`
}

func ToTimesheetEntryDTO(entry models.TimesheetEntry) TimesheetEntryDTO {
	dto := TimesheetEntryDTO{
		ID:                entry.ID,
		UserID:            entry.UserID,
		User:              toUserSummary(entry.User),
		ProjectID:         entry.ProjectID,
		TaskID:            entry.TaskID,
		Date:              entry.Date,
		Duration:          entry.Duration,
		Type:              entry.Type,
		Status:            entry.Status,
		Description:       entry.Description,
		ValidatorID:       entry.ValidatorID,
		ValidationComment: entry.ValidationComment,
		ValidatedAt:       entry.ValidatedAt,
		Version:           entry.Version,
		CreatedAt:         entry.CreatedAt,
		UpdatedAt:         entry.UpdatedAt,
	}
	if entry.Project != nil && entry.Project.ID != 0 {
		project := ToProjectSummaryDTO(*entry.Project)
		dto.Project = &project
	}
	if entry.Task != nil {
		dto.TaskTitle = entry.Task.Title
	}
	return dto
}

func ToTimesheetEntryListResponse(entries []models.TimesheetEntry, page, pageSize int, total int64) TimesheetEntryListResponse {
	items := make([]TimesheetEntryDTO, len(entries))
	for i, e := range entries {
		items[i] = ToTimesheetEntryDTO(e)
	}
	return TimesheetEntryListResponse{
		Entries:    items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}
