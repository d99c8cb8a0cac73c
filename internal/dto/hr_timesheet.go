package dto

import (
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
)

// HRActivityDTO represents one activity line
type HRActivityDTO struct {
	ID           uint64                  `json:"id"`
	ActivityType models.HRActivityType   `json:"activity_type"`
	ActivityName string                  `json:"activity_name"`
	Periodicity  models.Periodicity      `json:"periodicity"`
	StartDate    time.Time               `json:"start_date"`
	EndDate      time.Time               `json:"end_date"`
	TotalHours   float64                 `json:"total_hours"`
	Status       models.HRActivityStatus `json:"status"`
}

// HRTimesheetDTO represents a weekly HR timesheet
type HRTimesheetDTO struct {
	ID                   uint64                   `json:"id"`
	UserID               uint64                   `json:"user_id"`
	User                 *UserSummaryDTO          `json:"user,omitempty"`
	WeekStartDate        time.Time                `json:"week_start_date"`
	WeekEndDate          time.Time                `json:"week_end_date"`
	EmployeeName         string                   `json:"employee_name"`
	Position             string                   `json:"position"`
	Site                 string                   `json:"site"`
	TotalHours           float64                  `json:"total_hours"`
	Status               models.HRTimesheetStatus `json:"status"`
	EmployeeObservations string                   `json:"employee_observations"`
	ManagerComments      string                   `json:"manager_comments"`
	OdillonComments      string                   `json:"odillon_comments"`
	EmployeeSignedAt     *time.Time               `json:"employee_signed_at"`
	ManagerSignedAt      *time.Time               `json:"manager_signed_at"`
	ManagerSignerID      *uint64                  `json:"manager_signer_id"`
	OdillonSignedAt      *time.Time               `json:"odillon_signed_at"`
	OdillonSignerID      *uint64                  `json:"odillon_signer_id"`
	Version              int                      `json:"version"`
	Activities           []HRActivityDTO          `json:"activities"`
	CreatedAt            time.Time                `json:"created_at"`
	UpdatedAt            time.Time                `json:"updated_at"`
}

// HRTimesheetListResponse represents a paginated list of HR timesheets
type HRTimesheetListResponse struct {
	Timesheets []HRTimesheetDTO `json:"timesheets"`
	Page       int              `json:"page"`
	PageSize   int              `json:"page_size"`
	TotalCount int64            `json:"total_count"`
	TotalPages int              `json:"total_pages"`
}

func ToHRActivityDTO(a models.HRActivity) HRActivityDTO {
	return HRActivityDTO{
		ID:           a.ID,
		ActivityType: a.ActivityType,
		ActivityName: a.ActivityName,
		Periodicity:  a.Periodicity,
		StartDate:    a.StartDate,
		EndDate:      a.EndDate,
		TotalHours:   a.TotalHours,
		Status:       a.Status,
	}
}

func ToHRTimesheetDTO(ts models.HRTimesheet) HRTimesheetDTO {
	activities := make([]HRActivityDTO, len(ts.Activities))
	for i, a := range ts.Activities {
		activities[i] = ToHRActivityDTO(a)
	}
	return HRTimesheetDTO{
		ID:                   ts.ID,
		UserID:               ts.UserID,
		User:                 toUserSummary(ts.User),
		WeekStartDate:        ts.WeekStartDate,
		WeekEndDate:          ts.WeekEndDate,
		EmployeeName:         ts.EmployeeName,
		Position:             ts.Position,
		Site:                 ts.Site,
		TotalHours:           ts.TotalHours,
		Status:               ts.Status,
		EmployeeObservations: ts.EmployeeObservations,
		ManagerComments:      ts.ManagerComments,
		OdillonComments:      ts.OdillonComments,
		EmployeeSignedAt:     ts.EmployeeSignedAt,
		ManagerSignedAt:      ts.ManagerSignedAt,
		ManagerSignerID:      ts.ManagerSignerID,
		OdillonSignedAt:      ts.OdillonSignedAt,
		OdillonSignerID:      ts.OdillonSignerID,
		Version:              ts.Version,
		Activities:           activities,
		CreatedAt:            ts.CreatedAt,
		UpdatedAt:            ts.UpdatedAt,
	}
}

func ToHRTimesheetListResponse(list []models.HRTimesheet, page, pageSize int, total int64) HRTimesheetListResponse {
	items := make([]HRTimesheetDTO, len(list))
	for i, ts := range list {
		items[i] = ToHRTimesheetDTO(ts)
	}
	return HRTimesheetListResponse{
		Timesheets: items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}
