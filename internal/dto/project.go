package dto

import (
	"time"

	"github.com/yukikurage/timesheet-api/internal/models"
)

// ProjectSummaryDTO is the short form embedded in tasks and entries
type ProjectSummaryDTO struct {
	ID    uint64 `json:"id"`
	Name  string `json:"name"`
	Code  string `json:"code"`
	Color string `json:"color,omitempty"`
}

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	User     *UserSummaryDTO    `json:"user,omitempty"`
	UserID   uint64             `json:"user_id"`
	Role     models.ProjectRole `json:"role"`
	JoinedAt time.Time          `json:"joined_at"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64               `json:"id"`
	Name        string               `json:"name"`
	Code        string               `json:"code"`
	Description string               `json:"description"`
	Color       string               `json:"color"`
	Status      models.ProjectStatus `json:"status"`
	StartDate   *time.Time           `json:"start_date"`
	EndDate     *time.Time           `json:"end_date"`
	CreatedBy   uint64               `json:"created_by"`
	Creator     *UserSummaryDTO      `json:"creator,omitempty"`
	Members     []ProjectMemberDTO   `json:"members,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO `json:"projects"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalCount int64        `json:"total_count"`
	TotalPages int          `json:"total_pages"`
}

func ToProjectSummaryDTO(project models.Project) ProjectSummaryDTO {
	return ProjectSummaryDTO{
		ID:    project.ID,
		Name:  project.Name,
		Code:  project.Code,
		Color: project.Color,
	}
}

func ToProjectMemberDTO(member models.ProjectMember) ProjectMemberDTO {
	return ProjectMemberDTO{
		User:     toUserSummary(member.User),
		UserID:   member.UserID,
		Role:     member.Role,
		JoinedAt: member.JoinedAt,
	}
}

func ToProjectMemberDTOs(members []models.ProjectMember) []ProjectMemberDTO {
	out := make([]ProjectMemberDTO, len(members))
	for i, m := range members {
		out[i] = ToProjectMemberDTO(m)
	}
	return out
}

// ToProjectDTO converts a Project model; members are included when preloaded
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		Name:        project.Name,
		Code:        project.Code,
		Description: project.Description,
		Color:       project.Color,
		Status:      project.Status,
		StartDate:   project.StartDate,
		EndDate:     project.EndDate,
		CreatedBy:   project.CreatedBy,
		Creator:     toUserSummary(project.Creator),
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}
	if len(project.Members) > 0 {
		dto.Members = ToProjectMemberDTOs(project.Members)
	}
	return dto
}

func ToProjectListResponse(projects []models.Project, page, pageSize int, total int64) ProjectListResponse {
	items := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		items[i] = ToProjectDTO(p)
	}
	return ProjectListResponse{
		Projects:   items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: total,
		TotalPages: totalPages(total, pageSize),
	}
}
