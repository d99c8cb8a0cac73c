package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/yukikurage/timesheet-api/internal/cache"
	"github.com/yukikurage/timesheet-api/internal/constants"
	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
	"github.com/yukikurage/timesheet-api/internal/utils"
)

var (
	ErrInvalidProjectName     = validationError("Le nom du projet est obligatoire")
	ErrInvalidProjectDates    = validationError("La date de fin ne peut pas précéder la date de début")
	ErrInvalidProjectRole     = validationError("Rôle de membre invalide")
	ErrProjectCodeTaken       = conflictError("Ce code projet est déjà utilisé")
	ErrAlreadyProjectMember   = conflictError("Cet utilisateur est déjà membre du projet")
	ErrProjectMemberNotFound  = notFoundError("Membre du projet introuvable")
	ErrCannotRemoveProjectOwn = validationError("Impossible de retirer le créateur du projet")
)

// maxCodeAttempts bounds the search for a free generated or cloned code
const maxCodeAttempts = 20

// ProjectService provides business logic for project operations.
type ProjectService struct {
	repo     *repository.Repository
	policy   *policy.Resolver
	audit    *AuditService
	notifier *Notifier
	cache    cache.Invalidator
	log      *zap.Logger
}

// NewProjectService creates a new ProjectService.
func NewProjectService(
	repo *repository.Repository,
	resolver *policy.Resolver,
	audit *AuditService,
	notifier *Notifier,
	inv cache.Invalidator,
	log *zap.Logger,
) *ProjectService {
	return &ProjectService{
		repo:     repo,
		policy:   resolver,
		audit:    audit,
		notifier: notifier,
		cache:    inv,
		log:      log,
	}
}

// CreateProjectInput represents parameters to create a new project.
type CreateProjectInput struct {
	Name        string
	Code        string
	Description string
	Color       string
	StartDate   *time.Time
	EndDate     *time.Time
}

// UpdateProjectInput represents parameters to update a project. Nil fields
// are kept.
type UpdateProjectInput struct {
	Name        *string
	Code        *string
	Description *string
	Color       *string
	StartDate   *time.Time
	EndDate     *time.Time
}

// ListProjectsInput represents filters for listing projects.
type ListProjectsInput struct {
	Status   *models.ProjectStatus
	Search   string
	Page     int
	PageSize int
}

// CreateProject creates a project; the caller becomes its owner member.
func (s *ProjectService) CreateProject(ctx context.Context, sub policy.Subject, input CreateProjectInput) (*models.Project, error) {
	if err := s.policy.Authorize(sub, policy.ActionCreate, policy.Resource{Kind: policy.KindProject}); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrInvalidProjectName
	}
	if input.StartDate != nil && input.EndDate != nil && input.EndDate.Before(*input.StartDate) {
		return nil, ErrInvalidProjectDates
	}

	code, err := s.resolveCode(ctx, name, input.Code)
	if err != nil {
		return nil, err
	}

	project := &models.Project{
		Name:        name,
		Code:        code,
		Description: input.Description,
		Color:       input.Color,
		Status:      models.ProjectStatusActive,
		StartDate:   input.StartDate,
		EndDate:     input.EndDate,
		CreatedBy:   sub.UserID,
	}

	if err := s.repo.Project.Create(ctx, project, sub.UserID); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionCreate,
		Entity:   models.AuditEntityProject,
		EntityID: project.ID,
		After:    projectSnapshot(project),
	})
	s.invalidate(ctx, project.ID)

	return s.load(ctx, project.ID)
}

// ListProjects returns the projects the caller is a member of, or every
// project for elevated roles.
func (s *ProjectService) ListProjects(ctx context.Context, sub policy.Subject, input ListProjectsInput) ([]models.Project, int64, error) {
	filter := repository.ProjectFilter{
		Status:   input.Status,
		Search:   strings.TrimSpace(input.Search),
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if !s.policy.Can(sub, policy.ActionListAll, policy.Resource{Kind: policy.KindProject}) {
		filter.MemberUserID = &sub.UserID
	}

	projects, total, err := s.repo.Project.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

// GetProject returns a project with its members.
func (s *ProjectService) GetProject(ctx context.Context, sub policy.Subject, id uint64) (*models.Project, error) {
	project, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionRead, projectResource(project)); err != nil {
		return nil, err
	}
	return project, nil
}

// UpdateProject updates a project.
func (s *ProjectService) UpdateProject(ctx context.Context, sub policy.Subject, id uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionUpdate, projectResource(project)); err != nil {
		return nil, err
	}

	before := projectSnapshot(project)
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidProjectName
		}
		project.Name = name
	}
	if input.Code != nil {
		code := normalizeCode(*input.Code)
		if code != project.Code {
			if err := s.ensureCodeFree(ctx, code); err != nil {
				return nil, err
			}
			project.Code = code
		}
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.Color != nil {
		project.Color = *input.Color
	}
	if input.StartDate != nil {
		project.StartDate = input.StartDate
	}
	if input.EndDate != nil {
		project.EndDate = input.EndDate
	}
	if project.StartDate != nil && project.EndDate != nil && project.EndDate.Before(*project.StartDate) {
		return nil, ErrInvalidProjectDates
	}

	if err := s.repo.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityProject,
		EntityID: project.ID,
		Before:   before,
		After:    projectSnapshot(project),
	})
	s.invalidate(ctx, project.ID)

	return s.load(ctx, project.ID)
}

// DeleteProject removes a project and its memberships. Its tasks are kept
// without a project.
func (s *ProjectService) DeleteProject(ctx context.Context, sub policy.Subject, id uint64) error {
	project, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(sub, policy.ActionDelete, projectResource(project)); err != nil {
		return err
	}

	if err := s.repo.Project.Delete(ctx, project.ID); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionDelete,
		Entity:   models.AuditEntityProject,
		EntityID: project.ID,
		Before:   projectSnapshot(project),
	})
	s.invalidate(ctx, project.ID)
	invalidate(ctx, s.cache, s.log, constants.CacheTagTasks)
	return nil
}

// SetArchived archives or restores a project.
func (s *ProjectService) SetArchived(ctx context.Context, sub policy.Subject, id uint64, archived bool) (*models.Project, error) {
	project, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionArchive, projectResource(project)); err != nil {
		return nil, err
	}

	status := models.ProjectStatusActive
	if archived {
		status = models.ProjectStatusArchived
	}
	if project.Status == status {
		return s.load(ctx, project.ID)
	}

	before := projectSnapshot(project)
	project.Status = status
	if err := s.repo.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to archive project: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityProject,
		EntityID: project.ID,
		Before:   before,
		After:    projectSnapshot(project),
	})
	s.invalidate(ctx, project.ID)

	return s.load(ctx, project.ID)
}

// CloneProject copies a project and its members. The copy is named
// "<name> (Copie)", coded "<code>-COPY" (then -COPY-2, -COPY-3... when
// taken), ACTIVE, and created by the caller.
func (s *ProjectService) CloneProject(ctx context.Context, sub policy.Subject, id uint64) (*models.Project, error) {
	source, err := s.repo.Project.FindByID(ctx, id, "Members")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	if err := s.policy.Authorize(sub, policy.ActionClone, projectResource(source)); err != nil {
		return nil, err
	}

	code, err := s.freeCloneCode(ctx, source.Code)
	if err != nil {
		return nil, err
	}

	clone := &models.Project{
		Name:        source.Name + " (Copie)",
		Code:        code,
		Description: source.Description,
		Color:       source.Color,
		Status:      models.ProjectStatusActive,
		StartDate:   source.StartDate,
		EndDate:     source.EndDate,
		CreatedBy:   sub.UserID,
	}

	members := source.Members
	cloningUserIsMember := false
	for _, m := range members {
		if m.UserID == sub.UserID {
			cloningUserIsMember = true
			break
		}
	}
	if !cloningUserIsMember {
		members = append(members, models.ProjectMember{UserID: sub.UserID, Role: models.ProjectRoleOwner})
	}

	if err := s.repo.Project.CreateClone(ctx, clone, members); err != nil {
		return nil, fmt.Errorf("failed to clone project: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionCreate,
		Entity:   models.AuditEntityProject,
		EntityID: clone.ID,
		Before:   map[string]interface{}{"cloned_from": source.ID},
		After:    projectSnapshot(clone),
	})
	s.invalidate(ctx, clone.ID)

	return s.load(ctx, clone.ID)
}

// AddMember adds a user to a project.
func (s *ProjectService) AddMember(ctx context.Context, sub policy.Subject, projectID, userID uint64, role models.ProjectRole) (*models.ProjectMember, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionManageMembers, projectResource(project)); err != nil {
		return nil, err
	}

	if role == "" {
		role = models.ProjectRoleMember
	}
	if role != models.ProjectRoleMember && role != models.ProjectRoleOwner {
		return nil, ErrInvalidProjectRole
	}

	if _, err := s.repo.User.FindByID(ctx, userID); err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	if _, err := s.repo.Project.FindMember(ctx, projectID, userID); err == nil {
		return nil, ErrAlreadyProjectMember
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("failed to verify membership: %w", err)
	}

	member := &models.ProjectMember{
		ProjectID: projectID,
		UserID:    userID,
		Role:      role,
		JoinedAt:  time.Now(),
	}
	if err := s.repo.Project.AddMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member to project: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityProject,
		EntityID: projectID,
		After:    map[string]interface{}{"member_added": userID, "role": role},
	})
	s.invalidate(ctx, projectID)
	if userID != sub.UserID {
		s.notifier.Notify(ctx, []uint64{userID}, Message{
			Type:    models.NotificationProjectMember,
			Title:   "Ajout à un projet",
			Message: fmt.Sprintf("Vous avez été ajouté au projet %s", project.Name),
			Link:    fmt.Sprintf("/projects/%d", projectID),
		})
	}

	return member, nil
}

// RemoveMember removes a user from a project. The creator cannot be removed.
func (s *ProjectService) RemoveMember(ctx context.Context, sub policy.Subject, projectID, userID uint64) error {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(sub, policy.ActionManageMembers, projectResource(project)); err != nil {
		return err
	}
	if userID == project.CreatedBy {
		return ErrCannotRemoveProjectOwn
	}

	if _, err := s.repo.Project.FindMember(ctx, projectID, userID); err != nil {
		if isNotFound(err) {
			return ErrProjectMemberNotFound
		}
		return fmt.Errorf("failed to find project member: %w", err)
	}

	if err := s.repo.Project.RemoveMember(ctx, projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	s.audit.RecordBestEffort(ctx, AuditEntry{
		UserID:   sub.UserID,
		Action:   models.AuditActionUpdate,
		Entity:   models.AuditEntityProject,
		EntityID: projectID,
		Before:   map[string]interface{}{"member_removed": userID},
	})
	s.invalidate(ctx, projectID)
	return nil
}

// ListMembers lists the members of a project.
func (s *ProjectService) ListMembers(ctx context.Context, sub policy.Subject, projectID uint64) ([]models.ProjectMember, error) {
	project, err := s.find(ctx, projectID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionRead, projectResource(project)); err != nil {
		return nil, err
	}

	members, err := s.repo.Project.ListMembers(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to list project members: %w", err)
	}
	return members, nil
}

// resolveCode validates a requested code or generates one from the name
func (s *ProjectService) resolveCode(ctx context.Context, name, requested string) (string, error) {
	if code := normalizeCode(requested); code != "" {
		if err := s.ensureCodeFree(ctx, code); err != nil {
			return "", err
		}
		return code, nil
	}

	for i := 0; i < maxCodeAttempts; i++ {
		code, err := utils.GenerateProjectCode(name)
		if err != nil {
			return "", err
		}
		exists, err := s.repo.Project.CodeExists(ctx, code)
		if err != nil {
			return "", fmt.Errorf("failed to check project code: %w", err)
		}
		if !exists {
			return code, nil
		}
	}
	return "", ErrProjectCodeTaken
}

func (s *ProjectService) freeCloneCode(ctx context.Context, code string) (string, error) {
	for n := 1; n <= maxCodeAttempts; n++ {
		candidate := utils.CloneCode(code, n)
		exists, err := s.repo.Project.CodeExists(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("failed to check project code: %w", err)
		}
		if !exists {
			return candidate, nil
		}
	}
	return "", ErrProjectCodeTaken
}

func (s *ProjectService) ensureCodeFree(ctx context.Context, code string) error {
	exists, err := s.repo.Project.CodeExists(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to check project code: %w", err)
	}
	if exists {
		return ErrProjectCodeTaken
	}
	return nil
}

func (s *ProjectService) invalidate(ctx context.Context, projectID uint64) {
	invalidate(ctx, s.cache, s.log, constants.CacheTagProjects, cache.ProjectTag(projectID), constants.CacheTagAuditLogs)
}

func (s *ProjectService) find(ctx context.Context, id uint64) (*models.Project, error) {
	project, err := s.repo.Project.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

func (s *ProjectService) load(ctx context.Context, id uint64) (*models.Project, error) {
	project, err := s.repo.Project.FindByID(ctx, id, "Creator", "Members", "Members.User")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrProjectNotFound
		}
		return nil, fmt.Errorf("failed to find project: %w", err)
	}
	return project, nil
}

func projectResource(p *models.Project) policy.Resource {
	return policy.Resource{Kind: policy.KindProject, OwnerID: p.CreatedBy}
}

func normalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

func projectSnapshot(p *models.Project) map[string]interface{} {
	return map[string]interface{}{
		"name":        p.Name,
		"code":        p.Code,
		"description": p.Description,
		"color":       p.Color,
		"status":      p.Status,
		"start_date":  p.StartDate,
		"end_date":    p.EndDate,
		"created_by":  p.CreatedBy,
	}
}
