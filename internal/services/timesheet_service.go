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
)

var (
	ErrInvalidDuration      = validationError(fmt.Sprintf("La durée doit être comprise entre 0 et %g heures", constants.MaxEntryDurationHours))
	ErrInvalidEntryType     = validationError("Type de saisie invalide")
	ErrInvalidEntryDecision = validationError("Le statut doit être APPROVED ou REJECTED")
	ErrTaskProjectMismatch  = validationError("La tâche n'appartient pas au projet indiqué")
	ErrEntryNotDraft        = conflictError("Seule une saisie en brouillon peut être modifiée")
	ErrEntryNotSubmitted    = conflictError("La saisie de temps n'est pas en attente de validation")
	ErrEntryNotApproved     = conflictError("Seule une saisie approuvée peut être verrouillée")
)

const pendingCacheTTL = 5 * time.Minute

// CreateEntryInput creates a DRAFT time entry for the caller
type CreateEntryInput struct {
	ProjectID   *uint64
	TaskID      *uint64
	Date        time.Time
	Duration    float64
	Type        models.EntryType
	Description string
}

// UpdateEntryInput changes a DRAFT entry. Nil fields are kept.
type UpdateEntryInput struct {
	ProjectID    *uint64
	ClearProject bool
	TaskID       *uint64
	ClearTask    bool
	Date         *time.Time
	Duration     *float64
	Type         *models.EntryType
	Description  *string
}

// ListEntriesInput filters the entry list
type ListEntriesInput struct {
	UserID    *uint64
	ProjectID *uint64
	Status    *models.EntryStatus
	DateFrom  *time.Time
	DateTo    *time.Time
	Page      int
	PageSize  int
}

// ValidateEntryInput is a validator's decision on a submitted entry
type ValidateEntryInput struct {
	EntryID uint64
	Status  models.EntryStatus
	Comment string
}

// PendingEntries is one page of the validator queue.
type PendingEntries struct {
	Entries []models.TimesheetEntry `json:"entries"`
	Total   int64                   `json:"total"`
}

// TimesheetService manages single time entries: DRAFT -> SUBMITTED ->
// APPROVED | REJECTED, and APPROVED -> LOCKED.
type TimesheetService struct {
	repo     *repository.Repository
	policy   *policy.Resolver
	audit    *AuditService
	notifier *Notifier
	cache    cache.Store
	log      *zap.Logger
	now      func() time.Time
}

func NewTimesheetService(
	repo *repository.Repository,
	resolver *policy.Resolver,
	audit *AuditService,
	notifier *Notifier,
	store cache.Store,
	log *zap.Logger,
) *TimesheetService {
	return &TimesheetService{
		repo:     repo,
		policy:   resolver,
		audit:    audit,
		notifier: notifier,
		cache:    store,
		log:      log,
		now:      time.Now,
	}
}

// Create creates a DRAFT entry owned by the caller.
func (s *TimesheetService) Create(ctx context.Context, sub policy.Subject, input CreateEntryInput) (*models.TimesheetEntry, error) {
	if err := s.policy.Authorize(sub, policy.ActionCreate, policy.Resource{Kind: policy.KindTimesheetEntry}); err != nil {
		return nil, err
	}
	if input.Type == "" {
		input.Type = models.EntryTypeNormal
	}

	entry := &models.TimesheetEntry{
		UserID:      sub.UserID,
		ProjectID:   input.ProjectID,
		TaskID:      input.TaskID,
		Date:        input.Date,
		Duration:    input.Duration,
		Type:        input.Type,
		Status:      models.EntryStatusDraft,
		Description: strings.TrimSpace(input.Description),
		Version:     1,
	}
	if err := s.validateEntry(ctx, entry); err != nil {
		return nil, err
	}

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Timesheet.Create(ctx, entry); err != nil {
			return fmt.Errorf("failed to create entry: %w", err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionCreate,
			Entity:   models.AuditEntityTimesheet,
			EntityID: entry.ID,
			After:    entrySnapshot(entry),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, entry)
	return s.load(ctx, entry.ID)
}

// Get returns one entry.
func (s *TimesheetService) Get(ctx context.Context, sub policy.Subject, id uint64) (*models.TimesheetEntry, error) {
	entry, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionRead, entryResource(entry)); err != nil {
		return nil, err
	}
	return entry, nil
}

// List returns the caller's entries, or any user's for validators.
func (s *TimesheetService) List(ctx context.Context, sub policy.Subject, input ListEntriesInput) ([]models.TimesheetEntry, int64, error) {
	filter := repository.EntryFilter{
		UserID:    input.UserID,
		ProjectID: input.ProjectID,
		Status:    input.Status,
		DateFrom:  input.DateFrom,
		DateTo:    input.DateTo,
		Page:      input.Page,
		PageSize:  input.PageSize,
	}
	if !s.policy.Can(sub, policy.ActionListAll, policy.Resource{Kind: policy.KindTimesheetEntry}) {
		if input.UserID != nil && *input.UserID != sub.UserID {
			return nil, 0, policy.Deny(policy.ActionListAll, policy.KindTimesheetEntry)
		}
		filter.UserID = &sub.UserID
	}

	entries, total, err := s.repo.Timesheet.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list entries: %w", err)
	}
	return entries, total, nil
}

// Update changes a DRAFT entry of the caller.
func (s *TimesheetService) Update(ctx context.Context, sub policy.Subject, id uint64, input UpdateEntryInput) (*models.TimesheetEntry, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionUpdate, entryResource(entry)); err != nil {
		return nil, err
	}
	if entry.Status != models.EntryStatusDraft {
		return nil, ErrEntryNotDraft
	}

	before := entrySnapshot(entry)
	switch {
	case input.ClearProject:
		entry.ProjectID = nil
	case input.ProjectID != nil:
		entry.ProjectID = input.ProjectID
	}
	switch {
	case input.ClearTask:
		entry.TaskID = nil
	case input.TaskID != nil:
		entry.TaskID = input.TaskID
	}
	if input.Date != nil {
		entry.Date = *input.Date
	}
	if input.Duration != nil {
		entry.Duration = *input.Duration
	}
	if input.Type != nil {
		entry.Type = *input.Type
	}
	if input.Description != nil {
		entry.Description = strings.TrimSpace(*input.Description)
	}
	if err := s.validateEntry(ctx, entry); err != nil {
		return nil, err
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Timesheet.Update(ctx, entry); err != nil {
			return staleOr(err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionUpdate,
			Entity:   models.AuditEntityTimesheet,
			EntityID: entry.ID,
			Before:   before,
			After:    entrySnapshot(entry),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, entry)
	return s.load(ctx, entry.ID)
}

// Delete removes a DRAFT entry of the caller.
func (s *TimesheetService) Delete(ctx context.Context, sub policy.Subject, id uint64) error {
	entry, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(sub, policy.ActionDelete, entryResource(entry)); err != nil {
		return err
	}
	if entry.Status != models.EntryStatusDraft {
		return ErrEntryNotDraft
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Timesheet.Delete(ctx, entry.ID); err != nil {
			return fmt.Errorf("failed to delete entry: %w", err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionDelete,
			Entity:   models.AuditEntityTimesheet,
			EntityID: entry.ID,
			Before:   entrySnapshot(entry),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, entry)
	return nil
}

// Submit moves a DRAFT entry to SUBMITTED.
func (s *TimesheetService) Submit(ctx context.Context, sub policy.Subject, id uint64) (*models.TimesheetEntry, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionSubmit, entryResource(entry)); err != nil {
		return nil, err
	}
	if entry.Status != models.EntryStatusDraft {
		return nil, ErrEntryNotDraft
	}

	updated, err := s.transition(ctx, sub, entry, models.EntryStatusDraft, map[string]interface{}{
		"status": models.EntryStatusSubmitted,
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRoles(ctx, []models.Role{models.RoleManager}, sub.UserID, Message{
		Type:    models.NotificationTimesheetSubmitted,
		Title:   "Saisie de temps à valider",
		Message: fmt.Sprintf("%s a soumis %g h pour le %s", updated.User.DisplayName(), updated.Duration, updated.Date.Format("02/01/2006")),
		Link:    "/timesheets/validation",
	})
	return updated, nil
}

// Validate approves or rejects a SUBMITTED entry. Calling it again with
// the status the entry already holds returns the entry unchanged; any
// other non-SUBMITTED entry is a conflict.
func (s *TimesheetService) Validate(ctx context.Context, sub policy.Subject, input ValidateEntryInput) (*models.TimesheetEntry, error) {
	if input.Status != models.EntryStatusApproved && input.Status != models.EntryStatusRejected {
		return nil, ErrInvalidEntryDecision
	}
	if input.Status == models.EntryStatusRejected && blank(input.Comment) {
		return nil, ErrCommentRequired
	}

	entry, err := s.find(ctx, input.EntryID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionValidate, entryResource(entry)); err != nil {
		return nil, err
	}
	if entry.Status == input.Status {
		return s.load(ctx, entry.ID)
	}
	if entry.Status != models.EntryStatusSubmitted {
		return nil, ErrEntryNotSubmitted
	}

	updated, err := s.transition(ctx, sub, entry, models.EntryStatusSubmitted, map[string]interface{}{
		"status":             input.Status,
		"validator_id":       sub.UserID,
		"validation_comment": strings.TrimSpace(input.Comment),
		"validated_at":       s.now(),
	})
	if err != nil {
		return nil, err
	}

	title := "Saisie de temps approuvée"
	if input.Status == models.EntryStatusRejected {
		title = "Saisie de temps rejetée"
	}
	s.notifier.Notify(ctx, []uint64{updated.UserID}, Message{
		Type:    models.NotificationTimesheetValidated,
		Title:   title,
		Message: updated.ValidationComment,
		Link:    fmt.Sprintf("/timesheets/%d", updated.ID),
	})
	return updated, nil
}

// Lock freezes an APPROVED entry. LOCKED is terminal.
func (s *TimesheetService) Lock(ctx context.Context, sub policy.Subject, id uint64) (*models.TimesheetEntry, error) {
	entry, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionLock, entryResource(entry)); err != nil {
		return nil, err
	}
	if entry.Status == models.EntryStatusLocked {
		return s.load(ctx, entry.ID)
	}
	if entry.Status != models.EntryStatusApproved {
		return nil, ErrEntryNotApproved
	}

	return s.transition(ctx, sub, entry, models.EntryStatusApproved, map[string]interface{}{
		"status": models.EntryStatusLocked,
	})
}

// Pending returns the validator queue of SUBMITTED entries, oldest day
// last. The page is cached until any entry changes.
func (s *TimesheetService) Pending(ctx context.Context, sub policy.Subject, page, pageSize int) (PendingEntries, error) {
	if err := s.policy.Authorize(sub, policy.ActionValidate, policy.Resource{Kind: policy.KindTimesheetEntry}); err != nil {
		return PendingEntries{}, err
	}

	key := fmt.Sprintf("%s:pending:%d:%d", constants.CacheTagTimesheets, page, pageSize)
	return cache.Remember(ctx, s.cache, s.log, key, []string{constants.CacheTagTimesheets}, pendingCacheTTL, func() (PendingEntries, error) {
		status := models.EntryStatusSubmitted
		entries, total, err := s.repo.Timesheet.List(ctx, repository.EntryFilter{
			Status:   &status,
			Page:     page,
			PageSize: pageSize,
		})
		if err != nil {
			return PendingEntries{}, fmt.Errorf("failed to list pending entries: %w", err)
		}
		return PendingEntries{Entries: entries, Total: total}, nil
	})
}

func (s *TimesheetService) transition(ctx context.Context, sub policy.Subject, entry *models.TimesheetEntry, from models.EntryStatus, changes map[string]interface{}) (*models.TimesheetEntry, error) {
	before := entrySnapshot(entry)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Timesheet.Transition(ctx, entry, from, changes); err != nil {
			return staleOr(err)
		}
		after, err := tx.Timesheet.FindByID(ctx, entry.ID)
		if err != nil {
			return fmt.Errorf("failed to reload entry: %w", err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionUpdate,
			Entity:   models.AuditEntityTimesheet,
			EntityID: entry.ID,
			Before:   before,
			After:    entrySnapshot(after),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, entry)
	return s.load(ctx, entry.ID)
}

// validateEntry checks fields and references of an entry about to be written
func (s *TimesheetService) validateEntry(ctx context.Context, entry *models.TimesheetEntry) error {
	if entry.Duration <= 0 || entry.Duration > constants.MaxEntryDurationHours {
		return ErrInvalidDuration
	}
	if !entry.Type.Valid() {
		return ErrInvalidEntryType
	}
	if entry.Date.IsZero() {
		return validationError("La date est obligatoire")
	}

	if entry.ProjectID != nil {
		if _, err := s.repo.Project.FindByID(ctx, *entry.ProjectID); err != nil {
			if isNotFound(err) {
				return ErrProjectNotFound
			}
			return fmt.Errorf("failed to find project: %w", err)
		}
	}
	if entry.TaskID != nil {
		task, err := s.repo.Task.FindByID(ctx, *entry.TaskID)
		if err != nil {
			if isNotFound(err) {
				return ErrTaskNotFound
			}
			return fmt.Errorf("failed to find task: %w", err)
		}
		if entry.ProjectID != nil && (task.ProjectID == nil || *task.ProjectID != *entry.ProjectID) {
			return ErrTaskProjectMismatch
		}
	}
	return nil
}

func (s *TimesheetService) invalidate(ctx context.Context, entry *models.TimesheetEntry) {
	invalidate(ctx, s.cache, s.log,
		constants.CacheTagTimesheets,
		cache.UserTimesheetsTag(entry.UserID),
		constants.CacheTagAuditLogs,
	)
}

func (s *TimesheetService) find(ctx context.Context, id uint64) (*models.TimesheetEntry, error) {
	entry, err := s.repo.Timesheet.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find entry: %w", err)
	}
	return entry, nil
}

func (s *TimesheetService) load(ctx context.Context, id uint64) (*models.TimesheetEntry, error) {
	entry, err := s.repo.Timesheet.FindByID(ctx, id, "User", "Project", "Task")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrEntryNotFound
		}
		return nil, fmt.Errorf("failed to find entry: %w", err)
	}
	return entry, nil
}

func entryResource(entry *models.TimesheetEntry) policy.Resource {
	return policy.Resource{Kind: policy.KindTimesheetEntry, OwnerID: entry.UserID}
}

func entrySnapshot(entry *models.TimesheetEntry) map[string]interface{} {
	return map[string]interface{}{
		"status":             entry.Status,
		"project_id":         entry.ProjectID,
		"task_id":            entry.TaskID,
		"date":               entry.Date,
		"duration":           entry.Duration,
		"type":               entry.Type,
		"description":        entry.Description,
		"validator_id":       entry.ValidatorID,
		"validation_comment": entry.ValidationComment,
		"validated_at":       entry.ValidatedAt,
		"version":            entry.Version,
	}
}
