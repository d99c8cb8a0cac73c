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
	ErrCommentRequired      = validationError("Un commentaire est obligatoire pour un rejet")
	ErrInvalidApprovalInput = validationError("L'action doit être approve ou reject")
	ErrInvalidWeek          = validationError("La fin de semaine ne peut pas précéder le début")
	ErrNoActivities         = validationError("Ajoutez au moins une activité avant de soumettre")
	ErrHRNotEditable        = conflictError("Seule une feuille en brouillon ou rejetée peut être modifiée")
	ErrHRNotSubmittable     = conflictError("Seule une feuille en brouillon ou rejetée peut être soumise")
	ErrHRNotPending         = conflictError("La feuille de temps n'est pas en attente de validation manager")
	ErrHRNotManagerApproved = conflictError("La feuille de temps n'est pas en attente de validation RH")
	ErrHRDeleteNotDraft     = conflictError("Seule une feuille en brouillon peut être supprimée")
)

// ApprovalAction is the decision of a validator.
type ApprovalAction string

const (
	ApprovalApprove ApprovalAction = "approve"
	ApprovalReject  ApprovalAction = "reject"
)

// ApprovalInput is the body of both approval stages.
type ApprovalInput struct {
	Action   ApprovalAction
	Comments string
}

// Validate runs before anything is loaded: a rejection without comment
// never reaches the database.
func (in ApprovalInput) Validate() error {
	switch in.Action {
	case ApprovalApprove:
		return nil
	case ApprovalReject:
		if blank(in.Comments) {
			return ErrCommentRequired
		}
		return nil
	}
	return ErrInvalidApprovalInput
}

// ActivityInput describes one HR activity.
type ActivityInput struct {
	ActivityType models.HRActivityType
	ActivityName string
	Periodicity  models.Periodicity
	StartDate    time.Time
	EndDate      time.Time
	TotalHours   float64
	Status       models.HRActivityStatus
}

func (in *ActivityInput) validate() error {
	in.ActivityName = strings.TrimSpace(in.ActivityName)
	if !in.ActivityType.Valid() {
		return validationError("Type d'activité invalide")
	}
	if in.ActivityName == "" {
		return validationError("Le nom de l'activité est obligatoire")
	}
	if !in.Periodicity.Valid() {
		return validationError("Périodicité invalide")
	}
	if in.StartDate.IsZero() || in.EndDate.IsZero() {
		return validationError("Les dates de l'activité sont obligatoires")
	}
	if in.EndDate.Before(in.StartDate) {
		return validationError("La date de fin ne peut pas précéder la date de début")
	}
	if in.TotalHours < 0 {
		return validationError("Le nombre d'heures ne peut pas être négatif")
	}
	if in.TotalHours > constants.MaxActivityHours {
		return validationError(fmt.Sprintf("Une activité ne peut pas dépasser %g heures", constants.MaxActivityHours))
	}
	switch in.Status {
	case "":
		in.Status = models.HRActivityInProgress
	case models.HRActivityInProgress, models.HRActivityCompleted:
	default:
		return validationError("Statut d'activité invalide")
	}
	return nil
}

func (in ActivityInput) apply(a *models.HRActivity) {
	a.ActivityType = in.ActivityType
	a.ActivityName = in.ActivityName
	a.Periodicity = in.Periodicity
	a.StartDate = in.StartDate
	a.EndDate = in.EndDate
	a.TotalHours = in.TotalHours
	a.Status = in.Status
}

// CreateHRTimesheetInput creates a weekly HR timesheet. Header fields left
// nil are taken from the user's profile.
type CreateHRTimesheetInput struct {
	WeekStartDate        time.Time
	WeekEndDate          time.Time
	EmployeeName         *string
	Position             *string
	Site                 *string
	EmployeeObservations string
	Activities           []ActivityInput
}

// UpdateHRTimesheetInput changes header fields. Nil fields are kept.
type UpdateHRTimesheetInput struct {
	WeekStartDate        *time.Time
	WeekEndDate          *time.Time
	EmployeeName         *string
	Position             *string
	Site                 *string
	EmployeeObservations *string
}

// ListHRTimesheetsInput filters the HR timesheet list
type ListHRTimesheetsInput struct {
	UserID   *uint64
	Status   *models.HRTimesheetStatus
	WeekFrom *time.Time
	WeekTo   *time.Time
	Page     int
	PageSize int
}

// HRTimesheetService runs the two-stage approval of weekly HR timesheets:
// DRAFT -> PENDING -> MANAGER_APPROVED -> APPROVED, with REJECTED reachable
// from both validation stages and resubmittable to PENDING by the owner.
//
// Every transition is a conditional update on (id, version, status) written
// in one transaction with its audit row. Cache invalidation and
// notifications follow the commit and never fail the action.
type HRTimesheetService struct {
	repo     *repository.Repository
	policy   *policy.Resolver
	audit    *AuditService
	notifier *Notifier
	cache    cache.Invalidator
	log      *zap.Logger
	now      func() time.Time
}

func NewHRTimesheetService(
	repo *repository.Repository,
	resolver *policy.Resolver,
	audit *AuditService,
	notifier *Notifier,
	inv cache.Invalidator,
	log *zap.Logger,
) *HRTimesheetService {
	return &HRTimesheetService{
		repo:     repo,
		policy:   resolver,
		audit:    audit,
		notifier: notifier,
		cache:    inv,
		log:      log,
		now:      time.Now,
	}
}

// Create creates a DRAFT timesheet owned by the caller.
func (s *HRTimesheetService) Create(ctx context.Context, sub policy.Subject, input CreateHRTimesheetInput) (*models.HRTimesheet, error) {
	if err := s.policy.Authorize(sub, policy.ActionCreate, policy.Resource{Kind: policy.KindHRTimesheet}); err != nil {
		return nil, err
	}
	if input.WeekStartDate.IsZero() || input.WeekEndDate.IsZero() {
		return nil, validationError("Les dates de la semaine sont obligatoires")
	}
	if input.WeekEndDate.Before(input.WeekStartDate) {
		return nil, ErrInvalidWeek
	}

	user, err := s.repo.User.FindByID(ctx, sub.UserID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	ts := &models.HRTimesheet{
		UserID:               sub.UserID,
		WeekStartDate:        input.WeekStartDate,
		WeekEndDate:          input.WeekEndDate,
		EmployeeName:         stringOr(input.EmployeeName, user.DisplayName()),
		Position:             stringOr(input.Position, user.Position),
		Site:                 stringOr(input.Site, user.Site),
		EmployeeObservations: input.EmployeeObservations,
		Status:               models.HRStatusDraft,
		Version:              1,
	}
	if blank(ts.EmployeeName) {
		return nil, validationError("Le nom de l'employé est obligatoire")
	}

	for i := range input.Activities {
		if err := input.Activities[i].validate(); err != nil {
			return nil, err
		}
		var activity models.HRActivity
		input.Activities[i].apply(&activity)
		ts.Activities = append(ts.Activities, activity)
		ts.TotalHours += activity.TotalHours
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.HRTimesheet.Create(ctx, ts); err != nil {
			return fmt.Errorf("failed to create HR timesheet: %w", err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionCreate,
			Entity:   models.AuditEntityHRTimesheet,
			EntityID: ts.ID,
			After:    hrSnapshot(ts),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ts)
	return s.load(ctx, ts.ID)
}

// Get returns a timesheet with its activities.
func (s *HRTimesheetService) Get(ctx context.Context, sub policy.Subject, id uint64) (*models.HRTimesheet, error) {
	ts, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionRead, hrResource(ts)); err != nil {
		return nil, err
	}
	return ts, nil
}

// List returns the caller's timesheets, or any user's for validators.
func (s *HRTimesheetService) List(ctx context.Context, sub policy.Subject, input ListHRTimesheetsInput) ([]models.HRTimesheet, int64, error) {
	filter := repository.HRTimesheetFilter{
		UserID:   input.UserID,
		Status:   input.Status,
		WeekFrom: input.WeekFrom,
		WeekTo:   input.WeekTo,
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if !s.policy.Can(sub, policy.ActionListAll, policy.Resource{Kind: policy.KindHRTimesheet}) {
		if input.UserID != nil && *input.UserID != sub.UserID {
			return nil, 0, policy.Deny(policy.ActionListAll, policy.KindHRTimesheet)
		}
		filter.UserID = &sub.UserID
	}

	timesheets, total, err := s.repo.HRTimesheet.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list HR timesheets: %w", err)
	}
	return timesheets, total, nil
}

// Update changes header fields while the timesheet is DRAFT or REJECTED.
func (s *HRTimesheetService) Update(ctx context.Context, sub policy.Subject, id uint64, input UpdateHRTimesheetInput) (*models.HRTimesheet, error) {
	ts, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionUpdate, hrResource(ts)); err != nil {
		return nil, err
	}
	if !ts.Status.Editable() {
		return nil, ErrHRNotEditable
	}

	before := hrSnapshot(ts)
	if input.WeekStartDate != nil {
		ts.WeekStartDate = *input.WeekStartDate
	}
	if input.WeekEndDate != nil {
		ts.WeekEndDate = *input.WeekEndDate
	}
	if ts.WeekEndDate.Before(ts.WeekStartDate) {
		return nil, ErrInvalidWeek
	}
	if input.EmployeeName != nil {
		if blank(*input.EmployeeName) {
			return nil, validationError("Le nom de l'employé est obligatoire")
		}
		ts.EmployeeName = strings.TrimSpace(*input.EmployeeName)
	}
	if input.Position != nil {
		ts.Position = *input.Position
	}
	if input.Site != nil {
		ts.Site = *input.Site
	}
	if input.EmployeeObservations != nil {
		ts.EmployeeObservations = *input.EmployeeObservations
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.HRTimesheet.UpdateHeader(ctx, ts); err != nil {
			return staleOr(err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionUpdate,
			Entity:   models.AuditEntityHRTimesheet,
			EntityID: ts.ID,
			Before:   before,
			After:    hrSnapshot(ts),
		})
	})
	if err != nil {
		return nil, err
	}

	s.invalidate(ctx, ts)
	return s.load(ctx, ts.ID)
}

// Delete removes a timesheet and its activities. The owner may only delete
// a DRAFT; ADMIN may delete at any stage.
func (s *HRTimesheetService) Delete(ctx context.Context, sub policy.Subject, id uint64) error {
	ts, err := s.find(ctx, id)
	if err != nil {
		return err
	}
	if err := s.policy.Authorize(sub, policy.ActionDelete, hrResource(ts)); err != nil {
		return err
	}
	if sub.Role != models.RoleAdmin && ts.Status != models.HRStatusDraft {
		return ErrHRDeleteNotDraft
	}

	err = s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.HRTimesheet.Delete(ctx, ts.ID); err != nil {
			return fmt.Errorf("failed to delete HR timesheet: %w", err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionDelete,
			Entity:   models.AuditEntityHRTimesheet,
			EntityID: ts.ID,
			Before:   hrSnapshot(ts),
		})
	})
	if err != nil {
		return err
	}

	s.invalidate(ctx, ts)
	return nil
}

// AddActivity adds an activity and recomputes the total in the same
// transaction.
func (s *HRTimesheetService) AddActivity(ctx context.Context, sub policy.Subject, timesheetID uint64, input ActivityInput) (*models.HRTimesheet, error) {
	ts, err := s.editableForActivity(ctx, sub, timesheetID, policy.ActionCreate)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	activity := &models.HRActivity{HRTimesheetID: ts.ID}
	input.apply(activity)

	err = s.mutateActivities(ctx, ts, func(tx *repository.Repository) (AuditEntry, error) {
		if err := tx.HRTimesheet.CreateActivity(ctx, activity); err != nil {
			return AuditEntry{}, fmt.Errorf("failed to create activity: %w", err)
		}
		return AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionCreate,
			Entity:   models.AuditEntityHRActivity,
			EntityID: activity.ID,
			After:    activity,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ts.ID)
}

// UpdateActivity replaces an activity and recomputes the total.
func (s *HRTimesheetService) UpdateActivity(ctx context.Context, sub policy.Subject, timesheetID, activityID uint64, input ActivityInput) (*models.HRTimesheet, error) {
	ts, err := s.editableForActivity(ctx, sub, timesheetID, policy.ActionUpdate)
	if err != nil {
		return nil, err
	}
	if err := input.validate(); err != nil {
		return nil, err
	}

	activity, err := s.repo.HRTimesheet.FindActivity(ctx, ts.ID, activityID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to find activity: %w", err)
	}
	before := *activity
	input.apply(activity)

	err = s.mutateActivities(ctx, ts, func(tx *repository.Repository) (AuditEntry, error) {
		if err := tx.HRTimesheet.UpdateActivity(ctx, activity); err != nil {
			return AuditEntry{}, fmt.Errorf("failed to update activity: %w", err)
		}
		return AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionUpdate,
			Entity:   models.AuditEntityHRActivity,
			EntityID: activity.ID,
			Before:   before,
			After:    activity,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ts.ID)
}

// DeleteActivity removes an activity and recomputes the total.
func (s *HRTimesheetService) DeleteActivity(ctx context.Context, sub policy.Subject, timesheetID, activityID uint64) (*models.HRTimesheet, error) {
	ts, err := s.editableForActivity(ctx, sub, timesheetID, policy.ActionDelete)
	if err != nil {
		return nil, err
	}

	activity, err := s.repo.HRTimesheet.FindActivity(ctx, ts.ID, activityID)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrActivityNotFound
		}
		return nil, fmt.Errorf("failed to find activity: %w", err)
	}

	err = s.mutateActivities(ctx, ts, func(tx *repository.Repository) (AuditEntry, error) {
		if err := tx.HRTimesheet.DeleteActivity(ctx, ts.ID, activity.ID); err != nil {
			if isNotFound(err) {
				return AuditEntry{}, ErrActivityNotFound
			}
			return AuditEntry{}, fmt.Errorf("failed to delete activity: %w", err)
		}
		return AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionDelete,
			Entity:   models.AuditEntityHRActivity,
			EntityID: activity.ID,
			Before:   activity,
		}, nil
	})
	if err != nil {
		return nil, err
	}
	return s.load(ctx, ts.ID)
}

// Submit moves DRAFT or REJECTED to PENDING. Resubmission starts a new
// approval cycle: the previous signatures and validator comments are
// cleared.
func (s *HRTimesheetService) Submit(ctx context.Context, sub policy.Subject, id uint64) (*models.HRTimesheet, error) {
	ts, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionSubmit, hrResource(ts)); err != nil {
		return nil, err
	}
	if !ts.Status.Editable() {
		return nil, ErrHRNotSubmittable
	}

	count, err := s.repo.HRTimesheet.CountActivities(ctx, ts.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to count activities: %w", err)
	}
	if count == 0 {
		return nil, ErrNoActivities
	}

	now := s.now()
	updated, err := s.transition(ctx, sub, ts, ts.Status, map[string]interface{}{
		"status":             models.HRStatusPending,
		"employee_signed_at": now,
		"manager_signed_at":  nil,
		"manager_signer_id":  nil,
		"manager_comments":   "",
		"odillon_signed_at":  nil,
		"odillon_signer_id":  nil,
		"odillon_comments":   "",
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyRoles(ctx, []models.Role{models.RoleManager, models.RoleHR, models.RoleAdmin}, sub.UserID, Message{
		Type:    models.NotificationHRSubmitted,
		Title:   "Feuille de temps RH soumise",
		Message: fmt.Sprintf("%s a soumis sa feuille de temps de la semaine du %s", updated.EmployeeName, updated.WeekStartDate.Format("02/01/2006")),
		Link:    hrLink(updated.ID),
	})
	return updated, nil
}

// ManagerApprove decides the first validation stage: PENDING becomes
// MANAGER_APPROVED or REJECTED.
func (s *HRTimesheetService) ManagerApprove(ctx context.Context, sub policy.Subject, id uint64, input ApprovalInput) (*models.HRTimesheet, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ts, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionManagerApprove, hrResource(ts)); err != nil {
		return nil, err
	}
	if ts.Status != models.HRStatusPending {
		return nil, ErrHRNotPending
	}

	next := models.HRStatusManagerApproved
	if input.Action == ApprovalReject {
		next = models.HRStatusRejected
	}

	updated, err := s.transition(ctx, sub, ts, models.HRStatusPending, map[string]interface{}{
		"status":            next,
		"manager_signed_at": s.now(),
		"manager_signer_id": sub.UserID,
		"manager_comments":  strings.TrimSpace(input.Comments),
	})
	if err != nil {
		return nil, err
	}

	if next == models.HRStatusManagerApproved {
		s.notifier.NotifyRoles(ctx, []models.Role{models.RoleHR, models.RoleAdmin}, sub.UserID, Message{
			Type:    models.NotificationHRManagerApproved,
			Title:   "Feuille de temps RH à valider",
			Message: fmt.Sprintf("La feuille de temps de %s a été validée par le manager", updated.EmployeeName),
			Link:    hrLink(updated.ID),
		})
	} else {
		s.notifyOwnerRejected(ctx, updated, updated.ManagerComments)
	}
	return updated, nil
}

// OdillonApprove decides the final HR validation stage: MANAGER_APPROVED
// becomes APPROVED or REJECTED.
func (s *HRTimesheetService) OdillonApprove(ctx context.Context, sub policy.Subject, id uint64, input ApprovalInput) (*models.HRTimesheet, error) {
	if err := input.Validate(); err != nil {
		return nil, err
	}

	ts, err := s.find(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, policy.ActionOdillonApprove, hrResource(ts)); err != nil {
		return nil, err
	}
	if ts.Status != models.HRStatusManagerApproved {
		return nil, ErrHRNotManagerApproved
	}

	next := models.HRStatusApproved
	if input.Action == ApprovalReject {
		next = models.HRStatusRejected
	}

	updated, err := s.transition(ctx, sub, ts, models.HRStatusManagerApproved, map[string]interface{}{
		"status":            next,
		"odillon_signed_at": s.now(),
		"odillon_signer_id": sub.UserID,
		"odillon_comments":  strings.TrimSpace(input.Comments),
	})
	if err != nil {
		return nil, err
	}

	if next == models.HRStatusApproved {
		s.notifier.Notify(ctx, []uint64{updated.UserID}, Message{
			Type:    models.NotificationHRApproved,
			Title:   "Feuille de temps RH approuvée",
			Message: fmt.Sprintf("Votre feuille de temps de la semaine du %s a été approuvée", updated.WeekStartDate.Format("02/01/2006")),
			Link:    hrLink(updated.ID),
		})
	} else {
		s.notifyOwnerRejected(ctx, updated, updated.OdillonComments)
	}
	return updated, nil
}

// transition applies changes guarded by version and `from`, with the audit
// row in the same transaction, then returns the reloaded aggregate.
func (s *HRTimesheetService) transition(ctx context.Context, sub policy.Subject, ts *models.HRTimesheet, from models.HRTimesheetStatus, changes map[string]interface{}) (*models.HRTimesheet, error) {
	before := hrSnapshot(ts)

	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.HRTimesheet.Transition(ctx, ts, from, changes); err != nil {
			return staleOr(err)
		}
		after, err := tx.HRTimesheet.FindByID(ctx, ts.ID)
		if err != nil {
			return fmt.Errorf("failed to reload HR timesheet: %w", err)
		}
		return s.audit.Record(ctx, tx, AuditEntry{
			UserID:   sub.UserID,
			Action:   models.AuditActionUpdate,
			Entity:   models.AuditEntityHRTimesheet,
			EntityID: ts.ID,
			Before:   before,
			After:    hrSnapshot(after),
		})
	})
	if err != nil {
		return nil, err
	}

	s.log.Info("HR timesheet transition",
		zap.Uint64("hr_timesheet_id", ts.ID),
		zap.Uint64("actor_id", sub.UserID),
		zap.String("from", string(from)),
		zap.Any("to", changes["status"]),
	)
	s.invalidate(ctx, ts)
	return s.load(ctx, ts.ID)
}

// mutateActivities runs one activity mutation with the parent claim, the
// total recomputation and the audit row in a single transaction.
func (s *HRTimesheetService) mutateActivities(ctx context.Context, ts *models.HRTimesheet, fn func(tx *repository.Repository) (AuditEntry, error)) error {
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		// Fails if the parent was submitted or changed since it was loaded
		if err := tx.HRTimesheet.Transition(ctx, ts, ts.Status, map[string]interface{}{}); err != nil {
			return staleOr(err)
		}
		entry, err := fn(tx)
		if err != nil {
			return err
		}
		if _, err := tx.HRTimesheet.RecalculateTotal(ctx, ts.ID); err != nil {
			return fmt.Errorf("failed to recalculate total: %w", err)
		}
		return s.audit.Record(ctx, tx, entry)
	})
	if err != nil {
		return err
	}
	s.invalidate(ctx, ts)
	return nil
}

func (s *HRTimesheetService) editableForActivity(ctx context.Context, sub policy.Subject, timesheetID uint64, action policy.Action) (*models.HRTimesheet, error) {
	ts, err := s.find(ctx, timesheetID)
	if err != nil {
		return nil, err
	}
	if err := s.policy.Authorize(sub, action, policy.Resource{Kind: policy.KindHRActivity, OwnerID: ts.UserID}); err != nil {
		return nil, err
	}
	if !ts.Status.Editable() {
		return nil, ErrHRNotEditable
	}
	return ts, nil
}

func (s *HRTimesheetService) notifyOwnerRejected(ctx context.Context, ts *models.HRTimesheet, comments string) {
	s.notifier.Notify(ctx, []uint64{ts.UserID}, Message{
		Type:    models.NotificationHRRejected,
		Title:   "Feuille de temps RH rejetée",
		Message: comments,
		Link:    hrLink(ts.ID),
	})
}

func (s *HRTimesheetService) invalidate(ctx context.Context, ts *models.HRTimesheet) {
	invalidate(ctx, s.cache, s.log,
		constants.CacheTagHRTimesheets,
		cache.UserHRTimesheetsTag(ts.UserID),
		cache.HRTimesheetTag(ts.ID),
		constants.CacheTagAuditLogs,
	)
}

func (s *HRTimesheetService) find(ctx context.Context, id uint64) (*models.HRTimesheet, error) {
	ts, err := s.repo.HRTimesheet.FindByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrHRTimesheetNotFound
		}
		return nil, fmt.Errorf("failed to find HR timesheet: %w", err)
	}
	return ts, nil
}

func (s *HRTimesheetService) load(ctx context.Context, id uint64) (*models.HRTimesheet, error) {
	ts, err := s.repo.HRTimesheet.FindByID(ctx, id, "User", "Activities")
	if err != nil {
		if isNotFound(err) {
			return nil, ErrHRTimesheetNotFound
		}
		return nil, fmt.Errorf("failed to find HR timesheet: %w", err)
	}
	return ts, nil
}

func hrResource(ts *models.HRTimesheet) policy.Resource {
	return policy.Resource{Kind: policy.KindHRTimesheet, OwnerID: ts.UserID}
}

func hrLink(id uint64) string {
	return fmt.Sprintf("/hr-timesheets/%d", id)
}

// hrSnapshot is the audited state of a timesheet
func hrSnapshot(ts *models.HRTimesheet) map[string]interface{} {
	return map[string]interface{}{
		"status":                ts.Status,
		"week_start_date":       ts.WeekStartDate,
		"week_end_date":         ts.WeekEndDate,
		"employee_name":         ts.EmployeeName,
		"position":              ts.Position,
		"site":                  ts.Site,
		"total_hours":           ts.TotalHours,
		"employee_observations": ts.EmployeeObservations,
		"manager_comments":      ts.ManagerComments,
		"odillon_comments":      ts.OdillonComments,
		"employee_signed_at":    ts.EmployeeSignedAt,
		"manager_signed_at":     ts.ManagerSignedAt,
		"manager_signer_id":     ts.ManagerSignerID,
		"odillon_signed_at":     ts.OdillonSignedAt,
		"odillon_signer_id":     ts.OdillonSignerID,
		"version":               ts.Version,
	}
}

func stringOr(v *string, fallback string) string {
	if v != nil {
		return strings.TrimSpace(*v)
	}
	return fallback
}
