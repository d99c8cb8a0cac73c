package services

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/yukikurage/timesheet-api/internal/models"
	"github.com/yukikurage/timesheet-api/internal/policy"
	"github.com/yukikurage/timesheet-api/internal/repository"
)

// AuditEntry describes one state-changing action.
type AuditEntry struct {
	UserID   uint64
	Action   models.AuditAction
	Entity   models.AuditEntity
	EntityID uint64
	Before   interface{}
	After    interface{}
}

// AuditService appends audit log rows. Record is used inside the business
// transaction; RecordBestEffort after mutations whose audit row is not
// required to commit with them.
type AuditService struct {
	repo   *repository.Repository
	policy *policy.Resolver
	log    *zap.Logger
}

func NewAuditService(repo *repository.Repository, resolver *policy.Resolver, log *zap.Logger) *AuditService {
	return &AuditService{repo: repo, policy: resolver, log: log}
}

// Record writes the entry through tx. An error must abort the transaction.
func (s *AuditService) Record(ctx context.Context, tx *repository.Repository, entry AuditEntry) error {
	row, err := buildAuditLog(entry)
	if err != nil {
		return err
	}
	if err := tx.AuditLog.Create(ctx, row); err != nil {
		return fmt.Errorf("write audit log: %w", err)
	}
	return nil
}

// RecordBestEffort writes the entry outside any transaction and only logs a
// failure.
func (s *AuditService) RecordBestEffort(ctx context.Context, entry AuditEntry) {
	row, err := buildAuditLog(entry)
	if err == nil {
		err = s.repo.AuditLog.Create(ctx, row)
	}
	if err != nil {
		s.log.Warn("Failed to write audit log",
			zap.String("entity", string(entry.Entity)),
			zap.Uint64("entity_id", entry.EntityID),
			zap.String("action", string(entry.Action)),
			zap.Error(err),
		)
	}
}

// ListAuditLogsInput filters the audit log
type ListAuditLogsInput struct {
	UserID   *uint64
	Entity   *models.AuditEntity
	EntityID *uint64
	Action   *models.AuditAction
	Page     int
	PageSize int
}

// List returns audit rows, newest first. HR and ADMIN only.
func (s *AuditService) List(ctx context.Context, sub policy.Subject, input ListAuditLogsInput) ([]models.AuditLog, int64, error) {
	if err := s.policy.Authorize(sub, policy.ActionRead, policy.Resource{Kind: policy.KindAuditLog}); err != nil {
		return nil, 0, err
	}

	logs, total, err := s.repo.AuditLog.List(ctx, repository.AuditLogFilter{
		UserID:   input.UserID,
		Entity:   input.Entity,
		EntityID: input.EntityID,
		Action:   input.Action,
		Page:     input.Page,
		PageSize: input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return logs, total, nil
}

// History returns every audit row of one record.
func (s *AuditService) History(ctx context.Context, sub policy.Subject, entity models.AuditEntity, entityID uint64, page, pageSize int) ([]models.AuditLog, int64, error) {
	return s.List(ctx, sub, ListAuditLogsInput{
		Entity:   &entity,
		EntityID: &entityID,
		Page:     page,
		PageSize: pageSize,
	})
}

// Trail returns the newest audit rows of one record without a permission
// check. Operator tools only.
func (s *AuditService) Trail(ctx context.Context, entity models.AuditEntity, entityID uint64, limit int) ([]models.AuditLog, int64, error) {
	return s.repo.AuditLog.List(ctx, repository.AuditLogFilter{
		Entity:   &entity,
		EntityID: &entityID,
		Page:     1,
		PageSize: limit,
	})
}

func buildAuditLog(entry AuditEntry) (*models.AuditLog, error) {
	changes, err := json.Marshal(map[string]interface{}{
		"before": entry.Before,
		"after":  entry.After,
	})
	if err != nil {
		return nil, fmt.Errorf("encode audit changes: %w", err)
	}
	return &models.AuditLog{
		UserID:   entry.UserID,
		Action:   entry.Action,
		Entity:   entry.Entity,
		EntityID: entry.EntityID,
		Changes:  datatypes.JSON(changes),
	}, nil
}

// ParseAuditEntity accepts the entity names used in URLs
func ParseAuditEntity(s string) (models.AuditEntity, bool) {
	switch e := models.AuditEntity(s); e {
	case models.AuditEntityTimesheet, models.AuditEntityHRTimesheet, models.AuditEntityHRActivity,
		models.AuditEntityProject, models.AuditEntityTask, models.AuditEntityUser:
		return e, true
	}
	return "", false
}
