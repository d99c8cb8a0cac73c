package repository

import (
	"context"

	"github.com/yukikurage/timesheet-api/internal/database"
	"github.com/yukikurage/timesheet-api/internal/models"
	"gorm.io/gorm"
)

// GormTimesheetEntryRepository is a GORM implementation of TimesheetEntryRepository
type GormTimesheetEntryRepository struct {
	db *gorm.DB
}

// NewTimesheetEntryRepository creates a new TimesheetEntryRepository
func NewTimesheetEntryRepository(db *gorm.DB) TimesheetEntryRepository {
	return &GormTimesheetEntryRepository{db: db}
}

// Create creates a new entry
func (r *GormTimesheetEntryRepository) Create(ctx context.Context, entry *models.TimesheetEntry) error {
	return r.db.WithContext(ctx).Omit("User", "Project", "Task").Create(entry).Error
}

// FindByID finds an entry by ID with optional preloading
func (r *GormTimesheetEntryRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.TimesheetEntry, error) {
	var entry models.TimesheetEntry
	query := r.db.WithContext(ctx)
	for _, p := range preload {
		query = query.Preload(p)
	}
	if err := query.First(&entry, id).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

// List retrieves entries with filtering and pagination, newest day first
func (r *GormTimesheetEntryRepository) List(ctx context.Context, filter EntryFilter) ([]models.TimesheetEntry, int64, error) {
	var entries []models.TimesheetEntry

	query := r.db.WithContext(ctx).Model(&models.TimesheetEntry{})

	if filter.UserID != nil {
		query = query.Where("timesheet_entries.user_id = ?", *filter.UserID)
	}
	if filter.ProjectID != nil {
		query = query.Where("timesheet_entries.project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("timesheet_entries.status = ?", *filter.Status)
	}
	if filter.DateFrom != nil {
		query = query.Where("timesheet_entries.date >= ?", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		query = query.Where("timesheet_entries.date <= ?", *filter.DateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("timesheet_entries.date DESC, timesheet_entries.id DESC").Scopes(database.Paginate(filter.Page, filter.PageSize))
	if err := listQuery.Preload("User").Preload("Project").Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}

// Update saves the editable fields of an entry guarded by its version
func (r *GormTimesheetEntryRepository) Update(ctx context.Context, entry *models.TimesheetEntry) error {
	oldVersion := entry.Version
	result := r.db.WithContext(ctx).
		Model(&models.TimesheetEntry{}).
		Where("id = ? AND version = ?", entry.ID, oldVersion).
		Updates(map[string]interface{}{
			"project_id":  entry.ProjectID,
			"task_id":     entry.TaskID,
			"date":        entry.Date,
			"duration":    entry.Duration,
			"type":        entry.Type,
			"description": entry.Description,
			"version":     oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleRecord
	}
	entry.Version = oldVersion + 1
	return nil
}

// Delete soft deletes an entry
func (r *GormTimesheetEntryRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.TimesheetEntry{}, id).Error
}

// Transition applies changes when the row still holds the loaded version and
// the expected status
func (r *GormTimesheetEntryRepository) Transition(ctx context.Context, entry *models.TimesheetEntry, from models.EntryStatus, changes map[string]interface{}) error {
	oldVersion := entry.Version
	changes["version"] = oldVersion + 1

	result := r.db.WithContext(ctx).
		Model(&models.TimesheetEntry{}).
		Where("id = ? AND version = ? AND status = ?", entry.ID, oldVersion, from).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleRecord
	}
	entry.Version = oldVersion + 1
	return nil
}
