package repository

import (
	"context"

	"github.com/yukikurage/timesheet-api/internal/database"
	"github.com/yukikurage/timesheet-api/internal/models"
	"gorm.io/gorm"
)

// GormHRTimesheetRepository is a GORM implementation of HRTimesheetRepository
type GormHRTimesheetRepository struct {
	db *gorm.DB
}

// NewHRTimesheetRepository creates a new HRTimesheetRepository
func NewHRTimesheetRepository(db *gorm.DB) HRTimesheetRepository {
	return &GormHRTimesheetRepository{db: db}
}

// Create creates a timesheet together with any activities it carries
func (r *GormHRTimesheetRepository) Create(ctx context.Context, ts *models.HRTimesheet) error {
	return r.db.WithContext(ctx).Omit("User").Create(ts).Error
}

// FindByID finds a timesheet by ID with optional preloading
func (r *GormHRTimesheetRepository) FindByID(ctx context.Context, id uint64, preload ...string) (*models.HRTimesheet, error) {
	var ts models.HRTimesheet
	query := r.db.WithContext(ctx)
	for _, p := range preload {
		if p == "Activities" {
			query = query.Preload("Activities", func(db *gorm.DB) *gorm.DB {
				return db.Order("hr_activities.start_date ASC, hr_activities.id ASC")
			})
			continue
		}
		query = query.Preload(p)
	}
	if err := query.First(&ts, id).Error; err != nil {
		return nil, err
	}
	return &ts, nil
}

// List retrieves timesheets with filtering and pagination, latest week first
func (r *GormHRTimesheetRepository) List(ctx context.Context, filter HRTimesheetFilter) ([]models.HRTimesheet, int64, error) {
	var timesheets []models.HRTimesheet

	query := r.db.WithContext(ctx).Model(&models.HRTimesheet{})

	if filter.UserID != nil {
		query = query.Where("hr_timesheets.user_id = ?", *filter.UserID)
	}
	if filter.Status != nil {
		query = query.Where("hr_timesheets.status = ?", *filter.Status)
	}
	if filter.WeekFrom != nil {
		query = query.Where("hr_timesheets.week_start_date >= ?", *filter.WeekFrom)
	}
	if filter.WeekTo != nil {
		query = query.Where("hr_timesheets.week_start_date <= ?", *filter.WeekTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("hr_timesheets.week_start_date DESC, hr_timesheets.id DESC").Scopes(database.Paginate(filter.Page, filter.PageSize))
	if err := listQuery.Preload("User").Find(&timesheets).Error; err != nil {
		return nil, 0, err
	}

	return timesheets, total, nil
}

// UpdateHeader saves header fields guarded by version
func (r *GormHRTimesheetRepository) UpdateHeader(ctx context.Context, ts *models.HRTimesheet) error {
	oldVersion := ts.Version
	result := r.db.WithContext(ctx).
		Model(&models.HRTimesheet{}).
		Where("id = ? AND version = ?", ts.ID, oldVersion).
		Updates(map[string]interface{}{
			"week_start_date":       ts.WeekStartDate,
			"week_end_date":         ts.WeekEndDate,
			"employee_name":         ts.EmployeeName,
			"position":              ts.Position,
			"site":                  ts.Site,
			"employee_observations": ts.EmployeeObservations,
			"version":               oldVersion + 1,
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleRecord
	}
	ts.Version = oldVersion + 1
	return nil
}

// Delete removes the timesheet and its activities
func (r *GormHRTimesheetRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("hr_timesheet_id = ?", id).Delete(&models.HRActivity{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.HRTimesheet{}, id).Error
	})
}

// Transition applies changes when the row still holds the loaded version and
// the expected status
func (r *GormHRTimesheetRepository) Transition(ctx context.Context, ts *models.HRTimesheet, from models.HRTimesheetStatus, changes map[string]interface{}) error {
	oldVersion := ts.Version
	changes["version"] = oldVersion + 1

	result := r.db.WithContext(ctx).
		Model(&models.HRTimesheet{}).
		Where("id = ? AND version = ? AND status = ?", ts.ID, oldVersion, from).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return ErrStaleRecord
	}
	ts.Version = oldVersion + 1
	return nil
}

// CreateActivity creates an activity row
func (r *GormHRTimesheetRepository) CreateActivity(ctx context.Context, activity *models.HRActivity) error {
	return r.db.WithContext(ctx).Create(activity).Error
}

// FindActivity finds an activity belonging to the given timesheet
func (r *GormHRTimesheetRepository) FindActivity(ctx context.Context, timesheetID, activityID uint64) (*models.HRActivity, error) {
	var activity models.HRActivity
	err := r.db.WithContext(ctx).
		Where("id = ? AND hr_timesheet_id = ?", activityID, timesheetID).
		First(&activity).Error
	if err != nil {
		return nil, err
	}
	return &activity, nil
}

// UpdateActivity updates an activity
func (r *GormHRTimesheetRepository) UpdateActivity(ctx context.Context, activity *models.HRActivity) error {
	return r.db.WithContext(ctx).Save(activity).Error
}

// DeleteActivity deletes an activity belonging to the given timesheet
func (r *GormHRTimesheetRepository) DeleteActivity(ctx context.Context, timesheetID, activityID uint64) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND hr_timesheet_id = ?", activityID, timesheetID).
		Delete(&models.HRActivity{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}
	return nil
}

// CountActivities counts the activities of a timesheet
func (r *GormHRTimesheetRepository) CountActivities(ctx context.Context, timesheetID uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.HRActivity{}).
		Where("hr_timesheet_id = ?", timesheetID).
		Count(&count).Error
	return count, err
}

// RecalculateTotal sets total_hours to the sum of the activities
func (r *GormHRTimesheetRepository) RecalculateTotal(ctx context.Context, timesheetID uint64) (float64, error) {
	var total float64
	err := r.db.WithContext(ctx).
		Model(&models.HRActivity{}).
		Where("hr_timesheet_id = ?", timesheetID).
		Select("COALESCE(SUM(total_hours), 0)").
		Scan(&total).Error
	if err != nil {
		return 0, err
	}

	err = r.db.WithContext(ctx).
		Model(&models.HRTimesheet{}).
		Where("id = ?", timesheetID).
		Updates(map[string]interface{}{
			"total_hours": total,
			"version":     gorm.Expr("version + 1"),
		}).Error
	if err != nil {
		return 0, err
	}
	return total, nil
}
