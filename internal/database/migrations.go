package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds the composite indexes the list and audit queries rely on.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Entry lists are filtered by owner and date range
		{"timesheet_entries", "idx_timesheet_entries_user_date", "user_id, date"},
		{"timesheet_entries", "idx_timesheet_entries_status_date", "status, date"},

		// HR timesheets by owner and week
		{"hr_timesheets", "idx_hr_timesheets_user_week", "user_id, week_start_date"},

		// Audit history of one record, newest first
		{"audit_logs", "idx_audit_logs_entity_created", "entity, entity_id, created_at"},

		{"project_members", "idx_project_members_user_id", "user_id"},
		{"task_members", "idx_task_members_user_id", "user_id"},
		{"tasks", "idx_tasks_due_date", "due_date"},
		{"notifications", "idx_notifications_user_read", "user_id, is_read"},
	}

	for _, idx := range indexes {
		if db.Migrator().HasIndex(idx.table, idx.name) {
			log.Debug("Index already exists, skipping", zap.String("index", idx.name))
			continue
		}

		sql := fmt.Sprintf("CREATE INDEX %s ON %s (%s)", idx.name, idx.table, idx.columns)
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("failed to create index %s: %w", idx.name, err)
		}

		log.Info("Created index", zap.String("index", idx.name), zap.String("table", idx.table))
	}

	return nil
}
