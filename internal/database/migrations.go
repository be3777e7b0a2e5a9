package database

import (
	"fmt"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// AddIndexes adds composite indexes the model tags do not express.
func AddIndexes(db *gorm.DB, log *zap.Logger) error {
	indexes := []struct {
		table   string
		name    string
		columns string
	}{
		// Task list filters
		{"tasks", "idx_tasks_tenant_status", "tenant_id, status"},
		{"tasks", "idx_tasks_tenant_technician", "tenant_id, assigned_technician_id"},

		// History is always read per task, newest first
		{"task_history", "idx_task_history_task_timestamp", "task_id, timestamp"},

		// Inbox and unread badge
		{"notifications", "idx_notifications_user_read", "user_id, is_read"},

		// Fallback project number scan
		{"projects", "idx_projects_tenant_created", "tenant_id, created_at"},
	}

	migrator := db.Migrator()
	for _, idx := range indexes {
		if migrator.HasIndex(idx.table, idx.name) {
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
