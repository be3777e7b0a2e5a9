package repository

import (
	"context"

	"github.com/yukikurage/field-report-api/internal/models"
	"gorm.io/gorm"
)

// GormTaskHistoryRepository is a GORM implementation of TaskHistoryRepository
type GormTaskHistoryRepository struct {
	db *gorm.DB
}

// NewTaskHistoryRepository creates a new TaskHistoryRepository
func NewTaskHistoryRepository(db *gorm.DB) TaskHistoryRepository {
	return &GormTaskHistoryRepository{db: db}
}

// Append inserts a history entry
func (r *GormTaskHistoryRepository) Append(ctx context.Context, entry *models.TaskHistory) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// ListByTask returns a task's history, most recent first. The ID breaks
// timestamp ties so entries written in the same instant keep append order.
func (r *GormTaskHistoryRepository) ListByTask(ctx context.Context, tenantID, taskID uint64) ([]models.TaskHistory, error) {
	var entries []models.TaskHistory
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND task_id = ?", tenantID, taskID).
		Order("timestamp DESC, id DESC").
		Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}
