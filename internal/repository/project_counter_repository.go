package repository

import (
	"context"

	"github.com/yukikurage/field-report-api/internal/models"
	"gorm.io/gorm"
)

// GormProjectCounterRepository is a GORM implementation of ProjectCounterRepository
type GormProjectCounterRepository struct {
	db *gorm.DB
}

// NewProjectCounterRepository creates a new ProjectCounterRepository
func NewProjectCounterRepository(db *gorm.DB) ProjectCounterRepository {
	return &GormProjectCounterRepository{db: db}
}

// Available reports whether the project_counters table exists
func (r *GormProjectCounterRepository) Available(ctx context.Context) bool {
	return r.db.WithContext(ctx).Migrator().HasTable(&models.ProjectCounter{})
}

// Get reads the counter row for a tenant and year
func (r *GormProjectCounterRepository) Get(ctx context.Context, tenantID uint64, year int) (*models.ProjectCounter, error) {
	var counter models.ProjectCounter
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND year = ?", tenantID, year).
		First(&counter).Error; err != nil {
		return nil, err
	}
	return &counter, nil
}

// Insert creates the counter row
func (r *GormProjectCounterRepository) Insert(ctx context.Context, counter *models.ProjectCounter) error {
	return r.db.WithContext(ctx).Create(counter).Error
}

// CompareAndIncrement is a single conditional UPDATE, so exactly one of any
// number of concurrent callers holding the same expected value wins.
func (r *GormProjectCounterRepository) CompareAndIncrement(ctx context.Context, tenantID uint64, year int, expected int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProjectCounter{}).
		Where("tenant_id = ? AND year = ? AND next_seq = ?", tenantID, year, expected).
		Update("next_seq", gorm.Expr("next_seq + 1"))
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}

// RaiseTo never lowers the counter, so racing callers cannot undo each other.
func (r *GormProjectCounterRepository) RaiseTo(ctx context.Context, tenantID uint64, year int, next int64) (bool, error) {
	result := r.db.WithContext(ctx).
		Model(&models.ProjectCounter{}).
		Where("tenant_id = ? AND year = ? AND next_seq < ?", tenantID, year, next).
		Update("next_seq", next)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected == 1, nil
}
