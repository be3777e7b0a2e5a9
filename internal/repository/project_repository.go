package repository

import (
	"context"

	"github.com/yukikurage/field-report-api/internal/database"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create inserts a project
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(project).Error
}

// FindByID finds a project of the tenant
func (r *GormProjectRepository) FindByID(ctx context.Context, tenantID, id uint64) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Scopes(database.ForTenant(tenantID)).
		First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// FindByName finds a project of the tenant by name
func (r *GormProjectRepository) FindByName(ctx context.Context, tenantID uint64, name string) (*models.Project, error) {
	var project models.Project
	if err := r.db.WithContext(ctx).
		Scopes(database.ForTenant(tenantID)).
		Where("name = ?", name).
		First(&project).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

// List lists the tenant's projects, newest first
func (r *GormProjectRepository) List(ctx context.Context, tenantID uint64, params utils.PaginationParams) ([]models.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Project{}).Scopes(database.ForTenant(tenantID))

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var projects []models.Project
	if err := query.
		Order("created_at DESC, id DESC").
		Scopes(database.Paginate(params)).
		Find(&projects).Error; err != nil {
		return nil, 0, err
	}

	return projects, total, nil
}

// Update updates a project
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

// ListNumbersLike returns project numbers matching a LIKE pattern
func (r *GormProjectRepository) ListNumbersLike(ctx context.Context, tenantID uint64, pattern string) ([]string, error) {
	var numbers []string
	if err := r.db.WithContext(ctx).
		Model(&models.Project{}).
		Scopes(database.ForTenant(tenantID)).
		Where("project_number LIKE ?", pattern).
		Pluck("project_number", &numbers).Error; err != nil {
		return nil, err
	}
	return numbers, nil
}
