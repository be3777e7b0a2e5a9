package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/field-report-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

var (
	// ErrCreateTenant is returned when creating a tenant fails inside the onboarding transaction.
	ErrCreateTenant = errors.New("tenant repository: create tenant failed")
	// ErrCreateAdmin is returned when creating the first administrator fails inside the onboarding transaction.
	ErrCreateAdmin = errors.New("tenant repository: create admin failed")
)

// GormTenantRepository is a GORM implementation of TenantRepository
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &GormTenantRepository{db: db}
}

// FindByID finds a tenant by ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uint64) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// FindByInviteCode finds a tenant by invite code
func (r *GormTenantRepository) FindByInviteCode(ctx context.Context, code string) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).Where("invite_code = ?", code).First(&tenant).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

// CreateWithAdmin creates a tenant and its first administrator atomically.
func (r *GormTenantRepository) CreateWithAdmin(ctx context.Context, tenant *models.Tenant, admin *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateTenant, err)
		}

		admin.TenantID = tenant.ID
		admin.Role = models.RoleAdmin

		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateAdmin, err)
		}

		return nil
	})
}

// Update updates a tenant
func (r *GormTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(tenant).Error
}
