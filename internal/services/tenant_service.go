package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/field-report-api/internal/constants"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/utils"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var (
	ErrTenantNotFound             = fmt.Errorf("%w: tenant not found", apierrors.ErrNotFound)
	ErrInvalidTenantName          = fmt.Errorf("%w: tenant name cannot be empty", apierrors.ErrValidation)
	ErrInvalidProjectPrefix       = fmt.Errorf("%w: project number prefix must be 1 to %d characters without spaces", apierrors.ErrValidation, constants.MaxProjectPrefixLength)
	ErrInvalidProjectFormat       = fmt.Errorf("%w: invalid project number format", apierrors.ErrValidation)
	ErrInvalidNumberingMode       = fmt.Errorf("%w: numbering mode must be counter or scan", apierrors.ErrValidation)
	ErrInviteCodeGenerationFailed = errors.New("failed to generate invite code")
)

// TenantService provides business logic for tenant operations.
type TenantService struct {
	store  *repository.Store
	logger *zap.Logger
}

// NewTenantService creates a new TenantService.
func NewTenantService(store *repository.Store, logger *zap.Logger) *TenantService {
	return &TenantService{
		store:  store,
		logger: logger,
	}
}

// OnboardTenantInput represents parameters to create a tenant with its first administrator.
type OnboardTenantInput struct {
	Name                string
	ProjectNumberPrefix string
	ProjectNumberFormat string
	NumberingMode       models.NumberingMode
	AdminEmail          string
	AdminName           string
	AdminPassword       string
}

// UpdateTenantInput holds the tenant settings an administrator may change.
type UpdateTenantInput struct {
	Name                *string
	ProjectNumberPrefix *string
	ProjectNumberFormat *string
	NumberingMode       *models.NumberingMode
}

// OnboardTenant creates a tenant and its first administrator.
func (s *TenantService) OnboardTenant(ctx context.Context, input OnboardTenantInput) (*models.Tenant, *models.User, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, nil, ErrInvalidTenantName
	}
	prefix, err := normalizePrefix(input.ProjectNumberPrefix)
	if err != nil {
		return nil, nil, err
	}
	format, err := normalizeFormat(input.ProjectNumberFormat)
	if err != nil {
		return nil, nil, err
	}
	mode := input.NumberingMode
	if mode == "" {
		mode = models.NumberingModeCounter
	}
	if !validNumberingMode(mode) {
		return nil, nil, ErrInvalidNumberingMode
	}

	email, adminName, hash, err := prepareAccount(input.AdminEmail, input.AdminName, input.AdminPassword)
	if err != nil {
		return nil, nil, err
	}

	inviteCode, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, nil, ErrInviteCodeGenerationFailed
	}

	tenant := &models.Tenant{
		Name:                name,
		ProjectNumberPrefix: prefix,
		ProjectNumberFormat: format,
		NumberingMode:       mode,
		InviteCode:          inviteCode,
		IsActive:            true,
	}
	admin := &models.User{
		Email:        email,
		Name:         adminName,
		PasswordHash: hash,
	}

	if err := s.store.Tenants().CreateWithAdmin(ctx, tenant, admin); err != nil {
		if errors.Is(err, repository.ErrCreateAdmin) && errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, nil, ErrEmailTaken
		}
		return nil, nil, storageError("onboard tenant", err)
	}

	s.logger.Info("tenant onboarded",
		zap.Uint64("tenant_id", tenant.ID),
		zap.String("prefix", tenant.ProjectNumberPrefix),
		zap.Uint64("admin_id", admin.ID),
	)
	return tenant, admin, nil
}

// GetTenant returns the actor's tenant.
func (s *TenantService) GetTenant(ctx context.Context, actor Actor) (*models.Tenant, error) {
	tenant, err := s.store.Tenants().FindByID(ctx, actor.TenantID)
	if err != nil {
		return nil, lookupError("find tenant", err, ErrTenantNotFound)
	}
	return tenant, nil
}

// UpdateTenant changes the tenant name or numbering scheme.
func (s *TenantService) UpdateTenant(ctx context.Context, actor Actor, input UpdateTenantInput) (*models.Tenant, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	tenant, err := s.GetTenant(ctx, actor)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrInvalidTenantName
		}
		tenant.Name = name
	}
	if input.ProjectNumberPrefix != nil {
		prefix, err := normalizePrefix(*input.ProjectNumberPrefix)
		if err != nil {
			return nil, err
		}
		tenant.ProjectNumberPrefix = prefix
	}
	if input.ProjectNumberFormat != nil {
		format, err := normalizeFormat(*input.ProjectNumberFormat)
		if err != nil {
			return nil, err
		}
		tenant.ProjectNumberFormat = format
	}
	if input.NumberingMode != nil {
		if !validNumberingMode(*input.NumberingMode) {
			return nil, ErrInvalidNumberingMode
		}
		tenant.NumberingMode = *input.NumberingMode
	}

	if err := s.store.Tenants().Update(ctx, tenant); err != nil {
		return nil, storageError("update tenant", err)
	}
	return tenant, nil
}

// RegenerateInviteCode replaces the tenant's invite code.
func (s *TenantService) RegenerateInviteCode(ctx context.Context, actor Actor) (*models.Tenant, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	tenant, err := s.GetTenant(ctx, actor)
	if err != nil {
		return nil, err
	}

	code, err := utils.GenerateInviteCode()
	if err != nil {
		return nil, ErrInviteCodeGenerationFailed
	}
	tenant.InviteCode = code

	if err := s.store.Tenants().Update(ctx, tenant); err != nil {
		return nil, storageError("regenerate invite code", err)
	}
	return tenant, nil
}

// DeactivateTenant soft-disables the tenant. Its users can no longer sign in.
func (s *TenantService) DeactivateTenant(ctx context.Context, actor Actor) (*models.Tenant, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	tenant, err := s.GetTenant(ctx, actor)
	if err != nil {
		return nil, err
	}
	if !tenant.IsActive {
		return tenant, nil
	}

	tenant.IsActive = false
	if err := s.store.Tenants().Update(ctx, tenant); err != nil {
		return nil, storageError("deactivate tenant", err)
	}
	s.logger.Info("tenant deactivated", zap.Uint64("tenant_id", tenant.ID), zap.Uint64("by_user_id", actor.UserID))
	return tenant, nil
}

// ListTechnicians lists the technicians of the actor's tenant.
func (s *TenantService) ListTechnicians(ctx context.Context, actor Actor) ([]models.User, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	users, err := s.store.Users().ListByRole(ctx, actor.TenantID, models.RoleTechnician)
	if err != nil {
		return nil, storageError("list technicians", err)
	}
	return users, nil
}

func normalizePrefix(prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return constants.DefaultProjectPrefix, nil
	}
	if len(prefix) > constants.MaxProjectPrefixLength || strings.ContainsAny(prefix, " \t%_") {
		return "", ErrInvalidProjectPrefix
	}
	return prefix, nil
}

func normalizeFormat(format string) (string, error) {
	format = strings.TrimSpace(format)
	if format == "" {
		return constants.DefaultProjectNumberFormat, nil
	}
	if _, err := utils.ParseNumberFormat(format); err != nil {
		return "", fmt.Errorf("%w: %w", ErrInvalidProjectFormat, err)
	}
	return format, nil
}

func validNumberingMode(mode models.NumberingMode) bool {
	return mode == models.NumberingModeCounter || mode == models.NumberingModeScan
}
