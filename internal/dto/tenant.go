package dto

import (
	"time"

	"github.com/yukikurage/field-report-api/internal/models"
)

// TenantDTO represents a tenant in API responses
type TenantDTO struct {
	ID                  uint64               `json:"id"`
	Name                string               `json:"name"`
	ProjectNumberPrefix string               `json:"project_number_prefix"`
	ProjectNumberFormat string               `json:"project_number_format"`
	NumberingMode       models.NumberingMode `json:"numbering_mode"`
	InviteCode          string               `json:"invite_code,omitempty"`
	IsActive            bool                 `json:"is_active"`
	CreatedAt           time.Time            `json:"created_at"`
}

// OnboardResponse is returned when a tenant is created
type OnboardResponse struct {
	Tenant TenantDTO `json:"tenant"`
	Admin  UserDTO   `json:"admin"`
}

// ToTenantDTO converts a Tenant model; the invite code is only shown to administrators
func ToTenantDTO(tenant models.Tenant, includeInviteCode bool) TenantDTO {
	dto := TenantDTO{
		ID:                  tenant.ID,
		Name:                tenant.Name,
		ProjectNumberPrefix: tenant.ProjectNumberPrefix,
		ProjectNumberFormat: tenant.ProjectNumberFormat,
		NumberingMode:       tenant.NumberingMode,
		IsActive:            tenant.IsActive,
		CreatedAt:           tenant.CreatedAt,
	}
	if includeInviteCode {
		dto.InviteCode = tenant.InviteCode
	}
	return dto
}
