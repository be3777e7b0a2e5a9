package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-report-api/internal/dto"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/services"
)

// TenantHandler serves tenant onboarding and settings.
type TenantHandler struct {
	tenantService *services.TenantService
}

func NewTenantHandler(tenantService *services.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

// Onboard creates a tenant together with its first administrator
func (h *TenantHandler) Onboard(c *gin.Context) {
	type OnboardRequest struct {
		Name                string `json:"name" binding:"required,max=255"`
		ProjectNumberPrefix string `json:"project_number_prefix"`
		ProjectNumberFormat string `json:"project_number_format"`
		NumberingMode       string `json:"numbering_mode"`
		Admin               struct {
			Email    string `json:"email" binding:"required,email"`
			Name     string `json:"name" binding:"required"`
			Password string `json:"password" binding:"required"`
		} `json:"admin" binding:"required"`
	}

	var req OnboardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	tenant, admin, err := h.tenantService.OnboardTenant(c.Request.Context(), services.OnboardTenantInput{
		Name:                req.Name,
		ProjectNumberPrefix: req.ProjectNumberPrefix,
		ProjectNumberFormat: req.ProjectNumberFormat,
		NumberingMode:       models.NumberingMode(req.NumberingMode),
		AdminEmail:          req.Admin.Email,
		AdminName:           req.Admin.Name,
		AdminPassword:       req.Admin.Password,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.OnboardResponse{
		Tenant: dto.ToTenantDTO(*tenant, true),
		Admin:  dto.ToUserDTO(*admin),
	})
}

// GetTenant returns the caller's tenant; the invite code is only shown to administrators
func (h *TenantHandler) GetTenant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.GetTenant(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTenantDTO(*tenant, actor.IsAdmin()))
}

// UpdateTenant changes the tenant name and numbering scheme
func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type UpdateTenantRequest struct {
		Name                *string `json:"name"`
		ProjectNumberPrefix *string `json:"project_number_prefix"`
		ProjectNumberFormat *string `json:"project_number_format"`
		NumberingMode       *string `json:"numbering_mode"`
	}

	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTenantInput{
		Name:                req.Name,
		ProjectNumberPrefix: req.ProjectNumberPrefix,
		ProjectNumberFormat: req.ProjectNumberFormat,
	}
	if req.NumberingMode != nil {
		mode := models.NumberingMode(*req.NumberingMode)
		input.NumberingMode = &mode
	}

	tenant, err := h.tenantService.UpdateTenant(c.Request.Context(), actor, input)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTenantDTO(*tenant, true))
}

// RegenerateInviteCode issues a new invite code
func (h *TenantHandler) RegenerateInviteCode(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.RegenerateInviteCode(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"invite_code": tenant.InviteCode})
}

// DeactivateTenant soft-disables the tenant
func (h *TenantHandler) DeactivateTenant(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tenant, err := h.tenantService.DeactivateTenant(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTenantDTO(*tenant, true))
}

// ListTechnicians returns the technicians available for assignment
func (h *TenantHandler) ListTechnicians(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	users, err := h.tenantService.ListTechnicians(c.Request.Context(), actor)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"technicians": dto.ToUserDTOs(users)})
}
