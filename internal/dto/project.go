package dto

import (
	"encoding/json"
	"time"

	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID             uint64          `json:"id"`
	ProjectNumber  string          `json:"project_number"`
	Name           string          `json:"name"`
	CustomerEmails []string        `json:"customer_emails"`
	Specs          json.RawMessage `json:"specs,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// ProjectSummaryDTO is the project shown inside a task
type ProjectSummaryDTO struct {
	ID            uint64 `json:"id"`
	ProjectNumber string `json:"project_number"`
	Name          string `json:"name"`
}

// ProjectListResponse represents a paginated list of projects
type ProjectListResponse struct {
	Projects   []ProjectDTO             `json:"projects"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// ToProjectDTO converts a Project model to ProjectDTO
func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:             project.ID,
		ProjectNumber:  project.ProjectNumber,
		Name:           project.Name,
		CustomerEmails: []string{},
		CreatedAt:      project.CreatedAt,
		UpdatedAt:      project.UpdatedAt,
	}
	if len(project.CustomerEmails) > 0 {
		_ = json.Unmarshal(project.CustomerEmails, &dto.CustomerEmails)
	}
	if len(project.Specs) > 0 {
		dto.Specs = json.RawMessage(project.Specs)
	}
	return dto
}

// ToProjectListResponse converts a page of projects
func ToProjectListResponse(projects []models.Project, params utils.PaginationParams, total int64) ProjectListResponse {
	items := make([]ProjectDTO, len(projects))
	for i, project := range projects {
		items[i] = ToProjectDTO(project)
	}
	return ProjectListResponse{
		Projects:   items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}
