package dto

import (
	"time"

	"github.com/yukikurage/field-report-api/internal/constants"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID                   uint64             `json:"id"`
	ProjectID            uint64             `json:"project_id"`
	TaskType             models.TaskType    `json:"task_type"`
	TaskTypeLabel        string             `json:"task_type_label"`
	Status               models.TaskStatus  `json:"status"`
	AssignedTechnicianID *uint64            `json:"assigned_technician_id"`
	DueDate              *string            `json:"due_date"`
	ScheduledStartDate   *string            `json:"scheduled_start_date"`
	ScheduledEndDate     *string            `json:"scheduled_end_date"`
	LocationName         string             `json:"location_name"`
	EngagementNotes      string             `json:"engagement_notes"`
	RejectionRemarks     string             `json:"rejection_remarks,omitempty"`
	ResubmissionDueDate  *string            `json:"resubmission_due_date,omitempty"`
	FieldCompleted       bool               `json:"field_completed"`
	FieldCompletedAt     *time.Time         `json:"field_completed_at,omitempty"`
	ReportSubmitted      bool               `json:"report_submitted"`
	ProctorNo            *int               `json:"proctor_no,omitempty"`
	LastEditedByRole     models.UserRole    `json:"last_edited_by_role,omitempty"`
	LastEditedByName     string             `json:"last_edited_by_name,omitempty"`
	LastEditedAt         *time.Time         `json:"last_edited_at,omitempty"`
	CreatedAt            time.Time          `json:"created_at"`
	UpdatedAt            time.Time          `json:"updated_at"`
	Project              *ProjectSummaryDTO `json:"project,omitempty"`
	AssignedTechnician   *UserSummaryDTO    `json:"assigned_technician,omitempty"`
}

// TaskResultResponse is a mutated task plus the side effects that were not recorded
type TaskResultResponse struct {
	Task     TaskDTO  `json:"task"`
	Warnings []string `json:"warnings,omitempty"`
}

// TaskListResponse represents a paginated list of tasks
type TaskListResponse struct {
	Tasks      []TaskDTO                `json:"tasks"`
	Pagination utils.PaginationResponse `json:"pagination"`
}

// TaskHistoryDTO represents one audit entry
type TaskHistoryDTO struct {
	ID          uint64               `json:"id"`
	Timestamp   time.Time            `json:"timestamp"`
	ActorRole   models.UserRole      `json:"actor_role"`
	ActorName   string               `json:"actor_name"`
	ActorUserID uint64               `json:"actor_user_id"`
	ActionType  models.HistoryAction `json:"action_type"`
	Note        string               `json:"note,omitempty"`
}

// ToTaskDTO converts a Task model to TaskDTO
func ToTaskDTO(task models.Task) TaskDTO {
	dto := TaskDTO{
		ID:                   task.ID,
		ProjectID:            task.ProjectID,
		TaskType:             task.TaskType,
		TaskTypeLabel:        task.TaskType.Label(),
		Status:               task.Status,
		AssignedTechnicianID: task.AssignedTechnicianID,
		DueDate:              dateString(task.DueDate),
		ScheduledStartDate:   dateString(task.ScheduledStartDate),
		ScheduledEndDate:     dateString(task.ScheduledEndDate),
		LocationName:         task.LocationName,
		EngagementNotes:      task.EngagementNotes,
		RejectionRemarks:     task.RejectionRemarks,
		ResubmissionDueDate:  dateString(task.ResubmissionDueDate),
		FieldCompleted:       task.FieldCompleted,
		FieldCompletedAt:     task.FieldCompletedAt,
		ReportSubmitted:      task.ReportSubmitted,
		LastEditedByRole:     task.LastEditedByRole,
		LastEditedByName:     task.LastEditedByName,
		LastEditedAt:         task.LastEditedAt,
		CreatedAt:            task.CreatedAt,
		UpdatedAt:            task.UpdatedAt,
	}

	if task.TaskType == models.TaskTypeProctor {
		dto.ProctorNo = task.ProctorNo
	}

	// Include project if preloaded
	if task.Project.ID != 0 {
		dto.Project = &ProjectSummaryDTO{
			ID:            task.Project.ID,
			ProjectNumber: task.Project.ProjectNumber,
			Name:          task.Project.Name,
		}
	}

	// Include technician if preloaded
	if task.AssignedTechnician != nil && task.AssignedTechnician.ID != 0 {
		dto.AssignedTechnician = &UserSummaryDTO{
			ID:   task.AssignedTechnician.ID,
			Name: task.AssignedTechnician.DisplayName(),
		}
	}

	return dto
}

// ToTaskListResponse converts a page of tasks
func ToTaskListResponse(tasks []models.Task, params utils.PaginationParams, total int64) TaskListResponse {
	items := make([]TaskDTO, len(tasks))
	for i, task := range tasks {
		items[i] = ToTaskDTO(task)
	}
	return TaskListResponse{
		Tasks:      items,
		Pagination: utils.NewPaginationResponse(params, total),
	}
}

func ToTaskHistoryDTOs(entries []models.TaskHistory) []TaskHistoryDTO {
	dtos := make([]TaskHistoryDTO, len(entries))
	for i, e := range entries {
		dtos[i] = TaskHistoryDTO{
			ID:          e.ID,
			Timestamp:   e.Timestamp,
			ActorRole:   e.ActorRole,
			ActorName:   e.ActorName,
			ActorUserID: e.ActorUserID,
			ActionType:  e.ActionType,
			Note:        e.Note,
		}
	}
	return dtos
}

func dateString(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(constants.DateLayout)
	return &s
}
