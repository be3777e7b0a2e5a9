package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/field-report-api/internal/dto"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/middleware"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/services"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// TaskHandler handles task-related HTTP requests
type TaskHandler struct {
	taskService *services.TaskService
}

// NewTaskHandler creates a new TaskHandler
func NewTaskHandler(taskService *services.TaskService) *TaskHandler {
	return &TaskHandler{
		taskService: taskService,
	}
}

// CreateTask creates a task under a project
func (h *TaskHandler) CreateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	type CreateTaskRequest struct {
		ProjectID            uint64  `json:"project_id" binding:"required"`
		TaskType             string  `json:"task_type" binding:"required"`
		AssignedTechnicianID *uint64 `json:"assigned_technician_id"`
		DueDate              string  `json:"due_date"`
		ScheduledStartDate   string  `json:"scheduled_start_date"`
		ScheduledEndDate     string  `json:"scheduled_end_date"`
		LocationName         string  `json:"location_name" binding:"max=255"`
		EngagementNotes      string  `json:"engagement_notes"`
	}

	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequestWithDetails(c, "Invalid request body", err.Error())
		return
	}

	dueDate, ok := parseDateField(c, "due_date", req.DueDate)
	if !ok {
		return
	}
	startDate, ok := parseDateField(c, "scheduled_start_date", req.ScheduledStartDate)
	if !ok {
		return
	}
	endDate, ok := parseDateField(c, "scheduled_end_date", req.ScheduledEndDate)
	if !ok {
		return
	}

	result, err := h.taskService.CreateTask(c.Request.Context(), actor, services.CreateTaskInput{
		ProjectID:            req.ProjectID,
		TaskType:             models.TaskType(req.TaskType),
		AssignedTechnicianID: req.AssignedTechnicianID,
		DueDate:              dueDate,
		ScheduledStartDate:   startDate,
		ScheduledEndDate:     endDate,
		LocationName:         req.LocationName,
		EngagementNotes:      req.EngagementNotes,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusCreated, toTaskResultResponse(result))
}

// ListTasks returns tasks with optional filters.
// Query: project_id, status, assigned_technician_id, view (today|upcoming|overdue), sort=due_date, page, limit
func (h *TaskHandler) ListTasks(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	projectID, err := parseOptionalUint(c.Query("project_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid project ID")
		return
	}
	technicianID, err := parseOptionalUint(c.Query("assigned_technician_id"))
	if err != nil {
		apierrors.BadRequest(c, "Invalid technician ID")
		return
	}

	params := utils.GetPaginationParams(c)
	input := services.ListTasksInput{
		ProjectID:            projectID,
		AssignedTechnicianID: technicianID,
		View:                 services.TaskView(c.Query("view")),
		SortByDueDate:        c.Query("sort") == "due_date",
		Page:                 params.Page,
		PageSize:             params.Limit,
	}
	if status := c.Query("status"); status != "" {
		s := models.TaskStatus(status)
		input.Status = &s
	}

	tasks, total, err := h.taskService.ListTasks(c.Request.Context(), actor, input)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskListResponse(tasks, params, total))
}

// GetTask returns the task loaded by middleware.RequireTaskAccess
func (h *TaskHandler) GetTask(c *gin.Context) {
	task, ok := middleware.GetTask(c)
	if !ok {
		apierrors.InternalError(c, "Task not loaded")
		return
	}

	c.JSON(http.StatusOK, dto.ToTaskDTO(*task))
}

// GetTaskHistory returns the task's audit trail, newest first
func (h *TaskHandler) GetTaskHistory(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	entries, err := h.taskService.GetTaskHistory(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"history": dto.ToTaskHistoryDTOs(entries)})
}

// UpdateTask applies an administrator edit. Dates given as "" are cleared.
func (h *TaskHandler) UpdateTask(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	type UpdateTaskRequest struct {
		TaskType             *string `json:"task_type"`
		DueDate              *string `json:"due_date"`
		ScheduledStartDate   *string `json:"scheduled_start_date"`
		ScheduledEndDate     *string `json:"scheduled_end_date"`
		LocationName         *string `json:"location_name" binding:"omitempty,max=255"`
		EngagementNotes      *string `json:"engagement_notes"`
		AssignedTechnicianID *uint64 `json:"assigned_technician_id"`
	}

	var req UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.UpdateTaskInput{
		LocationName:         req.LocationName,
		EngagementNotes:      req.EngagementNotes,
		AssignedTechnicianID: req.AssignedTechnicianID,
	}
	if req.TaskType != nil {
		taskType := models.TaskType(*req.TaskType)
		input.TaskType = &taskType
	}

	if input.DueDate, input.ClearDueDate, ok = optionalDate(c, "due_date", req.DueDate); !ok {
		return
	}
	if input.ScheduledStartDate, input.ClearScheduledStartDate, ok = optionalDate(c, "scheduled_start_date", req.ScheduledStartDate); !ok {
		return
	}
	if input.ScheduledEndDate, input.ClearScheduledEndDate, ok = optionalDate(c, "scheduled_end_date", req.ScheduledEndDate); !ok {
		return
	}

	result, err := h.taskService.UpdateFields(c.Request.Context(), actor, taskID, input)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResultResponse(result))
}

// UpdateStatus sets the task status
func (h *TaskHandler) UpdateStatus(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	type UpdateStatusRequest struct {
		Status string `json:"status" binding:"required"`
	}

	var req UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.SetStatus(c.Request.Context(), actor, taskID, models.TaskStatus(req.Status))
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResultResponse(result))
}

// Approve approves a submitted report
func (h *TaskHandler) Approve(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	result, err := h.taskService.Approve(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResultResponse(result))
}

// Reject sends a report back with remarks and a resubmission due date
func (h *TaskHandler) Reject(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	type RejectRequest struct {
		Remarks             string `json:"remarks"`
		ResubmissionDueDate string `json:"resubmission_due_date"`
	}

	var req RejectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	dueDate, ok := parseDateField(c, "resubmission_due_date", req.ResubmissionDueDate)
	if !ok {
		return
	}

	result, err := h.taskService.Reject(c.Request.Context(), actor, taskID, services.RejectInput{
		Remarks:             req.Remarks,
		ResubmissionDueDate: dueDate,
	})
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResultResponse(result))
}

// Reassign hands the task to another technician
func (h *TaskHandler) Reassign(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	type ReassignRequest struct {
		TechnicianID uint64 `json:"technician_id" binding:"required"`
	}

	var req ReassignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.taskService.Reassign(c.Request.Context(), actor, taskID, req.TechnicianID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResultResponse(result))
}

// MarkFieldComplete flags the field work as done
func (h *TaskHandler) MarkFieldComplete(c *gin.Context) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}
	taskID, ok := parseIDParam(c, "id", "task ID")
	if !ok {
		return
	}

	result, err := h.taskService.MarkFieldComplete(c.Request.Context(), actor, taskID)
	if err != nil {
		apierrors.RespondWithServiceError(c, err)
		return
	}

	c.JSON(http.StatusOK, toTaskResultResponse(result))
}

func toTaskResultResponse(result *services.TaskResult) dto.TaskResultResponse {
	return dto.TaskResultResponse{
		Task:     dto.ToTaskDTO(*result.Task),
		Warnings: result.Warnings,
	}
}

// optionalDate maps a patch field: absent keeps, "" clears, a date sets.
func optionalDate(c *gin.Context, field string, value *string) (date *time.Time, clear bool, ok bool) {
	if value == nil {
		return nil, false, true
	}
	if *value == "" {
		return nil, true, true
	}
	date, ok = parseDateField(c, field, *value)
	return date, false, ok
}
