package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/samber/lo"
	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/utils"
)

var (
	ErrTechnicianStatusNotAllowed  = fmt.Errorf("%w: technicians may only start work or submit for review", apierrors.ErrAuthorization)
	ErrInvalidTransition           = fmt.Errorf("%w: invalid status transition", apierrors.ErrValidation)
	ErrRejectRemarksRequired       = fmt.Errorf("%w: rejection remarks are required", apierrors.ErrValidation)
	ErrResubmissionDueDateRequired = fmt.Errorf("%w: resubmission due date is required", apierrors.ErrValidation)
)

// technicianTransitions lists the edges a technician may take on their own task.
var technicianTransitions = map[models.TaskStatus][]models.TaskStatus{
	models.TaskStatusAssigned:         {models.TaskStatusInProgressTech},
	models.TaskStatusInProgressTech:   {models.TaskStatusReadyForReview},
	models.TaskStatusRejectedNeedsFix: {models.TaskStatusInProgressTech, models.TaskStatusReadyForReview},
}

// RejectInput carries the mandatory rejection details
type RejectInput struct {
	Remarks             string
	ResubmissionDueDate *time.Time
}

// UpdateTaskInput is an administrator edit. Nil fields are left unchanged;
// the Clear flags null out optional dates.
type UpdateTaskInput struct {
	TaskType                *models.TaskType
	DueDate                 *time.Time
	ClearDueDate            bool
	ScheduledStartDate      *time.Time
	ClearScheduledStartDate bool
	ScheduledEndDate        *time.Time
	ClearScheduledEndDate   bool
	LocationName            *string
	EngagementNotes         *string
	AssignedTechnicianID    *uint64
}

// SetStatus moves a task to status. Administrators may set any status except
// that nothing leaves APPROVED. Technicians may only start work or submit
// their own task for review.
func (s *TaskService) SetStatus(ctx context.Context, actor Actor, taskID uint64, status models.TaskStatus) (*TaskResult, error) {
	if !status.Valid() {
		return nil, ErrInvalidStatus
	}
	if actor.IsTechnician() && status != models.TaskStatusInProgressTech && status != models.TaskStatusReadyForReview {
		return nil, ErrTechnicianStatusNotAllowed
	}

	return s.mutate(ctx, actor, taskID, "set task status", func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error {
		if actor.IsTechnician() && !task.IsAssignedTo(actor.UserID) {
			return ErrTaskNotAssignedToYou
		}
		if task.Status == status {
			return nil
		}
		if err := ensureNotApproved(task); err != nil {
			return err
		}
		if actor.IsTechnician() && !lo.Contains(technicianTransitions[task.Status], status) {
			return fmt.Errorf("%w: %s to %s", ErrInvalidTransition, task.Status, status)
		}

		task.Status = status
		if status == models.TaskStatusReadyForReview {
			task.ReportSubmitted = true
		}
		if err := s.save(ctx, tx, task, actor); err != nil {
			return err
		}

		// Only a technician's submission is audited.
		if actor.IsTechnician() && status == models.TaskStatusReadyForReview {
			s.appendHistory(ctx, tx, fx, task, actor, models.HistoryActionSubmitted, "report submitted for review")
			s.notifyAdmins(ctx, tx, fx, NotifyInput{
				TenantID:  task.TenantID,
				Message:   fmt.Sprintf("%s submitted %s for project %s for review", actor.Name, task.TaskType.Label(), task.Project.ProjectNumber),
				Type:      models.NotificationInfo,
				TaskID:    &task.ID,
				ProjectID: &task.ProjectID,
			})
		}
		return nil
	})
}

// Approve finalizes a task. No notification is sent.
func (s *TaskService) Approve(ctx context.Context, actor Actor, taskID uint64) (*TaskResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, actor, taskID, "approve task", func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error {
		if err := ensureNotApproved(task); err != nil {
			return err
		}
		task.Status = models.TaskStatusApproved
		if err := s.save(ctx, tx, task, actor); err != nil {
			return err
		}
		s.appendHistory(ctx, tx, fx, task, actor, models.HistoryActionApproved, "")
		return nil
	})
}

// Reject sends a task back to the technician with remarks and a new due date.
// Both are required; a partial rejection changes nothing.
func (s *TaskService) Reject(ctx context.Context, actor Actor, taskID uint64, input RejectInput) (*TaskResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	remarks := strings.TrimSpace(input.Remarks)
	if remarks == "" {
		return nil, ErrRejectRemarksRequired
	}
	if input.ResubmissionDueDate == nil {
		return nil, ErrResubmissionDueDateRequired
	}

	return s.mutate(ctx, actor, taskID, "reject task", func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error {
		if err := ensureNotApproved(task); err != nil {
			return err
		}
		task.Status = models.TaskStatusRejectedNeedsFix
		task.RejectionRemarks = remarks
		task.ResubmissionDueDate = input.ResubmissionDueDate
		task.ReportSubmitted = false
		if err := s.save(ctx, tx, task, actor); err != nil {
			return err
		}

		s.appendHistory(ctx, tx, fx, task, actor, models.HistoryActionRejected, remarks)
		if task.AssignedTechnicianID != nil {
			s.notify(ctx, tx, fx, NotifyInput{
				TenantID: task.TenantID,
				UserID:   *task.AssignedTechnicianID,
				Message: fmt.Sprintf("Your %s report for project %s was rejected: %s. Resubmit by %s",
					task.TaskType.Label(), task.Project.ProjectNumber, remarks, utils.FormatDate(input.ResubmissionDueDate)),
				Type:      models.NotificationWarning,
				TaskID:    &task.ID,
				ProjectID: &task.ProjectID,
			})
		}
		return nil
	})
}

// Reassign hands the task to another technician of the tenant. Reassigning
// to the current technician is a no-op.
func (s *TaskService) Reassign(ctx context.Context, actor Actor, taskID, technicianID uint64) (*TaskResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}

	return s.mutate(ctx, actor, taskID, "reassign task", func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error {
		technician, err := s.findTechnician(ctx, tx, actor.TenantID, technicianID)
		if err != nil {
			return err
		}
		if task.IsAssignedTo(technician.ID) {
			return nil
		}

		note := fmt.Sprintf("reassigned from %s to %s", technicianName(task.AssignedTechnician), technician.DisplayName())
		task.AssignedTechnicianID = &technician.ID
		task.AssignedTechnician = technician
		if err := s.save(ctx, tx, task, actor); err != nil {
			return err
		}

		s.appendHistory(ctx, tx, fx, task, actor, models.HistoryActionReassigned, note)
		s.notify(ctx, tx, fx, assignmentNotice(task))
		return nil
	})
}

// MarkFieldComplete flags the field work as done without changing status.
func (s *TaskService) MarkFieldComplete(ctx context.Context, actor Actor, taskID uint64) (*TaskResult, error) {
	return s.mutate(ctx, actor, taskID, "mark field complete", func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error {
		if actor.IsTechnician() && !task.IsAssignedTo(actor.UserID) {
			return ErrTaskNotAssignedToYou
		}
		if task.FieldCompleted {
			return nil
		}

		now := s.now()
		task.FieldCompleted = true
		task.FieldCompletedAt = &now
		if err := s.save(ctx, tx, task, actor); err != nil {
			return err
		}
		s.appendHistory(ctx, tx, fx, task, actor, models.HistoryActionStatusChanged, "field work marked complete")
		return nil
	})
}

// UpdateFields applies an administrator edit and records every change in a
// single history entry.
func (s *TaskService) UpdateFields(ctx context.Context, actor Actor, taskID uint64, input UpdateTaskInput) (*TaskResult, error) {
	if err := actor.requireAdmin(); err != nil {
		return nil, err
	}
	if input.TaskType != nil && !input.TaskType.Valid() {
		return nil, ErrInvalidTaskType
	}

	return s.mutate(ctx, actor, taskID, "update task", func(ctx context.Context, tx *repository.Store, task *models.Task, fx *effects) error {
		var changes []string

		if due, changed := dateChange(task.DueDate, input.DueDate, input.ClearDueDate); changed {
			changes = append(changes, fmt.Sprintf("due date changed from %s to %s", utils.FormatDate(task.DueDate), utils.FormatDate(due)))
			task.DueDate = due
		}
		if start, changed := dateChange(task.ScheduledStartDate, input.ScheduledStartDate, input.ClearScheduledStartDate); changed {
			changes = append(changes, fmt.Sprintf("scheduled start changed from %s to %s", utils.FormatDate(task.ScheduledStartDate), utils.FormatDate(start)))
			task.ScheduledStartDate = start
		}
		if end, changed := dateChange(task.ScheduledEndDate, input.ScheduledEndDate, input.ClearScheduledEndDate); changed {
			changes = append(changes, fmt.Sprintf("scheduled end changed from %s to %s", utils.FormatDate(task.ScheduledEndDate), utils.FormatDate(end)))
			task.ScheduledEndDate = end
		}
		if err := validateSchedule(task.ScheduledStartDate, task.ScheduledEndDate); err != nil {
			return err
		}

		if input.LocationName != nil {
			location := strings.TrimSpace(*input.LocationName)
			if location != task.LocationName {
				changes = append(changes, fmt.Sprintf("location changed from %q to %q", task.LocationName, location))
				task.LocationName = location
			}
		}
		if input.EngagementNotes != nil && *input.EngagementNotes != task.EngagementNotes {
			changes = append(changes, "engagement notes updated")
			task.EngagementNotes = *input.EngagementNotes
		}

		if input.TaskType != nil && *input.TaskType != task.TaskType {
			changes = append(changes, fmt.Sprintf("task type changed from %s to %s", task.TaskType.Label(), input.TaskType.Label()))
			task.TaskType = *input.TaskType
			// A proctor number stays with the task across retyping, so it is
			// never handed out twice within the project.
			if task.TaskType == models.TaskTypeProctor && task.ProctorNo == nil {
				next, err := s.nextProctorNo(ctx, tx, task.ProjectID)
				if err != nil {
					return err
				}
				task.ProctorNo = next
			}
		}

		var newTechnician *models.User
		if input.AssignedTechnicianID != nil && !task.IsAssignedTo(*input.AssignedTechnicianID) {
			technician, err := s.findTechnician(ctx, tx, actor.TenantID, *input.AssignedTechnicianID)
			if err != nil {
				return err
			}
			changes = append(changes, fmt.Sprintf("reassigned from %s to %s", technicianName(task.AssignedTechnician), technician.DisplayName()))
			task.AssignedTechnicianID = &technician.ID
			task.AssignedTechnician = technician
			newTechnician = technician
		}

		if len(changes) == 0 {
			return nil
		}
		if err := s.save(ctx, tx, task, actor); err != nil {
			return err
		}

		s.appendHistory(ctx, tx, fx, task, actor, models.HistoryActionStatusChanged, strings.Join(changes, "; "))
		if newTechnician != nil {
			s.notify(ctx, tx, fx, assignmentNotice(task))
		}
		return nil
	})
}

// ensureNotApproved refuses any status change out of APPROVED.
func ensureNotApproved(task *models.Task) error {
	if task.Status == models.TaskStatusApproved {
		return fmt.Errorf("%w: task is already approved", ErrInvalidTransition)
	}
	return nil
}

// dateChange resolves the new value of an optional date and whether its calendar day changed.
func dateChange(current, next *time.Time, clear bool) (*time.Time, bool) {
	switch {
	case clear:
		return nil, current != nil
	case next == nil:
		return current, false
	default:
		return next, utils.FormatDate(current) != utils.FormatDate(next)
	}
}
