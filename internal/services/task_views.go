package services

import (
	"time"

	"github.com/samber/lo"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// TaskView is a dashboard bucket derived from task dates and status.
type TaskView string

const (
	TaskViewToday    TaskView = "today"
	TaskViewUpcoming TaskView = "upcoming"
	TaskViewOverdue  TaskView = "overdue"
)

func (v TaskView) Valid() bool {
	switch v {
	case TaskViewToday, TaskViewUpcoming, TaskViewOverdue:
		return true
	}
	return false
}

// EffectiveDueDate is the resubmission date while a task awaits fixes, the due date otherwise.
func EffectiveDueDate(task models.Task) *time.Time {
	if task.Status == models.TaskStatusRejectedNeedsFix && task.ResubmissionDueDate != nil {
		return task.ResubmissionDueDate
	}
	return task.DueDate
}

// IsDueToday reports whether an open task is due today or scheduled across today.
func IsDueToday(task models.Task, now time.Time) bool {
	if task.Status == models.TaskStatusApproved {
		return false
	}
	today := utils.StartOfDay(now)

	if due := EffectiveDueDate(task); due != nil && dayIn(*due, now).Equal(today) {
		return true
	}
	if task.ScheduledStartDate == nil {
		return false
	}

	start := dayIn(*task.ScheduledStartDate, now)
	if task.ScheduledEndDate == nil {
		return start.Equal(today)
	}
	end := dayIn(*task.ScheduledEndDate, now)
	return !today.Before(start) && !today.After(end)
}

// IsUpcoming reports whether an open task not due today is due or starts after today.
func IsUpcoming(task models.Task, now time.Time) bool {
	if task.Status == models.TaskStatusApproved || IsDueToday(task, now) {
		return false
	}
	today := utils.StartOfDay(now)

	if due := EffectiveDueDate(task); due != nil && dayIn(*due, now).After(today) {
		return true
	}
	return task.ScheduledStartDate != nil && dayIn(*task.ScheduledStartDate, now).After(today)
}

// IsOverdue reports whether a task still owed by the technician is past its effective due date.
// Tasks awaiting review are not overdue.
func IsOverdue(task models.Task, now time.Time) bool {
	switch task.Status {
	case models.TaskStatusApproved, models.TaskStatusReadyForReview:
		return false
	}
	due := EffectiveDueDate(task)
	return due != nil && dayIn(*due, now).Before(utils.StartOfDay(now))
}

// FilterByView keeps the tasks that fall into view at now.
func FilterByView(tasks []models.Task, view TaskView, now time.Time) []models.Task {
	var match func(models.Task, time.Time) bool
	switch view {
	case TaskViewToday:
		match = IsDueToday
	case TaskViewUpcoming:
		match = IsUpcoming
	case TaskViewOverdue:
		match = IsOverdue
	default:
		return tasks
	}
	return lo.Filter(tasks, func(task models.Task, _ int) bool {
		return match(task, now)
	})
}

// dayIn is the calendar day of t as seen from ref's location.
func dayIn(t, ref time.Time) time.Time {
	return utils.StartOfDay(t.In(ref.Location()))
}
