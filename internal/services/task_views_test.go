package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/testutil"
)

func TestTaskViews(t *testing.T) {
	now := time.Date(2025, 3, 10, 15, 30, 0, 0, time.UTC)
	day := func(d int) *time.Time { return testutil.Date(2025, 3, d, time.UTC) }

	tests := []struct {
		name     string
		task     models.Task
		today    bool
		upcoming bool
		overdue  bool
	}{
		{
			name:  "due today",
			task:  models.Task{Status: models.TaskStatusAssigned, DueDate: day(10)},
			today: true,
		},
		{
			name:     "due later",
			task:     models.Task{Status: models.TaskStatusInProgressTech, DueDate: day(11)},
			upcoming: true,
		},
		{
			name:    "past due",
			task:    models.Task{Status: models.TaskStatusAssigned, DueDate: day(9)},
			overdue: true,
		},
		{
			name: "past due but awaiting review",
			task: models.Task{Status: models.TaskStatusReadyForReview, DueDate: day(9)},
		},
		{
			name: "approved is never shown",
			task: models.Task{Status: models.TaskStatusApproved, DueDate: day(10)},
		},
		{
			name:  "scheduled across today",
			task:  models.Task{Status: models.TaskStatusAssigned, ScheduledStartDate: day(8), ScheduledEndDate: day(12)},
			today: true,
		},
		{
			name:  "single day schedule today",
			task:  models.Task{Status: models.TaskStatusAssigned, ScheduledStartDate: day(10)},
			today: true,
		},
		{
			name:     "schedule starts later",
			task:     models.Task{Status: models.TaskStatusAssigned, ScheduledStartDate: day(14), ScheduledEndDate: day(15)},
			upcoming: true,
		},
		{
			name: "rejected uses resubmission date",
			task: models.Task{
				Status:              models.TaskStatusRejectedNeedsFix,
				DueDate:             day(1),
				ResubmissionDueDate: day(12),
			},
			upcoming: true,
		},
		{
			name: "no dates",
			task: models.Task{Status: models.TaskStatusAssigned},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.today, IsDueToday(tt.task, now), "today")
			assert.Equal(t, tt.upcoming, IsUpcoming(tt.task, now), "upcoming")
			assert.Equal(t, tt.overdue, IsOverdue(tt.task, now), "overdue")
		})
	}
}

func TestTaskViews_UseCallerLocation(t *testing.T) {
	tokyo := time.FixedZone("JST", 9*60*60)
	// 23:30 UTC on the 9th is already the 10th in Tokyo.
	due := time.Date(2025, 3, 9, 23, 30, 0, 0, time.UTC)
	task := models.Task{Status: models.TaskStatusAssigned, DueDate: &due}

	assert.True(t, IsDueToday(task, time.Date(2025, 3, 10, 8, 0, 0, 0, tokyo)))
	assert.True(t, IsOverdue(task, time.Date(2025, 3, 10, 8, 0, 0, 0, time.UTC)))
}

func TestFilterByView(t *testing.T) {
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	tasks := []models.Task{
		{ID: 1, Status: models.TaskStatusAssigned, DueDate: testutil.Date(2025, 3, 10, time.UTC)},
		{ID: 2, Status: models.TaskStatusAssigned, DueDate: testutil.Date(2025, 3, 5, time.UTC)},
		{ID: 3, Status: models.TaskStatusAssigned, DueDate: testutil.Date(2025, 3, 20, time.UTC)},
	}

	assert.Len(t, FilterByView(tasks, TaskViewToday, now), 1)
	assert.Equal(t, uint64(2), FilterByView(tasks, TaskViewOverdue, now)[0].ID)
	assert.Equal(t, uint64(3), FilterByView(tasks, TaskViewUpcoming, now)[0].ID)
	assert.Len(t, FilterByView(tasks, "", now), 3)
	assert.True(t, TaskViewOverdue.Valid())
	assert.False(t, TaskView("someday").Valid())
}
