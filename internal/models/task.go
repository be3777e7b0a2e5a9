package models

import (
	"time"
)

type TaskType string

const (
	TaskTypeDensity             TaskType = "DENSITY_MEASUREMENT"
	TaskTypeProctor             TaskType = "PROCTOR"
	TaskTypeRebar               TaskType = "REBAR"
	TaskTypeCompressiveStrength TaskType = "COMPRESSIVE_STRENGTH"
	TaskTypeCylinderPickup      TaskType = "CYLINDER_PICKUP"
)

var taskTypeLabels = map[TaskType]string{
	TaskTypeDensity:             "Density Measurement",
	TaskTypeProctor:             "Proctor",
	TaskTypeRebar:               "Rebar Inspection",
	TaskTypeCompressiveStrength: "Compressive Strength",
	TaskTypeCylinderPickup:      "Cylinder Pickup",
}

func (t TaskType) Valid() bool {
	_, ok := taskTypeLabels[t]
	return ok
}

// Label is the human readable name used in notifications and history notes.
func (t TaskType) Label() string {
	if label, ok := taskTypeLabels[t]; ok {
		return label
	}
	return string(t)
}

type TaskStatus string

const (
	TaskStatusAssigned         TaskStatus = "ASSIGNED"
	TaskStatusInProgressTech   TaskStatus = "IN_PROGRESS_TECH"
	TaskStatusReadyForReview   TaskStatus = "READY_FOR_REVIEW"
	TaskStatusApproved         TaskStatus = "APPROVED"
	TaskStatusRejectedNeedsFix TaskStatus = "REJECTED_NEEDS_FIX"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case TaskStatusAssigned, TaskStatusInProgressTech, TaskStatusReadyForReview,
		TaskStatusApproved, TaskStatusRejectedNeedsFix:
		return true
	}
	return false
}

type Task struct {
	ID                   uint64     `gorm:"primarykey" json:"id"`
	TenantID             uint64     `gorm:"not null;index" json:"tenant_id"`
	ProjectID            uint64     `gorm:"not null;index;uniqueIndex:idx_tasks_project_proctor,priority:1" json:"project_id"`
	TaskType             TaskType   `gorm:"type:varchar(32);not null" json:"task_type"`
	Status               TaskStatus `gorm:"type:varchar(32);not null;default:'ASSIGNED';index" json:"status"`
	AssignedTechnicianID *uint64    `gorm:"index" json:"assigned_technician_id"`
	DueDate              *time.Time `gorm:"index" json:"due_date"`
	ScheduledStartDate   *time.Time `json:"scheduled_start_date"`
	ScheduledEndDate     *time.Time `json:"scheduled_end_date"`
	LocationName         string     `gorm:"type:varchar(255)" json:"location_name"`
	EngagementNotes      string     `gorm:"type:text" json:"engagement_notes"`
	RejectionRemarks     string     `gorm:"type:text" json:"rejection_remarks"`
	ResubmissionDueDate  *time.Time `json:"resubmission_due_date"`
	FieldCompleted       bool       `gorm:"not null;default:false" json:"field_completed"`
	FieldCompletedAt     *time.Time `json:"field_completed_at"`
	ReportSubmitted      bool       `gorm:"not null;default:false" json:"report_submitted"`
	LastEditedByUserID   *uint64    `json:"last_edited_by_user_id"`
	LastEditedByRole     UserRole   `gorm:"type:varchar(20)" json:"last_edited_by_role"`
	LastEditedByName     string     `gorm:"type:varchar(255)" json:"last_edited_by_name"`
	LastEditedAt         *time.Time `json:"last_edited_at"`
	ProctorNo            *int       `gorm:"uniqueIndex:idx_tasks_project_proctor,priority:2" json:"proctor_no"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`

	// Relations
	Project            Project `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	AssignedTechnician *User   `gorm:"foreignKey:AssignedTechnicianID" json:"assigned_technician,omitempty"`
}

// IsAssignedTo reports whether the task is currently assigned to userID.
func (t Task) IsAssignedTo(userID uint64) bool {
	return t.AssignedTechnicianID != nil && *t.AssignedTechnicianID == userID
}
