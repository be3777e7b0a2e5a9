package models

import "time"

type NotificationType string

const (
	NotificationInfo    NotificationType = "info"
	NotificationWarning NotificationType = "warning"
	NotificationSuccess NotificationType = "success"
)

type Notification struct {
	ID               uint64           `gorm:"primarykey" json:"id"`
	TenantID         uint64           `gorm:"not null;index" json:"tenant_id"`
	UserID           uint64           `gorm:"not null;index" json:"user_id"`
	Message          string           `gorm:"type:text;not null" json:"message"`
	Type             NotificationType `gorm:"type:varchar(20);not null;default:'info'" json:"type"`
	IsRead           bool             `gorm:"not null;default:false" json:"is_read"`
	RelatedTaskID    *uint64          `json:"related_task_id,omitempty"`
	RelatedProjectID *uint64          `json:"related_project_id,omitempty"`
	CreatedAt        time.Time        `gorm:"index" json:"created_at"`
}
