package models

import "time"

type HistoryAction string

const (
	HistoryActionSubmitted     HistoryAction = "SUBMITTED"
	HistoryActionApproved      HistoryAction = "APPROVED"
	HistoryActionRejected      HistoryAction = "REJECTED"
	HistoryActionReassigned    HistoryAction = "REASSIGNED"
	HistoryActionStatusChanged HistoryAction = "STATUS_CHANGED"
)

// TaskHistory is an append-only audit row. Rows are never updated or deleted.
type TaskHistory struct {
	ID          uint64        `gorm:"primarykey" json:"id"`
	TaskID      uint64        `gorm:"not null;index" json:"task_id"`
	TenantID    uint64        `gorm:"not null;index" json:"tenant_id"`
	Timestamp   time.Time     `gorm:"not null;index" json:"timestamp"`
	ActorRole   UserRole      `gorm:"type:varchar(20);not null" json:"actor_role"`
	ActorName   string        `gorm:"type:varchar(255);not null" json:"actor_name"`
	ActorUserID uint64        `gorm:"not null" json:"actor_user_id"`
	ActionType  HistoryAction `gorm:"type:varchar(32);not null" json:"action_type"`
	Note        string        `gorm:"type:text" json:"note,omitempty"`
}

func (TaskHistory) TableName() string {
	return "task_history"
}
