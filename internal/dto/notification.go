package dto

import (
	"time"

	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/utils"
)

// NotificationDTO represents an inbox entry in API responses
type NotificationDTO struct {
	ID               uint64                  `json:"id"`
	Message          string                  `json:"message"`
	Type             models.NotificationType `json:"type"`
	IsRead           bool                    `json:"is_read"`
	RelatedTaskID    *uint64                 `json:"related_task_id,omitempty"`
	RelatedProjectID *uint64                 `json:"related_project_id,omitempty"`
	CreatedAt        time.Time               `json:"created_at"`
}

// NotificationListResponse represents a paginated inbox
type NotificationListResponse struct {
	Notifications []NotificationDTO        `json:"notifications"`
	Pagination    utils.PaginationResponse `json:"pagination"`
}

func ToNotificationDTO(n models.Notification) NotificationDTO {
	return NotificationDTO{
		ID:               n.ID,
		Message:          n.Message,
		Type:             n.Type,
		IsRead:           n.IsRead,
		RelatedTaskID:    n.RelatedTaskID,
		RelatedProjectID: n.RelatedProjectID,
		CreatedAt:        n.CreatedAt,
	}
}

func ToNotificationListResponse(notifications []models.Notification, params utils.PaginationParams, total int64) NotificationListResponse {
	items := make([]NotificationDTO, len(notifications))
	for i, n := range notifications {
		items[i] = ToNotificationDTO(n)
	}
	return NotificationListResponse{
		Notifications: items,
		Pagination:    utils.NewPaginationResponse(params, total),
	}
}
