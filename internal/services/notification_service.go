package services

import (
	"context"
	"fmt"

	apierrors "github.com/yukikurage/field-report-api/internal/errors"
	"github.com/yukikurage/field-report-api/internal/models"
	"github.com/yukikurage/field-report-api/internal/notify"
	"github.com/yukikurage/field-report-api/internal/repository"
	"github.com/yukikurage/field-report-api/internal/utils"
	"go.uber.org/zap"
)

var ErrNotificationNotFound = fmt.Errorf("%w: notification not found", apierrors.ErrNotFound)

// NotificationService owns the per-user inbox and the live fan-out of new entries.
type NotificationService struct {
	store     *repository.Store
	publisher notify.Publisher
	logger    *zap.Logger
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(store *repository.Store, publisher notify.Publisher, logger *zap.Logger) *NotificationService {
	if publisher == nil {
		publisher = notify.NopPublisher{}
	}
	return &NotificationService{
		store:     store,
		publisher: publisher,
		logger:    logger,
	}
}

// NotifyInput describes one inbox message
type NotifyInput struct {
	TenantID  uint64
	UserID    uint64
	Message   string
	Type      models.NotificationType
	TaskID    *uint64
	ProjectID *uint64
}

// Create writes a notification through repo, which may be transactional.
func (s *NotificationService) Create(ctx context.Context, repo repository.NotificationRepository, input NotifyInput) (*models.Notification, error) {
	if input.Type == "" {
		input.Type = models.NotificationInfo
	}
	notification := &models.Notification{
		TenantID:         input.TenantID,
		UserID:           input.UserID,
		Message:          input.Message,
		Type:             input.Type,
		RelatedTaskID:    input.TaskID,
		RelatedProjectID: input.ProjectID,
	}
	if err := repo.Create(ctx, notification); err != nil {
		return nil, err
	}
	return notification, nil
}

// Publish fans out committed notifications. Failures are logged only.
func (s *NotificationService) Publish(ctx context.Context, notifications []models.Notification) {
	for _, n := range notifications {
		event := notify.Event{
			NotificationID:   n.ID,
			TenantID:         n.TenantID,
			UserID:           n.UserID,
			Message:          n.Message,
			Type:             string(n.Type),
			RelatedTaskID:    n.RelatedTaskID,
			RelatedProjectID: n.RelatedProjectID,
			CreatedAt:        n.CreatedAt,
		}
		if err := s.publisher.Publish(ctx, event); err != nil {
			s.logger.Warn("failed to publish notification",
				zap.Uint64("notification_id", n.ID),
				zap.Uint64("user_id", n.UserID),
				zap.Error(err),
			)
		}
	}
}

// List returns the actor's notifications, newest first
func (s *NotificationService) List(ctx context.Context, actor Actor, unreadOnly bool, params utils.PaginationParams) ([]models.Notification, int64, error) {
	notifications, total, err := s.store.Notifications().ListByUser(ctx, actor.UserID, unreadOnly, params)
	if err != nil {
		return nil, 0, storageError("list notifications", err)
	}
	return notifications, total, nil
}

// UnreadCount counts the actor's unread notifications
func (s *NotificationService) UnreadCount(ctx context.Context, actor Actor) (int64, error) {
	count, err := s.store.Notifications().CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, storageError("count unread notifications", err)
	}
	return count, nil
}

// MarkRead marks one of the actor's notifications as read
func (s *NotificationService) MarkRead(ctx context.Context, actor Actor, notificationID uint64) error {
	found, err := s.store.Notifications().MarkRead(ctx, actor.UserID, notificationID)
	if err != nil {
		return storageError("mark notification read", err)
	}
	if !found {
		return ErrNotificationNotFound
	}
	return nil
}

// MarkAllRead marks every unread notification of the actor as read
func (s *NotificationService) MarkAllRead(ctx context.Context, actor Actor) (int64, error) {
	updated, err := s.store.Notifications().MarkAllRead(ctx, actor.UserID)
	if err != nil {
		return 0, storageError("mark notifications read", err)
	}
	return updated, nil
}
