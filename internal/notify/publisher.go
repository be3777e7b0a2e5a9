package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// Event is the payload published for each committed inbox notification.
type Event struct {
	NotificationID   uint64    `json:"notification_id"`
	TenantID         uint64    `json:"tenant_id"`
	UserID           uint64    `json:"user_id"`
	Message          string    `json:"message"`
	Type             string    `json:"type"`
	RelatedTaskID    *uint64   `json:"related_task_id,omitempty"`
	RelatedProjectID *uint64   `json:"related_project_id,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// Publisher fans committed notifications out to live listeners.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close()
}

// Subject returns the subject an event for tenantID/userID is published on.
func Subject(prefix string, tenantID, userID uint64) string {
	return fmt.Sprintf("%s.notifications.%d.%d", prefix, tenantID, userID)
}

// NATSPublisher publishes events as JSON over a NATS connection.
type NATSPublisher struct {
	conn   *nats.Conn
	prefix string
}

// NewNATSPublisher connects to url and keeps reconnecting for the life of the process.
func NewNATSPublisher(url, prefix string, logger *zap.Logger) (*NATSPublisher, error) {
	opts := []nats.Option{
		nats.Name("field-report-api"),
		nats.ReconnectWait(2 * time.Second),
		nats.MaxReconnects(-1),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(conn *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", conn.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, prefix: prefix}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, event Event) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal notification event: %w", err)
	}
	subject := Subject(p.prefix, event.TenantID, event.UserID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish to %s: %w", subject, err)
	}
	return nil
}

// Close flushes pending publishes and closes the connection.
func (p *NATSPublisher) Close() {
	if p.conn != nil {
		_ = p.conn.Drain()
	}
}

// NopPublisher drops every event. It is used when no NATS URL is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() {}
