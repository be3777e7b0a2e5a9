package notify

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func startTestServer(t *testing.T) *server.Server {
	t.Helper()
	ns, err := server.NewServer(&server.Options{
		Host:   "127.0.0.1",
		Port:   -1,
		NoLog:  true,
		NoSigs: true,
	})
	require.NoError(t, err)

	go ns.Start()
	require.True(t, ns.ReadyForConnections(5*time.Second), "nats server not ready")
	t.Cleanup(ns.Shutdown)
	return ns
}

func TestNATSPublisher_PublishesToUserSubject(t *testing.T) {
	ns := startTestServer(t)

	sub, err := nats.Connect(ns.ClientURL())
	require.NoError(t, err)
	defer sub.Close()

	received := make(chan *nats.Msg, 1)
	_, err = sub.ChanSubscribe("fieldreport.notifications.3.9", received)
	require.NoError(t, err)
	require.NoError(t, sub.Flush())

	publisher, err := NewNATSPublisher(ns.ClientURL(), "fieldreport", zap.NewNop())
	require.NoError(t, err)
	defer publisher.Close()

	taskID := uint64(42)
	err = publisher.Publish(context.Background(), Event{
		NotificationID: 1,
		TenantID:       3,
		UserID:         9,
		Message:        "You have been assigned a new Proctor task",
		Type:           "info",
		RelatedTaskID:  &taskID,
	})
	require.NoError(t, err)

	select {
	case msg := <-received:
		var event Event
		require.NoError(t, json.Unmarshal(msg.Data, &event))
		assert.Equal(t, uint64(9), event.UserID)
		assert.Equal(t, "You have been assigned a new Proctor task", event.Message)
		require.NotNil(t, event.RelatedTaskID)
		assert.Equal(t, taskID, *event.RelatedTaskID)
	case <-time.After(5 * time.Second):
		t.Fatal("notification event not received")
	}
}

func TestNATSPublisher_CancelledContext(t *testing.T) {
	ns := startTestServer(t)

	publisher, err := NewNATSPublisher(ns.ClientURL(), "fieldreport", zap.NewNop())
	require.NoError(t, err)
	defer publisher.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, publisher.Publish(ctx, Event{TenantID: 1, UserID: 1}), context.Canceled)
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "acme.notifications.5.11", Subject("acme", 5, 11))
}

func TestNopPublisher(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.Publish(context.Background(), Event{}))
	p.Close()
}
