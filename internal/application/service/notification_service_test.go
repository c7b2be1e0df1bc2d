package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/domain/event"
)

func newNotificationFixture() (NotificationService, *mockNotificationRepo, *mockSender, *syncDispatcher) {
	repo := newMockNotificationRepo()
	sender := &mockSender{}
	d := &syncDispatcher{}
	svc := NewNotificationService(repo, sender, d, 3, time.Minute, &mockLogger{})
	d.Subscribe(event.TypeNotificationQueued, "deliver", svc.HandleQueued)
	return svc, repo, sender, d
}

func approvalRequest() port.NotificationRequest {
	return port.NotificationRequest{
		Recipient:  "a1",
		EventType:  event.TypeApprovalRequested,
		DocumentID: 7,
		DocNumber:  "APV-20250310-0000ABCD",
		Summary:    "Budget",
	}
}

func TestNotificationService_Notify(t *testing.T) {
	svc, repo, sender, d := newNotificationFixture()

	require.NoError(t, svc.Notify(context.Background(), approvalRequest()))

	require.Len(t, d.events, 1)
	assert.Equal(t, event.TypeNotificationQueued, d.events[0].Type)
	assert.Equal(t, int64(1), d.events[0].GetPayloadInt("notification_id"))

	require.Len(t, sender.sent, 1)
	assert.Equal(t, "a1", sender.sent[0].Recipient)
	assert.Equal(t, "approval.requested", sender.sent[0].EventType)
	assert.Equal(t, []int64{1}, repo.sent)

	stored, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, entity.NotificationStatusSent, stored.Status)
}

func TestNotificationService_Notify_SendFailureIsRecorded(t *testing.T) {
	svc, repo, sender, _ := newNotificationFixture()
	sender.sendFunc = func(ctx context.Context, n *entity.Notification) error {
		return errors.New("lark unavailable")
	}

	// the request is accepted even though delivery fails
	require.NoError(t, svc.Notify(context.Background(), approvalRequest()))

	assert.Equal(t, []int64{1}, repo.failed)
	stored, _ := repo.GetByID(context.Background(), 1)
	assert.Equal(t, entity.NotificationStatusFailed, stored.Status)
	assert.Equal(t, 1, stored.Attempts)
	assert.Equal(t, "lark unavailable", stored.ErrorMessage)
}

func TestNotificationService_Notify_Validation(t *testing.T) {
	svc, repo, _, d := newNotificationFixture()

	req := approvalRequest()
	req.Recipient = ""
	assert.ErrorIs(t, svc.Notify(context.Background(), req), ErrInvalidInput)

	req = approvalRequest()
	req.EventType = "document.archived"
	assert.ErrorIs(t, svc.Notify(context.Background(), req), ErrInvalidInput)

	repo.createErr = errors.New("disk full")
	assert.Error(t, svc.Notify(context.Background(), approvalRequest()))
	assert.Empty(t, d.events)
}

func TestNotificationService_HandleQueued(t *testing.T) {
	t.Run("skips already sent notifications", func(t *testing.T) {
		svc, repo, sender, _ := newNotificationFixture()
		n := &entity.Notification{Recipient: "a1", Status: entity.NotificationStatusSent}
		require.NoError(t, repo.Create(context.Background(), n))

		evt := event.NewEvent(event.TypeNotificationQueued, 7, map[string]interface{}{"notification_id": n.ID})
		require.NoError(t, svc.HandleQueued(context.Background(), evt))
		assert.Empty(t, sender.sent)
	})

	t.Run("missing id", func(t *testing.T) {
		svc, _, _, _ := newNotificationFixture()
		evt := event.NewEvent(event.TypeNotificationQueued, 7, nil)
		assert.Error(t, svc.HandleQueued(context.Background(), evt))
	})

	t.Run("unknown notification", func(t *testing.T) {
		svc, _, _, _ := newNotificationFixture()
		evt := event.NewEvent(event.TypeNotificationQueued, 7, map[string]interface{}{"notification_id": int64(404)})
		assert.Error(t, svc.HandleQueued(context.Background(), evt))
	})
}

func TestNotificationService_RetryFailed(t *testing.T) {
	svc, repo, sender, _ := newNotificationFixture()

	ok := &entity.Notification{Recipient: "a1", EventType: "document.approved", Status: entity.NotificationStatusFailed}
	bad := &entity.Notification{Recipient: "ghost", EventType: "document.approved", Status: entity.NotificationStatusFailed}
	require.NoError(t, repo.Create(context.Background(), ok))
	require.NoError(t, repo.Create(context.Background(), bad))
	repo.retryable = []*entity.Notification{ok, bad}

	sender.sendFunc = func(ctx context.Context, n *entity.Notification) error {
		if n.Recipient == "ghost" {
			return errors.New("user not found")
		}
		return nil
	}

	delivered, err := svc.RetryFailed(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	assert.Equal(t, []int64{ok.ID}, repo.sent)
	assert.Equal(t, []int64{bad.ID}, repo.failed)
	assert.WithinDuration(t, time.Now().Add(-time.Minute), repo.stuckBefore, 5*time.Second)
}

func TestNotificationService_RetryFailed_PicksUpStuckPending(t *testing.T) {
	svc, repo, sender, _ := newNotificationFixture()

	// queued while the dispatcher was already closed, so no delivery ran
	stuck := &entity.Notification{Recipient: "a1", EventType: "approval.requested", Status: entity.NotificationStatusPending}
	require.NoError(t, repo.Create(context.Background(), stuck))
	repo.retryable = []*entity.Notification{stuck}

	delivered, err := svc.RetryFailed(context.Background(), 10)
	require.NoError(t, err)
	assert.Equal(t, 1, delivered)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, stuck.ID, sender.sent[0].ID)
	assert.Equal(t, entity.NotificationStatusSent, repo.notifications[stuck.ID].Status)
}
