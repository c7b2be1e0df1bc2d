package service

import (
	"context"
	"fmt"
	"time"

	"github.com/garyjia/groupware-approval/internal/application/dispatcher"
	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/domain/event"
)

// NotificationService persists notification requests and delivers them.
// It implements port.Notifier for the approval engine.
type NotificationService interface {
	port.Notifier

	// HandleQueued delivers the notification referenced by a notification.queued event
	HandleQueued(ctx context.Context, evt *event.Event) error

	// Deliver sends one notification and records the outcome
	Deliver(ctx context.Context, notification *entity.Notification) error

	// RetryFailed redelivers FAILED notifications that still have attempts left,
	// and PENDING ones whose queued delivery never ran within the grace period
	RetryFailed(ctx context.Context, limit int) (int, error)
}

type notificationServiceImpl struct {
	notificationRepo port.NotificationRepository
	sender           port.MessageSender
	dispatcher       dispatcher.Dispatcher
	maxAttempts      int
	pendingGrace     time.Duration
	logger           Logger
	now              func() time.Time
}

// NewNotificationService creates a new NotificationService
func NewNotificationService(
	notificationRepo port.NotificationRepository,
	sender port.MessageSender,
	d dispatcher.Dispatcher,
	maxAttempts int,
	pendingGrace time.Duration,
	logger Logger,
) NotificationService {
	if maxAttempts <= 0 {
		maxAttempts = 3
	}
	if pendingGrace <= 0 {
		pendingGrace = 5 * time.Minute
	}
	return &notificationServiceImpl{
		notificationRepo: notificationRepo,
		sender:           sender,
		dispatcher:       d,
		maxAttempts:      maxAttempts,
		pendingGrace:     pendingGrace,
		logger:           logger,
		now:              time.Now,
	}
}

// Notify records the request and queues delivery in the background
func (s *notificationServiceImpl) Notify(ctx context.Context, req port.NotificationRequest) error {
	if req.Recipient == "" {
		return fmt.Errorf("%w: notification recipient is required", ErrInvalidInput)
	}
	if !req.EventType.IsValid() {
		return fmt.Errorf("%w: unknown notification event %q", ErrInvalidInput, req.EventType)
	}

	now := s.now()
	notification := &entity.Notification{
		DocumentID: req.DocumentID,
		DocNumber:  req.DocNumber,
		Recipient:  req.Recipient,
		EventType:  req.EventType.String(),
		Summary:    req.Summary,
		Status:     entity.NotificationStatusPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}

	if err := s.notificationRepo.Create(ctx, notification); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}

	evt := event.NewEvent(event.TypeNotificationQueued, req.DocumentID, map[string]interface{}{
		"notification_id": notification.ID,
		"event_type":      req.EventType.String(),
	})
	s.dispatcher.DispatchAsync(ctx, evt)

	s.logger.Info("Notification queued",
		"notification_id", notification.ID,
		"document_id", req.DocumentID,
		"recipient", req.Recipient,
		"event_type", req.EventType.String())
	return nil
}

func (s *notificationServiceImpl) HandleQueued(ctx context.Context, evt *event.Event) error {
	id := evt.GetPayloadInt("notification_id")
	if id == 0 {
		return fmt.Errorf("event %s carries no notification_id", evt.ID)
	}

	notification, err := s.notificationRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get notification: %w", err)
	}
	if notification == nil {
		return fmt.Errorf("notification %d not found", id)
	}
	if notification.Status == entity.NotificationStatusSent {
		return nil
	}

	return s.Deliver(ctx, notification)
}

func (s *notificationServiceImpl) Deliver(ctx context.Context, notification *entity.Notification) error {
	if err := s.sender.Send(ctx, notification); err != nil {
		s.logger.Error("Failed to send notification",
			"notification_id", notification.ID,
			"recipient", notification.Recipient,
			"attempts", notification.Attempts+1,
			"error", err)

		if markErr := s.notificationRepo.MarkFailed(ctx, notification.ID, err.Error()); markErr != nil {
			s.logger.Error("Failed to mark notification failed", "notification_id", notification.ID, "error", markErr)
		}
		notification.Status = entity.NotificationStatusFailed
		notification.Attempts++
		notification.ErrorMessage = err.Error()
		return fmt.Errorf("send notification %d: %w", notification.ID, err)
	}

	if err := s.notificationRepo.MarkSent(ctx, notification.ID); err != nil {
		return fmt.Errorf("mark notification sent: %w", err)
	}
	sentAt := s.now()
	notification.Status = entity.NotificationStatusSent
	notification.Attempts++
	notification.SentAt = &sentAt

	s.logger.Info("Notification sent",
		"notification_id", notification.ID,
		"recipient", notification.Recipient,
		"event_type", notification.EventType)
	return nil
}

func (s *notificationServiceImpl) RetryFailed(ctx context.Context, limit int) (int, error) {
	stuckBefore := s.now().Add(-s.pendingGrace)
	pending, err := s.notificationRepo.ListRetryable(ctx, s.maxAttempts, stuckBefore, limit)
	if err != nil {
		return 0, fmt.Errorf("list retryable notifications: %w", err)
	}

	delivered := 0
	for _, n := range pending {
		if ctx.Err() != nil {
			return delivered, ctx.Err()
		}
		if err := s.Deliver(ctx, n); err == nil {
			delivered++
		}
	}

	if len(pending) > 0 {
		s.logger.Info("Notification retry pass finished", "candidates", len(pending), "delivered", delivered)
	}
	return delivered, nil
}
