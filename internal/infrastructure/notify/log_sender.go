package notify

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// LogSender delivers notifications to the application log.
// Used when no messaging transport is configured.
type LogSender struct {
	templates *Templates
	logger    *zap.Logger
}

// NewLogSender creates a sender that only logs rendered messages
func NewLogSender(templates *Templates, logger *zap.Logger) *LogSender {
	return &LogSender{
		templates: templates,
		logger:    logger,
	}
}

// Send implements port.MessageSender
func (s *LogSender) Send(ctx context.Context, n *entity.Notification) error {
	msg, err := s.templates.Render(n)
	if err != nil {
		return fmt.Errorf("failed to render notification %d: %w", n.ID, err)
	}

	s.logger.Info("Notification delivered to log",
		zap.Int64("notification_id", n.ID),
		zap.String("recipient", n.Recipient),
		zap.String("event_type", n.EventType),
		zap.String("title", msg.Title),
		zap.String("body", msg.Body))
	return nil
}

var _ port.MessageSender = (*LogSender)(nil)
