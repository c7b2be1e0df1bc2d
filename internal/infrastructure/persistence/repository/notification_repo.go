package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/infrastructure/persistence/sqlite"
)

const notificationColumns = `
	id, document_id, doc_number, recipient, event_type, summary, status,
	attempts, error_message, sent_at, created_at, updated_at`

// NotificationRepository implements port.NotificationRepository
type NotificationRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewNotificationRepository creates a new notification repository
func NewNotificationRepository(db *sql.DB, logger *zap.Logger) port.NotificationRepository {
	return &NotificationRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new outbox record
func (r *NotificationRepository) Create(ctx context.Context, notification *entity.Notification) error {
	query := `
		INSERT INTO notifications (
			document_id, doc_number, recipient, event_type, summary, status,
			attempts, error_message, sent_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if notification.CreatedAt.IsZero() {
		notification.CreatedAt = now
	}
	notification.UpdatedAt = now
	if notification.Status == "" {
		notification.Status = entity.NotificationStatusPending
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		notification.DocumentID,
		notification.DocNumber,
		notification.Recipient,
		notification.EventType,
		notification.Summary,
		notification.Status,
		notification.Attempts,
		notification.ErrorMessage,
		nullableTime(notification.SentAt),
		notification.CreatedAt,
		notification.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create notification",
			zap.Int64("document_id", notification.DocumentID),
			zap.String("recipient", notification.Recipient),
			zap.Error(err))
		return fmt.Errorf("failed to create notification: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	notification.ID = id
	return nil
}

// GetByID retrieves a notification by ID
func (r *NotificationRepository) GetByID(ctx context.Context, id int64) (*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + ` FROM notifications WHERE id = ?`

	notification, err := scanNotification(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get notification", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get notification: %w", err)
	}
	return notification, nil
}

// MarkSent marks notification as sent
func (r *NotificationRepository) MarkSent(ctx context.Context, id int64) error {
	query := `
		UPDATE notifications
		SET status = ?, attempts = attempts + 1, error_message = '', sent_at = ?, updated_at = ?
		WHERE id = ?
	`

	now := time.Now()
	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, entity.NotificationStatusSent, now, now, id); err != nil {
		r.logger.Error("Failed to mark notification as sent", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark as sent: %w", err)
	}
	return nil
}

// MarkFailed records a failed delivery attempt
func (r *NotificationRepository) MarkFailed(ctx context.Context, id int64, errorMsg string) error {
	query := `
		UPDATE notifications
		SET status = ?, attempts = attempts + 1, error_message = ?, updated_at = ?
		WHERE id = ?
	`

	if _, err := r.getExecutor(ctx).ExecContext(ctx, query, entity.NotificationStatusFailed, errorMsg, time.Now(), id); err != nil {
		r.logger.Error("Failed to mark notification as failed", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to mark as failed: %w", err)
	}
	return nil
}

// ListRetryable returns notifications that have attempts left, oldest first: every
// FAILED row, and PENDING rows not touched since stuckBefore. The latter lost their
// queued delivery to a shutdown or crash.
func (r *NotificationRepository) ListRetryable(ctx context.Context, maxAttempts int, stuckBefore time.Time, limit int) ([]*entity.Notification, error) {
	query := `SELECT ` + notificationColumns + `
		FROM notifications
		WHERE attempts < ?
		  AND (status = ? OR (status = ? AND updated_at < ?))
		ORDER BY id ASC
		LIMIT ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, maxAttempts,
		entity.NotificationStatusFailed, entity.NotificationStatusPending, stuckBefore, limit)
	if err != nil {
		r.logger.Error("Failed to list retryable notifications", zap.Error(err))
		return nil, fmt.Errorf("failed to list notifications: %w", err)
	}
	defer rows.Close()

	var notifications []*entity.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan notification: %w", err)
		}
		notifications = append(notifications, notification)
	}
	return notifications, rows.Err()
}

func scanNotification(row rowScanner) (*entity.Notification, error) {
	var notification entity.Notification
	var sentAt sql.NullTime

	err := row.Scan(
		&notification.ID,
		&notification.DocumentID,
		&notification.DocNumber,
		&notification.Recipient,
		&notification.EventType,
		&notification.Summary,
		&notification.Status,
		&notification.Attempts,
		&notification.ErrorMessage,
		&sentAt,
		&notification.CreatedAt,
		&notification.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	notification.SentAt = timePtr(sentAt)
	return &notification, nil
}

func (r *NotificationRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.NotificationRepository = (*NotificationRepository)(nil)
