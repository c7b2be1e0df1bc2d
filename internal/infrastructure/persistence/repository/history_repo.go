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

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sql.DB, logger *zap.Logger) port.HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

// Create creates a new history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.ApprovalHistory) error {
	query := `
		INSERT INTO approval_history (
			document_id, line_id, actor, action, previous_status,
			new_status, comment, timestamp
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	if history.Timestamp.IsZero() {
		history.Timestamp = time.Now()
	}

	var lineID interface{}
	if history.LineID != nil {
		lineID = *history.LineID
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		history.DocumentID,
		lineID,
		history.Actor,
		history.Action,
		history.PreviousStatus,
		history.NewStatus,
		history.Comment,
		history.Timestamp,
	)
	if err != nil {
		r.logger.Error("Failed to create history record",
			zap.Int64("document_id", history.DocumentID),
			zap.String("action", history.Action),
			zap.Error(err))
		return fmt.Errorf("failed to create history: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByDocumentID retrieves all history records for a document in the order they were written
func (r *HistoryRepository) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalHistory, error) {
	query := `
		SELECT id, document_id, line_id, actor, action, previous_status,
			new_status, comment, timestamp
		FROM approval_history
		WHERE document_id = ?
		ORDER BY id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get history by document ID", zap.Int64("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get history: %w", err)
	}
	defer rows.Close()

	var records []*entity.ApprovalHistory
	for rows.Next() {
		var record entity.ApprovalHistory
		var lineID sql.NullInt64
		err := rows.Scan(
			&record.ID,
			&record.DocumentID,
			&lineID,
			&record.Actor,
			&record.Action,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Comment,
			&record.Timestamp,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history record: %w", err)
		}
		if lineID.Valid {
			id := lineID.Int64
			record.LineID = &id
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}

func (r *HistoryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.HistoryRepository = (*HistoryRepository)(nil)
