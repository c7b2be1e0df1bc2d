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

// LineRepository implements port.LineRepository
type LineRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLineRepository creates a new approval line repository
func NewLineRepository(db *sql.DB, logger *zap.Logger) port.LineRepository {
	return &LineRepository{
		db:     db,
		logger: logger,
	}
}

// CreateBatch inserts lines in order and assigns their IDs
func (r *LineRepository) CreateBatch(ctx context.Context, lines []*entity.ApprovalLine) error {
	query := `
		INSERT INTO approval_lines (
			document_id, order_seq, approver, delegated_to, delegated_until,
			approval_type, status, comment, decided_by, decided_at, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	exec := r.getExecutor(ctx)
	now := time.Now()
	for _, line := range lines {
		if line.CreatedAt.IsZero() {
			line.CreatedAt = now
		}
		if line.UpdatedAt.IsZero() {
			line.UpdatedAt = line.CreatedAt
		}

		result, err := exec.ExecContext(ctx, query,
			line.DocumentID,
			line.OrderSeq,
			line.Approver,
			line.DelegatedTo,
			nullableTime(line.DelegatedUntil),
			line.ApprovalType,
			line.Status,
			line.Comment,
			line.DecidedBy,
			nullableTime(line.DecidedAt),
			line.CreatedAt,
			line.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create approval line",
				zap.Int64("document_id", line.DocumentID),
				zap.Int("order_seq", line.OrderSeq),
				zap.Error(err))
			return fmt.Errorf("failed to create line: %w", err)
		}

		id, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get last insert id: %w", err)
		}
		line.ID = id
	}
	return nil
}

// GetByDocumentID returns the document's lines by order_seq
func (r *LineRepository) GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error) {
	query := `
		SELECT id, document_id, order_seq, approver, delegated_to, delegated_until,
			approval_type, status, comment, decided_by, decided_at, created_at, updated_at
		FROM approval_lines
		WHERE document_id = ?
		ORDER BY order_seq ASC, id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, documentID)
	if err != nil {
		r.logger.Error("Failed to get lines", zap.Int64("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get lines: %w", err)
	}
	defer rows.Close()

	var lines []*entity.ApprovalLine
	for rows.Next() {
		var line entity.ApprovalLine
		var delegatedUntil, decidedAt sql.NullTime

		if err := rows.Scan(
			&line.ID,
			&line.DocumentID,
			&line.OrderSeq,
			&line.Approver,
			&line.DelegatedTo,
			&delegatedUntil,
			&line.ApprovalType,
			&line.Status,
			&line.Comment,
			&line.DecidedBy,
			&decidedAt,
			&line.CreatedAt,
			&line.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan line: %w", err)
		}

		line.DelegatedUntil = timePtr(delegatedUntil)
		line.DecidedAt = timePtr(decidedAt)
		lines = append(lines, &line)
	}
	return lines, rows.Err()
}

// DeleteByDocumentID removes every line of a document
func (r *LineRepository) DeleteByDocumentID(ctx context.Context, documentID int64) error {
	_, err := r.getExecutor(ctx).ExecContext(ctx, `DELETE FROM approval_lines WHERE document_id = ?`, documentID)
	if err != nil {
		r.logger.Error("Failed to delete lines", zap.Int64("document_id", documentID), zap.Error(err))
		return fmt.Errorf("failed to delete lines: %w", err)
	}
	return nil
}

// Decide records the outcome of a PENDING line
func (r *LineRepository) Decide(ctx context.Context, lineID int64, status entity.LineStatus, comment, decidedBy string, decidedAt time.Time) error {
	query := `
		UPDATE approval_lines
		SET status = ?, comment = ?, decided_by = ?, decided_at = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, status, comment, decidedBy, decidedAt, decidedAt, lineID,
		entity.LineStatusPending)
	if err != nil {
		r.logger.Error("Failed to decide line",
			zap.Int64("line_id", lineID),
			zap.String("status", status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to decide line: %w", err)
	}
	return expectOneRow(result, "line", lineID)
}

// SkipPending marks the remaining PENDING approval steps SKIPPED
func (r *LineRepository) SkipPending(ctx context.Context, documentID int64, at time.Time) (int64, error) {
	query := `
		UPDATE approval_lines
		SET status = ?, updated_at = ?
		WHERE document_id = ? AND status = ? AND approval_type = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, entity.LineStatusSkipped, at, documentID,
		entity.LineStatusPending, entity.ApprovalTypeApproval)
	if err != nil {
		r.logger.Error("Failed to skip pending lines", zap.Int64("document_id", documentID), zap.Error(err))
		return 0, fmt.Errorf("failed to skip lines: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return n, nil
}

// Delegate sets the delegate of a PENDING line
func (r *LineRepository) Delegate(ctx context.Context, lineID int64, delegateTo string, until *time.Time) error {
	query := `
		UPDATE approval_lines
		SET delegated_to = ?, delegated_until = ?, updated_at = ?
		WHERE id = ? AND status = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, delegateTo, nullableTime(until), time.Now(), lineID,
		entity.LineStatusPending)
	if err != nil {
		r.logger.Error("Failed to delegate line",
			zap.Int64("line_id", lineID),
			zap.String("delegate_to", delegateTo),
			zap.Error(err))
		return fmt.Errorf("failed to delegate line: %w", err)
	}
	return expectOneRow(result, "line", lineID)
}

// DocumentIDsAwaiting lists candidate documents for a user's inbox
func (r *LineRepository) DocumentIDsAwaiting(ctx context.Context, userID string) ([]int64, error) {
	query := `
		SELECT DISTINCT l.document_id
		FROM approval_lines l
		JOIN approval_documents d ON d.id = l.document_id
		WHERE d.status = ? AND d.is_deleted = 0
			AND l.status = ? AND l.approval_type = ?
			AND (l.approver = ? OR l.delegated_to = ?)
		ORDER BY l.document_id ASC
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query,
		entity.DocumentStatusPending, entity.LineStatusPending, entity.ApprovalTypeApproval, userID, userID)
	if err != nil {
		r.logger.Error("Failed to list awaiting documents", zap.String("user_id", userID), zap.Error(err))
		return nil, fmt.Errorf("failed to list awaiting documents: %w", err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan document id: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

func (r *LineRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.LineRepository = (*LineRepository)(nil)
