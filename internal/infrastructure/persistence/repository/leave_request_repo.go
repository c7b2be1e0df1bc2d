package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/infrastructure/persistence/sqlite"
)

// LeaveRequestRepository implements port.LeaveRequestRepository
type LeaveRequestRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLeaveRequestRepository creates a new leave request repository
func NewLeaveRequestRepository(db *sql.DB, logger *zap.Logger) port.LeaveRequestRepository {
	return &LeaveRequestRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts the leave detail of a document
func (r *LeaveRequestRepository) Create(ctx context.Context, req *entity.LeaveRequest) error {
	query := `
		INSERT INTO leave_requests (
			document_id, leave_type, start_date, end_date,
			leave_days, leave_hours, reserved_hours, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		req.DocumentID,
		req.LeaveType,
		req.StartDate,
		req.EndDate,
		req.LeaveDays,
		req.LeaveHours,
		req.ReservedHours,
		req.CreatedAt,
		req.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create leave request",
			zap.Int64("document_id", req.DocumentID),
			zap.Error(err))
		return fmt.Errorf("failed to create leave request: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	req.ID = id
	return nil
}

// GetByDocumentID retrieves the leave detail of a document
func (r *LeaveRequestRepository) GetByDocumentID(ctx context.Context, documentID int64) (*entity.LeaveRequest, error) {
	query := `
		SELECT id, document_id, leave_type, start_date, end_date,
			leave_days, leave_hours, reserved_hours, created_at, updated_at
		FROM leave_requests
		WHERE document_id = ?
	`

	var req entity.LeaveRequest
	err := r.getExecutor(ctx).QueryRowContext(ctx, query, documentID).Scan(
		&req.ID,
		&req.DocumentID,
		&req.LeaveType,
		&req.StartDate,
		&req.EndDate,
		&req.LeaveDays,
		&req.LeaveHours,
		&req.ReservedHours,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get leave request", zap.Int64("document_id", documentID), zap.Error(err))
		return nil, fmt.Errorf("failed to get leave request: %w", err)
	}
	return &req, nil
}

// SetReservedHours records how many hours the ledger currently holds for the document
func (r *LeaveRequestRepository) SetReservedHours(ctx context.Context, documentID int64, hours decimal.Decimal) error {
	query := `UPDATE leave_requests SET reserved_hours = ?, updated_at = ? WHERE document_id = ?`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, hours, time.Now(), documentID)
	if err != nil {
		r.logger.Error("Failed to set reserved hours",
			zap.Int64("document_id", documentID),
			zap.String("hours", hours.String()),
			zap.Error(err))
		return fmt.Errorf("failed to set reserved hours: %w", err)
	}
	return expectOneRow(result, "leave request of document", documentID)
}

func (r *LeaveRequestRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.LeaveRequestRepository = (*LeaveRequestRepository)(nil)
