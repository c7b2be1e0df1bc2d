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

const annualLeaveColumns = `
	id, user_id, year, total_hours, used_hours, carried_over_hours,
	granted_date, expiry_date, version, created_at, updated_at`

// AnnualLeaveRepository implements port.AnnualLeaveRepository
type AnnualLeaveRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewAnnualLeaveRepository creates a new annual leave balance repository
func NewAnnualLeaveRepository(db *sql.DB, logger *zap.Logger) port.AnnualLeaveRepository {
	return &AnnualLeaveRepository{
		db:     db,
		logger: logger,
	}
}

// Get retrieves a user's balance for a year
func (r *AnnualLeaveRepository) Get(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error) {
	query := `SELECT ` + annualLeaveColumns + ` FROM annual_leaves WHERE user_id = ? AND year = ?`

	leave, err := scanAnnualLeave(r.getExecutor(ctx).QueryRowContext(ctx, query, userID, year))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get annual leave",
			zap.String("user_id", userID),
			zap.Int("year", year),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get annual leave: %w", err)
	}
	return leave, nil
}

// Upsert creates the balance or overwrites its entitlement. Used hours are kept
// as stored; the caller's UsedHours only seeds a new row.
func (r *AnnualLeaveRepository) Upsert(ctx context.Context, leave *entity.AnnualLeave) error {
	query := `
		INSERT INTO annual_leaves (
			user_id, year, total_hours, used_hours, carried_over_hours,
			granted_date, expiry_date, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT (user_id, year) DO UPDATE SET
			total_hours = excluded.total_hours,
			carried_over_hours = excluded.carried_over_hours,
			granted_date = excluded.granted_date,
			expiry_date = excluded.expiry_date,
			version = annual_leaves.version + 1,
			updated_at = excluded.updated_at
	`

	now := time.Now()
	exec := r.getExecutor(ctx)
	if _, err := exec.ExecContext(ctx, query,
		leave.UserID,
		leave.Year,
		leave.TotalHours,
		leave.UsedHours,
		leave.CarriedOverHours,
		leave.GrantedDate,
		leave.ExpiryDate,
		now,
		now,
	); err != nil {
		r.logger.Error("Failed to upsert annual leave",
			zap.String("user_id", leave.UserID),
			zap.Int("year", leave.Year),
			zap.Error(err))
		return fmt.Errorf("failed to upsert annual leave: %w", err)
	}

	stored, err := scanAnnualLeave(exec.QueryRowContext(ctx,
		`SELECT `+annualLeaveColumns+` FROM annual_leaves WHERE user_id = ? AND year = ?`,
		leave.UserID, leave.Year))
	if err != nil {
		return fmt.Errorf("failed to reload annual leave: %w", err)
	}
	*leave = *stored
	return nil
}

// UpdateUsed writes used hours under an optimistic version check
func (r *AnnualLeaveRepository) UpdateUsed(ctx context.Context, id int64, expectedVersion int64, usedHours decimal.Decimal) error {
	query := `
		UPDATE annual_leaves
		SET used_hours = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, usedHours, time.Now(), id, expectedVersion)
	if err != nil {
		r.logger.Error("Failed to update used hours",
			zap.Int64("id", id),
			zap.String("used_hours", usedHours.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update used hours: %w", err)
	}
	return expectOneRow(result, "annual leave", id)
}

// ListByYear returns every balance of a year ordered by user
func (r *AnnualLeaveRepository) ListByYear(ctx context.Context, year int) ([]*entity.AnnualLeave, error) {
	query := `SELECT ` + annualLeaveColumns + ` FROM annual_leaves WHERE year = ? ORDER BY user_id ASC`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, year)
	if err != nil {
		r.logger.Error("Failed to list annual leaves", zap.Int("year", year), zap.Error(err))
		return nil, fmt.Errorf("failed to list annual leaves: %w", err)
	}
	defer rows.Close()

	var leaves []*entity.AnnualLeave
	for rows.Next() {
		leave, err := scanAnnualLeave(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan annual leave: %w", err)
		}
		leaves = append(leaves, leave)
	}
	return leaves, rows.Err()
}

func scanAnnualLeave(row rowScanner) (*entity.AnnualLeave, error) {
	var leave entity.AnnualLeave
	err := row.Scan(
		&leave.ID,
		&leave.UserID,
		&leave.Year,
		&leave.TotalHours,
		&leave.UsedHours,
		&leave.CarriedOverHours,
		&leave.GrantedDate,
		&leave.ExpiryDate,
		&leave.Version,
		&leave.CreatedAt,
		&leave.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &leave, nil
}

func (r *AnnualLeaveRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.AnnualLeaveRepository = (*AnnualLeaveRepository)(nil)
