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

// LedgerEntryRepository implements port.LedgerEntryRepository
type LedgerEntryRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewLedgerEntryRepository creates a new leave journal repository
func NewLedgerEntryRepository(db *sql.DB, logger *zap.Logger) port.LedgerEntryRepository {
	return &LedgerEntryRepository{
		db:     db,
		logger: logger,
	}
}

// Create appends a journal row
func (r *LedgerEntryRepository) Create(ctx context.Context, entry *entity.LedgerEntry) error {
	query := `
		INSERT INTO leave_ledger_entries (user_id, year, document_id, entry_type, hours, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now()
	}

	var documentID interface{}
	if entry.DocumentID != nil {
		documentID = *entry.DocumentID
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		entry.UserID,
		entry.Year,
		documentID,
		entry.EntryType,
		entry.Hours,
		entry.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create ledger entry",
			zap.String("user_id", entry.UserID),
			zap.String("entry_type", string(entry.EntryType)),
			zap.Error(err))
		return fmt.Errorf("failed to create ledger entry: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	entry.ID = id
	return nil
}

// ListByUserYear returns a user's journal for a year in insertion order
func (r *LedgerEntryRepository) ListByUserYear(ctx context.Context, userID string, year int) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, user_id, year, document_id, entry_type, hours, created_at
		FROM leave_ledger_entries
		WHERE user_id = ? AND year = ?
		ORDER BY id ASC
	`
	return r.list(ctx, query, userID, year)
}

// ListByDocumentID returns the journal rows caused by one document
func (r *LedgerEntryRepository) ListByDocumentID(ctx context.Context, documentID int64) ([]*entity.LedgerEntry, error) {
	query := `
		SELECT id, user_id, year, document_id, entry_type, hours, created_at
		FROM leave_ledger_entries
		WHERE document_id = ?
		ORDER BY id ASC
	`
	return r.list(ctx, query, documentID)
}

func (r *LedgerEntryRepository) list(ctx context.Context, query string, args ...interface{}) ([]*entity.LedgerEntry, error) {
	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list ledger entries", zap.Error(err))
		return nil, fmt.Errorf("failed to list ledger entries: %w", err)
	}
	defer rows.Close()

	var entries []*entity.LedgerEntry
	for rows.Next() {
		var entry entity.LedgerEntry
		var documentID sql.NullInt64
		if err := rows.Scan(
			&entry.ID,
			&entry.UserID,
			&entry.Year,
			&documentID,
			&entry.EntryType,
			&entry.Hours,
			&entry.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		if documentID.Valid {
			id := documentID.Int64
			entry.DocumentID = &id
		}
		entries = append(entries, &entry)
	}
	return entries, rows.Err()
}

func (r *LedgerEntryRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.LedgerEntryRepository = (*LedgerEntryRepository)(nil)
