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

const documentColumns = `
	id, doc_number, title, content, doc_type, status, drafter, drafted_at,
	submitted_at, completed_at, is_deleted, version, created_at, updated_at`

// DocumentRepository implements port.DocumentRepository
type DocumentRepository struct {
	db     *sql.DB
	logger *zap.Logger
}

// NewDocumentRepository creates a new document repository
func NewDocumentRepository(db *sql.DB, logger *zap.Logger) port.DocumentRepository {
	return &DocumentRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new document and assigns its ID
func (r *DocumentRepository) Create(ctx context.Context, doc *entity.ApprovalDocument) error {
	query := `
		INSERT INTO approval_documents (
			doc_number, title, content, doc_type, status, drafter, drafted_at,
			submitted_at, completed_at, is_deleted, version, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	now := time.Now()
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = now
	}
	if doc.UpdatedAt.IsZero() {
		doc.UpdatedAt = doc.CreatedAt
	}
	if doc.DraftedAt.IsZero() {
		doc.DraftedAt = doc.CreatedAt
	}
	if doc.Version == 0 {
		doc.Version = 1
	}

	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.DocNumber,
		doc.Title,
		doc.Content,
		doc.DocType,
		doc.Status,
		doc.Drafter,
		doc.DraftedAt,
		nullableTime(doc.SubmittedAt),
		nullableTime(doc.CompletedAt),
		doc.IsDeleted,
		doc.Version,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create document",
			zap.String("doc_number", doc.DocNumber),
			zap.Error(err))
		return fmt.Errorf("failed to create document: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	doc.ID = id
	return nil
}

// GetByID retrieves a document, including soft-deleted ones
func (r *DocumentRepository) GetByID(ctx context.Context, id int64) (*entity.ApprovalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM approval_documents WHERE id = ?`

	doc, err := scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document", zap.Int64("id", id), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// GetByDocNumber retrieves a document by its public number
func (r *DocumentRepository) GetByDocNumber(ctx context.Context, docNumber string) (*entity.ApprovalDocument, error) {
	query := `SELECT ` + documentColumns + ` FROM approval_documents WHERE doc_number = ?`

	doc, err := scanDocument(r.getExecutor(ctx).QueryRowContext(ctx, query, docNumber))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get document by number", zap.String("doc_number", docNumber), zap.Error(err))
		return nil, fmt.Errorf("failed to get document: %w", err)
	}
	return doc, nil
}

// ListByDrafter returns the drafter's visible documents, newest first
func (r *DocumentRepository) ListByDrafter(ctx context.Context, drafter string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	query := `SELECT ` + documentColumns + `
		FROM approval_documents
		WHERE drafter = ? AND is_deleted = 0
		ORDER BY id DESC
		LIMIT ? OFFSET ?
	`

	rows, err := r.getExecutor(ctx).QueryContext(ctx, query, drafter, limit, offset)
	if err != nil {
		r.logger.Error("Failed to list documents", zap.String("drafter", drafter), zap.Error(err))
		return nil, fmt.Errorf("failed to list documents: %w", err)
	}
	defer rows.Close()

	var docs []*entity.ApprovalDocument
	for rows.Next() {
		doc, err := scanDocument(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan document: %w", err)
		}
		docs = append(docs, doc)
	}
	return docs, rows.Err()
}

// UpdateStatus writes the lifecycle fields under an optimistic version check
func (r *DocumentRepository) UpdateStatus(ctx context.Context, doc *entity.ApprovalDocument, expectedVersion int64) error {
	query := `
		UPDATE approval_documents
		SET status = ?, submitted_at = ?, completed_at = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ?
	`

	now := time.Now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query,
		doc.Status,
		nullableTime(doc.SubmittedAt),
		nullableTime(doc.CompletedAt),
		now,
		doc.ID,
		expectedVersion,
	)
	if err != nil {
		r.logger.Error("Failed to update document status",
			zap.Int64("id", doc.ID),
			zap.String("status", doc.Status.String()),
			zap.Error(err))
		return fmt.Errorf("failed to update document status: %w", err)
	}
	if err := expectOneRow(result, "document", doc.ID); err != nil {
		return err
	}

	doc.Version = expectedVersion + 1
	doc.UpdatedAt = now
	return nil
}

// UpdateDraft rewrites title and content of a DRAFT document
func (r *DocumentRepository) UpdateDraft(ctx context.Context, doc *entity.ApprovalDocument) error {
	query := `
		UPDATE approval_documents
		SET title = ?, content = ?, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND status = ?
	`

	now := time.Now()
	result, err := r.getExecutor(ctx).ExecContext(ctx, query, doc.Title, doc.Content, now, doc.ID, doc.Version,
		entity.DocumentStatusDraft)
	if err != nil {
		r.logger.Error("Failed to update draft", zap.Int64("id", doc.ID), zap.Error(err))
		return fmt.Errorf("failed to update draft: %w", err)
	}
	if err := expectOneRow(result, "draft", doc.ID); err != nil {
		return err
	}

	doc.Version++
	doc.UpdatedAt = now
	return nil
}

// SoftDelete hides a DRAFT or terminal document whose stored version still equals
// expectedVersion. A PENDING or changed row yields workflow.ErrConcurrentModification.
func (r *DocumentRepository) SoftDelete(ctx context.Context, id int64, expectedVersion int64) error {
	query := `
		UPDATE approval_documents
		SET is_deleted = 1, version = version + 1, updated_at = ?
		WHERE id = ? AND version = ? AND is_deleted = 0
		  AND status IN (?, ?, ?, ?)
	`

	result, err := r.getExecutor(ctx).ExecContext(ctx, query, time.Now(), id, expectedVersion,
		entity.DocumentStatusDraft, entity.DocumentStatusApproved,
		entity.DocumentStatusRejected, entity.DocumentStatusCanceled)
	if err != nil {
		r.logger.Error("Failed to soft delete document", zap.Int64("id", id), zap.Error(err))
		return fmt.Errorf("failed to delete document: %w", err)
	}
	return expectOneRow(result, "document", id)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanDocument(row rowScanner) (*entity.ApprovalDocument, error) {
	var doc entity.ApprovalDocument
	var submittedAt, completedAt sql.NullTime

	err := row.Scan(
		&doc.ID,
		&doc.DocNumber,
		&doc.Title,
		&doc.Content,
		&doc.DocType,
		&doc.Status,
		&doc.Drafter,
		&doc.DraftedAt,
		&submittedAt,
		&completedAt,
		&doc.IsDeleted,
		&doc.Version,
		&doc.CreatedAt,
		&doc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	doc.SubmittedAt = timePtr(submittedAt)
	doc.CompletedAt = timePtr(completedAt)
	return &doc, nil
}

func (r *DocumentRepository) getExecutor(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db)
}

// Verify interface compliance
var _ port.DocumentRepository = (*DocumentRepository)(nil)
