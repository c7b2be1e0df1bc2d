package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// DocumentRepository defines persistence operations for ApprovalDocument.
// Lookups return nil, nil when the row does not exist.
type DocumentRepository interface {
	Create(ctx context.Context, doc *entity.ApprovalDocument) error
	GetByID(ctx context.Context, id int64) (*entity.ApprovalDocument, error)
	GetByDocNumber(ctx context.Context, docNumber string) (*entity.ApprovalDocument, error)
	ListByDrafter(ctx context.Context, drafter string, limit, offset int) ([]*entity.ApprovalDocument, error)

	// UpdateStatus writes status, SubmittedAt and CompletedAt only if the stored
	// version still equals expectedVersion, then sets doc.Version to the next one.
	// A mismatch yields workflow.ErrConcurrentModification.
	UpdateStatus(ctx context.Context, doc *entity.ApprovalDocument, expectedVersion int64) error

	// UpdateDraft rewrites title and content of a DRAFT document under the same version check
	UpdateDraft(ctx context.Context, doc *entity.ApprovalDocument) error

	// SoftDelete hides a DRAFT or terminal document under the same version check
	SoftDelete(ctx context.Context, id int64, expectedVersion int64) error
}

// LineRepository defines persistence operations for ApprovalLine
type LineRepository interface {
	CreateBatch(ctx context.Context, lines []*entity.ApprovalLine) error
	GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalLine, error)
	DeleteByDocumentID(ctx context.Context, documentID int64) error

	// Decide moves a PENDING line to status. A line that is no longer PENDING
	// yields workflow.ErrConcurrentModification.
	Decide(ctx context.Context, lineID int64, status entity.LineStatus, comment, decidedBy string, decidedAt time.Time) error

	// SkipPending cascades every PENDING APPROVAL line of the document to SKIPPED
	SkipPending(ctx context.Context, documentID int64, at time.Time) (int64, error)

	// Delegate sets the delegate of a PENDING line
	Delegate(ctx context.Context, lineID int64, delegateTo string, until *time.Time) error

	// DocumentIDsAwaiting returns PENDING, non-deleted documents where userID is the
	// approver or delegate of a PENDING APPROVAL line. Callers decide which of those
	// lines is actually current.
	DocumentIDsAwaiting(ctx context.Context, userID string) ([]int64, error)
}

// LeaveRequestRepository defines persistence operations for LeaveRequest
type LeaveRequestRepository interface {
	Create(ctx context.Context, req *entity.LeaveRequest) error
	GetByDocumentID(ctx context.Context, documentID int64) (*entity.LeaveRequest, error)
	SetReservedHours(ctx context.Context, documentID int64, hours decimal.Decimal) error
}

// AnnualLeaveRepository defines persistence operations for AnnualLeave balances
type AnnualLeaveRepository interface {
	Get(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error)
	Upsert(ctx context.Context, leave *entity.AnnualLeave) error

	// UpdateUsed writes usedHours if the stored version equals expectedVersion
	UpdateUsed(ctx context.Context, id int64, expectedVersion int64, usedHours decimal.Decimal) error

	ListByYear(ctx context.Context, year int) ([]*entity.AnnualLeave, error)
}

// LedgerEntryRepository appends and reads the leave journal
type LedgerEntryRepository interface {
	Create(ctx context.Context, entry *entity.LedgerEntry) error
	ListByUserYear(ctx context.Context, userID string, year int) ([]*entity.LedgerEntry, error)
	ListByDocumentID(ctx context.Context, documentID int64) ([]*entity.LedgerEntry, error)
}

// HistoryRepository defines persistence operations for ApprovalHistory
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.ApprovalHistory) error
	GetByDocumentID(ctx context.Context, documentID int64) ([]*entity.ApprovalHistory, error)
}

// NotificationRepository defines persistence operations for Notification
type NotificationRepository interface {
	Create(ctx context.Context, notification *entity.Notification) error
	GetByID(ctx context.Context, id int64) (*entity.Notification, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, errorMsg string) error
	// ListRetryable returns FAILED rows with attempts left plus PENDING rows
	// last touched before stuckBefore
	ListRetryable(ctx context.Context, maxAttempts int, stuckBefore time.Time, limit int) ([]*entity.Notification, error)
}

// TransactionManager handles database transactions.
// The transaction travels in the context handed to fn.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
