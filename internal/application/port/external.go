package port

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/domain/event"
)

// LeaveLedger is the per user-year leave accumulator.
// Reserve and Release run inside the caller's transaction when one is in ctx.
type LeaveLedger interface {
	// Reserve debits hours; fails with workflow.ErrInsufficientLeaveBalance if the
	// remaining balance would go negative
	Reserve(ctx context.Context, userID string, year int, hours decimal.Decimal, documentID int64) error

	// Release credits back hours previously reserved for documentID
	Release(ctx context.Context, userID string, year int, hours decimal.Decimal, documentID int64) error

	Balance(ctx context.Context, userID string, year int) (*entity.AnnualLeave, error)

	Grant(ctx context.Context, grant LeaveGrant) (*entity.AnnualLeave, error)
}

// LeaveGrant sets a user's entitlement for a year
type LeaveGrant struct {
	UserID           string
	Year             int
	TotalHours       decimal.Decimal
	CarriedOverHours decimal.Decimal
	GrantedDate      time.Time
	ExpiryDate       time.Time
}

// NotificationRequest asks for a user to be told that something happened on a document
type NotificationRequest struct {
	Recipient  string
	EventType  event.Type
	DocumentID int64
	DocNumber  string
	Summary    string
}

// Notifier accepts fire-and-forget notification requests.
// An error only reports that the request could not be accepted.
type Notifier interface {
	Notify(ctx context.Context, req NotificationRequest) error
}

// MessageSender delivers a rendered notification to its recipient
type MessageSender interface {
	Send(ctx context.Context, notification *entity.Notification) error
}

// DocumentExporter renders documents and ledgers as spreadsheets
type DocumentExporter interface {
	ExportDocument(doc *entity.ApprovalDocument, history []*entity.ApprovalHistory) ([]byte, error)
	ExportLeaveReport(year int, balances []*entity.AnnualLeave) ([]byte, error)
}
