package workflow

import (
	"context"

	"github.com/garyjia/groupware-approval/internal/domain/entity"
)

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// DecideCommand carries an approver's decision on one line
type DecideCommand struct {
	DocumentID int64
	LineID     int64
	CallerID   string
	Outcome    entity.Decision
	Comment    string
}

// ApprovalEngine drives documents through their approval chain.
// Every operation is atomic: on error nothing is persisted.
type ApprovalEngine interface {
	// Submit moves a DRAFT document to PENDING and reserves leave for LEAVE documents
	Submit(ctx context.Context, documentID int64) (*entity.ApprovalDocument, error)

	// Decide records the acting approver's decision on the current step
	Decide(ctx context.Context, cmd DecideCommand) (*entity.ApprovalDocument, error)

	// Cancel withdraws a DRAFT or PENDING document on behalf of its drafter
	Cancel(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error)

	// CurrentPendingCount counts documents whose current step awaits userID
	CurrentPendingCount(ctx context.Context, userID string) (int, error)

	// PendingFor lists documents whose current step awaits userID
	PendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error)
}
