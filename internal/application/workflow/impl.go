package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/domain/event"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
)

// ErrInvalidOutcome is returned when a decision is neither APPROVED nor REJECTED.
// It is a caller input error, not a state conflict.
var ErrInvalidOutcome = errors.New("outcome must be APPROVED or REJECTED")

// engineImpl is the concrete implementation of ApprovalEngine
type engineImpl struct {
	docRepo     port.DocumentRepository
	lineRepo    port.LineRepository
	leaveRepo   port.LeaveRequestRepository
	historyRepo port.HistoryRepository
	ledger      port.LeaveLedger
	notifier    port.Notifier
	txManager   port.TransactionManager

	logger Logger
	now    func() time.Time
	locks  *docLocker
}

// EngineOption configures the approval engine
type EngineOption func(*engineImpl)

// WithClock sets the time source used for decidedAt, submittedAt and delegation expiry
func WithClock(now func() time.Time) EngineOption {
	return func(e *engineImpl) {
		e.now = now
	}
}

// WithLogger sets the logger
func WithLogger(logger Logger) EngineOption {
	return func(e *engineImpl) {
		e.logger = logger
	}
}

// NewEngine creates a new approval engine
func NewEngine(
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	leaveRepo port.LeaveRequestRepository,
	historyRepo port.HistoryRepository,
	ledger port.LeaveLedger,
	notifier port.Notifier,
	txManager port.TransactionManager,
	opts ...EngineOption,
) ApprovalEngine {
	e := &engineImpl{
		docRepo:     docRepo,
		lineRepo:    lineRepo,
		leaveRepo:   leaveRepo,
		historyRepo: historyRepo,
		ledger:      ledger,
		notifier:    notifier,
		txManager:   txManager,
		logger:      nopLogger{},
		now:         time.Now,
		locks:       newDocLocker(),
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// Submit moves a DRAFT document to PENDING
func (e *engineImpl) Submit(ctx context.Context, documentID int64) (*entity.ApprovalDocument, error) {
	unlock := e.locks.lock(documentID)
	defer unlock()

	var (
		doc     *entity.ApprovalDocument
		notices []port.NotificationRequest
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := e.loadDocument(txCtx, documentID)
		if err != nil {
			return err
		}

		machine := NewDocumentStateMachine(d.Status)
		if !machine.CanFire(domainwf.TriggerSubmit) {
			return fmt.Errorf("%w: document %d is %s, only DRAFT can be submitted", domainwf.ErrInvalidState, d.ID, d.Status)
		}
		if err := domainwf.ValidateSequence(d.Lines); err != nil {
			return err
		}

		previous := d.Status
		if err := machine.Fire(txCtx, domainwf.TriggerSubmit); err != nil {
			return err
		}

		now := e.now()
		if d.IsLeave() {
			if err := e.reserveLeave(txCtx, d); err != nil {
				return err
			}
		}

		d.Status = machine.State()
		d.SubmittedAt = &now
		d.UpdatedAt = now
		if err := e.persistDocument(txCtx, d); err != nil {
			return err
		}

		if err := e.recordHistory(txCtx, d, nil, d.Drafter, domainwf.TriggerSubmit, previous, "", now); err != nil {
			return err
		}

		doc = d
		notices = submitNotices(d, now)
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Document submitted", "document_id", doc.ID, "doc_number", doc.DocNumber, "drafter", doc.Drafter)
	e.notify(ctx, notices)
	return doc, nil
}

// Decide records an approver's decision on the current step
func (e *engineImpl) Decide(ctx context.Context, cmd DecideCommand) (*entity.ApprovalDocument, error) {
	if !cmd.Outcome.IsValid() {
		return nil, fmt.Errorf("%w: got %q", ErrInvalidOutcome, cmd.Outcome)
	}

	unlock := e.locks.lock(cmd.DocumentID)
	defer unlock()

	var (
		doc     *entity.ApprovalDocument
		notices []port.NotificationRequest
	)

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := e.loadDocument(txCtx, cmd.DocumentID)
		if err != nil {
			return err
		}

		if d.Status != entity.DocumentStatusPending {
			return fmt.Errorf("%w: document %d is %s", domainwf.ErrInvalidState, d.ID, d.Status)
		}

		line := d.Line(cmd.LineID)
		if line == nil {
			return fmt.Errorf("%w: line %d on document %d", domainwf.ErrNotFound, cmd.LineID, d.ID)
		}
		if line.Status != entity.LineStatusPending {
			return fmt.Errorf("%w: line %d already %s", domainwf.ErrInvalidState, line.ID, line.Status)
		}

		current, err := domainwf.CurrentStep(d.Lines)
		if err != nil {
			return err
		}
		if current == nil || current.ID != line.ID {
			return fmt.Errorf("%w: line %d is not the current step", domainwf.ErrInvalidState, line.ID)
		}

		now := e.now()
		if !domainwf.IsAuthorized(line, cmd.CallerID, now) {
			return fmt.Errorf("%w: %q may not decide line %d", domainwf.ErrUnauthorized, cmd.CallerID, line.ID)
		}

		lineTrigger := domainwf.TriggerApprove
		docTrigger := domainwf.TriggerApprove
		if cmd.Outcome == entity.DecisionRejected {
			lineTrigger = domainwf.TriggerReject
			docTrigger = domainwf.TriggerReject
		}

		lineMachine := NewLineStateMachine(line.Status)
		if err := lineMachine.Fire(txCtx, lineTrigger); err != nil {
			return err
		}
		line.Status = lineMachine.State()
		line.Comment = cmd.Comment
		line.DecidedBy = cmd.CallerID
		line.DecidedAt = &now
		line.UpdatedAt = now

		if err := e.lineRepo.Decide(txCtx, line.ID, line.Status, line.Comment, line.DecidedBy, now); err != nil {
			return fmt.Errorf("failed to record decision: %w", err)
		}

		previous := d.Status
		switch cmd.Outcome {
		case entity.DecisionApproved:
			next, err := domainwf.NextStep(d.Lines, line.OrderSeq)
			if err != nil {
				return err
			}
			if next != nil {
				docTrigger = domainwf.TriggerApproveStep
				notices = append(notices, port.NotificationRequest{
					Recipient: domainwf.ActingApprover(next, now),
					EventType: event.TypeApprovalRequested,
				})
			} else {
				d.CompletedAt = &now
				notices = append(notices, port.NotificationRequest{
					Recipient: d.Drafter,
					EventType: event.TypeDocumentApproved,
				})
			}

		case entity.DecisionRejected:
			if err := e.skipRemaining(txCtx, d, now); err != nil {
				return err
			}
			if err := e.releaseLeave(txCtx, d); err != nil {
				return err
			}
			d.CompletedAt = &now
			notices = append(notices, port.NotificationRequest{
				Recipient: d.Drafter,
				EventType: event.TypeDocumentRejected,
			})
		}

		docMachine := NewDocumentStateMachine(d.Status)
		if err := docMachine.Fire(txCtx, docTrigger); err != nil {
			return err
		}
		d.Status = docMachine.State()
		d.UpdatedAt = now

		if err := e.persistDocument(txCtx, d); err != nil {
			return err
		}

		if err := e.recordHistory(txCtx, d, &line.ID, cmd.CallerID, docTrigger, previous, cmd.Comment, now); err != nil {
			return err
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Decision recorded",
		"document_id", doc.ID,
		"line_id", cmd.LineID,
		"caller", cmd.CallerID,
		"outcome", string(cmd.Outcome),
		"status", doc.Status.String())

	e.notify(ctx, withDocument(notices, doc))
	return doc, nil
}

// Cancel withdraws a document on behalf of its drafter
func (e *engineImpl) Cancel(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error) {
	unlock := e.locks.lock(documentID)
	defer unlock()

	var doc *entity.ApprovalDocument

	err := e.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := e.loadDocument(txCtx, documentID)
		if err != nil {
			return err
		}

		if callerID == "" || callerID != d.Drafter {
			return fmt.Errorf("%w: only the drafter may cancel document %d", domainwf.ErrUnauthorized, d.ID)
		}

		machine := NewDocumentStateMachine(d.Status)
		if !machine.CanFire(domainwf.TriggerCancel) {
			return fmt.Errorf("%w: document %d is %s", domainwf.ErrInvalidState, d.ID, d.Status)
		}

		previous := d.Status
		if err := machine.Fire(txCtx, domainwf.TriggerCancel); err != nil {
			return err
		}

		now := e.now()
		if err := e.skipRemaining(txCtx, d, now); err != nil {
			return err
		}
		if err := e.releaseLeave(txCtx, d); err != nil {
			return err
		}

		d.Status = machine.State()
		d.CompletedAt = &now
		d.UpdatedAt = now
		if err := e.persistDocument(txCtx, d); err != nil {
			return err
		}

		if err := e.recordHistory(txCtx, d, nil, callerID, domainwf.TriggerCancel, previous, "", now); err != nil {
			return err
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.logger.Info("Document canceled", "document_id", doc.ID, "caller", callerID)
	e.notify(ctx, withDocument([]port.NotificationRequest{{
		Recipient: doc.Drafter,
		EventType: event.TypeDocumentCanceled,
	}}, doc))
	return doc, nil
}

// CurrentPendingCount counts documents whose current step awaits userID
func (e *engineImpl) CurrentPendingCount(ctx context.Context, userID string) (int, error) {
	docs, err := e.PendingFor(ctx, userID)
	if err != nil {
		return 0, err
	}
	return len(docs), nil
}

// PendingFor recomputes the current step of every candidate document.
// Nothing about the acting approver is stored.
func (e *engineImpl) PendingFor(ctx context.Context, userID string) ([]*entity.ApprovalDocument, error) {
	if userID == "" {
		return []*entity.ApprovalDocument{}, nil
	}

	ids, err := e.lineRepo.DocumentIDsAwaiting(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query awaiting documents: %w", err)
	}

	now := e.now()
	result := make([]*entity.ApprovalDocument, 0, len(ids))
	for _, id := range ids {
		d, err := e.docRepo.GetByID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load document %d: %w", id, err)
		}
		if d == nil || d.IsDeleted || d.Status != entity.DocumentStatusPending {
			continue
		}

		lines, err := e.lineRepo.GetByDocumentID(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("failed to load lines of document %d: %w", id, err)
		}

		current, err := domainwf.CurrentStep(lines)
		if err != nil {
			e.logger.Error("Skipping malformed document", "document_id", id, "error", err)
			continue
		}
		if current == nil || !domainwf.IsAuthorized(current, userID, now) {
			continue
		}

		d.Lines = lines
		result = append(result, d)
	}

	return result, nil
}

func (e *engineImpl) loadDocument(ctx context.Context, documentID int64) (*entity.ApprovalDocument, error) {
	d, err := e.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load document: %w", err)
	}
	if d == nil || d.IsDeleted {
		return nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, documentID)
	}

	lines, err := e.lineRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("failed to load lines: %w", err)
	}
	d.Lines = lines

	if d.IsLeave() {
		leave, err := e.leaveRepo.GetByDocumentID(ctx, documentID)
		if err != nil {
			return nil, fmt.Errorf("failed to load leave request: %w", err)
		}
		d.Leave = leave
	}

	return d, nil
}

func (e *engineImpl) reserveLeave(ctx context.Context, d *entity.ApprovalDocument) error {
	if d.Leave == nil {
		return fmt.Errorf("%w: leave document %d has no leave request", domainwf.ErrStructuralIntegrity, d.ID)
	}

	hours := d.Leave.RequestedHours()
	if !hours.IsPositive() {
		return fmt.Errorf("%w: leave document %d requests no hours", domainwf.ErrStructuralIntegrity, d.ID)
	}

	if err := e.ledger.Reserve(ctx, d.Drafter, d.Leave.Year(), hours, d.ID); err != nil {
		return fmt.Errorf("failed to reserve leave: %w", err)
	}
	if err := e.leaveRepo.SetReservedHours(ctx, d.ID, hours); err != nil {
		return fmt.Errorf("failed to record reserved hours: %w", err)
	}
	d.Leave.ReservedHours = hours
	return nil
}

// releaseLeave returns exactly what was reserved for the document
func (e *engineImpl) releaseLeave(ctx context.Context, d *entity.ApprovalDocument) error {
	if d.Leave == nil || !d.Leave.ReservedHours.IsPositive() {
		return nil
	}

	if err := e.ledger.Release(ctx, d.Drafter, d.Leave.Year(), d.Leave.ReservedHours, d.ID); err != nil {
		return fmt.Errorf("failed to release leave: %w", err)
	}
	if err := e.leaveRepo.SetReservedHours(ctx, d.ID, decimal.Zero); err != nil {
		return fmt.Errorf("failed to clear reserved hours: %w", err)
	}
	d.Leave.ReservedHours = decimal.Zero
	return nil
}

// skipRemaining cascades every PENDING APPROVAL line to SKIPPED
func (e *engineImpl) skipRemaining(ctx context.Context, d *entity.ApprovalDocument, now time.Time) error {
	var expected int64
	for _, l := range d.Lines {
		if !l.IsApproval() || l.Status != entity.LineStatusPending {
			continue
		}
		m := NewLineStateMachine(l.Status)
		if err := m.Fire(ctx, domainwf.TriggerSkip); err != nil {
			return err
		}
		l.Status = m.State()
		l.UpdatedAt = now
		expected++
	}

	skipped, err := e.lineRepo.SkipPending(ctx, d.ID, now)
	if err != nil {
		return fmt.Errorf("failed to skip remaining lines: %w", err)
	}
	if skipped != expected {
		return fmt.Errorf("%w: skipped %d lines, expected %d", domainwf.ErrConcurrentModification, skipped, expected)
	}
	return nil
}

func (e *engineImpl) persistDocument(ctx context.Context, d *entity.ApprovalDocument) error {
	if err := domainwf.VerifyStatus(d.Status, d.Lines); err != nil {
		return err
	}
	if err := e.docRepo.UpdateStatus(ctx, d, d.Version); err != nil {
		return fmt.Errorf("failed to update document status: %w", err)
	}
	return nil
}

func (e *engineImpl) recordHistory(
	ctx context.Context,
	d *entity.ApprovalDocument,
	lineID *int64,
	actor string,
	trigger domainwf.Trigger,
	previous entity.DocumentStatus,
	comment string,
	at time.Time,
) error {
	history := &entity.ApprovalHistory{
		DocumentID:     d.ID,
		LineID:         lineID,
		Actor:          actor,
		Action:         trigger.String(),
		PreviousStatus: previous,
		NewStatus:      d.Status,
		Comment:        comment,
		Timestamp:      at,
	}
	if err := e.historyRepo.Create(ctx, history); err != nil {
		return fmt.Errorf("failed to create history record: %w", err)
	}
	return nil
}

// notify runs after commit. Failures never reach the caller.
func (e *engineImpl) notify(ctx context.Context, notices []port.NotificationRequest) {
	if e.notifier == nil {
		return
	}
	for _, n := range notices {
		if n.Recipient == "" {
			continue
		}
		if err := e.notifier.Notify(ctx, n); err != nil {
			e.logger.Error("Failed to queue notification",
				"document_id", n.DocumentID,
				"recipient", n.Recipient,
				"event_type", n.EventType.String(),
				"error", err)
		}
	}
}

func submitNotices(d *entity.ApprovalDocument, now time.Time) []port.NotificationRequest {
	var notices []port.NotificationRequest

	current, _ := domainwf.CurrentStep(d.Lines)
	if current != nil {
		notices = append(notices, port.NotificationRequest{
			Recipient: domainwf.ActingApprover(current, now),
			EventType: event.TypeApprovalRequested,
		})
	}
	for _, l := range d.Lines {
		if l.IsApproval() {
			continue
		}
		notices = append(notices, port.NotificationRequest{
			Recipient: l.Approver,
			EventType: event.TypeDocumentReferenced,
		})
	}

	return withDocument(notices, d)
}

func withDocument(notices []port.NotificationRequest, d *entity.ApprovalDocument) []port.NotificationRequest {
	for i := range notices {
		notices[i].DocumentID = d.ID
		notices[i].DocNumber = d.DocNumber
		notices[i].Summary = d.Title
	}
	return notices
}

type nopLogger struct{}

func (nopLogger) Info(msg string, keysAndValues ...interface{})  {}
func (nopLogger) Error(msg string, keysAndValues ...interface{}) {}
