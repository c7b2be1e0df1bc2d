package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/garyjia/groupware-approval/internal/application/port"
	"github.com/garyjia/groupware-approval/internal/application/workflow"
	"github.com/garyjia/groupware-approval/internal/domain/entity"
	"github.com/garyjia/groupware-approval/internal/domain/event"
	domainwf "github.com/garyjia/groupware-approval/internal/domain/workflow"
	"github.com/garyjia/groupware-approval/pkg/utils"
)

// ErrInvalidInput is returned when a request is malformed
var ErrInvalidInput = errors.New("invalid input")

// Logger interface for minimal logging dependency
type Logger interface {
	Info(msg string, keysAndValues ...interface{})
	Error(msg string, keysAndValues ...interface{})
}

// LineInput describes one approval step of a draft
type LineInput struct {
	OrderSeq     int
	Approver     string
	ApprovalType entity.ApprovalType
}

// LeaveInput describes the leave requested by a LEAVE draft
type LeaveInput struct {
	LeaveType  entity.LeaveType
	StartDate  time.Time
	EndDate    time.Time
	LeaveDays  decimal.Decimal
	LeaveHours decimal.Decimal
}

// CreateDraftInput is everything needed to open a draft
type CreateDraftInput struct {
	Title   string
	Content string
	DocType entity.DocType
	Drafter string
	Lines   []LineInput
	Leave   *LeaveInput
}

// DelegateInput hands one pending line to another user
type DelegateInput struct {
	DocumentID int64
	LineID     int64
	CallerID   string
	DelegateTo string
	Until      *time.Time
}

// DocumentService manages drafts and everything around the approval engine
type DocumentService interface {
	CreateDraft(ctx context.Context, in CreateDraftInput) (*entity.ApprovalDocument, error)
	ReplaceLines(ctx context.Context, documentID int64, callerID string, lines []LineInput) (*entity.ApprovalDocument, error)
	Get(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error)
	ListByDrafter(ctx context.Context, drafter string, limit, offset int) ([]*entity.ApprovalDocument, error)
	Submit(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error)
	SoftDelete(ctx context.Context, documentID int64, callerID string) error
	History(ctx context.Context, documentID int64, callerID string) ([]*entity.ApprovalHistory, error)
	Delegate(ctx context.Context, in DelegateInput) (*entity.ApprovalLine, error)
	Export(ctx context.Context, documentID int64, callerID string) ([]byte, error)
}

type documentServiceImpl struct {
	docRepo     port.DocumentRepository
	lineRepo    port.LineRepository
	leaveRepo   port.LeaveRequestRepository
	historyRepo port.HistoryRepository
	engine      workflow.ApprovalEngine
	notifier    port.Notifier
	exporter    port.DocumentExporter
	txManager   port.TransactionManager
	logger      Logger
	now         func() time.Time
}

// NewDocumentService creates a new DocumentService
func NewDocumentService(
	docRepo port.DocumentRepository,
	lineRepo port.LineRepository,
	leaveRepo port.LeaveRequestRepository,
	historyRepo port.HistoryRepository,
	engine workflow.ApprovalEngine,
	notifier port.Notifier,
	exporter port.DocumentExporter,
	txManager port.TransactionManager,
	logger Logger,
) DocumentService {
	return &documentServiceImpl{
		docRepo:     docRepo,
		lineRepo:    lineRepo,
		leaveRepo:   leaveRepo,
		historyRepo: historyRepo,
		engine:      engine,
		notifier:    notifier,
		exporter:    exporter,
		txManager:   txManager,
		logger:      logger,
		now:         time.Now,
	}
}

// CreateDraft stores a DRAFT document with its lines and leave detail.
// Line order is not checked here; Submit enforces it.
func (s *documentServiceImpl) CreateDraft(ctx context.Context, in CreateDraftInput) (*entity.ApprovalDocument, error) {
	if err := validateDraft(in); err != nil {
		return nil, err
	}

	now := s.now()
	doc := &entity.ApprovalDocument{
		DocNumber: newDocNumber(now),
		Title:     strings.TrimSpace(utils.SanitizeString(in.Title)),
		Content:   utils.SanitizeString(in.Content),
		DocType:   in.DocType,
		Status:    entity.DocumentStatusDraft,
		Drafter:   in.Drafter,
		DraftedAt: now,
		Version:   1,
		CreatedAt: now,
		UpdatedAt: now,
	}

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		if err := s.docRepo.Create(txCtx, doc); err != nil {
			return fmt.Errorf("create document: %w", err)
		}

		doc.Lines = buildLines(doc.ID, in.Lines, now)
		if err := s.lineRepo.CreateBatch(txCtx, doc.Lines); err != nil {
			return fmt.Errorf("create lines: %w", err)
		}

		if in.Leave != nil {
			doc.Leave = &entity.LeaveRequest{
				DocumentID:    doc.ID,
				LeaveType:     in.Leave.LeaveType,
				StartDate:     in.Leave.StartDate,
				EndDate:       in.Leave.EndDate,
				LeaveDays:     in.Leave.LeaveDays,
				LeaveHours:    in.Leave.LeaveHours,
				ReservedHours: decimal.Zero,
				CreatedAt:     now,
				UpdatedAt:     now,
			}
			if err := s.leaveRepo.Create(txCtx, doc.Leave); err != nil {
				return fmt.Errorf("create leave request: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		s.logger.Error("Failed to create draft", "drafter", in.Drafter, "error", err)
		return nil, err
	}

	s.logger.Info("Draft created", "document_id", doc.ID, "doc_number", doc.DocNumber, "drafter", doc.Drafter)
	return doc, nil
}

// ReplaceLines swaps the approval chain of a DRAFT document
func (s *documentServiceImpl) ReplaceLines(ctx context.Context, documentID int64, callerID string, lines []LineInput) (*entity.ApprovalDocument, error) {
	if err := validateLines(lines); err != nil {
		return nil, err
	}

	var doc *entity.ApprovalDocument
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := s.load(txCtx, documentID)
		if err != nil {
			return err
		}
		if d.Drafter != callerID {
			return fmt.Errorf("%w: only the drafter may edit document %d", domainwf.ErrUnauthorized, d.ID)
		}
		if d.Status != entity.DocumentStatusDraft {
			return fmt.Errorf("%w: document %d is %s", domainwf.ErrInvalidState, d.ID, d.Status)
		}

		now := s.now()
		d.UpdatedAt = now
		if err := s.docRepo.UpdateDraft(txCtx, d); err != nil {
			return fmt.Errorf("update draft: %w", err)
		}
		if err := s.lineRepo.DeleteByDocumentID(txCtx, d.ID); err != nil {
			return fmt.Errorf("delete lines: %w", err)
		}

		d.Lines = buildLines(d.ID, lines, now)
		if err := s.lineRepo.CreateBatch(txCtx, d.Lines); err != nil {
			return fmt.Errorf("create lines: %w", err)
		}

		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Draft lines replaced", "document_id", documentID, "line_count", len(lines))
	return doc, nil
}

// Get returns a document visible to the caller: its drafter or anyone on its chain
func (s *documentServiceImpl) Get(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error) {
	doc, err := s.load(ctx, documentID)
	if err != nil {
		return nil, err
	}
	if !canView(doc, callerID) {
		return nil, fmt.Errorf("%w: %q may not view document %d", domainwf.ErrUnauthorized, callerID, documentID)
	}
	return doc, nil
}

func (s *documentServiceImpl) ListByDrafter(ctx context.Context, drafter string, limit, offset int) ([]*entity.ApprovalDocument, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}

	docs, err := s.docRepo.ListByDrafter(ctx, drafter, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return docs, nil
}

// Submit checks that the caller drafted the document before handing it to the engine
func (s *documentServiceImpl) Submit(ctx context.Context, documentID int64, callerID string) (*entity.ApprovalDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil || doc.IsDeleted {
		return nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, documentID)
	}
	if doc.Drafter != callerID {
		return nil, fmt.Errorf("%w: only the drafter may submit document %d", domainwf.ErrUnauthorized, documentID)
	}

	return s.engine.Submit(ctx, documentID)
}

// SoftDelete hides a DRAFT or terminal document. PENDING documents must be canceled first.
// The read and the guarded update share one transaction.
func (s *documentServiceImpl) SoftDelete(ctx context.Context, documentID int64, callerID string) error {
	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		doc, err := s.docRepo.GetByID(txCtx, documentID)
		if err != nil {
			return fmt.Errorf("get document: %w", err)
		}
		if doc == nil || doc.IsDeleted {
			return fmt.Errorf("%w: document %d", domainwf.ErrNotFound, documentID)
		}
		if doc.Drafter != callerID {
			return fmt.Errorf("%w: only the drafter may delete document %d", domainwf.ErrUnauthorized, documentID)
		}
		if doc.Status == entity.DocumentStatusPending {
			return fmt.Errorf("%w: document %d is in approval", domainwf.ErrInvalidState, documentID)
		}

		if err := s.docRepo.SoftDelete(txCtx, documentID, doc.Version); err != nil {
			return fmt.Errorf("delete document: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.Info("Document deleted", "document_id", documentID, "caller", callerID)
	return nil
}

func (s *documentServiceImpl) History(ctx context.Context, documentID int64, callerID string) ([]*entity.ApprovalHistory, error) {
	if _, err := s.Get(ctx, documentID, callerID); err != nil {
		return nil, err
	}

	history, err := s.historyRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}
	return history, nil
}

// Delegate lets the approver of record hand a pending APPROVAL line to someone else.
// The approver of record is kept; only the delegate fields change.
func (s *documentServiceImpl) Delegate(ctx context.Context, in DelegateInput) (*entity.ApprovalLine, error) {
	in.DelegateTo = strings.TrimSpace(in.DelegateTo)
	if in.DelegateTo == "" {
		return nil, fmt.Errorf("%w: delegate is required", ErrInvalidInput)
	}
	if err := utils.ValidateUserID(in.DelegateTo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	now := s.now()
	if in.Until != nil && !in.Until.After(now) {
		return nil, fmt.Errorf("%w: delegation must end in the future", ErrInvalidInput)
	}

	var (
		line     *entity.ApprovalLine
		doc      *entity.ApprovalDocument
		isActive bool
	)

	err := s.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		d, err := s.load(txCtx, in.DocumentID)
		if err != nil {
			return err
		}
		if d.Status.IsTerminal() {
			return fmt.Errorf("%w: document %d is %s", domainwf.ErrInvalidState, d.ID, d.Status)
		}

		l := d.Line(in.LineID)
		if l == nil {
			return fmt.Errorf("%w: line %d on document %d", domainwf.ErrNotFound, in.LineID, d.ID)
		}
		if l.Approver != in.CallerID {
			return fmt.Errorf("%w: only the approver of record may delegate line %d", domainwf.ErrUnauthorized, l.ID)
		}
		if !l.IsApproval() || l.Status != entity.LineStatusPending {
			return fmt.Errorf("%w: line %d cannot be delegated", domainwf.ErrInvalidState, l.ID)
		}
		if in.DelegateTo == l.Approver {
			return fmt.Errorf("%w: cannot delegate to yourself", ErrInvalidInput)
		}

		if err := s.lineRepo.Delegate(txCtx, l.ID, in.DelegateTo, in.Until); err != nil {
			return fmt.Errorf("delegate line: %w", err)
		}
		l.DelegatedTo = in.DelegateTo
		l.DelegatedUntil = in.Until
		l.UpdatedAt = now

		history := &entity.ApprovalHistory{
			DocumentID:     d.ID,
			LineID:         &l.ID,
			Actor:          in.CallerID,
			Action:         "DELEGATE",
			PreviousStatus: d.Status,
			NewStatus:      d.Status,
			Comment:        "delegated to " + in.DelegateTo,
			Timestamp:      now,
		}
		if err := s.historyRepo.Create(txCtx, history); err != nil {
			return fmt.Errorf("create history record: %w", err)
		}

		current, err := domainwf.CurrentStep(d.Lines)
		if err != nil {
			return err
		}
		isActive = d.Status == entity.DocumentStatusPending && current != nil && current.ID == l.ID

		line = l
		doc = d
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("Line delegated", "document_id", in.DocumentID, "line_id", in.LineID, "delegate_to", in.DelegateTo)

	if isActive && s.notifier != nil {
		req := port.NotificationRequest{
			Recipient:  in.DelegateTo,
			EventType:  event.TypeApprovalRequested,
			DocumentID: doc.ID,
			DocNumber:  doc.DocNumber,
			Summary:    doc.Title,
		}
		if err := s.notifier.Notify(ctx, req); err != nil {
			s.logger.Error("Failed to notify delegate", "document_id", doc.ID, "delegate_to", in.DelegateTo, "error", err)
		}
	}

	return line, nil
}

// Export renders the document and its audit trail as a spreadsheet
func (s *documentServiceImpl) Export(ctx context.Context, documentID int64, callerID string) ([]byte, error) {
	doc, err := s.Get(ctx, documentID, callerID)
	if err != nil {
		return nil, err
	}

	history, err := s.historyRepo.GetByDocumentID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get history: %w", err)
	}

	data, err := s.exporter.ExportDocument(doc, history)
	if err != nil {
		return nil, fmt.Errorf("export document: %w", err)
	}
	return data, nil
}

func (s *documentServiceImpl) load(ctx context.Context, documentID int64) (*entity.ApprovalDocument, error) {
	doc, err := s.docRepo.GetByID(ctx, documentID)
	if err != nil {
		return nil, fmt.Errorf("get document: %w", err)
	}
	if doc == nil || doc.IsDeleted {
		return nil, fmt.Errorf("%w: document %d", domainwf.ErrNotFound, documentID)
	}

	if doc.Lines, err = s.lineRepo.GetByDocumentID(ctx, documentID); err != nil {
		return nil, fmt.Errorf("get lines: %w", err)
	}
	if doc.IsLeave() {
		if doc.Leave, err = s.leaveRepo.GetByDocumentID(ctx, documentID); err != nil {
			return nil, fmt.Errorf("get leave request: %w", err)
		}
	}
	return doc, nil
}

func canView(doc *entity.ApprovalDocument, callerID string) bool {
	if callerID == "" {
		return false
	}
	if doc.Drafter == callerID {
		return true
	}
	for _, l := range doc.Lines {
		if l.Approver == callerID || l.DelegatedTo == callerID {
			return true
		}
	}
	return false
}

func validateDraft(in CreateDraftInput) error {
	if err := utils.ValidateTitle(in.Title); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if in.Drafter == "" {
		return fmt.Errorf("%w: drafter is required", ErrInvalidInput)
	}
	if err := utils.ValidateUserID(in.Drafter); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !in.DocType.IsValid() {
		return fmt.Errorf("%w: unknown document type %q", ErrInvalidInput, in.DocType)
	}

	if in.DocType == entity.DocTypeLeave {
		if in.Leave == nil {
			return fmt.Errorf("%w: leave documents need leave details", ErrInvalidInput)
		}
		if err := validateLeave(in.Leave); err != nil {
			return err
		}
	} else if in.Leave != nil {
		return fmt.Errorf("%w: leave details on a %s document", ErrInvalidInput, in.DocType)
	}

	return validateLines(in.Lines)
}

func validateLeave(l *LeaveInput) error {
	if !l.LeaveType.IsValid() {
		return fmt.Errorf("%w: unknown leave type %q", ErrInvalidInput, l.LeaveType)
	}
	if l.StartDate.IsZero() || l.EndDate.IsZero() {
		return fmt.Errorf("%w: leave dates are required", ErrInvalidInput)
	}
	if l.EndDate.Before(l.StartDate) {
		return fmt.Errorf("%w: leave ends before it starts", ErrInvalidInput)
	}
	if l.LeaveDays.IsNegative() || l.LeaveHours.IsNegative() {
		return fmt.Errorf("%w: leave amounts cannot be negative", ErrInvalidInput)
	}
	if !l.LeaveDays.IsPositive() && !l.LeaveHours.IsPositive() {
		return fmt.Errorf("%w: leave days or hours are required", ErrInvalidInput)
	}
	return nil
}

func validateLines(lines []LineInput) error {
	if len(lines) == 0 {
		return fmt.Errorf("%w: at least one line is required", ErrInvalidInput)
	}
	for i, l := range lines {
		approver := strings.TrimSpace(l.Approver)
		if approver == "" {
			return fmt.Errorf("%w: line %d has no approver", ErrInvalidInput, i+1)
		}
		if err := utils.ValidateUserID(approver); err != nil {
			return fmt.Errorf("%w: line %d: %v", ErrInvalidInput, i+1, err)
		}
		if !l.ApprovalType.IsValid() {
			return fmt.Errorf("%w: line %d has unknown approval type %q", ErrInvalidInput, i+1, l.ApprovalType)
		}
		if l.OrderSeq < 1 {
			return fmt.Errorf("%w: line %d has order_seq %d", ErrInvalidInput, i+1, l.OrderSeq)
		}
	}
	return nil
}

// buildLines stores every line PENDING. On a DRAFT this only means "not yet decided":
// the document itself is not PENDING, so no inbox, current-step or decide path treats
// these lines as awaiting a decision until Submit moves the document to PENDING.
func buildLines(documentID int64, in []LineInput, now time.Time) []*entity.ApprovalLine {
	lines := make([]*entity.ApprovalLine, 0, len(in))
	for _, l := range in {
		lines = append(lines, &entity.ApprovalLine{
			DocumentID:   documentID,
			OrderSeq:     l.OrderSeq,
			Approver:     strings.TrimSpace(l.Approver),
			ApprovalType: l.ApprovalType,
			Status:       entity.LineStatusPending,
			CreatedAt:    now,
			UpdatedAt:    now,
		})
	}
	return lines
}

// newDocNumber formats APV-YYYYMMDD-XXXXXXXX
func newDocNumber(now time.Time) string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("APV-%s-%s", now.Format("20060102"), suffix)
}
